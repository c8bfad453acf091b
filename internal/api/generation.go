package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"imagechat/internal/chat"
	"imagechat/internal/generation"
	"imagechat/pkg/api"
	"imagechat/pkg/models"
)

const defaultHistoryLimit = 20

func generateResponse(outcome chat.Outcome, err error) (any, error) {
	if err != nil {
		if errors.Is(err, chat.ErrGenerationFailed) && outcome.Reply != nil {
			return nil, CodedErrorf(http.StatusBadGateway, "%s", outcome.Reply.Content)
		}
		return nil, serviceError(err)
	}

	return api.GenerateResponse{
		Skipped:     outcome.Skipped,
		Reason:      string(outcome.Reason),
		SessionID:   outcome.SessionID,
		UserMessage: outcome.UserMessage,
		Reply:       outcome.Reply,
	}, nil
}

func (s *ImageChatService) Generate(r *http.Request) (any, error) {
	req, err := ParseRequest[api.GenerateRequest](r)
	if err != nil {
		return nil, err
	}

	params := models.DefaultGenerationParameters()
	if len(req.Parameters) > 0 {
		if err := json.Unmarshal(req.Parameters, &params); err != nil {
			return nil, CodedErrorf(http.StatusBadRequest, "invalid parameters: %v", err)
		}
	}
	if params.GenerationType == "" {
		params.GenerationType = generation.Resolve(len(params.InputImages), params.BatchSize)
	}

	if req.ConfigID != "" {
		if _, ok := s.app.Configs.Get(req.ConfigID); !ok {
			return nil, CodedErrorf(http.StatusNotFound, "api config %s not found", req.ConfigID)
		}
	}

	return generateResponse(s.app.Orchestrator.Generate(r.Context(), req.Prompt, params, req.ConfigID))
}

func (s *ImageChatService) Submit(r *http.Request) (any, error) {
	return generateResponse(s.app.Submit(r.Context()))
}

func (s *ImageChatService) GenerationTypes(r *http.Request) (any, error) {
	return api.GenerationTypesResponse{Types: s.app.Catalog.Types(r.Context())}, nil
}

// Events streams generation events until the client disconnects.
func (s *ImageChatService) Events(r *http.Request) (StreamResponse, error) {
	events, unsubscribe := s.app.Events.Subscribe()
	ctx := r.Context()

	return func(yield func(any, error) bool) {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				if !yield(event, nil) {
					return
				}
			}
		}
	}, nil
}

func (s *ImageChatService) ListHistory(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.HistoryParams](r)
	if err != nil {
		return nil, err
	}

	limit, offset := defaultHistoryLimit, 0
	if params.Limit != nil {
		limit = *params.Limit
	}
	if params.Offset != nil {
		offset = *params.Offset
	}
	if limit < 1 || offset < 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "limit must be positive and offset must not be negative")
	}

	history, err := s.app.Client.History(r.Context(), limit, offset)
	if err != nil {
		return nil, CodedError(http.StatusBadGateway, err)
	}
	return api.HistoryResponse{History: history}, nil
}

func (s *ImageChatService) DeleteHistory(r *http.Request) (any, error) {
	id, err := URLParam(r, "history_id")
	if err != nil {
		return nil, err
	}

	if err := s.app.Client.DeleteHistory(r.Context(), id); err != nil {
		return nil, CodedError(http.StatusBadGateway, err)
	}
	return nil, nil
}
