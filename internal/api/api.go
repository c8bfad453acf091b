package api

import (
	"errors"
	"net/http"

	"imagechat/internal/apiconfig"
	"imagechat/internal/app"
	"imagechat/internal/chat"
	"imagechat/internal/client"

	"github.com/go-chi/chi/v5"
)

// ImageChatService exposes an App over HTTP.
type ImageChatService struct {
	app *app.App
}

func NewImageChatService(a *app.App) *ImageChatService {
	return &ImageChatService{app: a}
}

func (s *ImageChatService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListSessions))
		r.Post("/", RestHandler(s.CreateSession))
		r.Post("/{session_id}/load", RestHandler(s.LoadSession))
		r.Delete("/{session_id}", RestHandler(s.DeleteSession))
	})
	r.Get("/messages", RestHandler(s.GetMessages))

	r.Route("/configs", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListConfigs))
		r.Get("/active", RestHandler(s.GetActiveConfig))
		r.Post("/", RestHandler(s.AddConfig))
		r.Post("/test", RestHandler(s.TestConfig))
		r.Put("/{config_id}", RestHandler(s.UpdateConfig))
		r.Delete("/{config_id}", RestHandler(s.DeleteConfig))
		r.Post("/{config_id}/activate", RestHandler(s.ActivateConfig))
	})

	r.Route("/draft", func(r chi.Router) {
		r.Get("/", RestHandler(s.GetDraft))
		r.Put("/prompt", RestHandler(s.SetPrompt))
		r.Post("/images", RestHandler(s.AddImages))
		r.Delete("/images/{index}", RestHandler(s.RemoveImage))
		r.Put("/batch-size", RestHandler(s.SetBatchSize))
		r.Post("/seed", RestHandler(s.SeedImage))
	})

	r.Post("/generate", RestHandler(s.Generate))
	r.Post("/submit", RestHandler(s.Submit))
	r.Get("/generation-types", RestHandler(s.GenerationTypes))
	r.Get("/events", RestStreamHandler(s.Events))

	r.Route("/history", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListHistory))
		r.Delete("/{history_id}", RestHandler(s.DeleteHistory))
	})
}

// serviceError maps errors from the app packages to response codes.
func serviceError(err error) error {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound), errors.Is(err, apiconfig.ErrConfigNotFound):
		return CodedError(http.StatusNotFound, err)
	case errors.Is(err, chat.ErrNoSession):
		return CodedError(http.StatusConflict, err)
	case errors.Is(err, chat.ErrGenerationFailed), errors.Is(err, client.ErrRemote):
		return CodedError(http.StatusBadGateway, err)
	default:
		return CodedError(http.StatusInternalServerError, err)
	}
}
