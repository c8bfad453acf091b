package api

import (
	"net/http"
	"strings"

	"imagechat/pkg/api"
)

func (s *ImageChatService) draft() api.Draft {
	snapshot := s.app.Draft.Snapshot()
	return api.Draft{
		Prompt:         snapshot.Prompt,
		InputImages:    snapshot.InputImages,
		Parameters:     snapshot.Parameters,
		GenerationType: snapshot.GenerationType,
	}
}

func (s *ImageChatService) GetDraft(r *http.Request) (any, error) {
	return s.draft(), nil
}

func (s *ImageChatService) SetPrompt(r *http.Request) (any, error) {
	req, err := ParseRequest[api.SetPromptRequest](r)
	if err != nil {
		return nil, err
	}

	s.app.Draft.SetPrompt(req.Prompt)
	return s.draft(), nil
}

func (s *ImageChatService) AddImages(r *http.Request) (any, error) {
	req, err := ParseRequest[api.AddImagesRequest](r)
	if err != nil {
		return nil, err
	}
	if len(req.Images) == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "at least one image is required")
	}

	types := s.app.Draft.AddImages(req.Images...)
	return api.AddImagesResponse{ResolvedTypes: types, Draft: s.draft()}, nil
}

func (s *ImageChatService) RemoveImage(r *http.Request) (any, error) {
	index, err := URLParamInt(r, "index")
	if err != nil {
		return nil, err
	}

	if _, err := s.app.Draft.RemoveImage(index); err != nil {
		return nil, CodedError(http.StatusBadRequest, err)
	}
	return s.draft(), nil
}

func (s *ImageChatService) SetBatchSize(r *http.Request) (any, error) {
	req, err := ParseRequest[api.SetBatchSizeRequest](r)
	if err != nil {
		return nil, err
	}

	s.app.Draft.SetBatchSize(req.BatchSize)
	return s.draft(), nil
}

func (s *ImageChatService) SeedImage(r *http.Request) (any, error) {
	req, err := ParseRequest[api.SeedImageRequest](r)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Image) == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "image is required")
	}

	s.app.Draft.SeedImage(req.Image)
	return s.draft(), nil
}
