package api

import (
	"net/http"
	"strings"

	"imagechat/pkg/api"
	"imagechat/pkg/models"
)

func (s *ImageChatService) ListConfigs(r *http.Request) (any, error) {
	return api.ConfigsResponse{Configs: s.app.Configs.GetAll()}, nil
}

func (s *ImageChatService) GetActiveConfig(r *http.Request) (any, error) {
	active, ok := s.app.Configs.GetActive()
	if !ok {
		return nil, CodedErrorf(http.StatusNotFound, "no active api config")
	}
	return active, nil
}

func validateConfigFields(fields models.ConfigFields) error {
	if strings.TrimSpace(fields.Name) == "" {
		return CodedErrorf(http.StatusBadRequest, "api config name is required")
	}
	if strings.TrimSpace(fields.URL) == "" {
		return CodedErrorf(http.StatusBadRequest, "api config url is required")
	}
	return nil
}

func (s *ImageChatService) AddConfig(r *http.Request) (any, error) {
	fields, err := ParseRequest[models.ConfigFields](r)
	if err != nil {
		return nil, err
	}
	if err := validateConfigFields(fields); err != nil {
		return nil, err
	}

	return s.app.Configs.Add(r.Context(), fields), nil
}

func (s *ImageChatService) UpdateConfig(r *http.Request) (any, error) {
	id, err := URLParam(r, "config_id")
	if err != nil {
		return nil, err
	}

	patch, err := ParseRequest[models.ConfigPatch](r)
	if err != nil {
		return nil, err
	}

	if err := s.app.Configs.Update(r.Context(), id, patch); err != nil {
		return nil, serviceError(err)
	}

	cfg, _ := s.app.Configs.Get(id)
	return cfg, nil
}

func (s *ImageChatService) DeleteConfig(r *http.Request) (any, error) {
	id, err := URLParam(r, "config_id")
	if err != nil {
		return nil, err
	}

	if err := s.app.Configs.Delete(r.Context(), id); err != nil {
		return nil, serviceError(err)
	}
	return api.ConfigsResponse{Configs: s.app.Configs.GetAll()}, nil
}

func (s *ImageChatService) ActivateConfig(r *http.Request) (any, error) {
	id, err := URLParam(r, "config_id")
	if err != nil {
		return nil, err
	}

	if err := s.app.Configs.SetActive(r.Context(), id); err != nil {
		return nil, serviceError(err)
	}

	cfg, _ := s.app.Configs.Get(id)
	return cfg, nil
}

func (s *ImageChatService) TestConfig(r *http.Request) (any, error) {
	fields, err := ParseRequest[models.ConfigFields](r)
	if err != nil {
		return nil, err
	}
	if err := validateConfigFields(fields); err != nil {
		return nil, err
	}

	return api.TestConfigResponse{Success: s.app.Configs.Test(r.Context(), fields)}, nil
}
