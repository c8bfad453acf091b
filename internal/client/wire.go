package client

import (
	"bytes"
	"encoding/json"
	"fmt"

	"imagechat/pkg/models"
)

// remoteConfig accepts both the camelCase and snake_case spellings the
// service has used for configs.
type remoteConfig struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	URL           string            `json:"url"`
	APIKey        string            `json:"apiKey"`
	APIKeySnake   string            `json:"api_key"`
	Headers       map[string]string `json:"headers"`
	Model         string            `json:"model"`
	IsActive      *bool             `json:"isActive"`
	IsActiveSnake *bool             `json:"is_active"`
}

func (r remoteConfig) toModel() models.ApiConfig {
	cfg := models.ApiConfig{
		ID:      r.ID,
		Name:    r.Name,
		URL:     r.URL,
		APIKey:  r.APIKey,
		Headers: r.Headers,
		Model:   r.Model,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = r.APIKeySnake
	}
	switch {
	case r.IsActive != nil:
		cfg.IsActive = *r.IsActive
	case r.IsActiveSnake != nil:
		cfg.IsActive = *r.IsActiveSnake
	}
	return cfg
}

func toModels(remote []remoteConfig) []models.ApiConfig {
	configs := make([]models.ApiConfig, 0, len(remote))
	for _, r := range remote {
		configs = append(configs, r.toModel())
	}
	return configs
}

// decodeList decodes a body that is either a bare JSON array or an object
// wrapping the array under envelopeKey.
func decodeList[T any](body []byte, envelopeKey string) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("error parsing list: %w", err)
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}

	raw, ok := envelope[envelopeKey]
	if !ok {
		return nil, fmt.Errorf("unexpected response format: missing %q", envelopeKey)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", envelopeKey, err)
	}
	return items, nil
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  string          `json:"error"`
}

// errorDetail extracts the human readable reason from a failed response.
func errorDetail(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}

	if len(parsed.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(parsed.Detail, &detail); err == nil {
			return detail
		}
		// Validation errors carry a structured detail.
		return string(parsed.Detail)
	}
	return parsed.Error
}
