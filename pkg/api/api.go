package api

import (
	"encoding/json"

	"imagechat/pkg/models"
)

type SessionsResponse struct {
	Sessions  []models.ChatSession `json:"sessions"`
	CurrentID string               `json:"current_id"`
}

type MessagesResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []models.Message `json:"messages"`
}

type ConfigsResponse struct {
	Configs []models.ApiConfig `json:"configs"`
}

type TestConfigResponse struct {
	Success bool `json:"success"`
}

type Draft struct {
	Prompt         string                      `json:"prompt"`
	InputImages    []string                    `json:"input_images"`
	Parameters     models.GenerationParameters `json:"parameters"`
	GenerationType models.GenerationType       `json:"generation_type"`
}

type SetPromptRequest struct {
	Prompt string `json:"prompt"`
}

type AddImagesRequest struct {
	Images []string `json:"images"`
}

type AddImagesResponse struct {
	// ResolvedTypes holds the generation type after each image was added.
	ResolvedTypes []models.GenerationType `json:"resolved_types"`
	Draft         Draft                   `json:"draft"`
}

type SetBatchSizeRequest struct {
	BatchSize int `json:"batch_size"`
}

type SeedImageRequest struct {
	Image string `json:"image"`
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
	// Parameters is decoded on top of the default parameters, so fields
	// left out keep their defaults.
	Parameters json.RawMessage `json:"parameters,omitempty"`
	// ConfigID overrides the active config when set.
	ConfigID string `json:"config_id,omitempty"`
}

type GenerateResponse struct {
	Skipped     bool            `json:"skipped"`
	Reason      string          `json:"reason,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	UserMessage *models.Message `json:"user_message,omitempty"`
	Reply       *models.Message `json:"reply,omitempty"`
}

type GenerationTypesResponse struct {
	Types []models.GenerationTypeInfo `json:"types"`
}

type HistoryParams struct {
	Limit  *int `schema:"limit"`
	Offset *int `schema:"offset"`
}

type HistoryResponse struct {
	History []models.HistoryItem `json:"history"`
}
