package models

import (
	"time"
)

// --- Remote service configuration ---

type ApiConfig struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	URL      string            `json:"url"`
	APIKey   string            `json:"apiKey"`
	Headers  map[string]string `json:"headers,omitempty"`
	Model    string            `json:"model,omitempty"`
	IsActive bool              `json:"isActive"`
}

// ConfigFields is an ApiConfig before an id has been assigned.
type ConfigFields struct {
	Name     string            `json:"name"`
	URL      string            `json:"url"`
	APIKey   string            `json:"apiKey"`
	Headers  map[string]string `json:"headers,omitempty"`
	Model    string            `json:"model,omitempty"`
	IsActive bool              `json:"isActive"`
}

func (f ConfigFields) WithID(id string) ApiConfig {
	return ApiConfig{
		ID:       id,
		Name:     f.Name,
		URL:      f.URL,
		APIKey:   f.APIKey,
		Headers:  f.Headers,
		Model:    f.Model,
		IsActive: f.IsActive,
	}
}

// ConfigPatch carries a partial update. Nil fields are left untouched.
type ConfigPatch struct {
	Name     *string           `json:"name,omitempty"`
	URL      *string           `json:"url,omitempty"`
	APIKey   *string           `json:"apiKey,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	Model    *string           `json:"model,omitempty"`
	IsActive *bool             `json:"isActive,omitempty"`
}

func (p ConfigPatch) Apply(cfg ApiConfig) ApiConfig {
	if p.Name != nil {
		cfg.Name = *p.Name
	}
	if p.URL != nil {
		cfg.URL = *p.URL
	}
	if p.APIKey != nil {
		cfg.APIKey = *p.APIKey
	}
	if p.Headers != nil {
		cfg.Headers = p.Headers
	}
	if p.Model != nil {
		cfg.Model = *p.Model
	}
	if p.IsActive != nil {
		cfg.IsActive = *p.IsActive
	}
	return cfg
}

// --- Generation ---

type GenerationType string

const (
	TextToImage         GenerationType = "text_to_image"
	TextToBatch         GenerationType = "text_to_batch"
	ImageToImage        GenerationType = "image_to_image"
	ImageToBatch        GenerationType = "image_to_batch"
	MultiImageFusion    GenerationType = "multi_image_fusion"
	MultiReferenceBatch GenerationType = "multi_reference_batch"
	BatchGeneration     GenerationType = "batch_generation"
)

type GenerationParameters struct {
	Model             string         `json:"model,omitempty"`
	Width             int            `json:"width,omitempty"`
	Height            int            `json:"height,omitempty"`
	Steps             int            `json:"steps,omitempty"`
	CfgScale          float64        `json:"cfg_scale,omitempty"`
	Seed              int64          `json:"seed,omitempty"`
	Sampler           string         `json:"sampler,omitempty"`
	NegativePrompt    string         `json:"negative_prompt,omitempty"`
	BatchSize         int            `json:"batch_size,omitempty"`
	Quality           string         `json:"quality,omitempty"`
	Style             string         `json:"style,omitempty"`
	GenerationType    GenerationType `json:"generation_type,omitempty"`
	InputImages       []string       `json:"input_images,omitempty"`
	Strength          float64        `json:"strength,omitempty"`
	GuidanceScale     float64        `json:"guidance_scale,omitempty"`
	NumInferenceSteps int            `json:"num_inference_steps,omitempty"`
	Scheduler         string         `json:"scheduler,omitempty"`
	Watermark         bool           `json:"watermark"`
}

// DefaultGenerationParameters mirrors the composer defaults of the chat UI.
func DefaultGenerationParameters() GenerationParameters {
	return GenerationParameters{
		Width:     1024,
		Height:    1024,
		Steps:     20,
		CfgScale:  7,
		Seed:      -1,
		Sampler:   "DPM++ 2M Karras",
		BatchSize: 1,
		Quality:   "standard",
		Watermark: true,
	}
}

// Clone returns a copy that shares no slices with p.
func (p GenerationParameters) Clone() GenerationParameters {
	if p.InputImages != nil {
		p.InputImages = append([]string(nil), p.InputImages...)
	}
	return p
}

type GenerationTypeInfo struct {
	ID                 GenerationType `json:"id"`
	Name               string         `json:"name"`
	Description        string         `json:"description"`
	RequiresInputImage bool           `json:"requires_input_image,omitempty"`
}

// --- Conversation ---

type MessageType string

const (
	MessageUser      MessageType = "user"
	MessageAssistant MessageType = "assistant"
)

type Message struct {
	ID         string                `json:"id"`
	Type       MessageType           `json:"type"`
	Content    string                `json:"content"`
	Images     []string              `json:"images,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
	Parameters *GenerationParameters `json:"parameters,omitempty"`
}

// NewMessage is a Message before the session store assigns its id and timestamp.
// An empty SessionID targets the current session.
type NewMessage struct {
	SessionID  string
	Type       MessageType
	Content    string
	Images     []string
	Parameters *GenerationParameters
}

type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HistoryItem is one record of the remote service's own generation log.
type HistoryItem struct {
	ID         string               `json:"id"`
	Prompt     string               `json:"prompt"`
	Images     []string             `json:"images"`
	Parameters GenerationParameters `json:"parameters"`
	Timestamp  string               `json:"timestamp"`
}
