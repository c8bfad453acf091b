package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"imagechat/pkg/models"

	"github.com/go-resty/resty/v2"
)

var ErrRemote = errors.New("remote service error")

// RemoteError is returned when the service answers with a non-success status.
type RemoteError struct {
	StatusCode int
	Detail     string
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

type GenerateRequest struct {
	Prompt         string                      `json:"prompt"`
	Parameters     models.GenerationParameters `json:"parameters"`
	APIConfigID    string                      `json:"apiConfigId"`
	GenerationType models.GenerationType       `json:"generation_type"`
	InputImages    []string                    `json:"input_images,omitempty"`
}

type GenerateResponse struct {
	Success bool     `json:"success"`
	Images  []string `json:"images,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type testResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client talks to the remote generation service.
type Client struct {
	http *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		http.SetTimeout(timeout)
	}
	return &Client{http: http}
}

func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	res, err := req.Execute(method, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	if !res.IsSuccess() {
		slog.Debug("remote service returned error", "method", method, "endpoint", endpoint, "status_code", res.StatusCode(), "body", res.String())
		return res, &RemoteError{StatusCode: res.StatusCode(), Detail: errorDetail(res.Body())}
	}

	return res, nil
}

func (c *Client) ListConfigs(ctx context.Context) ([]models.ApiConfig, error) {
	res, err := c.do(ctx, resty.MethodGet, "/api/api-configs", nil)
	if err != nil {
		return nil, fmt.Errorf("error listing api configs: %w", err)
	}

	remote, err := decodeList[remoteConfig](res.Body(), "configs")
	if err != nil {
		return nil, fmt.Errorf("error listing api configs: %w", err)
	}
	return toModels(remote), nil
}

func (c *Client) CreateConfig(ctx context.Context, fields models.ConfigFields) (models.ApiConfig, error) {
	res, err := c.do(ctx, resty.MethodPost, "/api/api-configs", fields)
	if err != nil {
		return models.ApiConfig{}, fmt.Errorf("error creating api config: %w", err)
	}

	var created remoteConfig
	if err := json.Unmarshal(res.Body(), &created); err != nil {
		return models.ApiConfig{}, fmt.Errorf("error parsing created api config: %w", err)
	}
	if created.ID == "" {
		return models.ApiConfig{}, fmt.Errorf("error creating api config: response has no id")
	}
	return created.toModel(), nil
}

func (c *Client) UpdateConfig(ctx context.Context, id string, patch models.ConfigPatch) error {
	if _, err := c.do(ctx, resty.MethodPut, "/api/api-configs/"+url.PathEscape(id), patch); err != nil {
		return fmt.Errorf("error updating api config %s: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteConfig(ctx context.Context, id string) error {
	if _, err := c.do(ctx, resty.MethodDelete, "/api/api-configs/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("error deleting api config %s: %w", id, err)
	}
	return nil
}

// TestConfig asks the service to check connectivity for an unsaved config.
func (c *Client) TestConfig(ctx context.Context, fields models.ConfigFields) (bool, error) {
	body := map[string]any{
		"name":   fields.Name,
		"url":    fields.URL,
		"apiKey": fields.APIKey,
	}
	if len(fields.Headers) > 0 {
		body["headers"] = fields.Headers
	}
	if fields.Model != "" {
		body["model"] = fields.Model
	}

	res, err := c.do(ctx, resty.MethodPost, "/api/api-configs/test", body)
	if err != nil {
		return false, fmt.Errorf("error testing api config: %w", err)
	}

	var parsed testResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		return false, fmt.Errorf("error parsing test response: %w", err)
	}
	if !parsed.Success && parsed.Message != "" {
		slog.Info("api config test failed", "name", fields.Name, "message", parsed.Message)
	}
	return parsed.Success, nil
}

func (c *Client) GenerationTypes(ctx context.Context) ([]models.GenerationTypeInfo, error) {
	res, err := c.do(ctx, resty.MethodGet, "/api/generation-types", nil)
	if err != nil {
		return nil, fmt.Errorf("error fetching generation types: %w", err)
	}

	types, err := decodeList[models.GenerationTypeInfo](res.Body(), "types")
	if err != nil {
		return nil, fmt.Errorf("error fetching generation types: %w", err)
	}
	return types, nil
}

// Generate performs one generation call. A 2xx response is returned as is,
// even when it reports failure; non-2xx responses are returned as *RemoteError.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	res, err := c.do(ctx, resty.MethodPost, "/api/generate", req)
	if err != nil {
		return GenerateResponse{}, err
	}

	var parsed GenerateResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		return GenerateResponse{}, fmt.Errorf("error parsing generate response: %w", err)
	}
	return parsed, nil
}

func (c *Client) History(ctx context.Context, limit, offset int) ([]models.HistoryItem, error) {
	endpoint := "/api/chat-history?" + url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}.Encode()

	res, err := c.do(ctx, resty.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error fetching history: %w", err)
	}

	items, err := decodeList[models.HistoryItem](res.Body(), "history")
	if err != nil {
		return nil, fmt.Errorf("error fetching history: %w", err)
	}
	return items, nil
}

func (c *Client) DeleteHistory(ctx context.Context, id string) error {
	if _, err := c.do(ctx, resty.MethodDelete, "/api/chat-history/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("error deleting history item %s: %w", id, err)
	}
	return nil
}
