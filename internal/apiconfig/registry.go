package apiconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"imagechat/internal/storage"
	"imagechat/pkg/models"

	"github.com/google/uuid"
)

const StorageKey = "apiConfigs"

var ErrConfigNotFound = errors.New("api config not found")

// Remote is the part of the service client the registry syncs with.
type Remote interface {
	ListConfigs(ctx context.Context) ([]models.ApiConfig, error)
	CreateConfig(ctx context.Context, fields models.ConfigFields) (models.ApiConfig, error)
	UpdateConfig(ctx context.Context, id string, patch models.ConfigPatch) error
	DeleteConfig(ctx context.Context, id string) error
	TestConfig(ctx context.Context, fields models.ConfigFields) (bool, error)
}

// Registry owns the list of remote service configs and which one is active.
// Whenever at least one config exists exactly one of them is active.
type Registry struct {
	mu       sync.Mutex
	remote   Remote
	store    *storage.JSONStore
	configs  []models.ApiConfig
	activeID string
}

func NewRegistry(remote Remote, store *storage.JSONStore) *Registry {
	return &Registry{remote: remote, store: store}
}

func (r *Registry) GetAll() []models.ApiConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneConfigs(r.configs)
}

func (r *Registry) GetActive() (models.ApiConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(r.activeID)
}

func (r *Registry) Get(id string) (models.ApiConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(id)
}

// Add registers a new config. The service assigns the id when reachable;
// otherwise the config gets a local id and is only persisted locally.
func (r *Registry) Add(ctx context.Context, fields models.ConfigFields) models.ApiConfig {
	r.mu.Lock()
	fields.IsActive = fields.IsActive || len(r.configs) == 0
	r.mu.Unlock()

	cfg, err := r.remote.CreateConfig(ctx, fields)
	if err != nil {
		slog.Warn("unable to create api config remotely, keeping it locally", "name", fields.Name, "error", err)
		cfg = fields.WithID(uuid.NewString())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cfg.IsActive = fields.IsActive || len(r.configs) == 0
	r.configs = append(r.configs, cfg)

	preferred := ""
	if cfg.IsActive {
		preferred = cfg.ID
	}
	r.normalize(preferred)
	r.persist(ctx)

	added, _ := r.lookup(cfg.ID)
	slog.Info("api config added", "id", added.ID, "name", added.Name, "active", added.IsActive)
	return added
}

func (r *Registry) Update(ctx context.Context, id string, patch models.ConfigPatch) error {
	r.mu.Lock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		slog.Warn("update of unknown api config ignored", "id", id)
		return fmt.Errorf("%w: %s", ErrConfigNotFound, id)
	}

	r.configs[idx] = patch.Apply(r.configs[idx])

	preferred := ""
	if patch.IsActive != nil && *patch.IsActive {
		preferred = id
	}
	r.normalize(preferred)
	r.persist(ctx)
	r.mu.Unlock()

	if err := r.remote.UpdateConfig(ctx, id, patch); err != nil {
		slog.Warn("unable to sync api config update", "id", id, "error", err)
	}
	return nil
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		slog.Warn("delete of unknown api config ignored", "id", id)
		return fmt.Errorf("%w: %s", ErrConfigNotFound, id)
	}

	r.configs = slices.Delete(r.configs, idx, idx+1)
	r.normalize("")
	r.persist(ctx)
	r.mu.Unlock()

	if err := r.remote.DeleteConfig(ctx, id); err != nil {
		slog.Warn("unable to sync api config deletion", "id", id, "error", err)
	}
	return nil
}

func (r *Registry) SetActive(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(id) < 0 {
		slog.Warn("activation of unknown api config ignored", "id", id)
		return fmt.Errorf("%w: %s", ErrConfigNotFound, id)
	}

	r.normalize(id)
	r.persist(ctx)
	return nil
}

// Test checks connectivity for an unsaved config. Any error counts as failure.
func (r *Registry) Test(ctx context.Context, fields models.ConfigFields) bool {
	ok, err := r.remote.TestConfig(ctx, fields)
	if err != nil {
		slog.Warn("api config test failed", "name", fields.Name, "error", err)
		return false
	}
	return ok
}

// normalize re-derives the single active config: preferred if it exists,
// otherwise the first flagged config, otherwise the first config.
// Must be called with mu held.
func (r *Registry) normalize(preferred string) {
	r.activeID = ""
	if len(r.configs) == 0 {
		return
	}

	switch {
	case preferred != "" && r.indexOf(preferred) >= 0:
		r.activeID = preferred
	default:
		for _, cfg := range r.configs {
			if cfg.IsActive {
				r.activeID = cfg.ID
				break
			}
		}
		if r.activeID == "" {
			r.activeID = r.configs[0].ID
		}
	}

	for i := range r.configs {
		r.configs[i].IsActive = r.configs[i].ID == r.activeID
	}
}

func (r *Registry) indexOf(id string) int {
	return slices.IndexFunc(r.configs, func(cfg models.ApiConfig) bool { return cfg.ID == id })
}

func (r *Registry) lookup(id string) (models.ApiConfig, bool) {
	if idx := r.indexOf(id); idx >= 0 {
		return cloneConfig(r.configs[idx]), true
	}
	return models.ApiConfig{}, false
}

func (r *Registry) persist(ctx context.Context) {
	if err := r.store.Save(context.WithoutCancel(ctx), StorageKey, r.configs); err != nil {
		slog.Error("error persisting api configs", "error", err)
	}
}

func cloneConfig(cfg models.ApiConfig) models.ApiConfig {
	if cfg.Headers != nil {
		headers := make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			headers[k] = v
		}
		cfg.Headers = headers
	}
	return cfg
}

func cloneConfigs(configs []models.ApiConfig) []models.ApiConfig {
	out := make([]models.ApiConfig, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, cloneConfig(cfg))
	}
	return out
}
