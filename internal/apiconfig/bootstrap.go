package apiconfig

import (
	"context"
	"log/slog"

	"imagechat/internal/storage"
	"imagechat/pkg/models"

	"github.com/google/uuid"
)

// tier is one step of the startup fallback chain. It reports false when the
// next tier should be tried.
type tier struct {
	name string
	load func(ctx context.Context) ([]models.ApiConfig, bool)
}

// Init loads the configs from the first tier that can provide them: the
// remote service, then the locally persisted list, then a built-in default.
func (r *Registry) Init(ctx context.Context) {
	tiers := []tier{
		{name: "remote", load: r.loadRemote},
		{name: "local", load: r.loadLocal},
		{name: "default", load: r.loadDefault},
	}

	for _, t := range tiers {
		configs, ok := t.load(ctx)
		if !ok {
			continue
		}

		r.mu.Lock()
		r.configs = cloneConfigs(configs)
		r.normalize("")
		r.mu.Unlock()

		slog.Info("api configs loaded", "source", t.name, "count", len(configs))
		return
	}
}

func (r *Registry) loadRemote(ctx context.Context) ([]models.ApiConfig, bool) {
	configs, err := r.remote.ListConfigs(ctx)
	if err != nil {
		slog.Warn("unable to load api configs from service", "error", err)
		return nil, false
	}

	if len(configs) == 0 {
		slog.Info("service has no api configs, creating defaults")
		r.Add(ctx, doubaoDefault(true))
		r.Add(ctx, qwenDefault())
		return r.GetAll(), true
	}

	r.mu.Lock()
	r.configs = cloneConfigs(configs)
	r.normalize("")
	r.persist(ctx)
	r.mu.Unlock()

	return configs, true
}

func (r *Registry) loadLocal(ctx context.Context) ([]models.ApiConfig, bool) {
	configs, ok := storage.Load[[]models.ApiConfig](ctx, r.store, StorageKey)
	if !ok || len(configs) == 0 {
		return nil, false
	}
	return configs, true
}

func (r *Registry) loadDefault(ctx context.Context) ([]models.ApiConfig, bool) {
	cfg := doubaoDefault(true).WithID(uuid.NewString())
	cfg.Headers = nil

	configs := []models.ApiConfig{cfg}
	if err := r.store.Save(ctx, StorageKey, configs); err != nil {
		slog.Error("error persisting default api config", "error", err)
	}
	return configs, true
}
