package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"imagechat/internal/apiconfig"
	"imagechat/internal/chat"
	"imagechat/internal/client"
	"imagechat/internal/generation"
	"imagechat/internal/messaging"
	"imagechat/internal/storage"

	"github.com/jonboulle/clockwork"
)

type Options struct {
	RemoteBaseURL string
	RemoteTimeout time.Duration

	Store storage.KVConfig

	// RabbitMQURL enables publishing generation events to RabbitMQ.
	RabbitMQURL string

	// ArchiveDir or ArchiveS3 enable copying generated images.
	ArchiveDir string
	ArchiveS3  *storage.S3ClientConfig

	CatalogTTL time.Duration
	Clock      clockwork.Clock
}

// App wires the stores, the remote client and the orchestrator together.
type App struct {
	Client       *client.Client
	Configs      *apiconfig.Registry
	Sessions     *chat.SessionStore
	Orchestrator *chat.Orchestrator
	Draft        *generation.InputDraft
	Catalog      *generation.TypeCatalog
	Events       *messaging.InMemoryQueue
	Archive      *storage.ImageArchive

	store     *storage.JSONStore
	publisher messaging.Publisher
}

func New(ctx context.Context, opts Options) (*App, error) {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	kv, err := storage.NewKVStore(ctx, opts.Store)
	if err != nil {
		return nil, fmt.Errorf("error opening %s store: %w", opts.Store.Driver, err)
	}
	store := storage.NewJSONStore(kv)

	events := messaging.NewInMemoryQueue()
	publishers := messaging.Publishers{events}
	if opts.RabbitMQURL != "" {
		rabbit, err := messaging.NewRabbitMQPublisher(opts.RabbitMQURL)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("error connecting to rabbitmq: %w", err)
		}
		publishers = append(publishers, rabbit)
	}

	archive, err := newArchive(ctx, opts)
	if err != nil {
		publishers.Close()
		_ = store.Close()
		return nil, err
	}

	remote := client.New(opts.RemoteBaseURL, opts.RemoteTimeout)
	configs := apiconfig.NewRegistry(remote, store)
	sessions := chat.NewSessionStore(store, clock)

	orchestratorOpts := chat.OrchestratorOptions{
		Sessions:  sessions,
		Configs:   configs,
		Remote:    remote,
		Publisher: publishers,
		Clock:     clock,
	}
	if archive != nil {
		orchestratorOpts.Archive = archive
	}

	return &App{
		Client:       remote,
		Configs:      configs,
		Sessions:     sessions,
		Orchestrator: chat.NewOrchestrator(orchestratorOpts),
		Draft:        generation.NewInputDraft(),
		Catalog:      generation.NewTypeCatalog(remote, clock, opts.CatalogTTL),
		Events:       events,
		Archive:      archive,
		store:        store,
		publisher:    publishers,
	}, nil
}

func newArchive(ctx context.Context, opts Options) (*storage.ImageArchive, error) {
	switch {
	case opts.ArchiveS3 != nil && opts.ArchiveS3.Bucket != "":
		objectStore, err := storage.NewS3ObjectStore(ctx, *opts.ArchiveS3)
		if err != nil {
			return nil, fmt.Errorf("error initializing s3 archive: %w", err)
		}
		slog.Info("archiving generated images to s3", "bucket", opts.ArchiveS3.Bucket)
		return storage.NewImageArchive(objectStore), nil
	case opts.ArchiveDir != "":
		objectStore, err := storage.NewLocalObjectStore(filepath.Clean(opts.ArchiveDir))
		if err != nil {
			return nil, fmt.Errorf("error initializing local archive: %w", err)
		}
		slog.Info("archiving generated images locally", "dir", opts.ArchiveDir)
		return storage.NewImageArchive(objectStore), nil
	default:
		return nil, nil
	}
}

// Init loads configs and sessions. It never fails: each store falls back to
// defaults when neither the service nor local state is usable.
func (a *App) Init(ctx context.Context) {
	a.Configs.Init(ctx)
	a.Sessions.Init(ctx)
}

// Submit generates from the current draft with the active config. The draft
// is cleared only when the generation succeeds and it was not edited while
// the generation ran.
func (a *App) Submit(ctx context.Context) (chat.Outcome, error) {
	draft := a.Draft.Snapshot()
	outcome, err := a.Orchestrator.Generate(ctx, draft.Prompt, draft.Parameters, "")
	if err != nil || outcome.Skipped {
		return outcome, err
	}
	if !a.Draft.ClearIfUnchanged(draft.Revision) {
		slog.Info("draft edited during generation, keeping it")
	}
	return outcome, nil
}

// DeleteSession removes a session along with any archived images.
func (a *App) DeleteSession(ctx context.Context, id string) error {
	if err := a.Sessions.DeleteSession(ctx, id); err != nil {
		return err
	}
	if a.Archive != nil {
		if err := a.Archive.Remove(ctx, id); err != nil {
			slog.Warn("error removing archived images", "session_id", id, "error", err)
		}
	}
	return nil
}

func (a *App) Close() error {
	a.Orchestrator.Close()
	a.publisher.Close()
	return a.store.Close()
}
