package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"imagechat/cmd"
	"imagechat/internal/api"
	"imagechat/internal/app"
	"imagechat/internal/storage"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type S3Config struct {
	Endpoint        string `env:"ENDPOINT"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Bucket          string `env:"BUCKET"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

type Config struct {
	Root string `env:"ROOT" envDefault:"./imagechat"`
	Port int    `env:"PORT" envDefault:"3001"`

	RemoteBaseURL string        `env:"REMOTE_BASE_URL" envDefault:"http://localhost:8000"`
	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"0s"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"file"`
	RedisURL    string `env:"REDIS_URL"`

	RabbitMQURL string `env:"RABBITMQ_URL"`

	ArchiveDir string   `env:"ARCHIVE_DIR"`
	ArchiveS3  S3Config `envPrefix:"ARCHIVE_S3_"`

	CatalogTTL     time.Duration `env:"CATALOG_TTL" envDefault:"10m"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5m"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
}

func (c Config) appOptions() app.Options {
	opts := app.Options{
		RemoteBaseURL: c.RemoteBaseURL,
		RemoteTimeout: c.RemoteTimeout,
		Store: storage.KVConfig{
			Driver:     storage.Driver(c.StoreDriver),
			Dir:        filepath.Join(c.Root, "data"),
			SQLitePath: filepath.Join(c.Root, "db", "imagechat.db"),
			RedisURL:   c.RedisURL,
		},
		RabbitMQURL: c.RabbitMQURL,
		ArchiveDir:  c.ArchiveDir,
		CatalogTTL:  c.CatalogTTL,
	}

	if c.ArchiveS3.Bucket != "" {
		opts.ArchiveS3 = &storage.S3ClientConfig{
			Endpoint:        c.ArchiveS3.Endpoint,
			Region:          c.ArchiveS3.Region,
			Bucket:          c.ArchiveS3.Bucket,
			AccessKeyID:     c.ArchiveS3.AccessKeyID,
			SecretAccessKey: c.ArchiveS3.SecretAccessKey,
		}
	}

	return opts
}

func createServer(a *app.App, port int, requestTimeout time.Duration) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	service := api.NewImageChatService(a)

	r.Route("/api/v1", func(r chi.Router) {
		service.AddRoutes(r)
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
}

func main() {
	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	f, err := cmd.SetupLogging(cfg.Root, "imagechat.log", cfg.LogLevel)
	if err != nil {
		log.Fatalf("error setting up logging: %v", err)
	}
	defer f.Close()

	slog.Info("starting imagechat", "root", cfg.Root, "port", cfg.Port, "remote", cfg.RemoteBaseURL, "store", cfg.StoreDriver)

	ctx := context.Background()

	a, err := app.New(ctx, cfg.appOptions())
	if err != nil {
		log.Fatalf("error initializing app: %v", err)
	}
	a.Init(ctx)

	server := createServer(a, cfg.Port, cfg.RequestTimeout)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	slog.Info("server started", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	if err := a.Close(); err != nil {
		slog.Error("error closing app", "error", err)
	}

	slog.Info("server stopped")
}
