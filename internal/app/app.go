package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/team3/messenger-server/internal/config"
	"github.com/team3/messenger-server/internal/core"
	"github.com/team3/messenger-server/internal/meta"
	"github.com/team3/messenger-server/internal/service/chats"
	"github.com/team3/messenger-server/internal/service/users"
	"github.com/team3/messenger-server/internal/storage/s3"
	"github.com/team3/messenger-server/internal/store"
	"github.com/team3/messenger-server/internal/store/sqlite"
	transporthttp "github.com/team3/messenger-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// ImageStore matches the upload interface of both service packages.
type ImageStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	images, err := newImageStore(cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	hub := core.NewHub(logger)
	extractor := meta.New(cfg.MetaTimeout)

	userSvc := users.New(st, images)
	chatSvc := chats.New(st, hub, extractor, images, logger)

	server := transporthttp.NewServer(hub, userSvc, chatSvc, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

// newImageStore connects to object storage, or returns a placeholder that
// rejects uploads when no endpoint is configured. Generated avatars do not
// need object storage, so the server stays usable without it.
func newImageStore(cfg *config.Config, logger *zerolog.Logger) (ImageStore, error) {
	if cfg.Storage.Endpoint == "" {
		logger.Warn().Msg("object storage not configured, avatar uploads disabled")
		return uploadsDisabled{}, nil
	}

	storage, err := s3.New(s3.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := storage.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	return storage, nil
}

type uploadsDisabled struct{}

func (uploadsDisabled) Upload(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("object storage is not configured")
}
