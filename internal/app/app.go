package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/shopdesk-server/internal/auth"
	"github.com/vovakirdan/shopdesk-server/internal/config"
	"github.com/vovakirdan/shopdesk-server/internal/core"
	"github.com/vovakirdan/shopdesk-server/internal/log"
	"github.com/vovakirdan/shopdesk-server/internal/media"
	"github.com/vovakirdan/shopdesk-server/internal/service/accounts"
	"github.com/vovakirdan/shopdesk-server/internal/service/carts"
	"github.com/vovakirdan/shopdesk-server/internal/service/catalog"
	"github.com/vovakirdan/shopdesk-server/internal/service/chat"
	"github.com/vovakirdan/shopdesk-server/internal/service/notifications"
	"github.com/vovakirdan/shopdesk-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/shopdesk-server/internal/transport/http"
)

// App wires together store, services and transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           *sqlite.SQLiteStore
	accounts        *accounts.Service
	log             *zerolog.Logger
}

// New constructs the application. The store keeps reconnecting in the
// background until ctx is cancelled, so a database outage at startup is not fatal.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st := sqlite.Open(ctx, cfg.DatabasePath, cfg.StoreRetryInterval, log.Component(logger, "store"))

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	created, err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	switch {
	case err != nil:
		logger.Warn().Err(err).Str("username", cfg.AdminUsername).Msg("failed to seed admin account")
	case created:
		logger.Info().Str("username", cfg.AdminUsername).Msg("admin account created")
	}

	storage, err := media.NewStorage(cfg.UploadDir, cfg.PublicBaseURL, cfg.MaxUploadBytes)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init media storage: %w", err)
	}

	hubLog := log.Component(logger, "hub")
	svcLog := log.Component(logger, "service")
	hub := core.NewHub(hubLog)
	accountService := accounts.New(st, hub, svcLog)

	server := transporthttp.NewServer(transporthttp.Services{
		Hub:           hub,
		Auth:          authService,
		Chat:          chat.New(st, st, hub, svcLog),
		Notifications: notifications.New(st, hub, svcLog),
		Carts:         carts.New(st, hub, svcLog),
		Accounts:      accountService,
		Catalog:       catalog.New(st, svcLog),
		Media:         storage,
		Store:         st,
	}, cfg, log.Component(logger, "http"))

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		accounts:        accountService,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.Close()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.Close()
			return err
		}

		a.Close()
		return <-serverErr
	}
}

// PurgeOrphanCarts removes carts whose owner no longer exists.
func (a *App) PurgeOrphanCarts(ctx context.Context) ([]string, error) {
	return a.accounts.PurgeOrphanCarts(ctx)
}

// Close releases the store.
func (a *App) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	} else {
		a.log.Info().Msg("store closed")
	}
}
