package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/animus-labs/aigov-dashboard/internal/artifacts"
	"github.com/animus-labs/aigov-dashboard/internal/config"
	"github.com/animus-labs/aigov-dashboard/internal/platform/auth"
	"github.com/animus-labs/aigov-dashboard/internal/platform/httpserver"
	platformstore "github.com/animus-labs/aigov-dashboard/internal/platform/objectstore"
	"github.com/animus-labs/aigov-dashboard/internal/platform/postgres"
	repopg "github.com/animus-labs/aigov-dashboard/internal/repo/postgres"
	"github.com/animus-labs/aigov-dashboard/internal/storage/objectstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnvOrFile()
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	store, err := objectstore.NewMinioStore(cfg.ObjectStore)
	if err != nil {
		logger.Error("object store init failed", "error", err)
		os.Exit(2)
	}

	var authenticator auth.Authenticator
	var oidcService *auth.OIDCService
	switch cfg.Auth.Mode {
	case auth.ModeDev:
		logger.Warn("dev auth enabled; every request is signed in", "subject", cfg.Auth.DevSubject)
		authenticator = auth.NewDevAuthenticator(cfg.Auth)
	case auth.ModeOIDC:
		svc, err := auth.NewOIDCService(ctx, cfg.Auth)
		if err != nil {
			logger.Error("oidc init failed", "error", err)
			os.Exit(1)
		}
		oidcService = svc
		authenticator = svc
	default:
		logger.Error("unsupported auth mode", "mode", cfg.Auth.Mode)
		os.Exit(2)
	}

	locator := artifacts.NewLocator(os.DirFS(cfg.Artifacts.LocalRoot), store, cfg.Buckets())
	issuer := artifacts.NewIssuer(locator, cfg.Artifacts.SignedURLTTL)

	handler, err := newHandler(serverDeps{
		logger: logger,
		cfg:    cfg,
		runs:   repopg.NewRunStore(db),
		issuer: issuer,
		authn:  authenticator,
		oidc:   oidcService,
		ready: []httpserver.ReadinessCheck{
			{
				Name: "postgres",
				Check: func(ctx context.Context) error {
					return postgres.Ping(ctx, db, 750*time.Millisecond)
				},
			},
			{
				Name: "object_store",
				Check: httpserver.WithTimeout(2*time.Second, func(ctx context.Context) error {
					return platformstore.CheckBuckets(ctx, store.Client(), cfg.ObjectStore)
				}),
			},
		},
	})
	if err != nil {
		logger.Error("handler init failed", "error", err)
		os.Exit(2)
	}

	logger.Info("artifacts configured",
		"local_root", cfg.Artifacts.LocalRoot,
		"object_store", cfg.ObjectStore.Endpoint,
		"signed_url_ttl", cfg.Artifacts.SignedURLTTL.String(),
	)

	if err := httpserver.Run(ctx, logger, cfg.HTTP, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
