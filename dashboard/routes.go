package main

import (
	"log/slog"
	"net/http"

	"github.com/animus-labs/aigov-dashboard/internal/artifacts"
	"github.com/animus-labs/aigov-dashboard/internal/config"
	"github.com/animus-labs/aigov-dashboard/internal/platform/auth"
	"github.com/animus-labs/aigov-dashboard/internal/platform/httpserver"
	"github.com/animus-labs/aigov-dashboard/internal/repo"
)

type serverDeps struct {
	logger *slog.Logger
	cfg    config.Config
	runs   repo.RunRepository
	issuer *artifacts.Issuer
	authn  auth.Authenticator
	oidc   *auth.OIDCService // nil outside AUTH_MODE=oidc
	ready  []httpserver.ReadinessCheck
}

func newHandler(d serverDeps) (http.Handler, error) {
	render, err := newRenderer(d.logger)
	if err != nil {
		return nil, err
	}

	apiGate := auth.Gate{Logger: d.logger, Authenticator: d.authn, Deny: auth.DenyJSON}.Wrap
	pageGate := auth.Gate{Logger: d.logger, Authenticator: d.authn, Deny: auth.DenyRedirect("/login")}.Wrap

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", httpserver.Healthz(config.ServiceName))
	mux.HandleFunc("GET /readyz", httpserver.ReadyzWithChecks(config.ServiceName, d.ready...))

	signInPath, err := registerAuthRoutes(mux, d)
	if err != nil {
		return nil, err
	}

	api := &dashboardAPI{
		logger:       d.logger,
		runs:         d.runs,
		issuer:       d.issuer,
		listLimit:    d.cfg.Artifacts.ListLimit,
		queryTimeout: d.cfg.Database.QueryTimeout,
	}
	api.register(mux, apiGate)

	pages := &dashboardPages{
		logger:       d.logger,
		render:       render,
		runs:         d.runs,
		issuer:       d.issuer,
		listLimit:    d.cfg.Artifacts.ListLimit,
		queryTimeout: d.cfg.Database.QueryTimeout,
		signInPath:   signInPath,
	}
	pages.register(mux, pageGate)

	var extra []httpserver.Middleware
	if d.oidc != nil {
		extra = append(extra, d.oidc.Refresher(d.logger).Wrap)
	}
	return httpserver.Wrap(d.logger, config.ServiceName, mux, extra...), nil
}

// registerAuthRoutes mounts the /auth endpoints and returns the path that
// starts an interactive login, or "" when there is none.
func registerAuthRoutes(mux *http.ServeMux, d serverDeps) (string, error) {
	mux.HandleFunc("GET /auth/session", auth.SessionHandler(d.authn))

	if d.oidc == nil {
		mux.HandleFunc("GET /auth/logout", auth.LogoutHandler(d.cfg.Auth))
		return "", nil
	}
	mux.HandleFunc("GET /auth/logout", d.oidc.LogoutHandler())

	if err := d.cfg.Auth.ValidateForLogin(); err != nil {
		d.logger.Warn("interactive login disabled", "error", err)
		notConfigured := func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotImplemented)
			_, _ = w.Write([]byte("{\"ok\":false,\"error\":\"auth_error\",\"message\":\"Login is not configured.\"}\n"))
		}
		mux.HandleFunc("GET /auth/login", notConfigured)
		mux.HandleFunc("GET /auth/callback", notConfigured)
		return "", nil
	}

	login, err := d.oidc.LoginHandler()
	if err != nil {
		return "", err
	}
	callback, err := d.oidc.CallbackHandler()
	if err != nil {
		return "", err
	}
	mux.HandleFunc("GET /auth/login", login)
	mux.HandleFunc("GET /auth/callback", callback)
	return "/auth/login", nil
}
