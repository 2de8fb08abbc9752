package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// SessionSource is the identity-provider side of session refresh.
type SessionSource interface {
	NeedsRefresh(ctx context.Context, rawIDToken string) bool
	Refresh(ctx context.Context, refreshToken string) (Session, error)
}

// SessionRefresher rotates an expired session using the refresh-token
// cookie. It is best effort: every failure is logged and the request
// continues unchanged, leaving the decision to the Gate.
type SessionRefresher struct {
	Logger  *slog.Logger
	Config  Config
	Source  SessionSource
	Timeout time.Duration
}

func (s *SessionRefresher) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, s.refresh(w, r))
	})
}

func (s *SessionRefresher) refresh(w http.ResponseWriter, r *http.Request) *http.Request {
	if s == nil || s.Source == nil || !s.Config.SessionRefresh {
		return r
	}
	if tokenFromHeader(r) != "" {
		return r
	}
	refreshToken := tokenFromCookie(r, s.Config.RefreshCookieName)
	if refreshToken == "" {
		return r
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	if !s.Source.NeedsRefresh(ctx, tokenFromCookie(r, s.Config.SessionCookieName)) {
		return r
	}

	session, err := s.Source.Refresh(ctx, refreshToken)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("session refresh failed",
				"request_id", r.Header.Get("X-Request-Id"),
				"path", r.URL.Path,
				"error", err.Error(),
			)
		}
		return r
	}

	setSessionCookies(w, session, s.Config)

	updated := r.Clone(r.Context())
	replaceRequestCookie(updated, s.Config.SessionCookieName, session.IDToken)
	if session.RefreshToken != "" {
		replaceRequestCookie(updated, s.Config.RefreshCookieName, session.RefreshToken)
	}
	if s.Logger != nil {
		s.Logger.Info("session refreshed", "request_id", r.Header.Get("X-Request-Id"))
	}
	return updated
}
