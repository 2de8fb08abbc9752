package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Denial describes why the gate refused a request.
type Denial struct {
	Status int
	// Reason is "unauthorized" when no credential was presented and
	// "auth_error" when the identity provider rejected one.
	Reason  string
	Message string
	Err     error
}

// DenyFunc renders a refused request. API routes answer with JSON, pages
// redirect to the login view.
type DenyFunc func(w http.ResponseWriter, r *http.Request, d Denial)

// Gate is the hard authentication check. No handler behind it runs
// without an identity in the request context.
type Gate struct {
	Logger        *slog.Logger
	Authenticator Authenticator
	Deny          DenyFunc
}

func (g Gate) Wrap(next http.Handler) http.Handler {
	deny := g.Deny
	if deny == nil {
		deny = DenyJSON
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Authenticator == nil {
			g.logDeny(r, Denial{Status: http.StatusUnauthorized, Reason: "auth_error", Err: errors.New("no authenticator configured")})
			deny(w, r, Denial{Status: http.StatusUnauthorized, Reason: "auth_error", Message: "Authentication is not configured."})
			return
		}

		identity, err := g.Authenticator.Authenticate(r.Context(), r)
		if err == nil && strings.TrimSpace(identity.Subject) == "" {
			err = errors.New("identity has no subject")
		}
		if err != nil {
			d := denialFor(err)
			g.logDeny(r, d)
			deny(w, r, d)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	})
}

func (g Gate) WrapFunc(next http.HandlerFunc) http.Handler {
	return g.Wrap(next)
}

func denialFor(err error) Denial {
	if errors.Is(err, ErrUnauthenticated) {
		return Denial{
			Status:  http.StatusUnauthorized,
			Reason:  "unauthorized",
			Message: "Not signed in.",
			Err:     err,
		}
	}
	msg := "Identity provider rejected the session."
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		msg = "Identity provider unavailable."
	} else if err != nil && strings.TrimSpace(err.Error()) != "" {
		msg = err.Error()
	}
	return Denial{
		Status:  http.StatusUnauthorized,
		Reason:  "auth_error",
		Message: msg,
		Err:     err,
	}
}

func (g Gate) logDeny(r *http.Request, d Denial) {
	if g.Logger == nil {
		return
	}
	fields := []any{
		"reason", d.Reason,
		"status", d.Status,
		"request_id", r.Header.Get("X-Request-Id"),
		"method", r.Method,
		"path", r.URL.Path,
	}
	if d.Err != nil {
		fields = append(fields, "error", d.Err.Error())
	}
	if d.Reason == "auth_error" {
		g.Logger.Warn("auth deny", fields...)
		return
	}
	g.Logger.Info("auth deny", fields...)
}

// DenyJSON writes {ok:false, error, message}.
func DenyJSON(w http.ResponseWriter, r *http.Request, d Denial) {
	writeDenyJSON(w, d)
}

func writeDenyJSON(w http.ResponseWriter, d Denial) {
	status := d.Status
	if status == 0 {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, map[string]any{
		"ok":      false,
		"error":   d.Reason,
		"message": d.Message,
	})
}

// DenyRedirect sends page requests to loginPath, remembering where the
// user was headed.
func DenyRedirect(loginPath string) DenyFunc {
	return func(w http.ResponseWriter, r *http.Request, d Denial) {
		target := url.URL{Path: loginPath}
		q := target.Query()
		q.Set("next", r.URL.RequestURI())
		if d.Reason == "auth_error" {
			q.Set("message", d.Message)
		}
		target.RawQuery = q.Encode()
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, target.String(), http.StatusFound)
	}
}
