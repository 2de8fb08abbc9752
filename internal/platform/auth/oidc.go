package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// DefaultReturnTo is where a completed login lands when no safe next path
// was requested.
const DefaultReturnTo = "/runs"

// Session is the credential pair kept in cookies after login.
type Session struct {
	IDToken      string
	RefreshToken string
}

type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

type OIDCService struct {
	cfg          Config
	verifier     idTokenVerifier
	oauth2Config oauth2.Config
}

func NewOIDCService(ctx context.Context, cfg Config) (*OIDCService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode != ModeOIDC {
		return nil, fmt.Errorf("auth mode must be oidc (got %q)", cfg.Mode)
	}

	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID})
	return newOIDCService(cfg, verifier, provider.Endpoint()), nil
}

func newOIDCService(cfg Config, verifier idTokenVerifier, endpoint oauth2.Endpoint) *OIDCService {
	scopes := append([]string(nil), cfg.OIDCScopes...)
	if cfg.SessionRefresh && !containsScope(scopes, oidc.ScopeOfflineAccess) {
		scopes = append(scopes, oidc.ScopeOfflineAccess)
	}
	return &OIDCService{
		cfg:      cfg,
		verifier: verifier,
		oauth2Config: oauth2.Config{
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.OIDCRedirectURL,
			Scopes:       scopes,
		},
	}
}

func (s *OIDCService) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	rawToken := tokenFromHeader(r)
	if rawToken == "" {
		rawToken = tokenFromCookie(r, s.cfg.SessionCookieName)
	}
	if rawToken == "" {
		return Identity{}, ErrUnauthenticated
	}

	idToken, err := s.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Identity{}, err
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("decode claims: %w", err)
	}

	return Identity{
		Subject: idToken.Subject,
		Email:   extractStringClaim(claims, s.cfg.EmailClaim),
		Name:    extractStringClaim(claims, s.cfg.NameClaim),
	}, nil
}

// NeedsRefresh reports whether the session token is absent or expired. A
// token failing verification for any other reason is not refreshed; the
// gate reports it as an identity-provider error.
func (s *OIDCService) NeedsRefresh(ctx context.Context, rawIDToken string) bool {
	if strings.TrimSpace(rawIDToken) == "" {
		return true
	}
	_, err := s.verifier.Verify(ctx, rawIDToken)
	if err == nil {
		return false
	}
	var expired *oidc.TokenExpiredError
	return errors.As(err, &expired)
}

func (s *OIDCService) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	token, err := s.oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return Session{}, fmt.Errorf("refresh token exchange: %w", err)
	}
	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return Session{}, errors.New("refresh response carried no id_token")
	}
	session := Session{IDToken: rawIDToken, RefreshToken: token.RefreshToken}
	if session.RefreshToken == "" {
		session.RefreshToken = refreshToken
	}
	return session, nil
}

// Refresher returns the fail-open session refresh middleware for this
// provider.
func (s *OIDCService) Refresher(logger *slog.Logger) *SessionRefresher {
	return &SessionRefresher{Logger: logger, Config: s.cfg, Source: s}
}

func (s *OIDCService) LoginHandler() (http.HandlerFunc, error) {
	if err := s.cfg.ValidateForLogin(); err != nil {
		return nil, err
	}

	return func(w http.ResponseWriter, r *http.Request) {
		returnTo := safeReturnTo(r.URL.Query().Get("next"))

		state, err := randomBase64URL(32)
		if err != nil {
			redirectToLogin(w, r, "login_failed")
			return
		}
		verifier, err := randomBase64URL(32)
		if err != nil {
			redirectToLogin(w, r, "login_failed")
			return
		}
		nonce, err := randomBase64URL(32)
		if err != nil {
			redirectToLogin(w, r, "login_failed")
			return
		}

		setShortCookie(w, stateCookie, state, s.cfg)
		setShortCookie(w, verifierCookie, verifier, s.cfg)
		setShortCookie(w, nonceCookie, nonce, s.cfg)
		setShortCookie(w, returnToCookie, returnTo, s.cfg)

		access := oauth2.AccessTypeOnline
		if s.cfg.SessionRefresh {
			access = oauth2.AccessTypeOffline
		}
		redirectURL := s.oauth2Config.AuthCodeURL(
			state,
			access,
			oauth2.S256ChallengeOption(verifier),
			oauth2.SetAuthURLParam("nonce", nonce),
		)
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}, nil
}

func (s *OIDCService) CallbackHandler() (http.HandlerFunc, error) {
	if err := s.cfg.ValidateForLogin(); err != nil {
		return nil, err
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if providerErr := strings.TrimSpace(r.URL.Query().Get("error")); providerErr != "" {
			redirectToLogin(w, r, "provider:"+providerErr)
			return
		}
		stateQuery := r.URL.Query().Get("state")
		code := r.URL.Query().Get("code")
		if stateQuery == "" || code == "" {
			redirectToLogin(w, r, "Missing OAuth code.")
			return
		}

		stateValue := tokenFromCookie(r, stateCookie)
		if stateValue == "" || stateValue != stateQuery {
			redirectToLogin(w, r, "invalid_state")
			return
		}

		codeVerifier := tokenFromCookie(r, verifierCookie)
		nonceValue := tokenFromCookie(r, nonceCookie)
		returnTo := safeReturnTo(tokenFromCookie(r, returnToCookie))
		if codeVerifier == "" || nonceValue == "" {
			redirectToLogin(w, r, "missing_pkce_or_nonce")
			return
		}

		exchangeCtx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		token, err := s.oauth2Config.Exchange(exchangeCtx, code, oauth2.VerifierOption(codeVerifier))
		if err != nil {
			redirectToLogin(w, r, "exchange:token_exchange_failed")
			return
		}

		rawIDToken, ok := token.Extra("id_token").(string)
		if !ok || rawIDToken == "" {
			redirectToLogin(w, r, "exchange:missing_id_token")
			return
		}

		idToken, err := s.verifier.Verify(exchangeCtx, rawIDToken)
		if err != nil {
			redirectToLogin(w, r, "exchange:invalid_id_token")
			return
		}
		if idToken.Nonce == "" || idToken.Nonce != nonceValue {
			redirectToLogin(w, r, "exchange:invalid_nonce")
			return
		}

		setSessionCookies(w, Session{IDToken: rawIDToken, RefreshToken: token.RefreshToken}, s.cfg)
		clearCookie(w, stateCookie, s.cfg)
		clearCookie(w, verifierCookie, s.cfg)
		clearCookie(w, nonceCookie, s.cfg)
		clearCookie(w, returnToCookie, s.cfg)

		http.Redirect(w, r, returnTo, http.StatusFound)
	}, nil
}

func (s *OIDCService) LogoutHandler() http.HandlerFunc {
	return LogoutHandler(s.cfg)
}

// LogoutHandler clears the session cookies and returns to the login page.
func LogoutHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clearCookie(w, cfg.SessionCookieName, cfg)
		if cfg.SessionRefresh {
			clearCookie(w, cfg.RefreshCookieName, cfg)
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	}
}

// SessionHandler reports the current identity as JSON.
func SessionHandler(authn Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := authn.Authenticate(r.Context(), r)
		if err != nil {
			writeDenyJSON(w, denialFor(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":   true,
			"user": identity,
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, message string) {
	target := url.URL{Path: "/login"}
	q := target.Query()
	q.Set("message", message)
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func randomBase64URL(nBytes int) (string, error) {
	if nBytes <= 0 {
		return "", errors.New("nBytes must be positive")
	}
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// safeReturnTo only accepts local absolute paths, keeping the query string.
func safeReturnTo(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultReturnTo
	}
	u, err := url.Parse(raw)
	if err != nil {
		return DefaultReturnTo
	}
	if u.IsAbs() || u.Host != "" {
		return DefaultReturnTo
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") || strings.HasPrefix(u.Path, "/\\") {
		return DefaultReturnTo
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

func containsScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func extractStringClaim(claims map[string]any, key string) string {
	v, ok := claims[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}
