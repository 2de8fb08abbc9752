package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/animus-labs/aigov-dashboard/internal/platform/env"
)

type Mode string

const (
	ModeOIDC Mode = "oidc"
	ModeDev  Mode = "dev"
)

// ErrUnauthenticated means the request carries no credential at all. Any
// other error from an Authenticator comes from the identity provider.
var ErrUnauthenticated = errors.New("unauthenticated")

type Config struct {
	Mode Mode `yaml:"mode"`

	EmailClaim string `yaml:"email_claim"`
	NameClaim  string `yaml:"name_claim"`

	SessionCookieName     string        `yaml:"session_cookie_name"`
	SessionCookieSecure   bool          `yaml:"session_cookie_secure"`
	SessionCookieMaxAge   time.Duration `yaml:"session_cookie_max_age"`
	SessionCookieSameSite string        `yaml:"session_cookie_samesite"`

	SessionRefresh      bool          `yaml:"session_refresh"`
	RefreshCookieName   string        `yaml:"refresh_cookie_name"`
	RefreshCookieMaxAge time.Duration `yaml:"refresh_cookie_max_age"`

	OIDCIssuerURL    string   `yaml:"oidc_issuer_url"`
	OIDCClientID     string   `yaml:"oidc_client_id"`
	OIDCClientSecret string   `yaml:"oidc_client_secret"`
	OIDCRedirectURL  string   `yaml:"oidc_redirect_url"`
	OIDCScopes       []string `yaml:"oidc_scopes"`

	DevSubject string `yaml:"dev_subject"`
	DevEmail   string `yaml:"dev_email"`
}

func DefaultConfig() Config {
	return Config{
		Mode:                  ModeOIDC,
		EmailClaim:            "email",
		NameClaim:             "name",
		SessionCookieName:     "aigov_session",
		SessionCookieSecure:   true,
		SessionCookieMaxAge:   time.Hour,
		SessionCookieSameSite: "Lax",
		SessionRefresh:        true,
		RefreshCookieName:     "aigov_refresh",
		RefreshCookieMaxAge:   30 * 24 * time.Hour,
		OIDCScopes:            []string{"openid", "profile", "email"},
		DevSubject:            "dev-user",
		DevEmail:              "dev-user@example.local",
	}
}

func ConfigFromEnv() (Config, error) {
	def := DefaultConfig()

	mode, err := ParseMode(env.String("AUTH_MODE", string(def.Mode)))
	if err != nil {
		return Config{}, err
	}
	sessionCookieSecure, err := env.Bool("AUTH_SESSION_COOKIE_SECURE", def.SessionCookieSecure)
	if err != nil {
		return Config{}, err
	}
	sessionMaxAge, err := env.Seconds("AUTH_SESSION_MAX_AGE_SECONDS", def.SessionCookieMaxAge)
	if err != nil {
		return Config{}, err
	}
	sessionRefresh, err := env.Bool("AUTH_SESSION_REFRESH", def.SessionRefresh)
	if err != nil {
		return Config{}, err
	}
	refreshMaxAge, err := env.Seconds("AUTH_REFRESH_MAX_AGE_SECONDS", def.RefreshCookieMaxAge)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Mode:                  mode,
		EmailClaim:            env.String("AUTH_EMAIL_CLAIM", def.EmailClaim),
		NameClaim:             env.String("AUTH_NAME_CLAIM", def.NameClaim),
		SessionCookieName:     env.String("AUTH_SESSION_COOKIE_NAME", def.SessionCookieName),
		SessionCookieSecure:   sessionCookieSecure,
		SessionCookieMaxAge:   sessionMaxAge,
		SessionCookieSameSite: env.String("AUTH_SESSION_COOKIE_SAMESITE", def.SessionCookieSameSite),
		SessionRefresh:        sessionRefresh,
		RefreshCookieName:     env.String("AUTH_REFRESH_COOKIE_NAME", def.RefreshCookieName),
		RefreshCookieMaxAge:   refreshMaxAge,
		OIDCIssuerURL:         env.String("OIDC_ISSUER_URL", ""),
		OIDCClientID:          env.String("OIDC_CLIENT_ID", ""),
		OIDCClientSecret:      env.String("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:       env.String("OIDC_REDIRECT_URL", ""),
		OIDCScopes:            env.Fields("OIDC_SCOPES", def.OIDCScopes),
		DevSubject:            env.String("DEV_AUTH_SUBJECT", def.DevSubject),
		DevEmail:              env.String("DEV_AUTH_EMAIL", def.DevEmail),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeOIDC:
		return ModeOIDC, nil
	case ModeDev:
		return ModeDev, nil
	default:
		return "", fmt.Errorf("AUTH_MODE must be one of: oidc, dev (got %q)", raw)
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.EmailClaim) == "" {
		return errors.New("AUTH_EMAIL_CLAIM is required")
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return errors.New("AUTH_SESSION_COOKIE_NAME is required")
	}
	if c.SessionCookieMaxAge <= 0 {
		return errors.New("AUTH_SESSION_MAX_AGE_SECONDS must be positive")
	}
	if strings.TrimSpace(c.SessionCookieSameSite) == "" {
		return errors.New("AUTH_SESSION_COOKIE_SAMESITE is required")
	}
	if c.SessionRefresh {
		if strings.TrimSpace(c.RefreshCookieName) == "" {
			return errors.New("AUTH_REFRESH_COOKIE_NAME is required when AUTH_SESSION_REFRESH=true")
		}
		if c.RefreshCookieName == c.SessionCookieName {
			return errors.New("AUTH_REFRESH_COOKIE_NAME must differ from AUTH_SESSION_COOKIE_NAME")
		}
		if c.RefreshCookieMaxAge <= 0 {
			return errors.New("AUTH_REFRESH_MAX_AGE_SECONDS must be positive")
		}
	}

	switch c.Mode {
	case ModeOIDC:
		if strings.TrimSpace(c.OIDCIssuerURL) == "" {
			return errors.New("OIDC_ISSUER_URL is required when AUTH_MODE=oidc")
		}
		if strings.TrimSpace(c.OIDCClientID) == "" {
			return errors.New("OIDC_CLIENT_ID is required when AUTH_MODE=oidc")
		}
	case ModeDev:
		if strings.TrimSpace(c.DevSubject) == "" {
			return errors.New("DEV_AUTH_SUBJECT is required when AUTH_MODE=dev")
		}
	default:
		return fmt.Errorf("unsupported auth mode: %q", c.Mode)
	}
	return nil
}

func (c Config) ValidateForLogin() error {
	if c.Mode != ModeOIDC {
		return fmt.Errorf("login requires AUTH_MODE=oidc (got %q)", c.Mode)
	}
	if strings.TrimSpace(c.OIDCClientSecret) == "" {
		return errors.New("OIDC_CLIENT_SECRET is required for login endpoints")
	}
	if strings.TrimSpace(c.OIDCRedirectURL) == "" {
		return errors.New("OIDC_REDIRECT_URL is required for login endpoints")
	}
	return nil
}
