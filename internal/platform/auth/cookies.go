package auth

import (
	"net/http"
	"strings"
	"time"
)

const (
	stateCookie    = "aigov_oidc_state"
	verifierCookie = "aigov_oidc_verifier"
	nonceCookie    = "aigov_oidc_nonce"
	returnToCookie = "aigov_return_to"
)

func tokenFromHeader(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func tokenFromCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func setShortCookie(w http.ResponseWriter, name string, value string, cfg Config) {
	setCookie(w, name, value, 10*time.Minute, cfg)
}

func setSessionCookies(w http.ResponseWriter, session Session, cfg Config) {
	setCookie(w, cfg.SessionCookieName, session.IDToken, cfg.SessionCookieMaxAge, cfg)
	if cfg.SessionRefresh && session.RefreshToken != "" {
		setCookie(w, cfg.RefreshCookieName, session.RefreshToken, cfg.RefreshCookieMaxAge, cfg)
	}
}

func clearCookie(w http.ResponseWriter, name string, cfg Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.SessionCookieSecure,
		SameSite: parseSameSite(cfg.SessionCookieSameSite),
	})
}

func setCookie(w http.ResponseWriter, name string, value string, ttl time.Duration, cfg Config) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.SessionCookieSecure,
		SameSite: parseSameSite(cfg.SessionCookieSameSite),
	})
}

// replaceRequestCookie rewrites the Cookie header of r so handlers further
// down the chain see a value set on the response during this request.
func replaceRequestCookie(r *http.Request, name string, value string) {
	cookies := r.Cookies()
	r.Header.Del("Cookie")
	replaced := false
	for _, c := range cookies {
		if c.Name == name {
			if replaced {
				continue
			}
			c.Value = value
			replaced = true
		}
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	if !replaced {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

func parseSameSite(raw string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
