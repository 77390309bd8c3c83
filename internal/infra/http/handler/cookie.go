package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/planforge/api/internal/config"
)

// CookieConfig carries the attributes for the auth cookies. Refresh tokens
// live in an httpOnly cookie so scripts can never read them; the access
// token cookie only ever gets cleared, for clients that still hold one.
type CookieConfig struct {
	Secure                 bool
	Domain                 string
	SameSite               http.SameSite
	Path                   string
	AccessTokenCookieName  string
	RefreshTokenCookieName string
}

// NewCookieConfig derives cookie attributes from the auth configuration.
func NewCookieConfig(cfg config.AuthConfig) CookieConfig {
	sameSite := http.SameSiteLaxMode
	switch strings.ToLower(cfg.CookieSameSite) {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}

	accessName := cfg.AccessTokenCookieName
	if accessName == "" {
		accessName = "auth_token"
	}
	refreshName := cfg.RefreshTokenCookieName
	if refreshName == "" {
		refreshName = "refresh_token"
	}

	return CookieConfig{
		Secure:                 cfg.CookieSecure,
		Domain:                 cfg.CookieDomain,
		SameSite:               sameSite,
		Path:                   "/", // root path so the frontend can clear cookies
		AccessTokenCookieName:  accessName,
		RefreshTokenCookieName: refreshName,
	}
}

func (c CookieConfig) write(w http.ResponseWriter, name, value string, expiresAt time.Time, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  expiresAt,
		MaxAge:   maxAge,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: c.SameSite,
	})
}

// SetRefreshToken stores the refresh token in its httpOnly cookie.
func (c CookieConfig) SetRefreshToken(w http.ResponseWriter, token string, expiresAt time.Time) {
	c.write(w, c.RefreshTokenCookieName, token, expiresAt, int(time.Until(expiresAt).Seconds()))
}

// ClearRefreshToken expires the refresh token cookie.
func (c CookieConfig) ClearRefreshToken(w http.ResponseWriter) {
	c.write(w, c.RefreshTokenCookieName, "", time.Unix(0, 0), -1)
}

// ClearAccessToken expires the access token cookie.
func (c CookieConfig) ClearAccessToken(w http.ResponseWriter) {
	c.write(w, c.AccessTokenCookieName, "", time.Unix(0, 0), -1)
}

// RefreshTokenFrom reads the refresh token cookie, or "" when absent.
func (c CookieConfig) RefreshTokenFrom(r *http.Request) string {
	cookie, err := r.Cookie(c.RefreshTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
