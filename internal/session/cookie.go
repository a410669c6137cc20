package session

import (
	"net/http"
)

const CookieName = "xfeed_session"

// CookieOptions controls the attributes of the session cookie. The zero
// value yields Path=/, HttpOnly and SameSite=Lax.
type CookieOptions struct {
	Path     string
	Domain   string
	Secure   bool // set in production; browsers drop Secure cookies over plain http
	SameSite http.SameSite
}

func (o CookieOptions) cookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}

// SetCookie hands the session id to the browser for IdleTimeout. It is
// reissued on every touch so the browser-side lifetime slides with the
// store-side one.
func SetCookie(w http.ResponseWriter, sessionID string, opts CookieOptions) {
	http.SetCookie(w, opts.cookie(sessionID, int(IdleTimeout.Seconds())))
}

// ClearCookie tells the browser to drop the session cookie.
func ClearCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, opts.cookie("", -1))
}

// IDFromRequest returns the session id carried by the request cookie, or "".
func IDFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
