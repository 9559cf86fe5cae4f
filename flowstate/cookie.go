package flowstate

import (
	"net/http"
	"time"
)

// CookieName is the cookie holding the encoded FlowState.
const CookieName = "auth_flow"

// SetCookie stores an encoded state. Secure is set when the request arrived
// over https.
func (c *Codec) SetCookie(w http.ResponseWriter, r *http.Request, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.ttl / time.Second),
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the flow state cookie.
func (c *Codec) ClearCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest decodes the flow state cookie on r. It returns ErrInvalid when
// there is none.
func (c *Codec) FromRequest(r *http.Request) (*FlowState, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrInvalid
	}
	return c.Decode(cookie.Value)
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
