package ayurauth

import (
	"net/http"
	"time"
)

// MarkerCookieName is the authentication marker the route guard reads.
// Its presence with a non-empty value is what gates protected routes;
// the edge layer does not inspect the token inside it.
const MarkerCookieName = "ayur-auth-token"

// MarkerMaxAge bounds the marker's lifetime.
const MarkerMaxAge = 3600 // seconds

// SetMarker writes the authentication marker cookie. Call it in the
// same response that establishes the identity so there is no window
// where the two disagree.
func SetMarker(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     MarkerCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   MarkerMaxAge,
		Expires:  time.Now().Add(MarkerMaxAge * time.Second),
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearMarker expires the marker cookie.
func ClearMarker(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    MarkerCookieName,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
}

// MarkerFromRequest returns the marker value, or "" when absent.
func MarkerFromRequest(r *http.Request) string {
	c, err := r.Cookie(MarkerCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// materializeSession is the session materializer: given a successful
// authentication outcome it writes the marker for the identity's
// token. The in-memory and session-store updates happen inside the
// Flow before this runs, within the same request.
func materializeSession(w http.ResponseWriter, user *UserIdentity) {
	token := user.Token
	if token == "" {
		// A trusted identity with no token still gets a marker; the
		// guard only checks presence.
		token = "session"
	}
	SetMarker(w, token)
}
