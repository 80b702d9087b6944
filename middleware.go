package ayurauth

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RouteGuard enforces the authentication marker on a configured set of
// protected path prefixes. The check is presence-only: the marker's
// contents are not validated here unless a VerifyToken hook is
// installed.
type RouteGuard struct {
	// ProtectedPrefixes lists the path prefixes that require a marker.
	ProtectedPrefixes []string

	// SigninPath is where unauthenticated requests are redirected.
	SigninPath string

	// RedirectParam carries the original path on the redirect.
	RedirectParam string

	// VerifyToken, when set, additionally validates the marker value
	// (e.g. as a JWT). A failing token is treated the same as an
	// absent one.
	VerifyToken func(token string) error
}

// DefaultProtectedPrefixes are the app's guarded sections.
func DefaultProtectedPrefixes() []string {
	return []string{"/dashboard", "/profile", "/settings", "/tracking"}
}

// EnsureReasonableDefaults fills in zero-value config.
func (g *RouteGuard) EnsureReasonableDefaults() {
	if len(g.ProtectedPrefixes) == 0 {
		g.ProtectedPrefixes = DefaultProtectedPrefixes()
	}
	if g.SigninPath == "" {
		g.SigninPath = "/signin"
	}
	if g.RedirectParam == "" {
		g.RedirectParam = "redirect"
	}
}

// Protected reports whether path falls under a guarded prefix.
func (g *RouteGuard) Protected(path string) bool {
	for _, prefix := range g.ProtectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Handler is the edge-level enforcement point: every request under a
// protected prefix must carry a non-empty marker or it is redirected
// to sign-in with the original path as the return target.
func (g *RouteGuard) Handler(next http.Handler) http.Handler {
	g.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Protected(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		token := MarkerFromRequest(r)
		if token == "" {
			g.redirectToSignin(w, r)
			return
		}
		if g.VerifyToken != nil {
			if err := g.VerifyToken(token); err != nil {
				g.redirectToSignin(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession is the view-level enforcement point: it resolves the
// flow's state and redirects Anonymous principals with the same
// return-path convention the edge check uses.
func (g *RouteGuard) RequireSession(flow *Flow, next http.Handler) http.Handler {
	g.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := flow.Start(r.Context()); err != nil {
			http.Error(w, "session check failed", http.StatusInternalServerError)
			return
		}
		if flow.Current(r.Context()) == nil {
			g.redirectToSignin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *RouteGuard) redirectToSignin(w http.ResponseWriter, r *http.Request) {
	encoded := strings.Replace(url.QueryEscape(r.URL.Path), "+", "%20", -1)
	target := fmt.Sprintf("%s?%s=%s", g.SigninPath, g.RedirectParam, encoded)
	http.Redirect(w, r, target, http.StatusFound)
}
