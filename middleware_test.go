package ayurauth_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	oa "github.com/ayursutra/ayurauth"
)

func TestRouteGuardEdgeCheck(t *testing.T) {
	guard := &oa.RouteGuard{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := guard.Handler(next)

	tests := []struct {
		name         string
		path         string
		marker       string
		wantStatus   int
		wantLocation string
	}{
		{
			name:         "protected without marker",
			path:         "/dashboard",
			wantStatus:   http.StatusFound,
			wantLocation: "/signin?redirect=%2Fdashboard",
		},
		{
			name:         "protected subpath without marker",
			path:         "/tracking/progress",
			wantStatus:   http.StatusFound,
			wantLocation: "/signin?redirect=%2Ftracking%2Fprogress",
		},
		{
			name:       "protected with marker",
			path:       "/profile",
			marker:     "some-token",
			wantStatus: http.StatusOK,
		},
		{
			name:       "public path without marker",
			path:       "/about",
			wantStatus: http.StatusOK,
		},
		{
			name:       "signin page without marker",
			path:       "/signin",
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.marker != "" {
				req.AddCookie(&http.Cookie{Name: oa.MarkerCookieName, Value: tt.marker})
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantLocation != "" {
				if got := rr.Header().Get("Location"); got != tt.wantLocation {
					t.Errorf("redirect = %q, want %q", got, tt.wantLocation)
				}
			}
		})
	}
}

func TestRouteGuardVerifyTokenHook(t *testing.T) {
	guard := &oa.RouteGuard{
		VerifyToken: func(token string) error {
			if token != "good" {
				return fmt.Errorf("bad token")
			}
			return nil
		},
	}
	handler := guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.AddCookie(&http.Cookie{Name: oa.MarkerCookieName, Value: "forged"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusFound {
		t.Errorf("rejected token status = %d, want redirect", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.AddCookie(&http.Cookie{Name: oa.MarkerCookieName, Value: "good"})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("accepted token status = %d, want 200", rr.Code)
	}
}

func TestRequireSession(t *testing.T) {
	fx := setupDemoFlow(t)
	guard := &oa.RouteGuard{}
	handler := guard.RequireSession(fx.flow, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusFound {
		t.Fatalf("anonymous status = %d, want redirect", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/signin?redirect=%2Fdashboard" {
		t.Errorf("redirect = %q", got)
	}

	signupAndVerify(t, fx, "greta@example.com", "secret123", oa.RolePatient)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", rr.Code)
	}
}

func TestDefaultProtectedPrefixes(t *testing.T) {
	guard := &oa.RouteGuard{}
	guard.EnsureReasonableDefaults()

	protected := []string{"/dashboard", "/dashboard/today", "/profile", "/settings/security", "/tracking"}
	for _, path := range protected {
		if !guard.Protected(path) {
			t.Errorf("%s not protected", path)
		}
	}
	public := []string{"/", "/signin", "/signup", "/verify-email", "/api/auth/session"}
	for _, path := range public {
		if guard.Protected(path) {
			t.Errorf("%s unexpectedly protected", path)
		}
	}
}
