package ayurauth_test

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"

	oa "github.com/ayursutra/ayurauth"
	"github.com/ayursutra/ayurauth/stores"
)

// setupSharedServer builds one server the way main does: a single Flow
// shared by every client, with per-browser state held in scs sessions.
func setupSharedServer(t *testing.T) (*httptest.Server, *captureSender) {
	t.Helper()
	sender := newCaptureSender()
	manager := scs.New()
	sessions := stores.NewSCSSessionStore(manager)
	backend := oa.NewDemoBackend(stores.NewMemoryAccountStore(), sessions, "")
	flow := oa.NewFlow(backend, oa.NewLocalCodeChannel(stores.NewMemoryCodeStore(), sender), sessions)
	handlers := oa.NewAuthHandlers(flow)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/signup", handlers.HandleSignup)
	mux.HandleFunc("/auth/verify", handlers.HandleVerify)
	mux.HandleFunc("/auth/logout", handlers.HandleLogout)
	mux.HandleFunc("/auth/session", handlers.HandleSession)
	srv := httptest.NewServer(manager.LoadAndSave(mux))
	t.Cleanup(srv.Close)
	return srv, sender
}

// browser returns a client with its own cookie jar, so each one
// carries its own scs session like a separate browser would.
func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func browserPostForm(t *testing.T, c *http.Client, target string, form map[string]string) map[string]any {
	t.Helper()
	values := url.Values{}
	for k, v := range form {
		values.Set(k, v)
	}
	resp, err := c.Post(target, "application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
	if err != nil {
		t.Fatalf("POST %s: %v", target, err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

func browserSession(t *testing.T, c *http.Client, base string) (map[string]any, *http.Response) {
	t.Helper()
	resp, err := c.Get(base + "/auth/session")
	if err != nil {
		t.Fatalf("GET /auth/session: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding session: %v", err)
	}
	return body, resp
}

func TestSessionsAreIsolatedAcrossBrowsers(t *testing.T) {
	srv, sender := setupSharedServer(t)

	alice := browser(t)
	browserPostForm(t, alice, srv.URL+"/auth/signup", map[string]string{
		"email":            "alice@example.com",
		"password":         "secret123",
		"confirm_password": "secret123",
		"user_type":        "therapist",
	})
	browserPostForm(t, alice, srv.URL+"/auth/verify", map[string]string{
		"code": sender.lastCode("alice@example.com"),
	})
	body, _ := browserSession(t, alice, srv.URL)
	if body["authenticated"] != true {
		t.Fatalf("alice session = %v, want authenticated", body)
	}

	// A second browser with no cookies must see nothing of alice.
	stranger := browser(t)
	body, resp := browserSession(t, stranger, srv.URL)
	if body["authenticated"] != false {
		t.Errorf("fresh browser session = %v, want unauthenticated", body)
	}
	if body["state"] != "anonymous" {
		t.Errorf("fresh browser state = %v, want anonymous", body["state"])
	}
	if _, ok := body["user"]; ok {
		t.Errorf("fresh browser received a user identity: %v", body["user"])
	}
	for _, c := range resp.Cookies() {
		if c.Name == oa.MarkerCookieName && c.Value != "" {
			t.Errorf("fresh browser received an auth marker: %q", c.Value)
		}
	}

	// Alice is still signed in afterwards, and her logout does not
	// depend on any state outside her own session.
	body, _ = browserSession(t, alice, srv.URL)
	if body["authenticated"] != true {
		t.Errorf("alice session after stranger visit = %v, want authenticated", body)
	}
}

func TestConcurrentSigninsKeepDistinctIdentities(t *testing.T) {
	srv, sender := setupSharedServer(t)

	clients := map[string]*http.Client{
		"alice@example.com": browser(t),
		"bob@example.com":   browser(t),
	}
	for email, c := range clients {
		browserPostForm(t, c, srv.URL+"/auth/signup", map[string]string{
			"email":            email,
			"password":         "secret123",
			"confirm_password": "secret123",
		})
		browserPostForm(t, c, srv.URL+"/auth/verify", map[string]string{
			"code": sender.lastCode(email),
		})
	}

	for email, c := range clients {
		body, _ := browserSession(t, c, srv.URL)
		user, _ := body["user"].(map[string]any)
		if user == nil || user["email"] != email {
			t.Errorf("session user = %v, want %s", body["user"], email)
		}
	}
}
