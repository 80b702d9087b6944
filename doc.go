// Package ayurauth implements the authentication and email-verification
// flow for the AyurSutra wellness-booking app.
//
// The flow is a small state machine over one principal at a time:
//
//	Anonymous --> AwaitingVerification --> Authenticated
//
// Sign-up creates an account but immediately signs it back out; the
// principal must confirm a six-digit emailed code before any session
// exists. Sign-in with a valid password but an unverified email is
// reversed the same way, so a half-authenticated session never
// survives a request.
//
// # Dual mode
//
// Every operation runs against one of two IdentityBackend
// implementations, chosen once at startup:
//
//   - RESTBackend talks to the hosted identity provider's accounts API.
//   - DemoBackend simulates the provider locally (SQLite accounts,
//     console-delivered codes) for development without credentials.
//
// Both produce identical state transitions and error categories; only
// the mechanism differs. The same applies to the CodeChannel pair:
// RemoteCodeChannel calls the verification endpoint service (package
// codesvc), LocalCodeChannel keeps codes in a CodeStore.
//
// # Wiring
//
//	accounts := stores.NewMemoryAccountStore()
//	sessions := stores.NewMemorySessionStore()
//	backend := ayurauth.NewDemoBackend(accounts, sessions, "")
//	codes := ayurauth.NewLocalCodeChannel(stores.NewMemoryCodeStore(), nil)
//	flow := ayurauth.NewFlow(backend, codes, sessions)
//	handlers := ayurauth.NewAuthHandlers(flow)
//
//	mux.Handle("POST /auth/signin", http.HandlerFunc(handlers.HandleSignin))
//	mux.Handle("POST /auth/signup", http.HandlerFunc(handlers.HandleSignup))
//	mux.Handle("POST /auth/verify", http.HandlerFunc(handlers.HandleVerify))
//	mux.Handle("POST /auth/resend", http.HandlerFunc(handlers.HandleResend))
//	mux.Handle("POST /auth/logout", http.HandlerFunc(handlers.HandleLogout))
//
// Protected sections of the site sit behind RouteGuard, which checks
// the ayur-auth-token marker cookie and redirects unauthenticated
// requests to /signin with the original path in the redirect query
// parameter.
//
// # Security
//
// The marker cookie is a routing signal, not a credential: the edge
// check only requires presence. Demo-mode passwords are bcrypt-hashed;
// verification codes are crypto/rand generated, single-use, and expire
// after ten minutes with lazy expiry at validation time.
package ayurauth
