package ayurauth

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// AuthHandlers exposes the flow controller over HTTP. Bodies may be
// form-encoded or JSON; responses are JSON. Every error is an
// AuthError translated to a status code plus a title/description pair
// for display.
type AuthHandlers struct {
	Flow *Flow

	// RedirectParam is the query parameter carrying the post-signin
	// navigation target.
	RedirectParam string
}

func NewAuthHandlers(flow *Flow) *AuthHandlers {
	return &AuthHandlers{Flow: flow, RedirectParam: "redirect"}
}

// HandleSignin processes password sign-in requests.
func (h *AuthHandlers) HandleSignin(w http.ResponseWriter, r *http.Request) {
	form, err := parseAuthForm(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	user, signinErr := h.Flow.SignInWithPassword(r.Context(), form.Email, form.Password, ParseRole(form.UserType))
	if signinErr != nil {
		// An unverified attempt must leave no marker behind.
		ClearMarker(w)
		writeAuthError(w, AsAuthError(signinErr))
		return
	}

	materializeSession(w, user)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"user":     user,
		"redirect": h.redirectTarget(r),
	})
}

// HandleSocialSignin completes a social sign-in. In provider mode it
// is invoked by the OAuth callback with the provider's userinfo; in
// demo mode the signin page posts here directly.
func (h *AuthHandlers) HandleSocialSignin(userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
	user, err := h.Flow.SignInWithProvider(r.Context(), userInfo)
	if err != nil {
		ClearMarker(w)
		writeAuthError(w, AsAuthError(err))
		return
	}
	materializeSession(w, user)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"user":     user,
		"redirect": h.redirectTarget(r),
	})
}

// HandleSignup processes registrations. A successful signup never
// signs the account in; the caller moves to the verify step.
func (h *AuthHandlers) HandleSignup(w http.ResponseWriter, r *http.Request) {
	form, err := parseAuthForm(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	if signupErr := h.Flow.SignUpWithPassword(r.Context(), form.Email, form.Password, form.ConfirmPassword, ParseRole(form.UserType)); signupErr != nil {
		writeAuthError(w, AsAuthError(signupErr))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"needs_verification": true,
		"message":            "Account created. Please check your email for the verification code.",
	})
}

// HandleVerify submits the six-digit code for the pending
// registration.
func (h *AuthHandlers) HandleVerify(w http.ResponseWriter, r *http.Request) {
	form, err := parseAuthForm(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if form.Code == "" {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, "Verification code is required", "code"))
		return
	}

	user, verifyErr := h.Flow.Verify(r.Context(), form.Code)
	if verifyErr != nil {
		writeAuthError(w, AsAuthError(verifyErr))
		return
	}

	materializeSession(w, user)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"user":     user,
		"redirect": h.redirectTarget(r),
	})
}

// HandleResend reissues the verification code for the pending
// registration.
func (h *AuthHandlers) HandleResend(w http.ResponseWriter, r *http.Request) {
	if err := h.Flow.ResendCode(r.Context()); err != nil {
		writeAuthError(w, AsAuthError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "A new verification code is on its way.",
	})
}

// HandleLogout tears down the session. Safe to call signed out.
func (h *AuthHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Flow.Logout(r.Context()); err != nil {
		writeAuthError(w, AsAuthError(err))
		return
	}
	ClearMarker(w)

	if to := r.URL.Query().Get("to"); to != "" {
		http.Redirect(w, r, to, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleSession reports the current flow state for the calling
// session. The signin page uses this to decide what to render.
func (h *AuthHandlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Flow.Start(r.Context()); err != nil {
		writeAuthError(w, AsAuthError(err))
		return
	}
	user := h.Flow.Current(r.Context())
	resp := map[string]any{
		"state":         h.Flow.State(r.Context()).String(),
		"authenticated": user != nil,
	}
	if user != nil {
		resp["user"] = user
		materializeSession(w, user)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandlers) redirectTarget(r *http.Request) string {
	param := h.RedirectParam
	if param == "" {
		param = "redirect"
	}
	if target := r.URL.Query().Get(param); target != "" && strings.HasPrefix(target, "/") {
		return target
	}
	return h.Flow.DefaultLanding
}

// authForm is the union of fields the auth endpoints accept.
type authForm struct {
	Email           string
	Password        string
	ConfirmPassword string
	UserType        string
	Code            string
}

func parseAuthForm(r *http.Request) (*authForm, *AuthError) {
	contentType := r.Header.Get("Content-Type")
	out := &authForm{}

	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, NewAuthError(ErrCodeMissingField, "Error parsing form", "")
		}
		out.Email = r.FormValue("email")
		out.Password = r.FormValue("password")
		out.ConfirmPassword = r.FormValue("confirm_password")
		out.UserType = r.FormValue("user_type")
		out.Code = r.FormValue("code")
		return out, nil
	}

	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
		return nil, NewAuthError(ErrCodeMissingField, "Invalid post body", "")
	}
	out.Email, _ = data["email"].(string)
	out.Password, _ = data["password"].(string)
	out.ConfirmPassword, _ = data["confirm_password"].(string)
	out.UserType, _ = data["user_type"].(string)
	out.Code, _ = data["code"].(string)
	return out, nil
}

func writeAuthError(w http.ResponseWriter, err *AuthError) {
	writeJSON(w, ErrorStatusCode(err.Code), map[string]any{
		"error":       err.Description,
		"code":        err.Code,
		"field":       err.Field,
		"title":       err.Title,
		"description": err.Description,
	})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Println("error encoding response: ", err)
	}
}
