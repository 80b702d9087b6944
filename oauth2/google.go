// Package oauth2 provides the Google social sign-in leg. It handles
// the redirect/callback dance and hands the fetched profile to a
// HandleUserFunc; the auth flow itself decides what a signed-in
// social user means.
package oauth2

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// HandleUserFunc receives the validated Google profile. userInfo holds
// the raw userinfo response (id, email, name, picture, verified_email).
type HandleUserFunc func(provider string, token *oauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request)

const stateCookieName = "oauthstate"

// GoogleOAuth2 drives the authorization-code flow against Google.
type GoogleOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string
	FailurePath  string
	HandleUser   HandleUserFunc
	oauthConfig  oauth2.Config
}

func NewGoogleOAuth2(clientId string, clientSecret string, callbackUrl string, handleUser HandleUserFunc) *GoogleOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}
	return &GoogleOAuth2{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		FailurePath:  "/signin",
		HandleUser:   handleUser,
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

// Configured reports whether real Google credentials are present.
func (g *GoogleOAuth2) Configured() bool {
	return g.ClientId != "" && g.ClientSecret != "" && g.CallbackURL != ""
}

// HandleRedirect starts the flow: sets the state cookie and sends the
// browser to Google's consent page.
func (g *GoogleOAuth2) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	state := generateStateOauthCookie(w)
	http.Redirect(w, r, g.oauthConfig.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback finishes the flow. State mismatch or exchange failure
// sends the browser back to FailurePath.
func (g *GoogleOAuth2) HandleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, _ := r.Cookie(stateCookieName)
	if oauthState == nil {
		log.Println("oauth state cookie missing")
		http.Redirect(w, r, g.FailurePath, http.StatusTemporaryRedirect)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		http.SetCookie(w, &http.Cookie{Name: stateCookieName, MaxAge: -1})
		log.Println("oauth state mismatch")
		http.Redirect(w, r, g.FailurePath, http.StatusTemporaryRedirect)
		return
	}

	token, err := g.oauthConfig.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		log.Println("code exchange failed: ", err)
		http.Redirect(w, r, g.FailurePath, http.StatusTemporaryRedirect)
		return
	}
	userInfo, err := fetchGoogleUserInfo(r.Context(), token)
	if err != nil {
		log.Println("fetching google profile failed: ", err)
		http.Redirect(w, r, g.FailurePath, http.StatusTemporaryRedirect)
		return
	}
	g.HandleUser("google", token, userInfo, w, r)
}

func generateStateOauthCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Println("Error generating rand: ", err)
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:    stateCookieName,
		Value:   state,
		Path:    "/",
		Expires: time.Now().Add(10 * time.Minute),
	})
	return state
}

func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo?access_token="
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL+token.AccessToken, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %s", err.Error())
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed read response: %s", err.Error())
	}
	var userInfo map[string]any
	if err := json.Unmarshal(data, &userInfo); err != nil {
		return nil, err
	}
	return userInfo, nil
}
