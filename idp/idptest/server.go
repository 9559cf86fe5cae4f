// Package idptest runs a minimal OpenID Connect provider over httptest for
// exercising the real discovery, token exchange, ID token verification and
// userinfo code paths.
package idptest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	ClientID     = "bridge-at-idp"
	ClientSecret = "bridge-secret"
	keyID        = "test-key-1"
)

// User is the account the provider signs in.
type User struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified *bool
}

type pendingCode struct {
	challenge   string
	nonce       string
	redirectURI string
	user        User
}

type Server struct {
	*httptest.Server

	key      *rsa.PrivateKey
	rogueKey *rsa.PrivateKey

	lock          sync.Mutex
	user          User
	codes         map[string]pendingCode
	accessTokens  map[string]User
	tokenCalls    int
	userInfoCalls int
	signWithRogue bool
	omitIDToken   bool
	userInfoSub   string
}

// NewServer starts a provider signing in user. It is closed with the test.
func NewServer(t *testing.T, user User) *Server {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	rogue, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	s := &Server{
		key:          key,
		rogueKey:     rogue,
		user:         user,
		codes:        make(map[string]pendingCode),
		accessTokens: make(map[string]User),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", s.discovery)
	mux.HandleFunc("GET /authorize", s.authorize)
	mux.HandleFunc("POST /token", s.token)
	mux.HandleFunc("GET /userinfo", s.userInfo)
	mux.HandleFunc("GET /jwks", s.jwks)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// SetUser changes who signs in next.
func (s *Server) SetUser(user User) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.user = user
}

// SignWithRogueKey makes ID tokens carry a signature the published JWKS cannot verify.
func (s *Server) SignWithRogueKey() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.signWithRogue = true
}

// OmitIDToken stops the token endpoint from issuing ID tokens.
func (s *Server) OmitIDToken() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.omitIDToken = true
}

// OverrideUserInfoSubject makes userinfo report a different subject.
func (s *Server) OverrideUserInfoSubject(sub string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.userInfoSub = sub
}

func (s *Server) TokenCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.tokenCalls
}

func (s *Server) UserInfoCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.userInfoCalls
}

// IssueCode registers a code as if the user had just signed in.
func (s *Server) IssueCode(codeChallenge, nonce, redirectURI string) string {
	s.lock.Lock()
	defer s.lock.Unlock()
	code := randomHex()
	s.codes[code] = pendingCode{
		challenge:   codeChallenge,
		nonce:       nonce,
		redirectURI: redirectURI,
		user:        s.user,
	}
	return code
}

func (s *Server) discovery(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                s.URL,
		"authorization_endpoint":                s.URL + "/authorize",
		"token_endpoint":                        s.URL + "/token",
		"userinfo_endpoint":                     s.URL + "/userinfo",
		"jwks_uri":                              s.URL + "/jwks",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

// authorize signs the configured user in immediately and redirects back.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("client_id") != ClientID || q.Get("code_challenge_method") != "S256" {
		http.Error(w, "bad authorization request", http.StatusBadRequest)
		return
	}
	redirectURI := q.Get("redirect_uri")
	code := s.IssueCode(q.Get("code_challenge"), q.Get("nonce"), redirectURI)

	u, err := url.Parse(redirectURI)
	if err != nil {
		http.Error(w, "bad redirect_uri", http.StatusBadRequest)
		return
	}
	values := u.Query()
	values.Set("code", code)
	values.Set("state", q.Get("state"))
	u.RawQuery = values.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tokenCalls++

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		clientID, clientSecret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}
	if clientID != ClientID || clientSecret != ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}

	code := r.PostForm.Get("code")
	pending, found := s.codes[code]
	delete(s.codes, code)
	if !found || r.PostForm.Get("grant_type") != "authorization_code" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "secret upstream detail"})
		return
	}
	sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != pending.challenge {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "pkce"})
		return
	}
	if pending.redirectURI != "" && r.PostForm.Get("redirect_uri") != pending.redirectURI {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "redirect_uri"})
		return
	}

	accessToken := randomHex()
	s.accessTokens[accessToken] = pending.user
	resp := map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	if !s.omitIDToken {
		idToken, err := s.signIDToken(pending)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
			return
		}
		resp["id_token"] = idToken
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) signIDToken(pending pendingCode) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   s.URL,
		"sub":   pending.user.Subject,
		"aud":   ClientID,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"email": pending.user.Email,
		"name":  pending.user.Name,
	}
	if pending.nonce != "" {
		claims["nonce"] = pending.nonce
	}
	if pending.user.EmailVerified != nil {
		claims["email_verified"] = *pending.user.EmailVerified
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID
	key := s.key
	if s.signWithRogue {
		key = s.rogueKey
	}
	return token.SignedString(key)
}

func (s *Server) userInfo(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.userInfoCalls++

	accessToken, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	user, found := s.accessTokens[accessToken]
	if !ok || !found {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	sub := user.Subject
	if s.userInfoSub != "" {
		sub = s.userInfoSub
	}
	body := map[string]any{
		"sub":   sub,
		"email": user.Email,
		"name":  user.Name,
	}
	if user.EmailVerified != nil {
		body["email_verified"] = *user.EmailVerified
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) jwks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &s.key.PublicKey,
		KeyID:     keyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func randomHex() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
