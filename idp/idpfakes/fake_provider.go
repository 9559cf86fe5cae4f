package idpfakes

import (
	"context"
	"net/url"
	"sync"

	"github.com/jrsteele09/go-auth-bridge/idp"
)

var _ idp.Provider = (*FakeProvider)(nil)

// FakeProvider is an in-memory identity provider that records its calls.
type FakeProvider struct {
	AuthURL     string
	Tokens      idp.Tokens
	User        idp.Identity
	ExchangeErr error
	IdentityErr error

	lock          sync.Mutex
	exchangeCalls int
	identityCalls int
	lastCode      string
	lastVerifier  string
	lastNonce     string
}

func NewFakeProvider(user idp.Identity) *FakeProvider {
	return &FakeProvider{
		AuthURL: "https://idp.example.com/authorize",
		Tokens: idp.Tokens{
			AccessToken: "idp-access-token",
			IDToken:     "idp-id-token",
			TokenType:   "Bearer",
		},
		User: user,
	}
}

func (f *FakeProvider) AuthCodeURL(state, codeChallenge, nonce string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("state", state)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")
	q.Set("nonce", nonce)
	return f.AuthURL + "?" + q.Encode()
}

func (f *FakeProvider) Exchange(_ context.Context, code, codeVerifier string) (*idp.Tokens, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.exchangeCalls++
	f.lastCode = code
	f.lastVerifier = codeVerifier
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	tokens := f.Tokens
	return &tokens, nil
}

func (f *FakeProvider) Identity(_ context.Context, _ *idp.Tokens, nonce string) (*idp.Identity, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.identityCalls++
	f.lastNonce = nonce
	if f.IdentityErr != nil {
		return nil, f.IdentityErr
	}
	user := f.User
	return &user, nil
}

func (f *FakeProvider) ExchangeCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.exchangeCalls
}

func (f *FakeProvider) IdentityCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.identityCalls
}

// LastExchange returns the code and verifier of the most recent Exchange.
func (f *FakeProvider) LastExchange() (code, verifier string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.lastCode, f.lastVerifier
}

func (f *FakeProvider) LastNonce() string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.lastNonce
}
