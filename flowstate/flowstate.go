// Package flowstate carries the authorization flow's correlation data between
// the authorize redirect and the identity provider callback. Nothing is kept
// server side: the state travels in a cookie as a signed JWT whose payload is
// encrypted, so the PKCE verifier is never readable by the browser.
package flowstate

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24

	minSecretLength = 32
)

var (
	ErrInvalid = errors.New("invalid flow state")
	ErrExpired = errors.New("flow state expired")
)

// FlowState is what the callback needs to finish a flow.
type FlowState struct {
	State        string `json:"state"`
	CodeVerifier string `json:"code_verifier"`
	Nonce        string `json:"nonce"`
	RedirectURI  string `json:"redirect_uri"`
	ClientID     string `json:"client_id"`
	Scope        string `json:"scope,omitempty"`

	// The client's own PKCE challenge for the token endpoint, if it sent one.
	ClientCodeChallenge       string `json:"client_code_challenge,omitempty"`
	ClientCodeChallengeMethod string `json:"client_code_challenge_method,omitempty"`

	ExpiresAt time.Time `json:"-"`
}

type claims struct {
	jwt.RegisteredClaims
	Sealed string `json:"flw"`
}

// Codec encodes and decodes FlowState values.
type Codec struct {
	signKey []byte
	sealKey [keySize]byte
	ttl     time.Duration
	nowTime func() time.Time
}

type CodecOption func(*Codec)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowTime = nowFunc
	}
}

// NewCodec derives separate signing and sealing keys from secret.
func NewCodec(secret []byte, ttl time.Duration, opts ...CodecOption) (*Codec, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("[flowstate.NewCodec] secret must be at least %d bytes", minSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("[flowstate.NewCodec] ttl must be positive")
	}
	c := &Codec{ttl: ttl, nowTime: time.Now}
	c.signKey = make([]byte, keySize)
	if err := deriveKey(secret, "flowstate-signing", c.signKey); err != nil {
		return nil, err
	}
	if err := deriveKey(secret, "flowstate-sealing", c.sealKey[:]); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func deriveKey(secret []byte, info string, out []byte) error {
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), out); err != nil {
		return fmt.Errorf("[flowstate] key derivation: %w", err)
	}
	return nil
}

// Encode returns the cookie value for fs and sets fs.ExpiresAt.
func (c *Codec) Encode(fs *FlowState) (string, error) {
	if fs == nil || fs.State == "" || fs.CodeVerifier == "" {
		return "", errors.New("[flowstate.Encode] state and verifier are required")
	}
	plaintext, err := json.Marshal(fs)
	if err != nil {
		return "", fmt.Errorf("[flowstate.Encode] %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("[flowstate.Encode] %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &c.sealKey)

	now := c.nowTime()
	fs.ExpiresAt = now.Add(c.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(fs.ExpiresAt),
		},
		Sealed: base64.RawURLEncoding.EncodeToString(sealed),
	})
	signed, err := token.SignedString(c.signKey)
	if err != nil {
		return "", fmt.Errorf("[flowstate.Encode] %w", err)
	}
	return signed, nil
}

// Decode verifies and opens a cookie value. It returns ErrExpired for an
// expired state and ErrInvalid for anything else that does not check out.
func (c *Codec) Decode(raw string) (*FlowState, error) {
	if raw == "" {
		return nil, ErrInvalid
	}
	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (interface{}, error) {
		return c.signKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowTime),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	sealed, err := base64.RawURLEncoding.DecodeString(cl.Sealed)
	if err != nil || len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrInvalid
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &c.sealKey)
	if !ok {
		return nil, ErrInvalid
	}
	var fs FlowState
	if err := json.Unmarshal(plaintext, &fs); err != nil {
		return nil, ErrInvalid
	}
	fs.ExpiresAt = cl.ExpiresAt.Time
	return &fs, nil
}
