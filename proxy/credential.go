package proxy

import (
	"net/http"
	"strings"
)

// Source is where a request carried its credential.
type Source int

const (
	SourceNone Source = iota
	SourceAuthorization
	SourceHeader
	SourceQuery
)

func (s Source) String() string {
	switch s {
	case SourceAuthorization:
		return "authorization"
	case SourceHeader:
		return "header"
	case SourceQuery:
		return "query"
	}
	return "none"
}

// Credential is the raw bearer value a caller presented.
type Credential struct {
	Value  string
	Source Source
}

// ExtractCredential takes the first present credential in order: an
// Authorization bearer token, the custom header, then the query parameter.
// Sources are never merged.
func ExtractCredential(r *http.Request, header, queryParam string) (Credential, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return Credential{Value: token, Source: SourceAuthorization}, true
	}
	if header != "" {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			return Credential{Value: v, Source: SourceHeader}, true
		}
	}
	if queryParam != "" {
		if v := strings.TrimSpace(r.URL.Query().Get(queryParam)); v != "" {
			return Credential{Value: v, Source: SourceQuery}, true
		}
	}
	return Credential{}, false
}

// bearerToken parses "Bearer <token>" with a case-insensitive scheme.
func bearerToken(authorization string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(authorization), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
