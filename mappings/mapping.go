// Package mappings holds the identity to backend credential table. Entries are
// written by administrators out of band and only read by the sign-in flow.
package mappings

import (
	"fmt"
	"strings"
	"time"
)

type Mapping struct {
	Email      string    `json:"email" yaml:"email"`
	Credential string    `json:"credential" yaml:"credential"`
	Note       string    `json:"note,omitempty" yaml:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"-"`
}

// NormalizeEmail is the canonical form used as the mapping key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the mapping can be stored.
func (m *Mapping) Validate() error {
	email := NormalizeEmail(m.Email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", m.Email)
	}
	if strings.TrimSpace(m.Credential) == "" {
		return fmt.Errorf("credential for %s is empty", email)
	}
	return nil
}

// MaskCredential hides all but the edges of a credential for display.
func MaskCredential(credential string) string {
	if len(credential) <= 8 {
		return strings.Repeat("*", len(credential))
	}
	return credential[:4] + "..." + credential[len(credential)-4:]
}
