// Package identity turns the credential carried by a request into the
// caller's user record.
//
// A credential is the base64 encoding of an email address. Anything that does
// not decode to a syntactically valid address is anonymous, which is not an
// error.
package identity

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/rah-0/orbit/internal/models"
)

// UserFinder is the part of the user store the resolver needs
type UserFinder interface {
	FindOrCreateUser(ctx context.Context, email string) (*models.User, error)
}

// Resolver resolves credentials against a user store
type Resolver struct {
	users UserFinder
}

func NewResolver(users UserFinder) *Resolver {
	return &Resolver{users: users}
}

// Resolve returns the user for credential, or nil for an anonymous caller.
// Only store failures are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, credential string) (*models.User, error) {
	email, ok := DecodeToken(credential)
	if !ok {
		return nil, nil
	}

	user, err := r.users.FindOrCreateUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("resolving identity: %w", err)
	}
	return user, nil
}

// EncodeToken returns the credential for email
func EncodeToken(email string) string {
	return base64.StdEncoding.EncodeToString([]byte(email))
}

// DecodeToken decodes a credential and reports whether it carries a valid
// email address. Padding is optional.
func DecodeToken(credential string) (string, bool) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(credential)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(credential)
		if err != nil {
			return "", false
		}
	}

	email := string(decoded)
	if !utf8.ValidString(email) || !ValidEmail(email) {
		return "", false
	}
	return email, true
}

// ValidEmail reports whether s is a bare address such as "a@b.com", with no
// display name or angle brackets and a dotted domain.
func ValidEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
