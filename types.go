package identity

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Principal is an authenticated identity plus its granted authorities.
// Instances are treated as immutable once issued.
type Principal struct {
	Name  string
	Roles []string
}

// HasRole reports whether the principal carries the given authority.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Config holds the security settings consumed by the TokenProvider. The
// base64 secret is preferred; a raw ASCII secret is accepted but logged as
// lower security. Validity windows are expressed in seconds.
type Config interface {
	GetSigningSecret() string
	GetSigningSecretBase64() string
	GetTokenValidityInSeconds() int
	GetTokenValidityInSecondsForRememberMe() int
	GetIssuer() string
	GetAudience() []string
}

// IdentityProvider authenticates raw credentials into a Principal.
type IdentityProvider interface {
	Authenticate(ctx context.Context, username, password string) (*Principal, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
