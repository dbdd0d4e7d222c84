package identity

import (
	"context"
)

// Authenticator converts raw credentials into a signed credential: it
// authenticates through the configured IdentityProvider and hands the
// resulting principal to the TokenProvider.
type Authenticator struct {
	provider IdentityProvider
	tokens   *TokenProvider
	logger   Logger
}

// NewAuthenticator wires an identity provider to a token provider.
func NewAuthenticator(provider IdentityProvider, tokens *TokenProvider, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		provider: provider,
		tokens:   tokens,
		logger:   defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// AuthenticatorOption customizes an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithAuthenticatorLogger sets the logger.
func WithAuthenticatorLogger(logger Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// TokenProvider returns the provider used to sign credentials.
func (a *Authenticator) TokenProvider() *TokenProvider {
	return a.tokens
}

// Login authenticates the credentials and issues a signed token. The
// rememberMe flag selects the extended validity window.
func (a *Authenticator) Login(ctx context.Context, username, password string, rememberMe bool) (string, error) {
	principal, err := a.provider.Authenticate(ctx, username, password)
	if err != nil {
		a.logger.Error("Login authenticate error", "username", username, "error", err)
		return "", err
	}

	token, err := a.tokens.CreateToken(principal, rememberMe)
	if err != nil {
		a.logger.Error("Login token issuance error", "username", username, "error", err)
		return "", err
	}

	a.logger.Debug("Login issued token", "username", username, "remember_me", rememberMe)
	return token, nil
}
