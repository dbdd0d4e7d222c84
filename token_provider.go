package identity

import (
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenProvider issues and verifies compact signed tokens carrying a
// subject and an aggregated authority claim. It is stateless after
// construction and safe for unlimited concurrent use.
type TokenProvider struct {
	signingKey              []byte
	tokenValidity           time.Duration
	tokenValidityRememberMe time.Duration
	issuer                  string
	audience                jwt.ClaimStrings
	logger                  Logger
	timeFunc                func() time.Time
}

// TokenProviderOption customizes a TokenProvider.
type TokenProviderOption func(*TokenProvider)

// WithLogger sets the provider logger.
func WithLogger(logger Logger) TokenProviderOption {
	return func(p *TokenProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTimeFunc overrides the wall clock used for issuance and expiry
// checks. Intended for tests.
func WithTimeFunc(fn func() time.Time) TokenProviderOption {
	return func(p *TokenProvider) {
		if fn != nil {
			p.timeFunc = fn
		}
	}
}

// NewTokenProvider resolves the signing key from cfg and returns a ready
// provider. Exactly one key is active at a time: a raw secret is used
// as-is and logged as lower security, a base64 secret is decoded first.
// Missing both is a configuration error, fatal at startup.
func NewTokenProvider(cfg Config, opts ...TokenProviderOption) (*TokenProvider, error) {
	p := &TokenProvider{
		tokenValidity:           time.Duration(cfg.GetTokenValidityInSeconds()) * time.Second,
		tokenValidityRememberMe: time.Duration(cfg.GetTokenValidityInSecondsForRememberMe()) * time.Second,
		issuer:                  cfg.GetIssuer(),
		audience:                jwt.ClaimStrings(cfg.GetAudience()),
		logger:                  defLogger{},
		timeFunc:                time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	key, err := resolveSigningKey(cfg, p.logger)
	if err != nil {
		return nil, err
	}
	p.signingKey = key

	return p, nil
}

func resolveSigningKey(cfg Config, logger Logger) ([]byte, error) {
	if secret := cfg.GetSigningSecret(); secret != "" {
		logger.Warn("the JWT key used is not Base64-encoded; prefer the base64 secret setting for optimum security")
		return []byte(secret), nil
	}

	encoded := cfg.GetSigningSecretBase64()
	if encoded == "" {
		return nil, ErrSigningKeyMissing
	}

	logger.Debug("using a Base64-encoded JWT secret key")
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "JWT base64 secret is not valid base64").
			WithTextCode(TextCodeSigningKeyMissing)
	}
	return key, nil
}

// CreateToken signs the principal into a token. The expiry window depends
// on rememberMe; both windows come from configuration.
func (p *TokenProvider) CreateToken(principal *Principal, rememberMe bool) (string, error) {
	if principal == nil {
		return "", errors.New("principal must not be nil", errors.CategoryBadInput)
	}

	validity := p.tokenValidity
	if rememberMe {
		validity = p.tokenValidityRememberMe
	}

	now := p.timeFunc()
	claims := NewAuthorityClaims(principal.Name, principal.Roles)
	claims.Issuer = p.issuer
	claims.Audience = p.audience
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(validity))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(p.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Validate decodes and verifies a token string. Expiry is evaluated
// against the wall clock at verification time, so a token's validity is
// checked lazily on each use.
func (p *TokenProvider) Validate(tokenString string) (*AuthorityClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(p.timeFunc),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if p.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(p.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AuthorityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			p.logger.Error("TokenProvider validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, ErrTokenMalformed
		}
		return p.signingKey, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenInvalidSignature
		default:
			return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode)
		}
	}

	claims, ok := token.Claims.(*AuthorityClaims)
	if !ok || !token.Valid {
		p.logger.Error("TokenProvider validate could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// VerifyPrincipal validates a token and reconstructs its Principal in one
// step, expanding the aggregated authority claim into discrete roles.
func (p *TokenProvider) VerifyPrincipal(tokenString string) (*Principal, error) {
	claims, err := p.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return TransformPrincipal(claims)
}
