package identity

import "context"

var principalCtxKey = &contextKey{"principal"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithPrincipal sets the Principal in the given context.
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, principal)
}

// PrincipalFromContext finds the principal from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok
}

// WithClaims sets the verified AuthorityClaims in the given context.
func WithClaims(ctx context.Context, claims *AuthorityClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext finds the verified claims from the context.
func ClaimsFromContext(ctx context.Context) (*AuthorityClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*AuthorityClaims)
	return raw, ok
}
