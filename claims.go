package identity

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthoritiesKey is the claim carrying the comma-joined authority list.
const AuthoritiesKey = "auth"

// RoleClaimSeparator joins and splits the aggregated authority claim.
const RoleClaimSeparator = ","

// AuthorityClaims is the wire claim set issued by the TokenProvider: the
// registered subject plus one aggregated authority claim. Authorities is a
// pointer so a token missing the claim entirely can be told apart from a
// principal with no roles.
type AuthorityClaims struct {
	jwt.RegisteredClaims
	Authorities *string `json:"auth,omitempty"`
}

// NewAuthorityClaims builds a claim set for the given subject and role set.
func NewAuthorityClaims(subject string, roles []string) *AuthorityClaims {
	auth := JoinAuthorities(roles)
	return &AuthorityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
		Authorities: &auth,
	}
}

// HasAuthorities reports whether the authority claim is present. An empty
// but present claim is a principal with no roles, not a missing claim.
func (c *AuthorityClaims) HasAuthorities() bool {
	return c != nil && c.Authorities != nil
}

// ExpandAuthorities splits the aggregated authority claim into discrete
// role values. A missing claim is a contract violation by the token issuer
// and fails with ErrMissingAuthorityClaim.
func ExpandAuthorities(claims *AuthorityClaims) ([]string, error) {
	if !claims.HasAuthorities() {
		return nil, ErrMissingAuthorityClaim
	}

	if *claims.Authorities == "" {
		return []string{}, nil
	}

	parts := strings.Split(*claims.Authorities, RoleClaimSeparator)
	roles := make([]string, 0, len(parts))
	for _, part := range parts {
		if role := strings.TrimSpace(part); role != "" {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

// TransformPrincipal reconstructs an authorization principal from a
// verified claim set: the subject becomes the identity name and the
// aggregated authority claim expands into discrete roles.
func TransformPrincipal(claims *AuthorityClaims) (*Principal, error) {
	roles, err := ExpandAuthorities(claims)
	if err != nil {
		return nil, err
	}

	return &Principal{
		Name:  claims.RegisteredClaims.Subject,
		Roles: roles,
	}, nil
}

// JoinAuthorities builds the aggregated claim value from a role set.
func JoinAuthorities(roles []string) string {
	return strings.Join(roles, RoleClaimSeparator)
}
