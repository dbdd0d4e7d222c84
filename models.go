package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Well-known authorities. Role names double as primary keys.
const (
	// RoleAdmin grants administrative access
	RoleAdmin = "ROLE_ADMIN"
	// RoleUser is the default authority for registered accounts
	RoleUser = "ROLE_USER"
	// RoleAnonymous marks unauthenticated principals
	RoleAnonymous = "ROLE_ANONYMOUS"
)

// User is the owning aggregate of the identity graph. Version backs the
// optimistic concurrency check applied on whole-entity updates.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Login         string     `bun:"login,notnull,unique" json:"login,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	Activated     bool       `bun:"activated,notnull,default:false" json:"activated,omitempty"`
	Version       int64      `bun:"version,notnull,default:1" json:"version,omitempty"`
	Roles         []*Role    `bun:"m2m:user_roles,join:User=Role" json:"roles,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Authorities returns the role names granted to the user.
func (u *User) Authorities() []string {
	if u == nil {
		return nil
	}
	authorities := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		if role != nil && role.Name != "" {
			authorities = append(authorities, role.Name)
		}
	}
	return authorities
}

// Principal builds the authorization principal for the user.
func (u *User) Principal() *Principal {
	return &Principal{
		Name:  u.Login,
		Roles: u.Authorities(),
	}
}

// HasRole reports whether the user carries the given authority.
func (u *User) HasRole(name string) bool {
	for _, role := range u.Roles {
		if role != nil && role.Name == name {
			return true
		}
	}
	return false
}

// Role is a grantable authority. Plain record, no inheritance: the name is
// both the identity and the claim value.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	Name          string `bun:"name,pk" json:"name,omitempty"`
}

// UserRole is one row of the users<->roles join relation. It has no
// identity of its own; existence is derived from the owning aggregate's
// current association set.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:usrrol"`
	UserID        uuid.UUID `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	User          *User     `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	RoleName      string    `bun:"role_id,pk" json:"role_id,omitempty"`
	Role          *Role     `bun:"rel:belongs-to,join:role_id=name" json:"role,omitempty"`
}
