package identity

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// UserLookup is the slice of the Users repository the provider needs.
type UserLookup interface {
	GetByLogin(ctx context.Context, login string, criteria ...repository.SelectCriteria) (*User, error)
}

// WithUserRoles loads the role associations alongside the user.
func WithUserRoles() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Relation("Roles")
	}
}

// ErrUserNotActivated rejects logins for accounts pending activation.
var ErrUserNotActivated = errors.New("user account is not activated", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// UserProvider authenticates stored users into principals.
type UserProvider struct {
	store  UserLookup
	logger Logger
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserLookup) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// Authenticate finds the account, compares the password hash, and builds
// the authorization principal. Unknown accounts and bad passwords fail
// identically so callers cannot probe for account existence.
func (u *UserProvider) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	user, err := u.store.GetByLogin(ctx, username, WithUserRoles())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during authentication")
	}

	if !user.Activated {
		u.logger.Warn("Authenticate rejected inactive account", "login", username)
		return nil, ErrUserNotActivated
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user.Principal(), nil
}
