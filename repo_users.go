package identity

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRolesCascade names the owned role-association collection for
// cascade-restricted graph saves.
const UserRolesCascade = "roles"

// Join relation metadata for the users<->roles association.
const (
	UserRolesJoinTable   = "user_roles"
	UserRolesOwnerColumn = "user_id"
	UserRolesOwnedColumn = "role_id"
)

type Users interface {
	repository.Repository[*User]

	GetByLogin(ctx context.Context, login string, criteria ...repository.SelectCriteria) (*User, error)
	GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*User, error)
	GetWithRoles(ctx context.Context, id uuid.UUID) (*User, error)

	Store(uow *UnitOfWork) *Store[*User, uuid.UUID]
	SaveGraph(ctx context.Context, uow *UnitOfWork, user *User) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "login"
		},
		GetIdentifierValue: func(u *User) string {
			if u == nil {
				return ""
			}
			return strings.TrimSpace(u.Login)
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

// UserStoreHandlers describes User identity and concurrency state for the
// staging store. IsNew is explicit so a zero UUID never has to double as
// the "new entity" signal.
func UserStoreHandlers() ModelHandlers[*User, uuid.UUID] {
	return ModelHandlers[*User, uuid.UUID]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		IsNew: func(u *User) bool {
			return u == nil || u.ID == uuid.Nil
		},
		GetVersion: func(u *User) int64 {
			if u == nil {
				return 0
			}
			return u.Version
		},
		SetVersion: func(u *User, version int64) {
			if u != nil {
				u.Version = version
			}
		},
	}
}

// Store binds a staged User store to uow with the role-association cascade
// registered.
func (r *users) Store(uow *UnitOfWork) *Store[*User, uuid.UUID] {
	return NewStore(uow, UserStoreHandlers()).
		RegisterCascade(UserRolesCascade, saveUserRoles)
}

// SaveGraph stages a create-or-update of the user together with its role
// associations: the root row is upserted, new join rows are inserted by
// the cascade, and join rows absent from the supplied graph are pruned by
// the reconciler. Durability still waits for uow.SaveChanges.
func (r *users) SaveGraph(ctx context.Context, uow *UnitOfWork, user *User) (*User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	store := r.Store(uow)
	if _, err := store.CreateOrUpdateCascade(ctx, user, UserRolesCascade); err != nil {
		return nil, err
	}

	StageJoinReconciliation(uow,
		UserRolesJoinTable, UserRolesOwnerColumn, UserRolesOwnedColumn,
		user.ID, user.Authorities(),
	)

	return user, nil
}

func saveUserRoles(ctx context.Context, tx bun.IDB, user *User) (int64, error) {
	var total int64
	for _, role := range user.Roles {
		if role == nil || role.Name == "" {
			continue
		}

		// Roles are shared lookup rows, not owned by the user; make sure
		// the referenced authority exists before linking it.
		if _, err := tx.NewInsert().
			Model(role).
			On("CONFLICT DO NOTHING").
			Exec(ctx); err != nil {
			return 0, err
		}

		res, err := tx.NewInsert().
			Model(&UserRole{UserID: user.ID, RoleName: role.Name}).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return 0, err
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += affected
	}
	return total, nil
}

func (r *users) GetByLogin(ctx context.Context, login string, criteria ...repository.SelectCriteria) (*User, error) {
	record := &User{}
	q := r.db.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.login = ?", strings.TrimSpace(login)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"login": login,
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *users) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*User, error) {
	record := &User{}
	q := r.db.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.email = ?", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *users) GetWithRoles(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := r.db.NewSelect().
		Model(record).
		Relation("Roles").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}
