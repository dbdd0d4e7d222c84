package identity

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Roles is the read and staging surface for grantable authorities. The
// role key is its name, so this repository skips the uuid-keyed generic
// read layer and queries Bun directly.
type Roles interface {
	GetByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Store(uow *UnitOfWork) *Store[*Role, string]
}

type roles struct {
	db *bun.DB
}

var _ Roles = (*roles)(nil)

func NewRolesRepository(db *bun.DB) Roles {
	return &roles{db: db}
}

// RoleStoreHandlers describes Role identity for the staging store. Role
// names never default to the zero value, so IsNew is explicit here too.
func RoleStoreHandlers() ModelHandlers[*Role, string] {
	return ModelHandlers[*Role, string]{
		NewRecord: func() *Role { return &Role{} },
		GetID: func(r *Role) string {
			if r == nil {
				return ""
			}
			return r.Name
		},
		SetID: func(r *Role, name string) {
			if r != nil {
				r.Name = name
			}
		},
		IsNew: func(r *Role) bool {
			return r == nil || r.Name == ""
		},
	}
}

func (r *roles) Store(uow *UnitOfWork) *Store[*Role, string] {
	return NewStore(uow, RoleStoreHandlers())
}

func (r *roles) GetByName(ctx context.Context, name string) (*Role, error) {
	record := &Role{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "role lookup failed")
	}

	return record, nil
}

func (r *roles) List(ctx context.Context) ([]*Role, error) {
	var records []*Role
	if err := r.db.NewSelect().Model(&records).Order("name ASC").Scan(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "role listing failed")
	}
	return records, nil
}
