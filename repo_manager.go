package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager is the explicit composition root for the persistence
// layer: every repository is constructed and exposed here rather than
// resolved by naming convention.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Roles() Roles
	NewUnit() *UnitOfWork
	DB() *bun.DB
}

type mngr struct {
	db    *bun.DB
	users Users
	roles Roles
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	// The m2m join model must be known to Bun before Relation("Roles")
	// queries resolve.
	db.RegisterModel((*UserRole)(nil))

	return &mngr{
		db:    db,
		users: NewUsersRepository(db),
		roles: NewRolesRepository(db),
	}
}

// NewRepositoryManagerFromPersistence builds the manager from a
// go-persistence-bun client.
func NewRepositoryManagerFromPersistence(client *persistence.Client) (RepositoryManager, error) {
	if client == nil {
		return nil, errors.New("persistence client is required")
	}
	db := client.DB()
	if db == nil {
		return nil, errors.New("persistence client returned nil bun db")
	}
	return NewRepositoryManager(db), nil
}

// RegisterModels adds the identity models, join model included, to the
// shared persistence registry so fixtures and migrations can resolve them.
func RegisterModels() {
	persistence.RegisterModel((*User)(nil))
	persistence.RegisterModel((*Role)(nil))
	persistence.RegisterModel((*UserRole)(nil))
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.roles == nil {
		return errors.New("repository roles should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Roles() Roles {
	return m.roles
}

func (m mngr) NewUnit() *UnitOfWork {
	return NewUnitOfWork(m.db)
}

func (m mngr) DB() *bun.DB {
	return m.db
}
