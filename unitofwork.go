package identity

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// mutation is one staged write. apply runs inside the commit transaction
// and reports the rows it affected.
type mutation struct {
	label string
	apply func(ctx context.Context, tx bun.IDB) (int64, error)
}

// UnitOfWork owns the ordered set of pending mutations for one logical
// operation. Stores stage onto it; nothing becomes durable until
// SaveChanges commits the whole batch atomically.
//
// A unit is scoped to exactly one request or test case and is not safe for
// concurrent mutation. Sharing many Store handles over one unit within a
// single-threaded operation is fine.
type UnitOfWork struct {
	db      *bun.DB
	pending []mutation
	after   []func()
}

// NewUnitOfWork returns a unit bound to db.
func NewUnitOfWork(db *bun.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// DB exposes the underlying handle for read-side queries.
func (u *UnitOfWork) DB() *bun.DB {
	return u.db
}

// Pending reports how many mutations are staged.
func (u *UnitOfWork) Pending() int {
	return len(u.pending)
}

// DiscardChanges drops every staged mutation without touching the database.
func (u *UnitOfWork) DiscardChanges() {
	u.pending = nil
}

func (u *UnitOfWork) enqueue(label string, apply func(ctx context.Context, tx bun.IDB) (int64, error)) {
	u.pending = append(u.pending, mutation{label: label, apply: apply})
}

// afterCommit registers a callback to run once the current SaveChanges
// transaction commits. A rolled-back attempt drops its callbacks, so
// in-memory entity state is only touched when the rows actually changed.
func (u *UnitOfWork) afterCommit(fn func()) {
	u.after = append(u.after, fn)
}

// SaveChanges commits every staged mutation in order inside one
// transaction and returns the total number of affected rows. The batch is
// all-or-nothing: any failure, including ErrConcurrentUpdate from an
// optimistic concurrency check, rolls back the whole unit and is surfaced
// to the caller unmodified, never retried here.
//
// Cancellation is honored cooperatively between mutations, before the
// transaction is flushed, so an aborted commit never leaves a partially
// applied batch visible to subsequent reads.
func (u *UnitOfWork) SaveChanges(ctx context.Context) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, errors.Wrap(ctx.Err(), errors.CategoryOperation, "commit cancelled before start")
	default:
	}

	if len(u.pending) == 0 {
		return 0, nil
	}

	u.after = nil

	var total int64
	err := u.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, m := range u.pending {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, errors.CategoryOperation, "commit cancelled").
					WithMetadata(map[string]any{"mutation": m.label})
			}

			affected, err := m.apply(ctx, tx)
			if err != nil {
				return err
			}
			total += affected
		}
		return nil
	})

	if err != nil {
		u.after = nil
		return 0, err
	}

	for _, fn := range u.after {
		fn()
	}
	u.after = nil
	u.pending = nil
	return total, nil
}
