package identity

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ModelHandlers describes how a Store reads and writes identity and
// lifecycle state for T. It mirrors the repository handler shape used by
// the read-side repositories, with the additions the staging store needs.
type ModelHandlers[T any, K comparable] struct {
	NewRecord func() T
	GetID     func(T) K
	SetID     func(T, K)

	// IsNew resolves the create-vs-update decision explicitly. When nil the
	// store falls back to comparing the id against K's zero value, which
	// conflates "new entity" with "entity whose key happens to be zero";
	// callers with non-numeric keys should provide IsNew.
	IsNew func(T) bool

	// GetVersion/SetVersion enable the optimistic concurrency check on
	// whole-entity updates. Both must be set or both nil.
	GetVersion func(T) int64
	SetVersion func(T, int64)
}

func (h ModelHandlers[T, K]) versioned() bool {
	return h.GetVersion != nil && h.SetVersion != nil
}

func (h ModelHandlers[T, K]) isNew(entity T) bool {
	if h.IsNew != nil {
		return h.IsNew(entity)
	}
	var zero K
	return h.GetID(entity) == zero
}

// CascadeFunc persists one owned collection of the aggregate inside the
// commit transaction, after the root row has been written.
type CascadeFunc[T any] func(ctx context.Context, tx bun.IDB, entity T) (int64, error)

type cascade[T any] struct {
	name string
	fn   CascadeFunc[T]
}

// Store is a generic per-entity staging area. Every mutating operation
// enqueues onto the owning UnitOfWork; nothing is durable until the unit's
// SaveChanges commits. The store holds no state beyond its unit reference
// and its handlers.
type Store[T any, K comparable] struct {
	uow      *UnitOfWork
	handlers ModelHandlers[T, K]
	cascades []cascade[T]
}

// NewStore binds a store for T to the given unit of work.
func NewStore[T any, K comparable](uow *UnitOfWork, handlers ModelHandlers[T, K]) *Store[T, K] {
	return &Store[T, K]{
		uow:      uow,
		handlers: handlers,
	}
}

// RegisterCascade attaches a named graph-save hook for an owned collection.
// CreateOrUpdate runs every registered cascade; CreateOrUpdateCascade
// restricts execution to an allow-list of names.
func (s *Store[T, K]) RegisterCascade(name string, fn CascadeFunc[T]) *Store[T, K] {
	if fn != nil {
		s.cascades = append(s.cascades, cascade[T]{name: name, fn: fn})
	}
	return s
}

// Add stages the entity for insertion. No identity validation happens
// beyond the type system.
func (s *Store[T, K]) Add(entity T) T {
	s.uow.enqueue("insert", func(ctx context.Context, tx bun.IDB) (int64, error) {
		return s.insert(ctx, tx, entity)
	})
	return entity
}

// AddRange stages every entity for insertion.
func (s *Store[T, K]) AddRange(entities ...T) {
	for _, entity := range entities {
		s.Add(entity)
	}
}

// Attach stages an entity carrying a pre-existing identity as a fresh
// insert. Used to re-insert detached or seed entities.
func (s *Store[T, K]) Attach(entity T) T {
	s.uow.enqueue("attach", func(ctx context.Context, tx bun.IDB) (int64, error) {
		return s.insert(ctx, tx, entity)
	})
	return entity
}

// Update stages a whole-entity overwrite keyed by primary key. Partial
// patches are not supported. If version handlers are configured the commit
// enforces an optimistic concurrency check; either way a vanished row
// surfaces as ErrConcurrentUpdate at commit time.
func (s *Store[T, K]) Update(entity T) T {
	s.uow.enqueue("update", func(ctx context.Context, tx bun.IDB) (int64, error) {
		return s.update(ctx, tx, entity)
	})
	return entity
}

// UpdateRange stages whole-entity overwrites for every entity.
func (s *Store[T, K]) UpdateRange(entities ...T) {
	for _, entity := range entities {
		s.Update(entity)
	}
}

// CreateOrUpdate stages a graph upsert: insert the aggregate if absent,
// overwrite the whole reachable graph if present, then run every
// registered cascade. One edge case is preserved from the store contract:
// an entity that claims to be new while a row with its (zero) key already
// exists degrades to a plain update.
func (s *Store[T, K]) CreateOrUpdate(ctx context.Context, entity T) (T, error) {
	return s.createOrUpdate(ctx, entity, nil)
}

// CreateOrUpdateCascade is CreateOrUpdate with cascading restricted to the
// named owned collections, leaving unrelated nested collections untouched.
func (s *Store[T, K]) CreateOrUpdateCascade(ctx context.Context, entity T, cascades ...string) (T, error) {
	allow := make(map[string]struct{}, len(cascades))
	for _, name := range cascades {
		allow[name] = struct{}{}
	}
	return s.createOrUpdate(ctx, entity, allow)
}

func (s *Store[T, K]) createOrUpdate(ctx context.Context, entity T, allow map[string]struct{}) (T, error) {
	exists, err := s.Exists(ctx, s.handlers.GetID(entity))
	if err != nil {
		return entity, err
	}

	if s.handlers.isNew(entity) && exists {
		return s.Update(entity), nil
	}

	s.uow.enqueue("upsert graph", func(ctx context.Context, tx bun.IDB) (int64, error) {
		var total int64

		present, err := s.existsTx(ctx, tx, s.handlers.GetID(entity))
		if err != nil {
			return 0, err
		}

		if present {
			affected, err := s.update(ctx, tx, entity)
			if err != nil {
				return 0, err
			}
			total += affected
		} else {
			affected, err := s.insert(ctx, tx, entity)
			if err != nil {
				return 0, err
			}
			total += affected
		}

		for _, c := range s.cascades {
			if allow != nil {
				if _, ok := allow[c.name]; !ok {
					continue
				}
			}
			affected, err := c.fn(ctx, tx, entity)
			if err != nil {
				return 0, err
			}
			total += affected
		}

		return total, nil
	})

	return entity, nil
}

// Delete stages removal of the entity by primary key.
func (s *Store[T, K]) Delete(entity T) {
	s.uow.enqueue("delete", func(ctx context.Context, tx bun.IDB) (int64, error) {
		res, err := tx.NewDelete().Model(entity).WherePK().Exec(ctx)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

// DeleteByID looks the entity up immediately and stages its removal. A
// lookup miss fails with ErrEntityNotFound before anything is staged.
func (s *Store[T, K]) DeleteByID(ctx context.Context, id K) error {
	entity, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	s.Delete(entity)
	return nil
}

// Clear stages deletion of every row of the entity type. Test and reset
// tooling only, never production paths.
func (s *Store[T, K]) Clear() {
	s.uow.enqueue("clear", func(ctx context.Context, tx bun.IDB) (int64, error) {
		res, err := tx.NewDelete().Model(s.handlers.NewRecord()).Where("1 = 1").Exec(ctx)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

// RemoveStaleJoinRows stages reconciliation of a dynamically named
// many-to-many join relation keyed by K on both sides. Relations whose
// owner and owned key types differ go through StageJoinReconciliation
// directly.
func (s *Store[T, K]) RemoveStaleJoinRows(joinTable, ownerColumn, ownedColumn string, ownerID K, idsToKeep []K) {
	StageJoinReconciliation(s.uow, joinTable, ownerColumn, ownedColumn, ownerID, idsToKeep)
}

// StageJoinReconciliation stages reconciliation of a dynamically named
// many-to-many join relation on the unit: at commit time the join rows of
// ownerID are loaded, the stale subset (owned ids absent from idsToKeep)
// is computed by ReconcileJoinRows, and exactly that subset is deleted. No
// row is ever inserted here; new associations flow through the normal
// graph save.
func StageJoinReconciliation[O comparable, D comparable](uow *UnitOfWork, joinTable, ownerColumn, ownedColumn string, ownerID O, idsToKeep []D) {
	uow.enqueue("reconcile "+joinTable, func(ctx context.Context, tx bun.IDB) (int64, error) {
		var ownedIDs []D
		err := tx.NewSelect().
			Table(joinTable).
			Column(ownedColumn).
			Where("? = ?", bun.Ident(ownerColumn), ownerID).
			Scan(ctx, &ownedIDs)
		if err != nil {
			return 0, err
		}

		rows := make([]JoinRow[O, D], 0, len(ownedIDs))
		for _, ownedID := range ownedIDs {
			rows = append(rows, JoinRow[O, D]{OwnerID: ownerID, OwnedID: ownedID})
		}

		stale := ReconcileJoinRows(rows, ownerID, idsToKeep)
		if len(stale) == 0 {
			return 0, nil
		}

		staleIDs := make([]D, 0, len(stale))
		for _, row := range stale {
			staleIDs = append(staleIDs, row.OwnedID)
		}

		res, err := tx.NewDelete().
			Table(joinTable).
			Where("? = ?", bun.Ident(ownerColumn), ownerID).
			Where("? IN (?)", bun.Ident(ownedColumn), bun.In(staleIDs)).
			Exec(ctx)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

// GetByID loads one entity immediately, outside the staged batch.
func (s *Store[T, K]) GetByID(ctx context.Context, id K) (T, error) {
	record := s.handlers.NewRecord()
	s.handlers.SetID(record, id)

	err := s.uow.DB().NewSelect().Model(record).WherePK().Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return record, ErrEntityNotFound
		}
		return record, errors.Wrap(err, errors.CategoryInternal, "entity lookup failed")
	}
	return record, nil
}

// Exists probes for a row with the given identity.
func (s *Store[T, K]) Exists(ctx context.Context, id K) (bool, error) {
	return s.existsTx(ctx, s.uow.DB(), id)
}

func (s *Store[T, K]) existsTx(ctx context.Context, tx bun.IDB, id K) (bool, error) {
	record := s.handlers.NewRecord()
	s.handlers.SetID(record, id)
	return tx.NewSelect().Model(record).WherePK().Exists(ctx)
}

func (s *Store[T, K]) insert(ctx context.Context, tx bun.IDB, entity T) (int64, error) {
	res, err := tx.NewInsert().Model(entity).Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store[T, K]) update(ctx context.Context, tx bun.IDB, entity T) (int64, error) {
	q := tx.NewUpdate().Model(entity).WherePK()

	// The bump runs in SQL and the entity only learns the new version once
	// the transaction commits; a rolled-back batch leaves the in-memory
	// state aligned with the row so the same batch can be retried.
	if s.handlers.versioned() {
		current := s.handlers.GetVersion(entity)
		q = q.Value("version", "version + 1")

		// A zero version means the caller never loaded a concurrency
		// token, so there is nothing to check against.
		if current > 0 {
			q = q.Where("version = ?", current)
		}

		s.uow.afterCommit(func() {
			s.handlers.SetVersion(entity, current+1)
		})
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, ErrConcurrentUpdate
	}
	return affected, nil
}
