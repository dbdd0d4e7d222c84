package identity_test

import (
	"context"
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_SaveChanges(t *testing.T) {
	ctx := context.Background()

	t.Run("empty batch commits as a no-op", func(t *testing.T) {
		db := newTestDB(t)
		uow := identity.NewUnitOfWork(db)

		affected, err := uow.SaveChanges(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), affected)
	})

	t.Run("reports total affected rows across the batch", func(t *testing.T) {
		db, uow, store := newUserStore(t)

		store.AddRange(newTestUser("alice"), newTestUser("bob"))
		store.Add(newTestUser("carol"))

		affected, err := uow.SaveChanges(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), affected)
		assert.Equal(t, 3, countRows(t, db, "users"))
	})

	t.Run("a failing mutation rolls back the whole batch", func(t *testing.T) {
		db, uow, store := newUserStore(t)

		store.Add(newTestUser("alice"))
		store.Update(newTestUser("ghost")) // no such row

		_, err := uow.SaveChanges(ctx)
		assert.ErrorIs(t, err, identity.ErrConcurrentUpdate)
		assert.Equal(t, 0, countRows(t, db, "users"))
	})

	t.Run("a failed batch stays pending for retry", func(t *testing.T) {
		db, uow, store := newUserStore(t)

		user := newTestUser("alice")
		store.Add(user)
		store.Update(newTestUser("ghost"))

		_, err := uow.SaveChanges(ctx)
		require.Error(t, err)
		assert.Equal(t, 2, uow.Pending())

		uow.DiscardChanges()
		assert.Equal(t, 0, uow.Pending())
		assert.Equal(t, 0, countRows(t, db, "users"))
	})

	t.Run("cancelled context commits nothing", func(t *testing.T) {
		db, uow, store := newUserStore(t)

		store.Add(newTestUser("alice"))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := uow.SaveChanges(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, countRows(t, db, "users"))

		// the staged work survives for a later commit
		affected, err := uow.SaveChanges(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
	})
}

func TestUnitOfWork_DiscardChanges(t *testing.T) {
	ctx := context.Background()
	db, uow, store := newUserStore(t)

	store.AddRange(newTestUser("alice"), newTestUser("bob"))
	require.Equal(t, 2, uow.Pending())

	uow.DiscardChanges()
	assert.Equal(t, 0, uow.Pending())

	affected, err := uow.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
	assert.Equal(t, 0, countRows(t, db, "users"))
}
