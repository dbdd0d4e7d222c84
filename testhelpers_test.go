package identity_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:identity-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	db.RegisterModel((*identity.UserRole)(nil))

	ctx := context.Background()
	for _, model := range []any{
		(*identity.User)(nil),
		(*identity.Role)(nil),
		(*identity.UserRole)(nil),
	} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("create table for %T: %v", model, err)
		}
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func countRows(t *testing.T, db *bun.DB, table string) int {
	t.Helper()

	count := 0
	if err := db.NewRaw("SELECT COUNT(*) FROM ?", bun.Ident(table)).Scan(context.Background(), &count); err != nil {
		t.Fatalf("count %s rows: %v", table, err)
	}
	return count
}
