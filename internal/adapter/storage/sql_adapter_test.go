package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func newSQLiteAdapter(t *testing.T) *SQLAdapter {
	t.Helper()
	ctx := context.Background()

	db, err := OpenSQL(ctx, DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	adapter := NewSQLAdapter(db, DialectSQLite)
	require.NoError(t, adapter.Migrate(ctx))
	return adapter
}

func TestSQLAdapter_SQLite(t *testing.T) {
	testOrderRepository(t, newSQLiteAdapter(t))
}

func TestSQLAdapter_MigrateIsIdempotent(t *testing.T) {
	adapter := newSQLiteAdapter(t)
	require.NoError(t, adapter.Migrate(context.Background()))

	var applied int
	err := adapter.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied)
	require.NoError(t, err)
	require.Equal(t, 1, applied)
}

func TestSQLAdapter_SQLiteRejectsUnknownStatus(t *testing.T) {
	adapter := newSQLiteAdapter(t)
	ctx := context.Background()

	_, err := adapter.db.ExecContext(ctx, `
		INSERT INTO orders (user_id, order_date, product_list, status, total_amount, created_at, updated_at)
		VALUES (1, CURRENT_TIMESTAMP, '[]', 'Lost', '1', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	require.Error(t, err)
}

func TestSQLAdapter_MySQL(t *testing.T) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/orders?parseTime=true&loc=UTC"
	}

	db, err := OpenSQL(context.Background(), DialectMySQL, dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	defer db.Close()

	adapter := NewSQLAdapter(db, DialectMySQL)
	require.NoError(t, adapter.Migrate(context.Background()))

	testOrderRepository(t, adapter)
}
