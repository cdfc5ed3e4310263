package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConnectionString(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		profile  DatabaseProfile
		contains []string
		absent   []string
	}{
		{
			name:    "ledger profile maximizes durability",
			path:    "/data/ledger.db",
			profile: ProfileLedger,
			contains: []string{
				"/data/ledger.db",
				"journal_mode(WAL)",
				"synchronous(FULL)",
				"auto_vacuum(NONE)",
				"foreign_keys(1)",
				"busy_timeout(5000)",
			},
			absent: []string{"synchronous(NORMAL)"},
		},
		{
			name:    "standard profile balances durability and space",
			path:    "/data/wallet.db",
			profile: ProfileStandard,
			contains: []string{
				"/data/wallet.db",
				"journal_mode(WAL)",
				"synchronous(NORMAL)",
				"auto_vacuum(INCREMENTAL)",
				"temp_store(MEMORY)",
				"cache_size(-64000)",
			},
			absent: []string{"synchronous(FULL)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := buildConnectionString(tt.path, tt.profile)

			assert.True(t, strings.HasPrefix(result, tt.path))
			for _, expected := range tt.contains {
				assert.Contains(t, result, expected)
			}
			for _, unexpected := range tt.absent {
				assert.NotContains(t, result, unexpected)
			}
		})
	}
}

func TestNewAppliesSchemaAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	db, err := New(Config{
		Path:    filepath.Join(dir, "wallet.db"),
		Profile: ProfileStandard,
		Name:    "wallet",
	})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'wallets'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "wallet schema should create the wallets table")

	// Second run must be a no-op, not an error.
	require.NoError(t, db.Migrate())

	require.NoError(t, db.HealthCheck(context.Background()))
}

func TestMigrateSkipsUnknownDatabaseName(t *testing.T) {
	dir := t.TempDir()

	db, err := New(Config{
		Path: filepath.Join(dir, "scratch.db"),
		Name: "scratch",
	})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Migrate())
}

func TestWithTransaction(t *testing.T) {
	dir := t.TempDir()

	db, err := New(Config{
		Path:    filepath.Join(dir, "tx.db"),
		Profile: ProfileStandard,
		Name:    "tx-test",
	})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)

	t.Run("commits on success", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			_, err := tx.Exec(`INSERT INTO items (name) VALUES ('kept')`)
			return err
		})
		require.NoError(t, err)

		var count int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items WHERE name = 'kept'`).Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			if _, err := tx.Exec(`INSERT INTO items (name) VALUES ('discarded')`); err != nil {
				return err
			}
			return fmt.Errorf("boom")
		})
		require.Error(t, err)

		var count int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items WHERE name = 'discarded'`).Scan(&count))
		assert.Equal(t, 0, count)
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			if _, err := tx.Exec(`INSERT INTO items (name) VALUES ('panicked')`); err != nil {
				return err
			}
			panic("unexpected")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in transaction")

		var count int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items WHERE name = 'panicked'`).Scan(&count))
		assert.Equal(t, 0, count)
	})
}
