package database

import (
	"context"
	"os"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	source, err := iofs.New(migrationsFS, "migrations")
	require.NoError(t, err)
	defer source.Close()

	first, err := source.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, name, err := source.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
	assert.Equal(t, "create_accounts_posts", name)
}

// Runs against a real database only when TEST_DATABASE_URL is set.
func TestRunMigrations(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := Open(context.Background(), url)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`DROP TABLE IF EXISTS posts, accounts, schema_migrations CASCADE`)
	require.NoError(t, err)

	require.NoError(t, RunMigrations(url))
	require.NoError(t, RunMigrations(url))

	for _, table := range []string{"accounts", "posts"} {
		var exists bool
		err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}
}
