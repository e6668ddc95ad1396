package migration

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "Add Stock Lots")
	require.NoError(t, err)

	assert.Contains(t, mf.UpPath, "add_stock_lots.up.sql")
	assert.Contains(t, mf.DownPath, "add_stock_lots.down.sql")

	for _, path := range []string{mf.UpPath, mf.DownPath} {
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "Add Stock Lots")
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "add_stock_lots", sanitizeName("Add Stock Lots"))
	assert.Equal(t, "fix_allocations_v2", sanitizeName("fix-allocations v2!"))
	assert.Equal(t, "trailing", sanitizeName("trailing--"))
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty directory", func(t *testing.T) {
		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("missing directory is not an error", func(t *testing.T) {
		migrations, err := ListMigrations(dir + "/nope")
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("lists each pair once", func(t *testing.T) {
		_, err := CreateMigration(dir, "first")
		require.NoError(t, err)

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		require.Len(t, migrations, 1)
		assert.Contains(t, migrations[0], "first")
	})
}
