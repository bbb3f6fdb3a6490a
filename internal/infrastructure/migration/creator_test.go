package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"add payments index", "add_payments_index"},
		{"Add-Invoice  Notes", "add_invoice_notes"},
		{"__leading and trailing__", "leading_and_trailing"},
		{"drop (old) columns!", "drop_old_columns"},
		{"???", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeName(tt.in))
		})
	}
}

func TestCreateMigration_NumbersSequentially(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create invoices", created)
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_create_invoices.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_create_invoices.down.sql"), first.DownPath)

	second, err := CreateMigration(dir, "Add Payment Notes", created)
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
	assert.Equal(t, "000002_add_payment_notes", second.BaseName())

	content, err := os.ReadFile(second.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- add_payment_notes")
	assert.Contains(t, string(content), "2026-03-01T12:00:00Z")

	down, err := os.ReadFile(second.DownPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(down), "-- Rollback add_payment_notes"))
}

func TestCreateMigration_Errors(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", created)
	assert.Error(t, err)

	dir := filepath.Join(t.TempDir(), "nested", "migrations")
	mf, err := CreateMigration(dir, "init", created)
	require.NoError(t, err)
	assert.FileExists(t, mf.UpPath)
}

func TestListMigrations(t *testing.T) {
	t.Run("missing directory is empty", func(t *testing.T) {
		files, err := ListMigrations(filepath.Join(t.TempDir(), "missing"))
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("ignores unrelated files and directories", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"000002_b.up.sql", "000002_b.down.sql",
			"000001_a.up.sql", "000001_a.down.sql",
			"README.md", "notes.sql",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
		}
		require.NoError(t, os.Mkdir(filepath.Join(dir, "000003_dir.up.sql"), 0o755))

		files, err := ListMigrations(dir)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "000001_a", files[0].BaseName())
		assert.Equal(t, "000002_b", files[1].BaseName())
	})

	t.Run("half pair is rejected", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_a.up.sql"), nil, 0o644))
		_, err := ListMigrations(dir)
		assert.ErrorContains(t, err, "missing its up or down file")
	})

	t.Run("conflicting names for one version", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_a.up.sql"), nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_b.down.sql"), nil, 0o644))
		_, err := ListMigrations(dir)
		assert.Error(t, err)
	})
}

// The shipped schema must be readable by golang-migrate's file source.
func TestRepositoryMigrations(t *testing.T) {
	dir, err := filepath.Abs(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)

	files, err := ListMigrations(dir)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, uint(1), files[0].Version)
	assert.Equal(t, "create_invoicing_schema", files[0].Name)

	drv, err := source.Open(sourceURL(dir))
	require.NoError(t, err)
	defer drv.Close()

	first, err := drv.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, _, err := drv.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
	buf := make([]byte, 4096)
	n, _ := up.Read(buf)
	assert.Contains(t, string(buf[:n]), "CREATE TABLE IF NOT EXISTS customers")
}

func TestNewFromConfig_RejectsSQLite(t *testing.T) {
	_, err := NewFromConfig(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: "dev.db"}, "migrations", nil)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}
