package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kpiplatform/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add kpi comments", "add_kpi_comments"},
		{"Add-Bonus-Audit", "add_bonus_audit"},
		{"add__pnl__index", "add_pnl_index"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"индекс", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	t.Run("first migration is 000001", func(t *testing.T) {
		mf, err := CreateMigration(dir, "add kpi comments", "Comment column for KPIs")
		require.NoError(t, err)
		assert.Equal(t, "000001", mf.Version)
		assert.Equal(t, filepath.Join(dir, "000001_add_kpi_comments.up.sql"), mf.UpPath)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "-- Description: Comment column for KPIs")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(down), "-- Migration: add kpi comments (Rollback)"))
	})

	t.Run("next migration increments the version", func(t *testing.T) {
		mf, err := CreateMigration(dir, "drop legacy", "")
		require.NoError(t, err)
		assert.Equal(t, "000002", mf.Version)

		names, err := ListMigrations(os.DirFS(dir))
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_add_kpi_comments", "000002_drop_legacy"}, names)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		_, err := CreateMigration(dir, "!!!", "")
		assert.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("embedded schema", func(t *testing.T) {
		names, err := ListMigrations(migrations.FS)
		require.NoError(t, err)
		require.NotEmpty(t, names)
		assert.Equal(t, "000001_init", names[0])
	})

	t.Run("missing directory is empty", func(t *testing.T) {
		names, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "none")))
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}
