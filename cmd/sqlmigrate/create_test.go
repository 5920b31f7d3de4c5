/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMigration(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 30, 0, 0, time.UTC)

	t.Run("first migration creates the source directory", func(t *testing.T) {
		sourceDir := filepath.Join(t.TempDir(), "migrations")

		dirName, err := createMigration(sourceDir, "create users", now)
		require.NoError(t, err)
		assert.Equal(t, "0001-create_users", dirName)

		upContent, err := os.ReadFile(filepath.Join(sourceDir, dirName, "up.sql"))
		require.NoError(t, err)
		assert.Equal(t, "-- Up migration `0001-create_users` generated at 2026-08-25 12:30:00.\n", string(upContent))

		downContent, err := os.ReadFile(filepath.Join(sourceDir, dirName, "down.sql"))
		require.NoError(t, err)
		assert.Equal(t, "-- Down migration `0001-create_users` generated at 2026-08-25 12:30:00.\n", string(downContent))
	})

	t.Run("next migration gets the next identifier", func(t *testing.T) {
		sourceDir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(sourceDir, "0001-create_users"), 0o755))
		require.NoError(t, os.Mkdir(filepath.Join(sourceDir, "0007-create_posts"), 0o755))
		// Stray entries must not break the identifier scan.
		require.NoError(t, os.Mkdir(filepath.Join(sourceDir, "notes"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "README.md"), []byte("docs"), 0o644))

		dirName, err := createMigration(sourceDir, "add-index", now)
		require.NoError(t, err)
		assert.Equal(t, "0008-add_index", dirName)
	})

	t.Run("unusable name is rejected", func(t *testing.T) {
		_, err := createMigration(t.TempDir(), "///", now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no usable characters")
	})
}

func TestSanitizeMigrationName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "create users", want: "create_users"},
		{in: "Create-Users", want: "create_users"},
		{in: "add_index", want: "add_index"},
		{in: "v2.1 schema", want: "v2_1_schema"},
		{in: "--weird--", want: "weird"},
		{in: "таблица", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeMigrationName(tt.in))
		})
	}
}
