/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate_test

import (
	"embed"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-sqlmigrate/migrate"
)

//go:embed testdata/migrations
var embeddedMigrations embed.FS

func TestLoadDirMigrations(t *testing.T) {
	migrations, err := migrate.LoadDirMigrations("testdata/migrations")
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, "0001-create_users", migrations[0].Name())
	assert.Contains(t, migrations[0].UpSQL(), "CREATE TABLE users")
	downSQL, ok := migrations[0].DownSQL()
	require.True(t, ok)
	assert.Contains(t, downSQL, "DROP TABLE users")

	assert.Equal(t, "0002-create_posts", migrations[1].Name())
	assert.True(t, migrations[1].Revertible())

	// 0003 ships no down.sql.
	assert.Equal(t, "0003-add_index", migrations[2].Name())
	assert.False(t, migrations[2].Revertible())
}

func TestLoadDirMigrationsMissingDir(t *testing.T) {
	_, err := migrate.LoadDirMigrations("testdata/no-such-dir")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read directory")
}

func TestLoadAllEmbedFSMigrations(t *testing.T) {
	migrations, err := migrate.LoadAllEmbedFSMigrations(embeddedMigrations, "testdata/migrations")
	require.NoError(t, err)
	require.Len(t, migrations, 3)
	assert.Equal(t, "0001-create_users", migrations[0].Name())
	assert.Equal(t, "0003-add_index", migrations[2].Name())
}

func TestLoadFSMigrations(t *testing.T) {
	upSQL := []byte("CREATE TABLE t (id INTEGER)")
	downSQL := []byte("DROP TABLE t")

	tests := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
	}{
		{
			name:    "empty directory",
			fsys:    fstest.MapFS{},
			wantErr: "does not contain any migrations",
		},
		{
			name: "files without directories",
			fsys: fstest.MapFS{
				"0001-create_t.sql": {Data: upSQL},
			},
			wantErr: "does not contain any migrations",
		},
		{
			name: "id gap",
			fsys: fstest.MapFS{
				"0001-first/up.sql": {Data: upSQL},
				"0003-third/up.sql": {Data: upSQL},
			},
			wantErr: "migration ids must be consecutive numbers starting from 1",
		},
		{
			name: "ids not starting from 1",
			fsys: fstest.MapFS{
				"0002-second/up.sql": {Data: upSQL},
			},
			wantErr: "migration ids must be consecutive numbers starting from 1",
		},
		{
			name: "duplicate id",
			fsys: fstest.MapFS{
				"0001-first/up.sql":     {Data: upSQL},
				"001-also-first/up.sql": {Data: upSQL},
			},
			wantErr: "multiple migrations found for id 1",
		},
		{
			name: "zero id",
			fsys: fstest.MapFS{
				"0000-zero/up.sql": {Data: upSQL},
			},
			wantErr: "migration id cannot be 0",
		},
		{
			name: "no numeric prefix",
			fsys: fstest.MapFS{
				"first/up.sql": {Data: upSQL},
			},
			wantErr: "could not extract migration id",
		},
		{
			name: "non-numeric prefix",
			fsys: fstest.MapFS{
				"abc-first/up.sql": {Data: upSQL},
			},
			wantErr: "parse migration id",
		},
		{
			name: "missing up script",
			fsys: fstest.MapFS{
				"0001-first/down.sql": {Data: downSQL},
			},
			wantErr: "read up script of migration 0001-first",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := migrate.LoadFSMigrations(tt.fsys, ".")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFSMigrationsOrdering(t *testing.T) {
	upSQL := []byte("CREATE TABLE t (id INTEGER)")
	fsys := fstest.MapFS{
		"0010-tenth/up.sql":   {Data: upSQL},
		"0001-first/up.sql":   {Data: upSQL},
		"0002-second/up.sql":  {Data: upSQL},
		"0003-third/up.sql":   {Data: upSQL},
		"0004-fourth/up.sql":  {Data: upSQL},
		"0005-fifth/up.sql":   {Data: upSQL},
		"0006-sixth/up.sql":   {Data: upSQL},
		"0007-seventh/up.sql": {Data: upSQL},
		"0008-eighth/up.sql":  {Data: upSQL},
		"0009-ninth/up.sql":   {Data: upSQL},
	}

	migrations, err := migrate.LoadFSMigrations(fsys, ".")
	require.NoError(t, err)
	require.Len(t, migrations, 10)
	// Ordering is by id, not by the lexical order of directory names.
	assert.Equal(t, "0001-first", migrations[0].Name())
	assert.Equal(t, "0010-tenth", migrations[9].Name())
}
