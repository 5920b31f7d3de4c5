/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"
)

const (
	upFileName   = "up.sql"
	downFileName = "down.sql"
)

// LoadDirMigrations loads an ordered migration set from a directory.
// Each migration lives in its own sub-directory named <id>-<name>
// (e.g. "0001-create_users") holding an up.sql file and, when the migration
// is revertible, a down.sql file. Identifiers must be unique consecutive
// numbers starting from 1.
func LoadDirMigrations(dir string) ([]*Migration, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	return LoadFSMigrations(os.DirFS(dir), ".")
}

// LoadAllEmbedFSMigrations loads an ordered migration set from an embedded
// filesystem. The layout is the same as for LoadDirMigrations.
func LoadAllEmbedFSMigrations(fsys embed.FS, dirName string) ([]*Migration, error) {
	return LoadFSMigrations(fsys, dirName)
}

// LoadFSMigrations loads an ordered migration set from any fs.FS.
func LoadFSMigrations(fsys fs.FS, dirName string) ([]*Migration, error) {
	entries, err := fs.ReadDir(fsys, dirName)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dirName, err)
	}

	var dirs []fs.DirEntry
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry)
		}
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("directory %s does not contain any migrations", dirName)
	}

	migrations := make([]*Migration, len(dirs))
	for _, entry := range dirs {
		id, err := parseMigrationID(entry.Name())
		if err != nil {
			return nil, err
		}
		if id > uint64(len(migrations)) {
			return nil, fmt.Errorf("migration ids must be consecutive numbers starting from 1, got %d (%s)",
				id, entry.Name())
		}
		if migrations[id-1] != nil {
			return nil, fmt.Errorf("multiple migrations found for id %d", id)
		}
		mig, err := readMigrationDir(fsys, path.Join(dirName, entry.Name()), entry.Name())
		if err != nil {
			return nil, err
		}
		migrations[id-1] = mig
	}

	// Every id is unique and within 1..len(dirs), so all slots are filled.
	return migrations, nil
}

// parseMigrationID extracts the numeric prefix from a migration directory
// name of the form <id>-<name>.
func parseMigrationID(dirName string) (uint64, error) {
	idStr, _, found := strings.Cut(dirName, "-")
	if !found {
		return 0, fmt.Errorf("could not extract migration id from directory name %s", dirName)
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse migration id from directory name %s: %w", dirName, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("%s has an incorrect migration id: migration id cannot be 0", dirName)
	}
	return id, nil
}

// readMigrationDir reads the up and down scripts of a single migration.
// A missing down.sql marks the migration as non-revertible; any other read
// failure is surfaced as an error.
func readMigrationDir(fsys fs.FS, dir, name string) (*Migration, error) {
	upSQL, err := fs.ReadFile(fsys, path.Join(dir, upFileName))
	if err != nil {
		return nil, fmt.Errorf("read up script of migration %s: %w", name, err)
	}

	var options []MigrationOption
	downSQL, err := fs.ReadFile(fsys, path.Join(dir, downFileName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read down script of migration %s: %w", name, err)
	default:
		options = append(options, WithDownSQL(string(downSQL)))
	}

	return NewMigration(name, string(upSQL), options...), nil
}
