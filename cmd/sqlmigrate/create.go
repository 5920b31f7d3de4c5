/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Scaffold a new migration",
		Long: `Scaffold a new migration in the source directory. The migration gets
the next free identifier and a directory named <id>-<name> with empty
up.sql and down.sql files to fill in.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Source == "" {
				return fmt.Errorf("migration directory is not set " +
					"(flag --source, env MIGRATION_DIR or config key migrator.source)")
			}
			dirName, err := createMigration(cfg.Source, args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created migration %s\n", filepath.Join(cfg.Source, dirName))
			return nil
		},
	}
	rootCmd.AddCommand(createCmd)
}

// createMigration scaffolds a migration directory with the next free
// identifier under sourceDir, creating sourceDir itself when missing.
// It returns the name of the created directory.
func createMigration(sourceDir, name string, now time.Time) (string, error) {
	if err := os.MkdirAll(sourceDir, 0o755); err != nil {
		return "", fmt.Errorf("create source directory %s: %w", sourceDir, err)
	}

	maxID, err := maxMigrationID(sourceDir)
	if err != nil {
		return "", err
	}

	sanitized := sanitizeMigrationName(name)
	if sanitized == "" {
		return "", fmt.Errorf("migration name %q contains no usable characters", name)
	}

	dirName := fmt.Sprintf("%04d-%s", maxID+1, sanitized)
	dirPath := filepath.Join(sourceDir, dirName)
	if err = os.Mkdir(dirPath, 0o755); err != nil {
		return "", fmt.Errorf("create migration directory %s: %w", dirPath, err)
	}

	stamp := now.Format("2006-01-02 15:04:05")
	upContent := fmt.Sprintf("-- Up migration `%s` generated at %s.\n", dirName, stamp)
	downContent := fmt.Sprintf("-- Down migration `%s` generated at %s.\n", dirName, stamp)
	if err = os.WriteFile(filepath.Join(dirPath, "up.sql"), []byte(upContent), 0o644); err != nil {
		return "", fmt.Errorf("write up script: %w", err)
	}
	if err = os.WriteFile(filepath.Join(dirPath, "down.sql"), []byte(downContent), 0o644); err != nil {
		return "", fmt.Errorf("write down script: %w", err)
	}
	return dirName, nil
}

// maxMigrationID scans sourceDir for migration directories and returns the
// highest identifier found. Entries that do not look like migrations are
// skipped so that stray files do not break scaffolding.
func maxMigrationID(sourceDir string) (uint64, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return 0, fmt.Errorf("read source directory %s: %w", sourceDir, err)
	}
	var maxID uint64
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		idStr, _, found := strings.Cut(entry.Name(), "-")
		if !found {
			continue
		}
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}
		if id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

// sanitizeMigrationName lowercases the name and keeps only characters that
// are safe in a directory name, mapping separators to underscores.
func sanitizeMigrationName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '_' || r == '.':
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
