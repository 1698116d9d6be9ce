package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the catalog schema version
	CurrentSchemaVersion = "1.0.0"
)

// Migration represents a catalog schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all catalog migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

var (
	migrationV1Up   = schemaUp(StandardRelations)
	migrationV1Down = schemaDown(StandardRelations)
)

const schemaVersionDDL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// relationDDL returns the CREATE statements for one census relation. The id
// column is the gapless 1-based ordinal that ordinal slicing relies on; name
// is indexed but not UNIQUE, lookups report duplicates.
func relationDDL(rel Relation) string {
	var cols []string
	cols = append(cols,
		"id INTEGER PRIMARY KEY",
		"name TEXT NOT NULL",
		"triangulation BLOB NOT NULL",
	)
	switch rel.Shape {
	case ClosedShape:
		cols = append(cols, "m INTEGER NOT NULL DEFAULT 0", "l INTEGER NOT NULL DEFAULT 0")
	case LinkShape:
		cols = append(cols, "perm INTEGER", "DT TEXT")
	default:
		cols = append(cols, "perm INTEGER")
	}
	cols = append(cols,
		"hash BLOB",
		"volume REAL",
		"cusps INTEGER",
		"tets INTEGER",
		"betti INTEGER",
	)

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n    %s\n);\n", rel.Name, strings.Join(cols, ",\n    "))
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_name ON %s(name);\n", rel.Name, rel.Name)
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_hash ON %s(hash);\n", rel.Name, rel.Name)
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_volume ON %s(volume);\n", rel.Name, rel.Name)
	return b.String()
}

func schemaUp(rels []Relation) string {
	var b strings.Builder
	b.WriteString(schemaVersionDDL)
	for _, rel := range rels {
		b.WriteString(relationDDL(rel))
	}
	return b.String()
}

func schemaDown(rels []Relation) string {
	var b strings.Builder
	for i := len(rels) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "DROP TABLE IF EXISTS %s;\n", rels[i].Name)
	}
	b.WriteString("DROP TABLE IF EXISTS schema_version;\n")
	return b.String()
}

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	// Check if schema_version table exists
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)

	// Parse current version (default to 0.0.0 if no migrations applied or table doesn't exist)
	var currentVersion *semver.Version
	if err == sql.ErrNoRows {
		currentVersion = semver.MustParse("0.0.0")
	} else if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	} else {
		var currentVersionStr string
		err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersionStr)
		if err == sql.ErrNoRows || currentVersionStr == "" {
			currentVersion = semver.MustParse("0.0.0")
		} else if err != nil {
			return fmt.Errorf("failed to read schema_version: %w", err)
		} else {
			currentVersion, err = semver.NewVersion(currentVersionStr)
			if err != nil {
				return fmt.Errorf("invalid current schema version %s: %w", currentVersionStr, err)
			}
		}
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err = db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		if _, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	var currentVersion string
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("no migrations to rollback: %w", err)
	}

	var migration *Migration
	for i := range AllMigrations {
		if AllMigrations[i].Version == currentVersion {
			migration = &AllMigrations[i]
			break
		}
	}

	if migration == nil {
		return fmt.Errorf("migration %s not found", currentVersion)
	}

	if _, err = db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", currentVersion, err)
	}

	// The down script drops schema_version along with the relations.
	return nil
}
