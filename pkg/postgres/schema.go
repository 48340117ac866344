package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hemovault/bloodbank/pkg/db"
)

// watchedTables are the tables whose columns the compatibility layer
// tracks. Databases in the field were created and patched by several
// generations of setup scripts, so optional columns and historical
// column names both have to be tolerated.
var watchedTables = []string{"donors", "receivers", "blood_types", "blood_requests", "blood_units"}

// Schema is a point-in-time snapshot of which columns exist. It is
// loaded once at startup rather than probed on every query; callers
// holding stale snapshots only see columns added after startup once
// ReloadSchema runs.
type Schema struct {
	columns map[string]map[string]bool
}

// NewSchema builds a snapshot from an explicit table -> columns map.
// Production code uses LoadSchema; this constructor exists for tests
// and for the repair routine to reason about intermediate states.
func NewSchema(tables map[string][]string) *Schema {
	s := &Schema{columns: make(map[string]map[string]bool, len(tables))}
	for table, cols := range tables {
		set := make(map[string]bool, len(cols))
		for _, c := range cols {
			set[c] = true
		}
		s.columns[table] = set
	}
	return s
}

// LoadSchema reads column metadata for the watched tables from the
// information_schema catalog.
func LoadSchema(ctx context.Context, pool *pgxpool.Pool) (*Schema, error) {
	rows, err := pool.Query(ctx, `
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = ANY($1)
	`, watchedTables)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer rows.Close()

	s := &Schema{columns: make(map[string]map[string]bool)}
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		if s.columns[table] == nil {
			s.columns[table] = make(map[string]bool)
		}
		s.columns[table][column] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	return s, nil
}

// ColumnExists reports whether the snapshot saw the given column.
func (s *Schema) ColumnExists(table, column string) bool {
	return s.columns[table][column]
}

// TableExists reports whether the snapshot saw any column for the table.
func (s *Schema) TableExists(table string) bool {
	return len(s.columns[table]) > 0
}

// ResolveColumnAlias returns the first candidate column that exists.
// When none do, it fails with a SchemaError; this layer never invents
// data for a column the database cannot hold.
func (s *Schema) ResolveColumnAlias(table string, candidates ...string) (string, error) {
	for _, c := range candidates {
		if s.ColumnExists(table, c) {
			return c, nil
		}
	}
	return "", &db.SchemaError{Table: table, Candidates: candidates}
}

// UnitDateColumn resolves the historical naming of the blood unit
// collection date column.
func (s *Schema) UnitDateColumn() (string, error) {
	return s.ResolveColumnAlias("blood_units", "collection_date", "donation_date")
}

// UnitLocationColumn resolves the storage location column name, or
// returns "" when the database has neither variant (the field is
// optional, so absence is not an error).
func (s *Schema) UnitLocationColumn() string {
	col, err := s.ResolveColumnAlias("blood_units", "storage_location", "location")
	if err != nil {
		return ""
	}
	return col
}

// selectOptional returns a SELECT list expression for an optional
// column: the qualified column wrapped in COALESCE when it exists, or
// the literal fallback when it does not.
func (s *Schema) selectOptional(table, alias, column, fallback string) string {
	if s.ColumnExists(table, column) {
		return fmt.Sprintf("COALESCE(%s.%s, %s)", alias, column, fallback)
	}
	return fallback
}

// EnsureSchema repairs known historical schema drift. The plan is
// derived from the catalog snapshot, so a database already in the
// canonical shape yields an empty plan and running the repair twice is
// the same as running it once.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if err := d.ReloadSchema(ctx); err != nil {
		return err
	}

	stmts := planBloodRequestRepairs(d.schema)
	stmts = append(stmts, planBloodUnitRepairs(d.schema)...)
	for _, stmt := range stmts {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to repair schema (%s): %w", stmt, err)
		}
	}

	if d.schema.TableExists("blood_units") {
		// Some databases carry an enum-typed status column that predates
		// the Quarantined and Discarded values. Migrating to varchar keeps
		// the full status set usable without enum surgery.
		if err := d.migrateUnitStatusToVarchar(ctx); err != nil {
			return err
		}
	}

	// Pick up the columns the repair steps added
	return d.ReloadSchema(ctx)
}

// planBloodRequestRepairs returns the DDL needed to bring the
// blood_requests table to the canonical shape. A canonical snapshot
// produces no statements.
func planBloodRequestRepairs(s *Schema) []string {
	if !s.TableExists("blood_requests") {
		return nil
	}

	var stmts []string

	// Early installs shipped with units_requested instead of units_required
	if s.ColumnExists("blood_requests", "units_requested") &&
		!s.ColumnExists("blood_requests", "units_required") {
		stmts = append(stmts,
			`ALTER TABLE blood_requests RENAME COLUMN units_requested TO units_required`)
	} else if !s.ColumnExists("blood_requests", "units_required") {
		stmts = append(stmts,
			`ALTER TABLE blood_requests ADD COLUMN units_required INTEGER NOT NULL DEFAULT 1`)
	}

	if !s.ColumnExists("blood_requests", "units_fulfilled") {
		stmts = append(stmts,
			`ALTER TABLE blood_requests ADD COLUMN units_fulfilled INTEGER NOT NULL DEFAULT 0`)
	}

	if !s.ColumnExists("blood_requests", "notes") {
		stmts = append(stmts,
			`ALTER TABLE blood_requests ADD COLUMN notes TEXT`)
	}

	return stmts
}

// planBloodUnitRepairs returns the DDL needed to bring the blood_units
// table to the canonical shape. The location alias is left alone when
// either variant exists.
func planBloodUnitRepairs(s *Schema) []string {
	if !s.TableExists("blood_units") {
		return nil
	}

	var stmts []string

	if !s.ColumnExists("blood_units", "volume_ml") {
		stmts = append(stmts,
			`ALTER TABLE blood_units ADD COLUMN volume_ml INTEGER NOT NULL DEFAULT 450`)
	}

	if _, err := s.ResolveColumnAlias("blood_units", "storage_location", "location"); err != nil {
		stmts = append(stmts,
			`ALTER TABLE blood_units ADD COLUMN storage_location VARCHAR(100)`)
	}

	return stmts
}

func (d *DB) migrateUnitStatusToVarchar(ctx context.Context) error {
	var isEnum bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.columns
			WHERE table_name = 'blood_units'
			  AND column_name = 'status'
			  AND data_type = 'USER-DEFINED'
		)
	`).Scan(&isEnum)
	if err != nil {
		return fmt.Errorf("failed to inspect status column type: %w", err)
	}
	if !isEnum {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin status migration: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		ALTER TABLE blood_units ADD COLUMN status_new VARCHAR(20);
		UPDATE blood_units SET status_new = status::text;
		ALTER TABLE blood_units DROP COLUMN status;
		ALTER TABLE blood_units RENAME COLUMN status_new TO status;
		ALTER TABLE blood_units ALTER COLUMN status SET NOT NULL;
		ALTER TABLE blood_units ALTER COLUMN status SET DEFAULT 'Available';
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate status column to varchar: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit status migration: %w", err)
	}
	return nil
}
