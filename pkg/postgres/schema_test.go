package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemovault/bloodbank/pkg/db"
)

func modernSchema() *Schema {
	return NewSchema(map[string][]string{
		"blood_units": {
			"unit_id", "donor_id", "blood_type_id", "collection_date",
			"expiration_date", "status", "storage_location", "volume_ml",
		},
		"blood_requests": {
			"request_id", "receiver_id", "blood_type_id", "units_required",
			"units_fulfilled", "priority", "status", "request_date", "notes",
		},
	})
}

func legacySchema() *Schema {
	return NewSchema(map[string][]string{
		"blood_units": {
			"unit_id", "donor_id", "blood_type_id", "donation_date",
			"expiration_date", "status", "location",
		},
		"blood_requests": {
			"request_id", "receiver_id", "blood_type_id", "units_requested",
			"priority", "status", "request_date",
		},
	})
}

func TestSchema_ColumnExists(t *testing.T) {
	s := modernSchema()

	assert.True(t, s.ColumnExists("blood_units", "collection_date"))
	assert.False(t, s.ColumnExists("blood_units", "donation_date"))
	assert.False(t, s.ColumnExists("missing_table", "anything"))
}

func TestSchema_TableExists(t *testing.T) {
	s := modernSchema()

	assert.True(t, s.TableExists("blood_units"))
	assert.False(t, s.TableExists("donors"))
}

func TestSchema_UnitDateColumn(t *testing.T) {
	col, err := modernSchema().UnitDateColumn()
	require.NoError(t, err)
	assert.Equal(t, "collection_date", col)

	col, err = legacySchema().UnitDateColumn()
	require.NoError(t, err)
	assert.Equal(t, "donation_date", col)
}

func TestSchema_UnitDateColumn_Missing(t *testing.T) {
	s := NewSchema(map[string][]string{
		"blood_units": {"unit_id", "status"},
	})

	_, err := s.UnitDateColumn()
	require.Error(t, err)

	var schemaErr *db.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "blood_units", schemaErr.Table)
	assert.Equal(t, []string{"collection_date", "donation_date"}, schemaErr.Candidates)
}

func TestSchema_UnitLocationColumn(t *testing.T) {
	assert.Equal(t, "storage_location", modernSchema().UnitLocationColumn())
	assert.Equal(t, "location", legacySchema().UnitLocationColumn())

	bare := NewSchema(map[string][]string{
		"blood_units": {"unit_id", "status"},
	})
	assert.Equal(t, "", bare.UnitLocationColumn())
}

func TestSchema_ResolveColumnAlias_PrefersFirstCandidate(t *testing.T) {
	s := NewSchema(map[string][]string{
		"blood_units": {"collection_date", "donation_date"},
	})

	col, err := s.ResolveColumnAlias("blood_units", "collection_date", "donation_date")
	require.NoError(t, err)
	assert.Equal(t, "collection_date", col)
}

func TestPlanRepairs_LegacyDatabase(t *testing.T) {
	s := legacySchema()

	requestStmts := planBloodRequestRepairs(s)
	assert.Equal(t, []string{
		`ALTER TABLE blood_requests RENAME COLUMN units_requested TO units_required`,
		`ALTER TABLE blood_requests ADD COLUMN units_fulfilled INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE blood_requests ADD COLUMN notes TEXT`,
	}, requestStmts)

	// The legacy location column is a valid alias; only volume is missing
	unitStmts := planBloodUnitRepairs(s)
	assert.Equal(t, []string{
		`ALTER TABLE blood_units ADD COLUMN volume_ml INTEGER NOT NULL DEFAULT 450`,
	}, unitStmts)
}

func TestPlanRepairs_CanonicalDatabaseNeedsNothing(t *testing.T) {
	s := modernSchema()

	assert.Empty(t, planBloodRequestRepairs(s))
	assert.Empty(t, planBloodUnitRepairs(s))
}

// Applying the planned repairs yields a snapshot whose own plan is
// empty, so a second repair run changes nothing.
func TestPlanRepairs_Idempotent(t *testing.T) {
	repaired := NewSchema(map[string][]string{
		"blood_units": {
			"unit_id", "donor_id", "blood_type_id", "donation_date",
			"expiration_date", "status", "location", "volume_ml",
		},
		"blood_requests": {
			"request_id", "receiver_id", "blood_type_id", "units_required",
			"units_fulfilled", "priority", "status", "request_date", "notes",
		},
	})

	assert.Empty(t, planBloodRequestRepairs(repaired))
	assert.Empty(t, planBloodUnitRepairs(repaired))
}

func TestPlanRepairs_MissingTables(t *testing.T) {
	s := NewSchema(map[string][]string{})

	assert.Empty(t, planBloodRequestRepairs(s))
	assert.Empty(t, planBloodUnitRepairs(s))
}

func TestPlanRepairs_NeverHadUnitsRequested(t *testing.T) {
	s := NewSchema(map[string][]string{
		"blood_requests": {"request_id", "receiver_id", "blood_type_id",
			"priority", "status", "request_date"},
	})

	stmts := planBloodRequestRepairs(s)
	assert.Contains(t, stmts,
		`ALTER TABLE blood_requests ADD COLUMN units_required INTEGER NOT NULL DEFAULT 1`)
	assert.Contains(t, stmts,
		`ALTER TABLE blood_requests ADD COLUMN units_fulfilled INTEGER NOT NULL DEFAULT 0`)
}

func TestSchema_SelectOptional(t *testing.T) {
	s := modernSchema()

	assert.Equal(t, "COALESCE(r.units_fulfilled, 0)",
		s.selectOptional("blood_requests", "r", "units_fulfilled", "0"))

	legacy := legacySchema()
	assert.Equal(t, "0",
		legacy.selectOptional("blood_requests", "r", "units_fulfilled", "0"))
	assert.Equal(t, "''",
		legacy.selectOptional("blood_requests", "r", "notes", "''"))
}
