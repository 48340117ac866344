package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/hemovault/bloodbank/pkg/db"
)

// AddUnit inserts a new blood unit and returns its id. The insert
// adapts to the database's column variants: the collection date column
// may be named donation_date, and storage_location/volume_ml may be
// absent entirely.
func (d *DB) AddUnit(ctx context.Context, unit *db.BloodUnit) (int, error) {
	dateCol, err := d.schema.UnitDateColumn()
	if err != nil {
		return 0, err
	}

	columns := []string{"donor_id", "blood_type_id", dateCol, "expiration_date", "status"}
	values := []any{unit.DonorID, unit.BloodTypeID, unit.CollectionDate, unit.ExpirationDate, unit.Status}

	if locCol := d.schema.UnitLocationColumn(); locCol != "" {
		columns = append(columns, locCol)
		values = append(values, unit.StorageLocation)
	}
	if d.schema.ColumnExists("blood_units", "volume_ml") {
		columns = append(columns, "volume_ml")
		values = append(values, unit.VolumeML)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`
		INSERT INTO blood_units (%s)
		VALUES (%s)
		RETURNING unit_id
	`, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	var unitID int
	if err := d.pool.QueryRow(ctx, query, values...).Scan(&unitID); err != nil {
		return 0, db.RepoErr("failed to insert blood unit", err)
	}

	return unitID, nil
}

// unitSelect builds the shared SELECT list for unit queries. The donor
// join is LEFT because donor_id is nullable on legacy rows.
func (d *DB) unitSelect() (string, error) {
	dateCol, err := d.schema.UnitDateColumn()
	if err != nil {
		return "", err
	}

	locExpr := "''"
	if locCol := d.schema.UnitLocationColumn(); locCol != "" {
		locExpr = fmt.Sprintf("COALESCE(u.%s, '')", locCol)
	}

	return fmt.Sprintf(`
		SELECT u.unit_id, u.donor_id,
		       COALESCE(d.first_name || ' ' || d.last_name, 'Unknown Donor') AS donor_name,
		       u.blood_type_id, bt.type_name AS blood_type,
		       u.%s, u.expiration_date, u.status, %s, %s
		FROM blood_units u
		JOIN blood_types bt ON u.blood_type_id = bt.blood_type_id
		LEFT JOIN donors d ON u.donor_id = d.donor_id`,
		dateCol,
		locExpr,
		d.schema.selectOptional("blood_units", "u", "volume_ml", "450"),
	), nil
}

func scanUnit(row pgx.Row, unit *db.BloodUnit) error {
	return row.Scan(
		&unit.ID, &unit.DonorID, &unit.DonorName,
		&unit.BloodTypeID, &unit.BloodType,
		&unit.CollectionDate, &unit.ExpirationDate,
		&unit.Status, &unit.StorageLocation, &unit.VolumeML,
	)
}

// GetUnitByID returns the matching unit, or nil when none exists.
func (d *DB) GetUnitByID(ctx context.Context, unitID int) (*db.BloodUnit, error) {
	query, err := d.unitSelect()
	if err != nil {
		return nil, err
	}
	query += ` WHERE u.unit_id = $1`

	var unit db.BloodUnit
	err = scanUnit(d.pool.QueryRow(ctx, query, unitID), &unit)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, db.RepoErr("failed to query blood unit", err)
	}

	return &unit, nil
}

// GetAllUnits retrieves every unit, newest collection date first.
func (d *DB) GetAllUnits(ctx context.Context) ([]db.BloodUnit, error) {
	query, err := d.unitSelect()
	if err != nil {
		return nil, err
	}
	dateCol, _ := d.schema.UnitDateColumn()
	query += fmt.Sprintf(` ORDER BY u.%s DESC`, dateCol)

	return d.queryUnits(ctx, query)
}

// GetAvailableUnitsByType retrieves Available units of exactly the
// given blood type, oldest collection date first so older stock is
// consumed before it expires.
func (d *DB) GetAvailableUnitsByType(ctx context.Context, bloodTypeID int) ([]db.BloodUnit, error) {
	query, err := d.unitSelect()
	if err != nil {
		return nil, err
	}
	dateCol, _ := d.schema.UnitDateColumn()
	query += fmt.Sprintf(`
		WHERE u.blood_type_id = $1 AND u.status = $2
		ORDER BY u.%s ASC`, dateCol)

	return d.queryUnits(ctx, query, bloodTypeID, db.UnitAvailable)
}

func (d *DB) queryUnits(ctx context.Context, query string, args ...any) ([]db.BloodUnit, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.RepoErr("failed to query blood units", err)
	}
	defer rows.Close()

	var units []db.BloodUnit
	for rows.Next() {
		var unit db.BloodUnit
		if err := scanUnit(rows, &unit); err != nil {
			return nil, db.RepoErr("failed to scan blood unit", err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, db.RepoErr("error iterating blood units", err)
	}

	return units, nil
}

// UpdateUnitStatus unconditionally overwrites a unit's status. It
// reports whether a row was affected.
func (d *DB) UpdateUnitStatus(ctx context.Context, unitID int, status db.UnitStatus) (bool, error) {
	tag, err := d.pool.Exec(ctx, `
		UPDATE blood_units
		SET status = $1
		WHERE unit_id = $2
	`, status, unitID)
	if err != nil {
		return false, db.RepoErr("failed to update blood unit status", err)
	}
	return tag.RowsAffected() > 0, nil
}

// AssignUnitIfAvailable atomically takes a unit for assignment. The
// status guard in the WHERE clause makes double-assignment impossible
// even when two fulfillment attempts race on the same unit.
func (d *DB) AssignUnitIfAvailable(ctx context.Context, unitID int) (bool, error) {
	tag, err := d.pool.Exec(ctx, `
		UPDATE blood_units
		SET status = $1
		WHERE unit_id = $2 AND status = $3
	`, db.UnitAssigned, unitID, db.UnitAvailable)
	if err != nil {
		return false, db.RepoErr("failed to assign blood unit", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkExpiredUnits expires Available units whose expiration date has
// passed. The same conditional-update guard as assignment keeps the
// sweep from touching units another caller just took.
func (d *DB) MarkExpiredUnits(ctx context.Context) (int, error) {
	tag, err := d.pool.Exec(ctx, `
		UPDATE blood_units
		SET status = $1
		WHERE status = $2 AND expiration_date < CURRENT_DATE
	`, db.UnitExpired, db.UnitAvailable)
	if err != nil {
		return 0, db.RepoErr("failed to mark expired units", err)
	}
	return int(tag.RowsAffected()), nil
}
