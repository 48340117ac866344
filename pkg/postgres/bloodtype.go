package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hemovault/bloodbank/pkg/db"
)

// GetBloodTypes retrieves the blood type lookup table
func (d *DB) GetBloodTypes(ctx context.Context) ([]db.BloodType, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT blood_type_id, type_name
		FROM blood_types
		ORDER BY blood_type_id
	`)
	if err != nil {
		return nil, db.RepoErr("failed to query blood types", err)
	}
	defer rows.Close()

	var types []db.BloodType
	for rows.Next() {
		var bt db.BloodType
		if err := rows.Scan(&bt.ID, &bt.Name); err != nil {
			return nil, db.RepoErr("failed to scan blood type", err)
		}
		types = append(types, bt)
	}
	if err := rows.Err(); err != nil {
		return nil, db.RepoErr("error iterating blood types", err)
	}
	return types, nil
}

// GetBloodTypeByName resolves a type name like "B+" to its row, or nil
// when the name is unknown.
func (d *DB) GetBloodTypeByName(ctx context.Context, name string) (*db.BloodType, error) {
	var bt db.BloodType
	err := d.pool.QueryRow(ctx, `
		SELECT blood_type_id, type_name
		FROM blood_types
		WHERE type_name = $1
	`, name).Scan(&bt.ID, &bt.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, db.RepoErr("failed to query blood type", err)
	}
	return &bt, nil
}
