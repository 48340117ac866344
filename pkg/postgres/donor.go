package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hemovault/bloodbank/pkg/db"
)

const donorSelect = `
	SELECT d.donor_id, d.first_name, d.last_name, d.dob, d.gender,
	       d.blood_type_id, bt.type_name, COALESCE(d.phone_number, ''),
	       COALESCE(d.email, ''), COALESCE(d.address, ''),
	       d.registration_date, d.last_donation_date
	FROM donors d
	JOIN blood_types bt ON d.blood_type_id = bt.blood_type_id`

func scanDonor(row pgx.Row, donor *db.Donor) error {
	return row.Scan(
		&donor.ID, &donor.FirstName, &donor.LastName,
		&donor.DateOfBirth, &donor.Gender,
		&donor.BloodTypeID, &donor.BloodType,
		&donor.PhoneNumber, &donor.Email, &donor.Address,
		&donor.RegistrationDate, &donor.LastDonationDate,
	)
}

// AddDonor inserts a new donor and returns its id
func (d *DB) AddDonor(ctx context.Context, donor *db.Donor) (int, error) {
	var donorID int
	err := d.pool.QueryRow(ctx, `
		INSERT INTO donors
		(first_name, last_name, dob, gender, blood_type_id, phone_number, email, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING donor_id
	`, donor.FirstName, donor.LastName, donor.DateOfBirth, donor.Gender,
		donor.BloodTypeID, donor.PhoneNumber, donor.Email, donor.Address).Scan(&donorID)
	if err != nil {
		return 0, db.RepoErr("failed to insert donor", err)
	}
	return donorID, nil
}

// GetDonorByID returns the matching donor, or nil when none exists.
func (d *DB) GetDonorByID(ctx context.Context, donorID int) (*db.Donor, error) {
	var donor db.Donor
	err := scanDonor(d.pool.QueryRow(ctx, donorSelect+` WHERE d.donor_id = $1`, donorID), &donor)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, db.RepoErr("failed to query donor", err)
	}
	return &donor, nil
}

// GetAllDonors retrieves every donor ordered by name
func (d *DB) GetAllDonors(ctx context.Context) ([]db.Donor, error) {
	return d.queryDonors(ctx, donorSelect+` ORDER BY d.last_name, d.first_name`)
}

// SearchDonors matches donor name, email or phone number
func (d *DB) SearchDonors(ctx context.Context, term string) ([]db.Donor, error) {
	pattern := "%" + term + "%"
	query := donorSelect + `
		WHERE d.first_name ILIKE $1
		   OR d.last_name ILIKE $1
		   OR d.email ILIKE $1
		   OR d.phone_number LIKE $1
		ORDER BY d.last_name, d.first_name`
	return d.queryDonors(ctx, query, pattern)
}

func (d *DB) queryDonors(ctx context.Context, query string, args ...any) ([]db.Donor, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.RepoErr("failed to query donors", err)
	}
	defer rows.Close()

	var donors []db.Donor
	for rows.Next() {
		var donor db.Donor
		if err := scanDonor(rows, &donor); err != nil {
			return nil, db.RepoErr("failed to scan donor", err)
		}
		donors = append(donors, donor)
	}
	if err := rows.Err(); err != nil {
		return nil, db.RepoErr("error iterating donors", err)
	}
	return donors, nil
}

// UpdateDonor overwrites a donor's demographic fields
func (d *DB) UpdateDonor(ctx context.Context, donor *db.Donor) error {
	_, err := d.pool.Exec(ctx, `
		UPDATE donors
		SET first_name = $1, last_name = $2, dob = $3, gender = $4,
		    blood_type_id = $5, phone_number = $6, email = $7, address = $8
		WHERE donor_id = $9
	`, donor.FirstName, donor.LastName, donor.DateOfBirth, donor.Gender,
		donor.BloodTypeID, donor.PhoneNumber, donor.Email, donor.Address, donor.ID)
	if err != nil {
		return db.RepoErr("failed to update donor", err)
	}
	return nil
}

// DeleteDonor removes a donor. Referential integrity for units that
// reference the donor is delegated to the database.
func (d *DB) DeleteDonor(ctx context.Context, donorID int) error {
	_, err := d.pool.Exec(ctx, `DELETE FROM donors WHERE donor_id = $1`, donorID)
	if err != nil {
		return db.RepoErr("failed to delete donor", err)
	}
	return nil
}

// SetLastDonationDate records the donor's most recent donation date
func (d *DB) SetLastDonationDate(ctx context.Context, donorID int, date time.Time) error {
	_, err := d.pool.Exec(ctx, `
		UPDATE donors
		SET last_donation_date = $1
		WHERE donor_id = $2
	`, date, donorID)
	if err != nil {
		return db.RepoErr("failed to set last donation date", err)
	}
	return nil
}
