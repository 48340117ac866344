package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hemovault/bloodbank/pkg/db"
)

const receiverSelect = `
	SELECT r.receiver_id, r.first_name, r.last_name, r.dob, r.gender,
	       r.blood_type_id, bt.type_name,
	       COALESCE(r.reason_for_transfusion, ''), COALESCE(r.hospital_name, ''),
	       COALESCE(r.ward_details, ''), COALESCE(r.contact_person_name, ''),
	       COALESCE(r.contact_person_phone, ''), r.registration_date
	FROM receivers r
	JOIN blood_types bt ON r.blood_type_id = bt.blood_type_id`

func scanReceiver(row pgx.Row, rec *db.Receiver) error {
	return row.Scan(
		&rec.ID, &rec.FirstName, &rec.LastName,
		&rec.DateOfBirth, &rec.Gender,
		&rec.BloodTypeID, &rec.BloodType,
		&rec.ReasonForTransfusion, &rec.HospitalName,
		&rec.WardDetails, &rec.ContactPersonName,
		&rec.ContactPersonPhone, &rec.RegistrationDate,
	)
}

// AddReceiver inserts a new receiver and returns its id
func (d *DB) AddReceiver(ctx context.Context, rec *db.Receiver) (int, error) {
	var receiverID int
	err := d.pool.QueryRow(ctx, `
		INSERT INTO receivers
		(first_name, last_name, dob, gender, blood_type_id, reason_for_transfusion,
		 hospital_name, ward_details, contact_person_name, contact_person_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING receiver_id
	`, rec.FirstName, rec.LastName, rec.DateOfBirth, rec.Gender, rec.BloodTypeID,
		rec.ReasonForTransfusion, rec.HospitalName, rec.WardDetails,
		rec.ContactPersonName, rec.ContactPersonPhone).Scan(&receiverID)
	if err != nil {
		return 0, db.RepoErr("failed to insert receiver", err)
	}
	return receiverID, nil
}

// GetReceiverByID returns the matching receiver, or nil when none exists.
func (d *DB) GetReceiverByID(ctx context.Context, receiverID int) (*db.Receiver, error) {
	var rec db.Receiver
	err := scanReceiver(d.pool.QueryRow(ctx, receiverSelect+` WHERE r.receiver_id = $1`, receiverID), &rec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, db.RepoErr("failed to query receiver", err)
	}
	return &rec, nil
}

// GetAllReceivers retrieves every receiver ordered by name
func (d *DB) GetAllReceivers(ctx context.Context) ([]db.Receiver, error) {
	return d.queryReceivers(ctx, receiverSelect+` ORDER BY r.last_name, r.first_name`)
}

// SearchReceivers matches receiver name, hospital or contact person
func (d *DB) SearchReceivers(ctx context.Context, term string) ([]db.Receiver, error) {
	pattern := "%" + term + "%"
	query := receiverSelect + `
		WHERE r.first_name ILIKE $1
		   OR r.last_name ILIKE $1
		   OR r.hospital_name ILIKE $1
		   OR r.contact_person_name ILIKE $1
		ORDER BY r.last_name, r.first_name`
	return d.queryReceivers(ctx, query, pattern)
}

func (d *DB) queryReceivers(ctx context.Context, query string, args ...any) ([]db.Receiver, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.RepoErr("failed to query receivers", err)
	}
	defer rows.Close()

	var receivers []db.Receiver
	for rows.Next() {
		var rec db.Receiver
		if err := scanReceiver(rows, &rec); err != nil {
			return nil, db.RepoErr("failed to scan receiver", err)
		}
		receivers = append(receivers, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, db.RepoErr("error iterating receivers", err)
	}
	return receivers, nil
}

// UpdateReceiver overwrites a receiver's fields
func (d *DB) UpdateReceiver(ctx context.Context, rec *db.Receiver) error {
	_, err := d.pool.Exec(ctx, `
		UPDATE receivers
		SET first_name = $1, last_name = $2, dob = $3, gender = $4,
		    blood_type_id = $5, reason_for_transfusion = $6, hospital_name = $7,
		    ward_details = $8, contact_person_name = $9, contact_person_phone = $10
		WHERE receiver_id = $11
	`, rec.FirstName, rec.LastName, rec.DateOfBirth, rec.Gender, rec.BloodTypeID,
		rec.ReasonForTransfusion, rec.HospitalName, rec.WardDetails,
		rec.ContactPersonName, rec.ContactPersonPhone, rec.ID)
	if err != nil {
		return db.RepoErr("failed to update receiver", err)
	}
	return nil
}

// DeleteReceiver removes a receiver. Requests referencing the receiver
// are protected by the foreign key.
func (d *DB) DeleteReceiver(ctx context.Context, receiverID int) error {
	_, err := d.pool.Exec(ctx, `DELETE FROM receivers WHERE receiver_id = $1`, receiverID)
	if err != nil {
		return db.RepoErr("failed to delete receiver", err)
	}
	return nil
}
