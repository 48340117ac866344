package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hemovault/bloodbank/pkg/db"
)

// CreateRequest inserts a new Pending blood request and returns its id.
// The priority is normalized into the stored four-value set; the notes
// column is skipped when the database predates it.
func (d *DB) CreateRequest(ctx context.Context, receiverID, bloodTypeID, unitsRequired int, priority, notes string) (int, error) {
	actualPriority := db.NormalizePriority(priority)

	var requestID int
	var err error
	if d.schema.ColumnExists("blood_requests", "notes") {
		err = d.pool.QueryRow(ctx, `
			INSERT INTO blood_requests
			(receiver_id, blood_type_id, units_required, priority, status, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING request_id
		`, receiverID, bloodTypeID, unitsRequired, actualPriority, db.RequestPending, notes).Scan(&requestID)
	} else {
		err = d.pool.QueryRow(ctx, `
			INSERT INTO blood_requests
			(receiver_id, blood_type_id, units_required, priority, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING request_id
		`, receiverID, bloodTypeID, unitsRequired, actualPriority, db.RequestPending).Scan(&requestID)
	}
	if err != nil {
		return 0, db.RepoErr("failed to insert blood request", err)
	}

	return requestID, nil
}

// UpdateRequestStatus unconditionally sets the status of a request.
// Transition legality is the caller's responsibility.
func (d *DB) UpdateRequestStatus(ctx context.Context, requestID int, status db.RequestStatus) error {
	_, err := d.pool.Exec(ctx, `
		UPDATE blood_requests
		SET status = $1
		WHERE request_id = $2
	`, status, requestID)
	if err != nil {
		return db.RepoErr("failed to update request status", err)
	}
	return nil
}

// promoteOnThreshold decides whether a fulfilled-count write also
// promotes the request. The transition table refuses the event for
// Cancelled (and already-Fulfilled) requests, which keeps cancellation
// sticky.
func promoteOnThreshold(status db.RequestStatus, fulfilled, required int) (db.RequestStatus, bool) {
	if fulfilled < required {
		return status, false
	}
	next, err := db.Transition(status, db.EventThresholdMet)
	if err != nil {
		return status, false
	}
	return next, true
}

// UpdateUnitsFulfilled persists the new fulfilled count and promotes
// the request to Fulfilled when the count reaches units_required. The
// write, the threshold read and the conditional promotion all run in
// one transaction so a concurrent cancellation is never overwritten.
func (d *DB) UpdateUnitsFulfilled(ctx context.Context, requestID, unitsFulfilled int) error {
	if !d.schema.ColumnExists("blood_requests", "units_fulfilled") {
		return &db.SchemaError{Table: "blood_requests", Candidates: []string{"units_fulfilled"}}
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return db.RepoErr("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE blood_requests
		SET units_fulfilled = $1
		WHERE request_id = $2
	`, unitsFulfilled, requestID)
	if err != nil {
		return db.RepoErr("failed to update units_fulfilled", err)
	}

	var unitsRequired int
	var status db.RequestStatus
	err = tx.QueryRow(ctx, `
		SELECT units_required, status
		FROM blood_requests
		WHERE request_id = $1
	`, requestID).Scan(&unitsRequired, &status)
	if err != nil {
		return db.RepoErr("failed to read units_required", err)
	}

	if next, promote := promoteOnThreshold(status, unitsFulfilled, unitsRequired); promote {
		_, err = tx.Exec(ctx, `
			UPDATE blood_requests
			SET status = $1
			WHERE request_id = $2
		`, next, requestID)
		if err != nil {
			return db.RepoErr("failed to promote request to fulfilled", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return db.RepoErr("failed to commit units_fulfilled update", err)
	}
	return nil
}

// requestSelect builds the shared SELECT list for request queries,
// falling back to literals for columns the database may lack.
func (d *DB) requestSelect() string {
	return fmt.Sprintf(`
		SELECT br.request_id, br.receiver_id,
		       r.first_name || ' ' || r.last_name AS receiver_name,
		       br.blood_type_id, bt.type_name AS blood_type,
		       br.units_required, %s, br.priority, br.status,
		       br.request_date, %s
		FROM blood_requests br
		JOIN receivers r ON br.receiver_id = r.receiver_id
		JOIN blood_types bt ON br.blood_type_id = bt.blood_type_id`,
		d.schema.selectOptional("blood_requests", "br", "units_fulfilled", "0"),
		d.schema.selectOptional("blood_requests", "br", "notes", "''"),
	)
}

func scanRequest(row pgx.Row, req *db.BloodRequest) error {
	return row.Scan(
		&req.ID, &req.ReceiverID, &req.ReceiverName,
		&req.BloodTypeID, &req.BloodType,
		&req.UnitsRequired, &req.UnitsFulfilled,
		&req.Priority, &req.Status,
		&req.RequestDate, &req.Notes,
	)
}

// GetAllRequests retrieves requests joined with receiver and blood type
// names, newest first. A non-empty statusFilter restricts the result.
func (d *DB) GetAllRequests(ctx context.Context, statusFilter db.RequestStatus) ([]db.BloodRequest, error) {
	query := d.requestSelect()
	var args []any
	if statusFilter != "" {
		query += ` WHERE br.status = $1`
		args = append(args, statusFilter)
	}
	query += ` ORDER BY br.request_date DESC`

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.RepoErr("failed to query blood requests", err)
	}
	defer rows.Close()

	var requests []db.BloodRequest
	for rows.Next() {
		var req db.BloodRequest
		if err := scanRequest(rows, &req); err != nil {
			return nil, db.RepoErr("failed to scan blood request", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, db.RepoErr("error iterating blood requests", err)
	}

	return requests, nil
}

// GetRequestByID returns the matching request, or nil when none exists.
func (d *DB) GetRequestByID(ctx context.Context, requestID int) (*db.BloodRequest, error) {
	query := d.requestSelect() + ` WHERE br.request_id = $1`

	var req db.BloodRequest
	err := scanRequest(d.pool.QueryRow(ctx, query, requestID), &req)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, db.RepoErr("failed to query blood request", err)
	}

	return &req, nil
}

// SearchRequests finds requests whose receiver name, blood type, status
// or priority contains the term, case-insensitively.
func (d *DB) SearchRequests(ctx context.Context, term string) ([]db.BloodRequest, error) {
	pattern := "%" + term + "%"
	query := d.requestSelect() + `
		WHERE r.first_name ILIKE $1
		   OR r.last_name ILIKE $1
		   OR bt.type_name ILIKE $1
		   OR br.status::text ILIKE $1
		   OR br.priority::text ILIKE $1
		ORDER BY br.request_date DESC`

	rows, err := d.pool.Query(ctx, query, pattern)
	if err != nil {
		return nil, db.RepoErr("failed to search blood requests", err)
	}
	defer rows.Close()

	var requests []db.BloodRequest
	for rows.Next() {
		var req db.BloodRequest
		if err := scanRequest(rows, &req); err != nil {
			return nil, db.RepoErr("failed to scan blood request", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, db.RepoErr("error iterating blood requests", err)
	}

	return requests, nil
}
