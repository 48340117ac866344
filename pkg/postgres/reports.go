package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hemovault/bloodbank/pkg/db"
)

// InventorySummary aggregates unit counts per blood type by status,
// plus the total volume of Available stock.
func (d *DB) InventorySummary(ctx context.Context) ([]db.InventoryRow, error) {
	volumeExpr := d.schema.selectOptional("blood_units", "u", "volume_ml", "450")
	query := fmt.Sprintf(`
		SELECT bt.blood_type_id, bt.type_name,
		       COUNT(*) FILTER (WHERE u.status = 'Available'),
		       COUNT(*) FILTER (WHERE u.status = 'Assigned'),
		       COUNT(*) FILTER (WHERE u.status = 'Used'),
		       COUNT(*) FILTER (WHERE u.status = 'Expired'),
		       COALESCE(SUM(%s) FILTER (WHERE u.status = 'Available'), 0)
		FROM blood_types bt
		LEFT JOIN blood_units u ON u.blood_type_id = bt.blood_type_id
		GROUP BY bt.blood_type_id, bt.type_name
		ORDER BY bt.blood_type_id`, volumeExpr)

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, db.RepoErr("failed to query inventory summary", err)
	}
	defer rows.Close()

	var result []db.InventoryRow
	for rows.Next() {
		var r db.InventoryRow
		if err := rows.Scan(&r.BloodTypeID, &r.BloodType,
			&r.Available, &r.Assigned, &r.Used, &r.Expired, &r.TotalVolumeML); err != nil {
			return nil, db.RepoErr("failed to scan inventory row", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, db.RepoErr("error iterating inventory summary", err)
	}
	return result, nil
}

// RequestSummary aggregates request counts by status and priority for
// requests made within [from, to].
func (d *DB) RequestSummary(ctx context.Context, from, to time.Time) ([]db.RequestSummaryRow, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT status, priority, COUNT(*), SUM(units_required)
		FROM blood_requests
		WHERE request_date >= $1 AND request_date <= $2
		GROUP BY status, priority
		ORDER BY status, priority
	`, from, to)
	if err != nil {
		return nil, db.RepoErr("failed to query request summary", err)
	}
	defer rows.Close()

	var result []db.RequestSummaryRow
	for rows.Next() {
		var r db.RequestSummaryRow
		if err := rows.Scan(&r.Status, &r.Priority, &r.RequestCount, &r.UnitsRequired); err != nil {
			return nil, db.RepoErr("failed to scan request summary row", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, db.RepoErr("error iterating request summary", err)
	}
	return result, nil
}

// DonorActivity lists donors with the number of units they donated in
// [from, to] and their most recent donation date, most active first.
func (d *DB) DonorActivity(ctx context.Context, from, to time.Time) ([]db.DonorActivityRow, error) {
	dateCol, err := d.schema.UnitDateColumn()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT dn.donor_id, dn.first_name || ' ' || dn.last_name,
		       bt.type_name, COUNT(u.unit_id), MAX(u.%[1]s)
		FROM donors dn
		JOIN blood_types bt ON dn.blood_type_id = bt.blood_type_id
		LEFT JOIN blood_units u
		       ON u.donor_id = dn.donor_id
		      AND u.%[1]s >= $1 AND u.%[1]s <= $2
		GROUP BY dn.donor_id, dn.first_name, dn.last_name, bt.type_name
		ORDER BY COUNT(u.unit_id) DESC, dn.last_name`, dateCol)

	rows, err := d.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, db.RepoErr("failed to query donor activity", err)
	}
	defer rows.Close()

	var result []db.DonorActivityRow
	for rows.Next() {
		var r db.DonorActivityRow
		if err := rows.Scan(&r.DonorID, &r.DonorName, &r.BloodType, &r.DonationCount, &r.LastDonation); err != nil {
			return nil, db.RepoErr("failed to scan donor activity row", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, db.RepoErr("error iterating donor activity", err)
	}
	return result, nil
}

// MonthlyStatistics reports per-month unit collections and request
// volume for one calendar year.
func (d *DB) MonthlyStatistics(ctx context.Context, year int) ([]db.MonthlyStatsRow, error) {
	dateCol, err := d.schema.UnitDateColumn()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		WITH months AS (
			SELECT generate_series(1, 12) AS m
		),
		collected AS (
			SELECT EXTRACT(MONTH FROM %s)::int AS m, COUNT(*) AS n
			FROM blood_units
			WHERE EXTRACT(YEAR FROM %s)::int = $1
			GROUP BY 1
		),
		requested AS (
			SELECT EXTRACT(MONTH FROM request_date)::int AS m,
			       COUNT(*) AS n, SUM(units_required) AS units
			FROM blood_requests
			WHERE EXTRACT(YEAR FROM request_date)::int = $1
			GROUP BY 1
		)
		SELECT months.m, COALESCE(collected.n, 0),
		       COALESCE(requested.n, 0), COALESCE(requested.units, 0)
		FROM months
		LEFT JOIN collected ON collected.m = months.m
		LEFT JOIN requested ON requested.m = months.m
		ORDER BY months.m`, dateCol, dateCol)

	rows, err := d.pool.Query(ctx, query, year)
	if err != nil {
		return nil, db.RepoErr("failed to query monthly statistics", err)
	}
	defer rows.Close()

	var result []db.MonthlyStatsRow
	for rows.Next() {
		var month int
		var r db.MonthlyStatsRow
		if err := rows.Scan(&month, &r.UnitsCollected, &r.RequestsMade, &r.UnitsRequested); err != nil {
			return nil, db.RepoErr("failed to scan monthly statistics row", err)
		}
		r.Month = time.Month(month).String()
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, db.RepoErr("error iterating monthly statistics", err)
	}
	return result, nil
}
