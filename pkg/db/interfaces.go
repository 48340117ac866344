package db

import (
	"context"
	"time"
)

// RequestStore defines the interface for blood request database operations
type RequestStore interface {
	// CreateRequest inserts a new Pending request with zero units
	// fulfilled and returns its generated id. The priority string is
	// normalized into the four-value set before being stored.
	CreateRequest(ctx context.Context, receiverID, bloodTypeID, unitsRequired int, priority, notes string) (int, error)
	// UpdateRequestStatus unconditionally overwrites the status. Callers
	// are responsible for only invoking legal transitions.
	UpdateRequestStatus(ctx context.Context, requestID int, status RequestStatus) error
	// UpdateUnitsFulfilled persists the new count and, within the same
	// transaction, promotes the request to Fulfilled once the count
	// reaches units_required, unless the request is Cancelled.
	UpdateUnitsFulfilled(ctx context.Context, requestID, unitsFulfilled int) error
	// GetAllRequests lists requests newest first, joined with receiver
	// and blood type names. An empty statusFilter means all statuses.
	GetAllRequests(ctx context.Context, statusFilter RequestStatus) ([]BloodRequest, error)
	// GetRequestByID returns nil (not an error) when no request matches.
	GetRequestByID(ctx context.Context, requestID int) (*BloodRequest, error)
	// SearchRequests matches receiver name, blood type, status or
	// priority, case-insensitively.
	SearchRequests(ctx context.Context, term string) ([]BloodRequest, error)
}

// UnitStore defines the interface for blood unit database operations
type UnitStore interface {
	AddUnit(ctx context.Context, unit *BloodUnit) (int, error)
	GetUnitByID(ctx context.Context, unitID int) (*BloodUnit, error)
	GetAllUnits(ctx context.Context) ([]BloodUnit, error)
	// GetAvailableUnitsByType returns Available units of exactly the
	// given type, oldest collection date first (FIFO rotation).
	GetAvailableUnitsByType(ctx context.Context, bloodTypeID int) ([]BloodUnit, error)
	// UpdateUnitStatus unconditionally overwrites a unit's status and
	// reports whether a row was affected.
	UpdateUnitStatus(ctx context.Context, unitID int, status UnitStatus) (bool, error)
	// AssignUnitIfAvailable atomically moves a unit from Available to
	// Assigned. It returns false when the unit was not Available, so an
	// already-assigned unit can never be taken twice.
	AssignUnitIfAvailable(ctx context.Context, unitID int) (bool, error)
	// MarkExpiredUnits moves Available units past their expiration date
	// to Expired and returns how many were affected.
	MarkExpiredUnits(ctx context.Context) (int, error)
}

// DonorStore defines the interface for donor database operations
type DonorStore interface {
	AddDonor(ctx context.Context, donor *Donor) (int, error)
	GetDonorByID(ctx context.Context, donorID int) (*Donor, error)
	GetAllDonors(ctx context.Context) ([]Donor, error)
	SearchDonors(ctx context.Context, term string) ([]Donor, error)
	UpdateDonor(ctx context.Context, donor *Donor) error
	DeleteDonor(ctx context.Context, donorID int) error
	SetLastDonationDate(ctx context.Context, donorID int, date time.Time) error
}

// ReceiverStore defines the interface for receiver database operations
type ReceiverStore interface {
	AddReceiver(ctx context.Context, receiver *Receiver) (int, error)
	GetReceiverByID(ctx context.Context, receiverID int) (*Receiver, error)
	GetAllReceivers(ctx context.Context) ([]Receiver, error)
	SearchReceivers(ctx context.Context, term string) ([]Receiver, error)
	UpdateReceiver(ctx context.Context, receiver *Receiver) error
	DeleteReceiver(ctx context.Context, receiverID int) error
}

// BloodTypeStore defines read access to the blood type lookup table
type BloodTypeStore interface {
	GetBloodTypes(ctx context.Context) ([]BloodType, error)
	GetBloodTypeByName(ctx context.Context, name string) (*BloodType, error)
}

// ReportStore defines the read-only aggregation queries
type ReportStore interface {
	InventorySummary(ctx context.Context) ([]InventoryRow, error)
	RequestSummary(ctx context.Context, from, to time.Time) ([]RequestSummaryRow, error)
	DonorActivity(ctx context.Context, from, to time.Time) ([]DonorActivityRow, error)
	MonthlyStatistics(ctx context.Context, year int) ([]MonthlyStatsRow, error)
}

// Database aggregates every store. The postgres.DB implementation
// satisfies this interface.
type Database interface {
	RequestStore
	UnitStore
	DonorStore
	ReceiverStore
	BloodTypeStore
	ReportStore
}
