package db

import "time"

// BloodType is a static lookup row. The eight standard types are seeded
// by the initial migration and never mutated at runtime.
type BloodType struct {
	ID   int
	Name string
}

// Donor represents a registered blood donor
type Donor struct {
	ID               int
	FirstName        string
	LastName         string
	DateOfBirth      time.Time
	Gender           string
	BloodTypeID      int
	BloodType        string
	PhoneNumber      string
	Email            string
	Address          string
	RegistrationDate time.Time
	LastDonationDate *time.Time
}

// Receiver represents a registered transfusion receiver
type Receiver struct {
	ID                   int
	FirstName            string
	LastName             string
	DateOfBirth          time.Time
	Gender               string
	BloodTypeID          int
	BloodType            string
	ReasonForTransfusion string
	HospitalName         string
	WardDetails          string
	ContactPersonName    string
	ContactPersonPhone   string
	RegistrationDate     time.Time
}

// BloodUnit is a single donated blood bag tracked by inventory status
// and expiry. DonorID is nullable because legacy rows may predate donor
// tracking.
type BloodUnit struct {
	ID              int
	DonorID         *int
	DonorName       string
	BloodTypeID     int
	BloodType       string
	CollectionDate  time.Time
	ExpirationDate  time.Time
	Status          UnitStatus
	StorageLocation string
	VolumeML        int
}

// BloodRequest is a receiver's need for a quantity of a specific blood
// type. ReceiverName and BloodType are filled in by list queries that
// join the reference tables.
type BloodRequest struct {
	ID             int
	ReceiverID     int
	ReceiverName   string
	BloodTypeID    int
	BloodType      string
	UnitsRequired  int
	UnitsFulfilled int
	Priority       Priority
	Status         RequestStatus
	RequestDate    time.Time
	Notes          string
}

// UnitsNeeded returns how many more units the request still needs.
func (r *BloodRequest) UnitsNeeded() int {
	return r.UnitsRequired - r.UnitsFulfilled
}

// InventoryRow summarises the unit stock for one blood type.
type InventoryRow struct {
	BloodTypeID   int
	BloodType     string
	Available     int
	Assigned      int
	Used          int
	Expired       int
	TotalVolumeML int
}

// RequestSummaryRow aggregates request counts for one status/priority pair.
type RequestSummaryRow struct {
	Status        RequestStatus
	Priority      Priority
	RequestCount  int
	UnitsRequired int
}

// DonorActivityRow summarises one donor's donations over a period.
type DonorActivityRow struct {
	DonorID       int
	DonorName     string
	BloodType     string
	DonationCount int
	LastDonation  *time.Time
}

// MonthlyStatsRow aggregates collections and requests for one calendar month.
type MonthlyStatsRow struct {
	Month          string
	UnitsCollected int
	RequestsMade   int
	UnitsRequested int
}
