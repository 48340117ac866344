package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hemovault/bloodbank/pkg/db"
)

// DefaultVolumeML is the standard volume of one donated blood bag.
const DefaultVolumeML = 450

// Donation describes one recorded donation event
type Donation struct {
	DonorID         int
	CollectionDate  time.Time
	ExpirationDate  time.Time
	StorageLocation string
	VolumeML        int
}

// RecordDonation validates and stores a new donation: a fresh Available
// unit of the donor's blood type, and the donor's last donation date.
func RecordDonation(ctx context.Context, donors db.DonorStore, units db.UnitStore, logger *zap.Logger, donation Donation) (int, error) {
	if !donation.CollectionDate.Before(donation.ExpirationDate) {
		return 0, &db.ValidationError{
			Field:  "expiration date",
			Reason: "must be after the collection date",
		}
	}
	if donation.VolumeML < 0 {
		return 0, &db.ValidationError{Field: "volume", Reason: "must not be negative"}
	}

	donor, err := donors.GetDonorByID(ctx, donation.DonorID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch donor: %w", err)
	}
	if donor == nil {
		return 0, &db.ValidationError{Field: "donor", Reason: fmt.Sprintf("donor %d not found", donation.DonorID)}
	}

	volume := donation.VolumeML
	if volume == 0 {
		volume = DefaultVolumeML
	}

	unit := &db.BloodUnit{
		DonorID:         &donor.ID,
		BloodTypeID:     donor.BloodTypeID,
		CollectionDate:  donation.CollectionDate,
		ExpirationDate:  donation.ExpirationDate,
		Status:          db.UnitAvailable,
		StorageLocation: donation.StorageLocation,
		VolumeML:        volume,
	}

	unitID, err := units.AddUnit(ctx, unit)
	if err != nil {
		return 0, fmt.Errorf("failed to add blood unit: %w", err)
	}

	if err := donors.SetLastDonationDate(ctx, donor.ID, donation.CollectionDate); err != nil {
		// The unit is already recorded; the donor row is secondary
		logger.Warn("Failed to update donor's last donation date",
			zap.Int("donor_id", donor.ID), zap.Error(err))
	}

	logger.Info("Donation recorded",
		zap.Int("unit_id", unitID),
		zap.Int("donor_id", donor.ID),
		zap.String("blood_type", donor.BloodType),
		zap.Int("volume_ml", volume))

	return unitID, nil
}
