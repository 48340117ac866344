package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hemovault/bloodbank/pkg/db"
)

// MarkExpired sweeps Available units past their expiration date into
// the Expired status and reports how many were affected.
func MarkExpired(ctx context.Context, units db.UnitStore, logger *zap.Logger) (int, error) {
	expired, err := units.MarkExpiredUnits(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired units: %w", err)
	}

	if expired > 0 {
		logger.Info("Expired blood units", zap.Int("count", expired))
	}
	return expired, nil
}
