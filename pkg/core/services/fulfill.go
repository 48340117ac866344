package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hemovault/bloodbank/pkg/db"
)

// UnitError records the failure of a single unit assignment within a
// larger fulfillment batch.
type UnitError struct {
	UnitID int
	Err    error
}

func (e UnitError) Error() string {
	return fmt.Sprintf("unit %d: %v", e.UnitID, e.Err)
}

// FulfillmentResult summarises a fulfillment attempt
type FulfillmentResult struct {
	OperationID   string
	RequestID     int
	AssignedCount int
	NewStatus     db.RequestStatus
	UnitErrors    []UnitError
}

// ListCandidates returns the Available units a request could draw from.
// Matching is by exact blood type only; there is no cross-type
// compatibility substitution.
func ListCandidates(ctx context.Context, requests db.RequestStore, units db.UnitStore, requestID int) (*db.BloodRequest, []db.BloodUnit, error) {
	request, err := requests.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch request: %w", err)
	}
	if request == nil {
		return nil, nil, fmt.Errorf("request %d not found", requestID)
	}

	candidates, err := units.GetAvailableUnitsByType(ctx, request.BloodTypeID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch available units: %w", err)
	}

	return request, candidates, nil
}

// FulfillRequest assigns the selected units to the request and updates
// its fulfilled count. Individual unit failures do not abort the batch:
// every successfully assigned unit counts toward the request, and the
// failures come back in the result for the caller to surface.
func FulfillRequest(ctx context.Context, requests db.RequestStore, units db.UnitStore, logger *zap.Logger, requestID int, selectedUnitIDs []int) (*FulfillmentResult, error) {
	opID := uuid.New().String()
	logger = logger.With(zap.String("operation_id", opID), zap.Int("request_id", requestID))

	request, err := requests.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch request: %w", err)
	}
	if request == nil {
		return nil, fmt.Errorf("request %d not found", requestID)
	}

	needed := request.UnitsNeeded()
	if needed <= 0 {
		logger.Info("Request already has all required units", zap.Int("units_required", request.UnitsRequired))
		return &FulfillmentResult{
			OperationID: opID,
			RequestID:   requestID,
			NewStatus:   request.Status,
		}, nil
	}

	if len(selectedUnitIDs) == 0 {
		return nil, &db.ValidationError{Field: "selected units", Reason: "at least one unit must be selected"}
	}
	if len(selectedUnitIDs) > needed {
		return nil, &db.ValidationError{
			Field:  "selected units",
			Reason: fmt.Sprintf("%d units selected but only %d more are needed", len(selectedUnitIDs), needed),
		}
	}

	logger.Info("Assigning blood units",
		zap.Int("selected", len(selectedUnitIDs)),
		zap.Int("needed", needed))

	result := &FulfillmentResult{OperationID: opID, RequestID: requestID}
	for _, unitID := range selectedUnitIDs {
		assigned, err := units.AssignUnitIfAvailable(ctx, unitID)
		if err != nil {
			logger.Warn("Unit assignment failed", zap.Int("unit_id", unitID), zap.Error(err))
			result.UnitErrors = append(result.UnitErrors, UnitError{UnitID: unitID, Err: err})
			continue
		}
		if !assigned {
			logger.Warn("Unit no longer available", zap.Int("unit_id", unitID))
			result.UnitErrors = append(result.UnitErrors, UnitError{
				UnitID: unitID,
				Err:    fmt.Errorf("unit is not available for assignment"),
			})
			continue
		}
		result.AssignedCount++
	}

	if result.AssignedCount > 0 {
		newFulfilled := request.UnitsFulfilled + result.AssignedCount
		if err := requests.UpdateUnitsFulfilled(ctx, requestID, newFulfilled); err != nil {
			return nil, fmt.Errorf("assigned %d units but failed to update fulfilled count: %w",
				result.AssignedCount, err)
		}
		logger.Info("Updated fulfilled count",
			zap.Int("units_fulfilled", newFulfilled),
			zap.Int("units_required", request.UnitsRequired))
	}

	updated, err := requests.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read request after fulfillment: %w", err)
	}
	if updated != nil {
		result.NewStatus = updated.Status
	}

	logger.Info("Fulfillment completed",
		zap.Int("assigned", result.AssignedCount),
		zap.Int("failed", len(result.UnitErrors)),
		zap.String("new_status", string(result.NewStatus)))

	return result, nil
}
