package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hemovault/bloodbank/pkg/db"
)

// CreateRequest validates the input and records a new Pending blood
// request for the receiver's own blood type.
func CreateRequest(ctx context.Context, requests db.RequestStore, receivers db.ReceiverStore, logger *zap.Logger, receiverID, unitsRequired int, priority, notes string) (int, error) {
	if unitsRequired <= 0 {
		return 0, &db.ValidationError{Field: "units required", Reason: "must be a positive integer"}
	}

	receiver, err := receivers.GetReceiverByID(ctx, receiverID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch receiver: %w", err)
	}
	if receiver == nil {
		return 0, &db.ValidationError{Field: "receiver", Reason: fmt.Sprintf("receiver %d not found", receiverID)}
	}

	requestID, err := requests.CreateRequest(ctx, receiverID, receiver.BloodTypeID, unitsRequired, priority, notes)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	logger.Info("Blood request created",
		zap.Int("request_id", requestID),
		zap.Int("receiver_id", receiverID),
		zap.String("blood_type", receiver.BloodType),
		zap.Int("units_required", unitsRequired))

	return requestID, nil
}

// ProcessRequest moves a Pending request into Processing.
func ProcessRequest(ctx context.Context, requests db.RequestStore, logger *zap.Logger, requestID int) error {
	return applyRequestEvent(ctx, requests, logger, requestID, db.EventProcess)
}

// CancelRequest cancels a Pending or Processing request. Cancellation
// is terminal; no further fulfillment updates will change the status.
func CancelRequest(ctx context.Context, requests db.RequestStore, logger *zap.Logger, requestID int) error {
	return applyRequestEvent(ctx, requests, logger, requestID, db.EventCancel)
}

// applyRequestEvent checks the transition is legal from the request's
// current status before issuing the (unconditional) status write.
func applyRequestEvent(ctx context.Context, requests db.RequestStore, logger *zap.Logger, requestID int, event db.RequestEvent) error {
	request, err := requests.GetRequestByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to fetch request: %w", err)
	}
	if request == nil {
		return fmt.Errorf("request %d not found", requestID)
	}

	next, err := db.Transition(request.Status, event)
	if err != nil {
		return &db.ValidationError{Field: "status", Reason: err.Error()}
	}

	if err := requests.UpdateRequestStatus(ctx, requestID, next); err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}

	logger.Info("Request status updated",
		zap.Int("request_id", requestID),
		zap.String("from", string(request.Status)),
		zap.String("to", string(next)))

	return nil
}
