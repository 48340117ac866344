package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Priority
	}{
		{"canonical urgent", "Urgent", PriorityUrgent},
		{"canonical high", "High", PriorityHigh},
		{"canonical medium", "Medium", PriorityMedium},
		{"canonical low", "Low", PriorityLow},
		{"legacy normal maps to medium", "Normal", PriorityMedium},
		{"legacy critical maps to urgent", "Critical", PriorityUrgent},
		{"unknown value defaults to medium", "Bogus", PriorityMedium},
		{"empty value defaults to medium", "", PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePriority(tt.input))
		})
	}
}

func TestParseUnitStatus(t *testing.T) {
	for _, valid := range []UnitStatus{
		UnitAvailable, UnitAssigned, UnitUsed,
		UnitExpired, UnitQuarantined, UnitDiscarded,
	} {
		status, err := ParseUnitStatus(string(valid))
		require.NoError(t, err)
		assert.Equal(t, valid, status)
	}
}

func TestParseUnitStatus_Invalid(t *testing.T) {
	for _, raw := range []string{"", "available", "Missing", "Reserved"} {
		_, err := ParseUnitStatus(raw)
		require.Error(t, err, "status %q", raw)
		assert.True(t, IsValidation(err))
	}
}

func TestTransition_LegalMoves(t *testing.T) {
	tests := []struct {
		name     string
		current  RequestStatus
		event    RequestEvent
		expected RequestStatus
	}{
		{"process pending", RequestPending, EventProcess, RequestProcessing},
		{"cancel pending", RequestPending, EventCancel, RequestCancelled},
		{"cancel processing", RequestProcessing, EventCancel, RequestCancelled},
		{"threshold met on pending", RequestPending, EventThresholdMet, RequestFulfilled},
		{"threshold met on processing", RequestProcessing, EventThresholdMet, RequestFulfilled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Transition(tt.current, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, next)
		})
	}
}

func TestTransition_IllegalMoves(t *testing.T) {
	tests := []struct {
		name    string
		current RequestStatus
		event   RequestEvent
	}{
		{"process processing", RequestProcessing, EventProcess},
		{"process fulfilled", RequestFulfilled, EventProcess},
		{"process cancelled", RequestCancelled, EventProcess},
		{"cancel fulfilled", RequestFulfilled, EventCancel},
		{"cancel cancelled", RequestCancelled, EventCancel},
		{"threshold met on fulfilled", RequestFulfilled, EventThresholdMet},
		{"threshold met on cancelled", RequestCancelled, EventThresholdMet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transition(tt.current, tt.event)
			require.Error(t, err)
		})
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	_, err := Transition(RequestStatus("Archived"), EventProcess)
	require.Error(t, err)
}
