package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hemovault/bloodbank/pkg/db"
)

// mockRequestStore keeps a single request in memory and mirrors the
// repository contract for UpdateUnitsFulfilled: the count always
// persists, and the status is promoted only when the threshold
// transition is legal.
type mockRequestStore struct {
	request              *db.BloodRequest
	getErr               error
	updateFulfilledErr   error
	updateStatusCalls    []db.RequestStatus
	updateFulfilledCalls []int
}

func (m *mockRequestStore) CreateRequest(ctx context.Context, receiverID, bloodTypeID, unitsRequired int, priority, notes string) (int, error) {
	return 0, errors.New("not implemented")
}

func (m *mockRequestStore) UpdateRequestStatus(ctx context.Context, requestID int, status db.RequestStatus) error {
	m.updateStatusCalls = append(m.updateStatusCalls, status)
	m.request.Status = status
	return nil
}

func (m *mockRequestStore) UpdateUnitsFulfilled(ctx context.Context, requestID, unitsFulfilled int) error {
	if m.updateFulfilledErr != nil {
		return m.updateFulfilledErr
	}
	m.updateFulfilledCalls = append(m.updateFulfilledCalls, unitsFulfilled)
	m.request.UnitsFulfilled = unitsFulfilled
	if unitsFulfilled >= m.request.UnitsRequired {
		if next, err := db.Transition(m.request.Status, db.EventThresholdMet); err == nil {
			m.request.Status = next
		}
	}
	return nil
}

func (m *mockRequestStore) GetAllRequests(ctx context.Context, statusFilter db.RequestStatus) ([]db.BloodRequest, error) {
	return nil, errors.New("not implemented")
}

func (m *mockRequestStore) GetRequestByID(ctx context.Context, requestID int) (*db.BloodRequest, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.request == nil || m.request.ID != requestID {
		return nil, nil
	}
	copied := *m.request
	return &copied, nil
}

func (m *mockRequestStore) SearchRequests(ctx context.Context, term string) ([]db.BloodRequest, error) {
	return nil, errors.New("not implemented")
}

// mockUnitStore tracks unit statuses keyed by id. Assignment follows
// the atomic conditional update contract: only Available units flip to
// Assigned.
type mockUnitStore struct {
	statuses    map[int]db.UnitStatus
	available   []db.BloodUnit
	assignErrs  map[int]error
	assignCalls []int
}

func (m *mockUnitStore) AddUnit(ctx context.Context, unit *db.BloodUnit) (int, error) {
	return 0, errors.New("not implemented")
}

func (m *mockUnitStore) GetUnitByID(ctx context.Context, unitID int) (*db.BloodUnit, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUnitStore) GetAllUnits(ctx context.Context) ([]db.BloodUnit, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUnitStore) GetAvailableUnitsByType(ctx context.Context, bloodTypeID int) ([]db.BloodUnit, error) {
	return m.available, nil
}

func (m *mockUnitStore) UpdateUnitStatus(ctx context.Context, unitID int, status db.UnitStatus) (bool, error) {
	if _, ok := m.statuses[unitID]; !ok {
		return false, nil
	}
	m.statuses[unitID] = status
	return true, nil
}

func (m *mockUnitStore) AssignUnitIfAvailable(ctx context.Context, unitID int) (bool, error) {
	m.assignCalls = append(m.assignCalls, unitID)
	if err, ok := m.assignErrs[unitID]; ok {
		return false, err
	}
	if m.statuses[unitID] != db.UnitAvailable {
		return false, nil
	}
	m.statuses[unitID] = db.UnitAssigned
	return true, nil
}

func (m *mockUnitStore) MarkExpiredUnits(ctx context.Context) (int, error) {
	return 0, errors.New("not implemented")
}

func pendingRequest(required, fulfilled int) *db.BloodRequest {
	return &db.BloodRequest{
		ID:             7,
		ReceiverID:     3,
		ReceiverName:   "Jane Doe",
		BloodTypeID:    2,
		BloodType:      "O-",
		UnitsRequired:  required,
		UnitsFulfilled: fulfilled,
		Priority:       db.PriorityHigh,
		Status:         db.RequestPending,
		RequestDate:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFulfillRequest_PartialThenComplete(t *testing.T) {
	requests := &mockRequestStore{request: pendingRequest(5, 0)}
	units := &mockUnitStore{statuses: map[int]db.UnitStatus{
		11: db.UnitAvailable,
		12: db.UnitAvailable,
		13: db.UnitAvailable,
		14: db.UnitAvailable,
		15: db.UnitAvailable,
	}}

	result, err := FulfillRequest(context.Background(), requests, units, zap.NewNop(), 7, []int{11, 12, 13})
	require.NoError(t, err)
	assert.Equal(t, 3, result.AssignedCount)
	assert.Empty(t, result.UnitErrors)
	assert.Equal(t, db.RequestPending, result.NewStatus)
	assert.Equal(t, 3, requests.request.UnitsFulfilled)
	assert.Equal(t, db.UnitAssigned, units.statuses[11])

	result, err = FulfillRequest(context.Background(), requests, units, zap.NewNop(), 7, []int{14, 15})
	require.NoError(t, err)
	assert.Equal(t, 2, result.AssignedCount)
	assert.Equal(t, db.RequestFulfilled, result.NewStatus)
	assert.Equal(t, 5, requests.request.UnitsFulfilled)
	assert.NotEmpty(t, result.OperationID)
}

func TestFulfillRequest_OverSelectionRejected(t *testing.T) {
	requests := &mockRequestStore{request: pendingRequest(5, 3)}
	units := &mockUnitStore{statuses: map[int]db.UnitStatus{
		11: db.UnitAvailable,
		12: db.UnitAvailable,
		13: db.UnitAvailable,
	}}

	_, err := FulfillRequest(context.Background(), requests, units, zap.NewNop(), 7, []int{11, 12, 13})
	require.Error(t, err)
	assert.True(t, db.IsValidation(err))
	assert.Contains(t, err.Error(), "3 units selected but only 2 more are needed")

	// Nothing was touched
	assert.Empty(t, units.assignCalls)
	assert.Equal(t, db.UnitAvailable, units.statuses[11])
	assert.Equal(t, 3, requests.request.UnitsFulfilled)
}

func TestFulfillRequest_EmptySelectionRejected(t *testing.T) {
	requests := &mockRequestStore{request: pendingRequest(5, 0)}
	units := &mockUnitStore{statuses: map[int]db.UnitStatus{}}

	_, err := FulfillRequest(context.Background(), requests, units, zap.NewNop(), 7, nil)
	require.Error(t, err)
	assert.True(t, db.IsValidation(err))
}

func TestFulfillRequest_CancelledStaysCancelled(t *testing.T) {
	request := pendingRequest(5, 4)
	request.Status = db.RequestCancelled
	requests := &mockRequestStore{request: request}
	units := &mockUnitStore{statuses: map[int]db.UnitStatus{21: db.UnitAvailable}}

	result, err := FulfillRequest(context.Background(), requests, units, zap.NewNop(), 7, []int{21})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AssignedCount)

	// The count persists but the terminal status never changes
	assert.Equal(t, 5, requests.request.UnitsFulfilled)
	assert.Equal(t, db.RequestCancelled, result.NewStatus)
}

func TestFulfillRequest_PartialFailureContinues(t *testing.T) {
	requests := &mockRequestStore{request: pendingRequest(5, 0)}
	units := &mockUnitStore{
		statuses: map[int]db.UnitStatus{
			31: db.UnitAvailable,
			32: db.UnitAssigned, // raced away
			33: db.UnitAvailable,
		},
		assignErrs: map[int]error{34: errors.New("connection reset")},
	}

	result, err := FulfillRequest(context.Background(), requests, units, zap.NewNop(), 7, []int{31, 32, 33, 34})
	require.NoError(t, err)
	assert.Equal(t, 2, result.AssignedCount)
	require.Len(t, result.UnitErrors, 2)
	assert.Equal(t, 32, result.UnitErrors[0].UnitID)
	assert.Equal(t, 34, result.UnitErrors[1].UnitID)
	assert.Equal(t, 2, requests.request.UnitsFulfilled)
	assert.Equal(t, db.RequestPending, result.NewStatus)
}

func TestFulfillRequest_AlreadySatisfiedIsNoOp(t *testing.T) {
	request := pendingRequest(5, 5)
	request.Status = db.RequestFulfilled
	requests := &mockRequestStore{request: request}
	units := &mockUnitStore{statuses: map[int]db.UnitStatus{41: db.UnitAvailable}}

	result, err := FulfillRequest(context.Background(), requests, units, zap.NewNop(), 7, []int{41})
	require.NoError(t, err)
	assert.Equal(t, 0, result.AssignedCount)
	assert.Equal(t, db.RequestFulfilled, result.NewStatus)
	assert.Empty(t, units.assignCalls)
}

func TestFulfillRequest_RequestNotFound(t *testing.T) {
	requests := &mockRequestStore{}
	units := &mockUnitStore{statuses: map[int]db.UnitStatus{}}

	_, err := FulfillRequest(context.Background(), requests, units, zap.NewNop(), 99, []int{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request 99 not found")
}

func TestListCandidates(t *testing.T) {
	requests := &mockRequestStore{request: pendingRequest(5, 1)}
	units := &mockUnitStore{
		statuses: map[int]db.UnitStatus{},
		available: []db.BloodUnit{
			{ID: 51, BloodTypeID: 2, Status: db.UnitAvailable},
			{ID: 52, BloodTypeID: 2, Status: db.UnitAvailable},
		},
	}

	request, candidates, err := ListCandidates(context.Background(), requests, units, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, request.ID)
	assert.Equal(t, 4, request.UnitsNeeded())
	require.Len(t, candidates, 2)
	assert.Equal(t, 51, candidates[0].ID)
}

func TestListCandidates_RequestNotFound(t *testing.T) {
	requests := &mockRequestStore{}
	units := &mockUnitStore{}

	_, _, err := ListCandidates(context.Background(), requests, units, 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request 42 not found")
}
