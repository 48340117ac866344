package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hemovault/bloodbank/pkg/db"
)

type mockReceiverStore struct {
	receiver *db.Receiver
	getErr   error
}

func (m *mockReceiverStore) AddReceiver(ctx context.Context, receiver *db.Receiver) (int, error) {
	return 0, errors.New("not implemented")
}

func (m *mockReceiverStore) GetReceiverByID(ctx context.Context, receiverID int) (*db.Receiver, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.receiver == nil || m.receiver.ID != receiverID {
		return nil, nil
	}
	return m.receiver, nil
}

func (m *mockReceiverStore) GetAllReceivers(ctx context.Context) ([]db.Receiver, error) {
	return nil, errors.New("not implemented")
}

func (m *mockReceiverStore) SearchReceivers(ctx context.Context, term string) ([]db.Receiver, error) {
	return nil, errors.New("not implemented")
}

func (m *mockReceiverStore) UpdateReceiver(ctx context.Context, receiver *db.Receiver) error {
	return errors.New("not implemented")
}

func (m *mockReceiverStore) DeleteReceiver(ctx context.Context, receiverID int) error {
	return errors.New("not implemented")
}

// createRecorder wraps mockRequestStore to capture CreateRequest args.
type createRecorder struct {
	mockRequestStore
	gotReceiverID  int
	gotBloodTypeID int
	gotUnits       int
	gotPriority    string
	gotNotes       string
}

func (m *createRecorder) CreateRequest(ctx context.Context, receiverID, bloodTypeID, unitsRequired int, priority, notes string) (int, error) {
	m.gotReceiverID = receiverID
	m.gotBloodTypeID = bloodTypeID
	m.gotUnits = unitsRequired
	m.gotPriority = priority
	m.gotNotes = notes
	return 101, nil
}

func TestCreateRequest_UsesReceiverBloodType(t *testing.T) {
	receivers := &mockReceiverStore{receiver: &db.Receiver{
		ID:          3,
		FirstName:   "Jane",
		LastName:    "Doe",
		BloodTypeID: 2,
		BloodType:   "O-",
	}}
	requests := &createRecorder{}

	requestID, err := CreateRequest(context.Background(), requests, receivers, zap.NewNop(), 3, 4, "Critical", "post-op")
	require.NoError(t, err)
	assert.Equal(t, 101, requestID)
	assert.Equal(t, 3, requests.gotReceiverID)
	assert.Equal(t, 2, requests.gotBloodTypeID)
	assert.Equal(t, 4, requests.gotUnits)
	assert.Equal(t, "Critical", requests.gotPriority)
	assert.Equal(t, "post-op", requests.gotNotes)
}

func TestCreateRequest_RejectsNonPositiveUnits(t *testing.T) {
	receivers := &mockReceiverStore{}
	requests := &createRecorder{}

	for _, units := range []int{0, -2} {
		_, err := CreateRequest(context.Background(), requests, receivers, zap.NewNop(), 3, units, "Medium", "")
		require.Error(t, err)
		assert.True(t, db.IsValidation(err))
	}
}

func TestCreateRequest_ReceiverNotFound(t *testing.T) {
	receivers := &mockReceiverStore{}
	requests := &createRecorder{}

	_, err := CreateRequest(context.Background(), requests, receivers, zap.NewNop(), 99, 2, "Medium", "")
	require.Error(t, err)
	assert.True(t, db.IsValidation(err))
	assert.Contains(t, err.Error(), "receiver 99 not found")
}

func TestProcessRequest(t *testing.T) {
	requests := &mockRequestStore{request: pendingRequest(5, 0)}

	err := ProcessRequest(context.Background(), requests, zap.NewNop(), 7)
	require.NoError(t, err)
	require.Len(t, requests.updateStatusCalls, 1)
	assert.Equal(t, db.RequestProcessing, requests.updateStatusCalls[0])
}

func TestProcessRequest_IllegalFromProcessing(t *testing.T) {
	request := pendingRequest(5, 0)
	request.Status = db.RequestProcessing
	requests := &mockRequestStore{request: request}

	err := ProcessRequest(context.Background(), requests, zap.NewNop(), 7)
	require.Error(t, err)
	assert.True(t, db.IsValidation(err))
	assert.Empty(t, requests.updateStatusCalls)
}

func TestCancelRequest(t *testing.T) {
	for _, status := range []db.RequestStatus{db.RequestPending, db.RequestProcessing} {
		request := pendingRequest(5, 0)
		request.Status = status
		requests := &mockRequestStore{request: request}

		err := CancelRequest(context.Background(), requests, zap.NewNop(), 7)
		require.NoError(t, err)
		assert.Equal(t, db.RequestCancelled, requests.request.Status)
	}
}

func TestCancelRequest_TerminalStatesRejected(t *testing.T) {
	for _, status := range []db.RequestStatus{db.RequestFulfilled, db.RequestCancelled} {
		request := pendingRequest(5, 5)
		request.Status = status
		requests := &mockRequestStore{request: request}

		err := CancelRequest(context.Background(), requests, zap.NewNop(), 7)
		require.Error(t, err)
		assert.True(t, db.IsValidation(err))
		assert.Equal(t, status, requests.request.Status)
	}
}

func TestProcessRequest_NotFound(t *testing.T) {
	requests := &mockRequestStore{}

	err := ProcessRequest(context.Background(), requests, zap.NewNop(), 123)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request 123 not found")
}

func TestCancelRequest_FetchError(t *testing.T) {
	requests := &mockRequestStore{getErr: errors.New("connection refused")}

	err := CancelRequest(context.Background(), requests, zap.NewNop(), 7)
	require.Error(t, err)
	assert.False(t, db.IsValidation(err))
}
