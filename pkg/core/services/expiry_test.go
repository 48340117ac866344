package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type expiryStore struct {
	mockUnitStore
	expiredCount int
	expireErr    error
}

func (m *expiryStore) MarkExpiredUnits(ctx context.Context) (int, error) {
	if m.expireErr != nil {
		return 0, m.expireErr
	}
	return m.expiredCount, nil
}

func TestMarkExpired(t *testing.T) {
	units := &expiryStore{expiredCount: 3}

	expired, err := MarkExpired(context.Background(), units, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, expired)
}

func TestMarkExpired_Error(t *testing.T) {
	units := &expiryStore{expireErr: errors.New("connection refused")}

	_, err := MarkExpired(context.Background(), units, zap.NewNop())
	require.Error(t, err)
}
