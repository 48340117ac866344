package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hemovault/bloodbank/pkg/db"
)

func TestPromoteOnThreshold(t *testing.T) {
	tests := []struct {
		name       string
		status     db.RequestStatus
		fulfilled  int
		required   int
		wantStatus db.RequestStatus
		wantWrite  bool
	}{
		{"below threshold stays put", db.RequestPending, 3, 5, db.RequestPending, false},
		{"pending promotes at threshold", db.RequestPending, 5, 5, db.RequestFulfilled, true},
		{"processing promotes at threshold", db.RequestProcessing, 5, 5, db.RequestFulfilled, true},
		{"promotes past threshold", db.RequestProcessing, 6, 5, db.RequestFulfilled, true},
		{"cancelled never promotes", db.RequestCancelled, 5, 5, db.RequestCancelled, false},
		{"fulfilled needs no second write", db.RequestFulfilled, 5, 5, db.RequestFulfilled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, write := promoteOnThreshold(tt.status, tt.fulfilled, tt.required)
			assert.Equal(t, tt.wantStatus, next)
			assert.Equal(t, tt.wantWrite, write)
		})
	}
}

// A cancelled request keeps receiving count writes without its terminal
// status ever changing, no matter how many times the threshold is hit.
func TestPromoteOnThreshold_CancellationSticky(t *testing.T) {
	for fulfilled := 5; fulfilled <= 8; fulfilled++ {
		next, write := promoteOnThreshold(db.RequestCancelled, fulfilled, 5)
		assert.False(t, write)
		assert.Equal(t, db.RequestCancelled, next)
	}
}
