package services

import "github.com/hemovault/bloodbank/pkg/db"

// FilterRequestsByStatus keeps the requests in the given status. An
// empty status returns the input unchanged, matching the repository's
// empty-filter convention.
func FilterRequestsByStatus(requests []db.BloodRequest, status db.RequestStatus) []db.BloodRequest {
	if status == "" {
		return requests
	}

	var filtered []db.BloodRequest
	for _, r := range requests {
		if r.Status == status {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
