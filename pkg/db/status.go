package db

import "fmt"

// RequestStatus is the lifecycle state of a blood request
type RequestStatus string

const (
	RequestPending    RequestStatus = "Pending"
	RequestProcessing RequestStatus = "Processing"
	RequestFulfilled  RequestStatus = "Fulfilled"
	RequestCancelled  RequestStatus = "Cancelled"
)

// UnitStatus is the inventory state of a blood unit
type UnitStatus string

const (
	UnitAvailable   UnitStatus = "Available"
	UnitAssigned    UnitStatus = "Assigned"
	UnitUsed        UnitStatus = "Used"
	UnitExpired     UnitStatus = "Expired"
	UnitQuarantined UnitStatus = "Quarantined"
	UnitDiscarded   UnitStatus = "Discarded"
)

// ParseUnitStatus validates a caller-supplied unit status string
// against the fixed status set.
func ParseUnitStatus(raw string) (UnitStatus, error) {
	switch s := UnitStatus(raw); s {
	case UnitAvailable, UnitAssigned, UnitUsed, UnitExpired, UnitQuarantined, UnitDiscarded:
		return s, nil
	}
	return "", &ValidationError{Field: "unit status", Reason: fmt.Sprintf("unknown status %q", raw)}
}

// Priority is the urgency tier of a blood request
type Priority string

const (
	PriorityUrgent Priority = "Urgent"
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// prioritySynonyms maps priority names that callers commonly supply to
// the stored four-value set. Values already in the set pass through.
var prioritySynonyms = map[string]Priority{
	"Normal":   PriorityMedium,
	"Critical": PriorityUrgent,
}

// NormalizePriority maps a caller-supplied priority string into the
// fixed four-value set. Synonyms are translated and anything
// unrecognised defaults to Medium.
func NormalizePriority(raw string) Priority {
	if mapped, ok := prioritySynonyms[raw]; ok {
		return mapped
	}
	switch p := Priority(raw); p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return p
	}
	return PriorityMedium
}

// RequestEvent is a trigger for a request status transition
type RequestEvent string

const (
	// EventProcess is the explicit Pending -> Processing transition
	EventProcess RequestEvent = "process"
	// EventCancel moves a request into the terminal Cancelled state
	EventCancel RequestEvent = "cancel"
	// EventThresholdMet fires when units_fulfilled reaches units_required
	EventThresholdMet RequestEvent = "threshold_met"
)

// Transition computes the next request status for an event. It returns
// an error when the event is not legal from the current status; the
// terminal states Fulfilled and Cancelled accept no events at all.
func Transition(current RequestStatus, event RequestEvent) (RequestStatus, error) {
	switch event {
	case EventProcess:
		if current == RequestPending {
			return RequestProcessing, nil
		}
	case EventCancel:
		if current == RequestPending || current == RequestProcessing {
			return RequestCancelled, nil
		}
	case EventThresholdMet:
		if current == RequestPending || current == RequestProcessing {
			return RequestFulfilled, nil
		}
	default:
		return current, fmt.Errorf("unknown request event %q", event)
	}
	return current, fmt.Errorf("cannot apply event %q to request in status %q", event, current)
}
