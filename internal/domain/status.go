package domain

// Status represents the lifecycle state of a poll
type Status string

const (
	StatusOpen      Status = "OPEN"      // Accepting rankings and submissions
	StatusClosed    Status = "CLOSED"    // Voting stopped, result tabulated
	StatusCancelled Status = "CANCELLED" // Abandoned without tabulating a result
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if a transition from the current status to the target status is valid
func (s Status) CanTransitionTo(target Status) bool {
	validTransitions := map[Status][]Status{
		StatusOpen: {StatusClosed, StatusCancelled},
	}

	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// IsFinal reports whether the poll has reached a terminal status
func (s Status) IsFinal() bool {
	return s == StatusClosed || s == StatusCancelled
}
