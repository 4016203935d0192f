package domain

import "time"

// EventType represents the type of poll event
type EventType string

const (
	EventBallotUpdated   EventType = "BALLOT_UPDATED"   // Voter-specific: their ballot changed
	EventBallotSubmitted EventType = "BALLOT_SUBMITTED" // Broadcast: someone turned in a ballot
	EventBallotCleared   EventType = "BALLOT_CLEARED"   // Broadcast: someone reset their ballot
	EventResultsPosted   EventType = "RESULTS_POSTED"   // Broadcast: standings published
	EventPollClosed      EventType = "POLL_CLOSED"      // Broadcast: voting ended with a final result
	EventPollCancelled   EventType = "POLL_CANCELLED"   // Broadcast: poll abandoned
	EventReminder        EventType = "REMINDER"         // Broadcast: nudge to vote
)

// PollEvent represents something that happened in a poll
type PollEvent struct {
	Type      EventType   `json:"type"`
	Scope     string      `json:"scope"`
	VoterID   string      `json:"voterId,omitempty"` // If event is voter-specific
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new broadcast poll event
func NewEvent(eventType EventType, scope string, payload interface{}) *PollEvent {
	return &PollEvent{
		Type:      eventType,
		Scope:     scope,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewVoterEvent creates a new voter-specific poll event
func NewVoterEvent(eventType EventType, scope, voterID string, payload interface{}) *PollEvent {
	return &PollEvent{
		Type:      eventType,
		Scope:     scope,
		VoterID:   voterID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Payload types for different events

// BallotStatePayload carries a voter's own ballot back to them
type BallotStatePayload struct {
	Ranking   []string `json:"ranking"`
	Submitted bool     `json:"submitted"`
}

// BallotSubmittedPayload is sent to everyone when a ballot is turned in
// (without revealing its contents)
type BallotSubmittedPayload struct {
	VoterID        string `json:"voterId"`
	SubmittedCount int    `json:"submittedCount"`
}

// BallotClearedPayload is sent to everyone when a voter starts over
type BallotClearedPayload struct {
	VoterID        string `json:"voterId"`
	SubmittedCount int    `json:"submittedCount"`
}

// ResultsPayload is sent when results are published, either as a live
// preview or as the final word
type ResultsPayload struct {
	Title       string       `json:"title"`
	Final       bool         `json:"final"`
	Outcome     Outcome      `json:"outcome"`
	WinnerLabel string       `json:"winnerLabel,omitempty"`
	Rounds      []TallyRound `json:"rounds"`
	Ballots     [][]string   `json:"ballots"`
	BallotCount int          `json:"ballotCount"`
}

// CancelledPayload is sent when a poll is abandoned
type CancelledPayload struct {
	Title       string `json:"title"`
	CancelledBy string `json:"cancelledBy,omitempty"`
}

// ReminderPayload nudges voters who have not submitted yet
type ReminderPayload struct {
	Title          string `json:"title"`
	OpenedAgo      string `json:"openedAgo"`
	SubmittedCount int    `json:"submittedCount"`
}

// PollSummary is the scope-level view of a poll for listings
type PollSummary struct {
	ID             string    `json:"id"`
	Scope          string    `json:"scope"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	OpenedBy       string    `json:"openedBy,omitempty"`
	Status         Status    `json:"status"`
	OptionCount    int       `json:"optionCount"`
	SubmittedCount int       `json:"submittedCount"`
	OpenedAt       time.Time `json:"openedAt"`
	OpenedAgo      string    `json:"openedAgo,omitempty"`
}
