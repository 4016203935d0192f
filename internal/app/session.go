package app

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MisterSquishy/RankedChoice/internal/domain"
)

// VoterConnection represents a connected voter client
type VoterConnection interface {
	Send(message interface{}) error
	GetVoterID() string
	Close() error
}

// PollSession wraps a poll with concurrency control and client management.
// All poll mutations happen inside the session mutex; notifications are
// queued there and delivered by the event loop after the lock is released,
// so no client I/O ever happens while the poll is locked.
type PollSession struct {
	poll      *domain.Poll
	mu        sync.RWMutex
	clients   map[string]VoterConnection // voterID -> client
	clientsMu sync.RWMutex
	logger    *slog.Logger

	// Event channel for broadcasting
	events chan *domain.PollEvent
	done   chan struct{}
}

// NewPollSession creates a new poll session
func NewPollSession(poll *domain.Poll, logger *slog.Logger) *PollSession {
	session := &PollSession{
		poll:    poll,
		clients: make(map[string]VoterConnection),
		logger:  logger,
		events:  make(chan *domain.PollEvent, 100),
		done:    make(chan struct{}),
	}

	// Start event broadcaster
	go session.eventLoop()

	return session
}

// GetScope returns the scope this poll is bound to
func (s *PollSession) GetScope() string {
	return s.poll.Scope
}

// GetPollID returns the poll's unique ID
func (s *PollSession) GetPollID() string {
	return s.poll.ID
}

// GetOpenedAt returns when the poll was opened
func (s *PollSession) GetOpenedAt() time.Time {
	return s.poll.OpenedAt
}

// GetClosedAt returns when the poll reached a terminal status
func (s *PollSession) GetClosedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.poll.ClosedAt
}

// GetStatus returns the poll's current lifecycle status
func (s *PollSession) GetStatus() domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.poll.Status
}

// IsOpen returns true while the poll accepts ballot activity
func (s *PollSession) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.poll.IsOpen()
}

// IsFinished returns true once the poll is closed or cancelled
func (s *PollSession) IsFinished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.poll.Status.IsFinal()
}

// GetSubmittedCount returns the number of ballots currently counting
// toward tabulation
func (s *PollSession) GetSubmittedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.poll.GetSubmittedCount()
}

// GetOptions returns the poll's option set
func (s *PollSession) GetOptions() []domain.Option {
	options := make([]domain.Option, len(s.poll.Options))
	copy(options, s.poll.Options)
	return options
}

// RegisterClient registers a client connection for a voter
func (s *PollSession) RegisterClient(voterID string, client VoterConnection) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[voterID] = client
}

// UnregisterClient removes a client connection
func (s *PollSession) UnregisterClient(voterID string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, voterID)
}

// GetClient returns the client for a voter
func (s *PollSession) GetClient(voterID string) (VoterConnection, bool) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	client, ok := s.clients[voterID]
	return client, ok
}

// RankOption appends an option to the voter's ranking and echoes the
// updated ballot back to them
func (s *PollSession) RankOption(voterID, optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ballot, err := s.poll.Rank(voterID, optionID)
	if err != nil {
		return err
	}

	s.queueEvent(domain.NewVoterEvent(domain.EventBallotUpdated, s.poll.Scope, voterID, &domain.BallotStatePayload{
		Ranking:   ballot.Snapshot(),
		Submitted: ballot.Submitted,
	}))

	return nil
}

// SubmitBallot marks the voter's ballot as final and announces the new
// submission count. The ballot itself is never broadcast.
func (s *PollSession) SubmitBallot(voterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ballot, err := s.poll.Submit(voterID)
	if err != nil {
		return err
	}

	s.queueEvent(domain.NewVoterEvent(domain.EventBallotUpdated, s.poll.Scope, voterID, &domain.BallotStatePayload{
		Ranking:   ballot.Snapshot(),
		Submitted: ballot.Submitted,
	}))
	s.queueEvent(domain.NewEvent(domain.EventBallotSubmitted, s.poll.Scope, &domain.BallotSubmittedPayload{
		VoterID:        voterID,
		SubmittedCount: s.poll.GetSubmittedCount(),
	}))

	return nil
}

// ClearBallot wipes the voter's ballot so they can start over
func (s *PollSession) ClearBallot(voterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.poll.ClearBallot(voterID); err != nil {
		return err
	}

	s.queueEvent(domain.NewVoterEvent(domain.EventBallotUpdated, s.poll.Scope, voterID, &domain.BallotStatePayload{
		Ranking:   []string{},
		Submitted: false,
	}))
	s.queueEvent(domain.NewEvent(domain.EventBallotCleared, s.poll.Scope, &domain.BallotClearedPayload{
		VoterID:        voterID,
		SubmittedCount: s.poll.GetSubmittedCount(),
	}))

	return nil
}

// GetVoterBallot returns a copy of the voter's current ranking and
// whether it has been submitted
func (s *PollSession) GetVoterBallot(voterID string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.poll.GetBallot(voterID)
}

// ClosePoll stops voting, tabulates the final result exactly once, and
// broadcasts it
func (s *PollSession) ClosePoll() (*domain.PollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.poll.Close()
	if err != nil {
		return nil, err
	}

	s.queueEvent(domain.NewEvent(domain.EventPollClosed, s.poll.Scope, s.resultsPayload(result, true)))

	s.logger.Info("poll closed",
		"scope", s.poll.Scope,
		"title", s.poll.Title,
		"outcome", result.Outcome.Kind,
		"ballots", result.BallotCount)

	return result, nil
}

// CancelPoll abandons the poll without tabulating a result
func (s *PollSession) CancelPoll(cancelledBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.poll.Cancel(); err != nil {
		return err
	}

	s.queueEvent(domain.NewEvent(domain.EventPollCancelled, s.poll.Scope, &domain.CancelledPayload{
		Title:       s.poll.Title,
		CancelledBy: cancelledBy,
	}))

	s.logger.Info("poll cancelled", "scope", s.poll.Scope, "title", s.poll.Title)

	return nil
}

// PostResults publishes current standings to everyone. While the poll is
// open this is a live preview over the ballots submitted so far; once
// closed it replays the recorded result.
func (s *PollSession) PostResults() (*domain.PollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.poll.PreviewResult()
	if err != nil {
		return nil, err
	}

	final := s.poll.Status == domain.StatusClosed
	s.queueEvent(domain.NewEvent(domain.EventResultsPosted, s.poll.Scope, s.resultsPayload(result, final)))

	return result, nil
}

// Bump nudges everyone who has not submitted yet
func (s *PollSession) Bump() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.poll.IsOpen() {
		return domain.ErrNoActivePoll
	}

	s.queueEvent(domain.NewEvent(domain.EventReminder, s.poll.Scope, &domain.ReminderPayload{
		Title:          s.poll.Title,
		OpenedAgo:      humanize.Time(s.poll.OpenedAt),
		SubmittedCount: s.poll.GetSubmittedCount(),
	}))

	return nil
}

// GetSummary returns the scope-level view of the poll for listings
func (s *PollSession) GetSummary() domain.PollSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.PollSummary{
		ID:             s.poll.ID,
		Scope:          s.poll.Scope,
		Title:          s.poll.Title,
		Description:    s.poll.Description,
		OpenedBy:       s.poll.OpenedBy,
		Status:         s.poll.Status,
		OptionCount:    len(s.poll.Options),
		SubmittedCount: s.poll.GetSubmittedCount(),
		OpenedAt:       s.poll.OpenedAt,
		OpenedAgo:      humanize.Time(s.poll.OpenedAt),
	}
}

// GetPollState returns the full poll state for a connecting voter
func (s *PollSession) GetPollState(voterID string) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranking, submitted := s.poll.GetBallot(voterID)

	state := map[string]interface{}{
		"pollId":         s.poll.ID,
		"scope":          s.poll.Scope,
		"title":          s.poll.Title,
		"description":    s.poll.Description,
		"status":         s.poll.Status,
		"options":        s.poll.Options,
		"submittedCount": s.poll.GetSubmittedCount(),
		"ballot": &domain.BallotStatePayload{
			Ranking:   ranking,
			Submitted: submitted,
		},
	}

	if s.poll.Status == domain.StatusClosed && s.poll.Result != nil {
		state["result"] = s.resultsPayload(s.poll.Result, true)
	}

	return state
}

// resultsPayload builds the outbound view of a tabulation. Caller must
// hold the session lock.
func (s *PollSession) resultsPayload(result *domain.PollResult, final bool) *domain.ResultsPayload {
	payload := &domain.ResultsPayload{
		Title:       s.poll.Title,
		Final:       final,
		Outcome:     result.Outcome,
		Rounds:      result.Rounds,
		Ballots:     result.Ballots,
		BallotCount: result.BallotCount,
	}
	if label, ok := result.WinnerLabel(s.poll.Options); ok {
		payload.WinnerLabel = label
	}
	return payload
}

// queueEvent adds an event to the broadcast queue
func (s *PollSession) queueEvent(event *domain.PollEvent) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("event queue full, dropping event", "type", event.Type)
	}
}

// eventLoop processes events and broadcasts to clients
func (s *PollSession) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			s.broadcastEvent(event)
		}
	}
}

// broadcastEvent sends an event to appropriate clients
func (s *PollSession) broadcastEvent(event *domain.PollEvent) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	// If voter-specific, send only to that voter
	if event.VoterID != "" {
		if client, ok := s.clients[event.VoterID]; ok {
			if err := client.Send(event); err != nil {
				s.logger.Debug("failed to send to client", "voterID", event.VoterID, "error", err)
			}
		}
		return
	}

	// Broadcast to all clients
	for voterID, client := range s.clients {
		if err := client.Send(event); err != nil {
			s.logger.Debug("failed to send to client", "voterID", voterID, "error", err)
		}
	}
}

// Close shuts down the session
func (s *PollSession) Close() {
	select {
	case <-s.done:
		return // Already closed
	default:
		close(s.done)
	}

	// Close all client connections
	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clients = make(map[string]VoterConnection)
	s.clientsMu.Unlock()
}
