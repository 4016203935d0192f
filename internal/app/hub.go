package app

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MisterSquishy/RankedChoice/internal/domain"
)

const (
	// DefaultResultRetention is how long a finished poll stays queryable
	// before the cleanup loop reaps it
	DefaultResultRetention = 24 * time.Hour

	// DefaultCleanupInterval is how often the cleanup loop runs
	DefaultCleanupInterval = 10 * time.Minute
)

// PollSpec carries everything needed to open a poll in a scope
type PollSpec struct {
	Title       string
	Description string
	OpenedBy    string
	Options     []domain.Option
}

// PollHub manages the poll session for every scope. A scope holds at
// most one session at a time; a finished poll lingers for result
// queries until a new poll supersedes it or retention expires.
type PollHub struct {
	sessions        map[string]*PollSession // scope -> session
	mu              sync.RWMutex
	retention       time.Duration
	cleanupInterval time.Duration
	logger          *slog.Logger
	done            chan struct{}
}

// NewPollHub creates a new poll hub. Non-positive durations fall back
// to the defaults.
func NewPollHub(logger *slog.Logger, retention, cleanupInterval time.Duration) *PollHub {
	if retention <= 0 {
		retention = DefaultResultRetention
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	hub := &PollHub{
		sessions:        make(map[string]*PollSession),
		retention:       retention,
		cleanupInterval: cleanupInterval,
		logger:          logger,
		done:            make(chan struct{}),
	}

	// Start cleanup goroutine
	go hub.cleanupLoop()

	return hub
}

// OpenPoll opens a new poll in the scope. An open poll in the same
// scope blocks the new one; a finished poll is cleared and superseded
// only once the incoming poll is valid.
func (h *PollHub) OpenPoll(scope string, spec PollSpec) (*PollSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	existing, ok := h.sessions[scope]
	if ok && existing.IsOpen() {
		return nil, domain.ErrPollAlreadyOpen
	}

	poll, err := domain.NewPoll(uuid.New().String(), scope, spec.Title, spec.Description, spec.OpenedBy, spec.Options)
	if err != nil {
		return nil, err
	}

	// A rejected open leaves the finished poll in place
	if ok {
		existing.Close()
		delete(h.sessions, scope)
	}

	session := NewPollSession(poll, h.logger)
	h.sessions[scope] = session

	h.logger.Info("poll opened", "scope", scope, "title", poll.Title, "options", len(poll.Options))

	return session, nil
}

// GetSession returns the scope's session regardless of status
func (h *PollHub) GetSession(scope string) (*PollSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	session, ok := h.sessions[scope]
	if !ok {
		return nil, domain.ErrNoActivePoll
	}

	return session, nil
}

// DeleteSession removes all poll state for a scope
func (h *PollHub) DeleteSession(scope string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if session, ok := h.sessions[scope]; ok {
		session.Close()
		delete(h.sessions, scope)
		h.logger.Info("poll deleted", "scope", scope)
	}
}

// GetSessions returns every session ordered by scope
func (h *PollHub) GetSessions() []*PollSession {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessions := make([]*PollSession, 0, len(h.sessions))
	for _, session := range h.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].GetScope() < sessions[j].GetScope()
	})

	return sessions
}

// GetSessionCount returns the number of tracked sessions
func (h *PollHub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// GetOpenPollCount returns the number of polls still accepting ballots
func (h *PollHub) GetOpenPollCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, session := range h.sessions {
		if session.IsOpen() {
			count++
		}
	}
	return count
}

// GetTotalBallotCount returns the number of submitted ballots across
// all sessions
func (h *PollHub) GetTotalBallotCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, session := range h.sessions {
		total += session.GetSubmittedCount()
	}
	return total
}

// Close shuts down the hub and all sessions
func (h *PollHub) Close() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, session := range h.sessions {
		session.Close()
	}
	h.sessions = make(map[string]*PollSession)
}

// cleanupLoop periodically reaps finished polls past retention
func (h *PollHub) cleanupLoop() {
	ticker := time.NewTicker(h.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.cleanupFinishedPolls()
		}
	}
}

// cleanupFinishedPolls removes finished polls whose results have been
// retained long enough
func (h *PollHub) cleanupFinishedPolls() {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	stale := make([]string, 0)

	for scope, session := range h.sessions {
		if session.IsFinished() && now.Sub(session.GetClosedAt()) > h.retention {
			stale = append(stale, scope)
		}
	}

	for _, scope := range stale {
		if session, ok := h.sessions[scope]; ok {
			session.Close()
			delete(h.sessions, scope)
			h.logger.Info("finished poll cleaned up", "scope", scope)
		}
	}
}
