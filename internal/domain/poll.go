package domain

import (
	"strings"
	"time"
)

// Poll represents one ranked-choice voting session bound to a scope
type Poll struct {
	ID          string             `json:"id"`
	Scope       string             `json:"scope"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	OpenedBy    string             `json:"openedBy,omitempty"`
	Status      Status             `json:"status"`
	Options     []Option           `json:"options"`
	Ballots     map[string]*Ballot `json:"-"`
	Result      *PollResult        `json:"result,omitempty"`
	OpenedAt    time.Time          `json:"openedAt"`
	ClosedAt    time.Time          `json:"closedAt,omitempty"`
}

// NewPoll creates an open poll over the given options
func NewPoll(id, scope, title, description, openedBy string, options []Option) (*Poll, error) {
	if strings.TrimSpace(scope) == "" {
		return nil, ErrEmptyScope
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}
	if len(options) < 2 {
		return nil, ErrInvalidOptions
	}

	return &Poll{
		ID:          id,
		Scope:       scope,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		OpenedBy:    openedBy,
		Status:      StatusOpen,
		Options:     options,
		Ballots:     make(map[string]*Ballot),
		OpenedAt:    time.Now(),
	}, nil
}

// IsOpen returns true while the poll accepts rankings and submissions
func (p *Poll) IsOpen() bool {
	return p.Status == StatusOpen
}

// HasOption checks whether the option belongs to this poll
func (p *Poll) HasOption(optionID string) bool {
	for _, opt := range p.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// GetOption returns the option with the given ID
func (p *Poll) GetOption(optionID string) (Option, bool) {
	for _, opt := range p.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return Option{}, false
}

// ballot returns the voter's ballot, creating an empty one on first touch
func (p *Poll) ballot(voterID string) *Ballot {
	b, ok := p.Ballots[voterID]
	if !ok {
		b = NewBallot()
		p.Ballots[voterID] = b
	}
	return b
}

// Rank records the option as the voter's next preference. Ranking is
// idempotent per option and stays available after the voter submits,
// so late edits simply update the submitted ballot.
func (p *Poll) Rank(voterID, optionID string) (*Ballot, error) {
	if !p.IsOpen() {
		return nil, ErrPollClosed
	}
	if !p.HasOption(optionID) {
		return nil, ErrUnknownOption
	}

	b := p.ballot(voterID)
	b.Rank(optionID)
	return b, nil
}

// Submit marks the voter's ballot as submitted. Submitting with no
// rankings is allowed and counts as an abstention.
func (p *Poll) Submit(voterID string) (*Ballot, error) {
	if !p.IsOpen() {
		return nil, ErrPollClosed
	}

	b := p.ballot(voterID)
	b.Submitted = true
	b.UpdatedAt = time.Now()
	return b, nil
}

// ClearBallot wipes the voter's rankings and submission so they can
// start over
func (p *Poll) ClearBallot(voterID string) error {
	if !p.IsOpen() {
		return ErrPollClosed
	}

	p.Ballots[voterID] = NewBallot()
	return nil
}

// GetBallot returns a copy of the voter's current ranking and whether
// it has been submitted
func (p *Poll) GetBallot(voterID string) ([]string, bool) {
	b, ok := p.Ballots[voterID]
	if !ok {
		return []string{}, false
	}
	return b.Snapshot(), b.Submitted
}

// SubmittedBallots returns a deep copy of every ballot that counts for
// tabulation, keyed by voter ID
func (p *Poll) SubmittedBallots() map[string][]string {
	ballots := make(map[string][]string)
	for voterID, b := range p.Ballots {
		if b.CountsForTabulation() {
			ballots[voterID] = b.Snapshot()
		}
	}
	return ballots
}

// GetSubmittedCount returns the number of ballots that count for
// tabulation
func (p *Poll) GetSubmittedCount() int {
	count := 0
	for _, b := range p.Ballots {
		if b.CountsForTabulation() {
			count++
		}
	}
	return count
}

// Close stops voting and records the tabulated result. The result is
// computed exactly once; reading it later never re-tabulates.
func (p *Poll) Close() (*PollResult, error) {
	if !p.Status.CanTransitionTo(StatusClosed) {
		return nil, ErrNoActivePoll
	}

	p.Status = StatusClosed
	p.ClosedAt = time.Now()
	p.Result = NewPollResult(p.Options, p.SubmittedBallots())
	return p.Result, nil
}

// Cancel abandons the poll without tabulating a result
func (p *Poll) Cancel() error {
	if !p.Status.CanTransitionTo(StatusCancelled) {
		return ErrNoActivePoll
	}

	p.Status = StatusCancelled
	p.ClosedAt = time.Now()
	return nil
}

// PreviewResult tabulates the ballots submitted so far without closing
// the poll. Closed polls return the recorded result instead.
func (p *Poll) PreviewResult() (*PollResult, error) {
	switch p.Status {
	case StatusOpen:
		return NewPollResult(p.Options, p.SubmittedBallots()), nil
	case StatusClosed:
		return p.Result, nil
	default:
		return nil, ErrNoActivePoll
	}
}
