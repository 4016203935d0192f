package domain

import "time"

// Ballot holds one voter's ranked preferences for a poll.
// Ranking lists option IDs from most preferred to least preferred;
// a ballot may rank any subset of the poll's options.
type Ballot struct {
	Ranking   []string  `json:"ranking"`
	Submitted bool      `json:"submitted"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewBallot creates an empty, unsubmitted ballot
func NewBallot() *Ballot {
	return &Ballot{
		Ranking: make([]string, 0),
	}
}

// HasRanked reports whether the option already appears in the ranking
func (b *Ballot) HasRanked(optionID string) bool {
	for _, id := range b.Ranking {
		if id == optionID {
			return true
		}
	}
	return false
}

// Rank appends the option at the next preference position.
// Ranking the same option again is a no-op, so a voter tapping
// a choice twice does not double it up.
func (b *Ballot) Rank(optionID string) {
	if b.HasRanked(optionID) {
		return
	}
	b.Ranking = append(b.Ranking, optionID)
	b.UpdatedAt = time.Now()
}

// Snapshot returns a copy of the ranking that is safe to share
func (b *Ballot) Snapshot() []string {
	ranking := make([]string, len(b.Ranking))
	copy(ranking, b.Ranking)
	return ranking
}

// CountsForTabulation reports whether the ballot participates in
// tabulation: it must be submitted and rank at least one option.
// A submitted empty ballot is a deliberate abstention.
func (b *Ballot) CountsForTabulation() bool {
	return b.Submitted && len(b.Ranking) > 0
}
