package domain

import (
	"math/rand"
	"time"
)

// OutcomeKind classifies how a tabulation ended
type OutcomeKind string

const (
	OutcomeWinner    OutcomeKind = "WINNER"     // One option earned a majority or outlasted the rest
	OutcomeTie       OutcomeKind = "TIE"        // The last elimination removed every remaining option at once
	OutcomeNoBallots OutcomeKind = "NO_BALLOTS" // Nothing to count
)

// Outcome is the final verdict of an instant-runoff tabulation
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Winner string      `json:"winner,omitempty"` // Option ID, set when Kind is WINNER
	Tied   []string    `json:"tied,omitempty"`   // Option IDs, set when Kind is TIE
}

// TallyRound records one elimination round so results can show their work
type TallyRound struct {
	Number            int            `json:"number"`
	Tallies           map[string]int `json:"tallies"`
	Eliminated        []string       `json:"eliminated"`
	ContinuingBallots int            `json:"continuingBallots"`
}

// Tabulate runs instant-runoff counting over ranked ballots.
//
// Each round, every ballot counts for its highest-ranked option still in
// the running; ballots whose ranked options are all eliminated are
// exhausted and drop out of the denominator. An option with a strict
// majority of continuing ballots wins. Otherwise all options sharing the
// lowest tally are eliminated together, and if that empties the field
// the options removed in the final round are reported as tied.
//
// Empty ballots never count, so a ballot-less tabulation reports
// NO_BALLOTS. Tabulation is deterministic and finishes in at most one
// round per option.
func Tabulate(options []Option, ballots [][]string) (Outcome, []TallyRound) {
	rounds := make([]TallyRound, 0)

	remaining := make(map[string]bool, len(options))
	order := make([]string, 0, len(options))
	for _, opt := range options {
		if !remaining[opt.ID] {
			remaining[opt.ID] = true
			order = append(order, opt.ID)
		}
	}

	live := make([][]string, 0, len(ballots))
	for _, ranking := range ballots {
		if len(ranking) > 0 {
			live = append(live, ranking)
		}
	}
	if len(live) == 0 || len(remaining) == 0 {
		return Outcome{Kind: OutcomeNoBallots}, rounds
	}

	for number := 1; ; number++ {
		if len(remaining) == 1 {
			return Outcome{Kind: OutcomeWinner, Winner: order[0]}, rounds
		}

		// Count each continuing ballot for its top remaining option
		tallies := make(map[string]int, len(remaining))
		for _, id := range order {
			tallies[id] = 0
		}
		continuing := live[:0]
		for _, ranking := range live {
			if top, ok := topChoice(ranking, remaining); ok {
				tallies[top]++
				continuing = append(continuing, ranking)
			}
		}
		live = continuing

		if len(live) == 0 {
			return Outcome{Kind: OutcomeNoBallots}, rounds
		}

		// Strict majority of continuing ballots wins immediately
		for _, id := range order {
			if 2*tallies[id] > len(live) {
				return Outcome{Kind: OutcomeWinner, Winner: id}, rounds
			}
		}

		// Eliminate every option tied for the lowest tally
		lowest := -1
		for _, id := range order {
			if lowest == -1 || tallies[id] < lowest {
				lowest = tallies[id]
			}
		}

		eliminated := make([]string, 0)
		survivors := make([]string, 0, len(order))
		for _, id := range order {
			if tallies[id] == lowest {
				eliminated = append(eliminated, id)
				delete(remaining, id)
			} else {
				survivors = append(survivors, id)
			}
		}
		order = survivors

		rounds = append(rounds, TallyRound{
			Number:            number,
			Tallies:           tallies,
			Eliminated:        eliminated,
			ContinuingBallots: len(live),
		})

		if len(remaining) == 0 {
			return Outcome{Kind: OutcomeTie, Tied: eliminated}, rounds
		}
	}
}

// topChoice returns the ballot's highest-ranked option that is still in
// the running
func topChoice(ranking []string, remaining map[string]bool) (string, bool) {
	for _, id := range ranking {
		if remaining[id] {
			return id, true
		}
	}
	return "", false
}

// PollResult bundles a tabulation outcome with the rounds behind it and
// an anonymized listing of the ballots that were counted
type PollResult struct {
	Outcome     Outcome      `json:"outcome"`
	Rounds      []TallyRound `json:"rounds"`
	Ballots     [][]string   `json:"ballots"`
	BallotCount int          `json:"ballotCount"`
	ComputedAt  time.Time    `json:"computedAt"`
}

// NewPollResult tabulates a ballot snapshot. Ballots are shuffled into a
// random order first so the published listing cannot be matched back to
// voters.
func NewPollResult(options []Option, ballots map[string][]string) *PollResult {
	anonymized := make([][]string, 0, len(ballots))
	for _, ranking := range ballots {
		anonymized = append(anonymized, ranking)
	}
	rand.Shuffle(len(anonymized), func(i, j int) {
		anonymized[i], anonymized[j] = anonymized[j], anonymized[i]
	})

	outcome, rounds := Tabulate(options, anonymized)

	return &PollResult{
		Outcome:     outcome,
		Rounds:      rounds,
		Ballots:     anonymized,
		BallotCount: len(anonymized),
		ComputedAt:  time.Now(),
	}
}

// WinnerLabel resolves the winning option's label, when there is one
func (r *PollResult) WinnerLabel(options []Option) (string, bool) {
	if r.Outcome.Kind != OutcomeWinner {
		return "", false
	}
	for _, opt := range options {
		if opt.ID == r.Outcome.Winner {
			return opt.Label, true
		}
	}
	return "", false
}
