package app

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MisterSquishy/RankedChoice/internal/domain"
)

// mockConn records everything the session sends to a voter
type mockConn struct {
	voterID  string
	mu       sync.Mutex
	messages []interface{}
	closed   bool
}

func newMockConn(voterID string) *mockConn {
	return &mockConn{voterID: voterID}
}

func (m *mockConn) Send(message interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

func (m *mockConn) GetVoterID() string {
	return m.voterID
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// eventsOfType returns every received poll event of the given type
func (m *mockConn) eventsOfType(eventType domain.EventType) []*domain.PollEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]*domain.PollEvent, 0)
	for _, msg := range m.messages {
		if event, ok := msg.(*domain.PollEvent); ok && event.Type == eventType {
			events = append(events, event)
		}
	}
	return events
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() []domain.Option {
	return []domain.Option{
		{ID: "a", Label: "Tacos"},
		{ID: "b", Label: "Sushi"},
		{ID: "c", Label: "Pizza"},
	}
}

func newTestSession(t *testing.T) *PollSession {
	t.Helper()
	poll, err := domain.NewPoll("poll-1", "team-lunch", "Where to eat?", "", "coordinator", testOptions())
	require.NoError(t, err)

	session := NewPollSession(poll, testLogger())
	t.Cleanup(session.Close)
	return session
}

// waitForEvent blocks until the connection has received at least n
// events of the given type
func waitForEvent(t *testing.T, conn *mockConn, eventType domain.EventType, n int) []*domain.PollEvent {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(conn.eventsOfType(eventType)) >= n
	}, time.Second, 5*time.Millisecond, "expected %d %s event(s)", n, eventType)
	return conn.eventsOfType(eventType)
}

func TestRankOptionEchoesBallotToVoterOnly(t *testing.T) {
	session := newTestSession(t)

	voter := newMockConn("voter-1")
	other := newMockConn("voter-2")
	session.RegisterClient("voter-1", voter)
	session.RegisterClient("voter-2", other)

	require.NoError(t, session.RankOption("voter-1", "b"))
	require.NoError(t, session.RankOption("voter-1", "a"))

	events := waitForEvent(t, voter, domain.EventBallotUpdated, 2)
	payload, ok := events[1].Payload.(*domain.BallotStatePayload)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, payload.Ranking)
	assert.False(t, payload.Submitted)

	assert.Empty(t, other.eventsOfType(domain.EventBallotUpdated),
		"ballot contents must stay private to the voter")
}

func TestRankOptionErrors(t *testing.T) {
	session := newTestSession(t)

	assert.ErrorIs(t, session.RankOption("voter-1", "nope"), domain.ErrUnknownOption)

	_, err := session.ClosePoll()
	require.NoError(t, err)
	assert.ErrorIs(t, session.RankOption("voter-1", "a"), domain.ErrPollClosed)
}

func TestSubmitBallotBroadcastsCount(t *testing.T) {
	session := newTestSession(t)

	voter := newMockConn("voter-1")
	other := newMockConn("voter-2")
	session.RegisterClient("voter-1", voter)
	session.RegisterClient("voter-2", other)

	require.NoError(t, session.RankOption("voter-1", "a"))
	require.NoError(t, session.SubmitBallot("voter-1"))

	for _, conn := range []*mockConn{voter, other} {
		events := waitForEvent(t, conn, domain.EventBallotSubmitted, 1)
		payload, ok := events[0].Payload.(*domain.BallotSubmittedPayload)
		require.True(t, ok)
		assert.Equal(t, "voter-1", payload.VoterID)
		assert.Equal(t, 1, payload.SubmittedCount)
	}

	// The voter also sees their own updated ballot state
	events := waitForEvent(t, voter, domain.EventBallotUpdated, 2)
	payload, ok := events[len(events)-1].Payload.(*domain.BallotStatePayload)
	require.True(t, ok)
	assert.True(t, payload.Submitted)
}

func TestClearBallotResetsAndBroadcasts(t *testing.T) {
	session := newTestSession(t)

	voter := newMockConn("voter-1")
	session.RegisterClient("voter-1", voter)

	require.NoError(t, session.RankOption("voter-1", "a"))
	require.NoError(t, session.SubmitBallot("voter-1"))
	require.NoError(t, session.ClearBallot("voter-1"))

	events := waitForEvent(t, voter, domain.EventBallotCleared, 1)
	payload, ok := events[0].Payload.(*domain.BallotClearedPayload)
	require.True(t, ok)
	assert.Equal(t, "voter-1", payload.VoterID)
	assert.Zero(t, payload.SubmittedCount)

	ranking, submitted := session.GetVoterBallot("voter-1")
	assert.Empty(t, ranking)
	assert.False(t, submitted)
}

func TestClosePollBroadcastsFinalResults(t *testing.T) {
	session := newTestSession(t)

	voter := newMockConn("voter-1")
	session.RegisterClient("voter-1", voter)

	require.NoError(t, session.RankOption("voter-1", "a"))
	require.NoError(t, session.SubmitBallot("voter-1"))

	result, err := session.ClosePoll()
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeWinner, result.Outcome.Kind)
	assert.Equal(t, "a", result.Outcome.Winner)

	events := waitForEvent(t, voter, domain.EventPollClosed, 1)
	payload, ok := events[0].Payload.(*domain.ResultsPayload)
	require.True(t, ok)
	assert.True(t, payload.Final)
	assert.Equal(t, "Tacos", payload.WinnerLabel)
	assert.Equal(t, 1, payload.BallotCount)

	_, err = session.ClosePoll()
	assert.ErrorIs(t, err, domain.ErrNoActivePoll)
	assert.True(t, session.IsFinished())
}

func TestCancelPollBroadcastsWithoutResult(t *testing.T) {
	session := newTestSession(t)

	voter := newMockConn("voter-1")
	session.RegisterClient("voter-1", voter)

	require.NoError(t, session.CancelPoll("coordinator"))

	events := waitForEvent(t, voter, domain.EventPollCancelled, 1)
	payload, ok := events[0].Payload.(*domain.CancelledPayload)
	require.True(t, ok)
	assert.Equal(t, "Where to eat?", payload.Title)
	assert.Equal(t, "coordinator", payload.CancelledBy)

	assert.Equal(t, domain.StatusCancelled, session.GetStatus())

	_, err := session.PostResults()
	assert.ErrorIs(t, err, domain.ErrNoActivePoll)
}

func TestPostResultsPreviewKeepsPollOpen(t *testing.T) {
	session := newTestSession(t)

	voter := newMockConn("voter-1")
	session.RegisterClient("voter-1", voter)

	require.NoError(t, session.RankOption("voter-1", "b"))
	require.NoError(t, session.SubmitBallot("voter-1"))

	result, err := session.PostResults()
	require.NoError(t, err)
	assert.Equal(t, "b", result.Outcome.Winner)

	events := waitForEvent(t, voter, domain.EventResultsPosted, 1)
	payload, ok := events[0].Payload.(*domain.ResultsPayload)
	require.True(t, ok)
	assert.False(t, payload.Final, "results posted while open are a preview")

	assert.True(t, session.IsOpen())
	require.NoError(t, session.RankOption("voter-1", "a"))
}

func TestPostResultsAfterCloseReplaysRecordedResult(t *testing.T) {
	session := newTestSession(t)

	require.NoError(t, session.RankOption("voter-1", "c"))
	require.NoError(t, session.SubmitBallot("voter-1"))

	closed, err := session.ClosePoll()
	require.NoError(t, err)

	replayed, err := session.PostResults()
	require.NoError(t, err)
	assert.Same(t, closed, replayed, "closed polls must never re-tabulate")
}

func TestBumpRemindsWhileOpen(t *testing.T) {
	session := newTestSession(t)

	voter := newMockConn("voter-1")
	session.RegisterClient("voter-1", voter)

	require.NoError(t, session.Bump())

	events := waitForEvent(t, voter, domain.EventReminder, 1)
	payload, ok := events[0].Payload.(*domain.ReminderPayload)
	require.True(t, ok)
	assert.Equal(t, "Where to eat?", payload.Title)
	assert.NotEmpty(t, payload.OpenedAgo)

	_, err := session.ClosePoll()
	require.NoError(t, err)
	assert.ErrorIs(t, session.Bump(), domain.ErrNoActivePoll)
}

func TestGetPollStateIncludesVoterBallot(t *testing.T) {
	session := newTestSession(t)

	require.NoError(t, session.RankOption("voter-1", "c"))

	state := session.GetPollState("voter-1")
	assert.Equal(t, "team-lunch", state["scope"])
	assert.Equal(t, "Where to eat?", state["title"])
	assert.Equal(t, domain.StatusOpen, state["status"])

	ballot, ok := state["ballot"].(*domain.BallotStatePayload)
	require.True(t, ok)
	assert.Equal(t, []string{"c"}, ballot.Ranking)

	_, hasResult := state["result"]
	assert.False(t, hasResult)
}

func TestGetPollStateIncludesResultOnceClosed(t *testing.T) {
	session := newTestSession(t)

	require.NoError(t, session.RankOption("voter-1", "a"))
	require.NoError(t, session.SubmitBallot("voter-1"))
	_, err := session.ClosePoll()
	require.NoError(t, err)

	state := session.GetPollState("voter-1")
	assert.Equal(t, domain.StatusClosed, state["status"])

	result, ok := state["result"].(*domain.ResultsPayload)
	require.True(t, ok)
	assert.True(t, result.Final)
	assert.Equal(t, "a", result.Outcome.Winner)
}

func TestGetSummary(t *testing.T) {
	session := newTestSession(t)

	require.NoError(t, session.RankOption("voter-1", "a"))
	require.NoError(t, session.SubmitBallot("voter-1"))

	summary := session.GetSummary()
	assert.Equal(t, "team-lunch", summary.Scope)
	assert.Equal(t, "Where to eat?", summary.Title)
	assert.Equal(t, domain.StatusOpen, summary.Status)
	assert.Equal(t, 3, summary.OptionCount)
	assert.Equal(t, 1, summary.SubmittedCount)
	assert.NotEmpty(t, summary.OpenedAgo)
}

func TestConcurrentRankingStaysConsistent(t *testing.T) {
	session := newTestSession(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range []string{"a", "b", "c"} {
				assert.NoError(t, session.RankOption("voter-1", id))
			}
		}()
	}
	wg.Wait()

	ranking, _ := session.GetVoterBallot("voter-1")
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ranking,
		"concurrent ranking must not duplicate or drop options")
}

func TestSessionCloseShutsDownClients(t *testing.T) {
	session := newTestSession(t)

	voter := newMockConn("voter-1")
	session.RegisterClient("voter-1", voter)

	session.Close()
	session.Close() // closing twice is fine

	assert.True(t, voter.isClosed())
	_, ok := session.GetClient("voter-1")
	assert.False(t, ok)
}
