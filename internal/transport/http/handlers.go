package http

import (
	"encoding/json"
	"net/http"

	"github.com/MisterSquishy/RankedChoice/internal/app"
	"github.com/MisterSquishy/RankedChoice/internal/domain"
)

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OpenPollRequest is the request body for opening a poll
type OpenPollRequest struct {
	Scope       string   `json:"scope"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	OpenedBy    string   `json:"openedBy"`
	Options     []string `json:"options"`
}

// CancelPollRequest is the request body for cancelling a poll
type CancelPollRequest struct {
	CancelledBy string `json:"cancelledBy"`
}

// PollResponse is the response for a single poll
type PollResponse struct {
	Poll    domain.PollSummary `json:"poll"`
	Options []domain.Option    `json:"options"`
}

// ListPollsResponse is the response for listing polls
type ListPollsResponse struct {
	Polls []domain.PollSummary `json:"polls"`
	Count int                  `json:"count"`
}

// BallotResponse is the response for a voter's ballot
type BallotResponse struct {
	VoterID   string   `json:"voterId"`
	Ranking   []string `json:"ranking"`
	Submitted bool     `json:"submitted"`
}

// ResultResponse is the response for close and results requests
type ResultResponse struct {
	Scope       string             `json:"scope"`
	Title       string             `json:"title"`
	Final       bool               `json:"final"`
	WinnerLabel string             `json:"winnerLabel,omitempty"`
	Result      *domain.PollResult `json:"result"`
}

// DeletedResponse is the response for deleting a poll
type DeletedResponse struct {
	Scope   string `json:"scope"`
	Deleted bool   `json:"deleted"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	TrackedPolls     int `json:"trackedPolls"`
	OpenPolls        int `json:"openPolls"`
	SubmittedBallots int `json:"submittedBallots"`
}

// handleOpenPoll handles POST /api/polls
func (s *Server) handleOpenPoll(w http.ResponseWriter, r *http.Request) {
	var req OpenPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be valid JSON")
		return
	}

	session, err := s.hub.OpenPoll(req.Scope, app.PollSpec{
		Title:       req.Title,
		Description: req.Description,
		OpenedBy:    req.OpenedBy,
		Options:     domain.OptionsFromLabels(req.Options),
	})
	if err != nil {
		switch err {
		case domain.ErrPollAlreadyOpen:
			s.sendError(w, http.StatusConflict, "POLL_ALREADY_OPEN", "A poll is already open in this scope")
		case domain.ErrInvalidOptions:
			s.sendError(w, http.StatusBadRequest, "INVALID_OPTIONS", "At least two distinct options are required")
		case domain.ErrEmptyScope:
			s.sendError(w, http.StatusBadRequest, "MISSING_SCOPE", "Scope is required")
		case domain.ErrEmptyTitle:
			s.sendError(w, http.StatusBadRequest, "MISSING_TITLE", "Title is required")
		default:
			s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to open poll")
		}
		return
	}

	s.sendCreated(w, &PollResponse{
		Poll:    session.GetSummary(),
		Options: session.GetOptions(),
	})
}

// handleListPolls handles GET /api/polls
func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	sessions := s.hub.GetSessions()

	polls := make([]domain.PollSummary, 0, len(sessions))
	for _, session := range sessions {
		polls = append(polls, session.GetSummary())
	}

	s.sendSuccess(w, &ListPollsResponse{
		Polls: polls,
		Count: len(polls),
	})
}

// handleGetPoll handles GET /api/polls/{scope}
func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	s.sendSuccess(w, &PollResponse{
		Poll:    session.GetSummary(),
		Options: session.GetOptions(),
	})
}

// handleDeletePoll handles DELETE /api/polls/{scope}
func (s *Server) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	scope := r.PathValue("scope")
	if scope == "" {
		s.sendError(w, http.StatusBadRequest, "MISSING_SCOPE", "Scope is required")
		return
	}

	s.hub.DeleteSession(scope)

	s.sendSuccess(w, &DeletedResponse{
		Scope:   scope,
		Deleted: true,
	})
}

// handleGetBallot handles GET /api/polls/{scope}/ballots/{voterID}
func (s *Server) handleGetBallot(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	voterID := r.PathValue("voterID")
	if voterID == "" {
		s.sendError(w, http.StatusBadRequest, "MISSING_VOTER_ID", "Voter ID is required")
		return
	}

	ranking, submitted := session.GetVoterBallot(voterID)

	s.sendSuccess(w, &BallotResponse{
		VoterID:   voterID,
		Ranking:   ranking,
		Submitted: submitted,
	})
}

// handleClosePoll handles POST /api/polls/{scope}/close
func (s *Server) handleClosePoll(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	result, err := session.ClosePoll()
	if err != nil {
		if err == domain.ErrNoActivePoll {
			s.sendError(w, http.StatusConflict, "NO_ACTIVE_POLL", "Poll is not open")
		} else {
			s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to close poll")
		}
		return
	}

	s.sendSuccess(w, s.resultResponse(session, result, true))
}

// handleCancelPoll handles POST /api/polls/{scope}/cancel
func (s *Server) handleCancelPoll(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	// Body is optional
	var req CancelPollRequest
	json.NewDecoder(r.Body).Decode(&req)

	if err := session.CancelPoll(req.CancelledBy); err != nil {
		if err == domain.ErrNoActivePoll {
			s.sendError(w, http.StatusConflict, "NO_ACTIVE_POLL", "Poll is not open")
		} else {
			s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to cancel poll")
		}
		return
	}

	s.sendSuccess(w, &PollResponse{
		Poll:    session.GetSummary(),
		Options: session.GetOptions(),
	})
}

// handlePostResults handles POST /api/polls/{scope}/results. Open polls
// get a live preview over the ballots submitted so far; closed polls
// replay the recorded result. Either way the standings are broadcast to
// connected voters.
func (s *Server) handlePostResults(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	result, err := session.PostResults()
	if err != nil {
		if err == domain.ErrNoActivePoll {
			s.sendError(w, http.StatusConflict, "NO_ACTIVE_POLL", "Poll was cancelled without a result")
		} else {
			s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to tabulate results")
		}
		return
	}

	s.sendSuccess(w, s.resultResponse(session, result, session.GetStatus() == domain.StatusClosed))
}

// handleBump handles POST /api/polls/{scope}/bump
func (s *Server) handleBump(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	if err := session.Bump(); err != nil {
		if err == domain.ErrNoActivePoll {
			s.sendError(w, http.StatusConflict, "NO_ACTIVE_POLL", "Poll is not open")
		} else {
			s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to send reminder")
		}
		return
	}

	s.sendSuccess(w, &PollResponse{
		Poll:    session.GetSummary(),
		Options: session.GetOptions(),
	})
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &HealthResponse{
		Status: "ok",
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &StatsResponse{
		TrackedPolls:     s.hub.GetSessionCount(),
		OpenPolls:        s.hub.GetOpenPollCount(),
		SubmittedBallots: s.hub.GetTotalBallotCount(),
	})
}

// lookupSession resolves the scope path value to a session, writing the
// error response itself when the scope has no poll
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*app.PollSession, bool) {
	scope := r.PathValue("scope")
	if scope == "" {
		s.sendError(w, http.StatusBadRequest, "MISSING_SCOPE", "Scope is required")
		return nil, false
	}

	session, err := s.hub.GetSession(scope)
	if err != nil {
		s.sendError(w, http.StatusNotFound, "NO_ACTIVE_POLL", "No poll in this scope")
		return nil, false
	}

	return session, true
}

// resultResponse builds the outbound view of a tabulation
func (s *Server) resultResponse(session *app.PollSession, result *domain.PollResult, final bool) *ResultResponse {
	resp := &ResultResponse{
		Scope:  session.GetScope(),
		Title:  session.GetSummary().Title,
		Final:  final,
		Result: result,
	}
	if label, ok := result.WinnerLabel(session.GetOptions()); ok {
		resp.WinnerLabel = label
	}
	return resp
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendCreated sends a successful JSON response with a 201 status
func (s *Server) sendCreated(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
