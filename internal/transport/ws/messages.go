package ws

import (
	"time"

	"github.com/MisterSquishy/RankedChoice/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgRankOption    MessageType = "rank_option"
	MsgSubmitBallot  MessageType = "submit_ballot"
	MsgClearBallot   MessageType = "clear_ballot"
	MsgRequestBallot MessageType = "request_ballot"
	MsgPing          MessageType = "ping"
)

// Server → Client message types
const (
	MsgConnected       MessageType = "connected"
	MsgError           MessageType = "error"
	MsgBallotState     MessageType = "ballot_state"
	MsgBallotSubmitted MessageType = "ballot_submitted"
	MsgBallotCleared   MessageType = "ballot_cleared"
	MsgResultsPosted   MessageType = "results_posted"
	MsgPollClosed      MessageType = "poll_closed"
	MsgPollCancelled   MessageType = "poll_cancelled"
	MsgReminder        MessageType = "reminder"
	MsgPong            MessageType = "pong"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType MessageType, payload interface{}) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// messageTypeForEvent maps a poll event to its wire message type
func messageTypeForEvent(eventType domain.EventType) MessageType {
	switch eventType {
	case domain.EventBallotUpdated:
		return MsgBallotState
	case domain.EventBallotSubmitted:
		return MsgBallotSubmitted
	case domain.EventBallotCleared:
		return MsgBallotCleared
	case domain.EventResultsPosted:
		return MsgResultsPosted
	case domain.EventPollClosed:
		return MsgPollClosed
	case domain.EventPollCancelled:
		return MsgPollCancelled
	case domain.EventReminder:
		return MsgReminder
	default:
		return MessageType(eventType)
	}
}

// Client message payloads

// RankOptionPayload is the payload for rank_option message
type RankOptionPayload struct {
	OptionID string `json:"optionId"`
}

// Server message payloads

// ConnectedPayload is the payload for connected message
type ConnectedPayload struct {
	VoterID   string                 `json:"voterId"`
	Scope     string                 `json:"scope"`
	PollState map[string]interface{} `json:"pollState"`
}

// ErrorPayload is the payload for error message
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeNoActivePoll   = "NO_ACTIVE_POLL"
	ErrCodePollClosed     = "POLL_CLOSED"
	ErrCodeUnknownOption  = "UNKNOWN_OPTION"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)
