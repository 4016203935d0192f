package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MisterSquishy/RankedChoice/internal/app"
	"github.com/MisterSquishy/RankedChoice/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256
)

// Client represents a WebSocket client connection
type Client struct {
	conn    *websocket.Conn
	session *app.PollSession
	voterID string
	send    chan []byte
	done    chan struct{}
	logger  *slog.Logger
	mu      sync.Mutex
	closed  bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, session *app.PollSession, voterID string, logger *slog.Logger) *Client {
	return &Client{
		conn:    conn,
		session: session,
		voterID: voterID,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// GetVoterID returns the voter ID for this client
func (c *Client) GetVoterID() string {
	return c.voterID
}

// Send implements app.VoterConnection. Poll events are wrapped into
// wire messages; everything else is sent as-is.
func (c *Client) Send(message interface{}) error {
	if event, ok := message.(*domain.PollEvent); ok {
		message = &ServerMessage{
			Type:      messageTypeForEvent(event.Type),
			Payload:   event.Payload,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer full, message dropped
		c.logger.Warn("send buffer full, message dropped", "voterID", c.voterID)
		return nil
	}
}

// Close implements app.VoterConnection interface
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.session.UnregisterClient(c.voterID)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming message from the client
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	switch msg.Type {
	case MsgRankOption:
		c.handleRankOption(msg.Payload)
	case MsgSubmitBallot:
		c.handleSubmitBallot()
	case MsgClearBallot:
		c.handleClearBallot()
	case MsgRequestBallot:
		c.sendBallotState()
	case MsgPing:
		c.sendPong()
	default:
		c.sendError(ErrCodeInvalidMessage, "Unknown message type")
	}
}

// handleRankOption handles a rank_option message
func (c *Client) handleRankOption(payload interface{}) {
	payloadMap, ok := payload.(map[string]interface{})
	if !ok {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	optionID, ok := payloadMap["optionId"].(string)
	if !ok || optionID == "" {
		c.sendError(ErrCodeInvalidMessage, "Option ID is required")
		return
	}

	if err := c.session.RankOption(c.voterID, optionID); err != nil {
		c.sendDomainError(err)
	}
}

// handleSubmitBallot handles a submit_ballot message
func (c *Client) handleSubmitBallot() {
	if err := c.session.SubmitBallot(c.voterID); err != nil {
		c.sendDomainError(err)
	}
}

// handleClearBallot handles a clear_ballot message
func (c *Client) handleClearBallot() {
	if err := c.session.ClearBallot(c.voterID); err != nil {
		c.sendDomainError(err)
	}
}

// sendConnected sends the connected message with the full poll state
func (c *Client) sendConnected() {
	payload := &ConnectedPayload{
		VoterID:   c.voterID,
		Scope:     c.session.GetScope(),
		PollState: c.session.GetPollState(c.voterID),
	}

	msg := NewServerMessage(MsgConnected, payload)
	c.Send(msg)
}

// sendBallotState sends the voter their current ballot
func (c *Client) sendBallotState() {
	ranking, submitted := c.session.GetVoterBallot(c.voterID)

	msg := NewServerMessage(MsgBallotState, &domain.BallotStatePayload{
		Ranking:   ranking,
		Submitted: submitted,
	})
	c.Send(msg)
}

// sendDomainError translates a poll error into a wire error message
func (c *Client) sendDomainError(err error) {
	switch err {
	case domain.ErrPollClosed:
		c.sendError(ErrCodePollClosed, "Poll is no longer open for voting")
	case domain.ErrUnknownOption:
		c.sendError(ErrCodeUnknownOption, "That option does not belong to this poll")
	case domain.ErrNoActivePoll:
		c.sendError(ErrCodeNoActivePoll, "No active poll in this scope")
	default:
		c.sendError(ErrCodeInternalError, err.Error())
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	payload := &ErrorPayload{
		Code:    code,
		Message: message,
	}

	msg := NewServerMessage(MsgError, payload)
	c.Send(msg)
}

// sendPong sends a pong message in response to ping
func (c *Client) sendPong() {
	msg := NewServerMessage(MsgPong, nil)
	c.Send(msg)
}
