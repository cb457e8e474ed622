package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/yourusername/deepmoo/pkg/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins - configure properly in production
	},
}

// WSMessage is a generic WebSocket message.
type WSMessage struct {
	Type    string          `json:"type"`    // "estimate", "advise", "review", "ping"
	ID      string          `json:"id"`      // Request ID for correlating responses
	Payload json.RawMessage `json:"payload"` // Type-specific payload
}

// WSResponse is a generic WebSocket response.
type WSResponse struct {
	Type    string `json:"type"`              // "result", "progress", "error", "pong"
	ID      string `json:"id,omitempty"`      // Request ID
	Payload any    `json:"payload,omitempty"` // Response data
	Error   string `json:"error,omitempty"`   // Error message if any
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	ctx      context.Context
	conn     *websocket.Conn
	handlers *Handlers
	sendChan chan WSResponse
}

// WebSocket handles WebSocket connections. Requests on one connection are
// served in order.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade")
		return
	}
	client := &WSClient{
		ctx:      r.Context(),
		conn:     conn,
		handlers: h,
		sendChan: make(chan WSResponse, 256),
	}
	go client.writePump()
	client.readPump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()
	for msg := range c.sendChan {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer func() { close(c.sendChan); c.conn.Close() }()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) sendError(id, msg string) {
	c.sendChan <- WSResponse{Type: "error", ID: id, Error: msg}
}

func (c *WSClient) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "estimate":
		c.handleEstimate(msg)
	case "advise":
		c.handleAdvise(msg, false)
	case "review":
		c.handleAdvise(msg, true)
	case "ping":
		c.sendChan <- WSResponse{Type: "pong", ID: msg.ID}
	default:
		c.sendError(msg.ID, "unknown message type")
	}
}

func (c *WSClient) state(id string, game *GameInput) (*engine.GameState, bool) {
	rules := c.handlers.engine.Rules()
	state, _, err := game.State(&rules)
	if err == nil {
		err = state.Validate(&rules)
	}
	if err != nil {
		c.sendError(id, "invalid game: "+err.Error())
		return nil, false
	}
	return state, true
}

func (c *WSClient) handleEstimate(msg WSMessage) {
	var req EstimateRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendError(msg.ID, "invalid payload")
		return
	}
	state, ok := c.state(msg.ID, &req.Game)
	if !ok {
		return
	}
	trials := req.Trials
	if trials <= 0 {
		trials = c.handlers.defaults.Trials
	}
	if trials > maxTrials {
		c.sendError(msg.ID, "trials over the limit")
		return
	}
	d, err := c.handlers.engine.Estimate(c.ctx, state, engine.EstimateOptions{Trials: trials}, req.Seed)
	if err != nil {
		c.sendError(msg.ID, "estimate failed: "+err.Error())
		return
	}
	c.sendChan <- WSResponse{Type: "result", ID: msg.ID, Payload: DistribToResponse(d)}
}

func (c *WSClient) handleAdvise(msg WSMessage, review bool) {
	var req AdviseRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendError(msg.ID, "invalid payload")
		return
	}
	opts, err := c.handlers.options(&req)
	if err != nil {
		c.sendError(msg.ID, err.Error())
		return
	}
	state, ok := c.state(msg.ID, &req.Game)
	if !ok {
		return
	}

	if pool := c.handlers.pool; pool != nil {
		if err := pool.AcquireSlow(c.ctx); err != nil {
			c.sendError(msg.ID, "server busy")
			return
		}
		defer pool.ReleaseSlow()
	}

	if review {
		result, err := c.handlers.engine.Review(c.ctx, state, opts)
		if err != nil {
			c.sendError(msg.ID, "review failed: "+err.Error())
			return
		}
		c.sendChan <- WSResponse{Type: "result", ID: msg.ID, Payload: ReviewToResponse(result)}
		return
	}

	// Progress is best effort; a slow reader drops updates, not results.
	opts.Progress = func(p engine.AdviseProgress) {
		select {
		case c.sendChan <- WSResponse{Type: "progress", ID: msg.ID, Payload: p}:
		default:
		}
	}
	advice, err := c.handlers.engine.Advise(c.ctx, state, opts)
	if err != nil {
		c.sendError(msg.ID, "advise failed: "+err.Error())
		return
	}
	c.sendChan <- WSResponse{Type: "result", ID: msg.ID, Payload: AdviceToResponse(advice)}
}
