/*
Package chat contains the core logic for tracking room presence and routing
chat events between connections.

This file defines the Client struct, representing an active WebSocket
connection. It manages the connection's communication loops (ReadPump and
WritePump), decodes inbound envelopes into hub calls, and delivers the hub's
result back to the originating client as an acknowledgement.
*/
package chat

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// capacity of the per-client outbound queue.
	sendQueueSize = 256
)

// Client represents an active WebSocket connection. It implements the hub's
// Conn interface; the hub addresses it by its transport-assigned connection ID.
type Client struct {
	// hub routes the events this connection produces.
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// id is the opaque connection identifier assigned at accept time.
	id string

	// a buffered channel used to queue envelopes waiting to be sent to the client.
	send chan []byte

	// mu serializes Send against Close. The hub may broadcast to this
	// connection concurrently with its teardown, so the send channel must
	// never be closed while a sender can still enqueue on it.
	mu sync.Mutex

	// closed marks the send queue as retired; set once by Close.
	closed bool

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client around an upgraded WebSocket connection and
// assigns it a fresh connection ID.
func NewClient(hub *Hub, wsConn *websocket.Conn) *Client {
	id := randx.ConnectionID()

	clientLogger := logx.Logger().With().
		Str("connection_id", id).
		Logger()

	return &Client{
		hub:    hub,
		conn:   wsConn,
		id:     id,
		send:   make(chan []byte, sendQueueSize),
		logger: clientLogger,
	}
}

// ID returns the opaque connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Send implements Conn. It marshals the envelope and enqueues it without
// blocking; a full queue drops the event and reports an error, and a closed
// connection rejects the event instead of panicking on the retired channel.
func (c *Client) Send(env Envelope) error {
	messageBytes, err := json.Marshal(env)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error marshaling envelope for client")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("connection closed")
	}

	select {
	case c.send <- messageBytes:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping event")
		return fmt.Errorf("client send queue full")
	}
}

// Close implements Conn. Closing the send channel makes WritePump emit a
// close frame and tear the connection down. Safe to call more than once and
// concurrently with Send.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump handles reading envelopes from the WebSocket connection.
// It handles heartbeats (Pong), envelope decoding, and performs cleanup upon
// connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInboundEvent(messageBytes)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's
// ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.hub.Disconnect(c.id)
	c.Close()

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// processInboundEvent decodes a raw inbound frame and dispatches it to the
// hub. The hub's result is reported back through an ack envelope whenever the
// inbound event carried an ackId.
func (c *Client) processInboundEvent(messageBytes []byte) {
	var env Envelope
	if err := json.Unmarshal(messageBytes, &env); err != nil {
		c.logger.Warn().Err(err).
			Bytes("message_bytes", messageBytes).
			Msg("Client sent invalid JSON")
		return
	}

	switch env.Type {
	case EventJoin:
		c.handleJoin(env)

	case EventSendMessage:
		c.handleSendMessage(env)

	case EventSendLocation:
		c.handleSendLocation(env)

	default:
		c.logger.Warn().Str("event_type", string(env.Type)).Msg("Client sent unsupported event type")
	}
}

// handleJoin decodes a join payload and forwards it to the hub.
func (c *Client) handleJoin(env Envelope) {
	var payload JoinPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid join payload")
		c.sendAck(env.AckID, errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	c.sendAck(env.AckID, c.hub.Join(c.id, payload.Username, payload.Room))
}

// handleSendMessage decodes a text payload and forwards it to the hub.
func (c *Client) handleSendMessage(env Envelope) {
	var payload TextPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid sendMessage payload")
		c.sendAck(env.AckID, errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	c.sendAck(env.AckID, c.hub.SendMessage(c.id, payload.Text))
}

// handleSendLocation decodes a coordinates payload and forwards it to the
// hub. Both coordinates must be present.
func (c *Client) handleSendLocation(env Envelope) {
	var payload CoordinatesPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid sendLocation payload")
		c.sendAck(env.AckID, errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if payload.Latitude == nil || payload.Longitude == nil {
		c.sendAck(env.AckID, errs.NewError(errs.ErrInvalidParams))
		return
	}

	c.sendAck(env.AckID, c.hub.SendLocation(c.id, *payload.Latitude, *payload.Longitude))
}

// sendAck reports the outcome of an inbound event back to the originating
// client. Events without an ackId receive no acknowledgement.
func (c *Client) sendAck(ackID string, callErr *errs.CustomError) {
	if ackID == "" {
		return
	}

	payload := AckPayload{
		AckID:  ackID,
		Status: AckStatusOK,
	}
	if callErr != nil {
		payload.Status = AckStatusError
		payload.Reason = callErr.Message
	}

	ackEnv, err := NewEnvelope(EventAck, payload)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build ack envelope")
		return
	}

	if err := c.Send(ackEnv); err != nil {
		c.logger.Error().Err(err).Msg("Failed to queue ack envelope")
	}
}

// WritePump handles writing envelopes from the Client.send channel to the
// WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage handles messages pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
