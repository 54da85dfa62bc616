/*
Package chat contains the core logic for tracking room presence and routing
chat events between connections.

This file defines the Hub struct, the event router of the relay. It validates
inbound events against the presence Registry, drives the per-connection state
machine, and fans formatted events out to the right set of connections.
*/
package chat

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
)

// MaxMessageBytes is the maximum allowed size (in bytes) of text message content.
const MaxMessageBytes = 5000

// Filter is the profanity-check collaborator consulted before a text message
// is broadcast.
type Filter interface {
	IsProfane(text string) bool
}

// Conn is the transport-side handle the hub uses to push events to a single
// connection. Send must not block; delivery is fire-and-forget from the
// hub's perspective.
type Conn interface {
	Send(env Envelope) error
	Close()
}

// ConnState tracks the lifecycle of one connection. Transitions only move
// forward: Anonymous -> Joined -> Disconnected.
type ConnState int

const (
	// StateAnonymous is a registered connection that has not completed a join.
	StateAnonymous ConnState = iota

	// StateJoined is a connection whose user is present in the Registry.
	StateJoined

	// StateDisconnected is terminal; no event is accepted afterwards.
	StateDisconnected
)

// session pairs a live connection with its state machine position.
type session struct {
	conn  Conn
	state ConnState
}

// Hub routes inbound client events. It owns the presence Registry (it is the
// sole mutator) and a sessions table mapping connection IDs to transport
// handles. Every handler returns *errs.CustomError as the acknowledgement
// result: nil means success, anything else is reported back to the
// originating client only.
type Hub struct {
	registry *Registry
	filter   Filter

	// now is the timestamp source for outbound messages.
	now func() time.Time

	// mu protects the sessions map.
	mu       sync.RWMutex
	sessions map[string]*session

	logger zerolog.Logger
}

// NewHub constructs a Hub around the given registry and profanity filter.
func NewHub(registry *Registry, filter Filter) *Hub {
	hubLogger := logx.Logger().With().Str("component", "Hub").Logger()

	return &Hub{
		registry: registry,
		filter:   filter,
		now:      time.Now,
		sessions: make(map[string]*session),
		logger:   hubLogger,
	}
}

// Register announces a new transport connection to the hub. The connection
// starts in the Anonymous state and receives no events until it joins a room.
func (h *Hub) Register(connectionID string, conn Conn) {
	h.mu.Lock()
	h.sessions[connectionID] = &session{conn: conn, state: StateAnonymous}
	total := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info().
		Str("connection_id", connectionID).
		Int("total_connections", total).
		Msg("Connection registered.")
}

// Join handles a join event. On success the connection becomes Joined, the
// joiner receives a welcome message, every other room member is notified, and
// the whole room (joiner included) receives a refreshed roster.
func (h *Hub) Join(connectionID, username, room string) *errs.CustomError {
	h.mu.Lock()
	s, ok := h.sessions[connectionID]
	if !ok || s.state == StateDisconnected {
		h.mu.Unlock()
		return errs.NewError(errs.ErrNotJoined)
	}
	if s.state == StateJoined {
		h.mu.Unlock()
		return errs.NewError(errs.ErrAlreadyJoined)
	}

	u, addErr := h.registry.AddUser(connectionID, username, room)
	if addErr != nil {
		h.mu.Unlock()

		h.logger.Warn().
			Str("connection_id", connectionID).
			Str("room", room).
			Int("error_code", addErr.Code).
			Msg("Join rejected.")
		return addErr
	}

	s.state = StateJoined
	h.mu.Unlock()

	h.logger.Info().
		Str("connection_id", connectionID).
		Str("username", u.Username).
		Str("room", u.Room).
		Msg("User joined room.")

	if welcome, err := NewTextMessage(AdminSender, "Welcome!", h.now()); err == nil {
		h.sendToConnection(connectionID, welcome)
	} else {
		h.logger.Error().Err(err).Msg("Failed to build welcome message.")
	}

	if notice, err := NewTextMessage(AdminSender, u.Username+" has joined!", h.now()); err == nil {
		h.broadcastToRoom(u.Room, notice, connectionID)
	} else {
		h.logger.Error().Err(err).Msg("Failed to build join notice.")
	}

	h.broadcastRoomData(u.Room)

	return nil
}

// SendMessage handles a sendMessage event: the connection must have joined,
// the content must fit the length cap and pass the profanity filter, and the
// resulting message goes to every connection in the sender's room, sender
// included.
func (h *Hub) SendMessage(connectionID, text string) *errs.CustomError {
	u, ok := h.registry.GetUser(connectionID)
	if !ok {
		return errs.NewError(errs.ErrNotJoined)
	}

	if len(text) > MaxMessageBytes {
		return errs.NewError(errs.ErrMessageTooLong)
	}

	if h.filter.IsProfane(text) {
		h.logger.Warn().
			Str("connection_id", connectionID).
			Str("room", u.Room).
			Msg("Message rejected by profanity filter.")
		return errs.NewError(errs.ErrProfanity)
	}

	env, err := NewTextMessage(u.Username, text, h.now())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build text message.")
		return errs.NewError(errs.ErrUnknown, err)
	}

	h.broadcastToRoom(u.Room, env, "")
	return nil
}

// SendLocation handles a sendLocation event, broadcasting a map link built
// from the sender's coordinates to the whole room, sender included.
func (h *Hub) SendLocation(connectionID string, latitude, longitude float64) *errs.CustomError {
	u, ok := h.registry.GetUser(connectionID)
	if !ok {
		return errs.NewError(errs.ErrNotJoined)
	}

	env, err := NewLocationMessage(u.Username, MapLinkURL(latitude, longitude), h.now())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build location message.")
		return errs.NewError(errs.ErrUnknown, err)
	}

	h.broadcastToRoom(u.Room, env, "")
	return nil
}

// Disconnect handles connection teardown. If the connection had completed a
// join, the remaining room members receive a leave notice and a refreshed
// roster; a disconnect before join is silent.
func (h *Hub) Disconnect(connectionID string) {
	h.mu.Lock()
	if s, ok := h.sessions[connectionID]; ok {
		s.state = StateDisconnected
		delete(h.sessions, connectionID)
	}
	total := len(h.sessions)
	h.mu.Unlock()

	u, removed := h.registry.RemoveUser(connectionID)
	if !removed {
		h.logger.Info().
			Str("connection_id", connectionID).
			Int("total_connections", total).
			Msg("Connection closed before join.")
		return
	}

	h.logger.Info().
		Str("connection_id", connectionID).
		Str("username", u.Username).
		Str("room", u.Room).
		Msg("User left room.")

	if notice, err := NewTextMessage(AdminSender, u.Username+" has left.", h.now()); err == nil {
		h.broadcastToRoom(u.Room, notice, "")
	} else {
		h.logger.Error().Err(err).Msg("Failed to build leave notice.")
	}

	h.broadcastRoomData(u.Room)
}

// Shutdown closes every live connection. Used during graceful server shutdown.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	for _, s := range h.sessions {
		s.conn.Close()
	}
	h.sessions = make(map[string]*session)
	h.mu.Unlock()

	h.logger.Info().Msg("Hub shutdown complete.")
}

// sendToConnection delivers an envelope to one connection, if still present.
func (h *Hub) sendToConnection(connectionID string, env Envelope) {
	h.mu.RLock()
	s, ok := h.sessions[connectionID]
	h.mu.RUnlock()

	if !ok {
		return
	}

	if err := s.conn.Send(env); err != nil {
		h.logger.Warn().
			Err(err).
			Str("connection_id", connectionID).
			Str("event_type", string(env.Type)).
			Msg("Failed to deliver event to connection.")
	}
}

// broadcastToRoom delivers an envelope to every connection in the room,
// optionally excluding one connection ID. Delivery failures are logged and
// never block the router.
func (h *Hub) broadcastToRoom(room string, env Envelope, exceptID string) {
	for _, connectionID := range h.registry.ConnectionsInRoom(room) {
		if connectionID == exceptID {
			continue
		}
		h.sendToConnection(connectionID, env)
	}
}

// broadcastRoomData publishes the room's current roster to all of its members.
func (h *Hub) broadcastRoomData(room string) {
	env, err := NewRoomData(room, h.registry.UsersInRoom(room))
	if err != nil {
		h.logger.Error().Err(err).Str("room", room).Msg("Failed to build roomData event.")
		return
	}

	h.broadcastToRoom(room, env, "")
}
