/*
Package chat contains the core logic for tracking room presence and routing
chat events between connections.

This file defines the wire envelope exchanged with clients and the builders
for the outbound event payloads (text messages, location messages, rosters,
and acknowledgements).
*/
package chat

import (
	"encoding/json"
	"strconv"
	"time"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/randx"
)

// EventType enumerates the event kinds carried in envelopes.
type EventType string

// Inbound (client -> server) event types.
const (
	EventJoin         EventType = "join"
	EventSendMessage  EventType = "sendMessage"
	EventSendLocation EventType = "sendLocation"
)

// Outbound (server -> client) event types.
const (
	EventMessage         EventType = "message"
	EventLocationMessage EventType = "locationMessage"
	EventRoomData        EventType = "roomData"
	EventAck             EventType = "ack"
)

// AdminSender is the sender name used for server-generated notices.
const AdminSender = "Admin"

// Envelope wraps every event sent over the wire in either direction.
// AckID is chosen by the client on inbound events that want an
// acknowledgement; the server echoes it back in the matching ack envelope.
type Envelope struct {
	ID      string          `json:"id,omitempty"`
	Type    EventType       `json:"type"`
	AckID   string          `json:"ackId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload carries the join request parameters.
type JoinPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// TextPayload carries the content of a sendMessage event.
type TextPayload struct {
	Text string `json:"text"`
}

// CoordinatesPayload carries the coordinates of a sendLocation event.
// Pointers distinguish absent coordinates from zero values.
type CoordinatesPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// MessagePayload is the outbound text message shape.
type MessagePayload struct {
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// LocationMessagePayload is the outbound location message shape.
type LocationMessagePayload struct {
	Username  string `json:"username"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
}

// RoomDataPayload is the outbound roster shape, listing every user currently
// present in the room.
type RoomDataPayload struct {
	Room  string          `json:"room"`
	Users []user.RoomUser `json:"users"`
}

// AckPayload reports the outcome of an inbound event back to its sender.
// Reason is empty on success.
type AckPayload struct {
	AckID  string `json:"ackId"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Ack status values.
const (
	AckStatusOK    = "ok"
	AckStatusError = "error"
)

// NewEnvelope builds an outbound envelope of the given type, marshaling the
// payload and assigning a fresh message ID.
func NewEnvelope(eventType EventType, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		ID:      randx.MessageID(),
		Type:    eventType,
		Payload: raw,
	}, nil
}

// NewTextMessage builds an outbound message envelope with the sender name,
// body, and creation timestamp (milliseconds since the Unix epoch).
func NewTextMessage(username, text string, at time.Time) (Envelope, error) {
	return NewEnvelope(EventMessage, MessagePayload{
		Username:  username,
		Text:      text,
		CreatedAt: at.UnixMilli(),
	})
}

// NewLocationMessage builds an outbound locationMessage envelope carrying a
// map link for the sender's coordinates.
func NewLocationMessage(username, url string, at time.Time) (Envelope, error) {
	return NewEnvelope(EventLocationMessage, LocationMessagePayload{
		Username:  username,
		URL:       url,
		CreatedAt: at.UnixMilli(),
	})
}

// NewRoomData builds an outbound roomData envelope with the room's roster.
func NewRoomData(room string, users []user.RoomUser) (Envelope, error) {
	return NewEnvelope(EventRoomData, RoomDataPayload{
		Room:  room,
		Users: users,
	})
}

// MapLinkURL builds the map link published in location messages.
func MapLinkURL(latitude, longitude float64) string {
	return "https://google.com/maps?q=" +
		strconv.FormatFloat(latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(longitude, 'f', -1, 64)
}
