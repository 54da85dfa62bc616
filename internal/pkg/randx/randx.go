/*
Package randx provides functions for generating unique identifiers.

It is primarily used to assign opaque connection IDs to accepted transport
connections and unique IDs to outbound chat messages.
*/
package randx

import (
	"github.com/google/uuid"
)

// ConnectionIDPrefix is the prefix applied to transport-assigned connection IDs,
// which keeps them visually distinct from message IDs in logs.
const ConnectionIDPrefix = "conn_"

// ConnectionID generates an opaque, unique identifier for a live transport connection.
func ConnectionID() string {
	return ConnectionIDPrefix + uuid.NewString()
}

// MessageID generates a unique identifier for an outbound message envelope.
func MessageID() string {
	return uuid.NewString()
}
