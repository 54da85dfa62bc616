/*
Package user contains core data structures related to participant identity.

It defines the basic representation of a chat participant (the User struct),
used for passing user information both internally and to clients.
*/
package user

// User represents one connected, joined participant. A User exists from a
// successful join until the matching disconnect; its fields never change in
// between (there is no rename or room-change operation).
type User struct {
	// ConnectionID is the opaque identifier of the underlying transport
	// connection, unique per live connection and assigned by the transport.
	ConnectionID string `json:"-"`

	// Username is the display name of the user, unique within its room
	// (case-insensitive).
	Username string `json:"username"`

	// Room is the name of the room the user belongs to.
	Room string `json:"room"`
}

// RoomUser is the roster entry published to clients in roomData events.
type RoomUser struct {
	Username string `json:"username"`
}
