/*
Package chat contains the core logic for tracking room presence and routing
chat events between connections.

This file defines the Registry struct, the single process-wide collection of
all live users. It enforces the presence invariants: at most one user per
connection, and no two users in the same room with case-insensitively equal
usernames.
*/
package chat

import (
	"sort"
	"strings"
	"sync"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/errs"
)

// Registry maps connection identity to (username, room) for every live user.
// Rooms are implicit: a room exists exactly while it has at least one member,
// and a room with zero members has no representation here.
//
// All methods are safe for concurrent use. Mutations are serialized by the
// internal mutex so two simultaneous joins can never violate the per-room
// username uniqueness invariant.
type Registry struct {
	// mu protects users and rooms.
	mu sync.RWMutex

	// users maps connection ID to the joined user owning that connection.
	users map[string]user.User

	// rooms maps room name (exact match) to the member connection IDs in
	// join order, which keeps roster order stable.
	rooms map[string][]string
}

// RoomSummary describes one active room for the room listing endpoint.
type RoomSummary struct {
	Room      string `json:"room"`
	Occupants int    `json:"occupants"`
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]user.User),
		rooms: make(map[string][]string),
	}
}

// AddUser validates and inserts a new user for the given connection.
// Username and room are trimmed of surrounding whitespace and must be
// non-empty afterwards. The username must not collide (case-insensitively)
// with another live user in the same room, and the connection must not
// already own a user.
func (reg *Registry) AddUser(connectionID, username, room string) (user.User, *errs.CustomError) {
	username = strings.TrimSpace(username)
	room = strings.TrimSpace(room)

	if username == "" || room == "" {
		return user.User{}, errs.NewError(errs.ErrUsernameRoomRequired)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.users[connectionID]; ok {
		return user.User{}, errs.NewError(errs.ErrAlreadyJoined)
	}

	for _, memberID := range reg.rooms[room] {
		if strings.EqualFold(reg.users[memberID].Username, username) {
			return user.User{}, errs.NewError(errs.ErrUsernameTaken)
		}
	}

	u := user.User{
		ConnectionID: connectionID,
		Username:     username,
		Room:         room,
	}

	reg.users[connectionID] = u
	reg.rooms[room] = append(reg.rooms[room], connectionID)

	return u, nil
}

// RemoveUser removes and returns the user owning the given connection.
// ok is false if the connection never completed a join.
func (reg *Registry) RemoveUser(connectionID string) (user.User, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	u, ok := reg.users[connectionID]
	if !ok {
		return user.User{}, false
	}

	delete(reg.users, connectionID)

	members := reg.rooms[u.Room]
	for i, memberID := range members {
		if memberID == connectionID {
			members = append(members[:i], members[i+1:]...)
			break
		}
	}

	if len(members) == 0 {
		delete(reg.rooms, u.Room)
	} else {
		reg.rooms[u.Room] = members
	}

	return u, true
}

// GetUser returns the user owning the given connection, without mutation.
func (reg *Registry) GetUser(connectionID string) (user.User, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	u, ok := reg.users[connectionID]
	return u, ok
}

// UsersInRoom returns the roster of the given room (exact-match name) in
// join order. The result is a copy and is empty for unknown rooms.
func (reg *Registry) UsersInRoom(room string) []user.RoomUser {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	members := reg.rooms[room]
	roster := make([]user.RoomUser, 0, len(members))

	for _, memberID := range members {
		roster = append(roster, user.RoomUser{Username: reg.users[memberID].Username})
	}

	return roster
}

// ConnectionsInRoom returns the connection IDs of the given room's members in
// join order. The result is a copy safe to iterate without holding the lock.
func (reg *Registry) ConnectionsInRoom(room string) []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	members := reg.rooms[room]
	ids := make([]string, len(members))
	copy(ids, members)

	return ids
}

// Rooms returns a summary of every active room, sorted by room name.
func (reg *Registry) Rooms() []RoomSummary {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	summaries := make([]RoomSummary, 0, len(reg.rooms))
	for room, members := range reg.rooms {
		summaries = append(summaries, RoomSummary{Room: room, Occupants: len(members)})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Room < summaries[j].Room
	})

	return summaries
}
