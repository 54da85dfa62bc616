package chat

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"chatrelay/internal/pkg/errs"
)

// fakeConn records every envelope the hub delivers to one connection.
type fakeConn struct {
	mu     sync.Mutex
	envs   []Envelope
	closed bool
}

func (f *fakeConn) Send(env Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envs = append(f.envs, env)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) received(eventType EventType) []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Envelope
	for _, env := range f.envs {
		if env.Type == eventType {
			out = append(out, env)
		}
	}
	return out
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.envs)
}

// filterFunc adapts a plain function to the Filter interface.
type filterFunc func(string) bool

func (f filterFunc) IsProfane(text string) bool { return f(text) }

var testTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func newTestHub(filter Filter) *Hub {
	if filter == nil {
		filter = filterFunc(func(string) bool { return false })
	}
	h := NewHub(NewRegistry(), filter)
	h.now = func() time.Time { return testTime }
	return h
}

func decodePayload[T any](t *testing.T, env Envelope) T {
	t.Helper()

	var payload T
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	return payload
}

func join(t *testing.T, h *Hub, id, username, room string) *fakeConn {
	t.Helper()

	conn := &fakeConn{}
	h.Register(id, conn)
	if joinErr := h.Join(id, username, room); joinErr != nil {
		t.Fatalf("Join(%s) failed: %v", username, joinErr)
	}
	return conn
}

func TestHub_Join(t *testing.T) {
	t.Run("joiner receives welcome and roster", func(t *testing.T) {
		h := newTestHub(nil)
		alice := join(t, h, "conn-1", "alice", "r1")

		messages := alice.received(EventMessage)
		if len(messages) != 1 {
			t.Fatalf("Expected 1 message for joiner, got %d", len(messages))
		}

		welcome := decodePayload[MessagePayload](t, messages[0])
		if welcome.Username != AdminSender || welcome.Text != "Welcome!" {
			t.Errorf("Unexpected welcome message: %+v", welcome)
		}
		if welcome.CreatedAt != testTime.UnixMilli() {
			t.Errorf("Expected createdAt %d, got %d", testTime.UnixMilli(), welcome.CreatedAt)
		}

		rosters := alice.received(EventRoomData)
		if len(rosters) != 1 {
			t.Fatalf("Expected 1 roomData for joiner, got %d", len(rosters))
		}
		roomData := decodePayload[RoomDataPayload](t, rosters[0])
		if roomData.Room != "r1" || len(roomData.Users) != 1 || roomData.Users[0].Username != "alice" {
			t.Errorf("Unexpected roomData: %+v", roomData)
		}
	})

	t.Run("existing members get notice and refreshed roster", func(t *testing.T) {
		h := newTestHub(nil)
		alice := join(t, h, "conn-1", "alice", "r1")
		bob := join(t, h, "conn-2", "bob", "r1")

		aliceMessages := alice.received(EventMessage)
		if len(aliceMessages) != 2 {
			t.Fatalf("Expected welcome + join notice for alice, got %d messages", len(aliceMessages))
		}
		notice := decodePayload[MessagePayload](t, aliceMessages[1])
		if notice.Username != AdminSender || notice.Text != "bob has joined!" {
			t.Errorf("Unexpected join notice: %+v", notice)
		}

		// The joiner must not see their own join notice.
		bobMessages := bob.received(EventMessage)
		if len(bobMessages) != 1 {
			t.Fatalf("Expected only welcome for bob, got %d messages", len(bobMessages))
		}

		aliceRosters := alice.received(EventRoomData)
		lastRoster := decodePayload[RoomDataPayload](t, aliceRosters[len(aliceRosters)-1])
		if len(lastRoster.Users) != 2 ||
			lastRoster.Users[0].Username != "alice" ||
			lastRoster.Users[1].Username != "bob" {
			t.Errorf("Unexpected roster after second join: %+v", lastRoster)
		}
	})

	t.Run("duplicate username rejected without broadcast", func(t *testing.T) {
		h := newTestHub(nil)
		alice := join(t, h, "conn-1", "alice", "r1")
		seen := alice.count()

		conn2 := &fakeConn{}
		h.Register("conn-2", conn2)

		joinErr := h.Join("conn-2", "alice", "r1")
		if joinErr == nil {
			t.Fatal("Expected duplicate join to fail")
		}
		if joinErr.Code != errs.ErrUsernameTaken {
			t.Errorf("Expected code %d, got %d", errs.ErrUsernameTaken, joinErr.Code)
		}
		if joinErr.Message == "" {
			t.Error("Expected a non-empty error description for the ack")
		}

		if conn2.count() != 0 {
			t.Errorf("Rejected joiner received %d events, expected none", conn2.count())
		}
		if alice.count() != seen {
			t.Errorf("Room members received %d extra events after rejected join", alice.count()-seen)
		}
	})

	t.Run("second join on same connection rejected", func(t *testing.T) {
		h := newTestHub(nil)
		join(t, h, "conn-1", "alice", "r1")

		joinErr := h.Join("conn-1", "alice2", "r2")
		if joinErr == nil || joinErr.Code != errs.ErrAlreadyJoined {
			t.Errorf("Expected ErrAlreadyJoined, got %v", joinErr)
		}
	})

	t.Run("unregistered connection rejected", func(t *testing.T) {
		h := newTestHub(nil)

		if joinErr := h.Join("ghost", "alice", "r1"); joinErr == nil {
			t.Error("Expected join from unregistered connection to fail")
		}
	})
}

func TestHub_SendMessage(t *testing.T) {
	t.Run("fan-out to whole room including sender", func(t *testing.T) {
		h := newTestHub(nil)
		alice := join(t, h, "conn-1", "alice", "r1")
		bob := join(t, h, "conn-2", "bob", "r1")
		carol := join(t, h, "conn-3", "carol", "r2")
		carolSeen := carol.count()

		if sendErr := h.SendMessage("conn-2", "hi"); sendErr != nil {
			t.Fatalf("SendMessage failed: %v", sendErr)
		}

		for name, conn := range map[string]*fakeConn{"alice": alice, "bob": bob} {
			messages := conn.received(EventMessage)
			last := decodePayload[MessagePayload](t, messages[len(messages)-1])
			if last.Username != "bob" || last.Text != "hi" {
				t.Errorf("%s saw unexpected message: %+v", name, last)
			}
		}

		// Other rooms must not see the message.
		if carol.count() != carolSeen {
			t.Error("Message leaked into another room")
		}
	})

	t.Run("profane message rejected without broadcast", func(t *testing.T) {
		h := newTestHub(filterFunc(func(text string) bool {
			return strings.Contains(text, "bad")
		}))
		alice := join(t, h, "conn-1", "alice", "r1")
		seen := alice.count()

		sendErr := h.SendMessage("conn-1", "this is bad")
		if sendErr == nil || sendErr.Code != errs.ErrProfanity {
			t.Fatalf("Expected ErrProfanity, got %v", sendErr)
		}
		if alice.count() != seen {
			t.Error("Rejected message was still broadcast")
		}
	})

	t.Run("oversized message rejected", func(t *testing.T) {
		h := newTestHub(nil)
		join(t, h, "conn-1", "alice", "r1")

		sendErr := h.SendMessage("conn-1", strings.Repeat("a", MaxMessageBytes+1))
		if sendErr == nil || sendErr.Code != errs.ErrMessageTooLong {
			t.Errorf("Expected ErrMessageTooLong, got %v", sendErr)
		}
	})

	t.Run("not joined is surfaced to the sender", func(t *testing.T) {
		h := newTestHub(nil)
		conn := &fakeConn{}
		h.Register("conn-1", conn)

		sendErr := h.SendMessage("conn-1", "hi")
		if sendErr == nil || sendErr.Code != errs.ErrNotJoined {
			t.Errorf("Expected ErrNotJoined, got %v", sendErr)
		}
		if conn.count() != 0 {
			t.Error("No broadcast expected for unjoined sender")
		}
	})
}

func TestHub_SendLocation(t *testing.T) {
	t.Run("broadcasts map link to whole room", func(t *testing.T) {
		h := newTestHub(nil)
		alice := join(t, h, "conn-1", "alice", "r1")
		bob := join(t, h, "conn-2", "bob", "r1")

		if sendErr := h.SendLocation("conn-2", 15.0887, 120.55); sendErr != nil {
			t.Fatalf("SendLocation failed: %v", sendErr)
		}

		for name, conn := range map[string]*fakeConn{"alice": alice, "bob": bob} {
			locations := conn.received(EventLocationMessage)
			if len(locations) != 1 {
				t.Fatalf("%s expected 1 locationMessage, got %d", name, len(locations))
			}
			loc := decodePayload[LocationMessagePayload](t, locations[0])
			if loc.Username != "bob" {
				t.Errorf("%s saw sender %q, expected bob", name, loc.Username)
			}
			if loc.URL != "https://google.com/maps?q=15.0887,120.55" {
				t.Errorf("%s saw unexpected URL %q", name, loc.URL)
			}
			if loc.CreatedAt != testTime.UnixMilli() {
				t.Errorf("%s saw createdAt %d, expected %d", name, loc.CreatedAt, testTime.UnixMilli())
			}
		}
	})

	t.Run("not joined is surfaced to the sender", func(t *testing.T) {
		h := newTestHub(nil)
		conn := &fakeConn{}
		h.Register("conn-1", conn)

		sendErr := h.SendLocation("conn-1", 1, 2)
		if sendErr == nil || sendErr.Code != errs.ErrNotJoined {
			t.Errorf("Expected ErrNotJoined, got %v", sendErr)
		}
	})
}

func TestHub_Disconnect(t *testing.T) {
	t.Run("remaining members get leave notice and roster", func(t *testing.T) {
		h := newTestHub(nil)
		alice := join(t, h, "conn-1", "alice", "r1")
		join(t, h, "conn-2", "bob", "r1")

		h.Disconnect("conn-2")

		messages := alice.received(EventMessage)
		last := decodePayload[MessagePayload](t, messages[len(messages)-1])
		if last.Username != AdminSender || last.Text != "bob has left." {
			t.Errorf("Unexpected leave notice: %+v", last)
		}

		rosters := alice.received(EventRoomData)
		roster := decodePayload[RoomDataPayload](t, rosters[len(rosters)-1])
		if len(roster.Users) != 1 || roster.Users[0].Username != "alice" {
			t.Errorf("Unexpected roster after leave: %+v", roster)
		}
	})

	t.Run("disconnect before join is silent", func(t *testing.T) {
		h := newTestHub(nil)
		alice := join(t, h, "conn-1", "alice", "r1")
		seen := alice.count()

		conn2 := &fakeConn{}
		h.Register("conn-2", conn2)
		h.Disconnect("conn-2")

		if alice.count() != seen {
			t.Error("Disconnect of unjoined connection triggered a broadcast")
		}
	})

	t.Run("username reusable after disconnect", func(t *testing.T) {
		h := newTestHub(nil)
		join(t, h, "conn-1", "alice", "r1")
		h.Disconnect("conn-1")

		conn2 := &fakeConn{}
		h.Register("conn-2", conn2)
		if joinErr := h.Join("conn-2", "alice", "r1"); joinErr != nil {
			t.Errorf("Expected rejoin with freed username to succeed, got %v", joinErr)
		}
	})
}

func TestHub_Shutdown(t *testing.T) {
	h := newTestHub(nil)
	alice := join(t, h, "conn-1", "alice", "r1")

	conn2 := &fakeConn{}
	h.Register("conn-2", conn2)

	h.Shutdown()

	for name, conn := range map[string]*fakeConn{"alice": alice, "anonymous": conn2} {
		conn.mu.Lock()
		closed := conn.closed
		conn.mu.Unlock()
		if !closed {
			t.Errorf("Expected %s connection to be closed on shutdown", name)
		}
	}
}

func TestHub_RosterScenario(t *testing.T) {
	// join(alice, r1), join(bob, r1), sendMessage(bob, "hi"): both receive the
	// message, and each roster broadcast lists exactly the users joined so far.
	h := newTestHub(nil)
	alice := join(t, h, "conn-1", "alice", "r1")
	join(t, h, "conn-2", "bob", "r1")

	if sendErr := h.SendMessage("conn-2", "hi"); sendErr != nil {
		t.Fatalf("SendMessage failed: %v", sendErr)
	}

	rosters := alice.received(EventRoomData)
	if len(rosters) != 2 {
		t.Fatalf("Expected 2 roster broadcasts, got %d", len(rosters))
	}

	first := decodePayload[RoomDataPayload](t, rosters[0])
	if len(first.Users) != 1 || first.Users[0].Username != "alice" {
		t.Errorf("First roster should list only alice: %+v", first)
	}

	second := decodePayload[RoomDataPayload](t, rosters[1])
	if len(second.Users) != 2 {
		t.Errorf("Second roster should list both users: %+v", second)
	}
}
