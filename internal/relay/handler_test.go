package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bhattabhuwan/backend-chat/internal/models"
	"github.com/bhattabhuwan/backend-chat/internal/store"
)

// brokenStore fails every append, for exercising the storage error path.
type brokenStore struct{}

func (brokenStore) Append(ctx context.Context, senderID, receiverID int64, body string) (*models.Message, error) {
	return nil, errors.New("append failed")
}
func (brokenStore) History(ctx context.Context, userA, userB int64) ([]models.Message, error) {
	return nil, nil
}
func (brokenStore) CountMessages(ctx context.Context) (int64, error) { return 0, nil }
func (brokenStore) Ping(ctx context.Context) error                   { return nil }
func (brokenStore) Close()                                           {}

func newTestRelay(t *testing.T) (*Relay, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return New(st, zerolog.Nop()), st
}

// drain decodes every pending frame on the client's queue.
func drain(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var events []Envelope
	for {
		select {
		case frame := <-c.Outgoing():
			var env Envelope
			if err := json.Unmarshal(frame, &env); err != nil {
				t.Fatalf("bad frame %s: %v", frame, err)
			}
			events = append(events, env)
		default:
			return events
		}
	}
}

// next decodes exactly one pending frame.
func next(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case frame := <-c.Outgoing():
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("bad frame %s: %v", frame, err)
		}
		return env
	default:
		t.Fatal("expected a pending event")
		return Envelope{}
	}
}

func count(events []Envelope, name string) int {
	n := 0
	for _, e := range events {
		if e.Event == name {
			n++
		}
	}
	return n
}

// connect registers a participant and consumes the connected ack.
func connect(t *testing.T, rel *Relay, userID int64) *Client {
	t.Helper()
	c := NewClient()
	rel.Connect(c, fmt.Sprintf("%d", userID))
	if ev := next(t, c); ev.Event != EventConnected {
		t.Fatalf("expected connected ack, got %q", ev.Event)
	}
	return c
}

func join(t *testing.T, rel *Relay, c *Client, senderID, receiverID int64, username string) {
	t.Helper()
	rel.HandleEvent(context.Background(), c, []byte(fmt.Sprintf(
		`{"event":"join","data":{"sender_id":%d,"receiver_id":%d,"sender_username":%q}}`,
		senderID, receiverID, username)))
}

func send(t *testing.T, rel *Relay, c *Client, senderID, receiverID int64, message string) {
	t.Helper()
	rel.HandleEvent(context.Background(), c, []byte(fmt.Sprintf(
		`{"event":"send_message","data":{"sender_id":%d,"receiver_id":%d,"message":%q}}`,
		senderID, receiverID, message)))
}

func TestConnectRegistersPresence(t *testing.T) {
	rel, _ := newTestRelay(t)

	c := connect(t, rel, 1)

	got, ok := rel.Presence().Lookup(1)
	if !ok || got != c {
		t.Fatal("connect must register presence")
	}
}

func TestConnectAnonymous(t *testing.T) {
	rel, _ := newTestRelay(t)

	c := NewClient()
	rel.Connect(c, "")

	if events := drain(t, c); len(events) != 0 {
		t.Fatalf("anonymous connect must not emit events, got %v", events)
	}
	if rel.Presence().Count() != 0 {
		t.Fatal("anonymous connection must stay unregistered")
	}

	// Unparseable ids are treated the same way.
	c2 := NewClient()
	rel.Connect(c2, "not-a-number")
	if events := drain(t, c2); len(events) != 0 {
		t.Fatalf("unparseable id must leave the connection anonymous, got %v", events)
	}
}

func TestJoinAnnouncesToRoomAndConfirmsPrivately(t *testing.T) {
	rel, _ := newTestRelay(t)
	a := connect(t, rel, 1)
	b := connect(t, rel, 2)

	join(t, rel, a, 1, 2, "Alice")

	aEvents := drain(t, a)
	if count(aEvents, EventSystem) != 1 {
		t.Fatalf("joiner must receive its own system notice, got %v", aEvents)
	}
	if count(aEvents, EventJoinedRoom) != 1 {
		t.Fatalf("joiner must receive a private joined_room, got %v", aEvents)
	}
	// b has not joined yet: no events.
	if events := drain(t, b); len(events) != 0 {
		t.Fatalf("non-member must not receive join events, got %v", events)
	}

	join(t, rel, b, 2, 1, "Bob")

	// Bob's join reaches both members of the same room.
	if events := drain(t, a); count(events, EventSystem) != 1 {
		t.Fatalf("existing member must see the new join notice, got %v", events)
	}
	bEvents := drain(t, b)
	if count(bEvents, EventSystem) != 1 || count(bEvents, EventJoinedRoom) != 1 {
		t.Fatalf("joiner must see notice and confirmation, got %v", bEvents)
	}
}

func TestJoinedRoomPayloadCarriesRoomID(t *testing.T) {
	rel, _ := newTestRelay(t)
	a := connect(t, rel, 5)

	join(t, rel, a, 5, 3, "Eve")

	for _, ev := range drain(t, a) {
		if ev.Event != EventJoinedRoom {
			continue
		}
		var payload JoinedRoomPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			t.Fatal(err)
		}
		if payload.Room != "room_3_5" {
			t.Fatalf("expected canonical room id room_3_5, got %q", payload.Room)
		}
		if payload.Timestamp == "" {
			t.Fatal("joined_room must carry a server timestamp")
		}
		return
	}
	t.Fatal("no joined_room event received")
}

func TestJoinValidationFailuresAreLocal(t *testing.T) {
	rel, _ := newTestRelay(t)
	a := connect(t, rel, 1)
	b := connect(t, rel, 2)
	join(t, rel, b, 2, 1, "Bob")
	drain(t, b)

	cases := []string{
		`{"event":"join","data":{"sender_id":"x","receiver_id":2,"sender_username":"Alice"}}`,
		`{"event":"join","data":{"sender_id":1,"receiver_id":2,"sender_username":"  "}}`,
		`{"event":"join","data":{"sender_id":1,"receiver_id":null,"sender_username":"Alice"}}`,
		`{"event":"join","data":{"sender_id":1,"sender_username":"Alice"}}`,
		`{"event":"join","data":{"receiver_id":2,"sender_username":"Alice"}}`,
	}
	for _, raw := range cases {
		rel.HandleEvent(context.Background(), a, []byte(raw))

		events := drain(t, a)
		if len(events) != 1 || events[0].Event != EventError {
			t.Fatalf("%s: expected a single error event, got %v", raw, events)
		}
		if events := drain(t, b); len(events) != 0 {
			t.Fatalf("%s: failure must stay local to the sender, got %v", raw, events)
		}
	}

	// The connection stays usable after a failure.
	join(t, rel, a, 1, 2, "Alice")
	if events := drain(t, a); count(events, EventJoinedRoom) != 1 {
		t.Fatalf("connection must remain usable after an error, got %v", events)
	}
}

func TestJoinWithoutIDsCreatesNoRoom(t *testing.T) {
	rel, _ := newTestRelay(t)
	a := connect(t, rel, 1)

	rel.HandleEvent(context.Background(), a, []byte(
		`{"event":"join","data":{"sender_username":"Alice"}}`))

	events := drain(t, a)
	if len(events) != 1 || events[0].Event != EventError {
		t.Fatalf("expected a single error event, got %v", events)
	}
	if got := rel.Rooms().ActiveRooms(); got != 0 {
		t.Fatalf("join without ids must not create a room, got %d", got)
	}
}

func TestSendMissingIDsRejected(t *testing.T) {
	rel, st := newTestRelay(t)
	a := connect(t, rel, 1)
	join(t, rel, a, 1, 2, "Alice")
	drain(t, a)

	cases := []string{
		`{"event":"send_message","data":{"receiver_id":2,"message":"hi"}}`,
		`{"event":"send_message","data":{"sender_id":1,"message":"hi"}}`,
		`{"event":"send_message","data":{"message":"hi"}}`,
	}
	for _, raw := range cases {
		rel.HandleEvent(context.Background(), a, []byte(raw))

		events := drain(t, a)
		if len(events) != 1 || events[0].Event != EventError {
			t.Fatalf("%s: expected a single error event, got %v", raw, events)
		}
	}

	if n, _ := st.CountMessages(context.Background()); n != 0 {
		t.Fatalf("sends without both ids must not be persisted, got %d messages", n)
	}
}

func TestSendPersistsAndFansOut(t *testing.T) {
	rel, st := newTestRelay(t)
	a := connect(t, rel, 1)
	b := connect(t, rel, 2)
	outsider := connect(t, rel, 3)

	join(t, rel, a, 1, 2, "Alice")
	join(t, rel, b, 2, 1, "Bob")
	drain(t, a)
	drain(t, b)

	send(t, rel, a, 1, 2, "hi")

	aEvents := drain(t, a)
	if count(aEvents, EventReceiveMessage) != 1 || count(aEvents, EventMessageSent) != 1 {
		t.Fatalf("sender must get fan-out and private ack, got %v", aEvents)
	}
	bEvents := drain(t, b)
	if count(bEvents, EventReceiveMessage) != 1 {
		t.Fatalf("peer must get the fan-out, got %v", bEvents)
	}
	if count(bEvents, EventMessageSent) != 0 {
		t.Fatal("delivery ack must go to the sender only")
	}
	if events := drain(t, outsider); len(events) != 0 {
		t.Fatalf("unrelated participant must not receive anything, got %v", events)
	}

	// Fan-out and ack agree on the persisted id and timestamp.
	var received ReceiveMessagePayload
	var ack MessageSentPayload
	for _, ev := range aEvents {
		switch ev.Event {
		case EventReceiveMessage:
			if err := json.Unmarshal(ev.Data, &received); err != nil {
				t.Fatal(err)
			}
		case EventMessageSent:
			if err := json.Unmarshal(ev.Data, &ack); err != nil {
				t.Fatal(err)
			}
		}
	}
	if received.MessageID != ack.MessageID {
		t.Fatalf("fan-out id %d != ack id %d", received.MessageID, ack.MessageID)
	}
	if received.Timestamp != ack.Timestamp {
		t.Fatalf("fan-out timestamp %q != ack timestamp %q", received.Timestamp, ack.Timestamp)
	}
	if received.Message != "hi" {
		t.Fatalf("expected body hi, got %q", received.Message)
	}

	history, err := st.History(context.Background(), 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].ID != ack.MessageID || history[0].Body != "hi" {
		t.Fatalf("history must contain the message exactly once, got %v", history)
	}
}

func TestSendTrimsBody(t *testing.T) {
	rel, st := newTestRelay(t)
	a := connect(t, rel, 1)
	join(t, rel, a, 1, 2, "Alice")
	drain(t, a)

	send(t, rel, a, 1, 2, "  hi  ")

	history, err := st.History(context.Background(), 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Body != "hi" {
		t.Fatalf("body must be stored trimmed, got %v", history)
	}
}

func TestSendEmptyBodyRejected(t *testing.T) {
	rel, st := newTestRelay(t)
	a := connect(t, rel, 1)
	b := connect(t, rel, 2)
	join(t, rel, a, 1, 2, "Alice")
	join(t, rel, b, 2, 1, "Bob")
	drain(t, a)
	drain(t, b)

	send(t, rel, a, 1, 2, "   ")

	events := drain(t, a)
	if len(events) != 1 || events[0].Event != EventError {
		t.Fatalf("expected a single error to the sender, got %v", events)
	}
	if events := drain(t, b); len(events) != 0 {
		t.Fatalf("empty send must not reach the peer, got %v", events)
	}

	if n, _ := st.CountMessages(context.Background()); n != 0 {
		t.Fatalf("empty send must not be persisted, got %d messages", n)
	}
}

func TestSendOverlongBodyRejected(t *testing.T) {
	rel, st := newTestRelay(t)
	a := connect(t, rel, 1)
	join(t, rel, a, 1, 2, "Alice")
	drain(t, a)

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'a'
	}
	send(t, rel, a, 1, 2, string(long))

	events := drain(t, a)
	if len(events) != 1 || events[0].Event != EventError {
		t.Fatalf("expected a single error to the sender, got %v", events)
	}
	if n, _ := st.CountMessages(context.Background()); n != 0 {
		t.Fatalf("overlong send must not be persisted, got %d messages", n)
	}
}

func TestSendStoreFailure(t *testing.T) {
	rel := New(brokenStore{}, zerolog.Nop())
	a := connect(t, rel, 1)
	b := connect(t, rel, 2)
	join(t, rel, a, 1, 2, "Alice")
	join(t, rel, b, 2, 1, "Bob")
	drain(t, a)
	drain(t, b)

	send(t, rel, a, 1, 2, "hi")

	events := drain(t, a)
	if len(events) != 1 || events[0].Event != EventError {
		t.Fatalf("expected a single error to the sender, got %v", events)
	}
	if events := drain(t, b); len(events) != 0 {
		t.Fatalf("failed append must not reach the peer, got %v", events)
	}

	// The connection stays usable after the failure.
	rel.HandleEvent(context.Background(), a, []byte(`{"event":"bogus"}`))
	if events := drain(t, a); len(events) != 1 || events[0].Event != EventError {
		t.Fatalf("connection must remain usable, got %v", events)
	}
}

func TestUnknownEventRejected(t *testing.T) {
	rel, _ := newTestRelay(t)
	a := connect(t, rel, 1)

	rel.HandleEvent(context.Background(), a, []byte(`{"event":"dance","data":{}}`))
	events := drain(t, a)
	if len(events) != 1 || events[0].Event != EventError {
		t.Fatalf("expected a single error event, got %v", events)
	}

	rel.HandleEvent(context.Background(), a, []byte(`not json`))
	events = drain(t, a)
	if len(events) != 1 || events[0].Event != EventError {
		t.Fatalf("expected a single error event, got %v", events)
	}
}

func TestDisconnectCleansUpSilently(t *testing.T) {
	rel, _ := newTestRelay(t)
	a := connect(t, rel, 1)
	b := connect(t, rel, 2)
	join(t, rel, a, 1, 2, "Alice")
	join(t, rel, b, 2, 1, "Bob")
	drain(t, a)
	drain(t, b)

	rel.Disconnect(a)

	if _, ok := rel.Presence().Lookup(1); ok {
		t.Fatal("disconnect must unregister presence")
	}
	if got := rel.Rooms().MemberCount(RoomID(1, 2)); got != 1 {
		t.Fatalf("disconnect must leave all rooms, got %d members", got)
	}
	// No "user left" notice is broadcast.
	if events := drain(t, b); len(events) != 0 {
		t.Fatalf("peer must not be notified of the disconnect, got %v", events)
	}
}

func TestConcurrentSendsGetUniqueIncreasingIDs(t *testing.T) {
	rel, st := newTestRelay(t)
	a := connect(t, rel, 1)
	b := connect(t, rel, 2)
	join(t, rel, a, 1, 2, "Alice")
	join(t, rel, b, 2, 1, "Bob")
	drain(t, a)
	drain(t, b)

	const perSender = 25
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < perSender; i++ {
			send(t, rel, a, 1, 2, fmt.Sprintf("from A %d", i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < perSender; i++ {
			send(t, rel, b, 2, 1, fmt.Sprintf("from B %d", i))
		}
	}()
	wg.Wait()

	history, err := st.History(context.Background(), 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2*perSender {
		t.Fatalf("expected %d messages, got %d", 2*perSender, len(history))
	}
	seen := make(map[int64]bool)
	last := int64(0)
	for _, msg := range history {
		if seen[msg.ID] {
			t.Fatalf("duplicate message id %d", msg.ID)
		}
		seen[msg.ID] = true
		if msg.ID <= last {
			t.Fatalf("ids must be strictly increasing, got %d after %d", msg.ID, last)
		}
		last = msg.ID
	}
}

func TestEndToEndScenario(t *testing.T) {
	rel, st := newTestRelay(t)

	conn1 := connect(t, rel, 1)
	conn2 := connect(t, rel, 2)

	join(t, rel, conn1, 1, 2, "Alice")
	join(t, rel, conn2, 2, 1, "Bob")

	events1 := drain(t, conn1)
	events2 := drain(t, conn2)
	if count(events1, EventSystem) != 2 {
		t.Fatalf("connection 1 must see both join notices, got %v", events1)
	}
	if count(events2, EventSystem) != 1 {
		// Bob joined second, so only his own notice reached him.
		t.Fatalf("connection 2 must see its own join notice, got %v", events2)
	}
	if count(events1, EventJoinedRoom) != 1 || count(events2, EventJoinedRoom) != 1 {
		t.Fatal("each connection gets exactly one private joined_room")
	}

	send(t, rel, conn1, 1, 2, "hi")

	events1 = drain(t, conn1)
	events2 = drain(t, conn2)
	if count(events1, EventMessageSent) != 1 {
		t.Fatalf("sender must get the delivery ack, got %v", events1)
	}
	if count(events1, EventReceiveMessage) != 1 || count(events2, EventReceiveMessage) != 1 {
		t.Fatal("both connections must get the fan-out")
	}

	var fromA, fromB ReceiveMessagePayload
	for _, ev := range events1 {
		if ev.Event == EventReceiveMessage {
			json.Unmarshal(ev.Data, &fromA)
		}
	}
	for _, ev := range events2 {
		if ev.Event == EventReceiveMessage {
			json.Unmarshal(ev.Data, &fromB)
		}
	}
	if fromA.MessageID != fromB.MessageID {
		t.Fatalf("both deliveries must carry the same message id: %d vs %d", fromA.MessageID, fromB.MessageID)
	}
	if fromA.Message != "hi" || fromB.Message != "hi" {
		t.Fatal("both deliveries must carry the body")
	}

	history, err := st.History(context.Background(), 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].ID != fromA.MessageID || history[0].Body != "hi" {
		t.Fatalf("history must hold exactly the delivered message, got %v", history)
	}
}
