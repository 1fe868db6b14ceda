package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestHubEmitExcludesOriginator(t *testing.T) {
	hub := NewHub(nil)

	x := newJoinedClient(t, hub, "x", "r")
	y := newJoinedClient(t, hub, "y", "r")

	hub.Emit("r", EventReceiveMessage, "hi", "x")

	ev := mustEvent(t, y.Events, EventReceiveMessage)
	if ev.Payload != "hi" || ev.Room != "r" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	mustNoEvent(t, x.Events)
}

func TestHubEmitUnknownExcludeReachesEveryone(t *testing.T) {
	hub := NewHub(nil)

	x := newJoinedClient(t, hub, "x", "r")
	y := newJoinedClient(t, hub, "y", "r")

	hub.Emit("r", EventReceiveMessage, "hi", "ghost")

	mustEvent(t, x.Events, EventReceiveMessage)
	mustEvent(t, y.Events, EventReceiveMessage)
}

func TestHubJoinIsIdempotent(t *testing.T) {
	hub := NewHub(nil)

	c := newJoinedClient(t, hub, "a", "r", "r")
	if err := hub.Join("a", "r"); err != nil {
		t.Fatalf("repeated join: %v", err)
	}

	if members := hub.MembersOf("r"); len(members) != 1 {
		t.Fatalf("expected one member, got %v", members)
	}

	hub.Emit("r", EventTyping, nil, "")
	mustEvent(t, c.Events, EventTyping)
	mustNoEvent(t, c.Events)
}

func TestHubJoinErrors(t *testing.T) {
	hub := NewHub(nil)

	if err := hub.Join("ghost", "r"); !errors.Is(err, ErrUnknownClient) {
		t.Fatalf("expected ErrUnknownClient, got %v", err)
	}

	hub.RegisterClient(NewClient("a", 1))
	if err := hub.Join("a", ""); !errors.Is(err, ErrEmptyRoom) {
		t.Fatalf("expected ErrEmptyRoom, got %v", err)
	}
}

func TestHubLeave(t *testing.T) {
	hub := NewHub(nil)

	a := newJoinedClient(t, hub, "a", "r1", "r2")
	if err := hub.Leave("a", "r1"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := hub.Leave("a", "never-joined"); err != nil {
		t.Fatalf("leave unknown room: %v", err)
	}

	hub.Emit("r1", EventTyping, nil, "")
	mustNoEvent(t, a.Events)
	hub.Emit("r2", EventTyping, nil, "")
	mustEvent(t, a.Events, EventTyping)

	if got := hub.MembersOf("r1"); len(got) != 0 {
		t.Fatalf("expected r1 empty, got %v", got)
	}
}

func TestHubDisconnectRemovesFromAllRooms(t *testing.T) {
	hub := NewHub(nil)

	a := newJoinedClient(t, hub, "a", "r1", "r2")
	b := newJoinedClient(t, hub, "b", "r1")

	hub.Disconnect("a")

	if _, open := <-a.Events; open {
		t.Fatalf("expected event queue closed after disconnect")
	}
	if rooms := hub.RoomsOf("a"); rooms != nil {
		t.Fatalf("expected no rooms, got %v", rooms)
	}
	if members := hub.MembersOf("r1"); len(members) != 1 || members[0] != "b" {
		t.Fatalf("unexpected r1 members: %v", members)
	}

	// Emitting after disconnect must not panic on the closed channel.
	hub.Emit("r1", EventReceiveMessage, "x", "")
	hub.Emit("r2", EventReceiveMessage, "x", "")
	hub.Broadcast(EventNotification, "n")
	mustEvent(t, b.Events, EventReceiveMessage)

	// Second disconnect is a no-op.
	hub.Disconnect("a")
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
}

func TestHubBroadcastReachesUnjoinedClients(t *testing.T) {
	hub := NewHub(nil)

	a := newJoinedClient(t, hub, "a")
	b := newJoinedClient(t, hub, "b", "r")

	hub.Broadcast(EventNotification, "hello")

	mustEvent(t, a.Events, EventNotification)
	mustEvent(t, b.Events, EventNotification)
}

func TestHubDropsForSlowConsumer(t *testing.T) {
	hub := NewHub(nil)

	slow := NewClient("slow", 1)
	hub.RegisterClient(slow)
	_ = hub.Join("slow", "r")
	fast := newJoinedClient(t, hub, "fast", "r")

	hub.Emit("r", EventTyping, 1, "")
	hub.Emit("r", EventTyping, 2, "")

	if got := len(slow.Events); got != 1 {
		t.Fatalf("expected slow queue to hold 1 event, got %d", got)
	}
	if got := len(fast.Events); got != 2 {
		t.Fatalf("fast client should receive both events, got %d", got)
	}
}

func TestEmitTargetRouting(t *testing.T) {
	hub := NewHub(nil)

	a := newJoinedClient(t, hub, "a", "u1")
	b := newJoinedClient(t, hub, "b", "u2")

	EmitTarget(hub, "u1", EventNotification, "personal")
	mustEvent(t, a.Events, EventNotification)
	mustNoEvent(t, b.Events)

	EmitTarget(hub, BroadcastTarget, EventNotification, "everyone")
	mustEvent(t, a.Events, EventNotification)
	mustEvent(t, b.Events, EventNotification)

	EmitTarget(hub, "", EventNotification, "nobody")
	mustNoEvent(t, a.Events)
}

func TestHubConcurrentMembershipAndFanout(t *testing.T) {
	hub := NewHub(nil)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			c := NewClient(id, 4)
			hub.RegisterClient(c)
			go func() {
				for range c.Events {
				}
			}()
			for j := range 50 {
				room := fmt.Sprintf("r%d", j%3)
				_ = hub.Join(id, room)
				hub.Emit(room, EventTyping, j, id)
				if j%7 == 0 {
					_ = hub.Leave(id, room)
				}
			}
			hub.Disconnect(id)
		}(i)
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Fatalf("expected no clients left, got %d", hub.ClientCount())
	}
	for j := range 3 {
		if members := hub.MembersOf(fmt.Sprintf("r%d", j)); len(members) != 0 {
			t.Fatalf("expected empty room, got %v", members)
		}
	}
}
