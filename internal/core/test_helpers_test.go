package core

import (
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, name string) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed while waiting for %s", name)
			}
			if ev == nil {
				continue
			}
			if ev.Name == name {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event %s not received", name)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func newJoinedClient(t *testing.T, hub *Hub, id string, rooms ...string) *Client {
	t.Helper()

	c := NewClient(id, 8)
	hub.RegisterClient(c)
	for _, room := range rooms {
		if err := hub.Join(id, room); err != nil {
			t.Fatalf("join %s to %s: %v", id, room, err)
		}
	}
	return c
}
