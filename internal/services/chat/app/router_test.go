package server

import (
	"testing"
	"time"

	"github.com/xleb321/chat-project/internal/services/chat/token"
)

var routerTestSender = token.Identity{ID: "alice-id", Username: "alice"}

func TestRouteDeliversAndPersists(t *testing.T) {
	store := newFakeStore()
	reg := newRegistry()
	rt := newRouter(reg, store)

	bob := newConnectedPeer(t)
	reg.register(token.Identity{ID: "bob-id", Username: "bob"}, bob.peer)

	recordID, err := rt.route(routerTestSender, "bob-id", "hello")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if recordID == "" {
		t.Fatal("expected a record id")
	}

	frame := bob.waitForFrame(t)
	if frame.Type != frameTypeMessage {
		t.Fatalf("unexpected frame type %q", frame.Type)
	}
	if frame.Data.ID != recordID {
		t.Fatalf("expected frame id %q, got %q", recordID, frame.Data.ID)
	}
	if frame.Data.From != "alice" {
		t.Fatalf("expected sender username, got %q", frame.Data.From)
	}
	if frame.Data.To != "bob-id" || frame.Data.Content != "hello" {
		t.Fatalf("unexpected frame payload %+v", frame.Data)
	}
	if _, err := time.Parse(time.RFC3339, frame.Data.CreatedAt); err != nil {
		t.Fatalf("created at is not RFC 3339: %v", err)
	}

	record := store.waitForAppend(t)
	if record.ID != recordID {
		t.Fatalf("expected persisted id %q, got %q", recordID, record.ID)
	}
	if record.FromUserID != "alice-id" || record.ToUserID != "bob-id" {
		t.Fatalf("unexpected persisted endpoints %+v", record)
	}
	if record.Content != "hello" {
		t.Fatalf("unexpected persisted content %q", record.Content)
	}
}

func TestRouteUnreachableRecipientStillPersists(t *testing.T) {
	store := newFakeStore()
	rt := newRouter(newRegistry(), store)

	recordID, err := rt.route(routerTestSender, "bob-id", "hello")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if recordID == "" {
		t.Fatal("expected a record id for an offline recipient")
	}

	record := store.waitForAppend(t)
	if record.ID != recordID {
		t.Fatalf("expected persisted id %q, got %q", recordID, record.ID)
	}
}

func TestRouteEmptyContentStillPersistsAndDelivers(t *testing.T) {
	store := newFakeStore()
	reg := newRegistry()
	rt := newRouter(reg, store)

	bob := newConnectedPeer(t)
	reg.register(token.Identity{ID: "bob-id", Username: "bob"}, bob.peer)

	recordID, err := rt.route(routerTestSender, "bob-id", "")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if recordID == "" {
		t.Fatal("expected a record id for empty content")
	}

	frame := bob.waitForFrame(t)
	if frame.Data.ID != recordID || frame.Data.Content != "" {
		t.Fatalf("unexpected frame payload %+v", frame.Data)
	}

	record := store.waitForAppend(t)
	if record.ID != recordID || record.Content != "" {
		t.Fatalf("unexpected persisted record %+v", record)
	}
}

func TestRouteBlankRecipientStillPersists(t *testing.T) {
	store := newFakeStore()
	rt := newRouter(newRegistry(), store)

	recordID, err := rt.route(routerTestSender, "", "hello")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if recordID == "" {
		t.Fatal("expected a record id for a blank recipient")
	}

	record := store.waitForAppend(t)
	if record.ID != recordID || record.ToUserID != "" {
		t.Fatalf("unexpected persisted record %+v", record)
	}
}

func TestRouteDeliversInOrder(t *testing.T) {
	store := newFakeStore()
	reg := newRegistry()
	rt := newRouter(reg, store)

	bob := newConnectedPeer(t)
	reg.register(token.Identity{ID: "bob-id", Username: "bob"}, bob.peer)

	first, err := rt.route(routerTestSender, "bob-id", "first")
	if err != nil {
		t.Fatalf("route first: %v", err)
	}
	second, err := rt.route(routerTestSender, "bob-id", "second")
	if err != nil {
		t.Fatalf("route second: %v", err)
	}

	if got := bob.waitForFrame(t); got.Data.ID != first {
		t.Fatalf("expected first message, got %+v", got.Data)
	}
	if got := bob.waitForFrame(t); got.Data.ID != second {
		t.Fatalf("expected second message, got %+v", got.Data)
	}
}
