package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type memStore struct {
	events []Event
	err    error
}

func (m *memStore) InsertEvent(_ context.Context, topic, aggregateID string, payload []byte) (Event, error) {
	if m.err != nil {
		return Event{}, m.err
	}
	ev := Event{
		ID:          int64(len(m.events) + 1),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}
	m.events = append(m.events, ev)
	return ev, nil
}

type captureNotifier struct {
	seen []Event
	err  error
}

func (c *captureNotifier) Notify(_ context.Context, ev Event) error {
	c.seen = append(c.seen, ev)
	return c.err
}

func TestPublishPersistsAndNotifies(t *testing.T) {
	store := &memStore{}
	notifier := &captureNotifier{}
	bus := NewBus(store, notifier)

	err := bus.Publish(context.Background(), TopicOrderCreated, "agg-1", map[string]any{"orderNo": 7})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected 1 persisted event, got %d", len(store.events))
	}
	if len(notifier.seen) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.seen))
	}
	var payload map[string]any
	if err := json.Unmarshal(store.events[0].Payload, &payload); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if payload["orderNo"] != float64(7) {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestPublishValidation(t *testing.T) {
	bus := NewBus(&memStore{})
	if err := bus.Publish(context.Background(), "  ", "agg", nil); err == nil {
		t.Fatal("expected error for blank topic")
	}
	if err := bus.Publish(context.Background(), TopicOrderCreated, "", nil); err == nil {
		t.Fatal("expected error for missing aggregate id")
	}
	if err := bus.Publish(context.Background(), TopicOrderCreated, "agg", []byte("not-json")); err == nil {
		t.Fatal("expected error for invalid json payload")
	}
}

func TestPublishNilPayloadDefaultsToEmptyObject(t *testing.T) {
	store := &memStore{}
	bus := NewBus(store)
	if err := bus.Publish(context.Background(), TopicCustomerCreated, "agg", nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if string(store.events[0].Payload) != "{}" {
		t.Fatalf("expected empty object payload, got %s", store.events[0].Payload)
	}
}

func TestPublishNotifierErrorDoesNotDropEvent(t *testing.T) {
	store := &memStore{}
	notifier := &captureNotifier{err: errors.New("smtp down")}
	bus := NewBus(store, notifier)

	err := bus.Publish(context.Background(), TopicTeamInvited, "agg", nil)
	if err == nil {
		t.Fatal("expected joined notifier error")
	}
	if len(store.events) != 1 {
		t.Fatal("event should persist despite notifier failure")
	}
}
