package events

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchforge/bom/pkg/domain/entities"
)

type captureHandler struct {
	mu     sync.Mutex
	events []Event
	done   chan struct{}
}

func newCaptureHandler(expected int) *captureHandler {
	h := &captureHandler{done: make(chan struct{})}
	go func() {
		for {
			h.mu.Lock()
			n := len(h.events)
			h.mu.Unlock()
			if n >= expected {
				close(h.done)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	return h
}

func (h *captureHandler) Handle(event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *captureHandler) CanHandle(eventType string) bool {
	return eventType == VersionCreatedEvent
}

func testVersionEvent(t *testing.T) Event {
	t.Helper()
	v, err := entities.NewBOMVersion("BOM-V1", "PIZZA", 1, entities.StatusActive,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil, decimal.NewFromInt(10), "kg")
	require.NoError(t, err)
	return NewVersionCreatedEvent(*v)
}

func TestAppendAndReadStream(t *testing.T) {
	store := NewInMemoryEventStore(nil)

	require.NoError(t, store.AppendEvent("PIZZA", testVersionEvent(t)))
	require.NoError(t, store.AppendEvent("PIZZA", testVersionEvent(t)))
	require.NoError(t, store.AppendEvent("BREAD", testVersionEvent(t)))

	events, err := store.ReadEvents("PIZZA", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Version())
	assert.Equal(t, 2, events[1].Version())
	assert.NotEmpty(t, events[0].ID())

	fromSecond, err := store.ReadEvents("PIZZA", 2)
	require.NoError(t, err)
	require.Len(t, fromSecond, 1)
	assert.Equal(t, 2, fromSecond[0].Version())

	all, err := store.ReadAllEvents(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	empty, err := store.ReadEvents("NOPE", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	store := NewInMemoryEventStore(nil)

	handler := newCaptureHandler(1)
	require.NoError(t, store.Subscribe([]string{VersionCreatedEvent}, handler))

	require.NoError(t, store.AppendEvent("PIZZA", testVersionEvent(t)))

	select {
	case <-handler.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handler was not notified")
	}

	require.NoError(t, store.Unsubscribe(handler))
	require.NoError(t, store.AppendEvent("PIZZA", testVersionEvent(t)))

	time.Sleep(20 * time.Millisecond)
	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Len(t, handler.events, 1, "unsubscribed handler must not receive events")
}
