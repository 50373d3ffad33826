package events

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// TestPublishSubscribe verifies basic publish/subscribe functionality.
func TestPublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicTask, 10)

	event := TaskStartedEvent{
		ID:          "textures",
		Description: "Loading textures",
		Worker:      1,
		Timestamp:   time.Now(),
	}

	bus.Publish(TopicTask, event)

	select {
	case received := <-ch:
		if received.TaskID() != "textures" {
			t.Errorf("expected task ID 'textures', got '%s'", received.TaskID())
		}
		if received.EventType() != EventTypeTaskStarted {
			t.Errorf("expected event type '%s', got '%s'", EventTypeTaskStarted, received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

// TestMultipleSubscribers verifies multiple subscribers receive the same event.
func TestMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch1 := bus.Subscribe(TopicTask, 10)
	ch2 := bus.Subscribe(TopicTask, 10)

	event := TaskCompletedEvent{
		ID:        "models",
		Err:       errors.New("missing mesh"),
		Duration:  100 * time.Millisecond,
		Timestamp: time.Now(),
	}

	bus.Publish(TopicTask, event)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			completed, ok := received.(TaskCompletedEvent)
			if !ok {
				t.Fatalf("subscriber %d: expected TaskCompletedEvent, got %T", i+1, received)
			}
			if !completed.Failed() {
				t.Errorf("subscriber %d: expected failed completion", i+1)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("subscriber %d: timeout waiting for event", i+1)
		}
	}
}

// TestNonBlockingSend verifies that publishing doesn't block when channels
// are full and that the drops are counted.
func TestNonBlockingSend(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicProgress, 1)

	done := make(chan bool)
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(TopicProgress, ProgressEvent{
				Message:   fmt.Sprintf("step %d", i),
				Completed: i + 1,
				Total:     10,
				Timestamp: time.Now(),
			})
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("publisher blocked (expected non-blocking behavior)")
	}

	select {
	case received := <-ch:
		if p := received.(ProgressEvent); p.Completed != 1 {
			t.Errorf("expected the first event to be buffered, got completed=%d", p.Completed)
		}
	default:
		t.Error("expected one event in buffer")
	}

	if got := bus.Dropped(); got != 9 {
		t.Errorf("expected 9 dropped deliveries, got %d", got)
	}
}

// TestDefaultBufferSize verifies non-positive buffer sizes fall back to the default.
func TestDefaultBufferSize(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.SubscribeAll(0)
	if cap(ch) != DefaultBufferSize {
		t.Errorf("expected capacity %d, got %d", DefaultBufferSize, cap(ch))
	}
}

// TestCloseSignalsSubscribers verifies that closing the bus closes subscriber channels.
func TestCloseSignalsSubscribers(t *testing.T) {
	bus := NewEventBus()

	ch := bus.Subscribe(TopicTask, 10)
	all := bus.SubscribeAll(10)

	bus.Close()
	bus.Close() // Second close is a no-op

	for _, c := range []<-chan Event{ch, all} {
		received := 0
		for range c {
			received++
		}
		if received != 0 {
			t.Errorf("expected 0 events after close, got %d", received)
		}
	}

	// Subscribing after close yields a closed channel
	if _, ok := <-bus.Subscribe(TopicTask, 1); ok {
		t.Error("expected closed channel from Subscribe after Close")
	}
}

// TestPublishAfterClose verifies publishing after close doesn't panic.
func TestPublishAfterClose(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(TopicScheduler, 10)

	bus.Close()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("publishing after close caused panic: %v", r)
		}
	}()

	bus.Publish(TopicScheduler, WarningEvent{Message: "late", Timestamp: time.Now()})

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received event after bus was closed")
		}
	default:
	}
}

// TestMultipleTopics verifies topic isolation.
func TestMultipleTopics(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	taskCh := bus.Subscribe(TopicTask, 10)
	progressCh := bus.Subscribe(TopicProgress, 10)

	bus.Publish(TopicTask, TaskStartedEvent{ID: "audio", Timestamp: time.Now()})
	bus.Publish(TopicProgress, ProgressEvent{Completed: 5, Total: 10, Fraction: 0.5, Timestamp: time.Now()})

	select {
	case received := <-taskCh:
		if received.EventType() != EventTypeTaskStarted {
			t.Errorf("task channel: expected task event, got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("task channel: timeout waiting for event")
	}

	select {
	case received := <-progressCh:
		if received.EventType() != EventTypeProgress {
			t.Errorf("progress channel: expected progress event, got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("progress channel: timeout waiting for event")
	}

	select {
	case <-taskCh:
		t.Error("task channel received unexpected event")
	case <-progressCh:
		t.Error("progress channel received unexpected event")
	case <-time.After(10 * time.Millisecond):
	}
}

// TestSubscribeAll verifies that SubscribeAll receives events from all topics.
func TestSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	allCh := bus.SubscribeAll(20)

	bus.Publish(TopicScheduler, LoadingStartedEvent{Total: 3, Workers: 2, Timestamp: time.Now()})
	bus.Publish(TopicTask, TaskStartedEvent{ID: "shaders", Timestamp: time.Now()})
	bus.Publish(TopicScheduler, WarningEvent{Message: "cycle", Timestamp: time.Now()})

	receivedTypes := make(map[string]bool)
	for i := 0; i < 3; i++ {
		select {
		case received := <-allCh:
			receivedTypes[received.EventType()] = true
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for event")
		}
	}

	for _, want := range []string{EventTypeLoadingStarted, EventTypeTaskStarted, EventTypeWarning} {
		if !receivedTypes[want] {
			t.Errorf("SubscribeAll did not receive %s", want)
		}
	}

	select {
	case <-allCh:
		t.Error("received unexpected fourth event")
	case <-time.After(10 * time.Millisecond):
	}
}
