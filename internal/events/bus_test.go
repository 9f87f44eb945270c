package events

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()

	bus.Publish(NewServerStartEvent(":7878"))

	select {
	case ev := <-ch:
		if ev.Type != EventServerStart {
			t.Errorf("expected %s, got %s", EventServerStart, ev.Type)
		}
		if ev.Data.Addr != ":7878" {
			t.Errorf("expected addr :7878, got %s", ev.Data.Addr)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := NewBus()
	first := bus.Subscribe()
	second := bus.Subscribe()

	if bus.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", bus.SubscriberCount())
	}

	bus.Publish(NewWorkerCrashEvent(3, "boom"))

	for _, ch := range []<-chan Event{first, second} {
		select {
		case ev := <-ch:
			if ev.Data.WorkerID != 3 {
				t.Errorf("expected worker id 3, got %d", ev.Data.WorkerID)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for fan-out event")
		}
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}

	// Channel must be closed after unsubscribe.
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBusWithBuffer(1)
	ch := bus.Subscribe()

	bus.Publish(NewServerStartEvent(":1"))
	// Buffer is full; this publish must not block.
	done := make(chan struct{})
	go func() {
		bus.Publish(NewServerStopEvent(":1"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	ev := <-ch
	if ev.Type != EventServerStart {
		t.Errorf("expected first event to survive, got %s", ev.Type)
	}
}

func TestBusClose(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after bus close")
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", bus.SubscriberCount())
	}
}
