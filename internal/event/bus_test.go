package event

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var received Event
	var wg sync.WaitGroup
	wg.Add(1)

	unsub := bus.Subscribe(StreamDelta, func(e Event) {
		received = e
		wg.Done()
	})
	defer unsub()

	bus.Publish(Event{Type: StreamDelta, Data: "chunk"})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if received.Type != StreamDelta {
			t.Errorf("Expected StreamDelta, got %v", received.Type)
		}
		if received.Data != "chunk" {
			t.Errorf("Expected 'chunk', got %v", received.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	var wg sync.WaitGroup
	wg.Add(3)

	unsub := bus.SubscribeAll(func(e Event) {
		atomic.AddInt32(&count, 1)
		wg.Done()
	})
	defer unsub()

	bus.Publish(Event{Type: StreamDelta, Data: nil})
	bus.Publish(Event{Type: MessageCreated, Data: nil})
	bus.Publish(Event{Type: SessionIdle, Data: nil})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if atomic.LoadInt32(&count) != 3 {
			t.Errorf("Expected 3 events, got %d", count)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for events")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	unsub := bus.Subscribe(SessionUpdated, func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.PublishSync(Event{Type: SessionUpdated})
	unsub()
	bus.PublishSync(Event{Type: SessionUpdated})

	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("Expected 1 event after unsubscribe, got %d", got)
	}
}

func TestBus_PublishSync_Ordering(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var order []string
	bus.Subscribe(StreamDelta, func(e Event) {
		order = append(order, e.Data.(string))
	})

	bus.PublishSync(Event{Type: StreamDelta, Data: "a"})
	bus.PublishSync(Event{Type: StreamDelta, Data: "b"})
	bus.PublishSync(Event{Type: StreamDelta, Data: "c"})

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("Expected [a b c], got %v", order)
	}
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := NewBus()

	var count int32
	bus.Subscribe(SessionIdle, func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	if err := bus.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	bus.PublishSync(Event{Type: SessionIdle})
	if atomic.LoadInt32(&count) != 0 {
		t.Error("Subscriber called after Close")
	}
}
