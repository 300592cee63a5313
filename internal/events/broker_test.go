package events

import (
	"sync"
	"testing"
)

func TestBroker_fanOut(t *testing.T) {
	b := NewBroker()
	a, unsubA := b.Subscribe()
	c, unsubC := b.Subscribe()
	defer unsubA()
	defer unsubC()

	b.Emit("file-changed", 1)
	for i, ch := range []<-chan Event{a, c} {
		ev := <-ch
		if ev.Name != "file-changed" || ev.Payload != 1 {
			t.Errorf("subscriber %d got %+v", i, ev)
		}
	}
}

func TestBroker_unsubscribe(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe()
	if b.Subscribers() != 1 {
		t.Fatalf("Subscribers = %d", b.Subscribers())
	}
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers = %d", b.Subscribers())
	}
	b.Emit("x", nil) // no subscribers, no panic
}

func TestBroker_slowSubscriberDrops(t *testing.T) {
	b := NewBroker(WithBuffer(2))
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < 5; i++ {
		b.Emit("tick", i)
	}
	if got := b.Dropped(); got != 3 {
		t.Errorf("Dropped = %d, want 3", got)
	}
	if ev := <-ch; ev.Payload != 0 {
		t.Errorf("first event = %+v", ev)
	}
	if ev := <-ch; ev.Payload != 1 {
		t.Errorf("second event = %+v", ev)
	}
}

func TestBroker_close(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe()
	b.Close()
	b.Close()
	if _, ok := <-ch; ok {
		t.Error("channel open after Close")
	}
	unsub()

	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscription after Close should be closed")
	}
}

func TestBroker_concurrentEmit(t *testing.T) {
	b := NewBroker(WithBuffer(1000))
	ch, unsub := b.Subscribe()
	defer unsub()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Emit("e", j)
			}
		}()
	}
	wg.Wait()
	if n := len(ch); n != 500 {
		t.Errorf("received %d events, want 500", n)
	}
}
