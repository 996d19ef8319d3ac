package events

import (
	"testing"
	"time"
)

func TestBus_FansOutToAllSubscribers(t *testing.T) {
	b := NewBus()
	defer b.Close()
	a := b.Subscribe(4)
	c := b.Subscribe(4)

	b.Publish(Event{Type: TypeIndexProgress, Current: 1, Total: 3})

	for _, ch := range []<-chan Event{a, c} {
		select {
		case e := <-ch:
			if e.Type != TypeIndexProgress || e.Current != 1 {
				t.Fatalf("unexpected event: %+v", e)
			}
			if e.Time.IsZero() {
				t.Fatal("event must be timestamped")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the event")
		}
	}
}

func TestBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBus()
	defer b.Close()
	slow := b.Subscribe(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: TypeIndexProgress, Current: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}
	// exactly the buffered event survives
	if e := <-slow; e.Current != 0 {
		t.Fatalf("unexpected surviving event: %+v", e)
	}
}

func TestBus_CloseEndsSubscriptions(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe(1)
	b.Close()
	if _, ok := <-ch; ok {
		t.Fatal("subscription must be closed")
	}
	b.Publish(Event{Type: TypeError}) // must not panic after close
	b.Close()                         // idempotent
}
