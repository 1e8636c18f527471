package bus

import (
	"testing"
)

func TestSubscribePublishDeliversInOrder(t *testing.T) {
	b := New()
	_, ch := b.Subscribe()

	b.Publish(Message{Kind: KindConfluenceUpdate, Payload: &ConfluenceUpdate{Symbol: "EURUSD"}})
	b.Publish(Message{Kind: KindConfluenceUpdate, Payload: &ConfluenceUpdate{Symbol: "GBPUSD"}})

	first := <-ch
	second := <-ch
	if first.Payload.(*ConfluenceUpdate).Symbol != "EURUSD" {
		t.Fatal("expected first message to be EURUSD")
	}
	if second.Payload.(*ConfluenceUpdate).Symbol != "GBPUSD" {
		t.Fatal("expected second message to be GBPUSD")
	}
}

func TestPublishNeverBlocksOnFullQueue(t *testing.T) {
	b := New()
	_, ch := b.Subscribe()
	_ = ch // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < DefaultQueueSize*3; i++ {
			b.Publish(Message{Kind: KindConfluenceUpdate, Payload: &ConfluenceUpdate{Symbol: "X"}})
		}
		close(done)
	}()

	select {
	case <-done:
	default:
	}
	<-done // Publish must return promptly even though nobody drains ch.
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	id, ch := b.Subscribe()
	b.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
	if b.SubscriberCount() != 0 {
		t.Fatal("expected zero subscribers after unsubscribe")
	}
}
