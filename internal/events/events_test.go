package events

import (
	"sync"
	"testing"
	"time"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := NewBus()
	done := make(chan Event, 1)
	b.Subscribe(MediaAdded, func(e Event) { done <- e })

	b.Publish(MediaAdded, map[string]string{"assetId": "abc"})

	select {
	case e := <-done:
		if e.Name != MediaAdded || e.Fields["assetId"] != "abc" {
			t.Fatalf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscriber delivery")
	}
}

func TestPublishWithNoSubscribersDoesNotBlock(t *testing.T) {
	b := NewBus()
	b.Publish(IngestionStarted, map[string]string{"path": "/x"})
}

func TestSubscriberPanicDoesNotCrashOtherSubscribers(t *testing.T) {
	b := NewBus()
	var wg sync.WaitGroup
	wg.Add(1)

	b.Subscribe(IngestionFailed, func(Event) { panic("boom") })
	b.Subscribe(IngestionFailed, func(Event) { wg.Done() })

	b.Publish(IngestionFailed, nil)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("panicking subscriber blocked delivery to the other subscriber")
	}
}
