package telemetry

import "testing"

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	h := New(4)
	a := h.Subscribe()
	b := h.Subscribe()

	h.Publish(Message{Type: TypeLog, Line: "hello"})

	for _, sub := range []*Subscription{a, b} {
		select {
		case msg := <-sub.C():
			if msg.Line != "hello" {
				t.Fatalf("got %q", msg.Line)
			}
		default:
			t.Fatalf("expected message delivered")
		}
	}
}

func TestOverflowDropsOldestAndMarksLag(t *testing.T) {
	h := New(2)
	sub := h.Subscribe()

	h.Publish(Message{Line: "1"})
	h.Publish(Message{Line: "2"})
	h.Publish(Message{Line: "3"})

	first := <-sub.C()
	if first.Line != "2" {
		t.Fatalf("expected oldest message dropped, got %q", first.Line)
	}
	second := <-sub.C()
	if second.Line != "3" || !second.Lagged {
		t.Fatalf("expected lagged marker on message 3, got %+v", second)
	}
}

func TestCloseSendsFinalTickAndClosesChannel(t *testing.T) {
	h := New(4)
	sub := h.Subscribe()

	h.Close(Message{Status: "finished", Progress: 100})

	msg, ok := <-sub.C()
	if !ok {
		t.Fatalf("expected final message before channel close")
	}
	if msg.Status != "finished" || msg.Type != TypeTick {
		t.Fatalf("got %+v", msg)
	}

	if _, ok := <-sub.C(); ok {
		t.Fatalf("expected channel closed after final message")
	}
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	h := New(4)
	h.Close(Message{Status: "finished"})
	h.Publish(Message{Line: "late"})
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := New(4)
	sub := h.Subscribe()
	sub.Unsubscribe()

	h.Publish(Message{Line: "after unsubscribe"})

	select {
	case msg, ok := <-sub.C():
		if ok {
			t.Fatalf("expected no delivery after unsubscribe, got %+v", msg)
		}
	default:
	}
}
