package sse

import (
	"bytes"
	"testing"
)

func TestSubscribePublish(t *testing.T) {
	b := NewBroadcaster()

	ch1, cancel1 := b.Subscribe("scan_1")
	defer cancel1()
	ch2, cancel2 := b.Subscribe("scan_1")
	defer cancel2()
	other, cancelOther := b.Subscribe("scan_2")
	defer cancelOther()

	b.Publish("scan_1", Event{Type: EventProgress, Data: "p"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != EventProgress {
				t.Errorf("subscriber %d: type = %q", i, ev.Type)
			}
		default:
			t.Errorf("subscriber %d: no event delivered", i)
		}
	}

	select {
	case ev := <-other:
		t.Errorf("scan_2 subscriber received %v", ev)
	default:
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe("scan_1")
	defer cancel()

	// Overfill the subscriber buffer; the extra events must be dropped,
	// not block the publisher.
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish("scan_1", Event{Type: EventProgress, Data: i})
	}

	delivered := 0
	for {
		select {
		case <-ch:
			delivered++
			continue
		default:
		}
		break
	}
	if delivered != subscriberBuffer {
		t.Errorf("delivered %d events, want %d", delivered, subscriberBuffer)
	}
}

func TestCancel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe("scan_1")

	cancel()
	cancel() // idempotent

	if _, open := <-ch; open {
		t.Error("channel still open after cancel")
	}

	// Publishing to a scan with no subscribers is a no-op.
	b.Publish("scan_1", Event{Type: EventDone})
}

func TestPublishNoSubscribers(t *testing.T) {
	b := NewBroadcaster()
	b.Publish("scan_none", Event{Type: EventProgress, Data: 1})
}

func TestWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	err := WriteEvent(&buf, Event{Type: EventProgress, Data: map[string]int{"processed": 3}})
	if err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	want := "event: progress\ndata: {\"processed\":3}\n\n"
	if buf.String() != want {
		t.Errorf("frame = %q, want %q", buf.String(), want)
	}
}

func TestWriteEventNilData(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEvent(&buf, Event{Type: EventDone}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if buf.String() != "event: done\ndata: null\n\n" {
		t.Errorf("frame = %q", buf.String())
	}
}
