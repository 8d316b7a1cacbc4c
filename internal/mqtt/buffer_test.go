package mqtt

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func pushN(rb *ringBuffer, from, to int) {
	for i := from; i < to; i++ {
		rb.push(bufferedMsg{topic: Topic, payload: []byte{byte(i)}})
	}
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(10, nil)
	if got := rb.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestRingBufferPushAndDrain(t *testing.T) {
	rb := newRingBuffer(10, nil)
	pushN(rb, 0, 5)

	got := rb.drainAll()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := range got {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}
	if again := rb.drainAll(); again != nil {
		t.Errorf("expected nil from second drain, got %d items", len(again))
	}
}

func TestRingBufferOverflowKeepsNewest(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rb := newRingBuffer(5, zap.New(core))

	// 0..7 into a buffer of 5 keeps 3..7
	pushN(rb, 0, 8)

	got := rb.drainAll()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := range got {
		if want := byte(i + 3); got[i].payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, got[i].payload[0])
		}
	}
	if rb.dropped != 3 {
		t.Errorf("dropped: got %d, want 3", rb.dropped)
	}
	if n := logs.FilterMessage("mqtt buffer full, dropping oldest").Len(); n != 1 {
		t.Errorf("expected one overflow warning, got %d", n)
	}
}

func TestRingBufferWarnsAgainAfterDrain(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rb := newRingBuffer(2, zap.New(core))

	pushN(rb, 0, 3)
	rb.drainAll()
	pushN(rb, 0, 3)

	if n := logs.Len(); n != 2 {
		t.Errorf("expected a warning per overflow episode, got %d", n)
	}
}

func TestRingBufferMultipleCycles(t *testing.T) {
	rb := newRingBuffer(5, nil)

	pushN(rb, 0, 3)
	if got := rb.drainAll(); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	pushN(rb, 10, 14)
	got := rb.drainAll()
	if len(got) != 4 {
		t.Fatalf("cycle 2: expected 4 items, got %d", len(got))
	}
	for i, msg := range got {
		if want := byte(10 + i); msg.payload[0] != want {
			t.Errorf("cycle 2 item %d: expected %d, got %d", i, want, msg.payload[0])
		}
	}
}

func TestRingBufferZeroCapacity(t *testing.T) {
	rb := newRingBuffer(0, nil)
	pushN(rb, 0, 4)
	if rb.len() != 0 {
		t.Errorf("expected len 0, got %d", rb.len())
	}
	if rb.dropped != 4 {
		t.Errorf("dropped: got %d, want 4", rb.dropped)
	}
	if got := rb.drainAll(); got != nil {
		t.Errorf("expected nil drain, got %d", len(got))
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(10, nil)
	rb.push(bufferedMsg{
		topic:    TopicState,
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})
	if rb.len() != 1 {
		t.Fatalf("expected len 1, got %d", rb.len())
	}

	got := rb.drainAll()
	if got[0].topic != TopicState || string(got[0].payload) != `{"test":true}` {
		t.Errorf("message changed: %+v", got[0])
	}
	if got[0].qos != 1 || !got[0].retained {
		t.Errorf("qos/retained lost: %+v", got[0])
	}
}
