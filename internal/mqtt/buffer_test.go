package mqtt

import (
	"testing"
)

func TestOfflineQueueEmptyDrain(t *testing.T) {
	q := newOfflineQueue(10)
	got, dropped := q.drain()
	if got != nil || dropped != 0 {
		t.Errorf("expected nothing from empty drain, got %d items, %d dropped", len(got), dropped)
	}
}

func TestOfflineQueuePushAndDrain(t *testing.T) {
	q := newOfflineQueue(10)
	for i := 0; i < 5; i++ {
		q.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}

	got, dropped := q.drain()
	if len(got) != 5 || dropped != 0 {
		t.Fatalf("expected 5 items and 0 dropped, got %d and %d", len(got), dropped)
	}
	for i := 0; i < 5; i++ {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}

	if again, _ := q.drain(); again != nil {
		t.Errorf("expected nil from second drain, got %d items", len(again))
	}
}

func TestOfflineQueueOverflowDropsOldest(t *testing.T) {
	capacity := 5
	q := newOfflineQueue(capacity)

	// Push 0..7; the queue keeps the most recent 5 (3..7).
	for i := 0; i < capacity+3; i++ {
		q.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}

	got, dropped := q.drain()
	if len(got) != capacity {
		t.Fatalf("expected %d items, got %d", capacity, len(got))
	}
	if dropped != 3 {
		t.Errorf("dropped: got %d, want 3", dropped)
	}
	for i := 0; i < capacity; i++ {
		want := byte(i + 3)
		if got[i].payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, got[i].payload[0])
		}
	}
}

func TestOfflineQueueMultipleCycles(t *testing.T) {
	q := newOfflineQueue(5)

	for i := 0; i < 3; i++ {
		q.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}
	if got, _ := q.drain(); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	for i := 10; i < 14; i++ {
		q.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}
	got, _ := q.drain()
	if len(got) != 4 {
		t.Fatalf("cycle 2: expected 4 items, got %d", len(got))
	}
	for i, msg := range got {
		if want := byte(10 + i); msg.payload[0] != want {
			t.Errorf("cycle 2 item %d: expected %d, got %d", i, want, msg.payload[0])
		}
	}
}

func TestOfflineQueueLen(t *testing.T) {
	q := newOfflineQueue(2)
	if q.len() != 0 {
		t.Errorf("expected len 0, got %d", q.len())
	}

	q.push(bufferedMsg{topic: "t"})
	q.push(bufferedMsg{topic: "t"})
	q.push(bufferedMsg{topic: "t"})
	if q.len() != 2 {
		t.Errorf("expected len 2 at capacity, got %d", q.len())
	}

	q.drain()
	if q.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", q.len())
	}
}

func TestOfflineQueuePreservesFields(t *testing.T) {
	q := newOfflineQueue(10)
	q.push(bufferedMsg{
		topic:    TopicSystem,
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	got, _ := q.drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].topic != TopicSystem {
		t.Errorf("topic: got %s, want %s", got[0].topic, TopicSystem)
	}
	if string(got[0].payload) != `{"test":true}` {
		t.Errorf("payload: got %s", got[0].payload)
	}
	if got[0].qos != 1 {
		t.Errorf("qos: got %d, want 1", got[0].qos)
	}
	if !got[0].retained {
		t.Error("retained: got false, want true")
	}
}
