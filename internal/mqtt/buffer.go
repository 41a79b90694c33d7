package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// offlineQueue is a fixed-capacity FIFO that stores messages while
// disconnected. When full, the oldest message is overwritten.
// Not safe for concurrent use; the caller must synchronize.
type offlineQueue struct {
	buf     []bufferedMsg
	head    int // next write position
	count   int
	dropped int // overwritten since last drain
}

func newOfflineQueue(capacity int) *offlineQueue {
	return &offlineQueue{buf: make([]bufferedMsg, capacity)}
}

func (q *offlineQueue) push(msg bufferedMsg) {
	if q.count == len(q.buf) {
		if q.dropped == 0 {
			log.Printf("mqtt: offline queue full (%d messages), dropping oldest", len(q.buf))
		}
		q.dropped++
		q.count--
	}
	q.buf[q.head] = msg
	q.head = (q.head + 1) % len(q.buf)
	q.count++
}

// drain returns the queued messages oldest first and how many were
// overwritten while queued, then empties the queue.
func (q *offlineQueue) drain() ([]bufferedMsg, int) {
	if q.count == 0 {
		dropped := q.dropped
		q.dropped = 0
		return nil, dropped
	}

	out := make([]bufferedMsg, q.count)
	start := (q.head - q.count + len(q.buf)) % len(q.buf)
	for i := range out {
		out[i] = q.buf[(start+i)%len(q.buf)]
	}
	dropped := q.dropped

	q.head, q.count, q.dropped = 0, 0, 0
	for i := range q.buf {
		q.buf[i] = bufferedMsg{}
	}
	return out, dropped
}

func (q *offlineQueue) len() int {
	return q.count
}
