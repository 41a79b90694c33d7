package mqtt

// FakePublisher records published readings and events for test assertions.
type FakePublisher struct {
	// Readings contains all readings that were published.
	Readings []Reading

	// Payloads contains the JSON payloads of the readings.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishReading.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// OnResetError, if set, will be returned by OnReset.
	OnResetError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	// OnPublishReading, if set, is called after every PublishReading with
	// its result. Lets a test wait for a publish made on another goroutine.
	OnPublishReading func(r Reading, err error)

	onReset func(payload []byte)
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishReading records the reading.
func (f *FakePublisher) PublishReading(r Reading) (err error) {
	if f.OnPublishReading != nil {
		defer func() { f.OnPublishReading(r, err) }()
	}
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatReadingPayload(r)
	if err != nil {
		return err
	}
	f.Readings = append(f.Readings, r)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// OnReset stores fn for DeliverReset.
func (f *FakePublisher) OnReset(fn func(payload []byte)) error {
	if f.OnResetError != nil {
		return f.OnResetError
	}
	f.onReset = fn
	return nil
}

// DeliverReset simulates a message on TopicReset. It reports whether a
// handler was registered.
func (f *FakePublisher) DeliverReset(payload []byte) bool {
	if f.onReset == nil {
		return false
	}
	f.onReset(payload)
	return true
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded readings and events.
func (f *FakePublisher) Reset() {
	f.Readings = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
