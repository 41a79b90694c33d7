// Package status provides a thread-safe status tracker for the gpio-tach daemon.
// It is read by HTTP handlers and MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/gpio-tach/internal/tach"
)

// NetworkInfo contains network state as written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Chip       string
	Line       int
	WindowMs   int64
	Capacity   int // effective ring size
	DebounceMs int64
	ReportMs   int64
	Broker     string
	HTTPAddr   string
	Exclusive  bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Reading       tach.Reading
	Debounced     uint64 // edges rejected by the software debouncer
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
// The counter reading is sampled fresh on every Snapshot.
type Tracker struct {
	mu     sync.RWMutex
	snap   Snapshot
	sample func() tach.Reading
}

// NewTracker creates a Tracker with the given start time and config.
// sample is called on every Snapshot; nil leaves the reading at zero.
func NewTracker(startTime time.Time, cfg Config, sample func() tach.Reading) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		sample: sample,
	}
}

// SetDebounced sets the number of edges rejected by the debouncer.
func (t *Tracker) SetDebounced(n uint64) {
	t.mu.Lock()
	t.snap.Debounced = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if t.sample != nil {
		s.Reading = t.sample()
	}
	s.Now = time.Now()
	return s
}
