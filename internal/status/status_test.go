package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sweeney/gpio-tach/internal/tach"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{WindowMs: 1000, Capacity: 256, DebounceMs: 10, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg, nil)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if diff := cmp.Diff(cfg, snap.Config); diff != "" {
		t.Errorf("Config mismatch (-want +got):\n%s", diff)
	}
	if snap.Reading != (tach.Reading{}) {
		t.Errorf("Reading: got %+v, want zero", snap.Reading)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestSnapshotSamplesReading(t *testing.T) {
	calls := 0
	tr := NewTracker(time.Now(), Config{}, func() tach.Reading {
		calls++
		return tach.Reading{Live: uint32(calls), Total: 10, Dropped: 1}
	})

	first := tr.Snapshot()
	second := tr.Snapshot()

	if first.Reading.Live != 1 || second.Reading.Live != 2 {
		t.Errorf("expected a fresh sample per snapshot, got %d then %d", first.Reading.Live, second.Reading.Live)
	}
	if second.Reading.Total != 10 || second.Reading.Dropped != 1 {
		t.Errorf("Reading: got %+v", second.Reading)
	}
}

func TestSetDebounced(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, nil)
	tr.SetDebounced(7)
	if got := tr.Snapshot().Debounced; got != 7 {
		t.Errorf("Debounced: got %d, want 7", got)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, nil)

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, nil)

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	info := &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"}
	tr.SetNetwork(info)

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", snap.Network.IP)
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{}, nil)

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		Reading:       tach.Reading{Live: 42, Total: 1234, Dropped: 3},
		Debounced:     5,
		StartTime:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:           time.Date(2026, 1, 1, 1, 0, 30, 0, time.UTC),
		MQTTConnected: true,
		Config: Config{
			Chip:       "gpiochip0",
			Line:       15,
			WindowMs:   1000,
			Capacity:   256,
			DebounceMs: 10,
			ReportMs:   1000,
			Broker:     "tcp://localhost:1883",
			HTTPAddr:   ":80",
		},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	want := StatusInner{
		Live:          42,
		Total:         1234,
		Dropped:       3,
		Debounced:     5,
		UptimeSeconds: 3630,
		StartTime:     "2026-01-01T00:00:00Z",
		Timestamp:     "2026-01-01T01:00:30Z",
		MQTT:          MQTTStatus{Connected: true, Broker: "tcp://localhost:1883"},
		Config: ConfigJSON{
			Chip:       "gpiochip0",
			Line:       15,
			WindowMs:   1000,
			Capacity:   256,
			DebounceMs: 10,
			ReportMs:   1000,
			Broker:     "tcp://localhost:1883",
			HTTPAddr:   ":80",
		},
	}
	if diff := cmp.Diff(want, parsed.Status); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		Reading:   tach.Reading{Live: 1},
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
	if parsed.Status.Live != 1 {
		t.Errorf("Live: got %d, want 1", parsed.Status.Live)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: time.Now(), Now: time.Now()}
	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["status"]["reason"]; ok {
		t.Error("expected reason to be omitted")
	}
	if _, ok := raw["status"]["network"]; ok {
		t.Error("expected network to be omitted")
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c, err := tach.New(16, time.Second)
	if err != nil {
		t.Fatalf("tach.New: %v", err)
	}
	tr := NewTracker(time.Now(), Config{}, func() tach.Reading { return c.Snapshot(0) })
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.RecordEvent(time.Duration(i))
			tr.SetDebounced(uint64(i))
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}
