// Command gpio-tach counts rising edges on a GPIO line inside a trailing
// window and serves the count over HTTP and MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/gpio-tach/internal/device"
	"github.com/sweeney/gpio-tach/internal/gpio"
	"github.com/sweeney/gpio-tach/internal/logic"
	"github.com/sweeney/gpio-tach/internal/mqtt"
	"github.com/sweeney/gpio-tach/internal/status"
	"github.com/sweeney/gpio-tach/internal/tach"
	"github.com/sweeney/gpio-tach/internal/web"
)

const clientID = "gpio-tach"

// openTimeout bounds the wait for an exclusive face in the one-shot modes.
const openTimeout = 5 * time.Second

type options struct {
	chip       string
	line       int
	window     time.Duration
	capacity   int
	debounce   time.Duration
	report     time.Duration
	broker     string
	httpAddr   string
	exclusive  bool
	printCount bool
	pulseLine  int
	pulseHz    int
	pulseFor   time.Duration
}

func main() {
	var o options
	flag.StringVar(&o.chip, "chip", gpio.DefaultChip, "GPIO chip name")
	flag.IntVar(&o.line, "line", gpio.DefaultLine, "GPIO line offset of the tach input")
	flag.DurationVar(&o.window, "window", tach.DefaultWindow, "Trailing window an edge counts for")
	flag.IntVar(&o.capacity, "capacity", tach.DefaultCapacity, "Edges held in the window (rounded up to a power of two)")
	flag.DurationVar(&o.debounce, "debounce", gpio.DefaultDebounce, "Debounce duration (0 to disable)")
	flag.DurationVar(&o.report, "report", time.Second, "Reading publish interval (0 to disable)")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP address (empty to disable)")
	flag.BoolVar(&o.exclusive, "exclusive", false, "Allow one open handle on the counter at a time")
	flag.BoolVar(&o.printCount, "print-count", false, "Count for one window, print the count and exit")
	flag.IntVar(&o.pulseLine, "pulse-line", -1, "Drive a test square wave on this line, print the count and exit (-1 to disable)")
	flag.IntVar(&o.pulseHz, "pulse-hz", 50, "Test square wave rate in Hz")
	flag.DurationVar(&o.pulseFor, "pulse-for", 2*time.Second, "Test square wave duration")

	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	counter, err := tach.New(o.capacity, o.window)
	if err != nil {
		return fmt.Errorf("init counter: %w", err)
	}
	defer counter.Close()
	if counter.Capacity() != o.capacity {
		log.Printf("tach: capacity %d rounded to %d", o.capacity, counter.Capacity())
	}

	// The kernel debounces on the line; the software filter also covers
	// kernels without debounce support.
	debouncer := logic.NewDebouncer(o.debounce)
	source, err := gpio.OpenRealSource(o.chip, o.line, o.debounce, debouncer.Filter(counter.RecordEvent))
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer source.Close()

	face := device.New(counter, gpio.Monotonic, o.exclusive)

	if o.pulseLine >= 0 {
		out, err := gpio.OpenRealOutput(o.chip, o.pulseLine)
		if err != nil {
			return fmt.Errorf("init pulse output: %w", err)
		}
		defer out.Close()
		return selfTest(context.Background(), &gpio.Pulser{Out: out}, face, o.pulseHz, o.pulseFor, os.Stdout)
	}

	if o.printCount {
		time.Sleep(o.window)
		ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
		defer cancel()
		return readOnce(ctx, face, os.Stdout)
	}

	publisher, err := mqtt.NewRealPublisher(o.broker, clientID)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:       o.chip,
		Line:       o.line,
		WindowMs:   o.window.Milliseconds(),
		Capacity:   counter.Capacity(),
		DebounceMs: o.debounce.Milliseconds(),
		ReportMs:   o.report.Milliseconds(),
		Broker:     o.broker,
		HTTPAddr:   o.httpAddr,
		Exclusive:  o.exclusive,
	}, func() tach.Reading {
		return counter.Snapshot(gpio.Monotonic())
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	if err := wireReset(publisher, face); err != nil {
		log.Printf("mqtt: reset subscription failed: %v", err)
	}

	// Publish startup event with full status snapshot
	tracker.SetMQTTConnected(publisher.IsConnected())
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, face)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http server listening on %s", o.httpAddr)
	}

	log.Printf("started: chip=%s line=%d window=%v capacity=%d debounce=%v report=%v broker=%s",
		o.chip, o.line, o.window, counter.Capacity(), o.debounce, o.report, o.broker)

	var tick <-chan time.Time
	if o.report > 0 {
		ticker := time.NewTicker(o.report)
		defer ticker.Stop()
		tick = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(counter, publisher, publisher, tracker, debouncer, o.window, time.Now, gpio.Monotonic, tick, sigCh)
}

// sampler is the read side of the counter used by the loop.
type sampler interface {
	Snapshot(now time.Duration) tach.Reading
}

// runLoop publishes a reading on every tick until a signal arrives, then
// publishes SHUTDOWN.
func runLoop(counter sampler, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, debouncer *logic.Debouncer, window time.Duration, now func() time.Time, mono func() time.Duration, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refresh(tracker, mqttStatus, debouncer)
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			r := mqtt.Reading{
				Timestamp: now(),
				Window:    window,
				Reading:   counter.Snapshot(mono()),
			}
			if err := publisher.PublishReading(r); err != nil {
				log.Printf("publish error: %v", err)
			}
			if tracker != nil {
				refresh(tracker, mqttStatus, debouncer)
			}
		}
	}
}

func refresh(tracker *status.Tracker, mqttStatus mqtt.ConnectionStatus, debouncer *logic.Debouncer) {
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
	if debouncer != nil {
		tracker.SetDebounced(debouncer.Rejected())
	}
}

// wireReset resets the total for every non-empty message on the reset topic.
func wireReset(src mqtt.ResetSource, w io.Writer) error {
	return src.OnReset(func(payload []byte) {
		n, err := w.Write(payload)
		if err != nil {
			log.Printf("mqtt: reset failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("mqtt: total reset")
		}
	})
}

// printCount reads the counter once and prints the live count.
func printCount(r io.Reader, out io.Writer) error {
	buf := make([]byte, device.Width)
	n, err := r.Read(buf)
	if err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	count, err := device.Decode(buf[:n])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Value read from the device was %d\n", count)
	return nil
}

// readOnce opens a handle on face, waiting while an exclusive face is held,
// and prints the live count through it.
func readOnce(ctx context.Context, face *device.Face, out io.Writer) error {
	h, err := face.OpenWait(ctx)
	if err != nil {
		return err
	}
	defer h.Close()
	return printCount(h, out)
}

// selfTest drives a square wave into the input and prints what was counted.
func selfTest(ctx context.Context, p *gpio.Pulser, face *device.Face, hz int, d time.Duration, out io.Writer) error {
	pulses, err := p.Run(ctx, hz, d)
	if err != nil {
		return fmt.Errorf("pulse: %w", err)
	}
	log.Printf("pulse: drove %d pulses at %d Hz", pulses, hz)

	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	return readOnce(ctx, face, out)
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
