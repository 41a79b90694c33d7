package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout   = 10 * time.Second
	publishTimeout   = 5 * time.Second
	offlineQueueSize = 100
)

// RealPublisher publishes to an actual MQTT broker.
// Messages published while the connection is down are queued and replayed,
// oldest first, once it comes back.
type RealPublisher struct {
	client paho.Client

	mu      sync.Mutex
	queue   *offlineQueue
	onReset func(payload []byte)
}

// NewRealPublisher creates a publisher for the given broker.
// If the broker cannot be reached within the connect timeout, the client keeps
// retrying in the background and messages are queued meanwhile.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{queue: newOfflineQueue(offlineQueueSize)}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// newPublisher wraps an existing client. Used by tests.
func newPublisher(client paho.Client) *RealPublisher {
	return &RealPublisher{
		client: client,
		queue:  newOfflineQueue(offlineQueueSize),
	}
}

// PublishReading sends a reading to the broker.
func (p *RealPublisher) PublishReading(r Reading) error {
	payload, err := FormatReadingPayload(r)
	if err != nil {
		return fmt.Errorf("format reading payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(TopicReadings, 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.queue.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// OnReset subscribes to TopicReset. The subscription is renewed on every
// reconnect.
func (p *RealPublisher) OnReset(fn func(payload []byte)) error {
	p.mu.Lock()
	p.onReset = fn
	p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		return nil
	}
	return p.subscribeReset(fn)
}

func (p *RealPublisher) subscribeReset(fn func(payload []byte)) error {
	token := p.client.Subscribe(TopicReset, 1, func(_ paho.Client, m paho.Message) {
		fn(m.Payload())
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s timeout", TopicReset)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicReset, err)
	}
	return nil
}

// onConnect renews the reset subscription and replays queued messages.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	fn := p.onReset
	msgs, dropped := p.queue.drain()
	p.mu.Unlock()

	log.Printf("mqtt: connected")
	if fn != nil {
		if err := p.subscribeReset(fn); err != nil {
			log.Printf("mqtt: %v", err)
		}
	}

	if len(msgs) > 0 {
		log.Printf("mqtt: replaying %d queued messages (%d dropped while offline)", len(msgs), dropped)
	}
	for _, m := range msgs {
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(publishTimeout) {
			log.Printf("mqtt: replay %s timeout", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay %s: %v", m.topic, err)
		}
	}
}

// Queued returns the number of messages waiting for a connection.
func (p *RealPublisher) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.len()
}

// IsConnected reports whether the client is connected to the broker.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
