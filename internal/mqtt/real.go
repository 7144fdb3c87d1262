package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/press-sensor/internal/logic"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string
	Topic       string
	SystemTopic string
	// Buffer is the number of messages kept while disconnected.
	Buffer int
	Logger *slog.Logger
	// OnConnectionChange, if set, is called on connect and connection loss.
	OnConnectionChange func(connected bool)
}

func (o Options) withDefaults() Options {
	if o.ClientID == "" {
		o.ClientID = "press-sensor"
	}
	if o.Topic == "" {
		o.Topic = DefaultTopic
	}
	if o.SystemTopic == "" {
		o.SystemTopic = DefaultTopicSystem
	}
	if o.Buffer <= 0 {
		o.Buffer = 100
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed in order on reconnect.
type RealPublisher struct {
	client paho.Client
	opts   Options
	logger *slog.Logger

	mu            sync.Mutex
	buffer        *ringBuffer
	everConnected bool

	connected atomic.Bool
}

// NewRealPublisher creates a publisher connected to the given broker. A
// broker that is not reachable within the connect timeout is not fatal; the
// client keeps retrying and messages are buffered meanwhile.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	o = o.withDefaults()
	if o.Broker == "" {
		return nil, errors.New("mqtt: broker is empty")
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	p := &RealPublisher{opts: o, logger: o.Logger, buffer: newRingBuffer(o.Buffer)}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(o.SystemTopic, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		p.logger.Warn("mqtt broker not reachable yet, buffering", "broker", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// newPublisher wraps an existing client without connecting.
func newPublisher(client paho.Client, o Options) *RealPublisher {
	o = o.withDefaults()
	return &RealPublisher{client: client, opts: o, logger: o.Logger, buffer: newRingBuffer(o.Buffer)}
}

// Publish sends a press event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.PressEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: presses are rare and each one matters.
	return p.publish(bufferedMsg{topic: p.opts.Topic, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: p.opts.SystemTopic, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.enqueue(msg)
		return nil
	}
	if err := p.send(msg); err != nil {
		p.enqueue(msg)
		return err
	}
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

func (p *RealPublisher) enqueue(msg bufferedMsg) {
	p.mu.Lock()
	first := p.buffer.push(msg)
	n := p.buffer.len()
	p.mu.Unlock()

	if first {
		p.logger.Warn("mqtt buffer full, dropping oldest", "capacity", p.opts.Buffer)
	}
	p.logger.Debug("mqtt message buffered", "topic", msg.topic, "buffered", n)
}

func (p *RealPublisher) onConnect(paho.Client) {
	p.connected.Store(true)
	if p.opts.OnConnectionChange != nil {
		p.opts.OnConnectionChange(true)
	}

	p.mu.Lock()
	pending := p.buffer.drainAll()
	reconnect := p.everConnected
	p.everConnected = true
	p.mu.Unlock()

	p.logger.Info("mqtt connected", "broker", p.opts.Broker, "replaying", len(pending))
	for i, msg := range pending {
		if err := p.send(msg); err != nil {
			p.logger.Error("mqtt replay failed", "error", err)
			// Keep the rest for the next connect.
			p.mu.Lock()
			for _, m := range pending[i:] {
				p.buffer.push(m)
			}
			p.mu.Unlock()
			return
		}
	}

	if reconnect {
		if err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err != nil {
			p.logger.Error("mqtt publish reconnected failed", "error", err)
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.connected.Store(false)
	if p.opts.OnConnectionChange != nil {
		p.opts.OnConnectionChange(false)
	}
	p.logger.Warn("mqtt connection lost", "error", err)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.connected.Load()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
