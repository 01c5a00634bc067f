package motion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("motion: not connected to broker")

// MQTTConfig configures the MQTT bus.
type MQTTConfig struct {
	Broker   string // host:port or a full tcp:// / ssl:// URL
	ClientID string
	Username string
	Password string
	QoS      byte
}

// MQTTBus is a Bus backed by an MQTT broker. Connection happens in the
// background with automatic reconnects; publishing while disconnected
// fails fast with ErrNotConnected.
type MQTTBus struct {
	client paho.Client
	qos    byte
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]func([]byte)
}

// DialMQTT starts connecting to the broker and returns immediately.
func DialMQTT(cfg MQTTConfig, logger *slog.Logger) *MQTTBus {
	if logger == nil {
		logger = slog.Default()
	}
	b := &MQTTBus{
		qos:    cfg.QoS,
		logger: logger.With("component", "motion.mqtt"),
		subs:   make(map[string]func([]byte)),
	}

	opts := paho.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(true).
		SetMaxReconnectInterval(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		b.logger.Warn("connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c paho.Client) {
		b.logger.Info("connected", "broker", cfg.Broker)
		b.resubscribe(c)
	})

	b.client = paho.NewClient(opts)
	b.client.Connect()
	return b
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Connected reports whether the broker connection is open.
func (b *MQTTBus) Connected() bool {
	return b.client.IsConnectionOpen()
}

// Publish sends payload to topic and waits for the token or ctx.
func (b *MQTTBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if !b.Connected() {
		return ErrNotConnected
	}
	tok := b.client.Publish(topic, b.qos, false, payload)
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("motion: publish %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn for topic. Subscriptions are restored after
// every reconnect.
func (b *MQTTBus) Subscribe(topic string, fn func([]byte)) error {
	b.mu.Lock()
	b.subs[topic] = fn
	b.mu.Unlock()

	if !b.Connected() {
		return nil
	}
	tok := b.client.Subscribe(topic, b.qos, func(_ paho.Client, m paho.Message) {
		fn(m.Payload())
	})
	if tok.WaitTimeout(5*time.Second) && tok.Error() != nil {
		return fmt.Errorf("motion: subscribe %s: %w", topic, tok.Error())
	}
	return nil
}

func (b *MQTTBus) resubscribe(c paho.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, fn := range b.subs {
		c.Subscribe(topic, b.qos, func(_ paho.Client, m paho.Message) {
			fn(m.Payload())
		})
	}
}

// Close disconnects from the broker.
func (b *MQTTBus) Close() error {
	b.client.Disconnect(250)
	return nil
}

var _ Bus = (*MQTTBus)(nil)
