package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"waterwatch-server/internal/config"
)

// MessageHandler processes one message payload. A returned error is logged
// and the message is dropped.
type MessageHandler func(topic string, payload []byte) error

type Subscriber struct {
	client    paho.Client
	topic     string
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	handler   MessageHandler

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Subscriber{
		topic:  cfg.MQTTTopic,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := newClientOptions(
		clientConfig{broker: cfg.MQTTBroker, port: cfg.MQTTPort, clientID: cfg.MQTTClientID},
		logger,
		func() {
			s.setConnected(true)
			// resubscribe after every (re)connect; clean sessions drop subscriptions
			if err := s.subscribe(); err != nil {
				logger.Error("mqtt subscribe failed", "topic", s.topic, "error", err)
			}
		},
		func() { s.setConnected(false) },
	)
	s.client = paho.NewClient(opts)
	return s
}

// SetMessageHandler must be called before Connect.
func (s *Subscriber) SetMessageHandler(handler MessageHandler) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

// Connect blocks until the broker accepts the connection, ctx is done or
// the subscriber is stopped. Subscription happens in the connect callback.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return errStopped
	default:
	}
	if s.IsConnected() {
		return nil
	}
	return waitConnect(ctx, s.client, s.stopCh)
}

func (s *Subscriber) subscribe() error {
	const qos = byte(1)
	token := s.client.Subscribe(s.topic, qos, func(_ paho.Client, msg paho.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}
	s.logger.Info("subscribed to mqtt topic", "topic", s.topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()
	if handler == nil {
		s.logger.Warn("no mqtt handler registered, dropping message", "topic", topic)
		return
	}

	if err := handler(topic, payload); err != nil {
		s.logger.Warn("mqtt message rejected",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
	}
}

func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect stops the subscriber. Safe to call more than once.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.IsConnected() {
		s.client.Unsubscribe(s.topic).WaitTimeout(2 * time.Second)
	}
	s.client.Disconnect(250)

	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
