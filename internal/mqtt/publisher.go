package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

var errNotConnected = errors.New("mqtt client not connected")

// ProbeReading is the message a probe publishes.
type ProbeReading struct {
	PH  float64 `json:"ph"`
	NTU float64 `json:"ntu"`
	TDS float64 `json:"tds"`
}

type PublisherConfig struct {
	Broker   string
	Port     int
	ClientID string
}

type Publisher struct {
	client    paho.Client
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg PublisherConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{logger: logger, stopCh: make(chan struct{})}
	opts := newClientOptions(
		clientConfig{broker: cfg.Broker, port: cfg.Port, clientID: cfg.ClientID},
		logger,
		func() { p.setConnected(true) },
		func() { p.setConnected(false) },
	)
	p.client = paho.NewClient(opts)
	return p
}

func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return errStopped
	default:
	}
	if p.IsConnected() {
		return nil
	}
	return waitConnect(ctx, p.client, p.stopCh)
}

// PublishReading sends one reading on the probe's topic with QoS 1.
func (p *Publisher) PublishReading(probeID string, r ProbeReading) error {
	if !p.IsConnected() {
		return errNotConnected
	}

	topic := ReadingTopic(probeID)
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	token := p.client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		p.logger.Error("failed to publish reading", "topic", topic, "error", err)
		return fmt.Errorf("publish reading: %w", err)
	}

	p.logger.Debug("published reading", "topic", topic, "ph", r.PH, "ntu", r.NTU, "tds", r.TDS)
	return nil
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.client.Disconnect(250)
	p.setConnected(false)
	p.logger.Info("mqtt publisher disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
