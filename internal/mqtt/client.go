// Package mqtt connects to the broker: Subscriber feeds device messages into
// the server, Publisher is used by the probe simulator.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

var errStopped = errors.New("mqtt client stopped")

// ReadingTopic is the topic a probe publishes its readings on. The server
// subscribes to water/+/readings by default.
func ReadingTopic(probeID string) string {
	return fmt.Sprintf("water/%s/readings", probeID)
}

type clientConfig struct {
	broker   string
	port     int
	clientID string
}

func (c clientConfig) url() string {
	return fmt.Sprintf("tcp://%s:%d", c.broker, c.port)
}

func newClientOptions(cfg clientConfig, logger *slog.Logger, onConnect func(), onLost func()) *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.url())
	opts.SetClientID(cfg.clientID)

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ paho.Client) {
		onConnect()
		logger.Info("mqtt connected", "broker", cfg.broker, "port", cfg.port, "client_id", cfg.clientID)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		onLost()
		logger.Warn("mqtt connection lost", "error", err)
	})
	return opts
}

// waitConnect starts a connect attempt and waits for it, giving up when ctx
// is done or stopCh is closed. With ConnectRetry the token only completes
// once a connection succeeds.
func waitConnect(ctx context.Context, client paho.Client, stopCh <-chan struct{}) error {
	token := client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			client.Disconnect(0)
			return ctx.Err()
		case <-stopCh:
			client.Disconnect(0)
			return errStopped
		default:
		}
	}
}
