// Command probe simulates a water-quality probe. It publishes synthetic
// readings over MQTT or posts them to the server's legacy /insert endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"waterwatch-server/internal/config"
	"waterwatch-server/internal/logging"
	"waterwatch-server/internal/mqtt"
)

var version = "dev"

const appName = "probe"

func main() {
	var opts options
	flag.StringVar(&opts.mode, "mode", "mqtt", "transport: mqtt or http")
	flag.StringVar(&opts.url, "url", "http://localhost:8080", "server base URL (http mode)")
	flag.StringVar(&opts.broker, "broker", "localhost", "MQTT broker host (mqtt mode)")
	flag.IntVar(&opts.port, "port", 1883, "MQTT broker port (mqtt mode)")
	flag.StringVar(&opts.probeID, "id", "", "probe id (default: random uuid)")
	flag.DurationVar(&opts.interval, "interval", 5*time.Second, "time between readings")
	flag.IntVar(&opts.count, "count", 0, "number of readings to send (0 = until interrupted)")
	flag.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "random seed for synthetic readings")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if opts.probeID == "" {
		opts.probeID = uuid.NewString()
	}

	cfg := config.Config{AppEnv: "dev", LogLevel: slog.LevelInfo}
	if *debug {
		cfg.LogLevel = slog.LevelDebug
	}
	slog.SetDefault(logging.New(cfg, version, appName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

type options struct {
	mode     string
	url      string
	broker   string
	port     int
	probeID  string
	interval time.Duration
	count    int
	seed     int64
}

func run(ctx context.Context, opts options) error {
	send, closeFn, err := newSender(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	gen := newGenerator(opts.seed)
	slog.Info("probe started", "mode", opts.mode, "probe_id", opts.probeID, "interval", opts.interval)

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for sent := 0; opts.count == 0 || sent < opts.count; {
		r := gen.next()
		if err := send(ctx, r); err != nil {
			slog.Warn("send reading failed", "error", err)
		} else {
			sent++
			slog.Info("reading sent", "ph", r.PH, "ntu", r.NTU, "tds", r.TDS)
		}
		if opts.count != 0 && sent >= opts.count {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

type sendFunc func(ctx context.Context, r mqtt.ProbeReading) error

func newSender(ctx context.Context, opts options) (sendFunc, func(), error) {
	switch opts.mode {
	case "http":
		c := newHTTPSender(opts.url)
		return c.send, func() {}, nil
	case "mqtt":
		pub := mqtt.NewPublisher(mqtt.PublisherConfig{
			Broker:   opts.broker,
			Port:     opts.port,
			ClientID: "probe-" + opts.probeID,
		}, slog.Default())

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := pub.Connect(connectCtx); err != nil {
			pub.Disconnect()
			return nil, nil, fmt.Errorf("mqtt connect: %w", err)
		}
		send := func(_ context.Context, r mqtt.ProbeReading) error {
			return pub.PublishReading(opts.probeID, r)
		}
		return send, pub.Disconnect, nil
	default:
		return nil, nil, fmt.Errorf("invalid mode %q (allowed: mqtt, http)", opts.mode)
	}
}
