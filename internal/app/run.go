package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"waterwatch-server/internal/config"
	db "waterwatch-server/internal/db"
	httpapi "waterwatch-server/internal/httpapi"
	"waterwatch-server/internal/metrics"
	"waterwatch-server/internal/migrate"
	"waterwatch-server/internal/modules/readings"
	"waterwatch-server/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"dbQueryTimeout", cfg.QueryTimeout,
		"queryDefaultLimit", cfg.QueryDefaultLimit,
		"queryMaxLimit", cfg.QueryMaxLimit,
		"lenientParse", cfg.LenientParse,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)
	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(dbConn, cfg.Driver); err != nil {
		return err
	}
	slog.Info("database ready", "driver", cfg.Driver)

	m := metrics.NewManager()
	mux := httpapi.NewMux(dbConn, m)

	// The handler must be set before Connect: the broker may deliver queued
	// messages right after CONNACK.
	var subscriber *mqtt.Subscriber
	if cfg.MQTTEnabled {
		subscriber = mqtt.NewSubscriber(cfg, slog.Default())
		readings.RegisterFeature(mux, dbConn, cfg, m, subscriber)

		// Short initial timeout so a missing broker does not block startup.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	} else {
		readings.RegisterFeature(mux, dbConn, cfg, m, nil)
	}

	srv := httpapi.NewServer(cfg, mux, m)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		slog.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
