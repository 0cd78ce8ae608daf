package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"waterwatch-server/internal/config"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().String()
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	addr := freeAddr(t)
	cfg := config.Config{
		AppEnv:            "dev",
		HTTPAddr:          addr,
		Driver:            "sqlite3",
		Path:              filepath.Join(t.TempDir(), "water.db"),
		MaxOpenConns:      1,
		MaxIdleConns:      1,
		QueryTimeout:      2 * time.Second,
		QueryDefaultLimit: 50,
		QueryMaxLimit:     1000,
		MQTTEnabled:       false,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(5 * time.Second)
	healthy := false
	for time.Now().Before(deadline) {
		resp, err := client.Get("http://" + addr + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				healthy = true
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !healthy {
		cancel()
		t.Fatal("server never became healthy")
	}

	resp, err := client.Get("http://" + addr + "/api/v1/readings")
	if err != nil {
		t.Fatalf("GET readings: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET readings status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v; want context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_BadDriver(t *testing.T) {
	cfg := config.Config{Driver: "postgres", QueryTimeout: time.Second}
	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("Run with postgres and no DSN = nil; want error")
	}
}
