package influxdb_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/nerrad567/peripheral-core/internal/infrastructure/config"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/influxdb"
)

func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "periphcore-dev-token",
		Org:           "periphcore",
		Bucket:        "peripherals",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

// connectOrSkip connects to a local InfluxDB when RUN_INTEGRATION is set.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		t.Skip("RUN_INTEGRATION not set")
	}
	c, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() {
		c.Close() //nolint:errcheck // Test cleanup
	})
	return c
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	c, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
	if c != nil {
		t.Error("Connect() returned a client when disabled")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1"

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClient_WriteAndHealth(t *testing.T) {
	c := connectOrSkip(t)

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	c.WritePeripheralEvent(influxdb.EventPoint{UniqueID: "TEST_UID", EventType: "connected", DeviceType: "mouse", PCTag: "PC-TEST"})
	c.WriteReconcileStats(influxdb.ReconcilePoint{PCTag: "PC-TEST", Live: 1})
	c.Flush()

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
}
