package config

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/games")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LeaseBackend != LeasePostgres || cfg.LeaseTTL != 2*time.Minute {
		t.Errorf("lease = %s %s", cfg.LeaseBackend, cfg.LeaseTTL)
	}
	if cfg.FeedTimeout != 15*time.Second || cfg.SettleWorkers != 4 {
		t.Errorf("feed timeout = %s workers = %d", cfg.FeedTimeout, cfg.SettleWorkers)
	}
	if cfg.KafkaEnabled {
		t.Error("kafka enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/games")
	t.Setenv("LEASE_BACKEND", "Redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LeaseBackend != LeaseRedis {
		t.Errorf("lease backend = %s", cfg.LeaseBackend)
	}
	if !slices.Equal(cfg.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("brokers = %v", cfg.KafkaBrokers)
	}
	if cfg.SettleInterval != 5*time.Minute {
		t.Errorf("settle interval = %s", cfg.SettleInterval)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database", map[string]string{"DATABASE_URL": ""}},
		{"unknown lease backend", map[string]string{"LEASE_BACKEND": "etcd"}},
		{"malformed integer", map[string]string{"SETTLE_INTERVAL_MINUTES": "not-a-number"}},
		{"malformed boolean", map[string]string{"KAFKA_ENABLED": "sure"}},
		{"no workers", map[string]string{"SETTLE_WORKERS": "0"}},
		{"lease shorter than feed timeout", map[string]string{"LEASE_TTL_SECONDS": "10", "FEED_TIMEOUT_SECONDS": "15"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/games")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadReportsEveryBadValue(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("API_PORT", "eighty")
	t.Setenv("DEBUG", "maybe")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"DATABASE_URL", "API_PORT", "DEBUG"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
