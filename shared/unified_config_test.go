package shared

import (
	"testing"
	"time"
)

func TestValidateAndApplyDefaultsFillsInvalidValues(t *testing.T) {
	cfg := &UnifiedConfiguration{}
	cfg.Fetch.HTTPRequestTimeout = -1 * time.Second

	cfg.ValidateAndApplyDefaults()

	if cfg.Fetch.HTTPRequestTimeout != 30*time.Second {
		t.Errorf("expected default fetch timeout 30s, got %v", cfg.Fetch.HTTPRequestTimeout)
	}
	if cfg.Fetch.RequestRateLimit != 1*time.Second {
		t.Errorf("expected default rate limit 1s, got %v", cfg.Fetch.RequestRateLimit)
	}
	if cfg.Fetch.ProxyEndpoint == "" {
		t.Error("expected a default proxy endpoint")
	}
	if cfg.Database.MaxOpenConns != 25 || cfg.Database.MaxIdleConns != 5 {
		t.Errorf("expected default pool sizing, got %+v", cfg.Database)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.ServiceName == "" {
		t.Error("expected a default service name")
	}
}

func TestValidateAndApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := NewDefaultUnifiedConfiguration()
	cfg.Fetch.HTTPRequestTimeout = 10 * time.Second
	cfg.Logging.Level = "debug"

	cfg.ValidateAndApplyDefaults()

	if cfg.Fetch.HTTPRequestTimeout != 10*time.Second {
		t.Errorf("explicit fetch timeout must survive validation, got %v", cfg.Fetch.HTTPRequestTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("explicit log level must survive validation, got %q", cfg.Logging.Level)
	}
}
