package config

import (
	"testing"
	"time"

	"github.com/labstack/gommon/log"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DIRHUB_ADDR", "DIRHUB_DATA_FILE", "DATABASE_URL", "DIRHUB_UPSTREAM", "DIRHUB_FETCH_TIMEOUT", "DIRHUB_LOG_LEVEL", "DIRHUB_RATE_LIMIT"} {
		t.Setenv(k, "")
	}
	c, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":8080" || c.FetchTimeout != 2*time.Second || c.Level() != log.INFO || c.RateLimit != 20 {
		t.Errorf("unexpected defaults %+v", c)
	}
	if got := c.UpstreamURL(); got != "http://127.0.0.1:8080" {
		t.Errorf("want self upstream, got %s", got)
	}
}

func TestLoadEnvThenFlags(t *testing.T) {
	t.Setenv("DIRHUB_ADDR", ":9000")
	t.Setenv("DIRHUB_FETCH_TIMEOUT", "500ms")
	t.Setenv("DIRHUB_UPSTREAM", "http://api.example:8080/")
	t.Setenv("DIRHUB_LOG_LEVEL", "debug")

	c, err := Load([]string{"-addr", ":9100"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":9100" {
		t.Errorf("flag must win over env, got %s", c.Addr)
	}
	if c.FetchTimeout != 500*time.Millisecond {
		t.Errorf("want 500ms from env, got %v", c.FetchTimeout)
	}
	if c.UpstreamURL() != "http://api.example:8080" {
		t.Errorf("upstream not trimmed: %s", c.UpstreamURL())
	}
	if c.Level() != log.DEBUG {
		t.Errorf("want debug level, got %v", c.Level())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DIRHUB_FETCH_TIMEOUT", "soon")
	if _, err := Load(nil); err == nil {
		t.Error("want error for unparsable timeout")
	}
	t.Setenv("DIRHUB_FETCH_TIMEOUT", "")
	if _, err := Load([]string{"-log-level", "loud"}); err == nil {
		t.Error("want error for unknown log level")
	}
	if _, err := Load([]string{"-fetch-timeout", "0s"}); err == nil {
		t.Error("want error for zero timeout")
	}
}

func TestLoadRateLimitFromEnv(t *testing.T) {
	t.Setenv("DIRHUB_RATE_LIMIT", "2.5")
	c, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.RateLimit != 2.5 {
		t.Errorf("want 2.5 from env, got %v", c.RateLimit)
	}

	if c, err = Load([]string{"-rate-limit", "7"}); err != nil || c.RateLimit != 7 {
		t.Errorf("flag must win over env, got %v (%v)", c.RateLimit, err)
	}

	t.Setenv("DIRHUB_RATE_LIMIT", "fast")
	if _, err := Load(nil); err == nil {
		t.Error("want error for unparsable rate limit")
	}
}
