package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
)

// Config holds the server settings. Every flag falls back to an
// environment variable, then to a built-in default.
type Config struct {
	Addr         string
	DataFile     string
	DatabaseURL  string
	Upstream     string // base URL the chart pipeline fetches from; empty means this server
	FetchTimeout time.Duration
	LogLevel     string
	RateLimit    float64 // dashboard mutations per second per client
}

func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("directoryhub", flag.ContinueOnError)

	timeout, err := envDuration("DIRHUB_FETCH_TIMEOUT", 2*time.Second)
	if err != nil {
		return Config{}, err
	}

	rateLimit, err := envFloat("DIRHUB_RATE_LIMIT", 20)
	if err != nil {
		return Config{}, err
	}

	var c Config
	fs.StringVar(&c.Addr, "addr", env("DIRHUB_ADDR", ":8080"), "Listen address")
	fs.StringVar(&c.DataFile, "data", env("DIRHUB_DATA_FILE", "businesses.csv"), "Business CSV file (business_id,type,state,city,name)")
	fs.StringVar(&c.DatabaseURL, "database-url", env("DATABASE_URL", ""), "Postgres connection string; overrides -data when set")
	fs.StringVar(&c.Upstream, "upstream", env("DIRHUB_UPSTREAM", ""), "Data API base URL for the chart pipeline (default: this server)")
	fs.DurationVar(&c.FetchTimeout, "fetch-timeout", timeout, "Bound on each chart data request")
	fs.StringVar(&c.LogLevel, "log-level", env("DIRHUB_LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")
	fs.Float64Var(&c.RateLimit, "rate-limit", rateLimit, "Dashboard mutation requests per second per client")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if c.FetchTimeout <= 0 {
		return Config{}, fmt.Errorf("fetch-timeout must be positive, got %v", c.FetchTimeout)
	}
	if c.RateLimit < 0 {
		return Config{}, fmt.Errorf("rate-limit must not be negative, got %v", c.RateLimit)
	}
	if _, ok := levels[strings.ToLower(c.LogLevel)]; !ok {
		return Config{}, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return c, nil
}

var levels = map[string]log.Lvl{
	"debug": log.DEBUG,
	"info":  log.INFO,
	"warn":  log.WARN,
	"error": log.ERROR,
}

// Level maps LogLevel to a gommon level.
func (c Config) Level() log.Lvl {
	if l, ok := levels[strings.ToLower(c.LogLevel)]; ok {
		return l
	}
	return log.INFO
}

// UpstreamURL resolves the pipeline's data API: the configured upstream, or
// this server's own listen address.
func (c Config) UpstreamURL() string {
	if c.Upstream != "" {
		return strings.TrimRight(c.Upstream, "/")
	}
	host := c.Addr
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	return "http://" + host
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := env(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := env(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
