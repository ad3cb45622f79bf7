// internal/config/config.go
package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultAPIURL     = "http://localhost:8080"
	DefaultListenAddr = ":3000"
)

// Config is read once at process start.
type Config struct {
	// APIURL is the base URL of the books API, without a trailing slash.
	APIURL       string
	ListenAddr   string
	LogLevel     slog.Level
	RateLimit    float64
	OTLPEndpoint string
}

// Load builds the configuration from the environment, overridden by args.
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("librarian", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	apiURL := fs.String("api-url", getEnv("BOOKS_API_URL", DefaultAPIURL), "base URL of the books API")
	listen := fs.String("listen", getEnv("LISTEN_ADDR", DefaultListenAddr), "address the UI listens on")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	base, err := parseBaseURL(*apiURL)
	if err != nil {
		return Config{}, err
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	limit, err := strconv.ParseFloat(getEnv("BOOKS_API_RATE_LIMIT", "0"), 64)
	if err != nil || limit < 0 {
		return Config{}, fmt.Errorf("invalid BOOKS_API_RATE_LIMIT %q", os.Getenv("BOOKS_API_RATE_LIMIT"))
	}

	return Config{
		APIURL:       base,
		ListenAddr:   *listen,
		LogLevel:     level,
		RateLimit:    limit,
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}, nil
}

func parseBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid books API URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid books API URL %q: must be an absolute http(s) URL", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", raw, err)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
