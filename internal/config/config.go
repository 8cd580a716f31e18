package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	defaultDataDir        = "."
	defaultListenAddress  = ":8080"
	defaultMaxRows        = 100_000
	defaultTimeoutSecs    = 30
	defaultRequestsPerSec = 1.0
)

// Config holds everything the worker reads from the environment. The .env
// file in the data dir is loaded first when present; real environment
// variables win.
type Config struct {
	DataDir       string
	DBPath        string
	ListenAddress string
	APIKey        string

	// Authorization is the pre-signed OAuth1a Authorization header supplied
	// by the host. The worker never sees raw secrets.
	Authorization string

	// BaseURL overrides the Twitter API base, used by tests.
	BaseURL string

	MaxRows        int
	RequestTimeout time.Duration
	RequestsPerSec float64
	EnablePprof    bool
}

// Read loads configuration from the environment.
func Read() Config {
	level := ParseLogLevel(os.Getenv("LOG_LEVEL"))
	SetLogLevel(level)

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = defaultDataDir
	}

	if err := godotenv.Load(filepath.Join(dataDir, ".env")); err != nil {
		logrus.Debugf("No .env file in %s, reading from environment only", dataDir)
	}

	c := Config{
		DataDir:        dataDir,
		DBPath:         os.Getenv("DB_PATH"),
		ListenAddress:  os.Getenv("LISTEN_ADDRESS"),
		APIKey:         os.Getenv("API_KEY"),
		Authorization:  os.Getenv("TWITTER_AUTHORIZATION"),
		BaseURL:        os.Getenv("TWITTER_BASE_URL"),
		MaxRows:        envInt("MAX_ROWS", defaultMaxRows),
		RequestTimeout: time.Duration(envInt("REQUEST_TIMEOUT_SECONDS", defaultTimeoutSecs)) * time.Second,
		RequestsPerSec: envFloat("REQUESTS_PER_SECOND", defaultRequestsPerSec),
		EnablePprof:    os.Getenv("ENABLE_PPROF") == "true",
	}

	if c.DBPath == "" {
		c.DBPath = filepath.Join(dataDir, "twitter-fetch.db")
	}
	if c.ListenAddress == "" {
		c.ListenAddress = defaultListenAddress
	}

	return c
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		logrus.Errorf("Error parsing %s=%q, using default %d", key, s, def)
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		logrus.Errorf("Error parsing %s=%q, using default %g", key, s, def)
		return def
	}
	return v
}

// ParseLogLevel parses a string and returns the corresponding logrus.Level.
func ParseLogLevel(logLevel string) logrus.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		logrus.Errorf("Invalid log level %q, setting to %s", logLevel, logrus.InfoLevel)
		return logrus.InfoLevel
	}
}

// SetLogLevel sets the log level for the application.
func SetLogLevel(level logrus.Level) {
	logrus.SetLevel(level)
}
