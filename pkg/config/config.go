package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envFile = "config.env"

type AppConfig struct {
	HTTPAddr           string
	LogDir             string
	Debug              bool
	OracleBaseURL      string
	OracleTimeout      time.Duration
	ConversionDebounce time.Duration
	ErrorVisibility    string
	ChartSuppressStale bool
	DisplayLocale      string
	DefaultFrom        string
	DefaultTo          string
	SessionIdleTTL     time.Duration
	HistoryEnabled     bool
	TLSCertFile        string
	TLSKeyFile         string
	DB                 DBConfig
}

// TLSEnabled reports whether the server should serve HTTPS.
func (c *AppConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

type DBConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	MaxOpenConns int
	MaxIdleConns int
}

// loadEnvFile reads config.env into the environment. Variables already set
// win, and a missing file is not an error.
func loadEnvFile() error {
	err := godotenv.Load(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return nil
}

func LoadConfig() (*AppConfig, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		HTTPAddr:        getString("HTTP_ADDR", ":8080"),
		LogDir:          getString("LOG_DIR", "logs"),
		OracleBaseURL:   strings.TrimRight(getString("ORACLE_BASE_URL", "https://api.frankfurter.app"), "/"),
		ErrorVisibility: getString("ERROR_VISIBILITY", "silent"),
		DisplayLocale:   getString("DISPLAY_LOCALE", "en"),
		DefaultFrom:     strings.ToUpper(getString("DEFAULT_FROM", "USD")),
		DefaultTo:       strings.ToUpper(getString("DEFAULT_TO", "BRL")),
		TLSCertFile:     getString("TLS_CERT_FILE", ""),
		TLSKeyFile:      getString("TLS_KEY_FILE", ""),
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return nil, errors.New("invalid TLS config: TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	var err error
	if cfg.Debug, err = getBool("DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.OracleTimeout, err = getDuration("ORACLE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ConversionDebounce, err = getDuration("CONVERSION_DEBOUNCE", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.ChartSuppressStale, err = getBool("CHART_SUPPRESS_STALE", true); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTTL, err = getDuration("SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HistoryEnabled, err = getBool("HISTORY_ENABLED", false); err != nil {
		return nil, err
	}

	if cfg.HistoryEnabled {
		db, err := LoadConfigDB()
		if err != nil {
			return nil, err
		}
		cfg.DB = *db
	}

	return cfg, nil
}

func LoadConfigDB() (*DBConfig, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	port, err := strconv.Atoi(os.Getenv("DB_PORT"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxOpen, err := strconv.Atoi(os.Getenv("DB_MAX_OPEN_CONNS"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}

	maxIdle, err := strconv.Atoi(os.Getenv("DB_MAX_IDLE_CONNS"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}

	return &DBConfig{
		Host:         os.Getenv("DB_HOST"),
		Port:         port,
		User:         os.Getenv("DB_USER"),
		Password:     os.Getenv("DB_PASSWORD"),
		Name:         os.Getenv("DB_NAME"),
		MaxOpenConns: maxOpen,
		MaxIdleConns: maxIdle,
	}, nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", key)
	}
	return d, nil
}
