// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverFirestore = "firestore"
	DriverMySQL     = "mysql"
	DriverMemory    = "memory"
)

// Config holds all runtime configuration values. Each field corresponds to
// one or more environment variables.
type Config struct {
	Env  string // APP_ENV
	Port string // APP_PORT

	Store StoreConfig
	Auth  AuthConfig
	AMQP  AMQPConfig
	SMTP  SMTPConfig

	LogFile         string        // LOG_FILE; empty logs to stderr only
	RequestTimeout  time.Duration // REQUEST_TIMEOUT
	FanOut          int           // FAN_OUT; concurrent point reads per join
	AdminJoinPolicy string        // ADMIN_JOIN_POLICY; require-all | keep-partial
	SweepInterval   time.Duration // TOKEN_SWEEP_INTERVAL
}

type StoreConfig struct {
	Driver string // STORE_DRIVER

	FirestoreProject     string // FIRESTORE_PROJECT_ID
	FirestoreCredentials string // FIRESTORE_CREDENTIALS; empty uses application default credentials

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string
}

type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	BcryptCost int
}

type AMQPConfig struct {
	URL         string // RABBITMQ_URL or AMQP_URL; empty disables events
	ConsumeLogs bool   // BOOKING_CONSUMER_ENABLED
	LogPath     string // BOOKING_LOG_PATH
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ResetURL string // PASSWORD_RESET_URL
}

// Enabled reports whether password reset mail can be sent.
func (s SMTPConfig) Enabled() bool { return s.Host != "" && s.From != "" }

// Load reads the environment and exits on missing or invalid required values.
func Load() Config {
	cfg, err := load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func load() (Config, error) {
	r := &reader{}
	cfg := Config{
		Env:             r.must("APP_ENV"),
		Port:            r.must("APP_PORT"),
		LogFile:         os.Getenv("LOG_FILE"),
		RequestTimeout:  envDur("REQUEST_TIMEOUT", 10*time.Second),
		FanOut:          envInt("FAN_OUT", 16),
		AdminJoinPolicy: envStr("ADMIN_JOIN_POLICY", "require-all"),
		SweepInterval:   envDur("TOKEN_SWEEP_INTERVAL", time.Hour),
	}

	cfg.Store.Driver = strings.ToLower(envStr("STORE_DRIVER", DriverFirestore))
	switch cfg.Store.Driver {
	case DriverFirestore:
		cfg.Store.FirestoreProject = r.must("FIRESTORE_PROJECT_ID")
		cfg.Store.FirestoreCredentials = os.Getenv("FIRESTORE_CREDENTIALS")
	case DriverMySQL:
		cfg.Store.DBUser = r.must("DB_USER")
		cfg.Store.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.Store.DBHost = r.must("DB_HOST")
		cfg.Store.DBPort = r.must("DB_PORT")
		cfg.Store.DBName = r.must("DB_NAME")
	case DriverMemory:
	default:
		r.invalid = append(r.invalid, fmt.Sprintf("STORE_DRIVER=%q", cfg.Store.Driver))
	}

	cfg.Auth = AuthConfig{
		JWTSecret:  r.must("JWT_SECRET"),
		AccessTTL:  time.Duration(r.intOr("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTTL: time.Duration(r.intOr("REFRESH_TOKEN_TTL_DAYS", 30)) * 24 * time.Hour,
		ResetTTL:   envDur("PASSWORD_RESET_TTL", 30*time.Minute),
		BcryptCost: r.intOr("BCRYPT_COST", 12),
	}

	cfg.AMQP = AMQPConfig{
		URL:         envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		ConsumeLogs: envBool("BOOKING_CONSUMER_ENABLED", true),
		LogPath:     envStr("BOOKING_LOG_PATH", "logs/booking.log"),
	}

	cfg.SMTP = SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     r.intOr("SMTP_PORT", 587),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
		ResetURL: os.Getenv("PASSWORD_RESET_URL"),
	}

	if cfg.FanOut < 1 {
		r.invalid = append(r.invalid, fmt.Sprintf("FAN_OUT=%d", cfg.FanOut))
	}
	if cfg.AdminJoinPolicy != "require-all" && cfg.AdminJoinPolicy != "keep-partial" {
		r.invalid = append(r.invalid, fmt.Sprintf("ADMIN_JOIN_POLICY=%q", cfg.AdminJoinPolicy))
	}
	return cfg, r.err()
}

// reader collects every missing or malformed variable so one run reports
// them all.
type reader struct {
	missing []string
	invalid []string
}

func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.missing = append(r.missing, key)
	}
	return v
}

func (r *reader) intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.invalid = append(r.invalid, fmt.Sprintf("%s=%q", key, s))
		return def
	}
	return n
}

func (r *reader) err() error {
	var parts []string
	if len(r.missing) > 0 {
		parts = append(parts, "missing required env vars: "+strings.Join(r.missing, ", "))
	}
	if len(r.invalid) > 0 {
		parts = append(parts, "invalid values: "+strings.Join(r.invalid, ", "))
	}
	if len(parts) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}
