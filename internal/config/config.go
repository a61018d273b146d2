package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var policyYAML []byte

type Config struct {
	Gemini   GeminiConfig
	OpenAI   OpenAIConfig
	SMTP     SMTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Web      WebConfig
	Policy   PolicyConfig
}

type GeminiConfig struct {
	APIKey string
}

type OpenAIConfig struct {
	Token string
}

type SMTPConfig struct {
	Host     string
	Port     string
	From     string
	Username string
	Password string
}

// Configured reports whether enough is set to attempt real email delivery.
func (c *SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; empty means in-memory storage
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RedisConfig struct {
	URL string // Redis URL for pending OTP codes; empty means in-memory storage
}

type WebConfig struct {
	SessionSecret string
}

// PolicyConfig holds the authentication flow policy loaded from the
// embedded policy.yaml. Values are fixed at build time.
type PolicyConfig struct {
	Biometric BiometricPolicy `yaml:"biometric"`
	OTP       OTPPolicy       `yaml:"otp"`
	Capture   CapturePolicy   `yaml:"capture"`
}

type BiometricPolicy struct {
	MatchThreshold    float64 `yaml:"match_threshold"`
	LivenessThreshold float64 `yaml:"liveness_threshold"`
}

type OTPPolicy struct {
	CodeLength          int `yaml:"code_length"`
	TTLSeconds          int `yaml:"ttl_seconds"`
	ResendWindowSeconds int `yaml:"resend_window_seconds"`
}

func (p OTPPolicy) TTL() time.Duration {
	return time.Duration(p.TTLSeconds) * time.Second
}

func (p OTPPolicy) ResendWindow() time.Duration {
	return time.Duration(p.ResendWindowSeconds) * time.Second
}

type CapturePolicy struct {
	MaxWidth            int `yaml:"max_width"`
	JPEGQuality         int `yaml:"jpeg_quality"`
	SettleDelayMS       int `yaml:"settle_delay_ms"`
	ScanIntervalSeconds int `yaml:"scan_interval_seconds"`
}

func (p CapturePolicy) SettleDelay() time.Duration {
	return time.Duration(p.SettleDelayMS) * time.Millisecond
}

func (p CapturePolicy) ScanInterval() time.Duration {
	return time.Duration(p.ScanIntervalSeconds) * time.Second
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString reads an environment variable with a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var policy PolicyConfig
	if err := yaml.Unmarshal(policyYAML, &policy); err != nil {
		// Embedded file, so this can only fail on a broken build.
		panic("failed to unmarshal embedded policy.yaml: " + err.Error())
	}

	return &Config{
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envString("SMTP_PORT", "587"),
			From:     os.Getenv("SMTP_FROM"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Web: WebConfig{
			SessionSecret: os.Getenv("WEB_SESSION_SECRET"),
		},
		Policy: policy,
	}
}
