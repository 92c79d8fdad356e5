package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Parameter sink kinds
const (
	SinkLog   = "log"
	SinkRedis = "redis"
)

// Audio output kinds
const (
	OutputAuto   = "auto"   // speaker if available, otherwise silent
	OutputDevice = "device" // speaker or fail
	OutputNull   = "null"   // silent, clock driven
)

// Config holds all configuration for the avatar link service
type Config struct {
	// Backend connection. AvatarURL overrides the host/port/path parts.
	AvatarURL         string `envconfig:"AVATAR_WS_URL" default:""`
	AvatarAPIHost     string `envconfig:"AVATAR_API_HOST" default:"localhost"`
	AvatarAPIPort     string `envconfig:"AVATAR_API_PORT" default:"8000"`
	AvatarAPIPath     string `envconfig:"AVATAR_API_PATH" default:"/api/ws"`
	AvatarAPISecure   bool   `envconfig:"AVATAR_API_SECURE" default:"false"` // wss instead of ws
	AutoReconnect     bool   `envconfig:"AUTO_RECONNECT" default:"true"`
	ReconnectInterval int    `envconfig:"RECONNECT_INTERVAL_MS" default:"3000"` // milliseconds, fixed
	DialTimeout       int    `envconfig:"DIAL_TIMEOUT_MS" default:"10000"`      // milliseconds

	// Audio and lip-sync
	EnableAudio       bool    `envconfig:"ENABLE_AUDIO" default:"true"`
	EnableLipSync     bool    `envconfig:"ENABLE_LIP_SYNC" default:"true"`
	AudioOutput       string  `envconfig:"AUDIO_OUTPUT" default:"auto"`
	AudioSampleRate   int     `envconfig:"AUDIO_SAMPLE_RATE" default:"24000"`
	LipSyncFrameRate  int     `envconfig:"LIP_SYNC_FRAME_RATE" default:"60"`
	AnalyserFFTSize   int     `envconfig:"ANALYSER_FFT_SIZE" default:"512"`
	AnalyserSmoothing float64 `envconfig:"ANALYSER_SMOOTHING" default:"0.1"`

	// Avatar
	HistoryLimit   int    `envconfig:"HISTORY_LIMIT" default:"100"`
	EmotionProfile string `envconfig:"EMOTION_PROFILE" default:""` // YAML file; empty uses the built-in table

	// Parameter sink
	ParamSink     string `envconfig:"PARAM_SINK" default:"log"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisChannel  string `envconfig:"REDIS_CHANNEL" default:"avatar:events"`

	// Observability configuration
	HTTPPort       string `envconfig:"HTTP_PORT" default:"8081"`       // health, readiness and metrics
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks value ranges. It is called by Load and should be called
// again after flag overrides.
func (c *Config) Validate() error {
	if c.ReconnectInterval <= 0 {
		return fmt.Errorf("RECONNECT_INTERVAL_MS must be positive, got %d", c.ReconnectInterval)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("DIAL_TIMEOUT_MS must be positive, got %d", c.DialTimeout)
	}
	if c.LipSyncFrameRate <= 0 {
		return fmt.Errorf("LIP_SYNC_FRAME_RATE must be positive, got %d", c.LipSyncFrameRate)
	}
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive, got %d", c.AudioSampleRate)
	}
	if n := c.AnalyserFFTSize; n < 32 || n > 32768 || n&(n-1) != 0 {
		return fmt.Errorf("ANALYSER_FFT_SIZE must be a power of two between 32 and 32768, got %d", n)
	}
	if c.AnalyserSmoothing < 0 || c.AnalyserSmoothing >= 1 {
		return fmt.Errorf("ANALYSER_SMOOTHING must be in [0, 1), got %v", c.AnalyserSmoothing)
	}

	switch c.ParamSink {
	case SinkLog, SinkRedis:
	default:
		return fmt.Errorf("unknown PARAM_SINK %q (want %s or %s)", c.ParamSink, SinkLog, SinkRedis)
	}

	switch c.AudioOutput {
	case OutputAuto, OutputDevice, OutputNull:
	default:
		return fmt.Errorf("unknown AUDIO_OUTPUT %q (want %s, %s or %s)", c.AudioOutput, OutputAuto, OutputDevice, OutputNull)
	}

	return nil
}

// URL returns the websocket address of the backend
func (c *Config) URL() string {
	if c.AvatarURL != "" {
		return c.AvatarURL
	}

	scheme := "ws"
	if c.AvatarAPISecure {
		scheme = "wss"
	}
	path := c.AvatarAPIPath
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(c.AvatarAPIHost, c.AvatarAPIPort), path)
}

// ReconnectDelay returns the fixed reconnect interval
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectInterval) * time.Millisecond
}

// DialTimeoutDuration returns the handshake timeout
func (c *Config) DialTimeoutDuration() time.Duration {
	return time.Duration(c.DialTimeout) * time.Millisecond
}
