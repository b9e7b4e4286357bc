package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the Scribe server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Blob      BlobConfig
	Inference InferenceConfig
	Pipeline  PipelineConfig
	Watcher   WatcherConfig
	Sweeper   SweeperConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	LogLevel        string
	RateLimitPerMin int
	MaxUploadBytes  int64
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

type RedisConfig struct {
	URL      string
	Snapshot time.Duration
}

type BlobConfig struct {
	Dir string
}

type InferenceConfig struct {
	STTProvider  string
	TextProvider string
	Timeout      time.Duration
	PromptsFile  string
	OpenAI       OpenAIConfig
	Ollama       OpenAICompatConfig
	VLLM         OpenAICompatConfig
	Gemini       GeminiConfig
}

type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	STTModel  string
	TextModel string
}

// OpenAICompatConfig configures a self-hosted server exposing the OpenAI chat API.
type OpenAICompatConfig struct {
	BaseURL string
	Model   string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type PipelineConfig struct {
	AudioUnit       time.Duration
	TextUnitTokens  int
	UnitConcurrency int
	Workers         int
	QueueSize       int
	FFmpegPath      string
	FFprobePath     string
	TempDir         string
}

type WatcherConfig struct {
	Dir string
}

type SweeperConfig struct {
	StuckAfter time.Duration
	Schedule   string
}

var validDrivers = map[string]bool{
	"postgres": true,
	"sqlite":   true,
}

var validSTTProviders = map[string]bool{
	"openai": true,
}

var validTextProviders = map[string]bool{
	"openai": true,
	"ollama": true,
	"vllm":   true,
	"gemini": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("SCRIBE_PORT", 8080),
			Env:             envString("SCRIBE_ENV", "development"),
			LogLevel:        envString("LOG_LEVEL", "info"),
			RateLimitPerMin: envInt("RATE_LIMIT_PER_MIN", 60),
			MaxUploadBytes:  int64(envInt("MAX_UPLOAD_MB", 512)) << 20,
		},
		Database: databaseFromEnv(),
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			Snapshot: envDuration("REDIS_SNAPSHOT_TTL", 30*time.Minute),
		},
		Blob: BlobConfig{
			Dir: envString("BLOB_DIR", "./data/media"),
		},
		Inference: InferenceConfig{
			STTProvider:  envString("STT_PROVIDER", "openai"),
			TextProvider: envString("TEXT_PROVIDER", "openai"),
			Timeout:      envDurationSecs("INFERENCE_TIMEOUT_SECS", 120*time.Second),
			PromptsFile:  os.Getenv("PROMPTS_FILE"),
			OpenAI: OpenAIConfig{
				APIKey:    os.Getenv("OPENAI_API_KEY"),
				BaseURL:   envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				STTModel:  envString("OPENAI_STT_MODEL", "whisper-1"),
				TextModel: envString("OPENAI_TEXT_MODEL", "gpt-4.1-mini"),
			},
			Ollama: OpenAICompatConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
			VLLM: OpenAICompatConfig{
				BaseURL: envString("VLLM_BASE_URL", "http://localhost:8000/v1"),
				Model:   envString("VLLM_MODEL", ""),
			},
			Gemini: GeminiConfig{
				APIKey: os.Getenv("GEMINI_API_KEY"),
				Model:  envString("GEMINI_MODEL", "gemini-2.0-flash"),
			},
		},
		Pipeline: PipelineConfig{
			AudioUnit:       envDurationSecs("AUDIO_UNIT_SECS", 180*time.Second),
			TextUnitTokens:  envInt("TEXT_UNIT_TOKENS", 4000),
			UnitConcurrency: envInt("UNIT_CONCURRENCY", 4),
			Workers:         envInt("WORKERS", 4),
			QueueSize:       envInt("QUEUE_SIZE", 64),
			FFmpegPath:      envString("FFMPEG_PATH", "ffmpeg"),
			FFprobePath:     envString("FFPROBE_PATH", "ffprobe"),
			TempDir:         os.Getenv("SCRIBE_TMP_DIR"),
		},
		Watcher: WatcherConfig{
			Dir: os.Getenv("WATCH_DIR"),
		},
		Sweeper: SweeperConfig{
			StuckAfter: envDuration("STUCK_JOB_AFTER", 30*time.Minute),
			Schedule:   envString("STUCK_SWEEP_SCHEDULE", "@every 5m"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads and validates only the job store settings. Tools that never run
// jobs use it instead of Load.
func LoadDatabase() (DatabaseConfig, error) {
	db := databaseFromEnv()
	if err := db.validate(); err != nil {
		return DatabaseConfig{}, err
	}
	return db, nil
}

func databaseFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Driver:          envString("STORE_DRIVER", "postgres"),
		URL:             os.Getenv("DATABASE_URL"),
		MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		ConnectTimeout:  envDuration("DATABASE_CONNECT_TIMEOUT", 30*time.Second),
	}
}

func (d DatabaseConfig) validate() error {
	if !validDrivers[d.Driver] {
		return fmt.Errorf("STORE_DRIVER must be one of postgres, sqlite; got %q", d.Driver)
	}
	if d.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if d.Driver == "postgres" &&
		!strings.HasPrefix(d.URL, "postgres://") && !strings.HasPrefix(d.URL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql:// when STORE_DRIVER is postgres")
	}
	return nil
}

func (c *Config) validate() error {
	if err := c.Database.validate(); err != nil {
		return err
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if !validSTTProviders[c.Inference.STTProvider] {
		return fmt.Errorf("STT_PROVIDER must be openai; got %q", c.Inference.STTProvider)
	}
	if !validTextProviders[c.Inference.TextProvider] {
		return fmt.Errorf("TEXT_PROVIDER must be one of openai, ollama, vllm, gemini; got %q", c.Inference.TextProvider)
	}
	if (c.Inference.STTProvider == "openai" || c.Inference.TextProvider == "openai") && c.Inference.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when a provider is openai")
	}
	if c.Inference.TextProvider == "gemini" && c.Inference.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when TEXT_PROVIDER is gemini")
	}
	if c.Inference.TextProvider == "vllm" && c.Inference.VLLM.Model == "" {
		return fmt.Errorf("VLLM_MODEL is required when TEXT_PROVIDER is vllm")
	}

	if c.Pipeline.AudioUnit <= 0 {
		return fmt.Errorf("AUDIO_UNIT_SECS must be positive")
	}
	if c.Pipeline.TextUnitTokens <= 0 {
		return fmt.Errorf("TEXT_UNIT_TOKENS must be positive")
	}
	if c.Pipeline.UnitConcurrency < 1 {
		return fmt.Errorf("UNIT_CONCURRENCY must be at least 1")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1")
	}
	if c.Pipeline.QueueSize < 1 {
		return fmt.Errorf("QUEUE_SIZE must be at least 1")
	}

	if _, err := cron.ParseStandard(c.Sweeper.Schedule); err != nil {
		return fmt.Errorf("STUCK_SWEEP_SCHEDULE is invalid: %w", err)
	}
	if c.Sweeper.StuckAfter <= 0 {
		return fmt.Errorf("STUCK_JOB_AFTER must be positive")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
