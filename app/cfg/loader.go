package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./pubflow.db" description:"SQLite database file path"`

	// HTTP server configuration
	Port      string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	JWTSecret string `long:"jwt-secret" env:"JWT_SECRET" required:"true" description:"HMAC secret for verifying caller JWTs"`

	// Credential encryption
	TokenKey string `long:"token-key" env:"TOKEN_KEY" required:"true" description:"Hex-encoded 32-byte key for social token encryption"`

	// Publishing configuration
	RelayURL     string `long:"relay-url" env:"RELAY_URL" description:"Workflow relay webhook URL tried before direct publishing (optional)"`
	PlatformsDir string `long:"platforms-dir" env:"PLATFORMS_DIR" description:"Directory with platform catalog overrides (optional)"`

	// Background automation configuration
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for automation tasks"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"300" description:"Automation scheduler interval in seconds"`
	InternalKey       string `long:"internal-key" env:"INTERNAL_KEY" description:"Shared secret for the scheduled poller endpoint (optional)"`

	// Comment generation
	OpenAIKey     string `long:"openai-key" env:"OPENAI_API_KEY" description:"API key for the comment text generator (optional)"`
	OpenAIModel   string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"Model used for comment text generation"`
	OpenAIBaseURL string `long:"openai-base-url" env:"OPENAI_BASE_URL" description:"Override base URL for the comment text generator (optional)"`

	// Optional distributed lock backend
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for distributed publish locks (optional)"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Pubflow/1.0" description:"User agent string for outbound HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	// Best effort: a missing .env file is not an error
	_ = godotenv.Load()

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		Port:              raw.Port,
		JWTSecret:         raw.JWTSecret,
		TokenKey:          raw.TokenKey,
		RelayURL:          raw.RelayURL,
		PlatformsDir:      raw.PlatformsDir,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		InternalKey:       raw.InternalKey,
		OpenAIKey:         raw.OpenAIKey,
		OpenAIModel:       raw.OpenAIModel,
		OpenAIBaseURL:     raw.OpenAIBaseURL,
		RedisAddr:         raw.RedisAddr,
		RedisPassword:     raw.RedisPassword,
		UserAgent:         raw.UserAgent,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}
