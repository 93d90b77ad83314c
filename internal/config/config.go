// Package config loads runtime settings from defaults, an optional config
// file, the environment and command-line flags, in rising order of priority.
//
// Keys are dotted (server.port). The environment form replaces dots with
// underscores and upper-cases the result (SERVER_PORT). A few keys also accept
// the short names deployment scripts already use: PORT, REDIS_URL, JWT_SECRET,
// OPENROUTER_API_KEY.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Executor backends.
const (
	BackendWandbox = "wandbox"
	BackendDocker  = "docker"
	BackendNone    = "none"
)

type ServerConfig struct {
	Port        int
	ReadTimeout time.Duration
	// WriteTimeout of zero leaves streamed answers bounded only by the request context.
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type LogConfig struct {
	Level  string
	Format string // text or json
}

type ExecutorConfig struct {
	Backend    string
	WandboxURL string
	Timeout    time.Duration
}

type LLMConfig struct {
	APIKey        string
	BaseURL       string
	Referer       string
	Title         string
	PrimaryModel  string
	RefinerModel  string
	FallbackModel string
	Timeout       time.Duration
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// OTELConfig controls trace export over OTLP/gRPC.
type OTELConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

// Config is the fully resolved runtime configuration.
type Config struct {
	Server       ServerConfig
	Log          LogConfig
	RedisURL     string
	DatabasePath string
	ShareBaseURL string
	Executor     ExecutorConfig
	// Simulation gates the LLM-emulated run route independently of the executor.
	Simulation bool
	// AI gates every route that calls the language model.
	AI        bool
	LLM       LLMConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	OTEL      OTELConfig
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on v.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short aliases. BindEnv only fails without a key, so the error is ignored.
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("redis.url", "REDIS_URL")
	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY", "OPENROUTER_API_KEY")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("database.path", "data/codeagentix.db")
	v.SetDefault("share.base_url", "http://localhost:3000/share")

	v.SetDefault("executor.backend", BackendWandbox)
	v.SetDefault("executor.wandbox_url", "https://wandbox.org/api/compile.json")
	v.SetDefault("executor.timeout", "30s")

	v.SetDefault("features.simulation", true)
	v.SetDefault("features.ai", true)

	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.referer", "https://codeagentix.dev")
	v.SetDefault("llm.title", "CodeAgentix")
	v.SetDefault("llm.primary_model", "google/gemini-2.0-flash-001")
	v.SetDefault("llm.refiner_model", "meta-llama/llama-3.3-70b-instruct:free")
	v.SetDefault("llm.fallback_model", "openrouter/free")
	v.SetDefault("llm.timeout", "0s")

	v.SetDefault("auth.issuer", "")

	v.SetDefault("ratelimit.rps", 5.0)
	v.SetDefault("ratelimit.burst", 10)

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4317")
	v.SetDefault("otel.insecure", true)
	v.SetDefault("otel.service_name", "codeagentix")
	v.SetDefault("otel.sample_ratio", 1.0)
}

// Load resolves and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:            v.GetInt("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			CORSOrigins:     v.GetStringSlice("server.cors_origins"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		RedisURL:     v.GetString("redis.url"),
		DatabasePath: v.GetString("database.path"),
		ShareBaseURL: strings.TrimRight(v.GetString("share.base_url"), "/"),
		Executor: ExecutorConfig{
			Backend:    strings.ToLower(v.GetString("executor.backend")),
			WandboxURL: v.GetString("executor.wandbox_url"),
			Timeout:    v.GetDuration("executor.timeout"),
		},
		Simulation: v.GetBool("features.simulation"),
		AI:         v.GetBool("features.ai"),
		LLM: LLMConfig{
			APIKey:        v.GetString("llm.api_key"),
			BaseURL:       v.GetString("llm.base_url"),
			Referer:       v.GetString("llm.referer"),
			Title:         v.GetString("llm.title"),
			PrimaryModel:  v.GetString("llm.primary_model"),
			RefinerModel:  v.GetString("llm.refiner_model"),
			FallbackModel: v.GetString("llm.fallback_model"),
			Timeout:       v.GetDuration("llm.timeout"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			Issuer:    v.GetString("auth.issuer"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("ratelimit.rps"),
			Burst: v.GetInt("ratelimit.burst"),
		},
		OTEL: OTELConfig{
			Enabled:     v.GetBool("otel.enabled"),
			Endpoint:    v.GetString("otel.endpoint"),
			Insecure:    v.GetBool("otel.insecure"),
			ServiceName: v.GetString("otel.service_name"),
			SampleRatio: v.GetFloat64("otel.sample_ratio"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, errors.New("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout < 0 {
		errs = append(errs, errors.New("server.write_timeout must not be negative"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	if strings.TrimSpace(c.RedisURL) == "" {
		errs = append(errs, errors.New("redis.url is required"))
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.ShareBaseURL == "" {
		errs = append(errs, errors.New("share.base_url is required"))
	}

	switch c.Executor.Backend {
	case BackendWandbox, BackendDocker, BackendNone:
	default:
		errs = append(errs, fmt.Errorf("executor.backend %q must be one of wandbox, docker, none", c.Executor.Backend))
	}
	if c.Executor.Timeout <= 0 {
		errs = append(errs, errors.New("executor.timeout must be positive"))
	}

	if (c.AI || c.Simulation) && strings.TrimSpace(c.LLM.APIKey) == "" {
		errs = append(errs, errors.New("llm.api_key (OPENROUTER_API_KEY) is required when AI features or simulation are enabled"))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, errors.New("llm.timeout must not be negative"))
	}

	if c.RateLimit.RPS < 0 {
		errs = append(errs, errors.New("ratelimit.rps must not be negative"))
	}
	if c.OTEL.Enabled && strings.TrimSpace(c.OTEL.Endpoint) == "" {
		errs = append(errs, errors.New("otel.endpoint is required when tracing is enabled"))
	}

	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
