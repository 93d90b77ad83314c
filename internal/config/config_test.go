package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := NewViper()
	v.Set("llm.api_key", "sk-test")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, time.Duration(0), cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, BackendWandbox, cfg.Executor.Backend)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "google/gemini-2.0-flash-001", cfg.LLM.PrimaryModel)
	assert.Equal(t, "meta-llama/llama-3.3-70b-instruct:free", cfg.LLM.RefinerModel)
	assert.Equal(t, "openrouter/free", cfg.LLM.FallbackModel)
	assert.True(t, cfg.Simulation)
	assert.True(t, cfg.AI)
	assert.False(t, cfg.OTEL.Enabled)
}

func TestLoad_EnvironmentAliases(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("OPENROUTER_API_KEY", "sk-env")
	t.Setenv("SHARE_BASE_URL", "https://codeagentix.dev/share/")
	t.Setenv("EXECUTOR_BACKEND", "Docker")

	cfg, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "https://codeagentix.dev/share", cfg.ShareBaseURL, "trailing slash is trimmed")
	assert.Equal(t, BackendDocker, cfg.Executor.Backend)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]any
		wantErr string
	}{
		{
			name:    "port out of range",
			set:     map[string]any{"server.port": 70000},
			wantErr: "server.port",
		},
		{
			name:    "unknown backend",
			set:     map[string]any{"executor.backend": "firecracker"},
			wantErr: "executor.backend",
		},
		{
			name:    "bad log level",
			set:     map[string]any{"log.level": "verbose"},
			wantErr: "log.level",
		},
		{
			name:    "missing api key with AI on",
			set:     map[string]any{"llm.api_key": ""},
			wantErr: "llm.api_key",
		},
		{
			name:    "zero executor timeout",
			set:     map[string]any{"executor.timeout": "0s"},
			wantErr: "executor.timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViper()
			v.Set("llm.api_key", "sk-test")
			for k, val := range tt.set {
				v.Set(k, val)
			}

			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_NoKeyNeededWhenModelFeaturesOff(t *testing.T) {
	v := NewViper()
	v.Set("llm.api_key", "")
	v.Set("features.ai", false)
	v.Set("features.simulation", false)

	_, err := Load(v)
	assert.NoError(t, err)
}
