// Command codeagentix runs the playground API.
//
//	codeagentix                     serve HTTP (default)
//	codeagentix token --subject u1  print a bearer token for local testing
//
// Settings come from flags, the environment (a .env file is loaded first),
// an optional config file, then built-in defaults.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sakif/codeagentix/internal/auth"
	"github.com/sakif/codeagentix/internal/config"
	"github.com/sakif/codeagentix/internal/executor"
	"github.com/sakif/codeagentix/internal/executor/docker"
	"github.com/sakif/codeagentix/internal/executor/wandbox"
	"github.com/sakif/codeagentix/internal/llm/openrouter"
	"github.com/sakif/codeagentix/internal/observability"
	redisRepo "github.com/sakif/codeagentix/internal/repository/redis"
	sqliteRepo "github.com/sakif/codeagentix/internal/repository/sqlite"
	"github.com/sakif/codeagentix/internal/server"
	"github.com/sakif/codeagentix/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var cfgFile string

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:           "codeagentix",
		Short:         "Code playground API: sharing, execution and AI assistance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
	setupFlags(rootCmd)
	rootCmd.AddCommand(newTokenCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.Int("port", defaults.GetInt("server.port"), "HTTP listen port")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.String("log-format", defaults.GetString("log.format"), "Log format (text, json)")
	flags.String("redis-url", defaults.GetString("redis.url"), "Redis URL for the share store")
	flags.String("database-path", defaults.GetString("database.path"), "SQLite path for history and usage")
	flags.String("executor", defaults.GetString("executor.backend"), "Execution backend (wandbox, docker, none)")
	flags.Bool("ai", defaults.GetBool("features.ai"), "Enable the model-backed routes")
	flags.Bool("simulation", defaults.GetBool("features.simulation"), "Enable /api/simulate")

	bindFlag(cmd, "server.port", "port")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "redis.url", "redis-url")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "executor.backend", "executor")
	bindFlag(cmd, "features.ai", "ai")
	bindFlag(cmd, "features.simulation", "simulation")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile == "" {
		return nil
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", cfgFile, err)
	}
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	// Load has already validated the name.
	_ = level.UnmarshalText([]byte(cfg.Level))

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// === STORAGE ===
	redisClient, err := redisRepo.Open(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	shareStore := redisRepo.NewShareStore(redisClient)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	db, err := sqliteRepo.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	// === AUTH ===
	var tokens *auth.TokenService
	if cfg.Auth.JWTSecret != "" {
		if tokens, err = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer); err != nil {
			return err
		}
	}

	deps := server.Dependencies{
		Tokens:  tokens,
		Redis:   shareStore,
		Shares:  service.NewShareService(shareStore, db, db, cfg.ShareBaseURL, logger),
		Account: service.NewAccountService(db, db, logger),
	}

	// === EXECUTION ===
	exec, closeExec := newExecutor(cfg.Executor, logger)
	defer closeExec()
	if exec != nil {
		deps.Runner = service.NewExecutionService(exec, db, logger)
	}

	// === LANGUAGE MODEL ===
	if cfg.AI || cfg.Simulation {
		client, err := openrouter.New(openrouter.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Referer: cfg.LLM.Referer,
			Title:   cfg.LLM.Title,
			Timeout: cfg.LLM.Timeout,
		})
		if err != nil {
			return err
		}
		deps.Assistant = service.NewAssistantService(client, service.Models{
			Primary:  cfg.LLM.PrimaryModel,
			Refiner:  cfg.LLM.RefinerModel,
			Fallback: cfg.LLM.FallbackModel,
		}, db, logger)
	}

	srv, err := server.New(cfg, deps, logger)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}

// newExecutor builds the configured backend. A Docker daemon that cannot be
// reached leaves /api/run disabled instead of stopping the server.
func newExecutor(cfg config.ExecutorConfig, logger *slog.Logger) (executor.Executor, func()) {
	noop := func() {}

	switch cfg.Backend {
	case config.BackendWandbox:
		return wandbox.New(wandbox.Config{URL: cfg.WandboxURL, Timeout: cfg.Timeout}, nil, logger), noop

	case config.BackendDocker:
		dcfg := docker.DefaultConfig()
		dcfg.Timeout = cfg.Timeout
		exec, err := docker.New(dcfg, logger)
		if err != nil {
			logger.Warn("docker executor unavailable; /api/run is disabled", slog.String("error", err.Error()))
			return nil, noop
		}
		return exec, func() {
			if err := exec.Close(); err != nil {
				logger.Warn("closing docker executor", slog.String("error", err.Error()))
			}
		}
	}
	return nil, noop
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()
			tokens, err := auth.NewTokenService(v.GetString("auth.jwt_secret"), v.GetString("auth.issuer"))
			if err != nil {
				return err
			}
			tok, err := tokens.Generate(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "User id to put in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
