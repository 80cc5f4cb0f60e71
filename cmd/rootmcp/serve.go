package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"

	"github.com/rootmcp/rootmcp/internal/config"
	"github.com/rootmcp/rootmcp/internal/executor"
	"github.com/rootmcp/rootmcp/internal/janitor"
	"github.com/rootmcp/rootmcp/internal/observability"
	"github.com/rootmcp/rootmcp/internal/rootenv"
	"github.com/rootmcp/rootmcp/internal/sandbox"
	"github.com/rootmcp/rootmcp/internal/server"
	"github.com/rootmcp/rootmcp/internal/storage"
	"github.com/rootmcp/rootmcp/internal/tools"
	"github.com/rootmcp/rootmcp/internal/tools/rootnative"
)

var (
	serveConfigPath string
	serveLogLevel   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdio (default command)",
	RunE:  runServe,
}

func init() {
	// Register flags on both root and serve so that
	// `rootmcp --config path` and `rootmcp serve --config path` both work.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&serveConfigPath, "config", config.DefaultConfigPath(), "path to config file")
		cmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	}
}

// runServe wires all subsystems and serves MCP over stdio until the client
// disconnects. Logging goes to stderr: stdout belongs to the protocol.
func runServe(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(serveLogLevel),
	}))

	cfg, err := config.Load(goutils.Env("ROOTMCP_CONFIG", serveConfigPath))
	if err != nil {
		return err
	}

	serverVersion := cfg.Server.Version
	if serverVersion == "" {
		serverVersion = version
	}

	logger.Info("starting rootmcp",
		slog.String("version", serverVersion),
		slog.String("workdir", cfg.Execution.WorkingDirectory),
		slog.Bool("root_enabled", cfg.Features.EnableRoot),
	)

	// Observability (nil when disabled).
	obs, err := observability.New(cfg.Observability, logger)
	if err != nil {
		return fmt.Errorf("initializing observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		obs.Shutdown(shutdownCtx)
	}()
	if obs != nil && obs.Metrics != nil {
		obs.ServeMetrics(cfg.Observability.Metrics.ListenAddr, logger)
	}

	// Execution history (nil store when disabled).
	var store storage.Store
	if cfg.Storage != nil {
		store, err = storage.Open(cfg.Storage, cfg.Execution.WorkingDirectory, logger)
		if err != nil {
			return fmt.Errorf("initializing storage: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("closing store", slog.String("error", err.Error()))
			}
		}()
		if err := store.Migrate(context.Background()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	// Validator with configured policy extensions.
	policy := sandbox.DefaultPolicy().Extend(
		cfg.Policy.ExtraBlockedModules,
		cfg.Policy.ExtraBlockedAttributes,
		cfg.Policy.ExtraBlockedBuiltins,
		cfg.Policy.ExtraAllowedModules,
	)
	policy.MaxCodeLength = cfg.Execution.MaxCodeLength
	validator := sandbox.NewValidator(policy)

	// Executor wrapped with instrumentation.
	exec := executor.New(executor.Config{
		Timeout:       cfg.Execution.Timeout(),
		MaxOutputSize: cfg.Execution.MaxOutputSize,
		WorkDir:       cfg.Execution.WorkingDirectory,
		Python:        cfg.Execution.Python,
	}, validator, logger)
	runner := observability.NewInstrumentedExecutor(exec, obs.MetricsOrNil(), obs.TracerOrNil())

	// Workspace cleanup (nil when disabled).
	jan := janitor.New(cfg.Cleanup, cfg.Execution.WorkingDirectory, obs.MetricsOrNil(), logger)
	if err := jan.Start(); err != nil {
		return err
	}
	defer jan.Stop()

	// Tool registration, gated on ROOT availability.
	registry := tools.NewRegistry()
	probe := rootenv.NewProbe(cfg.Execution.Python)
	if cfg.Features.EnableRoot {
		if cfg.Features.SkipProbe {
			registerTools(registry, runner, probe, store, logger)
		} else {
			probeCtx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
			status := probe.Status(probeCtx)
			cancel()
			if status.RootAvailable {
				logger.Info("pyroot detected", slog.String("root_version", status.RootVersion))
				registerTools(registry, runner, probe, store, logger)
			} else {
				logger.Warn("root tools disabled: pyroot unavailable",
					slog.String("detail", status.Detail))
			}
		}
	} else {
		logger.Info("root tools disabled by configuration")
	}

	srv, err := server.New(cfg.Server.Name, serverVersion, registry, logger)
	if err != nil {
		return err
	}

	logger.Info("rootmcp ready", slog.Any("tools", registry.List()))
	return srv.ServeStdio()
}

func registerTools(registry *tools.Registry, runner rootnative.Runner, probe *rootenv.Probe, store storage.Store, logger *slog.Logger) {
	rootnative.Register(registry, rootnative.Deps{
		Runner: runner,
		Probe:  probe,
		Store:  store,
		Logger: logger,
	})
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
