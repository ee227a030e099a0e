package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mcoot/racegame-go/internal/api"
	"github.com/mcoot/racegame-go/internal/config"
	"github.com/mcoot/racegame-go/internal/factory"
	redisboard "github.com/mcoot/racegame-go/internal/leaderboard/redis"
	"github.com/mcoot/racegame-go/internal/services/room"
	"github.com/mcoot/racegame-go/internal/transport/ws"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "racegame-server",
	Short:         "Multiplayer race room server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.New(), cmd.Flags(), configFile)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	config.RegisterFlags(rootCmd.Flags())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	wsCfg := ws.DefaultConfig()
	wsCfg.AllowedOrigins = cfg.AllowedOrigins

	appCfg := factory.Config{
		Logger:         logger,
		ResultsBackend: cfg.ResultsBackend,
		MaxResults:     cfg.MaxResults,
		Policy:         room.Policy{GateMovesToRace: cfg.GateMoves},
		WebSocket:      wsCfg,
	}
	if cfg.ResultsBackend == factory.ResultsBackendRedis {
		redisCfg := redisboard.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.MaxEntries = cfg.MaxResults
		appCfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(appCfg)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to release resources", slog.String("error", err.Error()))
		}
	}()

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()
	go app.Run(appCtx)

	serverCfg := api.DefaultServerConfig()
	serverCfg.Host = cfg.Host
	serverCfg.Port = cfg.Port
	serverCfg.ShutdownTimeout = cfg.ShutdownTimeout
	server := api.NewServer(app.Handler(cfg.AllowedOrigins), serverCfg, logger)
	server.OnShutdown(app.WebSocket.CloseAll)
	server.OnShutdown(app.Spectators.CloseAll)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("results_backend", cfg.ResultsBackend),
		slog.Bool("gate_moves", cfg.GateMoves),
	)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			return err
		}
	}

	// Stop the loop only after connections have drained their close commands
	cancelApp()
	<-app.Loop.Done()
	logger.Info("server stopped")
	return nil
}
