package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuprum-acid/o11y-kit/internal/config"
	"github.com/cuprum-acid/o11y-kit/internal/database"
	"github.com/cuprum-acid/o11y-kit/internal/items"
	"github.com/cuprum-acid/o11y-kit/internal/loadtest"
	logging "github.com/cuprum-acid/o11y-kit/internal/log"
	"github.com/cuprum-acid/o11y-kit/internal/migrations"
	"github.com/cuprum-acid/o11y-kit/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const instanceName = "o11y-kit"

func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the items service and the load test controller",
		Long: `Run the items service and the load test controller.

Settings come from defaults, an optional YAML file (--config), environment
variables prefixed with O11YKIT_ (O11YKIT_DATABASE_DSN, ...) and flags, in
increasing order of precedence.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().String("address", config.DefaultAddress, "Listen address")
	cmd.Flags().String("log-level", "info", "Log level (none/error/warn/info/debug)")
	cmd.Flags().Bool("log-json", false, "Log in JSON instead of logfmt")
	cmd.Flags().String("log-color", "auto", "Colored logs (auto/always/never)")
	cmd.Flags().String("dsn", config.DefaultDSN, "Database DSN (postgres://..., sqlite://path or :memory:)")
	cmd.Flags().String("target-url", loadtest.DefaultTargetURL, "URL the load generator requests")
	cmd.Flags().Int("max-rps", loadtest.DefaultMaxRPS, "Highest accepted request rate")

	return cmd
}

// runServe wires the service together and blocks until ctx is cancelled
// or the HTTP server fails.
func runServe(ctx context.Context, cfg *config.Config) error {
	logLevel, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	logger := logging.SetupLogging(logLevel, cfg.Log.JSON, logging.UseColor(cfg.Log.Color), instanceName)

	gin.SetMode(gin.ReleaseMode)

	db, err := database.Open(ctx, database.Options{
		DSN:            cfg.Database.DSN,
		ConnectRetries: cfg.Database.ConnectRetries,
		RetryInterval:  cfg.Database.RetryInterval,
		MaxOpenConns:   cfg.Database.MaxOpenConns,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	controller, err := loadtest.NewController(cfg.LoadTestConfig(), logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Address:           cfg.Server.Address,
		SlowEvery:         cfg.Items.SlowEvery,
		SlowDelay:         cfg.Items.SlowDelay,
		HeartbeatInterval: cfg.LoadTest.HeartbeatInterval,
		WriteTimeout:      cfg.LoadTest.WriteTimeout,
	}, items.NewStore(db), controller, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.ListenAndServe)

	g.Go(func() error {
		<-gctx.Done()

		level.Info(logger).Log("msg", "Shutting down")

		// Stop the generator first so it does not hit a closing server
		controller.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
