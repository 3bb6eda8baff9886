package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/miraview/internal/database"
	internalhttp "github.com/jmylchreest/miraview/internal/http"
	"github.com/jmylchreest/miraview/internal/http/handlers"
	"github.com/jmylchreest/miraview/internal/observability"
	"github.com/jmylchreest/miraview/internal/repository"
	"github.com/jmylchreest/miraview/internal/scheduler"
	"github.com/jmylchreest/miraview/internal/service"
	"github.com/jmylchreest/miraview/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the miraview server",
	Long: `Start the miraview HTTP server and API.

On start the last stored guide snapshot is restored, then programs and
services are re-fetched from mirakc on the configured schedule.

The server provides:
- Guide API under /api/v1/guide
- Tuner states at /api/v1/tuners
- Health checks at /health, /livez and /readyz
- Prometheus metrics at /metrics
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("mirakc", "http://localhost:40772", "mirakc base URL")
	serveCmd.Flags().String("database", "miraview.db", "Snapshot database DSN")
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Bound here rather than in init: grid binds mirakc.uri to its own flag.
	mustBindPFlag("server.host", cmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", cmd.Flags().Lookup("port"))
	mustBindPFlag("mirakc.uri", cmd.Flags().Lookup("mirakc"))
	mustBindPFlag("database.dsn", cmd.Flags().Lookup("database"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	mirakcClient, httpClient := newMirakcClient(cfg.Mirakc, logger)
	if v, err := mirakcClient.Version(ctx); err != nil {
		observability.WithError(logger, err).Warn("mirakc not reachable, serving stored guide",
			slog.String("mirakc", cfg.Mirakc.URI),
		)
	} else {
		logger.Info("connected to mirakc", slog.String("mirakc_version", v.Current))
	}

	guideService := service.NewGuideService(mirakcClient, cfg.Mirakc.URI, cfg.Mirakc.StreamProtocol).
		WithLogger(logger).
		WithSnapshots(repository.NewSnapshotRepository(db.DB), service.DefaultSnapshotRetain)

	if _, err := guideService.LoadSnapshot(ctx); err != nil {
		observability.WithError(logger, err).Warn("restoring guide snapshot failed")
	}

	refresher, err := scheduler.NewRefresher(guideService, cfg.Refresh)
	if err != nil {
		return fmt.Errorf("creating refresher: %w", err)
	}
	refresher.WithLogger(logger)
	if err := refresher.Start(ctx); err != nil {
		return fmt.Errorf("starting refresher: %w", err)
	}
	defer refresher.Stop()

	server := internalhttp.NewServer(cfg.Server, logger, version.Version)

	handlers.NewHealthHandler(version.Version, guideService).
		WithDB(db).
		WithScheduler(refresher).
		WithCircuitBreaker(httpClient.Breaker()).
		Register(server.API())

	handlers.NewGuideHandler(guideService).Register(server.API())
	handlers.NewTunerHandler(guideService).Register(server.API())

	logger.Info("starting miraview server",
		slog.String("address", cfg.Server.Address()),
		slog.String("mirakc", cfg.Mirakc.URI),
		slog.String("database", cfg.Database.Driver),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}
