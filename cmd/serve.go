package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hotelops/faceattend/internal/config"
	"github.com/hotelops/faceattend/internal/database"
	"github.com/hotelops/faceattend/internal/database/postgres"
	"github.com/hotelops/faceattend/internal/detector"
	"github.com/hotelops/faceattend/internal/events"
	"github.com/hotelops/faceattend/internal/liveness"
	"github.com/hotelops/faceattend/internal/pipeline"
	"github.com/hotelops/faceattend/internal/web"
	"github.com/hotelops/faceattend/internal/web/handlers"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the FaceAttend HTTP server.
The server exposes enrollment and recognition endpoints, per-user face
listings, face deactivation and Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// initFaceIndex loads the persisted active-face index or builds it from the
// database. Failure is non-fatal; matching falls back to pgvector queries.
func initFaceIndex(ctx context.Context, cfg *config.Config, faceRepo *postgres.FaceRepository) *database.ActiveFaceIndex {
	index := database.NewActiveFaceIndex()

	if cfg.Face.IndexPath != "" {
		count, maxSeq, err := faceRepo.Stats(ctx)
		if err == nil {
			if err := index.Load(cfg.Face.IndexPath, count, maxSeq); err == nil {
				slog.Info("face index loaded", "path", cfg.Face.IndexPath, "faces", index.Count())
				faceRepo.AttachIndex(index)
				return index
			} else {
				slog.Warn("face index snapshot unusable, rebuilding", "error", err)
			}
		}
	}

	entries, err := faceRepo.ActiveEntries(ctx)
	if err != nil {
		slog.Warn("face index build failed, using database queries", "error", err)
		return nil
	}
	if err := index.Build(entries); err != nil {
		slog.Warn("face index build failed, using database queries", "error", err)
		return nil
	}

	slog.Info("face index built", "faces", index.Count())
	faceRepo.AttachIndex(index)
	return index
}

// newPublisher constructs the event publisher for the configured backend.
func newPublisher(ctx context.Context, cfg *config.BrokerConfig) (events.Publisher, error) {
	switch cfg.Backend {
	case "amqp":
		return events.NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange, cfg.RoutingKey)
	case "redis":
		return events.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.Stream)
	case "none", "":
		return events.NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown broker backend %q", cfg.Backend)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if err := pool.Migrate(ctx, cfg.Face.EmbeddingDim); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	faceRepo := postgres.NewFaceRepository(pool)
	logRepo := postgres.NewAttendanceRepository(pool)

	var index *database.ActiveFaceIndex
	if cfg.Face.IndexEnabled {
		index = initFaceIndex(ctx, cfg, faceRepo)
	}

	det := detector.NewGate(
		detector.NewClient(cfg.Detector.URL, cfg.Face.EmbeddingDim, cfg.Detector.Timeout),
		cfg.Detector.MaxInflight,
	)

	publisher, err := newPublisher(ctx, &cfg.Broker)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer publisher.Close()

	timeouts := pipeline.Timeouts{
		Liveness: cfg.Face.LivenessTimeout,
		Store:    cfg.Database.QueryTimeout,
		Publish:  cfg.Broker.PublishTimeout,
	}
	enroller := pipeline.NewEnroller(
		det, liveness.NewGate(liveness.NewStub(), cfg.Detector.MaxInflight), faceRepo,
		cfg.Face.MinQuality, cfg.Face.LivenessThreshold, cfg.Face.EmbeddingDim,
		timeouts,
	)
	recognizer := pipeline.NewRecognizer(
		det, faceRepo, logRepo, publisher,
		cfg.Face.SimilarityThreshold,
		timeouts,
	)

	face := handlers.NewFaceHandler(enroller, recognizer, faceRepo)
	server := web.NewServer(cfg.Server.Host, cfg.Server.Port, face)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("shutting down")

		if index != nil && cfg.Face.IndexPath != "" {
			if err := index.Save(cfg.Face.IndexPath); err != nil {
				slog.Warn("failed to save face index", "error", err)
			} else {
				slog.Info("face index saved", "path", cfg.Face.IndexPath)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during shutdown", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
