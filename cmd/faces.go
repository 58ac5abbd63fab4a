package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/hotelops/faceattend/internal/config"
	"github.com/hotelops/faceattend/internal/database/postgres"
	"github.com/spf13/cobra"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Inspect and manage enrolled faces",
}

var facesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List faces enrolled for a user",
	RunE:  runFacesList,
}

var facesCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Show the number of active faces",
	RunE:  runFacesCount,
}

var facesDeactivateCmd = &cobra.Command{
	Use:   "deactivate <face-id>",
	Short: "Deactivate an enrolled face",
	Args:  cobra.ExactArgs(1),
	RunE:  runFacesDeactivate,
}

func init() {
	rootCmd.AddCommand(facesCmd)
	facesCmd.AddCommand(facesListCmd)
	facesCmd.AddCommand(facesCountCmd)
	facesCmd.AddCommand(facesDeactivateCmd)

	facesListCmd.Flags().Int64("user", 0, "User ID to list faces for")
	facesListCmd.MarkFlagRequired("user")
}

// connect builds a migrated database pool from the environment.
func connect(ctx context.Context) (*postgres.Pool, *config.Config, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Migrate(ctx, cfg.Face.EmbeddingDim); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return pool, cfg, nil
}

func runFacesList(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user")
	ctx := context.Background()

	pool, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	faces, err := postgres.NewFaceRepository(pool).ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list faces: %w", err)
	}
	if len(faces) == 0 {
		fmt.Printf("No faces enrolled for user %d\n", userID)
		return nil
	}

	for _, f := range faces {
		state := "active"
		if !f.IsActive {
			state = "inactive"
		}
		fmt.Printf("%s  user=%d  quality=%.2f  %s  enrolled=%s\n",
			f.FaceID, f.UserID, f.QualityScore, state, f.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runFacesCount(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	pool, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	count, err := postgres.NewFaceRepository(pool).CountActive(ctx)
	if err != nil {
		return fmt.Errorf("count faces: %w", err)
	}
	fmt.Printf("%d active faces\n", count)
	return nil
}

func runFacesDeactivate(cmd *cobra.Command, args []string) error {
	faceID := args[0]
	ctx := context.Background()

	pool, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	ok, err := postgres.NewFaceRepository(pool).Deactivate(ctx, faceID)
	if err != nil {
		return fmt.Errorf("deactivate face: %w", err)
	}
	if !ok {
		return fmt.Errorf("face %s not found or already inactive", faceID)
	}
	fmt.Printf("Face %s deactivated\n", faceID)
	return nil
}
