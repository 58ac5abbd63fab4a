package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/hotelops/faceattend/internal/database"
	"github.com/hotelops/faceattend/internal/database/postgres"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the in-memory face index",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the active-face index from the database and persist it",
	RunE:  runIndexRebuild,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexRebuildCmd)

	indexRebuildCmd.Flags().String("output", "", "Snapshot path (defaults to FACE_INDEX_PATH)")
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	ctx := context.Background()

	pool, cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if output == "" {
		output = cfg.Face.IndexPath
	}
	if output == "" {
		return errors.New("no snapshot path: pass --output or set FACE_INDEX_PATH")
	}

	repo := postgres.NewFaceRepository(pool)
	entries, err := repo.ActiveEntries(ctx)
	if err != nil {
		return fmt.Errorf("load active faces: %w", err)
	}

	bar := progressbar.Default(int64(len(entries)), "indexing faces")
	index := database.NewActiveFaceIndex()
	for _, e := range entries {
		index.Add(e)
		bar.Add(1)
	}

	if err := index.Save(output); err != nil {
		return fmt.Errorf("save index: %w", err)
	}

	fmt.Printf("Indexed %d active faces, snapshot written to %s\n", index.Count(), output)
	return nil
}
