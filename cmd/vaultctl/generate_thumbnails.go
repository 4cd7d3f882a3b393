package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var generateThumbnailsForce bool

var generateThumbnailsCmd = &cobra.Command{
	Use:   "generate-thumbnails",
	Short: "Generate missing thumbnails for stored assets",
	Long: `Generate thumbnails for assets that do not have one, reading the
stored originals from the file store.

With --force, thumbnails are regenerated for every asset, replacing
existing files.`,
	RunE: runGenerateThumbnails,
}

func init() {
	generateThumbnailsCmd.Flags().BoolVar(&generateThumbnailsForce, "force", false, "regenerate thumbnails that already exist")
}

func runGenerateThumbnails(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.thumbnailService().Backfill(context.Background(), generateThumbnailsForce)
	if err != nil {
		return fmt.Errorf("generating thumbnails: %w", err)
	}

	fmt.Printf("Generated: %d  Skipped: %d  Failed: %d\n", result.Generated, result.Skipped, result.Failed)
	return nil
}
