package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mediavault/backend/internal/domain/shared"
)

var deleteUserAssetsEmail string

var deleteUserAssetsCmd = &cobra.Command{
	Use:   "delete-user-assets",
	Short: "Delete every image asset owned by a user",
	Long: `Delete all image assets owned by the user with the given email,
including their stored originals and thumbnails.

The command fails when no user exists with that email.`,
	RunE: runDeleteUserAssets,
}

func init() {
	deleteUserAssetsCmd.Flags().StringVar(&deleteUserAssetsEmail, "email", "", "email of the user whose assets are deleted")
	_ = deleteUserAssetsCmd.MarkFlagRequired("email")
}

func runDeleteUserAssets(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()

	user, err := a.userRepo.FindByEmail(ctx, deleteUserAssetsEmail)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("user not found: %s", deleteUserAssetsEmail)
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	deleted, err := a.assetService().DeleteAllForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("deleting assets: %w", err)
	}

	fmt.Printf("Deleted %d asset(s) for %s\n", deleted, user.Email)
	return nil
}
