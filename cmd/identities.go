package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facekit/livematch/internal/config"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "Manage the identity catalogue",
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active identities",
	RunE:  runIdentitiesList,
}

var identitiesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Deactivate an identity",
	Long: `Deactivate an identity by its ID. The identity stops matching immediately
and its label becomes available for re-enrollment. The record itself is
kept; deactivation cannot be undone.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentitiesRemove,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
	identitiesCmd.AddCommand(identitiesListCmd)
	identitiesCmd.AddCommand(identitiesRemoveCmd)
}

func runIdentitiesList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	store, closeStore, err := openCatalogue(ctx, cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No active identities")
		return nil
	}

	fmt.Printf("%-36s  %-24s  %-10s  %s\n", "ID", "LABEL", "CONFIDENCE", "ENROLLED")
	for _, rec := range records {
		fmt.Printf("%-36s  %-24s  %-10.2f  %s\n",
			rec.ID, rec.Label, rec.Confidence, rec.EnrolledAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runIdentitiesRemove(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	store, closeStore, err := openCatalogue(ctx, cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	if err := store.Deactivate(ctx, args[0]); err != nil {
		return fmt.Errorf("deactivating %s: %w", args[0], err)
	}
	fmt.Printf("Identity %s deactivated\n", args[0])
	return nil
}
