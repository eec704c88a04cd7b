package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexOutput string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect the duplicate index of the target board",
	Long: `Index scans the target board, derives the identity keys of every item
(email, reference number, secondary id, normalized name) and reports key
and collision counts. With --output the full entry list is written as
JSON for offline inspection.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexOutput, "output", "o", "", "write index entries to this JSON file")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	settings, mapping, client, err := loadRun()
	if err != nil {
		return err
	}

	index, err := buildIndex(ctx, client, settings.TargetBoard, mapping.Columns)
	if err != nil {
		return err
	}

	stats := index.Stats()
	fmt.Printf("Indexed %d items\n", stats.Items)
	fmt.Printf("  email keys:       %d (%d collisions)\n", stats.EmailKeys, stats.EmailCollisions)
	fmt.Printf("  reference keys:   %d (%d collisions)\n", stats.ReferenceKeys, stats.ReferenceCollisions)
	fmt.Printf("  composite keys:   %d\n", stats.CompositeKeys)
	fmt.Printf("  name keys:        %d\n", stats.NameKeys)

	if indexOutput != "" {
		payload := struct {
			Stats   any `json:"stats"`
			Entries any `json:"entries"`
		}{Stats: stats, Entries: index.Entries()}
		if err := writeJSON(indexOutput, payload); err != nil {
			return err
		}
		fmt.Printf("Index written to %s\n", indexOutput)
	}
	return nil
}
