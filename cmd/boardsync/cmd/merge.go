package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridianlabs/boardsync/pkg/boards"
	"github.com/meridianlabs/boardsync/pkg/duplicate"
	"github.com/meridianlabs/boardsync/pkg/errors"
	"github.com/meridianlabs/boardsync/pkg/logging"
	"github.com/meridianlabs/boardsync/pkg/merge"
	"github.com/meridianlabs/boardsync/pkg/reconcile"
	"github.com/meridianlabs/boardsync/pkg/transform"
)

var (
	mergeDryRun        bool
	mergeLimit         int
	mergeLogFile       string
	mergeNoAnnotations bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge the source board into the target board",
	Long: `Merge streams every item of the source board, matches it against the
duplicate index built from the target board, and creates or updates
target records according to the mapping configuration.

Use --dry-run to see what a run would do without writing anything.`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "decide without writing")
	mergeCmd.Flags().IntVar(&mergeLimit, "limit", 0, "process at most N source items (0 = all)")
	mergeCmd.Flags().StringVar(&mergeLogFile, "log", "", "write the JSON audit log to this file")
	mergeCmd.Flags().BoolVar(&mergeNoAnnotations, "no-annotations", false, "do not transfer annotations")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	settings, mapping, client, err := loadRun()
	if err != nil {
		return err
	}

	index, err := buildIndex(ctx, client, settings.TargetBoard, mapping.Columns)
	if err != nil {
		return err
	}

	registry := transform.NewRegistry(mapping.Tables)
	mapper := merge.NewMapper(registry, mapping.Rules, mapping.Transforms)

	opts := []reconcile.Option{
		reconcile.WithDryRun(mergeDryRun),
		reconcile.WithLimit(mergeLimit),
		reconcile.WithAnnotationTransfer(!mergeNoAnnotations),
	}
	if mapping.LinkColumn != "" {
		opts = append(opts, reconcile.WithLinkColumn(mapping.LinkColumn))
	}

	reconciler, err := reconcile.New(client, client, index, mapper,
		settings.SourceBoard, settings.TargetBoard, mapping.Columns, opts...)
	if err != nil {
		return err
	}

	result, runErr := reconciler.Run(ctx)

	if result != nil {
		fmt.Println(result.Summary())
		if mergeLogFile != "" {
			if err := writeJSON(mergeLogFile, result); err != nil {
				logging.Err(err).Str("file", mergeLogFile).Msg("writing audit log failed")
			} else {
				fmt.Printf("Audit log written to %s\n", mergeLogFile)
			}
		}
	}

	return runErr
}

// buildIndex scans the whole target board and builds the duplicate index.
func buildIndex(ctx context.Context, source reconcile.Source, boardID string, cols duplicate.Columns) (*duplicate.Index, error) {
	items, err := collectItems(ctx, source, boardID)
	if err != nil {
		return nil, err
	}

	logging.Info().
		Int("items", len(items)).
		Str("board", boardID).
		Msg("building duplicate index")

	return duplicate.BuildIndex(items, cols), nil
}

// collectItems loads a full board into memory.
func collectItems(ctx context.Context, source reconcile.Source, boardID string) ([]boards.Item, error) {
	var items []boards.Item
	err := source.ForEachItem(ctx, boardID, func(item *boards.Item) error {
		items = append(items, *item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// writeJSON writes v to path as indented JSON.
func writeJSON(path string, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.WrapParse("json", path, err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
