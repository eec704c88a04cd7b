package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/meridianlabs/boardsync/pkg/boards"
	"github.com/meridianlabs/boardsync/pkg/duplicate"
)

var (
	validateOutput string
	validateLimit  int
)

// validationReport is the JSON shape of a validation run.
type validationReport struct {
	SourceItems int               `json:"source_items"`
	TargetItems int               `json:"target_items"`
	Matched     int               `json:"matched"`
	Ambiguous   int               `json:"ambiguous"`
	Unmatched   []unmatchedRecord `json:"unmatched,omitempty"`
	ByKind      map[string]int    `json:"matched_by_kind"`
}

type unmatchedRecord struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Verify merge coverage between the boards",
	Long: `Validate re-runs duplicate matching without writing anything and
reports how many source items resolve to a target record, broken down by
match kind. Source items that still match nothing are listed so they can
be checked by hand after a merge.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateOutput, "output", "o", "", "write the validation report to this JSON file")
	validateCmd.Flags().IntVar(&validateLimit, "limit", 0, "validate at most N source items (0 = all)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	settings, mapping, client, err := loadRun()
	if err != nil {
		return err
	}

	index, err := buildIndex(ctx, client, settings.TargetBoard, mapping.Columns)
	if err != nil {
		return err
	}

	report := validationReport{
		TargetItems: index.Len(),
		ByKind:      make(map[string]int),
	}

	err = client.ForEachItem(ctx, settings.SourceBoard, func(item *boards.Item) error {
		if validateLimit > 0 && report.SourceItems >= validateLimit {
			return nil
		}
		report.SourceItems++

		match := duplicate.Match(item, index, mapping.Columns)
		switch {
		case match.Kind == duplicate.MatchAmbiguousName:
			report.Ambiguous++
		case match.Matched():
			report.Matched++
			report.ByKind[match.Kind.String()]++
		default:
			report.Unmatched = append(report.Unmatched, unmatchedRecord{ItemID: item.ID, Name: item.Name})
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Source items: %d, target items: %d\n", report.SourceItems, report.TargetItems)
	fmt.Printf("  matched:   %d\n", report.Matched)
	kinds := make([]string, 0, len(report.ByKind))
	for kind := range report.ByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Printf("    %-20s %d\n", kind+":", report.ByKind[kind])
	}
	fmt.Printf("  ambiguous: %d\n", report.Ambiguous)
	fmt.Printf("  unmatched: %d\n", len(report.Unmatched))

	if validateOutput != "" {
		if err := writeJSON(validateOutput, report); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", validateOutput)
	}
	return nil
}
