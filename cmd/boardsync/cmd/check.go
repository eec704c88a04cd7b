package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridianlabs/boardsync/internal/config"
	"github.com/meridianlabs/boardsync/pkg/identity"
)

var checkCmd = &cobra.Command{
	Use:   "check <item-id>",
	Short: "Inspect a single item and its derived identity keys",
	Long: `Check fetches one item and prints every column value together with
the identity keys the duplicate index would derive from it. Useful when
a record matched (or failed to match) unexpectedly.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	if settings.Token == "" {
		return fmt.Errorf("API token required (BOARDSYNC_API_TOKEN)")
	}
	client, err := newClient(settings)
	if err != nil {
		return err
	}

	mapping, err := config.LoadMapping(mappingFile)
	if err != nil {
		return err
	}

	item, err := client.Item(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Item %s: %q\n\n", item.ID, item.Name)
	for _, cv := range item.ColumnValues {
		if cv.IsEmpty() {
			continue
		}
		fmt.Printf("  %-24s %s\n", cv.ID+":", cv.TrimmedText())
	}

	fmt.Println("\nIdentity keys:")
	fmt.Printf("  normalized name: %q\n", identity.NormalizeName(item.Name))
	if email, ok := identity.Email(item.ColumnValue(mapping.Columns.Email)); ok {
		fmt.Printf("  email:           %q\n", email)
	}
	if ref, ok := identity.ReferenceNumber(item.ColumnValue(mapping.Columns.Reference)); ok {
		fmt.Printf("  reference:       %q\n", ref)
	}
	if mapping.Columns.SecondaryID != "" {
		if sid := item.ColumnValue(mapping.Columns.SecondaryID).TrimmedText(); sid != "" {
			fmt.Printf("  secondary id:    %q\n", sid)
		}
	}

	if len(item.Updates) > 0 {
		fmt.Printf("\nAnnotations: %d (newest first)\n", len(item.Updates))
	}
	return nil
}
