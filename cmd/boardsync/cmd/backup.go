package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridianlabs/boardsync/pkg/boards"
	"github.com/meridianlabs/boardsync/pkg/errors"
)

var backupDir string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export the target board to JSON before a merge",
	Long: `Backup exports the target board's schema and every item to a
timestamped directory, so a merge can be audited or reverted by hand if
it goes wrong.`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().StringVar(&backupDir, "dir", "backups", "directory backups are created under")
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	settings, _, client, err := loadRun()
	if err != nil {
		return err
	}

	board, err := client.Board(ctx, settings.TargetBoard)
	if err != nil {
		return err
	}

	items, err := collectItems(ctx, client, settings.TargetBoard)
	if err != nil {
		return err
	}

	dir := filepath.Join(backupDir, "backup_"+time.Now().Format("20060102_150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	if err := writeJSON(filepath.Join(dir, "board.json"), board); err != nil {
		return err
	}
	payload := struct {
		BoardID string        `json:"board_id"`
		Name    string        `json:"name"`
		Items   []boards.Item `json:"items"`
	}{BoardID: board.ID, Name: board.Name, Items: items}
	if err := writeJSON(filepath.Join(dir, "items.json"), payload); err != nil {
		return err
	}

	fmt.Printf("Backed up %q: %d items, %d columns\n", board.Name, len(items), len(board.Columns))
	fmt.Printf("Backup written to %s\n", dir)
	return nil
}
