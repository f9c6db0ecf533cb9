package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meysamhadeli/codewatch/constants/lipgloss"
)

// recordChangeCmd represents the record-change command
var recordChangeCmd = &cobra.Command{
	Use:   "record-change <path>",
	Short: "Diff a file against a baseline",
	Long: `The 'record-change' command compares the current content of a file with a
baseline and prints the line-level diff. The baseline is read from --baseline;
without it the current content only becomes the baseline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseline, _ := cmd.Flags().GetString("baseline")

		return handleRecordChangeCommand(cmd, args[0], baseline)
	},
}

func init() {
	recordChangeCmd.Flags().StringP("baseline", "b", "", "File holding the previous content of <path>")

	rootCmd.AddCommand(recordChangeCmd)
}

func handleRecordChangeCommand(cmd *cobra.Command, path string, baselinePath string) error {
	rootDependencies, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}
	s := rootDependencies.Session

	if baselinePath != "" {
		baseline, err := os.ReadFile(baselinePath)
		if err != nil {
			return fmt.Errorf("failed to read baseline: %w", err)
		}
		if _, err := s.Record(path, baseline); err != nil {
			return err
		}
	}

	record, err := s.RecordFile(path)
	if err != nil {
		return err
	}

	switch {
	case record.Initial:
		fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("Baseline recorded for %s; pass --baseline to diff against earlier content.", record.Path)))
	case !record.HasChanges():
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("No changes in %s.", record.Path)))
	default:
		added, removed := record.Stats()
		fmt.Println(lipgloss.Info.Render(fmt.Sprintf("%s: +%d -%d", record.Path, added, removed)))
		printPatches(rootDependencies.Config.Theme, record.Patch)
	}
	return nil
}
