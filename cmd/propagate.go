package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meysamhadeli/codewatch/constants/lipgloss"
)

// propagateCmd represents the propagate command
var propagateCmd = &cobra.Command{
	Use:   "propagate <path>",
	Short: "List and re-check the files that include a file",
	Long: `The 'propagate' command builds the dependency graph of the root and re-reads
every file that directly includes <path>. Files that include those files are
not visited. A dependent that cannot be read is reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return handlePropagateCommand(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(propagateCmd)
}

func handlePropagateCommand(cmd *cobra.Command, path string) error {
	rootDependencies, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}
	s := rootDependencies.Session

	spinner := startSpinner("Building dependency graph...")
	_, err = s.BuildGraph()
	stopSpinner(spinner)
	if err != nil {
		return err
	}

	result := s.Propagate(path)
	printPropagation(result, s.Root(), rootDependencies.Config.Theme)

	if failed := result.Failed(); len(failed) > 0 {
		fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("%d of %d dependents could not be read.", len(failed), len(result.Dependents))))
	}
	return nil
}
