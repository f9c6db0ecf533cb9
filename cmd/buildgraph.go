package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meysamhadeli/codewatch/constants/lipgloss"
)

// buildGraphCmd represents the build-graph command
var buildGraphCmd = &cobra.Command{
	Use:   "build-graph [root]",
	Short: "Scan a source tree and print its include dependency graph",
	Long: `The 'build-graph' command scans every dependency-capable file under the root
for include/require statements and prints a summary of the resulting graph.
Unreadable files and unresolvable includes are listed individually.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var root string
		if len(args) == 1 {
			root = args[0]
		}
		showEdges, _ := cmd.Flags().GetBool("edges")

		return handleBuildGraphCommand(cmd, root, showEdges)
	},
}

func init() {
	buildGraphCmd.Flags().BoolP("edges", "e", false, "Print every include edge")

	rootCmd.AddCommand(buildGraphCmd)
}

func handleBuildGraphCommand(cmd *cobra.Command, root string, showEdges bool) error {
	rootDependencies, err := newRootDependencies(cmd, root)
	if err != nil {
		return err
	}
	s := rootDependencies.Session

	spinner := startSpinner("Building dependency graph...")
	result, err := s.BuildGraph()
	stopSpinner(spinner)
	if err != nil {
		return err
	}

	graph := result.Graph
	for _, skipped := range result.Skipped {
		fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("  ! skipped %s: %v", relativeTo(s.Root(), skipped.Path), skipped.Err)))
	}
	for _, warning := range result.Warnings {
		fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("  ! %s:%d: %s %q", relativeTo(s.Root(), warning.Path), warning.Line, warning.Reason, warning.Target)))
	}

	if showEdges {
		for _, file := range graph.Files() {
			edges := graph.Edges(file)
			if len(edges) == 0 {
				continue
			}
			fmt.Println(lipgloss.Info.Render(relativeTo(s.Root(), file)))
			for _, edge := range edges {
				fmt.Printf("  %s %s (line %d)\n", lipgloss.Gray.Render(edge.Keyword), relativeTo(s.Root(), edge.To), edge.Line)
			}
		}
	}

	source := "scan"
	if result.FromCache {
		source = "cache"
	}
	fmt.Println(lipgloss.BoxStyle.Render(fmt.Sprintf(
		"Root: %s\nFiles: %d\nEdges: %d\nSkipped: %d\nWarnings: %d\nSource: %s",
		s.Root(), graph.FileCount(), graph.EdgeCount(), len(result.Skipped), len(result.Warnings), source,
	)))
	return nil
}
