package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/sourcegraph/go-diff/diff"
	"github.com/spf13/cobra"

	"github.com/meysamhadeli/codewatch/constants/lipgloss"
	"github.com/meysamhadeli/codewatch/utils"
)

// modifyCmd represents the modify command
var modifyCmd = &cobra.Command{
	Use:   "modify <pattern> <replacement>",
	Short: "Replace a regular expression in every matching file",
	Long: `The 'modify' command replaces every match of <pattern> with <replacement> in
all supported files under the root. The replacement may reference capture
groups as $1 or ${name}. The planned changes are shown first and applied
after confirmation. Files whose content would not change are never written.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		force, _ := cmd.Flags().GetBool("force")

		return handleModifyCommand(cmd, args[0], args[1], dryRun, force)
	},
}

func init() {
	modifyCmd.Flags().BoolP("dry-run", "n", false, "Show the changes without writing them")
	modifyCmd.Flags().BoolP("force", "f", false, "Apply the changes without confirmation")

	rootCmd.AddCommand(modifyCmd)
}

func handleModifyCommand(cmd *cobra.Command, pattern string, replacement string, dryRun bool, force bool) error {
	rootDependencies, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}
	s := rootDependencies.Session
	theme := rootDependencies.Config.Theme

	previews, err := s.Preview(pattern, replacement)
	if isFatal(err) {
		return err
	}
	printFileErrors(err)

	if len(previews) == 0 {
		fmt.Println(lipgloss.Yellow.Render("No files would change."))
		return nil
	}

	patches := make([]*diff.FileDiff, 0, len(previews))
	for _, preview := range previews {
		patches = append(patches, preview.Patch)
	}
	printPatches(theme, patches...)
	fmt.Println(lipgloss.Info.Render(fmt.Sprintf("%d files would change.", len(previews))))

	if dryRun {
		return nil
	}

	if dirty, err := utils.NewGitStatus(s.Root()).HasUncommittedChanges(cmd.Context()); err == nil && dirty {
		fmt.Println(lipgloss.Yellow.Render("Warning: the root has uncommitted changes and modifications cannot be undone."))
	}

	if !force {
		confirmed, err := utils.ConfirmPrompt("Apply these changes?", bufio.NewReader(os.Stdin))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println(lipgloss.Yellow.Render("Modification cancelled."))
			return nil
		}
	}

	spinner := startSpinner("Applying changes...")
	modified, err := s.Modify(pattern, replacement)
	stopSpinner(spinner)
	if isFatal(err) {
		return err
	}

	for _, path := range modified {
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("  ✓ %s", relativeTo(s.Root(), path))))
	}
	printFileErrors(err)

	fmt.Println(lipgloss.BoxStyle.Render(fmt.Sprintf("Modified %d of %d files", len(modified), len(previews))))
	return nil
}
