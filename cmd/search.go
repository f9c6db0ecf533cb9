package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meysamhadeli/codewatch/code_modifier"
	"github.com/meysamhadeli/codewatch/constants/lipgloss"
	"github.com/meysamhadeli/codewatch/utils"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "List the files whose content matches a regular expression",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleSearchCommand(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func handleSearchCommand(cmd *cobra.Command, pattern string) error {
	rootDependencies, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}
	s := rootDependencies.Session

	matches, err := s.Search(pattern)
	if isFatal(err) {
		return err
	}

	for _, match := range matches {
		fmt.Println(relativeTo(s.Root(), match))
	}
	printFileErrors(err)

	fmt.Println(lipgloss.Info.Render(fmt.Sprintf("%d matching files", len(matches))))
	return nil
}

// isFatal reports whether a search or modify error ends the command instead
// of being listed as a per-file failure.
func isFatal(err error) bool {
	return errors.Is(err, code_modifier.ErrInvalidPattern) || errors.Is(err, utils.ErrRootUnreadable)
}
