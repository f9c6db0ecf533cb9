package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/pterm/pterm"
	"github.com/sourcegraph/go-diff/diff"

	"github.com/meysamhadeli/codewatch/change_detector"
	"github.com/meysamhadeli/codewatch/constants/lipgloss"
	"github.com/meysamhadeli/codewatch/propagation"
	"github.com/meysamhadeli/codewatch/utils"
)

func startSpinner(text string) *pterm.SpinnerPrinter {
	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)

	spinnerInstance, _ := spinner.Start(text)
	return spinnerInstance
}

func stopSpinner(spinner *pterm.SpinnerPrinter) {
	if spinner == nil {
		return
	}
	_ = spinner.Stop()
	fmt.Print("\r")
}

// printPatches prints patches highlighted with theme.
func printPatches(theme string, patches ...*diff.FileDiff) {
	out, err := change_detector.PrintPatches(patches...)
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error rendering diff: %v", err)))
		return
	}
	if err := utils.RenderPatch(os.Stdout, out, theme); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error printing diff: %v", err)))
	}
}

// printFileErrors prints every per-file error of err on its own line.
func printFileErrors(err error) {
	if err == nil {
		return
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, fileErr := range merr.Errors {
			fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("  ! %v", fileErr)))
		}
		return
	}
	fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("  ! %v", err)))
}

// printPropagation lists the dependents of a propagation result.
func printPropagation(result *propagation.Result, root string, theme string) {
	if result == nil || len(result.Dependents) == 0 {
		fmt.Println(lipgloss.Gray.Render("No dependent files."))
		return
	}

	fmt.Println(lipgloss.Info.Render(fmt.Sprintf("Dependents of %s:", relativeTo(root, result.Source))))
	for _, dependent := range result.Dependents {
		name := relativeTo(root, dependent.Path)
		switch {
		case dependent.Err != nil:
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("  ✗ %s: %v", name, dependent.Err)))
		case dependent.Diff.HasChanges():
			added, removed := dependent.Diff.Stats()
			fmt.Println(lipgloss.Green.Render(fmt.Sprintf("  • %s (+%d -%d)", name, added, removed)))
			printPatches(theme, dependent.Diff.Patch)
		default:
			fmt.Println(lipgloss.Green.Render(fmt.Sprintf("  • %s", name)))
		}
	}
}

func relativeTo(root string, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
