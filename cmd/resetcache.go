package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meysamhadeli/codewatch/constants/lipgloss"
	"github.com/meysamhadeli/codewatch/utils"
)

// resetCacheCmd represents the reset-cache command
var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Reset the dependency graph cache",
	Long: `The 'reset-cache' command removes every cached dependency graph from the
cache directory and drops the compiled ignore files. Use it to clear a
corrupted cache or to force a full rescan.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var force bool
		var stats bool

		// Parse flags
		force, _ = cmd.Flags().GetBool("force")
		stats, _ = cmd.Flags().GetBool("stats")

		return handleResetCacheCommand(force, stats, cmd)
	},
}

func init() {
	// Define command-specific flags
	resetCacheCmd.Flags().BoolP("force", "f", false, "Force cache reset without confirmation")
	resetCacheCmd.Flags().BoolP("stats", "s", false, "Show cache statistics instead of resetting")

	rootCmd.AddCommand(resetCacheCmd)
}

func handleResetCacheCommand(force bool, showStats bool, cmd *cobra.Command) error {
	rootDependencies, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}
	analyzer := rootDependencies.Session.Analyzer()

	// Show cache statistics if requested
	if showStats {
		cacheStats, err := analyzer.GetCacheStats()
		if err != nil {
			fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Warning: Could not show statistics: %v", err)))
			return nil
		}

		fmt.Println(lipgloss.Info.Render("Cache Statistics:"))
		for _, line := range cacheStatLines(cacheStats) {
			fmt.Println("  " + line)
		}
		return nil
	}

	if !rootDependencies.Config.EnableCache {
		fmt.Println(lipgloss.Yellow.Render("Cache is disabled. No cache to reset."))
		return nil
	}

	// Confirm reset for full cache reset (if not forced)
	if !force {
		confirmed, err := utils.ConfirmPrompt("Are you sure you want to reset the dependency graph cache?", bufio.NewReader(os.Stdin))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println(lipgloss.Yellow.Render("Cache reset cancelled."))
			return nil
		}
	}

	spinner := startSpinner("Resetting dependency graph cache...")
	err = analyzer.ClearCache()
	stopSpinner(spinner)
	if err != nil {
		return fmt.Errorf("error resetting cache: %w", err)
	}

	fmt.Println(lipgloss.Green.Render("✓ Dependency graph cache has been successfully reset!"))
	return nil
}

// cacheStatLines renders the persisted cache state. Hit and miss counters
// only cover the current process, so they are not shown.
func cacheStatLines(cacheStats map[string]interface{}) []string {
	if enabled, ok := cacheStats["cache_enabled"].(bool); !ok || !enabled {
		return []string{"Cache is disabled"}
	}

	var lines []string
	if dir, ok := cacheStats["cache_dir"].(string); ok {
		lines = append(lines, fmt.Sprintf("Cache Directory: %s", dir))
	}
	if files, ok := cacheStats["cache_files"].(int); ok {
		lines = append(lines, fmt.Sprintf("Cached Graphs: %d", files))
	}
	if size, ok := cacheStats["total_size"].(int64); ok {
		lines = append(lines, fmt.Sprintf("Total Size: %.2f MB", float64(size)/(1024*1024)))
	}
	return lines
}
