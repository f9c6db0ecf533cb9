package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meysamhadeli/codewatch/config"
	"github.com/meysamhadeli/codewatch/constants/lipgloss"
	"github.com/meysamhadeli/codewatch/logging"
	"github.com/meysamhadeli/codewatch/metrics"
	"github.com/meysamhadeli/codewatch/session"
)

// RootDependencies is everything a subcommand needs, built from the loaded
// configuration.
type RootDependencies struct {
	Cwd     string
	Config  *config.Config
	Logger  *logging.Logger
	Metrics *metrics.Recorder
	Session *session.Session
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "codewatch",
	Short: "Watch a source tree, diff every change and find the files that depend on it.",
	Long: `codewatch watches a PHP/Python source tree. When a file changes it shows a
line-level diff of the change, lists the files that include the changed file
through static include/require statements, and re-checks those dependents.
It can also search the tree with a regular expression and apply a
replacement across every matching file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if version, _ := cmd.Flags().GetBool("version"); version {
			fmt.Println(lipgloss.BlueSky.Render(fmt.Sprintf("codewatch version %s", config.DefaultConfig.Version)))
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command and prints a failure in red.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("Error: %v", err)))
		return err
	}
	return nil
}

func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	return newRootDependencies(cmd, "")
}

// newRootDependencies loads the configuration and builds the session. A
// non-empty root overrides the configured one.
func newRootDependencies(cmd *cobra.Command, root string) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	cfg, err := config.LoadConfigs(cmd, cwd)
	if err != nil {
		return nil, err
	}
	if root != "" {
		cfg.Root = root
	}

	logger := cfg.Logger()
	recorder := metrics.NewRecorder()

	s, err := session.New(session.Options{
		Root:            cfg.RootPath(cwd),
		Languages:       cfg.Languages(),
		IgnoreFile:      cfg.IgnoreFile,
		IgnoredDirs:     cfg.IgnoredDirs(),
		EnableCache:     cfg.EnableCache,
		CacheDir:        cfg.CacheDir,
		ContextLines:    cfg.ContextLines,
		RebuildOnCreate: cfg.Watch.RebuildOnCreate,
		Logger:          logger,
		Metrics:         recorder,
	})
	if err != nil {
		return nil, err
	}

	return &RootDependencies{
		Cwd:     cwd,
		Config:  cfg,
		Logger:  logger,
		Metrics: recorder,
		Session: s,
	}, nil
}
