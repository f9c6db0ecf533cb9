package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meysamhadeli/codewatch/code_analyzer/models"
	"github.com/meysamhadeli/codewatch/config"
	"github.com/meysamhadeli/codewatch/constants/lipgloss"
	"github.com/meysamhadeli/codewatch/session"
	"github.com/meysamhadeli/codewatch/utils"
	"github.com/meysamhadeli/codewatch/watcher"
)

const metricsShutdownTimeout = 5 * time.Second

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the root and report every change and its dependents",
	Long: `The 'watch' command builds the dependency graph, records a baseline for every
supported file and then watches the root. Each change is printed as a diff,
followed by the files that include the changed file. Python and PHP files are
also parsed and syntax errors are reported. Stop it with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleWatchCommand(cmd)
	},
}

func init() {
	config.InitWatchFlags(watchCmd)

	rootCmd.AddCommand(watchCmd)
}

func handleWatchCommand(cmd *cobra.Command) error {
	rootDependencies, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}
	cfg := rootDependencies.Config
	s := rootDependencies.Session
	logger := rootDependencies.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	spinner := startSpinner("Building dependency graph...")
	result, err := s.BuildGraph()
	stopSpinner(spinner)
	if err != nil {
		return err
	}

	if cfg.Watch.PrimeBaselines {
		spinner = startSpinner("Recording baselines...")
		count, err := s.Prime()
		stopSpinner(spinner)
		printFileErrors(err)
		logger.Debug("baselines recorded", "count", count)
	}

	w, err := watcher.New(s.Root(), watcher.Options{
		Patterns:    cfg.Languages().Patterns(),
		IgnoreFile:  cfg.IgnoreFile,
		IgnoredDirs: cfg.IgnoredDirs(),
		Debounce:    cfg.Watch.Debounce,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.Root(), err)
	}

	fmt.Println(lipgloss.BoxStyle.Render(fmt.Sprintf(
		"Watching %s\nFiles: %d  Edges: %d\nPress Ctrl+C to stop",
		s.Root(), result.Graph.FileCount(), result.Graph.EdgeCount(),
	)))

	go utils.GracefulShutdown(ctx, nil)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The session stops once the watcher closes its events.
		defer stop()
		return w.Run(gctx)
	})

	g.Go(func() error {
		return s.Run(gctx, w.Events(), reportEvent(s, cfg.Theme))
	})

	if cfg.Watch.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", rootDependencies.Metrics.Handler())
		server := &http.Server{Addr: cfg.Watch.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.Watch.MetricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Println(lipgloss.Green.Render("✓ Stopped watching."))
	return nil
}

// reportEvent prints the outcome of one handled change.
func reportEvent(s *session.Session, theme string) session.ReportFunc {
	return func(result *session.EventResult, err error) {
		if result == nil || !result.Kind.Supported() {
			if err != nil {
				fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("✗ %v", err)))
			}
			return
		}

		name := relativeTo(s.Root(), result.Path)
		if err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("✗ %s: %v", name, err)))
			return
		}

		if result.Rebuilt {
			fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("Dependency graph rebuilt for new file %s", name)))
		}

		switch {
		case result.Diff.Initial:
			fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("Tracking %s", name)))
		case result.Diff.HasChanges():
			added, removed := result.Diff.Stats()
			fmt.Println(lipgloss.Info.Render(fmt.Sprintf("%s changed (+%d -%d)", name, added, removed)))
			printPatches(theme, result.Diff.Patch)
		default:
			fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("%s saved without changes", name)))
		}

		if result.Syntax != nil {
			fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("  ! syntax error near line %d", result.Syntax.Line)))
		}

		if result.Kind == models.KindDependency && result.Propagation != nil && len(result.Propagation.Dependents) > 0 {
			printPropagation(result.Propagation, s.Root(), theme)
		}
	}
}
