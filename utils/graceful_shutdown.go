package utils

import (
	"context"
	"fmt"

	"github.com/meysamhadeli/codewatch/constants/lipgloss"
)

// GracefulShutdown blocks until ctx is done, then runs cleanup once.
func GracefulShutdown(ctx context.Context, cleanup func()) {
	<-ctx.Done()
	fmt.Println(lipgloss.Yellow.Render("\nShutting down, finishing the current change..."))
	if cleanup != nil {
		cleanup()
	}
}
