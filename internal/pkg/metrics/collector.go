package metrics

import (
	"context"
	"time"

	"github.com/medops/opsdesk/internal/pkg/ctxlog"
)

// CollectFunc samples one set of gauges.
type CollectFunc func(ctx context.Context) error

// RunCollector calls collect immediately and then on every interval until
// ctx is cancelled. Errors are logged and do not stop the loop.
func RunCollector(ctx context.Context, name string, interval time.Duration, collect CollectFunc) {
	logger := ctxlog.FromContext(ctx).With("collector", name)
	run := func() {
		if err := collect(ctx); err != nil {
			logger.Error("failed to collect metrics", "error", err)
		}
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			run()
		case <-ctx.Done():
			return
		}
	}
}
