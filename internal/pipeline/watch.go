package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hakim/islandreport/internal/report"
	"go.uber.org/zap"
)

// WatchConfig controls a watch run.
type WatchConfig struct {
	// OutputPath is rewritten after every state change.
	OutputPath string

	// Interval between security report polls. Must be positive.
	Interval time.Duration

	// OnRender is called after each successful write.
	OnRender func(view report.View)

	Logger *zap.Logger
}

// Watch keeps OutputPath in sync with the Island until ctx is done. The
// inventory collections are fetched once; the security report is polled every
// Interval and handed to the assembler, which re-renders on every change.
func Watch(ctx context.Context, cfg WatchConfig, source ReportSource) error {
	if cfg.OutputPath == "" {
		return fmt.Errorf("pipeline: OutputPath is required")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("pipeline: Interval must be positive")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("watch")

	assembler := report.NewAssembler(source.Fetch, nil, report.WithLogger(logger))
	changes := assembler.Subscribe()
	defer func() {
		assembler.Close()
		assembler.Wait()
	}()

	if err := writeView(assembler.View(), cfg); err != nil {
		return err
	}
	assembler.Start(ctx)

	poll := func() {
		rep, err := source.SecurityReport(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("Security report poll failed", zap.Error(err))
			}
			return
		}
		assembler.SetReport(rep)
	}
	poll()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			poll()
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if err := writeView(assembler.View(), cfg); err != nil {
				return err
			}
		}
	}
}

func writeView(view report.View, cfg WatchConfig) error {
	if err := view.WriteFile(cfg.OutputPath); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if cfg.OnRender != nil {
		cfg.OnRender(view)
	}
	return nil
}
