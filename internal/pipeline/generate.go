package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hakim/islandreport/internal/diff"
	"github.com/hakim/islandreport/internal/island"
	"github.com/hakim/islandreport/internal/models"
	"github.com/hakim/islandreport/internal/notify"
	"github.com/hakim/islandreport/internal/report"
	"github.com/hakim/islandreport/internal/storage"
	"go.uber.org/zap"
)

// StoreInterface is the minimal bbolt contract required to record a run.
type StoreInterface interface {
	SaveSnapshot(snap *models.Snapshot) error
	UpdateSnapshotStatus(id string, status models.SnapshotStatus) error
}

// ReportSource is the part of the Island client a run needs.
type ReportSource interface {
	BaseURL() string
	Fetch(ctx context.Context, path string, out any) error
	SecurityReport(ctx context.Context) (*models.Report, error)
}

// GenerateConfig controls a single report generation run.
type GenerateConfig struct {
	// ReportDir receives the markdown file. Ignored when Output is set.
	ReportDir string

	// Output, when non-nil, receives the document instead of a file.
	Output io.Writer

	// Timeout caps the whole run. Zero means no timeout beyond the caller's context.
	Timeout time.Duration

	Notifier *notify.Notifier
	Logger   *zap.Logger
}

// GenerateResult summarises a finished run.
type GenerateResult struct {
	Snapshot *models.Snapshot
	View     report.View
	Elapsed  time.Duration
}

// Generate fetches the security report, assembles it with the four inventory
// collections, writes the markdown document and records a snapshot.
//
// The snapshot is saved as loading before anything is fetched and moved to
// complete or failed at the end. A missing security report fails the run;
// a failed inventory fetch only leaves its section empty.
func Generate(ctx context.Context, cfg GenerateConfig, source ReportSource, store StoreInterface) (res *GenerateResult, err error) {
	if source == nil {
		return nil, fmt.Errorf("pipeline: report source must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("pipeline: store must not be nil")
	}
	if cfg.Output == nil && cfg.ReportDir == "" {
		return nil, fmt.Errorf("pipeline: ReportDir or Output is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("generate")

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	snap := models.NewSnapshot(storage.IslandKey(source.BaseURL()))
	if err := store.SaveSnapshot(snap); err != nil {
		return nil, fmt.Errorf("pipeline: saving initial snapshot: %w", err)
	}
	logger.Info("Report generation started", zap.String("snapshot_id", snap.ID), zap.String("island", snap.Island))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline: report generation panicked: %v", r)
		}
		if err != nil {
			if uerr := store.UpdateSnapshotStatus(snap.ID, models.StatusFailed); uerr != nil {
				logger.Warn("Could not mark snapshot failed", zap.Error(uerr))
			}
			res = nil
		}
	}()

	rep, err := source.SecurityReport(runCtx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: fetching security report: %w", err)
	}

	assembler := report.NewAssembler(source.Fetch, rep, report.WithLogger(logger))
	defer assembler.Close()
	assembler.Start(runCtx)
	assembler.Wait()

	view := assembler.View()
	if view.Loading() {
		logger.Warn("Security report is empty; the document only shows the loading state")
	}

	if cfg.Output != nil {
		if _, err := io.WriteString(cfg.Output, view.Markdown()); err != nil {
			return nil, fmt.Errorf("pipeline: writing report: %w", err)
		}
	} else {
		if err := storage.EnsureDir(cfg.ReportDir); err != nil {
			return nil, fmt.Errorf("pipeline: creating report directory: %w", err)
		}
		snap.ReportPath = storage.ReportPath(cfg.ReportDir, snap.Island, snap.GeneratedAt)
		if err := view.WriteFile(snap.ReportPath); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}

	diff.Summarize(snap, view)
	snap.Status = models.StatusComplete
	if view.Loading() {
		snap.Status = models.StatusLoading
	}
	if err := store.SaveSnapshot(snap); err != nil {
		return nil, fmt.Errorf("pipeline: saving snapshot: %w", err)
	}

	pct := "N/A"
	if !view.Loading() {
		pct = report.FormatExploitPercentage(view.Report.Glance.ScannedCount, view.Report.Glance.BreachedCount)
	}
	if err := cfg.Notifier.SendCompletion(runCtx, snap, pct); err != nil {
		logger.Warn("Completion notification failed", zap.Error(err))
	}

	elapsed := time.Since(start)
	logger.Info("Report generation finished",
		zap.String("snapshot_id", snap.ID),
		zap.String("status", string(snap.Status)),
		zap.Duration("elapsed", elapsed.Round(time.Millisecond)),
	)

	return &GenerateResult{Snapshot: snap, View: view, Elapsed: elapsed}, nil
}

var _ ReportSource = (*island.Client)(nil)
