package treestat

import (
	"context"
	"errors"
	"fmt"
)

// ReportTarget consumes every finished report.
type ReportTarget interface {
	Name() string
	PublishReport(ctx context.Context, report *Report) error
}

// RegisterTarget adds a sink that receives reports produced by Run and WatchAndReport.
func (a *Analyzer) RegisterTarget(target ReportTarget) {
	if target == nil {
		return
	}
	a.targetsMu.Lock()
	defer a.targetsMu.Unlock()
	a.targets = append(a.targets, target)
}

func (a *Analyzer) dispatchReport(ctx context.Context, report *Report) error {
	a.targetsMu.Lock()
	targets := append([]ReportTarget(nil), a.targets...)
	a.targetsMu.Unlock()

	logger := a.loggerOrDefault()

	var errs []error
	for _, target := range targets {
		if err := target.PublishReport(ctx, report); err != nil {
			logger.Error("Failed to publish report", "target", target.Name(), "error", err)
			errs = append(errs, fmt.Errorf("publish to %s: %w", target.Name(), err))
			continue
		}
		logger.Debug("Published report", "target", target.Name(), "run_id", report.RunID)
	}
	return errors.Join(errs...)
}
