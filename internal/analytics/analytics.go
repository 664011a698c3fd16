// Package analytics answers usage-summary queries (request counts, token
// and cost totals, average latency, cache-hit rate, top models) over a
// time window, per the gateway's Usage Analytics component. It queries
// the same usage_records table internal/usagelog.SQLWriter populates,
// rather than duplicating a separate store.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/usagelog"
)

// Window bounds a usage query; Until defaults to now if zero when passed
// to Report.
type Window struct {
	Since time.Time
	Until time.Time
}

// Report is the Usage Analytics Report returned by GetUsageReport.
type Report struct {
	Window       Window
	UserID       string // empty = all users
	RequestCount int
	TotalTokens  int64
	TotalCost    float64
	AvgLatencyMS float64
	CacheHitRate float64
	SuccessRate  float64
	TopModels    []string
}

// Source is the subset of usagelog.SQLWriter analytics needs.
type Source interface {
	Summarize(ctx context.Context, since, until time.Time, userID string) (usagelog.Summary, error)
	TopModels(ctx context.Context, since, until time.Time, n int) ([]string, error)
}

// Analytics computes Reports from a Source.
type Analytics struct {
	source Source
}

// New creates an Analytics backed by source.
func New(source Source) *Analytics {
	return &Analytics{source: source}
}

// GetUsageReport aggregates usage over win, optionally filtered to one
// user. topN bounds how many top models are returned (default 5).
func (a *Analytics) GetUsageReport(ctx context.Context, win Window, userID string, topN int) (Report, error) {
	if win.Until.IsZero() {
		win.Until = time.Now().UTC()
	}

	summary, err := a.source.Summarize(ctx, win.Since, win.Until, userID)
	if err != nil {
		return Report{}, fmt.Errorf("summarize usage: %w", err)
	}
	top, err := a.source.TopModels(ctx, win.Since, win.Until, topN)
	if err != nil {
		return Report{}, fmt.Errorf("top models: %w", err)
	}

	report := Report{
		Window:       win,
		UserID:       userID,
		RequestCount: summary.RequestCount,
		TotalTokens:  summary.TotalTokens,
		TotalCost:    summary.TotalCost,
		AvgLatencyMS: summary.AvgLatencyMS,
		TopModels:    top,
	}
	if summary.RequestCount > 0 {
		report.CacheHitRate = float64(summary.CacheHitCount) / float64(summary.RequestCount)
		report.SuccessRate = float64(summary.SuccessCount) / float64(summary.RequestCount)
	}
	return report, nil
}
