// Package sync drives batch runs: it walks the worklist, fetches each tender,
// transforms it and writes it to the sink with per-item status tracking.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/kirillslovesnov/tender-sync/internal/sbis"
	"github.com/kirillslovesnov/tender-sync/internal/sheets"
	"github.com/kirillslovesnov/tender-sync/internal/store"
	"github.com/kirillslovesnov/tender-sync/internal/store/model"
	"github.com/kirillslovesnov/tender-sync/internal/transform"
	"github.com/kirillslovesnov/tender-sync/pkg/metrics"
	"go.uber.org/zap"
)

// ErrRunInProgress is returned when a trigger fires while a batch is active.
// Only one run may be active at a time.
var ErrRunInProgress = errors.New("a batch run is already in progress")

// Fetcher retrieves one tender record.
type Fetcher interface {
	Fetch(ctx context.Context, identifier string) (*sbis.Record, error)
}

// Authenticator warms the session before any item starts; a failure here is
// run-fatal rather than a per-item error.
type Authenticator interface {
	Token(ctx context.Context) (string, error)
}

// Queue reads the work queue.
type Queue interface {
	Load(ctx context.Context) ([]sheets.WorkItem, error)
}

// Sink writes output rows and status cells.
type Sink interface {
	Exists(ctx context.Context, number string) (bool, error)
	AppendSummaryAndItems(ctx context.Context, summary []any, items [][]any) error
	AppendErrorRows(ctx context.Context, sentinel []any) error
	UpdateStatus(ctx context.Context, row int, status sheets.Status) error
}

// Report summarizes one batch run.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Total      int // eligible items, after the batch ceiling
	Processed  int
	Written    int
	Filtered   int
	Duplicates int
	Failed     int
}

type itemFailure struct {
	number string
	reason string
}

// Driver is the batch state machine. Items are processed strictly
// sequentially: the sink's write quota forbids concurrent writes, and the
// dedup check must observe rows written earlier in the same run.
type Driver struct {
	auth       Authenticator
	queue      Queue
	fetcher    Fetcher
	sink       Sink
	runs       store.SyncRun
	batchLimit int

	mu gosync.Mutex
}

func NewDriver(auth Authenticator, queue Queue, fetcher Fetcher, sink Sink, runs store.SyncRun, batchLimit int) *Driver {
	return &Driver{
		auth:       auth,
		queue:      queue,
		fetcher:    fetcher,
		sink:       sink,
		runs:       runs,
		batchLimit: batchLimit,
	}
}

// Run executes one batch. Per-item failures are downgraded to a status
// mutation plus a log line; only a worklist read failure or a session failure
// before the first item ends the run early.
func (d *Driver) Run(ctx context.Context) (Report, error) {
	if !d.mu.TryLock() {
		return Report{}, ErrRunInProgress
	}
	defer d.mu.Unlock()

	return d.run(ctx)
}

// RunAsync starts a batch in the background. It returns ErrRunInProgress
// without side effects when a run is already active.
func (d *Driver) RunAsync(ctx context.Context) error {
	if !d.mu.TryLock() {
		return ErrRunInProgress
	}

	go func() {
		defer d.mu.Unlock()
		if _, err := d.run(ctx); err != nil {
			zap.S().Named("sync").Errorw("batch run failed", "error", err)
		}
	}()

	return nil
}

func (d *Driver) run(ctx context.Context) (Report, error) {
	log := zap.S().Named("sync")
	report := Report{StartedAt: time.Now()}

	items, err := d.queue.Load(ctx)
	if err != nil {
		err = fmt.Errorf("loading work queue: %w", err)
		d.finish(ctx, &report, err)
		return report, err
	}

	eligible := d.eligible(items)
	report.Total = len(eligible)
	if len(eligible) == 0 {
		log.Info("work queue has no eligible items")
		d.finish(ctx, &report, nil)
		return report, nil
	}

	if _, err := d.auth.Token(ctx); err != nil {
		err = fmt.Errorf("acquiring session before batch: %w", err)
		d.finish(ctx, &report, err)
		return report, err
	}

	log.Infof("starting batch run: %d eligible items", len(eligible))

	var failures []itemFailure
	for _, item := range eligible {
		if err := ctx.Err(); err != nil {
			d.finish(ctx, &report, err, failures...)
			return report, err
		}

		report.Processed++
		if failure := d.processItem(ctx, item, &report); failure != nil {
			failures = append(failures, *failure)
		}
	}

	d.finish(ctx, &report, nil, failures...)
	log.Infof("batch run completed: %d written, %d filtered, %d duplicates, %d failed",
		report.Written, report.Filtered, report.Duplicates, report.Failed)

	return report, nil
}

// eligible keeps items whose normalized status is not done, capped to the
// batch ceiling to bound run duration against the external quota.
func (d *Driver) eligible(items []sheets.WorkItem) []sheets.WorkItem {
	var out []sheets.WorkItem
	for _, item := range items {
		if item.Status == sheets.StatusDone {
			continue
		}
		out = append(out, item)
		if d.batchLimit > 0 && len(out) == d.batchLimit {
			break
		}
	}
	return out
}

// processItem runs one item through Fetching → Transforming → Writing →
// StatusUpdate. It returns a failure description when the item errored.
func (d *Driver) processItem(ctx context.Context, item sheets.WorkItem, report *Report) *itemFailure {
	log := zap.S().Named("sync")

	record, err := d.fetcher.Fetch(ctx, item.Number)
	if err != nil {
		return d.failItem(ctx, item, report, fmt.Errorf("fetching: %w", err))
	}

	result, err := transform.Transform(record)
	if err != nil {
		return d.failItem(ctx, item, report, fmt.Errorf("transforming: %w", err))
	}

	if !result.Accepted {
		log.Infof("tender %s is an auxiliary notice, skipping", item.Number)
		report.Filtered++
		metrics.IncreaseItemsProcessedMetric(metrics.ItemOutcomeFiltered)
		d.markStatus(ctx, item, sheets.StatusDone)
		return nil
	}

	// The key column may have grown since the batch started, re-check right
	// before the write decision.
	exists, err := d.sink.Exists(ctx, item.Number)
	if err != nil {
		return d.failItem(ctx, item, report, fmt.Errorf("dedup check: %w", err))
	}
	if exists {
		log.Infof("tender %s already present in sink, skipping", item.Number)
		report.Duplicates++
		metrics.IncreaseItemsProcessedMetric(metrics.ItemOutcomeDuplicate)
		d.markStatus(ctx, item, sheets.StatusDone)
		return nil
	}

	if err := d.sink.AppendSummaryAndItems(ctx, result.Summary, result.Items); err != nil {
		return d.failItem(ctx, item, report, fmt.Errorf("writing: %w", err))
	}

	report.Written++
	metrics.IncreaseItemsProcessedMetric(metrics.ItemOutcomeWritten)
	d.markStatus(ctx, item, sheets.StatusDone)
	return nil
}

// failItem handles the ItemFailed branch: sentinel rows to both destinations,
// status set to error, and the run continues with the next item. A non-done
// status keeps the item eligible for the next scheduled run.
func (d *Driver) failItem(ctx context.Context, item sheets.WorkItem, report *Report, cause error) *itemFailure {
	zap.S().Named("sync").Errorw("work item failed", "number", item.Number, "error", cause)

	report.Failed++
	metrics.IncreaseItemsProcessedMetric(metrics.ItemOutcomeFailed)

	if err := d.sink.AppendErrorRows(ctx, transform.ErrorRow(item.Number)); err != nil {
		zap.S().Named("sync").Errorw("sentinel row write failed", "number", item.Number, "error", err)
	}
	d.markStatus(ctx, item, sheets.StatusError)

	return &itemFailure{number: item.Number, reason: cause.Error()}
}

func (d *Driver) markStatus(ctx context.Context, item sheets.WorkItem, status sheets.Status) {
	if err := d.sink.UpdateStatus(ctx, item.Row, status); err != nil {
		zap.S().Named("sync").Errorw("status update failed",
			"number", item.Number, "row", item.Row, "error", err)
	}
}

// finish stamps the report and persists it. Failure to persist run history is
// logged, never fatal.
func (d *Driver) finish(ctx context.Context, report *Report, fatal error, failures ...itemFailure) {
	report.FinishedAt = time.Now()

	result := "completed"
	if fatal != nil {
		result = "fatal"
	}
	metrics.IncreaseRunsTotalMetric(result)

	if d.runs == nil {
		return
	}

	run := &model.SyncRun{
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Total:      report.Total,
		Processed:  report.Processed,
		Written:    report.Written,
		Filtered:   report.Filtered,
		Duplicates: report.Duplicates,
		Failed:     report.Failed,
	}
	if fatal != nil {
		run.Fatal = fatal.Error()
	}
	for _, failure := range failures {
		run.Failures = append(run.Failures, model.SyncFailure{
			Number: failure.number,
			Reason: failure.reason,
		})
	}

	// Run history must survive a cancelled batch context.
	if err := d.runs.Create(context.WithoutCancel(ctx), run); err != nil {
		zap.S().Named("sync").Errorw("failed to persist run history", "error", err)
	}
}
