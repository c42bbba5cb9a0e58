package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WriterConfig names the destination sheets and the external write quota.
type WriterConfig struct {
	SummarySheet    string
	NoProductsSheet string
	WorklistSheet   string

	// WriteDelay is the minimum spacing between consecutive write calls.
	WriteDelay time.Duration
}

// Writer appends tender rows and updates worklist status cells. Every
// write-class call passes through a shared limiter so consecutive writes are
// spaced by at least WriteDelay; writes are strictly serialized.
type Writer struct {
	values  Values
	cfg     WriterConfig
	limiter *rate.Limiter

	mu sync.Mutex
}

func NewWriter(values Values, cfg WriterConfig) *Writer {
	return &Writer{
		values:  values,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.WriteDelay), 1),
	}
}

// Exists reports whether a summary row for the given tender number is already
// present. It re-reads the key column on every call: earlier items of the same
// batch may have appended rows since the last check.
func (w *Writer) Exists(ctx context.Context, number string) (bool, error) {
	rows, err := w.values.Get(ctx, fmt.Sprintf("%s!A:A", w.cfg.SummarySheet))
	if err != nil {
		return false, fmt.Errorf("reading key column: %w", err)
	}

	needle := strings.TrimSpace(number)
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == needle {
			return true, nil
		}
	}
	return false, nil
}

// AppendSummaryAndItems writes the summary row plus item rows to the primary
// sheet and the summary row alone to the no-products sheet. The two appends
// are independent attempts: a failure of the secondary destination is logged
// but does not fail the item once the primary write has landed.
func (w *Writer) AppendSummaryAndItems(ctx context.Context, summary []any, items [][]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rows := append([][]any{summary}, items...)
	if err := w.append(ctx, w.cfg.SummarySheet, rows); err != nil {
		return NewErrSinkWrite(w.cfg.SummarySheet, err)
	}

	if err := w.append(ctx, w.cfg.NoProductsSheet, [][]any{summary}); err != nil {
		zap.S().Named("sheets").Errorw("secondary destination write failed",
			"sheet", w.cfg.NoProductsSheet, "error", err)
	}

	return nil
}

// AppendErrorRows writes the sentinel row to both destinations. Best effort:
// each destination is attempted regardless of the other's outcome.
func (w *Writer) AppendErrorRows(ctx context.Context, sentinel []any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	for _, sheet := range []string{w.cfg.SummarySheet, w.cfg.NoProductsSheet} {
		if err := w.append(ctx, sheet, [][]any{sentinel}); err != nil {
			zap.S().Named("sheets").Errorw("sentinel row write failed", "sheet", sheet, "error", err)
			if firstErr == nil {
				firstErr = NewErrSinkWrite(sheet, err)
			}
		}
	}
	return firstErr
}

// UpdateStatus writes the localized status marker into the worklist row's
// status cell. No optimistic locking: the cell is overwritten as-is.
func (w *Writer) UpdateStatus(ctx context.Context, row int, status Status) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	cell := fmt.Sprintf("%s!B%d", w.cfg.WorklistSheet, row)
	if err := w.values.Update(ctx, cell, [][]any{{status.Marker()}}); err != nil {
		return NewErrSinkWrite(w.cfg.WorklistSheet, err)
	}
	return nil
}

func (w *Writer) append(ctx context.Context, sheet string, rows [][]any) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	return w.values.Append(ctx, fmt.Sprintf("%s!A:AA", sheet), rows)
}
