package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirillslovesnov/tender-sync/internal/sheets"
	"go.uber.org/zap"
)

// requestDateColumn is the zero-based position of the request-receiving date
// in the summary row layout.
const requestDateColumn = 12

// Refresher walks the summary sheet and re-fetches tenders whose request date
// is old enough that the vendor may have published results since. It only
// reads from the sink; the fetch goes through the on-demand path and nothing
// is persisted.
type Refresher struct {
	values  sheets.Values
	fetcher Fetcher
	sheet   string
	age     time.Duration

	now func() time.Time
}

func NewRefresher(values sheets.Values, fetcher Fetcher, summarySheet string, age time.Duration) *Refresher {
	return &Refresher{
		values:  values,
		fetcher: fetcher,
		sheet:   summarySheet,
		age:     age,
		now:     time.Now,
	}
}

// Run performs one refresh pass. Per-row errors are logged and do not stop
// the walk.
func (r *Refresher) Run(ctx context.Context) error {
	log := zap.S().Named("refresh")

	rows, err := r.values.Get(ctx, fmt.Sprintf("%s!A:M", r.sheet))
	if err != nil {
		return fmt.Errorf("reading summary sheet: %w", err)
	}

	checked, refreshed := 0, 0
	for i, row := range rows {
		if i == 0 || len(row) <= requestDateColumn {
			continue
		}

		number := strings.TrimSpace(fmt.Sprint(row[0]))
		requestDate := strings.TrimSpace(fmt.Sprint(row[requestDateColumn]))
		if number == "" || requestDate == "" {
			continue
		}

		age, ok := r.ageOf(requestDate)
		if !ok {
			continue
		}
		checked++

		if age < r.age {
			continue
		}

		log.Infof("tender %s request date is %s old, refreshing", number, age.Round(time.Hour))
		if _, err := r.fetcher.Fetch(ctx, number); err != nil {
			log.Errorw("refresh fetch failed", "number", number, "error", err)
			continue
		}
		refreshed++
	}

	log.Infof("refresh pass completed: %d checked, %d refreshed", checked, refreshed)
	return nil
}

var refreshDateLayouts = []string{"2006-01-02", "02.01.2006"}

// ageOf parses a stored request date. Rows predating date normalization may
// still carry the DD.MM.YYYY form.
func (r *Refresher) ageOf(value string) (time.Duration, bool) {
	if idx := strings.IndexByte(value, ' '); idx > 0 {
		value = value[:idx]
	}
	for _, layout := range refreshDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return r.now().Sub(parsed), true
		}
	}
	return 0, false
}
