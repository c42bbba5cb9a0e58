package sheets

import (
	"context"
	"fmt"
	"strings"
)

// Status is the closed per-item state set. The worklist stores free-text,
// locale-specific markers; they are normalized here and translated back only
// at the write boundary.
type Status string

const (
	StatusUnprocessed Status = "unprocessed"
	StatusDone        Status = "done"
	StatusError       Status = "error"
)

// ParseStatus normalizes a raw worklist marker. Comparison is trimmed and
// case-insensitive; anything unrecognized counts as unprocessed so the item
// stays eligible.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "готово", "done":
		return StatusDone
	case "ошибка", "error":
		return StatusError
	default:
		return StatusUnprocessed
	}
}

// Marker is the localized string written back to the worklist.
func (s Status) Marker() string {
	switch s {
	case StatusDone:
		return "Готово"
	case StatusError:
		return "Ошибка"
	default:
		return ""
	}
}

// WorkItem is one worklist row. Row is the 1-based sheet row, kept for the
// status write-back.
type WorkItem struct {
	Row    int
	Number string
	Status Status
}

// Queue reads the worklist sheet.
type Queue struct {
	values Values
	sheet  string
}

func NewQueue(values Values, worklistSheet string) *Queue {
	return &Queue{values: values, sheet: worklistSheet}
}

// Load reads the full worklist. The header row and rows with an empty
// identifier are dropped; they are never processed and never marked.
func (q *Queue) Load(ctx context.Context) ([]WorkItem, error) {
	rows, err := q.values.Get(ctx, fmt.Sprintf("%s!A:B", q.sheet))
	if err != nil {
		return nil, fmt.Errorf("reading worklist: %w", err)
	}

	var items []WorkItem
	for i, row := range rows {
		if i == 0 {
			continue
		}

		var number, rawStatus string
		if len(row) > 0 {
			number = strings.TrimSpace(fmt.Sprint(row[0]))
		}
		if len(row) > 1 {
			rawStatus = fmt.Sprint(row[1])
		}

		if number == "" {
			continue
		}

		items = append(items, WorkItem{
			Row:    i + 1,
			Number: number,
			Status: ParseStatus(rawStatus),
		})
	}

	return items, nil
}
