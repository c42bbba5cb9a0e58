package sync_test

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kirillslovesnov/tender-sync/internal/sbis"
	"github.com/kirillslovesnov/tender-sync/internal/sheets"
	"github.com/kirillslovesnov/tender-sync/internal/store/model"
	"github.com/kirillslovesnov/tender-sync/internal/sync"
)

type mockAuth struct {
	err   error
	calls int
}

func (m *mockAuth) Token(_ context.Context) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return "sid-1", nil
}

type mockQueue struct {
	items []sheets.WorkItem
	err   error
}

func (m *mockQueue) Load(_ context.Context) ([]sheets.WorkItem, error) {
	return m.items, m.err
}

type mockFetcher struct {
	fetchFunc func(ctx context.Context, identifier string) (*sbis.Record, error)
	calls     []string
}

func (m *mockFetcher) Fetch(ctx context.Context, identifier string) (*sbis.Record, error) {
	m.calls = append(m.calls, identifier)
	return m.fetchFunc(ctx, identifier)
}

type appendedRows struct {
	summary []any
	items   [][]any
}

type mockSink struct {
	mu gosync.Mutex

	existing  map[string]bool
	appends   []appendedRows
	sentinels [][]any
	statuses  map[int]sheets.Status

	existsErr error
	appendErr error
}

func newMockSink() *mockSink {
	return &mockSink{
		existing: map[string]bool{},
		statuses: map[int]sheets.Status{},
	}
}

func (m *mockSink) Exists(_ context.Context, number string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.existing[number], nil
}

func (m *mockSink) AppendSummaryAndItems(_ context.Context, summary []any, items [][]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appends = append(m.appends, appendedRows{summary: summary, items: items})
	m.existing[fmt.Sprint(summary[0])] = true
	return nil
}

func (m *mockSink) AppendErrorRows(_ context.Context, sentinel []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentinels = append(m.sentinels, sentinel)
	return nil
}

func (m *mockSink) UpdateStatus(_ context.Context, row int, status sheets.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[row] = status
	return nil
}

type mockRuns struct {
	runs []*model.SyncRun
	err  error
}

func (m *mockRuns) Create(_ context.Context, run *model.SyncRun) error {
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockRuns) List(_ context.Context, _ int) ([]model.SyncRun, error) { return nil, nil }
func (m *mockRuns) InitialMigration() error                               { return nil }

func tenderRecord(number string, lots ...sbis.Lot) *sbis.Record {
	return &sbis.Record{
		Result: sbis.SearchResult{
			Tenders: []sbis.Tender{{
				Number: number,
				Name:   "Поставка наборов для донорской крови",
				Lots:   lots,
			}},
		},
	}
}

var _ = Describe("batch driver", func() {
	var (
		auth    *mockAuth
		queue   *mockQueue
		fetcher *mockFetcher
		sink    *mockSink
		runs    *mockRuns
	)

	BeforeEach(func() {
		auth = &mockAuth{}
		queue = &mockQueue{}
		sink = newMockSink()
		runs = &mockRuns{}
		fetcher = &mockFetcher{
			fetchFunc: func(_ context.Context, identifier string) (*sbis.Record, error) {
				return tenderRecord(identifier), nil
			},
		}
	})

	newDriver := func() *sync.Driver {
		return sync.NewDriver(auth, queue, fetcher, sink, runs, 190)
	}

	It("performs zero fetch and write calls when every item is done", func() {
		queue.items = []sheets.WorkItem{
			{Row: 2, Number: "A", Status: sheets.StatusDone},
			{Row: 3, Number: "B", Status: sheets.StatusDone},
		}

		report, err := newDriver().Run(context.Background())
		Expect(err).To(BeNil())
		Expect(report.Total).To(Equal(0))
		Expect(fetcher.calls).To(BeEmpty())
		Expect(sink.appends).To(BeEmpty())
		Expect(auth.calls).To(Equal(0))
	})

	It("writes an accepted tender and marks the item done", func() {
		queue.items = []sheets.WorkItem{{Row: 2, Number: "0711200020925000018"}}
		fetcher.fetchFunc = func(_ context.Context, identifier string) (*sbis.Record, error) {
			return tenderRecord(identifier,
				sbis.Lot{Price: 100, Items: []sbis.Item{{Name: "Набор", Price: 100, Quantity: 1}}},
				sbis.Lot{Price: 200, Items: []sbis.Item{{Name: "Пакет", Price: 200, Quantity: 2}}},
			), nil
		}

		report, err := newDriver().Run(context.Background())
		Expect(err).To(BeNil())

		Expect(report.Written).To(Equal(1))
		Expect(sink.appends).To(HaveLen(1))
		Expect(sink.appends[0].summary[0]).To(Equal("0711200020925000018"))
		Expect(sink.appends[0].items).To(HaveLen(2), "one row per lot item")
		Expect(sink.statuses[2]).To(Equal(sheets.StatusDone))
	})

	It("marks a filtered auxiliary notice done without writing", func() {
		queue.items = []sheets.WorkItem{{Row: 2, Number: "ABC123_1"}}

		report, err := newDriver().Run(context.Background())
		Expect(err).To(BeNil())

		Expect(report.Filtered).To(Equal(1))
		Expect(sink.appends).To(BeEmpty())
		Expect(sink.statuses[2]).To(Equal(sheets.StatusDone))
	})

	It("does not append a duplicate summary row", func() {
		queue.items = []sheets.WorkItem{{Row: 2, Number: "X"}}
		sink.existing["X"] = true

		report, err := newDriver().Run(context.Background())
		Expect(err).To(BeNil())

		Expect(report.Duplicates).To(Equal(1))
		Expect(sink.appends).To(BeEmpty())
		Expect(sink.statuses[2]).To(Equal(sheets.StatusDone))
	})

	It("continues past a failing item and records the failure", func() {
		queue.items = []sheets.WorkItem{
			{Row: 2, Number: "BROKEN"},
			{Row: 3, Number: "GOOD"},
		}
		fetcher.fetchFunc = func(_ context.Context, identifier string) (*sbis.Record, error) {
			if identifier == "BROKEN" {
				return nil, sbis.NewErrTransport(errors.New("connection reset"))
			}
			return tenderRecord(identifier), nil
		}

		report, err := newDriver().Run(context.Background())
		Expect(err).To(BeNil())

		Expect(report.Failed).To(Equal(1))
		Expect(report.Written).To(Equal(1))

		Expect(sink.statuses[2]).To(Equal(sheets.StatusError))
		Expect(sink.statuses[3]).To(Equal(sheets.StatusDone))

		Expect(sink.sentinels).To(HaveLen(1))
		Expect(sink.sentinels[0][0]).To(Equal("BROKEN"))

		Expect(runs.runs).To(HaveLen(1))
		Expect(runs.runs[0].Failures).To(HaveLen(1))
		Expect(runs.runs[0].Failures[0].Number).To(Equal("BROKEN"))
	})

	It("treats error status items as eligible again", func() {
		queue.items = []sheets.WorkItem{{Row: 2, Number: "X", Status: sheets.StatusError}}

		report, err := newDriver().Run(context.Background())
		Expect(err).To(BeNil())
		Expect(report.Processed).To(Equal(1))
	})

	It("caps a run at the batch ceiling", func() {
		for i := 0; i < 10; i++ {
			queue.items = append(queue.items, sheets.WorkItem{Row: i + 2, Number: fmt.Sprintf("T%d", i)})
		}

		driver := sync.NewDriver(auth, queue, fetcher, sink, runs, 3)
		report, err := driver.Run(context.Background())
		Expect(err).To(BeNil())

		Expect(report.Total).To(Equal(3))
		Expect(fetcher.calls).To(HaveLen(3))
	})

	It("fails the run when the work queue cannot be read", func() {
		queue.err = errors.New("quota exceeded")

		_, err := newDriver().Run(context.Background())
		Expect(err).ToNot(BeNil())
		Expect(fetcher.calls).To(BeEmpty())

		Expect(runs.runs).To(HaveLen(1))
		Expect(runs.runs[0].Fatal).To(ContainSubstring("quota exceeded"))
	})

	It("fails the run when the session cannot be acquired before the first item", func() {
		queue.items = []sheets.WorkItem{{Row: 2, Number: "X"}}
		auth.err = sbis.NewErrAuth("no sid in auth response")

		_, err := newDriver().Run(context.Background())
		Expect(err).ToNot(BeNil())
		Expect(fetcher.calls).To(BeEmpty())
	})

	It("rejects a second run while one is active", func() {
		queue.items = []sheets.WorkItem{{Row: 2, Number: "SLOW"}}

		started := make(chan struct{})
		release := make(chan struct{})
		fetcher.fetchFunc = func(_ context.Context, identifier string) (*sbis.Record, error) {
			close(started)
			<-release
			return tenderRecord(identifier), nil
		}

		driver := newDriver()

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			_, err := driver.Run(context.Background())
			Expect(err).To(BeNil())
		}()

		<-started
		_, err := driver.Run(context.Background())
		Expect(err).To(MatchError(sync.ErrRunInProgress))

		close(release)
		<-done
	})

	It("persists a run history record per batch", func() {
		queue.items = []sheets.WorkItem{
			{Row: 2, Number: "A"},
			{Row: 3, Number: "B_1"},
		}

		_, err := newDriver().Run(context.Background())
		Expect(err).To(BeNil())

		Expect(runs.runs).To(HaveLen(1))
		run := runs.runs[0]
		Expect(run.Total).To(Equal(2))
		Expect(run.Written).To(Equal(1))
		Expect(run.Filtered).To(Equal(1))
		Expect(run.FinishedAt).ToNot(BeZero())
	})
})
