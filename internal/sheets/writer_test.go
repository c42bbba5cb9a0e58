package sheets_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kirillslovesnov/tender-sync/internal/sheets"
)

var _ = Describe("sink writer", func() {
	var (
		values *fakeValues
		writer *sheets.Writer
	)

	summary := []any{"0711200020925000018", "Поставка наборов"}
	items := [][]any{{"", "", "→ Набор"}, {"", "", "→ Пакет"}}

	BeforeEach(func() {
		values = newFakeValues()
		writer = sheets.NewWriter(values, sheets.WriterConfig{
			SummarySheet:    "Tenders",
			NoProductsSheet: "Tenders (no products)",
			WorklistSheet:   "Worklist",
			WriteDelay:      time.Millisecond,
		})
	})

	Describe("Exists", func() {
		It("matches on the trimmed key column", func() {
			values.ranges["Tenders!A:A"] = [][]any{
				{"Номер"},
				{" 0711200020925000018 "},
			}

			exists, err := writer.Exists(context.Background(), "0711200020925000018")
			Expect(err).To(BeNil())
			Expect(exists).To(BeTrue())

			exists, err = writer.Exists(context.Background(), "0711200020925000019")
			Expect(err).To(BeNil())
			Expect(exists).To(BeFalse())
		})
	})

	Describe("AppendSummaryAndItems", func() {
		It("writes summary plus items to the primary sheet and summary only to the secondary", func() {
			err := writer.AppendSummaryAndItems(context.Background(), summary, items)
			Expect(err).To(BeNil())

			Expect(values.appends).To(HaveLen(2))
			Expect(values.appends[0].writeRange).To(Equal("Tenders!A:AA"))
			Expect(values.appends[0].values).To(HaveLen(3))
			Expect(values.appends[0].values[0]).To(Equal(summary))

			Expect(values.appends[1].writeRange).To(Equal("Tenders (no products)!A:AA"))
			Expect(values.appends[1].values).To(Equal([][]any{summary}))
		})

		It("fails the item when the primary destination write fails", func() {
			values.appendErr["Tenders!A:AA"] = errors.New("backend error")

			err := writer.AppendSummaryAndItems(context.Background(), summary, items)
			Expect(err).ToNot(BeNil())
			Expect(err).To(BeAssignableToTypeOf(&sheets.ErrSinkWrite{}))
			Expect(values.appends).To(BeEmpty())
		})

		It("tolerates a secondary destination failure once the primary write landed", func() {
			values.appendErr["Tenders (no products)!A:AA"] = errors.New("backend error")

			err := writer.AppendSummaryAndItems(context.Background(), summary, items)
			Expect(err).To(BeNil())
			Expect(values.appends).To(HaveLen(1))
			Expect(values.appends[0].writeRange).To(Equal("Tenders!A:AA"))
		})
	})

	Describe("AppendErrorRows", func() {
		sentinel := []any{"0711200020925000018", "ОШИБКА"}

		It("writes the sentinel row to both destinations", func() {
			err := writer.AppendErrorRows(context.Background(), sentinel)
			Expect(err).To(BeNil())
			Expect(values.appends).To(HaveLen(2))
		})

		It("still attempts the second destination when the first fails", func() {
			values.appendErr["Tenders!A:AA"] = errors.New("backend error")

			err := writer.AppendErrorRows(context.Background(), sentinel)
			Expect(err).ToNot(BeNil())
			Expect(values.appends).To(HaveLen(1))
			Expect(values.appends[0].writeRange).To(Equal("Tenders (no products)!A:AA"))
		})
	})

	Describe("UpdateStatus", func() {
		It("targets the status cell of the given row", func() {
			err := writer.UpdateStatus(context.Background(), 7, sheets.StatusDone)
			Expect(err).To(BeNil())

			Expect(values.updates).To(HaveLen(1))
			Expect(values.updates[0].cellRange).To(Equal("Worklist!B7"))
			Expect(values.updates[0].values).To(Equal([][]any{{"Готово"}}))
		})
	})

	It("spaces consecutive write calls by the configured delay", func() {
		writer = sheets.NewWriter(values, sheets.WriterConfig{
			SummarySheet:    "Tenders",
			NoProductsSheet: "Tenders (no products)",
			WorklistSheet:   "Worklist",
			WriteDelay:      30 * time.Millisecond,
		})

		start := time.Now()
		Expect(writer.AppendErrorRows(context.Background(), []any{"x"})).To(BeNil())
		Expect(time.Since(start)).To(BeNumerically(">=", 30*time.Millisecond),
			"the second write must wait out the delay")
	})
})
