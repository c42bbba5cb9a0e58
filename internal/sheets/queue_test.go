package sheets_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kirillslovesnov/tender-sync/internal/sheets"
)

// fakeValues is an in-memory Values implementation recording every call.
type fakeValues struct {
	ranges map[string][][]any

	appends []appendCall
	updates []updateCall

	getErr    error
	appendErr map[string]error
	updateErr error
}

type appendCall struct {
	writeRange string
	values     [][]any
}

type updateCall struct {
	cellRange string
	values    [][]any
}

func newFakeValues() *fakeValues {
	return &fakeValues{
		ranges:    map[string][][]any{},
		appendErr: map[string]error{},
	}
}

func (f *fakeValues) Get(_ context.Context, readRange string) ([][]any, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.ranges[readRange], nil
}

func (f *fakeValues) Append(_ context.Context, writeRange string, values [][]any) error {
	if err := f.appendErr[writeRange]; err != nil {
		return err
	}
	f.appends = append(f.appends, appendCall{writeRange: writeRange, values: values})
	return nil
}

func (f *fakeValues) Update(_ context.Context, cellRange string, values [][]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, updateCall{cellRange: cellRange, values: values})
	return nil
}

var _ = Describe("status normalization", func() {
	It("maps locale-specific markers to the closed set", func() {
		Expect(sheets.ParseStatus("Готово")).To(Equal(sheets.StatusDone))
		Expect(sheets.ParseStatus("  готово ")).To(Equal(sheets.StatusDone))
		Expect(sheets.ParseStatus("done")).To(Equal(sheets.StatusDone))
		Expect(sheets.ParseStatus("ОШИБКА")).To(Equal(sheets.StatusError))
		Expect(sheets.ParseStatus("error")).To(Equal(sheets.StatusError))
		Expect(sheets.ParseStatus("")).To(Equal(sheets.StatusUnprocessed))
		Expect(sheets.ParseStatus("в работе")).To(Equal(sheets.StatusUnprocessed))
	})

	It("writes back localized markers", func() {
		Expect(sheets.StatusDone.Marker()).To(Equal("Готово"))
		Expect(sheets.StatusError.Marker()).To(Equal("Ошибка"))
		Expect(sheets.StatusUnprocessed.Marker()).To(Equal(""))
	})
})

var _ = Describe("worklist queue", func() {
	var (
		values *fakeValues
		queue  *sheets.Queue
	)

	BeforeEach(func() {
		values = newFakeValues()
		queue = sheets.NewQueue(values, "Worklist")
	})

	It("loads items with sheet row positions", func() {
		values.ranges["Worklist!A:B"] = [][]any{
			{"Номер", "Статус"},
			{"0711200020925000018", ""},
			{"0711200020925000019", "Готово"},
			{"0711200020925000020", "Ошибка"},
		}

		items, err := queue.Load(context.Background())
		Expect(err).To(BeNil())
		Expect(items).To(HaveLen(3))

		Expect(items[0].Row).To(Equal(2))
		Expect(items[0].Number).To(Equal("0711200020925000018"))
		Expect(items[0].Status).To(Equal(sheets.StatusUnprocessed))

		Expect(items[1].Status).To(Equal(sheets.StatusDone))
		Expect(items[2].Status).To(Equal(sheets.StatusError))
	})

	It("drops rows with an empty identifier", func() {
		values.ranges["Worklist!A:B"] = [][]any{
			{"Номер", "Статус"},
			{"", "Готово"},
			{"   ", ""},
			{"0711200020925000018", ""},
		}

		items, err := queue.Load(context.Background())
		Expect(err).To(BeNil())
		Expect(items).To(HaveLen(1))
		Expect(items[0].Row).To(Equal(4), "row position is preserved even when earlier rows are dropped")
	})

	It("trims identifiers", func() {
		values.ranges["Worklist!A:B"] = [][]any{
			{"Номер"},
			{" 0711200020925000018 "},
		}

		items, err := queue.Load(context.Background())
		Expect(err).To(BeNil())
		Expect(items[0].Number).To(Equal("0711200020925000018"))
	})

	It("propagates read failures", func() {
		values.getErr = errors.New("quota exceeded")

		_, err := queue.Load(context.Background())
		Expect(err).ToNot(BeNil())
		Expect(fmt.Sprint(err)).To(ContainSubstring("quota exceeded"))
	})
})
