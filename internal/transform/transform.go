// Package transform maps raw SBIS tender records into the sheet row layout.
// It is purely computational: no network or storage access.
package transform

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kirillslovesnov/tender-sync/internal/sbis"
)

// SummaryColumns is the fixed width of the destination row schema.
const SummaryColumns = 27

// errorMarker replaces every data column of a sentinel row.
const errorMarker = "ОШИБКА"

// Auxiliary notices carry the base tender number plus a numeric suffix.
// Writing them would duplicate the base tender in the sink.
var auxiliaryNoticePattern = regexp.MustCompile(`_\d+$`)

// Result is the outcome of transforming one record. A filtered record has
// Accepted=false and no rows.
type Result struct {
	Accepted bool
	Summary  []any
	Items    [][]any
}

// Transform builds the summary row and one row per lot item from a fetched
// record. Deterministic for a given input.
func Transform(record *sbis.Record) (Result, error) {
	tender := record.Tender()
	if tender == nil {
		return Result{}, sbis.NewErrMalformedRecord("no tender payload in response")
	}

	if auxiliaryNoticePattern.MatchString(tender.Number) {
		return Result{Accepted: false}, nil
	}

	summary := summaryRow(tender)

	var items [][]any
	for _, lot := range tender.Lots {
		for _, item := range lot.Items {
			items = append(items, itemRow(lot, item))
		}
	}

	return Result{Accepted: true, Summary: summary, Items: items}, nil
}

func summaryRow(tender *sbis.Tender) []any {
	var deliveryTerm, contractNumber string
	if len(tender.Lots) > 0 {
		deliveryTerm = tender.Lots[0].DeliveryTerm
		contractNumber = tender.Lots[0].ContractNumber
	}

	var link string
	if tender.TenderURL != "" {
		link = fmt.Sprintf(`=HYPERLINK("%s"; "Открыть в ЕИС")`, tender.TenderURL)
	}

	return []any{
		tender.Number,
		tender.Name,

		"", // Метка
		"", // Участник
		"", // Тип продукта

		tender.Status,
		tender.Type,
		tender.Region,
		tender.InitiatorName,
		tender.OrganizerName,
		tender.Price,
		NormalizeDate(tender.PublishDate),
		NormalizeDate(tender.RequestReceivingDate),
		NormalizeDate(tender.TenderDate),
		deliveryTerm,
		tender.WinPrice,
		tender.WinnerName,
		tender.WinnerINN,
		tender.SMP,
		contractNumber,
		link,
		"", "", "", "", "", "", // запас под доп. столбцы
	}
}

func itemRow(lot sbis.Lot, item sbis.Item) []any {
	var unitPrice any = ""
	if item.Quantity != 0 {
		unitPrice = item.Price / item.Quantity
	}

	var quantity any = ""
	if item.Quantity != 0 {
		quantity = item.Quantity
	}

	var lotPrice any = ""
	if lot.Price != 0 {
		lotPrice = lot.Price
	}

	var okpd2 string
	if len(item.Okpd2) > 0 {
		okpd2 = item.Okpd2[0].Code
	}

	row := make([]any, 0, SummaryColumns)
	for i := 0; i < SummaryColumns-6; i++ {
		row = append(row, "")
	}
	return append(row,
		"→ "+item.Name,
		unitPrice,
		quantity,
		lotPrice,
		item.KtruCode,
		okpd2,
	)
}

// ErrorRow builds the sentinel row written to both destinations when an item
// fails: the identifier survives, every other column carries the error marker.
func ErrorRow(number string) []any {
	row := make([]any, SummaryColumns)
	row[0] = number
	for i := 1; i < SummaryColumns; i++ {
		row[i] = errorMarker
	}
	return row
}

// isoLayouts cover the timestamp shapes the vendor emits; legacyLayouts cover
// the operator-entered DD.MM.YYYY form.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var legacyLayouts = []string{
	"02.01.2006 15:04:05",
	"02.01.2006 3:04:05",
	"02.01.2006",
}

// NormalizeDate renders a vendor date as YYYY-MM-DD. Values that match no
// known layout pass through unchanged; date formatting never fails an item.
func NormalizeDate(value string) string {
	if value == "" {
		return ""
	}

	iso := strings.Replace(value, " ", "T", 1)
	for _, layout := range isoLayouts {
		if parsed, err := time.Parse(layout, iso); err == nil {
			return parsed.Format("2006-01-02")
		}
	}

	for _, layout := range legacyLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format("2006-01-02")
		}
	}

	return value
}
