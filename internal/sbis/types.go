package sbis

import "encoding/json"

// Record is the raw GetPurchase response. Raw keeps the undecoded body so the
// on-demand path can return the vendor payload untouched.
type Record struct {
	JSONRPC string       `json:"jsonrpc"`
	Result  SearchResult `json:"result"`

	Raw json.RawMessage `json:"-"`
}

type SearchResult struct {
	Tenders []Tender `json:"tenders"`
}

// Tender returns the single tender carried by the record, or nil.
func (r *Record) Tender() *Tender {
	if r == nil || len(r.Result.Tenders) == 0 {
		return nil
	}
	return &r.Result.Tenders[0]
}

type Tender struct {
	Number               string  `json:"number"`
	Name                 string  `json:"name"`
	Status               string  `json:"status"`
	Type                 string  `json:"type"`
	Region               string  `json:"region"`
	InitiatorName        string  `json:"initiator_name"`
	OrganizerName        string  `json:"organizer_name"`
	Price                float64 `json:"price"`
	PublishDate          string  `json:"publish_date"`
	RequestReceivingDate string  `json:"request_receiving_date"`
	TenderDate           string  `json:"tender_date"`
	WinPrice             float64 `json:"win_price"`
	WinnerName           string  `json:"winner_name"`
	WinnerINN            string  `json:"winner_inn"`
	SMP                  string  `json:"smp"`
	TenderURL            string  `json:"tender_url"`
	Lots                 []Lot   `json:"lots"`
}

type Lot struct {
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	DeliveryTerm   string  `json:"delivery_term"`
	ContractNumber string  `json:"contract_number"`
	Items          []Item  `json:"items"`
}

type Item struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	KtruCode string  `json:"ktru_code"`
	Okpd2    []Okpd2 `json:"okpd2"`
}

type Okpd2 struct {
	Code string `json:"code"`
}
