package domain

import (
	"encoding/json"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// UnknownMerchant is assigned to records no vendor rule could extract.
const UnknownMerchant = "Unknown"

// RawRecord is one line of receipt text as it was ingested.
type RawRecord struct {
	ID   string `json:"id"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// NullString is a string that may be absent. Absent and empty are different values.
type NullString struct {
	Value string
	Valid bool
}

// NewNullString returns a present value.
func NewNullString(s string) NullString {
	return NullString{Value: s, Valid: true}
}

func (n NullString) String() string {
	if !n.Valid {
		return ""
	}
	return n.Value
}

func (n NullString) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// NullDate is a calendar date that may be absent.
type NullDate struct {
	Date  civil.Date
	Valid bool
}

// NewNullDate returns a present date.
func NewNullDate(d civil.Date) NullDate {
	return NullDate{Date: d, Valid: true}
}

// String renders the date as YYYY-MM-DD, or "" when absent.
func (n NullDate) String() string {
	if !n.Valid {
		return ""
	}
	return n.Date.String()
}

func (n NullDate) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Date.String())
}

// ParsedRecord holds the raw field text a vendor rule extracted from a RawRecord.
type ParsedRecord struct {
	RecordID  string     `json:"record_id"`
	Merchant  string     `json:"merchant"`
	OrderID   NullString `json:"order_id"`
	AmountRaw NullString `json:"amount_raw"`
	DateRaw   NullString `json:"date_raw"`
}

// IsUnknown reports whether no vendor rule matched.
func (p ParsedRecord) IsUnknown() bool {
	return p.Merchant == UnknownMerchant
}

// NormalizedRecord is a ParsedRecord with canonical merchant, numeric amount and calendar date.
type NormalizedRecord struct {
	RecordID string              `json:"record_id"`
	Merchant string              `json:"merchant"`
	OrderID  NullString          `json:"order_id"`
	Amount   decimal.NullDecimal `json:"amount"`
	Date     NullDate            `json:"transaction_date"`
}

// AsParsed renders the record back into its textual form.
func (n NormalizedRecord) AsParsed() ParsedRecord {
	p := ParsedRecord{
		RecordID: n.RecordID,
		Merchant: n.Merchant,
		OrderID:  n.OrderID,
	}
	if n.Amount.Valid {
		places := int32(0)
		if exp := n.Amount.Decimal.Exponent(); exp < 0 {
			places = -exp
		}
		p.AmountRaw = NewNullString(n.Amount.Decimal.StringFixed(places))
	}
	if n.Date.Valid {
		p.DateRaw = NewNullString(n.Date.String())
	}
	return p
}

// QAReason explains why a record failed validation, or OK.
type QAReason string

const (
	ReasonOK              QAReason = "OK"
	ReasonInvalidDate     QAReason = "Invalid Date"
	ReasonMissingAmount   QAReason = "Missing Amount"
	ReasonNegativeAmount  QAReason = "Negative Amount"
	ReasonAmountTooHigh   QAReason = "Amount Too High"
	ReasonUnknownMerchant QAReason = "Unknown Merchant"
)

// QAReasons lists every reason in validation priority order, OK last.
var QAReasons = []QAReason{
	ReasonInvalidDate,
	ReasonMissingAmount,
	ReasonNegativeAmount,
	ReasonAmountTooHigh,
	ReasonUnknownMerchant,
	ReasonOK,
}

// QAResult is the outcome of validating one NormalizedRecord.
type QAResult struct {
	Valid  bool     `json:"valid"`
	Reason QAReason `json:"qa_reason"`
}

// NewQAResult builds a result whose Valid flag agrees with the reason.
func NewQAResult(reason QAReason) QAResult {
	return QAResult{Valid: reason == ReasonOK, Reason: reason}
}

// CleanedReceipt is one row of the cleaned receipts table.
type CleanedReceipt struct {
	NormalizedRecord
	QAResult
}
