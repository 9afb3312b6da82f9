package receipt

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"receipt-qa/internal/domain"
)

// DefaultAliases maps raw merchant labels to their canonical display names.
func DefaultAliases() map[string]string {
	return map[string]string{
		"Amazon.in":      "Amazon",
		"Flipkart India": "Flipkart",
	}
}

// Day-first layouts are tried before the month-first fallback. Year-first is
// never ambiguous so ISO dates go first.
var (
	dayFirstLayouts = []string{
		"2006-1-2",
		"2-1-2006",
		"2-1-06",
		"2-Jan-2006",
		"2-January-2006",
		"2-Jan-06",
		"2 Jan 2006",
		"2 January 2006",
		"2 Jan 06",
		"Jan 2 2006",
		"January 2 2006",
		"Jan-2-2006",
		"20060102",
	}
	monthFirstLayouts = []string{
		"1-2-2006",
		"1-2-06",
	}
)

// Normalizer canonicalizes merchant names, amounts and dates.
type Normalizer struct {
	aliases map[string]string
}

// NewNormalizer creates a normalizer with its own copy of aliases.
func NewNormalizer(aliases map[string]string) *Normalizer {
	own := make(map[string]string, len(aliases))
	for k, v := range aliases {
		own[k] = v
	}
	return &Normalizer{aliases: own}
}

// Normalize converts a parsed record. Amounts and dates that cannot be read
// are left absent for the validator to report.
func (n *Normalizer) Normalize(parsed domain.ParsedRecord) domain.NormalizedRecord {
	return domain.NormalizedRecord{
		RecordID: parsed.RecordID,
		Merchant: n.Merchant(parsed.Merchant),
		OrderID:  parsed.OrderID,
		Amount:   NormalizeAmount(parsed.AmountRaw),
		Date:     NormalizeDate(parsed.DateRaw),
	}
}

// Merchant resolves an alias, or returns name unchanged.
func (n *Normalizer) Merchant(name string) string {
	if canonical, ok := n.aliases[name]; ok {
		return canonical
	}
	return name
}

// NormalizeAmount strips thousands separators and reads the rest as a decimal.
func NormalizeAmount(raw domain.NullString) decimal.NullDecimal {
	if !raw.Valid {
		return decimal.NullDecimal{}
	}
	s := strings.TrimSpace(strings.ReplaceAll(raw.Value, ",", ""))
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// NormalizeDate unifies separators and reads the text as a calendar date,
// day before month when ambiguous.
func NormalizeDate(raw domain.NullString) domain.NullDate {
	if !raw.Valid {
		return domain.NullDate{}
	}
	s := strings.ReplaceAll(raw.Value, "/", "-")
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, ",", " ")), " ")
	if s == "" {
		return domain.NullDate{}
	}
	if d, ok := parseDate(s, dayFirstLayouts); ok {
		return domain.NewNullDate(d)
	}
	if d, ok := parseDate(s, monthFirstLayouts); ok {
		return domain.NewNullDate(d)
	}
	return domain.NullDate{}
}

func parseDate(s string, layouts []string) (civil.Date, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}
