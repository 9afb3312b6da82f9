package receipt

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"receipt-qa/internal/domain"
)

// MatchMode controls what happens when the first vendor whose key occurs in
// the text does not match its own pattern.
type MatchMode int

const (
	// MatchFirstKey tries only the first vendor whose key occurs in the text.
	// A failing pattern makes the record Unknown even if a later vendor would match.
	MatchFirstKey MatchMode = iota
	// MatchFallthrough tries every vendor whose key occurs in the text, in
	// registry order, until one pattern matches.
	MatchFallthrough
)

func (m MatchMode) String() string {
	if m == MatchFallthrough {
		return "fallthrough"
	}
	return "first-key"
}

// ParserOptions tunes a Parser. The zero value is MatchFirstKey with DefaultTripYear.
type ParserOptions struct {
	Mode     MatchMode
	TripYear int
}

// Parser extracts receipt fields from raw text using a Registry.
type Parser struct {
	registry *Registry
	mode     MatchMode
	tripYear int
	display  map[string]string
}

// NewParser creates a parser over registry.
func NewParser(registry *Registry, opts ParserOptions) *Parser {
	if opts.TripYear == 0 {
		opts.TripYear = DefaultTripYear
	}
	caser := cases.Title(language.Und)
	display := make(map[string]string, registry.Len())
	for _, r := range registry.Rules() {
		display[r.Key] = caser.String(r.Key)
	}
	return &Parser{
		registry: registry,
		mode:     opts.Mode,
		tripYear: opts.TripYear,
		display:  display,
	}
}

// Parse extracts fields from one raw record. It never fails: text no rule
// can extract becomes an Unknown record.
func (p *Parser) Parse(raw domain.RawRecord) domain.ParsedRecord {
	parsed := p.ParseText(raw.Text)
	parsed.RecordID = raw.ID
	return parsed
}

// ParseText is Parse without record identity.
func (p *Parser) ParseText(text string) domain.ParsedRecord {
	lower := strings.ToLower(text)
	for _, rule := range p.registry.rules {
		if !strings.Contains(lower, rule.Key) {
			continue
		}
		if groups, ok := capture(rule, text); ok {
			f := layouts[rule.Layout](groups, p.tripYear)
			return domain.ParsedRecord{
				Merchant:  p.display[rule.Key],
				OrderID:   f.OrderID,
				AmountRaw: f.Amount,
				DateRaw:   f.Date,
			}
		}
		if p.mode == MatchFirstKey {
			break
		}
	}
	return domain.ParsedRecord{Merchant: domain.UnknownMerchant}
}

// capture runs the rule's pattern on the original-case text. Groups that did
// not participate in the match are absent.
func capture(rule VendorRule, text string) ([]domain.NullString, bool) {
	loc := rule.Pattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, false
	}
	groups := make([]domain.NullString, rule.Pattern.NumSubexp())
	for i := range groups {
		start, end := loc[2*(i+1)], loc[2*(i+1)+1]
		if start < 0 {
			continue
		}
		groups[i] = domain.NewNullString(text[start:end])
	}
	return groups, true
}
