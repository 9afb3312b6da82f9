package receipt

import (
	"github.com/shopspring/decimal"

	"receipt-qa/internal/domain"
)

// MaxAmount is the smallest amount rejected as too high.
const MaxAmount = 10000

var maxAmount = decimal.NewFromInt(MaxAmount)

// rule reports whether rec fails a check.
type rule struct {
	reason domain.QAReason
	fails  func(rec domain.NormalizedRecord) bool
}

// Rules run in priority order; the first failure decides the reason.
var qaRules = []rule{
	{domain.ReasonInvalidDate, func(rec domain.NormalizedRecord) bool { return !rec.Date.Valid }},
	{domain.ReasonMissingAmount, func(rec domain.NormalizedRecord) bool { return !rec.Amount.Valid }},
	{domain.ReasonNegativeAmount, func(rec domain.NormalizedRecord) bool { return !rec.Amount.Decimal.IsPositive() }},
	{domain.ReasonAmountTooHigh, func(rec domain.NormalizedRecord) bool { return rec.Amount.Decimal.GreaterThanOrEqual(maxAmount) }},
	{domain.ReasonUnknownMerchant, func(rec domain.NormalizedRecord) bool { return rec.Merchant == domain.UnknownMerchant }},
}

// Validator applies the QA business rules to normalized records.
type Validator struct{}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns the first rule rec fails, or OK.
func (v *Validator) Validate(rec domain.NormalizedRecord) domain.QAResult {
	for _, r := range qaRules {
		if r.fails(rec) {
			return domain.NewQAResult(r.reason)
		}
	}
	return domain.NewQAResult(domain.ReasonOK)
}
