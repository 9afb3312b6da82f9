package receipt

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"receipt-qa/internal/domain"
)

// ErrInvalidRule is returned when a vendor rule cannot be registered.
var ErrInvalidRule = errors.New("invalid vendor rule")

// DefaultTripYear is appended to trip dates, which carry no year of their own.
const DefaultTripYear = 2025

// Vendor keys understood by the default registry.
const (
	VendorAmazon   = "amazon"
	VendorFlipkart = "flipkart"
	VendorSwiggy   = "swiggy"
	VendorUber     = "uber"
)

// Layout identifies how a vendor's capture groups map onto receipt fields.
type Layout int

const (
	// LayoutGeneric reads order id, amount and date from groups 1, 2 and 3.
	LayoutGeneric Layout = iota
	// LayoutTrip reads the trip description (the date, without year) from group 1
	// and the cost from group 2. Trips carry no order id.
	LayoutTrip
)

func (l Layout) String() string {
	switch l {
	case LayoutGeneric:
		return "generic"
	case LayoutTrip:
		return "trip"
	default:
		return "Layout(" + strconv.Itoa(int(l)) + ")"
	}
}

// Fields is the result of applying a Layout to a set of captures.
type Fields struct {
	OrderID domain.NullString
	Amount  domain.NullString
	Date    domain.NullString
}

// LayoutFunc maps captures (index 0 is group 1) onto fields.
type LayoutFunc func(groups []domain.NullString, tripYear int) Fields

var layouts = map[Layout]LayoutFunc{
	LayoutGeneric: genericLayout,
	LayoutTrip:    tripLayout,
}

func genericLayout(groups []domain.NullString, _ int) Fields {
	return Fields{
		OrderID: group(groups, 1),
		Amount:  group(groups, 2),
		Date:    group(groups, 3),
	}
}

func tripLayout(groups []domain.NullString, tripYear int) Fields {
	f := Fields{Amount: group(groups, 2)}
	if desc := group(groups, 1); desc.Valid {
		f.Date = domain.NewNullString(strings.TrimSpace(desc.Value) + " " + strconv.Itoa(tripYear))
	}
	return f
}

func group(groups []domain.NullString, n int) domain.NullString {
	if n < 1 || n > len(groups) {
		return domain.NullString{}
	}
	return groups[n-1]
}

// VendorRule routes receipt text to a pattern by a lowercase substring key.
type VendorRule struct {
	Key     string
	Pattern *regexp.Regexp
	Layout  Layout
}

// NewVendorRule compiles pattern case-insensitively.
func NewVendorRule(key, pattern string, layout Layout) (VendorRule, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return VendorRule{}, fmt.Errorf("%w: vendor %q: %v", ErrInvalidRule, key, err)
	}
	return VendorRule{Key: key, Pattern: re, Layout: layout}, nil
}

func mustVendorRule(key, pattern string, layout Layout) VendorRule {
	r, err := NewVendorRule(key, pattern, layout)
	if err != nil {
		panic(err)
	}
	return r
}

// Registry is an ordered, read-only set of vendor rules.
// The order decides which vendor wins when several keys occur in the same text.
type Registry struct {
	rules []VendorRule
	index map[string]int
}

// NewRegistry validates rules and returns a registry holding a copy of them.
func NewRegistry(rules ...VendorRule) (*Registry, error) {
	reg := &Registry{
		rules: make([]VendorRule, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}
	for _, r := range rules {
		switch {
		case r.Key == "":
			return nil, fmt.Errorf("%w: empty vendor key", ErrInvalidRule)
		case r.Key != strings.ToLower(r.Key):
			return nil, fmt.Errorf("%w: vendor key %q must be lowercase", ErrInvalidRule, r.Key)
		case r.Pattern == nil:
			return nil, fmt.Errorf("%w: vendor %q has no pattern", ErrInvalidRule, r.Key)
		}
		if _, ok := layouts[r.Layout]; !ok {
			return nil, fmt.Errorf("%w: vendor %q has unknown layout %s", ErrInvalidRule, r.Key, r.Layout)
		}
		if _, dup := reg.lookup(r.Key); dup {
			return nil, fmt.Errorf("%w: duplicate vendor key %q", ErrInvalidRule, r.Key)
		}
		reg.index[r.Key] = len(reg.rules)
		reg.rules = append(reg.rules, r)
	}
	return reg, nil
}

// DefaultRegistry returns the built-in marketplace, food-delivery and ride-hailing rules.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(
		mustVendorRule(VendorAmazon, `Order #([0-9-]+).*?Rs\.?\s*([0-9,]+).*?on\s+([0-9A-Za-z/-]+)`, LayoutGeneric),
		mustVendorRule(VendorFlipkart, `id\s*([A-Z0-9-]+).*?sent\s*([0-9]+).*?Date:\s*([0-9/]+)`, LayoutGeneric),
		mustVendorRule(VendorSwiggy, `order\s*([0-9]+).*?amount\s*([-]?[0-9]+).*?completed\s*([0-9A-Za-z-]+)`, LayoutGeneric),
		mustVendorRule(VendorUber, `Trip on\s+(.*?)\s+cost\s+([0-9]+)`, LayoutTrip),
	)
	if err != nil {
		panic(err)
	}
	return reg
}

// Rules returns the rules in registry order.
func (r *Registry) Rules() []VendorRule {
	out := make([]VendorRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// lookup returns the rule registered under key.
func (r *Registry) lookup(key string) (VendorRule, bool) {
	i, ok := r.index[key]
	if !ok {
		return VendorRule{}, false
	}
	return r.rules[i], true
}

// Len returns the number of registered vendors.
func (r *Registry) Len() int {
	return len(r.rules)
}
