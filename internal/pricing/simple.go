package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/calcengine/internal/params"
)

const (
	defaultSecondaryMultiplier = 1.10
	defaultUtilityFactor       = 1.05
)

// single is a one-phase calculator sharing the ledger helpers.
type single struct {
	env     env
	name    string
	version string
	phases  []phase
}

func (s *single) Name() string    { return s.name }
func (s *single) Version() string { return s.version }

func (s *single) Calculate(ctx context.Context, item *Item, quantity int, bag params.Bag) (*Result, error) {
	l, err := s.env.begin(s, item, quantity, bag)
	if err != nil {
		return nil, err
	}
	return l.run(ctx, s.phases)
}

// NewDiscount builds a calculator that applies a progressive discount on the
// subtotal. An explicit discountPercentage parameter replaces the tier lookup.
func NewDiscount(opts Options) Calculator {
	return &single{
		env:     newEnv(opts),
		name:    "discount",
		version: "1.0.0",
		phases:  []phase{{name: "progressive_discount", apply: progressiveDiscount}},
	}
}

func progressiveDiscount(l *ledger) {
	l.closeSubtotal()
	f, _ := l.res.Subtotal.Float64()
	pct := decimal.NewFromFloat(l.tables.DiscountTiers.Lookup(f))
	pct = l.params.Decimal(ParamDiscountPercentage, pct)
	l.meta("discountTierPercentage", pct.String())
	l.applyDiscount(pct)
	l.applyTax(l.params.Decimal(ParamTaxPercentage, decimal.Zero))
	l.finalize()
}

// NewTax builds a calculator that applies a flat tax rate.
func NewTax(opts Options) Calculator {
	return &single{
		env:     newEnv(opts),
		name:    "tax",
		version: "1.0.0",
		phases:  []phase{{name: "flat_tax", apply: flatTax}},
	}
}

func flatTax(l *ledger) {
	l.closeSubtotal()
	l.applyDiscount(l.params.Decimal(ParamDiscountPercentage, decimal.Zero))
	pct := l.params.Decimal(ParamTaxPercentage, decimal.NewFromFloat(l.tables.DefaultTaxPercentage))
	l.applyTax(pct)
	l.finalize()
}

// NewSecondary builds a calculator that applies a flat secondary multiplier.
func NewSecondary(opts Options) Calculator {
	return newMultiplierCalculator(opts, "secondary", "SecondaryMultiplier", ParamSecondaryMultiplier, defaultSecondaryMultiplier)
}

// NewUtility builds a calculator that applies a flat utility factor.
func NewUtility(opts Options) Calculator {
	return newMultiplierCalculator(opts, "utility", "UtilityFactor", ParamUtilityFactor, defaultUtilityFactor)
}

func newMultiplierCalculator(opts Options, name, adjustment, key string, def float64) Calculator {
	apply := func(l *ledger) {
		factor := l.boundFactor(adjustment, nonNegative(l.params.Float(key, def), def))
		l.meta(key, factor)
		l.applyFactor(adjustment, fmt.Sprintf("%s multiplier", name), fmt.Sprintf("%s parameter", key), factor)
	}
	return &single{
		env:     newEnv(opts),
		name:    name,
		version: "1.0.0",
		phases:  []phase{{name: name, apply: apply}, settlePhase},
	}
}
