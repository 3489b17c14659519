package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Simplici0/calcengine/internal/params"
)

// phase is one ordered step of a calculator pipeline.
type phase struct {
	name  string
	apply func(l *ledger)
}

// ledger owns the Result for a single invocation. It is never shared between
// calculations and never touched after finalize.
type ledger struct {
	res    *Result
	item   *Item
	qty    int
	params params.Accessor
	tables Tables
	logger *zap.Logger
	now    func() time.Time
	start  time.Time
}

func openLedger(e env, c Calculator, item *Item, quantity int, acc params.Accessor, logger *zap.Logger) *ledger {
	start := e.now()
	l := &ledger{
		res: &Result{
			ID:         e.newID(),
			ItemID:     item.ID,
			Calculator: c.Name(),
			Version:    c.Version(),
			Quantity:   quantity,
			Timestamp:  start.UTC(),
			Status:     StatusInProgress,
			Metadata:   map[string]any{},
		},
		item:   item,
		qty:    quantity,
		params: acc,
		tables: e.tables,
		logger: logger,
		now:    e.now,
		start:  start,
	}
	base := roundCurrency(item.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))))
	l.res.BaseAmount = base
	l.step("Base amount", base, fmt.Sprintf("%s × %d", item.UnitPrice.String(), quantity))
	return l
}

// run executes phases in order, checking for cancellation before each one.
func (l *ledger) run(ctx context.Context, phases []phase) (*Result, error) {
	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			l.res.Status = StatusFailed
			l.logger.Debug("calculation cancelled", zap.String("phase", p.name))
			return nil, fmt.Errorf("%w before phase %s: %w", ErrCancelled, p.name, err)
		}
		p.apply(l)
	}
	return l.res, nil
}

func (l *ledger) base() decimal.Decimal {
	return l.res.BaseAmount
}

func (l *ledger) step(description string, value decimal.Decimal, formula string) {
	l.res.Steps = append(l.res.Steps, Step{
		Number:      len(l.res.Steps) + 1,
		Description: description,
		Value:       value,
		Formula:     formula,
	})
}

func (l *ledger) meta(key string, value any) {
	l.res.Metadata[key] = value
}

// adjust applies a signed delta to the base amount. Deltas that round to zero
// are not recorded.
func (l *ledger) adjust(typ, description, reason string, delta decimal.Decimal, formula string) bool {
	delta = roundCurrency(delta)
	if delta.IsZero() {
		return false
	}
	l.res.BaseAmount = l.res.BaseAmount.Add(delta)
	l.res.Adjustments = append(l.res.Adjustments, Adjustment{
		Type:        typ,
		Description: description,
		Amount:      delta,
		Additive:    delta.IsPositive(),
		Reason:      reason,
	})
	l.step(description, l.res.BaseAmount, formula)
	return true
}

// maxFactor caps any single multiplicative adjustment.
const maxFactor = 1000.0

// boundFactor keeps a composed multiplier inside [0, maxFactor]. NaN becomes
// the neutral 1.
func (l *ledger) boundFactor(name string, factor float64) float64 {
	switch {
	case math.IsNaN(factor):
		l.logger.Warn("non-numeric factor replaced", zap.String("factor", name))
		return 1
	case factor < 0:
		l.logger.Warn("negative factor clamped", zap.String("factor", name), zap.Float64("value", factor))
		return 0
	case factor > maxFactor:
		l.logger.Warn("factor clamped", zap.String("factor", name), zap.Float64("value", factor), zap.Float64("max", maxFactor))
		return maxFactor
	}
	return factor
}

// applyFactor multiplies the base amount by factor, bounded by boundFactor.
func (l *ledger) applyFactor(typ, description, reason string, factor float64) bool {
	f := decimal.NewFromFloat(l.boundFactor(typ, factor))
	base := l.base()
	delta := base.Mul(f).Sub(base)
	return l.adjust(typ, description, reason, delta, fmt.Sprintf("%s × %s", base.StringFixed(2), f.String()))
}

// applyPercent adds (sign > 0) or removes (sign < 0) pct percent of the base amount.
func (l *ledger) applyPercent(typ, description, reason string, pct float64, sign int) bool {
	p := decimal.NewFromFloat(pct)
	base := l.base()
	delta := base.Mul(p).Div(hundred)
	op := "+"
	if sign < 0 {
		delta = delta.Neg()
		op = "-"
	}
	return l.adjust(typ, description, reason, delta, fmt.Sprintf("%s %s %s%%", base.StringFixed(2), op, p.String()))
}

func (l *ledger) closeSubtotal() {
	l.res.Subtotal = roundCurrency(l.res.BaseAmount)
	l.step("Subtotal", l.res.Subtotal, "")
}

// applyDiscount takes pct percent (clamped to [0, 100]) off the subtotal.
func (l *ledger) applyDiscount(pct decimal.Decimal) {
	if pct.IsNegative() {
		l.logger.Warn("negative discount percentage ignored", zap.String("percentage", pct.String()))
		pct = decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	l.res.DiscountPercentage = pct
	if pct.IsZero() {
		l.res.DiscountAmount = decimal.Zero
		return
	}
	l.res.DiscountAmount = roundCurrency(l.res.Subtotal.Mul(pct).Div(hundred))
	l.step(fmt.Sprintf("Discount %s%%", pct.String()), l.res.Subtotal.Sub(l.res.DiscountAmount),
		fmt.Sprintf("%s - %s", l.res.Subtotal.StringFixed(2), l.res.DiscountAmount.StringFixed(2)))
}

// applyTax charges pct percent on the discounted subtotal.
func (l *ledger) applyTax(pct decimal.Decimal) {
	if pct.IsNegative() {
		l.logger.Warn("negative tax percentage ignored", zap.String("percentage", pct.String()))
		pct = decimal.Zero
	}
	l.res.TaxPercentage = pct
	if pct.IsZero() {
		l.res.TaxAmount = decimal.Zero
		return
	}
	taxable := l.res.Subtotal.Sub(l.res.DiscountAmount)
	l.res.TaxAmount = roundCurrency(taxable.Mul(pct).Div(hundred))
	l.step(fmt.Sprintf("Tax %s%%", pct.String()), l.res.TaxAmount,
		fmt.Sprintf("%s × %s%%", taxable.StringFixed(2), pct.String()))
}

func (l *ledger) finalize() {
	r := l.res
	r.Total = r.Subtotal.Sub(r.DiscountAmount).Add(r.TaxAmount)
	r.Status = StatusCompleted
	r.ProcessingTime = l.now().Sub(l.start)
	l.step("Final total", r.Total, "subtotal - discount + tax")
}

// settle closes the subtotal, applies the optional discountPercentage and
// taxPercentage parameters and finalizes.
func (l *ledger) settle() {
	l.closeSubtotal()
	l.applyDiscount(l.params.Decimal(ParamDiscountPercentage, decimal.Zero))
	l.applyTax(l.params.Decimal(ParamTaxPercentage, decimal.Zero))
	l.finalize()
}

var settlePhase = phase{name: "settlement", apply: (*ledger).settle}
