package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks the lifecycle of a calculation result.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Step is one audit-log entry describing the state after a mutation.
type Step struct {
	Number      int             `json:"stepNumber"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	Formula     string          `json:"formula,omitempty"`
}

// Adjustment is a named, signed delta applied to the running base amount.
type Adjustment struct {
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Additive    bool            `json:"isAdditive"`
	Reason      string          `json:"reason"`
}

// Result is the itemized outcome of one calculation. It is mutated only by
// the calculator that created it and must be treated as immutable once returned.
type Result struct {
	ID         string    `json:"calculationId"`
	ItemID     string    `json:"itemId"`
	Calculator string    `json:"calculator"`
	Version    string    `json:"version"`
	Quantity   int       `json:"quantity"`
	Timestamp  time.Time `json:"timestamp"`

	BaseAmount         decimal.Decimal `json:"baseAmount"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	TaxAmount          decimal.Decimal `json:"taxAmount"`
	TaxPercentage      decimal.Decimal `json:"taxPercentage"`
	Total              decimal.Decimal `json:"total"`

	Steps          []Step         `json:"steps"`
	Adjustments    []Adjustment   `json:"adjustments"`
	Metadata       map[string]any `json:"metadata"`
	Status         Status         `json:"status"`
	ProcessingTime time.Duration  `json:"processingTimeNs"`
}

// HasAdjustment reports whether an adjustment of the given type was recorded.
func (r *Result) HasAdjustment(typ string) bool {
	_, ok := r.Adjustment(typ)
	return ok
}

// Adjustment returns the first adjustment of the given type.
func (r *Result) Adjustment(typ string) (Adjustment, bool) {
	for _, adj := range r.Adjustments {
		if adj.Type == typ {
			return adj, true
		}
	}
	return Adjustment{}, false
}

// Validate checks the invariants every completed result must satisfy.
func (r *Result) Validate() error {
	var errs []error
	if r.Status != StatusCompleted {
		errs = append(errs, fmt.Errorf("status is %s", r.Status))
	}
	if r.Quantity <= 0 {
		errs = append(errs, fmt.Errorf("quantity %d is not positive", r.Quantity))
	}
	if len(r.Steps) < 2 {
		errs = append(errs, fmt.Errorf("expected at least 2 steps, got %d", len(r.Steps)))
	}
	for i, s := range r.Steps {
		if s.Number != i+1 {
			errs = append(errs, fmt.Errorf("step %d has number %d", i+1, s.Number))
			break
		}
	}
	want := r.Subtotal.Sub(r.DiscountAmount).Add(r.TaxAmount)
	if !r.Total.Equal(want) {
		errs = append(errs, fmt.Errorf("total %s != subtotal - discount + tax (%s)", r.Total, want))
	}
	return errors.Join(errs...)
}
