package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/calcengine/internal/params"
)

// October has a neutral seasonal factor.
var fixedNow = time.Date(2024, time.October, 10, 10, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		Now:   func() time.Time { return fixedNow },
		NewID: func() string { return "calc-test" },
	}
}

func optionsAt(now time.Time) Options {
	opts := testOptions()
	opts.Now = func() time.Time { return now }
	return opts
}

func item(price string, class Classification) *Item {
	return &Item{
		ID:             "item-1",
		UnitPrice:      decimal.RequireFromString(price),
		Classification: class,
		Active:         true,
	}
}

func ptr(f float64) *float64 { return &f }

func moneyEqual(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s = %s, want %s", name, got.StringFixed(2), want)
	}
}

func mustCalculate(t *testing.T, c Calculator, it *Item, qty int, bag params.Bag) *Result {
	t.Helper()
	res, err := c.Calculate(context.Background(), it, qty, bag)
	if err != nil {
		t.Fatalf("%s Calculate error: %v", c.Name(), err)
	}
	if err := res.Validate(); err != nil {
		t.Fatalf("%s result invariants: %v", c.Name(), err)
	}
	return res
}
