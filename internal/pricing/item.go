package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Classification is the product category that drives type multipliers and risk flags.
type Classification int

const (
	Standard Classification = iota
	Premium
	Custom
	Industrial
)

var classificationNames = [...]string{
	Standard:   "standard",
	Premium:    "premium",
	Custom:     "custom",
	Industrial: "industrial",
}

func (c Classification) String() string {
	if c < Standard || c > Industrial {
		return fmt.Sprintf("classification(%d)", int(c))
	}
	return classificationNames[c]
}

// ParseClassification accepts the lower- or mixed-case classification name.
func ParseClassification(s string) (Classification, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range classificationNames {
		if n == name {
			return Classification(i), nil
		}
	}
	return Standard, fmt.Errorf("unknown classification %q", s)
}

func (c Classification) MarshalText() ([]byte, error) {
	if c < Standard || c > Industrial {
		return nil, fmt.Errorf("unknown classification %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Classification) UnmarshalText(text []byte) error {
	parsed, err := ParseClassification(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Item is the priced product. It is read-only for the duration of a calculation.
type Item struct {
	ID             string            `json:"id"`
	Name           string            `json:"name,omitempty"`
	UnitPrice      decimal.Decimal   `json:"unitPrice"`
	Classification Classification    `json:"classification"`
	Length         *float64          `json:"length,omitempty"`
	Width          *float64          `json:"width,omitempty"`
	Height         *float64          `json:"height,omitempty"`
	Weight         *float64          `json:"weight,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	StockQuantity  int               `json:"stockQuantity"`
	ReorderLevel   int               `json:"reorderLevel"`
	Active         bool              `json:"active"`
}

// Volume returns length × width × height when all three dimensions are known.
func (it *Item) Volume() (float64, bool) {
	if it.Length == nil || it.Width == nil || it.Height == nil {
		return 0, false
	}
	return *it.Length * *it.Width * *it.Height, true
}

// BelowReorder reports whether stock has fallen under the reorder threshold.
func (it *Item) BelowReorder() bool {
	return it.StockQuantity < it.ReorderLevel
}

// AmpleStock reports whether stock is positive and at least twice the reorder threshold.
func (it *Item) AmpleStock() bool {
	return it.StockQuantity > 0 && it.StockQuantity >= 2*it.ReorderLevel
}
