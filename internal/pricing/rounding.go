package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how the final base amount is rounded.
type RoundingMode string

const (
	RoundStandard   RoundingMode = "standard"
	RoundNone       RoundingMode = "none"
	RoundNearest5   RoundingMode = "nearest5"
	RoundNearest10  RoundingMode = "nearest10"
	RoundNearest100 RoundingMode = "nearest100"
	RoundUp         RoundingMode = "up"
	RoundDown       RoundingMode = "down"
)

var (
	five       = decimal.NewFromInt(5)
	ten        = decimal.NewFromInt(10)
	hundred    = decimal.NewFromInt(100)
	currencyDP = int32(2)
)

// ParseRoundingMode maps a parameter value to a mode. Unknown values map to RoundStandard.
func ParseRoundingMode(s string) RoundingMode {
	switch m := RoundingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case RoundNone, RoundNearest5, RoundNearest10, RoundNearest100, RoundUp, RoundDown:
		return m
	default:
		return RoundStandard
	}
}

// Apply rounds d according to the mode.
func (m RoundingMode) Apply(d decimal.Decimal) decimal.Decimal {
	switch m {
	case RoundNone:
		return d
	case RoundNearest5:
		return nearest(d, five)
	case RoundNearest10:
		return nearest(d, ten)
	case RoundNearest100:
		return nearest(d, hundred)
	case RoundUp:
		return d.RoundCeil(0)
	case RoundDown:
		return d.RoundFloor(0)
	default:
		return roundCurrency(d)
	}
}

func nearest(d, step decimal.Decimal) decimal.Decimal {
	return d.Div(step).Round(0).Mul(step)
}

// roundCurrency rounds to cents, half away from zero.
func roundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(currencyDP)
}
