package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/calcengine/internal/params"
)

func TestComplex_BaselineMultiplierAndAdjustmentFactor(t *testing.T) {
	res := mustCalculate(t, NewComplex(testOptions()), item("100", Standard), 2, params.Bag{
		ParamBaselineMultiplier: params.Number(1.5),
		ParamAdjustmentFactor:   params.Number(0.1),
	})

	adj, ok := res.Adjustment("Baseline")
	require.True(t, ok)
	moneyEqual(t, "baseline delta", adj.Amount, "130")
	assert.Equal(t, "complex", res.Calculator)
}

func TestComplex_ModifiersMultiplyInKeyOrder(t *testing.T) {
	res := mustCalculate(t, NewComplex(testOptions()), item("100", Standard), 1, params.Bag{
		"modifier_rush":      params.Number(0.2),
		"modifier_packaging": params.String("0.1"),
		"modifier_broken":    params.String("n/a"),
	})

	assert.InDelta(t, 1.32, res.Metadata["modifierFactor"].(float64), 1e-9)
	mods := res.Metadata["modifiers"].(map[string]float64)
	assert.Len(t, mods, 2)
	adj, ok := res.Adjustment("AdvancedModifiers")
	require.True(t, ok)
	moneyEqual(t, "modifier delta", adj.Amount, "32")
}

func TestComplex_DynamicFactorIsClamped(t *testing.T) {
	calc := NewComplex(testOptions())

	res := mustCalculate(t, calc, item("100", Standard), 2, params.Bag{})
	assert.Equal(t, 0.5, res.Metadata["demandScore"])
	assert.Equal(t, 0.0, res.Metadata["supplyScore"])
	assert.InDelta(t, 1.05, res.Metadata["dynamicFactor"].(float64), 1e-9)

	res = mustCalculate(t, calc, item("100", Standard), 2, params.Bag{ParamPriceElasticity: params.Number(1000)})
	assert.Equal(t, 2.0, res.Metadata["dynamicFactor"])

	res = mustCalculate(t, calc, item("100", Standard), 2, params.Bag{ParamPriceElasticity: params.Number(-1000)})
	assert.Equal(t, 0.5, res.Metadata["dynamicFactor"])
}

func TestComplex_ScoresStayInUnitRange(t *testing.T) {
	for _, it := range []*Item{
		{UnitPrice: decimal.NewFromInt(1), Classification: Premium, Active: true, StockQuantity: 1000, ReorderLevel: 1},
		{UnitPrice: decimal.NewFromInt(1), Classification: Industrial, StockQuantity: 1, ReorderLevel: 50},
		{UnitPrice: decimal.NewFromInt(1), Classification: Custom, Specifications: map[string]string{"a": "", "b": "", "c": "", "d": "", "e": "", "f": "", "g": "", "h": "", "i": ""}},
	} {
		for _, qty := range []int{1, 10, 5000} {
			d := demandScore(it, qty)
			s := supplyScore(it)
			v := valueScore(it)
			for name, score := range map[string]float64{"demand": d, "supply": s, "value": v} {
				if score < 0 || score > 1 {
					t.Fatalf("%s score %v out of range", name, score)
				}
			}
		}
	}
}

func TestComplex_MarketAndPositioningFactors(t *testing.T) {
	res := mustCalculate(t, NewComplex(testOptions()), item("100", Standard), 1, params.Bag{
		ParamMarketTrend:     params.String("booming"),
		ParamCompetitorCount: params.Number(20),
		ParamMarketShare:     params.Number(0.5),
		ParamTargetPosition:  params.String("luxury"),
		ParamBrandStrength:   params.Number(1),
		ParamDifferentiation: params.Number(2),
	})

	assert.Equal(t, 1.15, res.Metadata["trendFactor"])
	assert.Equal(t, 0.85, res.Metadata["competitionFactor"])
	assert.InDelta(t, 1.05, res.Metadata["marketShareFactor"].(float64), 1e-9)
	assert.Equal(t, 1.60, res.Metadata["positionFactor"])
	assert.InDelta(t, 1.1, res.Metadata["brandFactor"].(float64), 1e-9)
	assert.InDelta(t, 1.1, res.Metadata["differentiationFactor"].(float64), 1e-9)
	assert.True(t, res.HasAdjustment("MarketAnalysis"))
	assert.True(t, res.HasAdjustment("CompetitivePositioning"))
}

func TestComplex_ValueOptimizationIsBounded(t *testing.T) {
	res := mustCalculate(t, NewComplex(testOptions()), item("100", Premium), 1, params.Bag{
		ParamValueScore:            params.Number(5),
		ParamOptimizationPotential: params.Number(5),
	})
	factor := res.Metadata["optimizationFactor"].(float64)
	assert.GreaterOrEqual(t, factor, 0.9)
	assert.LessOrEqual(t, factor, 1.0)
	assert.InDelta(t, 0.9, factor, 1e-9)

	adj, ok := res.Adjustment("ValueOptimization")
	require.True(t, ok)
	assert.False(t, adj.Additive)
}

func TestComplex_CustomAdjustmentAndRoundingMode(t *testing.T) {
	res := mustCalculate(t, NewComplex(testOptions()), item("123.45", Standard), 3, params.Bag{
		ParamCustomAdjustment: params.Number(-7.5),
		ParamRoundingMode:     params.String("nearest10"),
	})

	assert.True(t, res.HasAdjustment("CustomAdjustment"))
	assert.Equal(t, "nearest10", res.Metadata["roundingMode"])
	assert.True(t, res.Subtotal.Mod(decimal.NewFromInt(10)).IsZero(), "subtotal %s not a multiple of 10", res.Subtotal)
}

func TestComplex_DefaultRoundingRecordsStandardMode(t *testing.T) {
	res := mustCalculate(t, NewComplex(testOptions()), item("10", Standard), 1, params.Bag{
		ParamRoundingMode: params.String("bogus"),
	})
	assert.Equal(t, "standard", res.Metadata["roundingMode"])
	assert.False(t, res.HasAdjustment("Rounding"))
}

func TestComplex_DiscountAndTaxSettlement(t *testing.T) {
	res := mustCalculate(t, NewComplex(testOptions()), item("250", Premium), 4, params.Bag{
		ParamDiscountPercentage: params.Number(5),
		ParamTaxPercentage:      params.Number(21),
	})
	want := res.Subtotal.Sub(res.DiscountAmount).Add(res.TaxAmount)
	assert.True(t, res.Total.Equal(want))
	assert.True(t, res.DiscountAmount.IsPositive())
	assert.True(t, res.TaxAmount.IsPositive())
}

func TestComplex_OverflowingModifiersAreClamped(t *testing.T) {
	res := mustCalculate(t, NewComplex(testOptions()), item("100", Standard), 1, params.Bag{
		ParamModifierPrefix + "a": params.Number(1e200),
		ParamModifierPrefix + "b": params.Number(1e200),
	})
	assert.Equal(t, maxFactor, res.Metadata["modifierFactor"])
	assert.True(t, res.HasAdjustment("AdvancedModifiers"))

	res = mustCalculate(t, NewComplex(testOptions()), item("100", Standard), 1, params.Bag{
		ParamBaselineMultiplier: params.Number(1e200),
		ParamAdjustmentFactor:   params.Number(1e200),
	})
	adj, ok := res.Adjustment("Baseline")
	require.True(t, ok)
	moneyEqual(t, "baseline delta", adj.Amount, "99900")
}
