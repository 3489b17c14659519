package pricing

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Simplici0/calcengine/internal/params"
)

const (
	complexName    = "complex"
	complexVersion = "1.4.0"

	minDynamicFactor      = 0.5
	maxDynamicFactor      = 2.0
	minCompetitionFactor  = 0.85
	competitorPenalty     = 0.02
	marketShareWeight     = 0.1
	brandStrengthWeight   = 0.2
	differentiationWeight = 0.1
	minOptimizationFactor = 0.9
)

// Complex is the eight-phase calculator driven by derived scores.
type Complex struct {
	env env
}

// NewComplex builds the complex calculator.
func NewComplex(opts Options) *Complex {
	return &Complex{env: newEnv(opts)}
}

func (c *Complex) Name() string    { return complexName }
func (c *Complex) Version() string { return complexVersion }

func (c *Complex) Calculate(ctx context.Context, item *Item, quantity int, bag params.Bag) (*Result, error) {
	l, err := c.env.begin(c, item, quantity, bag)
	if err != nil {
		return nil, err
	}
	return l.run(ctx, complexPhases)
}

var complexPhases = []phase{
	{name: "baseline", apply: complexBaseline},
	{name: "advanced_modifiers", apply: complexModifiers},
	{name: "dynamic_pricing", apply: complexDynamicPricing},
	{name: "risk_assessment", apply: complexRisk},
	{name: "market_analysis", apply: complexMarketAnalysis},
	{name: "competitive_positioning", apply: complexPositioning},
	{name: "value_optimization", apply: complexValueOptimization},
	{name: "final_adjustments", apply: complexFinalAdjustments},
	settlePhase,
}

func complexBaseline(l *ledger) {
	mult := nonNegative(l.params.Float(ParamBaselineMultiplier, 1.0), 1.0)
	adj := l.params.Float(ParamAdjustmentFactor, 0)
	if adj < -1 {
		adj = -1
	}
	factor := decimal.NewFromFloat(mult).Mul(decimal.NewFromFloat(1 + adj))
	if mult*(1+adj) > maxFactor {
		factor = decimal.NewFromFloat(l.boundFactor("Baseline", mult*(1+adj)))
	}
	l.meta("baselineMultiplier", mult)
	l.meta("adjustmentFactor", adj)

	raw := l.item.UnitPrice.Mul(decimal.NewFromInt(int64(l.qty)))
	target := raw.Mul(factor)
	l.adjust("Baseline", "Baseline", "baseline multiplier and adjustment factor",
		target.Sub(l.base()), fmt.Sprintf("%s × %s", raw.StringFixed(2), factor.String()))
}

func complexModifiers(l *ledger) {
	entries := l.params.WithPrefix(ParamModifierPrefix)
	if len(entries) == 0 {
		return
	}
	product := 1.0
	applied := make(map[string]float64, len(entries))
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		v, ok := params.FloatOf(e.Value)
		if !ok {
			l.logger.Warn("modifier ignored", zap.String("key", e.Key), zap.Any("value", e.Value.Raw()))
			continue
		}
		product *= math.Max(1+v, 0)
		name := strings.TrimPrefix(e.Key, ParamModifierPrefix)
		applied[name] = v
		names = append(names, name)
	}
	product = l.boundFactor("AdvancedModifiers", product)
	l.meta("modifiers", applied)
	l.meta("modifierFactor", product)
	l.applyFactor("AdvancedModifiers", "Advanced modifiers", strings.Join(names, ", "), product)
}

// demandScore and supplyScore are both in [0, 1].
func demandScore(item *Item, qty int) float64 {
	score := 0.3
	if item.Active {
		score += 0.2
	}
	if item.Classification == Premium {
		score += 0.2
	}
	switch {
	case qty >= 100:
		score += 0.3
	case qty >= 10:
		score += 0.15
	}
	return clamp(score, 0, 1)
}

func supplyScore(item *Item) float64 {
	score := 0.5
	switch {
	case item.StockQuantity <= 0:
		score = 0
	case item.BelowReorder():
		score -= 0.3
	case item.AmpleStock():
		score += 0.3
	}
	return clamp(score, 0, 1)
}

func complexDynamicPricing(l *ledger) {
	demand := demandScore(l.item, l.qty)
	supply := supplyScore(l.item)
	elasticity := l.params.Float(ParamPriceElasticity, 1.0)
	factor := clamp(1+(demand-supply)*elasticity*0.1, minDynamicFactor, maxDynamicFactor)
	l.meta("demandScore", demand)
	l.meta("supplyScore", supply)
	l.meta("priceElasticity", elasticity)
	l.meta("dynamicFactor", factor)
	l.applyFactor("DynamicPricing", "Dynamic pricing",
		fmt.Sprintf("demand %.2f vs supply %.2f", demand, supply), factor)
}

func complexRisk(l *ledger) {
	pct, reasons := riskScore(l.item, l.qty)
	l.meta("riskPremiumPercentage", pct)
	if pct == 0 {
		return
	}
	l.applyPercent("RiskAssessment", fmt.Sprintf("Risk assessment premium %v%%", pct), strings.Join(reasons, ", "), pct, 1)
}

func complexMarketAnalysis(l *ledger) {
	trend := l.params.String(ParamMarketTrend, "stable")
	tf := lookupFactor(l.tables.MarketTrend, trend, 1.0)
	competitors := l.params.Int(ParamCompetitorCount, 0)
	if competitors < 0 {
		competitors = 0
	}
	cf := math.Max(1-float64(competitors)*competitorPenalty, minCompetitionFactor)
	share := clamp(l.params.Float(ParamMarketShare, 0), 0, 1)
	sf := 1 + share*marketShareWeight

	factor := tf * cf * sf
	l.meta("trendFactor", tf)
	l.meta("competitionFactor", cf)
	l.meta("marketShareFactor", sf)
	l.applyFactor("MarketAnalysis", "Market analysis",
		fmt.Sprintf("trend %s, %d competitors, share %.2f", trend, competitors, share), factor)
}

func complexPositioning(l *ledger) {
	position := l.params.String(ParamTargetPosition, "mid_market")
	pf := lookupFactor(l.tables.TargetPosition, position, 1.0)
	brand := clamp(l.params.Float(ParamBrandStrength, 0.5), 0, 1)
	diff := clamp(l.params.Float(ParamDifferentiation, 0), 0, 1)
	bf := 1 + (brand-0.5)*brandStrengthWeight
	df := 1 + diff*differentiationWeight

	factor := pf * bf * df
	l.meta("positionFactor", pf)
	l.meta("brandFactor", bf)
	l.meta("differentiationFactor", df)
	l.applyFactor("CompetitivePositioning", "Competitive positioning",
		fmt.Sprintf("position %s", position), factor)
}

// valueScore derives a [0, 1] score from classification and specifications.
func valueScore(item *Item) float64 {
	score := 0.2
	switch item.Classification {
	case Premium:
		score = 0.4
	case Custom, Industrial:
		score = 0.3
	case Standard:
	}
	score += float64(len(item.Specifications)) * 0.1
	return clamp(score, 0, 1)
}

func complexValueOptimization(l *ledger) {
	score := valueScore(l.item)
	if l.params.Has(ParamValueScore) {
		score = clamp(l.params.Float(ParamValueScore, score), 0, 1)
	}
	potential := clamp(l.params.Float(ParamOptimizationPotential, 0.5), 0, 1)
	factor := clamp(1-score*potential*0.1, minOptimizationFactor, 1.0)
	l.meta("valueScore", score)
	l.meta("optimizationPotential", potential)
	l.meta("optimizationFactor", factor)
	l.applyFactor("ValueOptimization", "Value optimization",
		fmt.Sprintf("value score %.2f, potential %.2f", score, potential), factor)
}

func complexFinalAdjustments(l *ledger) {
	if custom := l.params.Decimal(ParamCustomAdjustment, decimal.Zero); !custom.IsZero() {
		l.adjust("CustomAdjustment", "Custom adjustment", "custom adjustment parameter",
			custom, fmt.Sprintf("%s + %s", l.base().StringFixed(2), custom.String()))
	}

	mode := ParseRoundingMode(l.params.String(ParamRoundingMode, string(RoundStandard)))
	l.meta("roundingMode", string(mode))
	before := l.base()
	l.adjust("Rounding", fmt.Sprintf("Rounding (%s)", mode), "rounding mode parameter",
		mode.Apply(before).Sub(before), fmt.Sprintf("%s(%s)", mode, before.StringFixed(2)))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

func nonNegative(v, def float64) float64 {
	if v < 0 {
		return def
	}
	return v
}
