package pricing

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Simplici0/calcengine/internal/params"
)

const (
	primaryName    = "primary"
	primaryVersion = "2.1.0"

	specificationPercent      = 2.0
	highValueSpecPercent      = 5.0
	maxSpecificationPercent   = 50.0
	riskHighPriceThreshold    = 10_000
	riskLargeQuantity         = 1000
	optimizationBulkQuantity  = 100
	riskHighPricePercent      = 5.0
	riskLargeQuantityPercent  = 3.0
	riskClassificationPercent = 4.0
	riskLowStockPercent       = 2.0
	optStandardPercent        = 3.0
	optBulkPercent            = 2.0
	optAmpleStockPercent      = 1.0
)

var highValueKeywords = []string{"precision", "quality", "certification", "warranty"}

// Primary is the canonical twelve-phase calculator.
type Primary struct {
	env env
}

// NewPrimary builds the primary calculator.
func NewPrimary(opts Options) *Primary {
	return &Primary{env: newEnv(opts)}
}

func (p *Primary) Name() string    { return primaryName }
func (p *Primary) Version() string { return primaryVersion }

// Calculate runs base values, type, volume, complexity, specification,
// dimensional, weight, market, seasonal, regional, risk and optimization
// phases, then settles discount and tax.
func (p *Primary) Calculate(ctx context.Context, item *Item, quantity int, bag params.Bag) (*Result, error) {
	l, err := p.env.begin(p, item, quantity, bag)
	if err != nil {
		return nil, err
	}
	return l.run(ctx, primaryPhases)
}

var primaryPhases = []phase{
	{name: "base_values", apply: primaryBaseValues},
	{name: "product_type", apply: primaryProductType},
	{name: "volume_discount", apply: primaryVolumeDiscount},
	{name: "complexity", apply: primaryComplexity},
	{name: "specifications", apply: primarySpecifications},
	{name: "dimensional", apply: primaryDimensional},
	{name: "weight", apply: primaryWeight},
	{name: "market", apply: primaryMarket},
	{name: "seasonal", apply: primarySeasonal},
	{name: "regional", apply: primaryRegional},
	{name: "risk", apply: primaryRisk},
	{name: "optimization", apply: primaryOptimization},
	settlePhase,
}

func primaryBaseValues(l *ledger) {
	unit := l.params.Decimal(ParamBaseValue, l.item.UnitPrice)
	if unit.IsNegative() {
		l.logger.Warn("negative base value ignored", zap.String("baseValue", unit.String()))
		unit = l.item.UnitPrice
	}
	mult := l.params.Float(ParamMultiplier, 1.0)
	if mult < 0 {
		l.logger.Warn("negative multiplier ignored", zap.Float64("multiplier", mult))
		mult = 1.0
	}
	mult = l.boundFactor("multiplier", mult)
	l.meta("baseMultiplier", mult)

	m := decimal.NewFromFloat(mult)
	target := roundCurrency(unit.Mul(decimal.NewFromInt(int64(l.qty))).Mul(m))
	l.adjust("BaseValue", "Base value", "base value or multiplier parameter",
		target.Sub(l.base()), fmt.Sprintf("%s × %d × %s", unit.String(), l.qty, m.String()))

	if extra := l.params.Decimal(ParamBaseAdjustment, decimal.Zero); !extra.IsZero() {
		l.adjust("BaseAdjustment", "Base adjustment", "flat base adjustment parameter",
			extra, fmt.Sprintf("%s + %s", l.base().StringFixed(2), extra.String()))
	}
}

func primaryProductType(l *ledger) {
	class := l.item.Classification
	factor := l.tables.TypeMultiplier(class)
	custom := l.params.Float(ParamTypeFactorPrefix+class.String(), 1.0)
	if custom < 0 {
		custom = 1.0
	}
	factor = l.boundFactor("ProductType", factor*custom)
	l.meta("typeMultiplier", factor)
	if factor <= 1 {
		return
	}
	l.applyFactor("ProductType", fmt.Sprintf("%s type multiplier", class),
		fmt.Sprintf("%s classification", class), factor)
}

func primaryVolumeDiscount(l *ledger) {
	pct := l.tables.VolumeTiers.Lookup(float64(l.qty))
	l.meta("volumeDiscountPercentage", pct)
	l.applyPercent("VolumeDiscount", fmt.Sprintf("Volume discount %v%%", pct),
		fmt.Sprintf("quantity %d", l.qty), pct, -1)
}

func primaryComplexity(l *ledger) {
	level := l.params.Int(ParamComplexityLevel, 1)
	factor := l.tables.ComplexityFactor(level)
	l.meta("complexityLevel", level)
	l.meta("complexityFactor", factor)
	l.applyFactor("Complexity", fmt.Sprintf("Complexity level %d", level),
		"complexity level parameter", factor)
}

func primarySpecifications(l *ledger) {
	count := len(l.item.Specifications)
	if count == 0 {
		return
	}
	highValue := 0
	for key := range l.item.Specifications {
		if isHighValueSpec(key) {
			highValue++
		}
	}
	pct := math.Min(float64(count)*specificationPercent+float64(highValue)*highValueSpecPercent, maxSpecificationPercent)
	l.meta("specificationCount", count)
	l.meta("highValueSpecifications", highValue)
	l.meta("specificationPercentage", pct)
	l.applyPercent("Specifications", fmt.Sprintf("Specification impact %v%%", pct),
		fmt.Sprintf("%d specifications, %d high value", count, highValue), pct, 1)
}

func isHighValueSpec(key string) bool {
	k := strings.ToLower(key)
	for _, kw := range highValueKeywords {
		if strings.Contains(k, kw) {
			return true
		}
	}
	return false
}

func primaryDimensional(l *ledger) {
	volume, ok := l.item.Volume()
	if !ok {
		return
	}
	factor := l.tables.Dimensional.Lookup(volume)
	l.meta("volume", volume)
	l.meta("dimensionalFactor", factor)
	l.applyFactor("Dimensional", "Dimensional factor", fmt.Sprintf("volume %v", volume), factor)
}

func primaryWeight(l *ledger) {
	if l.item.Weight == nil {
		return
	}
	total := *l.item.Weight * float64(l.qty)
	factor := l.tables.Weight.Lookup(total)
	l.meta("totalWeight", total)
	l.meta("weightFactor", factor)
	l.applyFactor("Weight", "Weight factor", fmt.Sprintf("total weight %v", total), factor)
}

func primaryMarket(l *ledger) {
	demand := l.params.String(ParamMarketDemand, "normal")
	competition := l.params.String(ParamCompetitionLevel, "medium")
	df := lookupFactor(l.tables.MarketDemand, demand, 1.0)
	cf := lookupFactor(l.tables.Competition, competition, 1.0)
	factor := df * cf
	l.meta("demandMultiplier", df)
	l.meta("competitionMultiplier", cf)
	l.applyFactor("MarketConditions", "Market conditions",
		fmt.Sprintf("demand %s, competition %s", demand, competition), factor)
}

func primarySeasonal(l *ledger) {
	factor := seasonalFactor(l.start.Month())
	if l.params.Has(ParamSeasonalFactor) {
		factor = l.boundFactor("Seasonal", l.params.Float(ParamSeasonalFactor, factor))
	}
	l.meta("seasonalFactor", factor)
	l.applyFactor("Seasonal", "Seasonal adjustment", fmt.Sprintf("month %s", l.start.Month()), factor)
}

// seasonalFactor maps a calendar month to its default seasonal multiplier.
func seasonalFactor(m time.Month) float64 {
	switch m {
	case time.December, time.January, time.February:
		return 1.10
	case time.March, time.April, time.May:
		return 1.05
	case time.June, time.July, time.August:
		return 0.95
	default:
		return 1.0
	}
}

func primaryRegional(l *ledger) {
	region := l.params.String(ParamRegion, "")
	if region == "" {
		return
	}
	factor := lookupFactor(l.tables.Regions, region, 1.0)
	l.meta("regionalFactor", factor)
	l.applyFactor("Regional", "Regional adjustment", fmt.Sprintf("region %s", region), factor)
}

func primaryRisk(l *ledger) {
	pct, reasons := riskScore(l.item, l.qty)
	l.meta("riskScore", pct)
	if pct == 0 {
		return
	}
	l.applyPercent("RiskPremium", fmt.Sprintf("Risk premium %v%%", pct), strings.Join(reasons, ", "), pct, 1)
}

// riskScore sums the independent risk flags into a percentage premium.
func riskScore(item *Item, qty int) (float64, []string) {
	var pct float64
	var reasons []string
	if item.UnitPrice.GreaterThan(decimal.NewFromInt(riskHighPriceThreshold)) {
		pct += riskHighPricePercent
		reasons = append(reasons, "high unit price")
	}
	if qty > riskLargeQuantity {
		pct += riskLargeQuantityPercent
		reasons = append(reasons, "large quantity")
	}
	if item.Classification == Custom || item.Classification == Industrial {
		pct += riskClassificationPercent
		reasons = append(reasons, fmt.Sprintf("%s classification", item.Classification))
	}
	if item.BelowReorder() {
		pct += riskLowStockPercent
		reasons = append(reasons, "stock below reorder level")
	}
	return pct, reasons
}

func primaryOptimization(l *ledger) {
	if !l.params.Bool(ParamEnableOptimization, false) {
		return
	}
	var pct float64
	var reasons []string
	if l.item.Classification == Standard {
		pct += optStandardPercent
		reasons = append(reasons, "standard classification")
	}
	if l.qty >= optimizationBulkQuantity {
		pct += optBulkPercent
		reasons = append(reasons, "bulk quantity")
	}
	if l.item.AmpleStock() {
		pct += optAmpleStockPercent
		reasons = append(reasons, "ample stock")
	}
	l.meta("optimizationScore", pct)
	if pct == 0 {
		return
	}
	l.applyPercent("Optimization", fmt.Sprintf("Optimization reduction %v%%", pct), strings.Join(reasons, ", "), pct, -1)
}
