package pricing

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Band applies Multiplier to values strictly below Below.
type Band struct {
	Below      float64 `yaml:"below"`
	Multiplier float64 `yaml:"multiplier"`
}

// BandTable is an ascending, first-match list of bands with an explicit default.
type BandTable struct {
	Bands   []Band  `yaml:"bands"`
	Default float64 `yaml:"default"`
}

// Lookup returns the multiplier of the first band containing v, or Default.
func (t BandTable) Lookup(v float64) float64 {
	for _, b := range t.Bands {
		if v < b.Below {
			return b.Multiplier
		}
	}
	return t.Default
}

// Tier grants Percentage to values at or above Min.
type Tier struct {
	Min        float64 `yaml:"min"`
	Percentage float64 `yaml:"percentage"`
}

// TierTable is a descending, first-match list of tiers. Values below every tier get 0.
type TierTable []Tier

// Lookup returns the percentage of the first tier whose minimum v reaches.
func (t TierTable) Lookup(v float64) float64 {
	for _, tier := range t {
		if v >= tier.Min {
			return tier.Percentage
		}
	}
	return 0
}

// Tables holds every lookup table used by the calculators.
type Tables struct {
	TypeMultipliers  map[string]float64 `yaml:"typeMultipliers"`
	VolumeTiers      TierTable          `yaml:"volumeTiers"`
	ComplexityLevels []float64          `yaml:"complexityLevels"`
	Dimensional      BandTable          `yaml:"dimensional"`
	Weight           BandTable          `yaml:"weight"`
	MarketDemand     map[string]float64 `yaml:"marketDemand"`
	Competition      map[string]float64 `yaml:"competition"`
	Regions          map[string]float64 `yaml:"regions"`
	MarketTrend      map[string]float64 `yaml:"marketTrend"`
	TargetPosition   map[string]float64 `yaml:"targetPosition"`
	DiscountTiers    TierTable          `yaml:"discountTiers"`
	// DefaultTaxPercentage is used by the tax calculator when no taxPercentage parameter is given.
	DefaultTaxPercentage float64 `yaml:"defaultTaxPercentage"`
}

// DefaultTables returns the built-in tables.
func DefaultTables() Tables {
	return Tables{
		TypeMultipliers: map[string]float64{
			"standard":   1.0,
			"premium":    1.35,
			"custom":     1.75,
			"industrial": 2.25,
		},
		VolumeTiers: TierTable{
			{Min: 1000, Percentage: 25},
			{Min: 500, Percentage: 20},
			{Min: 100, Percentage: 15},
			{Min: 50, Percentage: 10},
			{Min: 10, Percentage: 5},
		},
		ComplexityLevels: []float64{1.0, 1.15, 1.35, 1.60, 2.00},
		Dimensional: BandTable{
			Bands: []Band{
				{Below: 1_000, Multiplier: 0.95},
				{Below: 10_000, Multiplier: 1.0},
				{Below: 100_000, Multiplier: 1.10},
				{Below: 1_000_000, Multiplier: 1.25},
			},
			Default: 1.50,
		},
		Weight: BandTable{
			Bands: []Band{
				{Below: 1, Multiplier: 1.0},
				{Below: 10, Multiplier: 1.05},
				{Below: 50, Multiplier: 1.15},
				{Below: 100, Multiplier: 1.30},
			},
			Default: 1.50,
		},
		MarketDemand: map[string]float64{
			"low":      0.90,
			"normal":   1.0,
			"high":     1.15,
			"critical": 1.30,
		},
		Competition: map[string]float64{
			"low":    1.10,
			"medium": 1.0,
			"high":   0.95,
		},
		Regions: map[string]float64{
			"europe":        1.10,
			"asia":          0.95,
			"oceania":       1.15,
			"north_america": 1.0,
			"south_america": 0.92,
			"africa":        0.90,
			"middle_east":   1.05,
		},
		MarketTrend: map[string]float64{
			"declining": 0.92,
			"stable":    1.0,
			"growing":   1.08,
			"booming":   1.15,
		},
		TargetPosition: map[string]float64{
			"budget":     0.85,
			"mid_market": 1.0,
			"premium":    1.25,
			"luxury":     1.60,
		},
		DiscountTiers: TierTable{
			{Min: 10_000, Percentage: 15},
			{Min: 5_000, Percentage: 10},
			{Min: 1_000, Percentage: 5},
		},
		DefaultTaxPercentage: 10,
	}
}

// ComplexityFactor returns the factor for a complexity level. Levels below 1
// are treated as 1; levels past the table extrapolate as 1 + level × 0.25.
func (t Tables) ComplexityFactor(level int) float64 {
	if level < 1 {
		level = 1
	}
	if level <= len(t.ComplexityLevels) {
		return t.ComplexityLevels[level-1]
	}
	return 1 + float64(level)*0.25
}

// TypeMultiplier returns the multiplier for a classification, defaulting to 1.
func (t Tables) TypeMultiplier(c Classification) float64 {
	return lookupFactor(t.TypeMultipliers, c.String(), 1.0)
}

// lookupFactor normalizes key and returns its factor, or def when absent.
func lookupFactor(m map[string]float64, key string, def float64) float64 {
	if f, ok := m[normalizeKey(key)]; ok {
		return f
	}
	return def
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// tablesDocument is the YAML shape accepted by LoadTables. Absent fields keep
// their defaults.
type tablesDocument struct {
	TypeMultipliers      map[string]float64 `yaml:"typeMultipliers"`
	VolumeTiers          TierTable          `yaml:"volumeTiers"`
	ComplexityLevels     []float64          `yaml:"complexityLevels"`
	Dimensional          *bandDocument      `yaml:"dimensional"`
	Weight               *bandDocument      `yaml:"weight"`
	MarketDemand         map[string]float64 `yaml:"marketDemand"`
	Competition          map[string]float64 `yaml:"competition"`
	Regions              map[string]float64 `yaml:"regions"`
	MarketTrend          map[string]float64 `yaml:"marketTrend"`
	TargetPosition       map[string]float64 `yaml:"targetPosition"`
	DiscountTiers        TierTable          `yaml:"discountTiers"`
	DefaultTaxPercentage *float64           `yaml:"defaultTaxPercentage"`
}

type bandDocument struct {
	Bands   []Band   `yaml:"bands"`
	Default *float64 `yaml:"default"`
}

func (b *bandDocument) mergeInto(t *BandTable) {
	if b == nil {
		return
	}
	if b.Bands != nil {
		t.Bands = b.Bands
	}
	if b.Default != nil {
		t.Default = *b.Default
	}
}

// LoadTables overlays a YAML document onto DefaultTables. Map entries are
// merged key by key; lists replace the defaults.
func LoadTables(r io.Reader) (Tables, error) {
	var doc tablesDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Tables{}, fmt.Errorf("decode pricing tables: %w", err)
	}

	t := DefaultTables()
	mergeFactors(t.TypeMultipliers, doc.TypeMultipliers)
	mergeFactors(t.MarketDemand, doc.MarketDemand)
	mergeFactors(t.Competition, doc.Competition)
	mergeFactors(t.Regions, doc.Regions)
	mergeFactors(t.MarketTrend, doc.MarketTrend)
	mergeFactors(t.TargetPosition, doc.TargetPosition)
	if doc.VolumeTiers != nil {
		t.VolumeTiers = doc.VolumeTiers
	}
	if doc.DiscountTiers != nil {
		t.DiscountTiers = doc.DiscountTiers
	}
	if doc.ComplexityLevels != nil {
		t.ComplexityLevels = doc.ComplexityLevels
	}
	doc.Dimensional.mergeInto(&t.Dimensional)
	doc.Weight.mergeInto(&t.Weight)
	if doc.DefaultTaxPercentage != nil {
		t.DefaultTaxPercentage = *doc.DefaultTaxPercentage
	}

	t.sortBands()
	if err := t.validate(); err != nil {
		return Tables{}, err
	}
	return t, nil
}

func mergeFactors(dst, src map[string]float64) {
	for k, v := range src {
		dst[normalizeKey(k)] = v
	}
}

// LoadTablesFile reads tables from a YAML file.
func LoadTablesFile(path string) (Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tables{}, fmt.Errorf("open pricing tables: %w", err)
	}
	defer f.Close()
	return LoadTables(f)
}

func (t *Tables) sortBands() {
	sort.SliceStable(t.VolumeTiers, func(i, j int) bool { return t.VolumeTiers[i].Min > t.VolumeTiers[j].Min })
	sort.SliceStable(t.DiscountTiers, func(i, j int) bool { return t.DiscountTiers[i].Min > t.DiscountTiers[j].Min })
	sort.SliceStable(t.Dimensional.Bands, func(i, j int) bool { return t.Dimensional.Bands[i].Below < t.Dimensional.Bands[j].Below })
	sort.SliceStable(t.Weight.Bands, func(i, j int) bool { return t.Weight.Bands[i].Below < t.Weight.Bands[j].Below })
}

func (t Tables) validate() error {
	var errs []error
	checkMap := func(name string, m map[string]float64) {
		for k, v := range m {
			if v < 0 {
				errs = append(errs, fmt.Errorf("%s[%s]: negative multiplier %v", name, k, v))
			}
		}
	}
	checkMap("typeMultipliers", t.TypeMultipliers)
	checkMap("marketDemand", t.MarketDemand)
	checkMap("competition", t.Competition)
	checkMap("regions", t.Regions)
	checkMap("marketTrend", t.MarketTrend)
	checkMap("targetPosition", t.TargetPosition)

	checkTiers := func(name string, tiers TierTable) {
		for _, tier := range tiers {
			if tier.Percentage < 0 || tier.Percentage > 100 {
				errs = append(errs, fmt.Errorf("%s: percentage %v out of range", name, tier.Percentage))
			}
		}
	}
	checkTiers("volumeTiers", t.VolumeTiers)
	checkTiers("discountTiers", t.DiscountTiers)

	for i, f := range t.ComplexityLevels {
		if f < 0 {
			errs = append(errs, fmt.Errorf("complexityLevels[%d]: negative factor %v", i, f))
		}
	}
	for _, bt := range []struct {
		name  string
		table BandTable
	}{{"dimensional", t.Dimensional}, {"weight", t.Weight}} {
		if bt.table.Default < 0 {
			errs = append(errs, fmt.Errorf("%s: negative default %v", bt.name, bt.table.Default))
		}
		for _, b := range bt.table.Bands {
			if b.Multiplier < 0 {
				errs = append(errs, fmt.Errorf("%s: negative multiplier %v", bt.name, b.Multiplier))
			}
		}
	}
	if t.DefaultTaxPercentage < 0 {
		errs = append(errs, fmt.Errorf("defaultTaxPercentage: negative value %v", t.DefaultTaxPercentage))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid pricing tables: %w", err)
	}
	return nil
}
