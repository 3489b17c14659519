package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/calcengine/internal/catalog"
	"github.com/Simplici0/calcengine/internal/pricing"
)

// Store is the subset of the catalog used by the seed.
type Store interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	Upsert(ctx context.Context, item pricing.Item) (bool, error)
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Skipped int
}

// Run inserts the demo catalog in an idempotent way. Existing products are left untouched.
func Run(ctx context.Context, store Store) (Stats, error) {
	stats := Stats{}
	for _, item := range DemoCatalog() {
		_, err := store.Get(ctx, item.ID)
		switch {
		case err == nil:
			stats.Skipped++
			continue
		case !errors.Is(err, catalog.ErrNotFound):
			return Stats{}, fmt.Errorf("check demo product %q: %w", item.ID, err)
		}

		if _, err := store.Upsert(ctx, item); err != nil {
			return Stats{}, fmt.Errorf("insert demo product %q: %w", item.ID, err)
		}
		stats.Inserts++
	}
	return stats, nil
}

// DemoCatalog returns one product per classification, covering the stock and dimension branches.
func DemoCatalog() []pricing.Item {
	dim := func(v float64) *float64 { return &v }
	return []pricing.Item{
		{
			ID:             "std-bolt",
			Name:           "Hex bolt M8",
			UnitPrice:      decimal.RequireFromString("0.45"),
			Classification: pricing.Standard,
			Length:         dim(4),
			Width:          dim(1),
			Height:         dim(1),
			Weight:         dim(0.02),
			StockQuantity:  5000,
			ReorderLevel:   1000,
			Active:         true,
		},
		{
			ID:             "prm-headphones",
			Name:           "Studio headphones",
			UnitPrice:      decimal.RequireFromString("249.00"),
			Classification: pricing.Premium,
			Length:         dim(20),
			Width:          dim(18),
			Height:         dim(9),
			Weight:         dim(0.8),
			Specifications: map[string]string{"driver": "50mm", "impedance": "32ohm", "cable": "detachable"},
			StockQuantity:  12,
			ReorderLevel:   20,
			Active:         true,
		},
		{
			ID:             "cst-cabinet",
			Name:           "Made-to-measure cabinet",
			UnitPrice:      decimal.RequireFromString("1200.00"),
			Classification: pricing.Custom,
			Length:         dim(120),
			Width:          dim(60),
			Height:         dim(200),
			Weight:         dim(85),
			Specifications: map[string]string{"wood": "oak", "finish": "oiled", "doors": "2", "handles": "brass"},
			StockQuantity:  0,
			ReorderLevel:   0,
			Active:         true,
		},
		{
			ID:             "ind-compressor",
			Name:           "Industrial air compressor",
			UnitPrice:      decimal.RequireFromString("4800.00"),
			Classification: pricing.Industrial,
			Length:         dim(150),
			Width:          dim(80),
			Height:         dim(120),
			Weight:         dim(320),
			Specifications: map[string]string{"power": "7.5kW", "tank": "500L"},
			StockQuantity:  3,
			ReorderLevel:   2,
			Active:         true,
		},
	}
}
