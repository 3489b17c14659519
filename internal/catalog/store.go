package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/calcengine/internal/pricing"
)

var (
	// ErrNotFound is returned when no product has the requested id.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrInvalidProduct is returned when a product fails validation before it is stored.
	ErrInvalidProduct = errors.New("catalog: invalid product")
)

// Product is a stored item with its bookkeeping timestamps.
type Product struct {
	pricing.Item
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists products in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an opened and migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Upsert inserts the item or replaces the stored copy. It reports whether a new row was created.
func (s *Store) Upsert(ctx context.Context, item pricing.Item) (bool, error) {
	item.ID = strings.TrimSpace(item.ID)
	if err := validate(item); err != nil {
		return false, err
	}

	specs, err := json.Marshal(nonNilSpecs(item.Specifications))
	if err != nil {
		return false, fmt.Errorf("encode specifications: %w", err)
	}
	now := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin upsert transaction: %w", err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = ? LIMIT 1)`, item.ID).Scan(&exists); err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("check product existence: %w", err)
	}

	if exists {
		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET
				name = ?,
				unit_price = ?,
				classification = ?,
				length = ?,
				width = ?,
				height = ?,
				weight = ?,
				specifications = ?,
				stock_quantity = ?,
				reorder_level = ?,
				active = ?,
				updated_at = ?
			WHERE id = ?
		`, item.Name, item.UnitPrice.String(), item.Classification.String(),
			nullable(item.Length), nullable(item.Width), nullable(item.Height), nullable(item.Weight),
			string(specs), item.StockQuantity, item.ReorderLevel, item.Active, now, item.ID)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO products (
				id, name, unit_price, classification,
				length, width, height, weight,
				specifications, stock_quantity, reorder_level, active,
				created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, item.ID, item.Name, item.UnitPrice.String(), item.Classification.String(),
			nullable(item.Length), nullable(item.Width), nullable(item.Height), nullable(item.Weight),
			string(specs), item.StockQuantity, item.ReorderLevel, item.Active, now, now)
	}
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("write product %q: %w", item.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit upsert transaction: %w", err)
	}
	return !exists, nil
}

// Get loads one product by id.
func (s *Store) Get(ctx context.Context, id string) (Product, error) {
	row := s.db.QueryRowContext(ctx, selectProducts+` WHERE id = ?`, strings.TrimSpace(id))
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// List returns every product ordered by id.
func (s *Store) List(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, selectProducts+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

const selectProducts = `
	SELECT
		id, name, unit_price, classification,
		length, width, height, weight,
		specifications, stock_quantity, reorder_level, active,
		created_at, updated_at
	FROM products`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (Product, error) {
	var p Product
	var price, class, specs, created, updated string
	var length, width, height, weight sql.NullFloat64
	if err := row.Scan(
		&p.ID, &p.Name, &price, &class,
		&length, &width, &height, &weight,
		&specs, &p.StockQuantity, &p.ReorderLevel, &p.Active,
		&created, &updated,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, err
		}
		return Product{}, fmt.Errorf("scan product: %w", err)
	}

	var err error
	if p.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return Product{}, fmt.Errorf("decode unit price of %q: %w", p.ID, err)
	}
	if p.Classification, err = pricing.ParseClassification(class); err != nil {
		return Product{}, fmt.Errorf("decode classification of %q: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(specs), &p.Specifications); err != nil {
		return Product{}, fmt.Errorf("decode specifications of %q: %w", p.ID, err)
	}
	if len(p.Specifications) == 0 {
		p.Specifications = nil
	}
	p.Length = fromNullable(length)
	p.Width = fromNullable(width)
	p.Height = fromNullable(height)
	p.Weight = fromNullable(weight)
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Product{}, fmt.Errorf("decode created_at of %q: %w", p.ID, err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return Product{}, fmt.Errorf("decode updated_at of %q: %w", p.ID, err)
	}

	return p, nil
}

func validate(item pricing.Item) error {
	var problems []string
	if item.ID == "" {
		problems = append(problems, "id is required")
	}
	if item.UnitPrice.IsNegative() {
		problems = append(problems, "unit price cannot be negative")
	}
	if _, err := item.Classification.MarshalText(); err != nil {
		problems = append(problems, err.Error())
	}
	if item.StockQuantity < 0 || item.ReorderLevel < 0 {
		problems = append(problems, "stock and reorder level cannot be negative")
	}
	dims := []struct {
		name string
		v    *float64
	}{{"length", item.Length}, {"width", item.Width}, {"height", item.Height}, {"weight", item.Weight}}
	for _, d := range dims {
		if d.v != nil && (*d.v < 0 || math.IsNaN(*d.v) || math.IsInf(*d.v, 0)) {
			problems = append(problems, d.name+" must be a non-negative number")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidProduct, strings.Join(problems, "; "))
	}
	return nil
}

func nonNilSpecs(specs map[string]string) map[string]string {
	if specs == nil {
		return map[string]string{}
	}
	return specs
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
