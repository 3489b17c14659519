package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simplici0/calcengine/internal/params"
)

var (
	// ErrInvalidInput signals a missing item, a non-positive quantity or a missing parameter bag.
	ErrInvalidInput = errors.New("pricing: invalid input")
	// ErrCancelled is returned when the context is done between two phases.
	ErrCancelled = errors.New("pricing: calculation cancelled")
	// ErrUnknownCalculator is returned by Registry.Lookup for unregistered names.
	ErrUnknownCalculator = errors.New("pricing: unknown calculator")
)

// Calculator is one interchangeable pricing strategy.
type Calculator interface {
	Name() string
	Version() string
	Calculate(ctx context.Context, item *Item, quantity int, bag params.Bag) (*Result, error)
}

// Options configures the collaborators shared by every calculator.
type Options struct {
	// Now supplies the clock used for timestamps, elapsed time and the seasonal factor.
	Now func() time.Time
	// NewID generates calculation ids.
	NewID  func() string
	Logger *zap.Logger
	// Tables overrides the built-in lookup tables.
	Tables *Tables
}

type env struct {
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
	tables Tables
}

func newEnv(opts Options) env {
	e := env{
		now:    opts.Now,
		newID:  opts.NewID,
		logger: opts.Logger,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if opts.Tables != nil {
		e.tables = *opts.Tables
	} else {
		e.tables = DefaultTables()
	}
	return e
}

func validateInput(item *Item, quantity int, bag params.Bag) error {
	if item == nil {
		return fmt.Errorf("%w: item required", ErrInvalidInput)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be > 0", ErrInvalidInput)
	}
	if bag == nil {
		return fmt.Errorf("%w: parameters required", ErrInvalidInput)
	}
	if item.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price cannot be negative", ErrInvalidInput)
	}
	return nil
}

// begin validates the inputs and opens a fresh ledger for one invocation.
func (e env) begin(c Calculator, item *Item, quantity int, bag params.Bag) (*ledger, error) {
	if err := validateInput(item, quantity, bag); err != nil {
		return nil, err
	}
	logger := e.logger.With(zap.String("calculator", c.Name()), zap.String("itemId", item.ID))
	return openLedger(e, c, item, quantity, params.NewAccessor(bag, logger), logger), nil
}
