package quoting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Simplici0/calcengine/internal/catalog"
	"github.com/Simplici0/calcengine/internal/observability"
	"github.com/Simplici0/calcengine/internal/params"
	"github.com/Simplici0/calcengine/internal/pricing"
)

// ParamCalculator selects the strategy from inside the parameter bag.
const ParamCalculator = "calculator"

const (
	statusCompleted         = "completed"
	statusInvalidInput      = "invalid_input"
	statusCancelled         = "cancelled"
	statusUnknownCalculator = "unknown_calculator"
	statusNotFound          = "not_found"
	statusFailed            = "failed"

	// unknownCalculatorLabel replaces unregistered names in metric labels.
	unknownCalculatorLabel = "unknown"
)

var tracer = otel.Tracer("github.com/Simplici0/calcengine/internal/quoting")

// ProductSource resolves catalog items by id.
type ProductSource interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

// Request asks for one calculation. Either Item or ProductID identifies the priced item.
type Request struct {
	ProductID  string        `json:"productId,omitempty"`
	Item       *pricing.Item `json:"item,omitempty"`
	Quantity   int           `json:"quantity"`
	Parameters params.Bag    `json:"parameters,omitempty"`
	Calculator string        `json:"calculator,omitempty"`
}

// Outcome is the result of one request in a batch; exactly one of Result and Err is set.
type Outcome struct {
	Result *pricing.Result
	Err    error
}

// CalculatorInfo describes a registered strategy.
type CalculatorInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Options wires the service collaborators. Products and Metrics may be nil.
type Options struct {
	Registry          *pricing.Registry
	Products          ProductSource
	Logger            *zap.Logger
	Metrics           *observability.Metrics
	DefaultCalculator string
	Workers           int
}

// Service runs calculations on behalf of transport layers.
type Service struct {
	registry          *pricing.Registry
	products          ProductSource
	logger            *zap.Logger
	metrics           *observability.Metrics
	defaultCalculator string
	workers           int
	now               func() time.Time
}

// NewService builds a Service. A missing default calculator falls back to "primary".
func NewService(opts Options) *Service {
	s := &Service{
		registry:          opts.Registry,
		products:          opts.Products,
		logger:            opts.Logger,
		metrics:           opts.Metrics,
		defaultCalculator: strings.TrimSpace(opts.DefaultCalculator),
		workers:           opts.Workers,
		now:               time.Now,
	}
	if s.registry == nil {
		s.registry = pricing.NewRegistry(pricing.Options{Logger: opts.Logger})
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.defaultCalculator == "" {
		s.defaultCalculator = "primary"
	}
	if s.workers <= 0 {
		s.workers = 1
	}
	return s
}

// Calculators lists the registered strategies.
func (s *Service) Calculators() []CalculatorInfo {
	names := s.registry.Names()
	out := make([]CalculatorInfo, 0, len(names))
	for _, n := range names {
		c, err := s.registry.Lookup(n)
		if err != nil {
			continue
		}
		out = append(out, CalculatorInfo{Name: c.Name(), Version: c.Version()})
	}
	return out
}

// Calculate resolves the strategy and item for req, runs the calculation and checks the result.
func (s *Service) Calculate(ctx context.Context, req Request) (*pricing.Result, error) {
	name := s.calculatorName(req)
	logger := observability.FromContextOr(ctx, s.logger).With(zap.String("calculator", name))

	ctx, span := tracer.Start(ctx, "quoting.Calculate")
	defer span.End()
	span.SetAttributes(
		attribute.String("calculation.calculator", name),
		attribute.Int("calculation.quantity", req.Quantity),
	)

	started := s.now()
	res, err := s.calculate(ctx, name, req)
	elapsed := s.now().Sub(started)

	status := statusOf(err)
	label := name
	if status == statusUnknownCalculator {
		label = unknownCalculatorLabel
	}
	s.metrics.ObserveCalculation(label, status, elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if status == statusFailed {
			logger.Error("calculation failed", zap.Error(err))
		} else {
			logger.Warn("calculation rejected", zap.String("status", status), zap.Error(err))
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("calculation.id", res.ID),
		attribute.String("calculation.total", res.Total.StringFixed(2)),
	)
	logger.Debug("calculation completed",
		zap.String("calculationId", res.ID),
		zap.String("itemId", res.ItemID),
		zap.String("total", res.Total.StringFixed(2)),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (s *Service) calculate(ctx context.Context, name string, req Request) (*pricing.Result, error) {
	calc, err := s.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	item, err := s.resolveItem(ctx, req)
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("calculation.item_id", item.ID))

	bag := req.Parameters
	if bag == nil {
		bag = params.Bag{}
	}

	res, err := calc.Calculate(ctx, item, req.Quantity, bag)
	if err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("quoting: %s produced an inconsistent result: %w", name, err)
	}
	return res, nil
}

// CalculateBatch runs every request on a bounded worker pool. Outcomes keep the input order
// and one failing request never stops the others.
func (s *Service) CalculateBatch(ctx context.Context, reqs []Request) []Outcome {
	s.metrics.ObserveBatch(len(reqs))
	outcomes := make([]Outcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range reqs {
		i := i
		g.Go(func() error {
			res, err := s.Calculate(ctx, reqs[i])
			outcomes[i] = Outcome{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (s *Service) calculatorName(req Request) string {
	if name := strings.TrimSpace(req.Calculator); name != "" {
		return strings.ToLower(name)
	}
	if name := strings.TrimSpace(params.NewAccessor(req.Parameters, s.logger).String(ParamCalculator, "")); name != "" {
		return strings.ToLower(name)
	}
	return strings.ToLower(s.defaultCalculator)
}

func (s *Service) resolveItem(ctx context.Context, req Request) (*pricing.Item, error) {
	if req.Item != nil {
		return req.Item, nil
	}
	id := strings.TrimSpace(req.ProductID)
	if id == "" {
		return nil, fmt.Errorf("%w: item or productId required", pricing.ErrInvalidInput)
	}
	if s.products == nil {
		return nil, fmt.Errorf("%w: %q (no catalog configured)", catalog.ErrNotFound, id)
	}
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	item := p.Item
	return &item, nil
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return statusCompleted
	case errors.Is(err, pricing.ErrInvalidInput), errors.Is(err, catalog.ErrInvalidProduct):
		return statusInvalidInput
	case errors.Is(err, pricing.ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return statusCancelled
	case errors.Is(err, pricing.ErrUnknownCalculator):
		return statusUnknownCalculator
	case errors.Is(err, catalog.ErrNotFound):
		return statusNotFound
	default:
		return statusFailed
	}
}
