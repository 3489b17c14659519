package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Simplici0/calcengine/internal/catalog"
	"github.com/Simplici0/calcengine/internal/observability"
	"github.com/Simplici0/calcengine/internal/pricing"
	"github.com/Simplici0/calcengine/internal/quoting"
)

const (
	maxBodyBytes = 1 << 20
	maxBatchSize = 100
)

// productStore is the catalog surface used by the HTTP handlers.
type productStore interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	List(ctx context.Context) ([]catalog.Product, error)
	Upsert(ctx context.Context, item pricing.Item) (bool, error)
}

type server struct {
	quotes   *quoting.Service
	products productStore
	metrics  *observability.Metrics
	logger   *zap.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type batchRequest struct {
	Requests []quoting.Request `json:"requests"`
}

type batchItem struct {
	Result *pricing.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Status int             `json:"status"`
}

type batchResponse struct {
	Results   []batchItem `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/calculators", s.handleCalculators)
	r.Get("/products", s.handleProductsList)
	r.Post("/products", s.handleProductsUpsert)
	r.Get("/products/{id}", s.handleProductGet)
	r.Post("/calculations", s.handleCalculate)
	r.Post("/calculations/batch", s.handleCalculateBatch)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		logger := s.logger.With(zap.String("requestId", chimw.GetReqID(r.Context())))

		next.ServeHTTP(ww, r.WithContext(observability.WithLogger(r.Context(), logger)))

		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(started)),
		)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleCalculators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.quotes.Calculators())
}

func (s *server) handleProductsList(w http.ResponseWriter, r *http.Request) {
	products, err := s.products.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *server) handleProductGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleProductsUpsert(w http.ResponseWriter, r *http.Request) {
	var item pricing.Item
	if err := decodeJSON(w, r, &item); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	created, err := s.products.Upsert(r.Context(), item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.products.Get(r.Context(), item.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, p)
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req quoting.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := s.quotes.Calculate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleCalculateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if len(req.Requests) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "requests must not be empty"})
		return
	}
	if len(req.Requests) > maxBatchSize {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("at most %d requests per batch", maxBatchSize)})
		return
	}

	outcomes := s.quotes.CalculateBatch(r.Context(), req.Requests)
	resp := batchResponse{Results: make([]batchItem, 0, len(outcomes))}
	for _, o := range outcomes {
		if o.Err != nil {
			resp.Failed++
			resp.Results = append(resp.Results, batchItem{Error: o.Err.Error(), Status: statusFor(o.Err)})
			continue
		}
		resp.Succeeded++
		resp.Results = append(resp.Results, batchItem{Result: o.Result, Status: http.StatusOK})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		observability.FromContextOr(r.Context(), s.logger).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pricing.ErrInvalidInput),
		errors.Is(err, pricing.ErrUnknownCalculator),
		errors.Is(err, catalog.ErrInvalidProduct):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pricing.ErrCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
