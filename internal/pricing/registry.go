package pricing

import (
	"fmt"
	"sort"
	"strings"
)

// Registry resolves calculators by name.
type Registry struct {
	byName map[string]Calculator
}

// NewRegistry builds every calculator with the shared options.
func NewRegistry(opts Options) *Registry {
	r := &Registry{byName: make(map[string]Calculator)}
	for _, c := range []Calculator{
		NewPrimary(opts),
		NewComplex(opts),
		NewDiscount(opts),
		NewTax(opts),
		NewSecondary(opts),
		NewUtility(opts),
	} {
		r.byName[c.Name()] = c
	}
	return r
}

// Lookup returns the calculator registered under name (case-insensitive).
func (r *Registry) Lookup(name string) (Calculator, error) {
	c, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCalculator, name)
	}
	return c, nil
}

// Names lists registered calculators in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
