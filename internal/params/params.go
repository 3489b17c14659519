package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNumber Kind = iota + 1
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is a single untyped parameter: a number, a string or a boolean.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

// Number wraps a numeric parameter.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// String wraps a string parameter.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool wraps a boolean parameter.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Raw returns the wrapped Go value.
func (v Value) Raw() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// MarshalJSON encodes the wrapped value as a JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}

// UnmarshalJSON accepts a JSON number, string or boolean.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return fmt.Errorf("parameter number %q: %w", t.String(), err)
		}
		*v = Number(f)
	case string:
		*v = String(t)
	case bool:
		*v = Bool(t)
	default:
		return fmt.Errorf("parameter must be a number, string or boolean, got %s", strings.TrimSpace(string(data)))
	}
	return nil
}

// Bag maps parameter names to values. Unknown keys are ignored by consumers.
type Bag map[string]Value

// Entry is a single key/value pair from a Bag.
type Entry struct {
	Key   string
	Value Value
}

// Accessor performs type-coercing lookups into a Bag. Coercion failures fall
// back to the caller's default and are logged, never returned.
type Accessor struct {
	bag    Bag
	logger *zap.Logger
}

// NewAccessor returns an Accessor over bag. A nil logger discards warnings.
func NewAccessor(bag Bag, logger *zap.Logger) Accessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Accessor{bag: bag, logger: logger}
}

// Has reports whether key is present.
func (a Accessor) Has(key string) bool {
	_, ok := a.bag[key]
	return ok
}

// Float returns key as a float64.
func (a Accessor) Float(key string, def float64) float64 {
	v, ok := a.bag[key]
	if !ok {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		a.warn(key, KindNumber, v)
		return def
	}
	return f
}

// Decimal returns key as a decimal.
func (a Accessor) Decimal(key string, def decimal.Decimal) decimal.Decimal {
	v, ok := a.bag[key]
	if !ok {
		return def
	}
	switch v.kind {
	case KindNumber:
		if !finite(v.num) {
			break
		}
		return decimal.NewFromFloat(v.num)
	case KindString:
		d, err := decimal.NewFromString(strings.TrimSpace(v.str))
		if err == nil {
			return d
		}
	case KindBool:
	}
	a.warn(key, KindNumber, v)
	return def
}

// Int returns key as an int. Fractional numbers are not coerced.
func (a Accessor) Int(key string, def int) int {
	v, ok := a.bag[key]
	if !ok {
		return def
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		a.warn(key, KindNumber, v)
		return def
	}
	return int(f)
}

// String returns key as a string.
func (a Accessor) String(key string, def string) string {
	v, ok := a.bag[key]
	if !ok {
		return def
	}
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber, KindBool:
	}
	a.warn(key, KindString, v)
	return def
}

// Bool returns key as a bool; "true" and "false" strings are accepted in any case.
func (a Accessor) Bool(key string, def bool) bool {
	v, ok := a.bag[key]
	if !ok {
		return def
	}
	switch v.kind {
	case KindBool:
		return v.b
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.str)) {
		case "true":
			return true
		case "false":
			return false
		}
	case KindNumber:
	}
	a.warn(key, KindBool, v)
	return def
}

// WithPrefix returns every entry whose key starts with prefix, sorted by key.
func (a Accessor) WithPrefix(prefix string) []Entry {
	var out []Entry
	for k, v := range a.bag {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Entry{Key: k, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// FloatOf coerces a single value to float64 without logging.
func FloatOf(v Value) (float64, bool) {
	return toFloat(v)
}

func (a Accessor) warn(key string, want Kind, got Value) {
	a.logger.Warn("parameter coercion failed",
		zap.String("key", key),
		zap.Stringer("want", want),
		zap.Stringer("got", got.kind),
		zap.Any("value", got.Raw()),
	)
}

func toFloat(v Value) (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, finite(v.num)
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || !finite(f) {
			return 0, false
		}
		return f, true
	case KindBool:
		return 0, false
	default:
		return 0, false
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
