package params

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedAccessor(bag Bag) (Accessor, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return NewAccessor(bag, zap.New(core)), logs
}

func TestAccessor_MissingKeyReturnsDefault(t *testing.T) {
	a, logs := newObservedAccessor(Bag{})

	assert.Equal(t, 1.5, a.Float("multiplier", 1.5))
	assert.Equal(t, 3, a.Int("level", 3))
	assert.Equal(t, "normal", a.String("marketDemand", "normal"))
	assert.True(t, a.Bool("enabled", true))
	assert.True(t, a.Decimal("amount", decimal.NewFromInt(7)).Equal(decimal.NewFromInt(7)))
	assert.Equal(t, 0, logs.Len(), "missing keys must not warn")
}

func TestAccessor_CoercesNumericStrings(t *testing.T) {
	a, logs := newObservedAccessor(Bag{
		"multiplier": String(" 1.25 "),
		"level":      String("4"),
		"amount":     String("12.345"),
	})

	assert.Equal(t, 1.25, a.Float("multiplier", 1))
	assert.Equal(t, 4, a.Int("level", 1))
	assert.Equal(t, "12.345", a.Decimal("amount", decimal.Zero).String())
	assert.Equal(t, 0, logs.Len())
}

func TestAccessor_CoercesBooleanStringsCaseInsensitive(t *testing.T) {
	a, _ := newObservedAccessor(Bag{
		"upper": String("TRUE"),
		"mixed": String("False"),
		"real":  Bool(true),
	})

	assert.True(t, a.Bool("upper", false))
	assert.False(t, a.Bool("mixed", true))
	assert.True(t, a.Bool("real", false))
}

func TestAccessor_InvalidCoercionFallsBackAndWarns(t *testing.T) {
	a, logs := newObservedAccessor(Bag{
		"multiplier": String("abc"),
		"level":      Number(2.5),
		"region":     Number(3),
		"enabled":    String("yes"),
		"nan":        String("NaN"),
	})

	assert.Equal(t, 1.0, a.Float("multiplier", 1.0))
	assert.Equal(t, 1, a.Int("level", 1))
	assert.Equal(t, "default", a.String("region", "default"))
	assert.False(t, a.Bool("enabled", false))
	assert.Equal(t, 9.0, a.Float("nan", 9.0))

	require.Equal(t, 5, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "parameter coercion failed", entry.Message)
	assert.Equal(t, "multiplier", entry.ContextMap()["key"])
}

func TestAccessor_WithPrefixIsSortedByKey(t *testing.T) {
	a := NewAccessor(Bag{
		"modifier_b": Number(0.2),
		"modifier_a": Number(0.1),
		"other":      Number(1),
	}, nil)

	entries := a.WithPrefix("modifier_")
	require.Len(t, entries, 2)
	assert.Equal(t, "modifier_a", entries[0].Key)
	assert.Equal(t, "modifier_b", entries[1].Key)
}

func TestValue_UnmarshalJSON(t *testing.T) {
	var bag Bag
	err := json.Unmarshal([]byte(`{"n": 1.5, "s": "high", "b": true}`), &bag)
	require.NoError(t, err)

	assert.Equal(t, KindNumber, bag["n"].Kind())
	assert.Equal(t, 1.5, bag["n"].Raw())
	assert.Equal(t, KindString, bag["s"].Kind())
	assert.Equal(t, KindBool, bag["b"].Kind())

	err = json.Unmarshal([]byte(`{"bad": [1, 2]}`), &bag)
	assert.Error(t, err)

	out, err := json.Marshal(Bag{"s": String("x")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s": "x"}`, string(out))
}
