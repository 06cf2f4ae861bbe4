package script

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestToValue_RoundTrip(t *testing.T) {
	in := map[string]any{
		"name":    "demo",
		"count":   7,
		"ratio":   0.25,
		"enabled": true,
		"nothing": nil,
		"tags":    []any{"a", 1},
		"nested":  map[string]any{"deep": map[string]any{}},
		"empty":   []any{},
	}

	v := ToValue(in)
	assert.True(t, v.Type().IsObjectType())

	out, err := ToNative(v)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":    "demo",
		"count":   int64(7),
		"ratio":   0.25,
		"enabled": true,
		"nothing": nil,
		"tags":    []any{"a", int64(1)},
		"nested":  map[string]any{"deep": map[string]any{}},
		"empty":   []any{},
	}, out)
}

func TestToValue_Time(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	v := ToValue(ts)
	assert.Equal(t, cty.StringVal("2024-01-02T03:04:05Z"), v)
}

func TestToValue_NonFinite(t *testing.T) {
	assert.Equal(t, cty.PositiveInfinity, ToValue(math.Inf(1)))
	assert.Equal(t, cty.NegativeInfinity, ToValue(math.Inf(-1)))
	assert.True(t, ToValue(math.NaN()).IsNull())

	out, err := ToNative(ToValue(map[string]any{"threshold": math.Inf(1)}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"threshold": math.Inf(1)}, out)
}

func TestToValue_TypedCollections(t *testing.T) {
	type label string
	n := 4

	tests := []struct {
		name string
		in   any
		want any
	}{
		{
			name: "slice of maps",
			in:   []map[string]any{{"a": 1}, {"b": "x"}},
			want: []any{map[string]any{"a": int64(1)}, map[string]any{"b": "x"}},
		},
		{
			name: "typed slice",
			in:   []string{"a", "b"},
			want: []any{"a", "b"},
		},
		{
			name: "non-string keys",
			in:   map[any]any{1: true, "k": []int{2}},
			want: map[string]any{"1": true, "k": []any{int64(2)}},
		},
		{
			name: "typed map",
			in:   map[string]float32{"half": 0.5},
			want: map[string]any{"half": 0.5},
		},
		{
			name: "named scalar",
			in:   label("x"),
			want: "x",
		},
		{
			name: "pointer",
			in:   &n,
			want: int64(4),
		},
		{
			name: "nil pointer",
			in:   (*int)(nil),
			want: nil,
		},
		{
			name: "empty typed slice",
			in:   []int{},
			want: []any{},
		},
		{
			name: "unsupported kind",
			in:   complex(1, 2),
			want: "(1+2i)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ToNative(ToValue(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestToNative_Set(t *testing.T) {
	v := cty.SetVal([]cty.Value{cty.StringVal("x")})
	out, err := ToNative(v)
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, out)
}
