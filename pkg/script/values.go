package script

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// functions are callable from every script.
var functions = map[string]function.Function{
	"abs":        stdlib.AbsoluteFunc,
	"coalesce":   stdlib.CoalesceFunc,
	"concat":     stdlib.ConcatFunc,
	"format":     stdlib.FormatFunc,
	"join":       stdlib.JoinFunc,
	"jsonencode": stdlib.JSONEncodeFunc,
	"keys":       stdlib.KeysFunc,
	"length":     stdlib.LengthFunc,
	"lower":      stdlib.LowerFunc,
	"max":        stdlib.MaxFunc,
	"merge":      stdlib.MergeFunc,
	"min":        stdlib.MinFunc,
	"range":      stdlib.RangeFunc,
	"upper":      stdlib.UpperFunc,
	"values":     stdlib.ValuesFunc,
}

// ToNative converts a cty value to plain Go: string, int64, float64, bool,
// []any, map[string]any or nil.
func ToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var out []any
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		if out == nil {
			out = []any{}
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := ToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}

// ToValue converts decoded YAML/JSON-like Go data into a cty value. Mappings
// become objects and sequences become tuples, so heterogeneous data is kept.
// Every input converts: infinities map to cty's infinities, NaN to a null
// number, and values with no cty counterpart to their fmt.Sprint form.
func ToValue(v any) cty.Value {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case cty.Value:
		return val
	case string:
		return cty.StringVal(val)
	case bool:
		return cty.BoolVal(val)
	case int:
		return cty.NumberIntVal(int64(val))
	case int64:
		return cty.NumberIntVal(val)
	case uint64:
		return cty.NumberUIntVal(val)
	case float64:
		return floatValue(val)
	case time.Time:
		return cty.StringVal(val.Format(time.RFC3339))
	case map[string]any:
		if len(val) == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, len(val))
		for k, elem := range val {
			attrs[k] = ToValue(elem)
		}
		return cty.ObjectVal(attrs)
	case []any:
		if len(val) == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, 0, len(val))
		for _, elem := range val {
			elems = append(elems, ToValue(elem))
		}
		return cty.TupleVal(elems)
	default:
		return reflectValue(reflect.ValueOf(v))
	}
}

// reflectValue converts typed slices, maps, pointers and scalars that
// ToValue does not list explicitly.
func reflectValue(rv reflect.Value) cty.Value {
	switch rv.Kind() {
	case reflect.Invalid:
		return cty.NullVal(cty.DynamicPseudoType)

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return cty.NullVal(cty.DynamicPseudoType)
		}
		return ToValue(rv.Elem().Interface())

	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, 0, rv.Len())
		for i := range rv.Len() {
			elems = append(elems, ToValue(rv.Index(i).Interface()))
		}
		return cty.TupleVal(elems)

	case reflect.Map:
		if rv.Len() == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			attrs[fmt.Sprint(iter.Key().Interface())] = ToValue(iter.Value().Interface())
		}
		return cty.ObjectVal(attrs)

	case reflect.String:
		return cty.StringVal(rv.String())
	case reflect.Bool:
		return cty.BoolVal(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cty.NumberIntVal(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cty.NumberUIntVal(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return floatValue(rv.Float())

	case reflect.Struct:
		// Structs with cty tags convert field by field.
		if ty, err := gocty.ImpliedType(rv.Interface()); err == nil {
			if cv, err := gocty.ToCtyValue(rv.Interface(), ty); err == nil {
				return cv
			}
		}
	}

	return cty.StringVal(fmt.Sprint(rv.Interface()))
}

// floatValue converts f, mapping NaN to a null number.
func floatValue(f float64) cty.Value {
	switch {
	case math.IsNaN(f):
		return cty.NullVal(cty.Number)
	case math.IsInf(f, 1):
		return cty.PositiveInfinity
	case math.IsInf(f, -1):
		return cty.NegativeInfinity
	default:
		return cty.NumberFloatVal(f)
	}
}
