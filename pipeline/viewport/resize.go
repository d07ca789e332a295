package viewport

import (
	"math"
	"reflect"
	"strings"
)

// ResizeDimensions extracts a (width, height) pair from a loosely typed resize
// event. Explicit width/height fields win over a size pair, which wins over a
// logical_size pair. Maps keyed by string and structs (or pointers to either)
// are accepted; pairs may be arrays, two-element slices or width/height
// structs. Anything malformed reports ok=false rather than an error.
func ResizeDimensions(event any) (w, h float64, ok bool) {
	v := deref(reflect.ValueOf(event))
	if !v.IsValid() {
		return 0, 0, false
	}

	if w, h, ok := widthHeight(v); ok {
		return w, h, true
	}
	if w, h, ok := pair(lookup(v, "size", "Size")); ok {
		return w, h, true
	}
	if w, h, ok := pair(lookup(v, "logical_size", "LogicalSize")); ok {
		return w, h, true
	}
	return 0, 0, false
}

func widthHeight(v reflect.Value) (float64, float64, bool) {
	w, okW := number(lookup(v, "width", "Width"))
	h, okH := number(lookup(v, "height", "Height"))
	if okW && okH {
		return w, h, true
	}
	return 0, 0, false
}

func pair(v reflect.Value) (float64, float64, bool) {
	v = deref(v)
	if !v.IsValid() {
		return 0, 0, false
	}
	switch v.Kind() {
	case reflect.Array, reflect.Slice:
		if v.Len() != 2 {
			return 0, 0, false
		}
		w, okW := number(v.Index(0))
		h, okH := number(v.Index(1))
		if okW && okH {
			return w, h, true
		}
	case reflect.Struct, reflect.Map:
		return widthHeight(v)
	}
	return 0, 0, false
}

// lookup finds a map entry or exported struct field by either spelling.
func lookup(v reflect.Value, mapKey, field string) reflect.Value {
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}
		}
		for _, k := range []string{mapKey, field} {
			e := v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key()))
			if e.IsValid() {
				return e
			}
		}
	case reflect.Struct:
		f := v.FieldByNameFunc(func(name string) bool {
			return name == field || strings.EqualFold(name, strings.ReplaceAll(mapKey, "_", ""))
		})
		if f.IsValid() && f.CanInterface() {
			return f
		}
	}
	return reflect.Value{}
}

func number(v reflect.Value) (float64, bool) {
	v = deref(v)
	if !v.IsValid() {
		return 0, false
	}
	var f float64
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f = float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		f = float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		f = v.Float()
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// deref unwraps pointers and interfaces; nil yields the zero Value.
func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
