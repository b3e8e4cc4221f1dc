package avroformat

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/array"
)

// appendAny appends a decoded Avro value to b.
func appendAny(b array.Builder, v any) error {
	// Unresolved unions decode as a single-entry map keyed by type name.
	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		for _, inner := range m {
			v = inner
		}
	}
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch bb := b.(type) {
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		bb.Append(x)
	case *array.StringBuilder:
		x, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		bb.Append(x)
	case *array.Float32Builder:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		bb.Append(float32(x))
	case *array.Float64Builder:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		bb.Append(x)
	case *array.Int8Builder, *array.Int16Builder, *array.Int32Builder, *array.Int64Builder,
		*array.Uint8Builder, *array.Uint16Builder, *array.Uint32Builder, *array.Uint64Builder:
		x, err := toInt(v)
		if err != nil {
			return err
		}
		appendInt(b, x)
	case *array.ListBuilder:
		xs, ok := v.([]any)
		if !ok {
			return fmt.Errorf("expected array, got %T", v)
		}
		bb.Append(true)
		for _, x := range xs {
			if err := appendAny(bb.ValueBuilder(), x); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

func appendInt(b array.Builder, x int64) {
	switch bb := b.(type) {
	case *array.Int8Builder:
		bb.Append(int8(x))
	case *array.Int16Builder:
		bb.Append(int16(x))
	case *array.Int32Builder:
		bb.Append(int32(x))
	case *array.Int64Builder:
		bb.Append(x)
	case *array.Uint8Builder:
		bb.Append(uint8(x))
	case *array.Uint16Builder:
		bb.Append(uint16(x))
	case *array.Uint32Builder:
		bb.Append(uint32(x))
	case *array.Uint64Builder:
		bb.Append(uint64(x))
	}
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	}
	return 0, fmt.Errorf("expected float, got %T", v)
}
