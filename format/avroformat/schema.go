package avroformat

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/hamba/avro/v2"

	"github.com/VanDung-dev/tableio/tableerr"
)

// arrowTypeProp records the Arrow type of a field so unsigned and narrow
// integers survive the round trip.
const arrowTypeProp = "arrowType"

var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var primitives = map[arrow.Type]string{
	arrow.BOOL:    "boolean",
	arrow.INT8:    "int",
	arrow.INT16:   "int",
	arrow.INT32:   "int",
	arrow.INT64:   "long",
	arrow.UINT8:   "int",
	arrow.UINT16:  "int",
	arrow.UINT32:  "long",
	arrow.UINT64:  "long",
	arrow.FLOAT32: "float",
	arrow.FLOAT64: "double",
	arrow.STRING:  "string",
}

var fromName = map[string]arrow.DataType{
	arrow.FixedWidthTypes.Boolean.Name(): arrow.FixedWidthTypes.Boolean,
	arrow.PrimitiveTypes.Int8.Name():     arrow.PrimitiveTypes.Int8,
	arrow.PrimitiveTypes.Int16.Name():    arrow.PrimitiveTypes.Int16,
	arrow.PrimitiveTypes.Int32.Name():    arrow.PrimitiveTypes.Int32,
	arrow.PrimitiveTypes.Int64.Name():    arrow.PrimitiveTypes.Int64,
	arrow.PrimitiveTypes.Uint8.Name():    arrow.PrimitiveTypes.Uint8,
	arrow.PrimitiveTypes.Uint16.Name():   arrow.PrimitiveTypes.Uint16,
	arrow.PrimitiveTypes.Uint32.Name():   arrow.PrimitiveTypes.Uint32,
	arrow.PrimitiveTypes.Uint64.Name():   arrow.PrimitiveTypes.Uint64,
	arrow.PrimitiveTypes.Float32.Name():  arrow.PrimitiveTypes.Float32,
	arrow.PrimitiveTypes.Float64.Name():  arrow.PrimitiveTypes.Float64,
	arrow.BinaryTypes.String.Name():      arrow.BinaryTypes.String,
}

var fromAvro = map[avro.Type]arrow.DataType{
	avro.Boolean: arrow.FixedWidthTypes.Boolean,
	avro.Int:     arrow.PrimitiveTypes.Int32,
	avro.Long:    arrow.PrimitiveTypes.Int64,
	avro.Float:   arrow.PrimitiveTypes.Float32,
	avro.Double:  arrow.PrimitiveTypes.Float64,
	avro.String:  arrow.BinaryTypes.String,
}

type fieldJSON struct {
	Name      string `json:"name"`
	Type      any    `json:"type"`
	ArrowType string `json:"arrowType"`
}

// schemaJSON builds the Avro record schema of an Arrow schema. Scalars are
// nullable unions and lists are arrays of their element type.
func schemaJSON(s *arrow.Schema) (string, error) {
	fields := make([]fieldJSON, s.NumFields())
	for i, f := range s.Fields() {
		if !validName.MatchString(f.Name) {
			return "", fmt.Errorf("column name %q is not a valid Avro name", f.Name)
		}
		dt := f.Type
		var typ any
		if lt, ok := dt.(*arrow.ListType); ok {
			prim, ok := primitives[lt.Elem().ID()]
			if !ok {
				return "", unsupported(f)
			}
			typ = map[string]any{"type": "array", "items": prim}
			dt = lt.Elem()
		} else {
			prim, ok := primitives[dt.ID()]
			if !ok {
				return "", unsupported(f)
			}
			typ = []string{"null", prim}
		}
		fields[i] = fieldJSON{Name: f.Name, Type: typ, ArrowType: dt.Name()}
	}

	b, err := json.Marshal(map[string]any{
		"type":   "record",
		"name":   "table",
		"fields": fields,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unsupported(f arrow.Field) error {
	return &tableerr.UnsupportedColumnError{Column: f.Name, Type: f.Type.String()}
}

// arrowField maps a decoded Avro field back to its Arrow field.
func arrowField(f *avro.Field) (arrow.Field, error) {
	var dt arrow.DataType
	if name, ok := f.Prop(arrowTypeProp).(string); ok {
		dt = fromName[name]
	}

	list := false
	typ := f.Type()
	switch t := typ.(type) {
	case *avro.ArraySchema:
		list = true
		typ = t.Items()
	case *avro.UnionSchema:
		for _, member := range t.Types() {
			if member.Type() != avro.Null {
				typ = member
				break
			}
		}
	}
	if dt == nil {
		dt = fromAvro[typ.Type()]
	}
	if dt == nil {
		return arrow.Field{}, fmt.Errorf("field %q: unsupported Avro type %s", f.Name(), typ.Type())
	}
	if list {
		dt = arrow.ListOf(dt)
	}
	return arrow.Field{Name: f.Name(), Type: dt, Nullable: true}, nil
}
