// Package selection compiles row-filter expressions and evaluates them
// against Arrow records.
//
// Expressions use the Common Expression Language. Every column whose name
// is a valid identifier is available as a variable, so ROOT-style
// selections such as "a > 0 && b < 5" evaluate unchanged.
package selection

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/cel-go/cel"
)

// Separator joins the parts of a sequence selection.
const Separator = " && "

// Join combines several selection expressions with a logical AND.
func Join(parts []string) string {
	return strings.Join(parts, Separator)
}

// Normalize converts a selection option value into a single expression.
// It accepts a string, a []string or a []any holding only strings; nil
// yields the empty expression.
func Normalize(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case []string:
		return Join(s), nil
	case []any:
		parts := make([]string, len(s))
		for i, p := range s {
			str, ok := p.(string)
			if !ok {
				return "", fmt.Errorf("selection element %d is %T, expected string", i, p)
			}
			parts[i] = str
		}
		return Join(parts), nil
	default:
		return "", fmt.Errorf("selection must be a string or a list of strings, got %T", v)
	}
}

var identRE = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

var reserved = map[string]bool{
	"true": true, "false": true, "null": true, "in": true, "as": true,
	"break": true, "const": true, "continue": true, "else": true,
	"for": true, "function": true, "if": true, "import": true, "let": true,
	"loop": true, "package": true, "namespace": true, "return": true,
	"var": true, "void": true, "while": true,
}

type variable struct {
	name  string
	index int
}

// Program is a compiled selection ready for evaluation against records
// sharing the schema it was compiled for.
type Program struct {
	expr    string
	program cel.Program
	vars    []variable
}

// Compile compiles expr against the columns of schema. The expression must
// return a bool.
func Compile(expr string, schema *arrow.Schema) (*Program, error) {
	opts := []cel.EnvOption{cel.CrossTypeNumericComparisons(true)}
	var vars []variable
	for i, f := range schema.Fields() {
		if !identRE.MatchString(f.Name) || reserved[f.Name] {
			continue
		}
		typ, ok := celType(f.Type)
		if !ok {
			continue
		}
		opts = append(opts, cel.Variable(f.Name, typ))
		vars = append(vars, variable{name: f.Name, index: i})
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile selection %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("selection %q must return bool, got %v", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program selection %q: %w", expr, err)
	}
	return &Program{expr: expr, program: prg, vars: vars}, nil
}

// String returns the source expression.
func (p *Program) String() string { return p.expr }

// Eval evaluates the program for one row of rec. Rows where a column the
// expression depends on is null evaluate to an error.
func (p *Program) Eval(rec arrow.Record, row int) (bool, error) {
	vars := make(map[string]any, len(p.vars))
	for _, v := range p.vars {
		val, _ := Value(rec.Column(v.index), row)
		vars[v.name] = val
	}

	out, _, err := p.program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("eval selection %q at row %d: %w", p.expr, row, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("selection result is not bool: %T", out.Value())
	}
	return b, nil
}

// Mask evaluates the program for every row and returns a boolean array.
// Rows holding nulls that make the expression fail are masked out.
func (p *Program) Mask(ctx context.Context, rec arrow.Record, mem memory.Allocator) (*array.Boolean, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	b := array.NewBooleanBuilder(mem)
	defer b.Release()

	n := int(rec.NumRows())
	b.Reserve(n)
	for i := 0; i < n; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ok, err := p.Eval(rec, i)
		if err != nil {
			if p.rowHasNull(rec, i) {
				b.Append(false)
				continue
			}
			return nil, err
		}
		b.Append(ok)
	}
	return b.NewBooleanArray(), nil
}

// Filter returns a new record holding only the rows that satisfy the
// program.
func (p *Program) Filter(ctx context.Context, rec arrow.Record) (arrow.Record, error) {
	mask, err := p.Mask(ctx, rec, memory.DefaultAllocator)
	if err != nil {
		return nil, err
	}
	defer mask.Release()

	out, err := compute.FilterRecordBatch(ctx, rec, mask, compute.DefaultFilterOptions())
	if err != nil {
		return nil, fmt.Errorf("filter record: %w", err)
	}
	return out, nil
}

func (p *Program) rowHasNull(rec arrow.Record, row int) bool {
	for _, v := range p.vars {
		if rec.Column(v.index).IsNull(row) {
			return true
		}
	}
	return false
}

// Apply compiles expr for rec's schema and filters rec. An empty expression
// returns rec itself with an extra reference.
func Apply(ctx context.Context, rec arrow.Record, expr string) (arrow.Record, error) {
	if strings.TrimSpace(expr) == "" {
		rec.Retain()
		return rec, nil
	}
	prg, err := Compile(expr, rec.Schema())
	if err != nil {
		return nil, err
	}
	return prg.Filter(ctx, rec)
}
