package vm

import (
	"fmt"
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	exprvm "github.com/expr-lang/expr/vm"
)

// Scope supplies the symbols visible to an expression at evaluation
// time. Scalar symbols appear as float64, list symbols as []float64.
type Scope interface {
	SymbolEnv() map[string]any
}

// Expression is the "evaluate in this scope" capability consumed by
// instructions. Evaluation never mutates the scope.
type Expression interface {
	Evaluate(scope Scope) (float64, error)
	Render() string
	Equal(other Expression) bool
}

// Const is a literal number expression.
type Const float64

func (c Const) Evaluate(Scope) (float64, error) {
	return float64(c), nil
}

func (c Const) Render() string {
	return strconv.FormatFloat(float64(c), 'g', -1, 64)
}

func (c Const) Equal(other Expression) bool {
	o, ok := other.(Const)
	return ok && o == c
}

// Compiled is an expression compiled once from source and evaluated
// against a Scope on every use.
type Compiled struct {
	src     string
	program *exprvm.Program
	idents  []string
}

// identCollector records every identifier referenced by an expression
// so unresolved symbols can be defaulted before each run.
type identCollector struct {
	names []string
}

func (c *identCollector) Visit(node *ast.Node) {
	if ident, ok := (*node).(*ast.IdentifierNode); ok {
		c.names = append(c.names, ident.Value)
	}
}

// CompileExpr compiles an expression source string. The referenced
// identifiers are recorded up front: any identifier missing from the
// scope at evaluation time reads as 0 rather than failing, keeping
// unknown-symbol leniency in one place.
func CompileExpr(src string) (*Compiled, error) {
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing expression %q: %w", src, err)
	}
	collector := &identCollector{}
	ast.Walk(&tree.Node, collector)

	program, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compiling expression %q: %w", src, err)
	}
	return &Compiled{
		src:     src,
		program: program,
		idents:  collector.names,
	}, nil
}

// MustCompileExpr is CompileExpr for expressions known to be valid.
func MustCompileExpr(src string) *Compiled {
	c, err := CompileExpr(src)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Compiled) Evaluate(scope Scope) (float64, error) {
	var env map[string]any
	if scope != nil {
		env = scope.SymbolEnv()
	}
	if env == nil {
		env = make(map[string]any)
	}
	for _, name := range c.idents {
		if _, ok := env[name]; !ok {
			env[name] = float64(0)
		}
	}
	out, err := exprvm.Run(c.program, env)
	if err != nil {
		return 0, fmt.Errorf("evaluating %q: %w", c.src, err)
	}
	return asNumber(out)
}

func (c *Compiled) Render() string {
	return c.src
}

func (c *Compiled) Equal(other Expression) bool {
	o, ok := other.(*Compiled)
	return ok && o.src == c.src
}

func asNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, nil
	case []float64:
		return ListValue(n).First(), nil
	default:
		return 0, fmt.Errorf("expression result %T is not a number", v)
	}
}
