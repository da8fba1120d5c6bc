package interp

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/stepviz-dev/stepviz/vm"
)

// HasSymbol reports whether name is bound locally in the current
// activation or in the shared global table.
func (b *Block) HasSymbol(name string) bool {
	if _, ok := b.frame().local(name); ok {
		return true
	}
	_, ok := b.shared.globals[name]
	return ok
}

// Read resolves name, local bindings first, then the shared globals.
// If index is non-nil it is evaluated in the caller scope and applied
// to a list value; indices outside the list read element 0. An unknown
// symbol reads 0 rather than failing.
func (b *Block) Read(name string, index vm.Expression, caller vm.Scope) float64 {
	idx := 0
	if index != nil {
		n, err := index.Evaluate(caller)
		if err != nil {
			b.ReportError(fmt.Sprintf("index of %s: %s", name, err))
		} else {
			idx = int(n)
		}
	}
	return b.ReadAt(name, idx)
}

// ReadAt is Read with an already-computed integer index.
func (b *Block) ReadAt(name string, index int) float64 {
	if v, ok := b.frame().local(name); ok {
		return valueAt(v, index)
	}
	if v, ok := b.shared.globals[name]; ok {
		return valueAt(v, index)
	}
	return 0
}

func valueAt(v vm.Value, index int) float64 {
	if l, ok := v.(vm.ListValue); ok {
		return l.At(index)
	}
	return v.First()
}

// Assign evaluates the given expressions in scope and stores the
// result under name in the shared global table: one expression stores
// a scalar, two or more store a fixed-length list. Plain assignment is
// always global, never local; parameters are the only locals.
func (b *Block) Assign(name string, scope vm.Scope, exprs ...vm.Expression) error {
	switch len(exprs) {
	case 0:
		return fmt.Errorf("assignment to %s has no expressions", name)
	case 1:
		v, err := exprs[0].Evaluate(scope)
		if err != nil {
			return err
		}
		b.shared.globals[name] = vm.ScalarValue(v)
	default:
		list := make(vm.ListValue, len(exprs))
		for i, e := range exprs {
			v, err := e.Evaluate(scope)
			if err != nil {
				return err
			}
			list[i] = v
		}
		b.shared.globals[name] = list
	}
	return nil
}

// AssignValue stores an already-built value under name in the shared
// global table.
func (b *Block) AssignValue(name string, v vm.Value) {
	b.shared.globals[name] = v
}

// AssignLocal binds name in the current activation's local table. Used
// exclusively for parameter binding; a local shadows a same-named
// global on reads but plain Assign never touches it.
func (b *Block) AssignLocal(name string, value float64) {
	b.frame().storeLocal(name, vm.ScalarValue(value))
}

// SymbolEnv materializes every symbol visible from this block for
// expression evaluation: globals first, overlaid by the current
// activation's locals. Scalars appear as float64, lists as []float64.
func (b *Block) SymbolEnv() map[string]any {
	env := make(map[string]any, len(b.shared.globals)+len(b.frame().Locals))
	for name, v := range b.shared.globals {
		env[name] = envValue(v)
	}
	for name, v := range b.frame().Locals {
		env[name] = envValue(v)
	}
	return env
}

func envValue(v vm.Value) any {
	if l, ok := v.(vm.ListValue); ok {
		return []float64(l.Clone())
	}
	return v.First()
}

// Define registers a block as the function definition for name in the
// shared function table. Redefining overwrites.
func (b *Block) Define(name string, def *Block) {
	b.shared.functions[name] = def
}

// Definition looks up a function definition by name.
func (b *Block) Definition(name string) (*Block, bool) {
	def, ok := b.shared.functions[name]
	return def, ok
}

// FunctionNames returns the registered definition names in no
// particular order.
func (b *Block) FunctionNames() []string {
	names := make([]string, 0, len(b.shared.functions))
	for name := range b.shared.functions {
		names = append(names, name)
	}
	return names
}

// BindParameters starts a new activation of this function block:
// every supplied argument expression is evaluated in the caller scope
// first, then a fresh frame is pushed and the results are bound as
// locals. Arguments must be evaluated before the push: a self-call
// reads the invoking activation's bindings, not the new empty frame.
// Parameters without an argument
// are left unbound and read as 0. Returns the pushed frame.
func (b *Block) BindParameters(args map[string]vm.Expression, caller vm.Scope) *Frame {
	bound := make(map[string]float64, len(args))
	for _, param := range b.parameters {
		expr, ok := args[param]
		if !ok {
			continue
		}
		v, err := expr.Evaluate(caller)
		if err != nil {
			b.ReportError(fmt.Sprintf("argument %s: %s", param, err))
			continue
		}
		bound[param] = v
	}
	f := b.PushFrame()
	for name, v := range bound {
		f.storeLocal(name, vm.ScalarValue(v))
	}
	log.Trace().Int("depth", len(b.frames)).Int("bound", len(bound)).Msg("bound parameters for new activation")
	return f
}
