package instr

import (
	"strings"

	"github.com/stepviz-dev/stepviz/interp"
	"github.com/stepviz-dev/stepviz/vm"
)

// If runs its body Block once when the condition holds on entry. The
// condition is only consulted while the body is not mid-execution, so
// a symbol flipping mid-body cannot abort it. All execution state
// lives in the body's activation frame, never on this node, which
// keeps recursive activations independent.
type If struct {
	Cond vm.Expression
	Body *interp.Block
}

func (c *If) ShouldExecute(root *interp.Block) bool {
	if c.Body.InProgress() {
		return true
	}
	return truthy(c.Cond, root)
}

func (c *If) Execute(target interp.RenderTarget, root *interp.Block) {
	if !c.Body.InProgress() {
		c.Body.Reset()
	}
	c.Body.Step(target, root)
}

func (c *If) ShouldRepeat() bool {
	return c.Body.InProgress()
}

func (c *If) Equal(other interp.Instruction) bool {
	o, ok := other.(*If)
	return ok && c.Cond.Equal(o.Cond) && c.Body.StructurallyEquals(o.Body)
}

func (c *If) Render() string {
	return "if " + c.Cond.Render() + " " + strings.TrimSuffix(c.Body.Render(), "\n")
}

func (c *If) SetBlock(*interp.Block) {}

func (c *If) Nested() []*interp.Block {
	return []*interp.Block{c.Body}
}

// truthy evaluates a condition, reporting evaluation failures through
// the sink and treating them as false.
func truthy(cond vm.Expression, root *interp.Block) bool {
	v, err := cond.Evaluate(root)
	if err != nil {
		root.ReportError(err.Error())
		return false
	}
	return v != 0
}
