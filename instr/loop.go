package instr

import (
	"strings"

	"github.com/stepviz-dev/stepviz/interp"
	"github.com/stepviz-dev/stepviz/vm"
)

// While re-runs its body Block for as long as the condition holds. The
// condition is checked once per entry, the body then steps to
// completion before the next check; iteration happens through the
// repeat flag, never by unrolling. The enclosing counter only advances
// when the guard fails. Like If, all execution state lives in the
// body's activation frame.
type While struct {
	Cond vm.Expression
	Body *interp.Block
}

func (w *While) ShouldExecute(root *interp.Block) bool {
	if w.Body.InProgress() {
		return true
	}
	return truthy(w.Cond, root)
}

func (w *While) Execute(target interp.RenderTarget, root *interp.Block) {
	if !w.Body.InProgress() {
		w.Body.Reset()
	}
	w.Body.Step(target, root)
}

func (w *While) ShouldRepeat() bool {
	// Exit happens through the guard: once it evaluates false the
	// enclosing block skips this instruction and advances.
	return true
}

func (w *While) Equal(other interp.Instruction) bool {
	o, ok := other.(*While)
	return ok && w.Cond.Equal(o.Cond) && w.Body.StructurallyEquals(o.Body)
}

func (w *While) Render() string {
	return "while " + w.Cond.Render() + " " + strings.TrimSuffix(w.Body.Render(), "\n")
}

func (w *While) SetBlock(*interp.Block) {}

func (w *While) Nested() []*interp.Block {
	return []*interp.Block{w.Body}
}
