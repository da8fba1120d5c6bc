package instr

import (
	"strings"

	"github.com/stepviz-dev/stepviz/interp"
	"github.com/stepviz-dev/stepviz/vm"
)

// Assign evaluates one or more expressions and stores the result under
// Name in the shared global table: a single expression stores a
// scalar, several store a fixed-length list.
type Assign struct {
	Name  string
	Exprs []vm.Expression

	owner *interp.Block
}

func (a *Assign) ShouldExecute(*interp.Block) bool {
	return true
}

func (a *Assign) Execute(_ interp.RenderTarget, root *interp.Block) {
	if err := a.owner.Assign(a.Name, root, a.Exprs...); err != nil {
		root.ReportError(err.Error())
	}
}

func (a *Assign) ShouldRepeat() bool {
	return false
}

func (a *Assign) Equal(other interp.Instruction) bool {
	o, ok := other.(*Assign)
	if !ok || o.Name != a.Name || len(o.Exprs) != len(a.Exprs) {
		return false
	}
	for i, e := range a.Exprs {
		if !e.Equal(o.Exprs[i]) {
			return false
		}
	}
	return true
}

func (a *Assign) Render() string {
	parts := make([]string, len(a.Exprs))
	for i, e := range a.Exprs {
		parts[i] = e.Render()
	}
	return a.Name + " = " + strings.Join(parts, ", ")
}

func (a *Assign) SetBlock(owner *interp.Block) {
	a.owner = owner
}
