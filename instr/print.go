package instr

import (
	"strconv"

	"github.com/stepviz-dev/stepviz/interp"
	"github.com/stepviz-dev/stepviz/vm"
)

// Print writes a literal text or an evaluated expression to the
// program's output sink.
type Print struct {
	Text string
	Expr vm.Expression
}

func (p *Print) ShouldExecute(*interp.Block) bool {
	return true
}

func (p *Print) Execute(_ interp.RenderTarget, root *interp.Block) {
	if p.Expr == nil {
		root.Print(p.Text)
		return
	}
	v, err := p.Expr.Evaluate(root)
	if err != nil {
		root.ReportError(err.Error())
		return
	}
	root.Print(formatNumber(v))
}

func (p *Print) ShouldRepeat() bool {
	return false
}

func (p *Print) Equal(other interp.Instruction) bool {
	o, ok := other.(*Print)
	if !ok || o.Text != p.Text {
		return false
	}
	if (p.Expr == nil) != (o.Expr == nil) {
		return false
	}
	return p.Expr == nil || p.Expr.Equal(o.Expr)
}

func (p *Print) Render() string {
	if p.Expr != nil {
		return "print " + p.Expr.Render()
	}
	return "print " + strconv.Quote(p.Text)
}

func (p *Print) SetBlock(*interp.Block) {}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
