package instr

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stepviz-dev/stepviz/interp"
	"github.com/stepviz-dev/stepviz/vm"
)

// Call invokes a function definition registered at the root. Each
// invocation binds its arguments into a fresh frame on the definition
// block, then steps the callee once per outer step until that frame
// completes. The callee is passed as its own execution scope, so its
// body reads parameters from the invocation frame.
//
// Pending invocations form a stack: a recursive call through this same
// node pushes another frame instead of touching the one in flight, and
// activations unwind strictly innermost-first.
type Call struct {
	Name string
	Args map[string]vm.Expression

	invocations []*invocation
	finished    bool
}

type invocation struct {
	id       string
	def      *interp.Block
	frame    *interp.Frame
	stepping bool
}

func (inv *invocation) done() bool {
	return inv.frame.PC >= inv.def.Length()
}

func (c *Call) ShouldExecute(*interp.Block) bool {
	return true
}

func (c *Call) Execute(target interp.RenderTarget, root *interp.Block) {
	c.finished = false
	if n := len(c.invocations); n > 0 {
		inv := c.invocations[n-1]
		if inv.done() {
			c.invocations = c.invocations[:n-1]
			c.finished = true
			log.Trace().Str("function", c.Name).Str("invocation", inv.id).Msg("call returned")
			return
		}
		if !inv.stepping {
			inv.stepping = true
			inv.def.Step(target, inv.def)
			inv.stepping = false
			return
		}
		// Re-entered while the top invocation is mid-step: this is a
		// recursive call through the same node. Fall through and start
		// a new activation.
	}

	def, ok := root.Definition(c.Name)
	if !ok {
		root.ReportError("unknown function: " + c.Name)
		c.finished = true
		return
	}
	frame := def.BindParameters(c.Args, root)
	inv := &invocation{
		id:    uuid.NewString(),
		def:   def,
		frame: frame,
	}
	c.invocations = append(c.invocations, inv)
	log.Trace().Str("function", c.Name).Str("invocation", inv.id).Int("depth", len(c.invocations)).Msg("call started")
}

func (c *Call) ShouldRepeat() bool {
	return !c.finished
}

func (c *Call) Equal(other interp.Instruction) bool {
	o, ok := other.(*Call)
	if !ok || o.Name != c.Name || len(o.Args) != len(c.Args) {
		return false
	}
	for name, e := range c.Args {
		oe, ok := o.Args[name]
		if !ok || !e.Equal(oe) {
			return false
		}
	}
	return true
}

func (c *Call) Render() string {
	names := make([]string, 0, len(c.Args))
	for name := range c.Args {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " = " + c.Args[name].Render()
	}
	return "call " + c.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (c *Call) SetBlock(*interp.Block) {}

// Activations exposes the pending invocation stack for snapshots,
// oldest first.
func (c *Call) Activations() []interp.Activation {
	out := make([]interp.Activation, len(c.invocations))
	for i, inv := range c.invocations {
		out[i] = interp.Activation{Def: inv.def, Frame: inv.frame}
	}
	return out
}

// AdoptActivations replaces the pending invocation stack after a
// snapshot restore.
func (c *Call) AdoptActivations(acts []interp.Activation) {
	c.invocations = nil
	c.finished = false
	for _, act := range acts {
		c.invocations = append(c.invocations, &invocation{
			id:    uuid.NewString(),
			def:   act.Def,
			frame: act.Frame,
		})
	}
}
