package interp

// RenderTarget is the opaque drawing surface handed to instructions on
// every step. The interpreter core never inspects it.
type RenderTarget any

// Instruction is the capability every executable statement variant
// satisfies. A Block steps at most one instruction per call: the guard
// is consulted first, then Execute runs, then the repeat flag decides
// whether the program counter advances.
type Instruction interface {
	// ShouldExecute is the per-step guard. A plain statement returns
	// true; a conditional or loop checks its condition here.
	ShouldExecute(root *Block) bool

	// Execute performs the instruction's effect. root is the scope the
	// current activation evaluates against; target passes through to
	// any drawing the instruction does.
	Execute(target RenderTarget, root *Block)

	// ShouldRepeat reports whether the same instruction must be
	// evaluated again on the next step instead of advancing.
	ShouldRepeat() bool

	// Equal reports structural equality with another instruction,
	// independent of execution state.
	Equal(other Instruction) bool

	// Render returns the single-line (or brace-block) textual form.
	Render() string

	// SetBlock tells the instruction which Block owns it, so it can
	// resolve symbols against its enclosing scope.
	SetBlock(owner *Block)
}

// NestedBlocks is implemented by composite instructions that own child
// Blocks, so execution state can be walked for snapshots.
type NestedBlocks interface {
	Nested() []*Block
}

// Activation pairs a function definition with the frame one pending
// invocation pushed on it. A nil Frame never occurs; an activation
// whose frame has already unwound carries a detached frame whose
// counter sits past the definition's last instruction.
type Activation struct {
	Def   *Block
	Frame *Frame
}

// ActivationHolder is implemented by instructions that track pending
// activations outside the frame stacks, so snapshots can capture and
// restore them. Activations are returned oldest first.
type ActivationHolder interface {
	Activations() []Activation
	AdoptActivations(acts []Activation)
}

// Sink receives console output and runtime error reports. Instruction
// failures are routed here rather than through step control flow.
type Sink interface {
	Print(text string)
	ReportError(text string)
}

type discardSink struct{}

func (discardSink) Print(string)       {}
func (discardSink) ReportError(string) {}
