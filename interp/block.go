package interp

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/stepviz-dev/stepviz/vm"
)

// ErrBlockComplete is returned when the current instruction of a
// completed Block is requested. Callers must check IsComplete first.
var ErrBlockComplete = errors.New("block is complete")

// scopeTable is the shared state of one program: the global symbol
// table, the function table and the output sink. It is created once by
// the root Block and handed down by reference to every nested Block,
// never copied.
type scopeTable struct {
	globals   map[string]vm.Value
	functions map[string]*Block
	sink      Sink
}

// Block is a scoped, ordered instruction sequence with a resumable
// program counter. Nested blocks (loop bodies, conditional bodies,
// function bodies) are Blocks themselves and share the root's tables.
type Block struct {
	instructions []Instruction
	parameters   []string
	indent       int
	shared       *scopeTable
	frames       []*Frame
}

// NewBlock creates a root Block with fresh global and function tables.
func NewBlock() *Block {
	return &Block{
		shared: &scopeTable{
			globals:   make(map[string]vm.Value),
			functions: make(map[string]*Block),
			sink:      discardSink{},
		},
		frames: []*Frame{newFrame()},
	}
}

// NewChild creates a Block nested inside parent. It shares the parent's
// global symbol table, function table and sink, and sits one indent
// level deeper.
func NewChild(parent *Block) *Block {
	return &Block{
		indent: parent.indent + 1,
		shared: parent.shared,
		frames: []*Frame{newFrame()},
	}
}

// SetSink routes console output and error reports for the whole
// program, including every nested Block.
func (b *Block) SetSink(sink Sink) {
	if sink == nil {
		sink = discardSink{}
	}
	b.shared.sink = sink
}

// Add appends an instruction, telling it which Block owns it. The
// instruction sequence is fixed once execution begins.
func (b *Block) Add(inst Instruction) {
	inst.SetBlock(b)
	b.instructions = append(b.instructions, inst)
}

// AddParameter declares a parameter name for a block used as a
// function definition. Parameter order is the declaration order.
func (b *Block) AddParameter(name string) {
	b.parameters = append(b.parameters, name)
}

// Parameters returns the declared parameter names, nil for a block
// that is not a function definition.
func (b *Block) Parameters() []string {
	return b.parameters
}

func (b *Block) Length() int {
	return len(b.instructions)
}

func (b *Block) IndentLevel() int {
	return b.indent
}

// frame returns the current activation.
func (b *Block) frame() *Frame {
	return b.frames[len(b.frames)-1]
}

// FrameDepth reports how many activations of this block are live. The
// base frame counts, so an idle block reports 1.
func (b *Block) FrameDepth() int {
	return len(b.frames)
}

// ProgramCounter is the index of the next instruction to consider in
// the current activation. It never exceeds Length.
func (b *Block) ProgramCounter() int {
	return b.frame().PC
}

// IsComplete reports whether the current activation has run every
// instruction.
func (b *Block) IsComplete() bool {
	return b.frame().PC >= len(b.instructions)
}

// Reset rewinds the current activation to the first instruction and
// marks it entered. A caller re-entering a completed Block must reset
// it explicitly.
func (b *Block) Reset() {
	f := b.frame()
	f.PC = 0
	f.Entered = true
}

// InProgress reports whether the current activation has been entered
// and not yet run to completion. Conditionals and loops use this to
// tell a body mid-execution from one awaiting its guard.
func (b *Block) InProgress() bool {
	f := b.frame()
	return f.Entered && f.PC < len(b.instructions)
}

// CurrentInstruction returns the instruction the program counter
// points at, or ErrBlockComplete when the activation has finished.
func (b *Block) CurrentInstruction() (Instruction, error) {
	f := b.frame()
	if f.PC >= len(b.instructions) {
		return nil, ErrBlockComplete
	}
	return b.instructions[f.PC], nil
}

// PreviousInstruction returns the most recently passed instruction,
// or false at position 0.
func (b *Block) PreviousInstruction() (Instruction, bool) {
	f := b.frame()
	if f.PC == 0 {
		return nil, false
	}
	return b.instructions[f.PC-1], true
}

// Step advances the current activation by at most one instruction.
// The instruction's guard is consulted first; a false guard skips it.
// After execution, the repeat flag decides whether the counter
// advances: a repeating instruction (a loop mid-body, a call mid-
// invocation) is evaluated again on the next step. Stepping a
// completed Block is a no-op, except that a finished invocation frame
// is popped so the activation below resumes.
func (b *Block) Step(target RenderTarget, root *Block) {
	f := b.frame()
	if f.PC >= len(b.instructions) {
		if f.Invocation {
			b.popFrame()
		}
		return
	}
	inst := b.instructions[f.PC]
	if !inst.ShouldExecute(root) {
		if e := log.Trace(); e.Enabled() {
			e.Int("pc", f.PC).Str("instruction", oneLine(inst)).Msg("step: guard false, skipping")
		}
		f.PC++
	} else {
		inst.Execute(target, root)
		if inst.ShouldRepeat() {
			if e := log.Trace(); e.Enabled() {
				e.Int("pc", f.PC).Str("instruction", oneLine(inst)).Msg("step: repeating")
			}
		} else {
			f.PC++
		}
	}
	// An invocation frame that just ran its last instruction is
	// unwound immediately, unless a nested call pushed a new frame
	// during this step. Frames on nested bodies unwind with the
	// invocation frame, never on their own.
	if f.PC >= len(b.instructions) && f.Invocation && b.frame() == f {
		b.popFrame()
	}
}

// PushFrame starts a new activation: a fresh frame with a zeroed
// program counter and empty local bindings, on this block and on every
// block structurally nested beneath it. A function invocation is one
// such activation; pushing transitively gives its loop and conditional
// bodies fresh execution state too, so recursive invocations cannot
// see each other's progress.
func (b *Block) PushFrame() *Frame {
	for _, child := range b.nestedBlocks() {
		child.pushOwnFrame()
	}
	f := b.pushOwnFrame()
	f.Invocation = true
	return f
}

func (b *Block) pushOwnFrame() *Frame {
	f := newFrame()
	b.frames = append(b.frames, f)
	return f
}

// popFrame unwinds one activation, on this block and transitively on
// its nested bodies, mirroring PushFrame. Base frames are never
// popped.
func (b *Block) popFrame() {
	b.popOwnFrame()
	for _, child := range b.nestedBlocks() {
		child.popOwnFrame()
	}
}

func (b *Block) popOwnFrame() {
	if len(b.frames) > 1 {
		b.frames = b.frames[:len(b.frames)-1]
	}
}

// nestedBlocks returns every block structurally nested beneath this
// one's instructions, transitively, in instruction order. Function
// definitions are separate trees and are not traversed.
func (b *Block) nestedBlocks() []*Block {
	var out []*Block
	var visit func(blk *Block)
	visit = func(blk *Block) {
		for _, inst := range blk.instructions {
			if child, ok := inst.(*Block); ok {
				out = append(out, child)
				visit(child)
				continue
			}
			if nested, ok := inst.(NestedBlocks); ok {
				for _, child := range nested.Nested() {
					out = append(out, child)
					visit(child)
				}
			}
		}
	}
	visit(b)
	return out
}

// StructurallyEquals reports whether two blocks hold pairwise equal
// instruction sequences, independent of execution state.
func (b *Block) StructurallyEquals(other *Block) bool {
	if other == nil || len(b.instructions) != len(other.instructions) {
		return false
	}
	for i, inst := range b.instructions {
		if !inst.Equal(other.instructions[i]) {
			return false
		}
	}
	return true
}

// Render produces the indentation-aware brace form: one line per
// instruction, tabbed one past this block's indent level.
func (b *Block) Render() string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for _, inst := range b.instructions {
		sb.WriteString(strings.Repeat("\t", b.indent+1))
		sb.WriteString(inst.Render())
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Repeat("\t", b.indent))
	sb.WriteString("}\n")
	return sb.String()
}

// Print writes text to the program's output sink.
func (b *Block) Print(text string) {
	b.shared.sink.Print(text)
}

// ReportError reports a runtime instruction error through the sink.
// Errors never abort the step machine; it advances past the failing
// instruction.
func (b *Block) ReportError(text string) {
	b.shared.sink.ReportError(text)
}

// A Block is itself an Instruction, so a bare nested block can sit in
// an instruction sequence as a composite.

func (b *Block) ShouldExecute(*Block) bool {
	return true
}

func (b *Block) Execute(target RenderTarget, root *Block) {
	if !b.InProgress() {
		b.Reset()
	}
	b.Step(target, root)
}

func (b *Block) ShouldRepeat() bool {
	return b.InProgress()
}

func (b *Block) Equal(other Instruction) bool {
	o, ok := other.(*Block)
	return ok && b.StructurallyEquals(o)
}

func (b *Block) SetBlock(*Block) {}

// oneLine trims an instruction render to its first line for trace
// logging.
func oneLine(inst Instruction) string {
	s := inst.Render()
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
