package interp

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeInst is a scriptable instruction for exercising the step
// machine without pulling in real instruction variants.
type fakeInst struct {
	name   string
	guard  func() bool
	repeat func() bool
	run    func()
}

func (f *fakeInst) ShouldExecute(*Block) bool {
	if f.guard != nil {
		return f.guard()
	}
	return true
}

func (f *fakeInst) Execute(_ RenderTarget, _ *Block) {
	if f.run != nil {
		f.run()
	}
}

func (f *fakeInst) ShouldRepeat() bool {
	if f.repeat != nil {
		return f.repeat()
	}
	return false
}

func (f *fakeInst) Equal(other Instruction) bool {
	o, ok := other.(*fakeInst)
	return ok && o.name == f.name
}

func (f *fakeInst) Render() string {
	return f.name
}

func (f *fakeInst) SetBlock(*Block) {}

// recordSink collects output for assertions.
type recordSink struct {
	prints []string
	errors []string
}

func (s *recordSink) Print(text string) {
	s.prints = append(s.prints, text)
}

func (s *recordSink) ReportError(text string) {
	s.errors = append(s.errors, text)
}

func TestStepAdvancesOncePerCall(t *testing.T) {
	b := NewBlock()
	ran := 0
	for i := 0; i < 3; i++ {
		b.Add(&fakeInst{name: "n", run: func() { ran++ }})
	}

	require.Equal(t, 3, b.Length())
	for i := 0; i < 3; i++ {
		require.Equal(t, i, b.ProgramCounter())
		require.False(t, b.IsComplete())
		b.Step(nil, b)
	}
	require.Equal(t, 3, ran)
	require.Equal(t, 3, b.ProgramCounter())
	require.True(t, b.IsComplete())
}

func TestStepOnCompleteIsNoop(t *testing.T) {
	b := NewBlock()
	ran := 0
	b.Add(&fakeInst{run: func() { ran++ }})

	b.Step(nil, b)
	require.True(t, b.IsComplete())
	b.Step(nil, b)
	b.Step(nil, b)
	require.Equal(t, 1, ran)
	require.Equal(t, 1, b.ProgramCounter())
}

func TestFalseGuardSkipsWithoutExecuting(t *testing.T) {
	b := NewBlock()
	ran := false
	b.Add(&fakeInst{guard: func() bool { return false }, run: func() { ran = true }})

	b.Step(nil, b)
	require.False(t, ran)
	require.True(t, b.IsComplete())
}

func TestRepeatHoldsProgramCounter(t *testing.T) {
	b := NewBlock()
	remaining := 3
	b.Add(&fakeInst{
		run:    func() { remaining-- },
		repeat: func() bool { return remaining > 0 },
	})
	b.Add(&fakeInst{})

	// The first instruction repeats until its work runs out; the
	// block needs three steps for it plus one for the trailing one.
	for i := 0; i < 3; i++ {
		b.Step(nil, b)
		if remaining > 0 && b.ProgramCounter() != 0 {
			t.Fatalf("counter advanced mid-repeat at step %d", i)
		}
	}
	require.Equal(t, 1, b.ProgramCounter())
	b.Step(nil, b)
	require.True(t, b.IsComplete())
}

func TestReset(t *testing.T) {
	b := NewBlock()
	b.Add(&fakeInst{})
	b.Add(&fakeInst{})

	b.Step(nil, b)
	b.Step(nil, b)
	require.True(t, b.IsComplete())
	b.Reset()
	require.Equal(t, 0, b.ProgramCounter())
	require.False(t, b.IsComplete())
}

func TestCurrentAndPreviousInstruction(t *testing.T) {
	b := NewBlock()
	first := &fakeInst{name: "first"}
	second := &fakeInst{name: "second"}
	b.Add(first)
	b.Add(second)

	cur, err := b.CurrentInstruction()
	require.NoError(t, err)
	require.Same(t, Instruction(first), cur)
	_, ok := b.PreviousInstruction()
	require.False(t, ok)

	b.Step(nil, b)
	cur, err = b.CurrentInstruction()
	require.NoError(t, err)
	require.Same(t, Instruction(second), cur)
	prev, ok := b.PreviousInstruction()
	require.True(t, ok)
	require.Same(t, Instruction(first), prev)

	b.Step(nil, b)
	_, err = b.CurrentInstruction()
	require.ErrorIs(t, err, ErrBlockComplete)
}

func TestPrintScenario(t *testing.T) {
	// Two prints, two steps to completion, a third step is a no-op.
	sink := &recordSink{}
	b := NewBlock()
	b.SetSink(sink)
	b.Add(&fakeInst{name: `print "a"`, run: func() { b.Print("a") }})
	b.Add(&fakeInst{name: `print "b"`, run: func() { b.Print("b") }})

	b.Step(nil, b)
	require.Equal(t, []string{"a"}, sink.prints)
	require.False(t, b.IsComplete())

	b.Step(nil, b)
	require.Equal(t, []string{"a", "b"}, sink.prints)
	require.True(t, b.IsComplete())

	b.Step(nil, b)
	require.Equal(t, []string{"a", "b"}, sink.prints)
}

func TestStructurallyEquals(t *testing.T) {
	a := NewBlock()
	b := NewBlock()
	for _, name := range []string{"one", "two"} {
		a.Add(&fakeInst{name: name})
		b.Add(&fakeInst{name: name})
	}
	require.True(t, a.StructurallyEquals(b))
	require.True(t, b.StructurallyEquals(a))

	b.Add(&fakeInst{name: "three"})
	require.False(t, a.StructurallyEquals(b))
	require.False(t, b.StructurallyEquals(a))

	c := NewBlock()
	c.Add(&fakeInst{name: "one"})
	c.Add(&fakeInst{name: "other"})
	require.False(t, a.StructurallyEquals(c))
	require.False(t, a.StructurallyEquals(nil))
}

func TestRenderIndentation(t *testing.T) {
	root := NewBlock()
	root.Add(&fakeInst{name: "outer"})
	child := NewChild(root)
	child.Add(&fakeInst{name: "inner"})
	root.Add(child)

	require.Equal(t, 0, root.IndentLevel())
	require.Equal(t, 1, child.IndentLevel())
	require.Equal(t, "{\n\t\tinner\n\t}\n", child.Render())
	require.Equal(t, "{\n\touter\n\t{\n\t\tinner\n\t}\n\n}\n", root.Render())
}

func TestCompositeBlockInstruction(t *testing.T) {
	sink := &recordSink{}
	root := NewBlock()
	root.SetSink(sink)
	child := NewChild(root)
	child.Add(&fakeInst{run: func() { root.Print("x") }})
	child.Add(&fakeInst{run: func() { root.Print("y") }})
	root.Add(child)
	root.Add(&fakeInst{run: func() { root.Print("after") }})

	for !root.IsComplete() {
		root.Step(nil, root)
	}
	require.Equal(t, []string{"x", "y", "after"}, sink.prints)
}

// countingInst counts Render calls so logging cost can be observed.
type countingInst struct {
	fakeInst
	renders int
}

func (c *countingInst) Render() string {
	c.renders++
	return c.fakeInst.Render()
}

func TestStepDoesNotRenderWhenTraceDisabled(t *testing.T) {
	old := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.Disabled)
	defer zerolog.SetGlobalLevel(old)

	skipped := &countingInst{fakeInst: fakeInst{name: "skipped", guard: func() bool { return false }}}
	held := &countingInst{fakeInst: fakeInst{name: "held"}}
	reps := 0
	held.repeat = func() bool {
		reps++
		return reps < 3
	}

	b := NewBlock()
	b.Add(skipped)
	b.Add(held)
	for !b.IsComplete() {
		b.Step(nil, b)
	}
	require.Equal(t, 0, skipped.renders)
	require.Equal(t, 0, held.renders)
}
