package interp

import (
	"github.com/stepviz-dev/stepviz/vm"
)

// Frame is one activation of a Block: a program counter plus the local
// bindings private to that activation. Every Block starts with a base
// frame; each function invocation pushes a fresh one, so recursive
// calls get their own counter and parameter bindings instead of
// corrupting shared state.
type Frame struct {
	PC      int
	Entered bool
	// Invocation marks the frame a function call pushed on its
	// definition block. Only these unwind on completion; the frames
	// pushed alongside them on nested bodies unwind with them.
	Invocation bool
	Locals     map[string]vm.Value
}

func newFrame() *Frame {
	return &Frame{Locals: make(map[string]vm.Value)}
}

func (f *Frame) local(name string) (vm.Value, bool) {
	v, ok := f.Locals[name]
	return v, ok
}

func (f *Frame) storeLocal(name string, v vm.Value) {
	f.Locals[name] = v
}

func (f *Frame) Clone() *Frame {
	out := &Frame{PC: f.PC, Entered: f.Entered, Invocation: f.Invocation, Locals: make(map[string]vm.Value, len(f.Locals))}
	for k, v := range f.Locals {
		out.Locals[k] = v
	}
	return out
}
