package interp

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dgryski/go-farm"
	"github.com/shamaton/msgpack/v2"

	"github.com/stepviz-dev/stepviz/vm"
)

// Snapshot captures the transient execution state of a program: the
// shared global table, every block's frame stack, and the pending
// activations held by call instructions, in a stable walk order. The
// instruction tree itself is immutable and is not captured; restoring
// a snapshot requires the same program.
type Snapshot struct {
	Globals map[string]SnapValue
	Blocks  []BlockState
	Calls   []CallState
}

// CallState records the pending activations one call instruction
// holds, located by the owning block's walk position and the
// instruction's index within it.
type CallState struct {
	Block       int
	Instruction int
	Frames      []ActivationRef
}

// ActivationRef points at one activation frame: the definition
// block's walk position and the frame's depth on its stack. A Frame
// of -1 marks an activation whose frame already unwound but whose
// return the call has not observed yet.
type ActivationRef struct {
	Block int
	Frame int
}

// SnapValue is the serialized form of a vm.Value.
type SnapValue struct {
	List   bool
	Values []float64
}

// BlockState is one block's activation stack.
type BlockState struct {
	Frames []FrameState
}

// FrameState is one activation: program counter, entry flag and local
// bindings.
type FrameState struct {
	PC         int
	Entered    bool
	Invocation bool
	Locals     map[string]SnapValue
}

func snapValue(v vm.Value) SnapValue {
	if l, ok := v.(vm.ListValue); ok {
		return SnapValue{List: true, Values: l.Clone()}
	}
	return SnapValue{Values: []float64{v.First()}}
}

func (sv SnapValue) value() vm.Value {
	if sv.List {
		return vm.ListValue(sv.Values).Clone()
	}
	if len(sv.Values) == 0 {
		return vm.ScalarValue(0)
	}
	return vm.ScalarValue(sv.Values[0])
}

// walk visits this block, every block structurally nested beneath it,
// and every registered function definition with its nested blocks, in
// a deterministic order.
func (b *Block) walk(fn func(*Block)) {
	seen := make(map[*Block]bool)
	visit := func(blk *Block) {
		if seen[blk] {
			return
		}
		seen[blk] = true
		fn(blk)
		for _, child := range blk.nestedBlocks() {
			if !seen[child] {
				seen[child] = true
				fn(child)
			}
		}
	}
	visit(b)

	names := make([]string, 0, len(b.shared.functions))
	for name := range b.shared.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		visit(b.shared.functions[name])
	}
}

// Snapshot captures the current execution state of the program rooted
// at this block.
func (b *Block) Snapshot() *Snapshot {
	s := &Snapshot{Globals: make(map[string]SnapValue, len(b.shared.globals))}
	for name, v := range b.shared.globals {
		s.Globals[name] = snapValue(v)
	}
	var blocks []*Block
	b.walk(func(blk *Block) {
		blocks = append(blocks, blk)
		bs := BlockState{Frames: make([]FrameState, 0, len(blk.frames))}
		for _, f := range blk.frames {
			fs := FrameState{PC: f.PC, Entered: f.Entered, Invocation: f.Invocation, Locals: make(map[string]SnapValue, len(f.Locals))}
			for name, v := range f.Locals {
				fs.Locals[name] = snapValue(v)
			}
			bs.Frames = append(bs.Frames, fs)
		}
		s.Blocks = append(s.Blocks, bs)
	})

	index := make(map[*Block]int, len(blocks))
	for i, blk := range blocks {
		index[blk] = i
	}
	for bi, blk := range blocks {
		for ii, inst := range blk.instructions {
			holder, ok := inst.(ActivationHolder)
			if !ok {
				continue
			}
			acts := holder.Activations()
			if len(acts) == 0 {
				continue
			}
			cs := CallState{Block: bi, Instruction: ii}
			for _, act := range acts {
				ref := ActivationRef{Block: index[act.Def], Frame: -1}
				for fi, f := range act.Def.frames {
					if f == act.Frame {
						ref.Frame = fi
						break
					}
				}
				cs.Frames = append(cs.Frames, ref)
			}
			s.Calls = append(s.Calls, cs)
		}
	}
	return s
}

// Restore applies a snapshot taken from the same program structure.
func (b *Block) Restore(s *Snapshot) error {
	var blocks []*Block
	b.walk(func(blk *Block) {
		blocks = append(blocks, blk)
	})
	if len(blocks) != len(s.Blocks) {
		return fmt.Errorf("snapshot has %d blocks, program has %d", len(s.Blocks), len(blocks))
	}

	globals := make(map[string]vm.Value, len(s.Globals))
	for name, sv := range s.Globals {
		globals[name] = sv.value()
	}
	b.shared.globals = globals

	for i, blk := range blocks {
		bs := s.Blocks[i]
		if len(bs.Frames) == 0 {
			return fmt.Errorf("snapshot block %d has no frames", i)
		}
		frames := make([]*Frame, 0, len(bs.Frames))
		for _, fs := range bs.Frames {
			f := newFrame()
			f.PC = fs.PC
			f.Entered = fs.Entered
			f.Invocation = fs.Invocation
			for name, sv := range fs.Locals {
				f.Locals[name] = sv.value()
			}
			frames = append(frames, f)
		}
		blk.frames = frames
	}

	return b.restoreCalls(s, blocks)
}

// restoreCalls hands each call instruction its pending activations
// back, resolved against the freshly restored frame stacks. Calls not
// mentioned in the snapshot are cleared.
func (b *Block) restoreCalls(s *Snapshot, blocks []*Block) error {
	byPos := make(map[[2]int][]ActivationRef, len(s.Calls))
	for _, cs := range s.Calls {
		if cs.Block < 0 || cs.Block >= len(blocks) {
			return fmt.Errorf("snapshot call state references block %d of %d", cs.Block, len(blocks))
		}
		if cs.Instruction < 0 || cs.Instruction >= len(blocks[cs.Block].instructions) {
			return fmt.Errorf("snapshot call state references instruction %d in block %d", cs.Instruction, cs.Block)
		}
		byPos[[2]int{cs.Block, cs.Instruction}] = cs.Frames
	}

	for bi, blk := range blocks {
		for ii, inst := range blk.instructions {
			holder, ok := inst.(ActivationHolder)
			if !ok {
				continue
			}
			refs := byPos[[2]int{bi, ii}]
			acts := make([]Activation, 0, len(refs))
			for _, ref := range refs {
				if ref.Block < 0 || ref.Block >= len(blocks) {
					return fmt.Errorf("snapshot activation references block %d of %d", ref.Block, len(blocks))
				}
				def := blocks[ref.Block]
				var f *Frame
				if ref.Frame == -1 {
					// The activation already finished; give the call
					// a completed frame so it observes the return.
					f = newFrame()
					f.PC = len(def.instructions)
					f.Entered = true
					f.Invocation = true
				} else {
					if ref.Frame < 0 || ref.Frame >= len(def.frames) {
						return fmt.Errorf("snapshot activation references frame %d of %d in block %d", ref.Frame, len(def.frames), ref.Block)
					}
					f = def.frames[ref.Frame]
				}
				acts = append(acts, Activation{Def: def, Frame: f})
			}
			holder.AdoptActivations(acts)
		}
	}
	return nil
}

// Serialize writes the snapshot in msgpack form.
func (s *Snapshot) Serialize(w io.Writer) error {
	return msgpack.MarshalWrite(w, s)
}

// Deserialize reads a msgpack snapshot.
func (s *Snapshot) Deserialize(r io.Reader) error {
	return msgpack.UnmarshalRead(r, s)
}

// Fingerprint hashes the snapshot to a single value. Two snapshots of
// identical execution state always hash equal; the runner uses this to
// notice a program that stopped making progress.
func (s *Snapshot) Fingerprint() uint64 {
	var sb strings.Builder
	names := make([]string, 0, len(s.Globals))
	for name := range s.Globals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writeSnapValue(&sb, name, s.Globals[name])
	}
	for _, bs := range s.Blocks {
		sb.WriteByte('B')
		for _, fs := range bs.Frames {
			sb.WriteByte('F')
			sb.WriteString(strconv.Itoa(fs.PC))
			if fs.Entered {
				sb.WriteByte('e')
			}
			if fs.Invocation {
				sb.WriteByte('i')
			}
			locals := make([]string, 0, len(fs.Locals))
			for name := range fs.Locals {
				locals = append(locals, name)
			}
			sort.Strings(locals)
			for _, name := range locals {
				writeSnapValue(&sb, name, fs.Locals[name])
			}
		}
	}
	for _, cs := range s.Calls {
		sb.WriteByte('C')
		sb.WriteString(strconv.Itoa(cs.Block))
		sb.WriteByte('.')
		sb.WriteString(strconv.Itoa(cs.Instruction))
		for _, ref := range cs.Frames {
			sb.WriteByte('a')
			sb.WriteString(strconv.Itoa(ref.Block))
			sb.WriteByte('.')
			sb.WriteString(strconv.Itoa(ref.Frame))
		}
	}
	return farm.Hash64([]byte(sb.String()))
}

func writeSnapValue(sb *strings.Builder, name string, sv SnapValue) {
	sb.WriteString(name)
	sb.WriteByte('=')
	if sv.List {
		sb.WriteByte('[')
	}
	for i, v := range sv.Values {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	if sv.List {
		sb.WriteByte(']')
	}
	sb.WriteByte(';')
}
