package runner

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/stepviz-dev/stepviz/instr"
	"github.com/stepviz-dev/stepviz/interp"
	"github.com/stepviz-dev/stepviz/vm"
)

// Spec is the on-disk form of a program: a TOML file holding the main
// instruction sequence and any function definitions. It stands in for
// a source-text parser, which is not part of this core.
type Spec struct {
	Name      string         `toml:",omitempty"`
	Main      []InstrSpec    `toml:",omitempty"`
	Functions []FunctionSpec `toml:",omitempty"`
}

type FunctionSpec struct {
	Name   string      `toml:",omitempty"`
	Params []string    `toml:",omitempty"`
	Body   []InstrSpec `toml:",omitempty"`
}

// InstrSpec describes one instruction. Kind selects the variant; the
// other fields apply per kind.
type InstrSpec struct {
	Kind     string            `toml:",omitempty"`
	Text     string            `toml:",omitempty"` // print
	Expr     string            `toml:",omitempty"` // print
	Name     string            `toml:",omitempty"` // assign
	Exprs    []string          `toml:",omitempty"` // assign
	Cond     string            `toml:",omitempty"` // if, while
	Function string            `toml:",omitempty"` // call
	Args     map[string]string `toml:",omitempty"` // call
	Body     []InstrSpec       `toml:",omitempty"` // if, while, block
}

func parseSpec(f io.Reader) (*Spec, error) {
	var out Spec
	_, err := toml.NewDecoder(f).Decode(&out)
	return &out, err
}

func LoadSpecFromFile(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseSpec(f)
}

// Build assembles the Block tree for this spec: function definitions
// are registered at the root, the main sequence becomes the root's
// instructions.
func (s *Spec) Build() (*interp.Block, error) {
	root := interp.NewBlock()
	for _, fn := range s.Functions {
		if fn.Name == "" {
			return nil, fmt.Errorf("function definition without a name")
		}
		def := interp.NewChild(root)
		for _, p := range fn.Params {
			def.AddParameter(p)
		}
		if err := buildInto(def, fn.Body); err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		root.Define(fn.Name, def)
	}
	if err := buildInto(root, s.Main); err != nil {
		return nil, err
	}
	return root, nil
}

func buildInto(block *interp.Block, specs []InstrSpec) error {
	for i, is := range specs {
		inst, err := buildInstr(block, is)
		if err != nil {
			return fmt.Errorf("instruction %d (%s): %w", i, is.Kind, err)
		}
		block.Add(inst)
	}
	return nil
}

func buildInstr(parent *interp.Block, is InstrSpec) (interp.Instruction, error) {
	switch is.Kind {
	case "print":
		p := &instr.Print{Text: is.Text}
		if is.Expr != "" {
			e, err := vm.CompileExpr(is.Expr)
			if err != nil {
				return nil, err
			}
			p.Expr = e
		}
		return p, nil

	case "assign":
		if is.Name == "" {
			return nil, fmt.Errorf("assign needs a name")
		}
		if len(is.Exprs) == 0 {
			return nil, fmt.Errorf("assign needs at least one expression")
		}
		exprs := make([]vm.Expression, len(is.Exprs))
		for i, src := range is.Exprs {
			e, err := vm.CompileExpr(src)
			if err != nil {
				return nil, err
			}
			exprs[i] = e
		}
		return &instr.Assign{Name: is.Name, Exprs: exprs}, nil

	case "if", "while":
		if is.Cond == "" {
			return nil, fmt.Errorf("%s needs a condition", is.Kind)
		}
		cond, err := vm.CompileExpr(is.Cond)
		if err != nil {
			return nil, err
		}
		body := interp.NewChild(parent)
		if err := buildInto(body, is.Body); err != nil {
			return nil, err
		}
		if is.Kind == "if" {
			return &instr.If{Cond: cond, Body: body}, nil
		}
		return &instr.While{Cond: cond, Body: body}, nil

	case "call":
		if is.Function == "" {
			return nil, fmt.Errorf("call needs a function name")
		}
		args := make(map[string]vm.Expression, len(is.Args))
		for name, src := range is.Args {
			e, err := vm.CompileExpr(src)
			if err != nil {
				return nil, err
			}
			args[name] = e
		}
		return &instr.Call{Name: is.Function, Args: args}, nil

	case "block":
		body := interp.NewChild(parent)
		if err := buildInto(body, is.Body); err != nil {
			return nil, err
		}
		return body, nil

	default:
		return nil, fmt.Errorf("unknown instruction kind %q", is.Kind)
	}
}
