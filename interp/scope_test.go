package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stepviz-dev/stepviz/vm"
)

func TestAssignScalarAndReadBack(t *testing.T) {
	b := NewBlock()
	require.NoError(t, b.Assign("x", b, vm.Const(41.5)))
	require.True(t, b.HasSymbol("x"))
	require.Equal(t, 41.5, b.Read("x", nil, b))
}

func TestAssignListAndIndexedRead(t *testing.T) {
	b := NewBlock()
	require.NoError(t, b.Assign("xs", b, vm.Const(10), vm.Const(20), vm.Const(30)))

	require.Equal(t, 10.0, b.Read("xs", vm.Const(0), b))
	require.Equal(t, 20.0, b.Read("xs", vm.Const(1), b))
	require.Equal(t, 30.0, b.Read("xs", vm.Const(2), b))

	// Out-of-range indices read element 0.
	require.Equal(t, 10.0, b.Read("xs", vm.Const(3), b))
	require.Equal(t, 10.0, b.Read("xs", vm.Const(99), b))
	require.Equal(t, 10.0, b.Read("xs", vm.Const(-1), b))

	// No index on a list reads element 0 too.
	require.Equal(t, 10.0, b.Read("xs", nil, b))
}

func TestAssignOverwritesAndChangesShape(t *testing.T) {
	b := NewBlock()
	require.NoError(t, b.Assign("v", b, vm.Const(1), vm.Const(2)))
	require.Equal(t, 2.0, b.Read("v", vm.Const(1), b))

	// List to scalar.
	require.NoError(t, b.Assign("v", b, vm.Const(7)))
	require.Equal(t, 7.0, b.Read("v", vm.Const(1), b))
	require.Equal(t, 7.0, b.Read("v", nil, b))
}

func TestUnknownSymbolReadsZero(t *testing.T) {
	b := NewBlock()
	require.False(t, b.HasSymbol("missing"))
	require.Equal(t, 0.0, b.Read("missing", nil, b))
	require.Equal(t, 0.0, b.Read("missing", vm.Const(5), b))
}

func TestLocalShadowsGlobalOnRead(t *testing.T) {
	b := NewBlock()
	require.NoError(t, b.Assign("n", b, vm.Const(1)))
	b.AssignLocal("n", 99)

	require.Equal(t, 99.0, b.Read("n", nil, b))

	// Plain assignment writes through to the global, leaving the
	// local binding untouched.
	require.NoError(t, b.Assign("n", b, vm.Const(2)))
	require.Equal(t, 99.0, b.Read("n", nil, b))
}

func TestGlobalsSharedAcrossNestedBlocks(t *testing.T) {
	root := NewBlock()
	child := NewChild(root)
	grandchild := NewChild(child)

	require.NoError(t, grandchild.Assign("g", grandchild, vm.Const(5)))
	require.Equal(t, 5.0, root.Read("g", nil, root))
	require.Equal(t, 5.0, child.Read("g", nil, child))
}

func TestLocalsArePrivatePerBlock(t *testing.T) {
	root := NewBlock()
	child := NewChild(root)

	child.AssignLocal("p", 3)
	require.True(t, child.HasSymbol("p"))
	require.False(t, root.HasSymbol("p"))
	require.Equal(t, 0.0, root.Read("p", nil, root))
}

func TestDefineAndDefinition(t *testing.T) {
	root := NewBlock()
	def := NewChild(root)
	def.AddParameter("n")
	root.Define("f", def)

	got, ok := root.Definition("f")
	require.True(t, ok)
	require.Same(t, def, got)

	// Lookups read through the shared table from any nested block.
	got, ok = def.Definition("f")
	require.True(t, ok)
	require.Same(t, def, got)

	_, ok = root.Definition("g")
	require.False(t, ok)

	// Redefinition overwrites.
	other := NewChild(root)
	root.Define("f", other)
	got, _ = root.Definition("f")
	require.Same(t, other, got)
}

func TestBindParameters(t *testing.T) {
	root := NewBlock()
	def := NewChild(root)
	def.AddParameter("n")
	def.AddParameter("unbound")
	root.Define("f", def)

	def.BindParameters(map[string]vm.Expression{
		"n": vm.MustCompileExpr("3 + 2"),
	}, root)

	require.Equal(t, 5.0, def.Read("n", nil, def))
	require.Equal(t, 0.0, def.Read("unbound", nil, def))
	require.Equal(t, 2, def.FrameDepth())

	// Arguments for undeclared parameters are ignored.
	def2 := NewChild(root)
	def2.AddParameter("a")
	def2.BindParameters(map[string]vm.Expression{
		"a":     vm.Const(1),
		"extra": vm.Const(2),
	}, root)
	require.Equal(t, 1.0, def2.Read("a", nil, def2))
	require.False(t, def2.HasSymbol("extra"))
}

func TestSymbolEnv(t *testing.T) {
	b := NewBlock()
	require.NoError(t, b.Assign("x", b, vm.Const(2)))
	require.NoError(t, b.Assign("xs", b, vm.Const(1), vm.Const(2)))
	b.AssignLocal("x", 7)

	env := b.SymbolEnv()
	require.Equal(t, 7.0, env["x"])
	require.Equal(t, []float64{1, 2}, env["xs"])
}

func TestExpressionsSeeScope(t *testing.T) {
	b := NewBlock()
	require.NoError(t, b.Assign("x", b, vm.Const(4)))
	require.NoError(t, b.Assign("xs", b, vm.Const(5), vm.Const(6)))

	v, err := vm.MustCompileExpr("x * 2 + xs[1]").Evaluate(b)
	require.NoError(t, err)
	require.Equal(t, 14.0, v)
}
