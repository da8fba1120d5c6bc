package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListValueAt(t *testing.T) {
	l := ListValue{10, 20, 30}
	require.Equal(t, 10.0, l.At(0))
	require.Equal(t, 30.0, l.At(2))

	// Out-of-range indices wrap to element 0.
	require.Equal(t, 10.0, l.At(3))
	require.Equal(t, 10.0, l.At(-2))

	var empty ListValue
	require.Equal(t, 0.0, empty.At(0))
	require.Equal(t, 0.0, empty.First())
}

func TestScalarFirst(t *testing.T) {
	require.Equal(t, 2.5, ScalarValue(2.5).First())
}

func TestListClone(t *testing.T) {
	l := ListValue{1, 2}
	c := l.Clone()
	c[0] = 9
	require.Equal(t, 1.0, l[0])
}
