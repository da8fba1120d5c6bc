package vm

// Value is a stored symbol value: either a single number or a
// fixed-length list of numbers.
type Value interface {
	isValue()
	First() float64
}

type ScalarValue float64

func (ScalarValue) isValue() {}

func (s ScalarValue) First() float64 {
	return float64(s)
}

type ListValue []float64

func (ListValue) isValue() {}

func (l ListValue) First() float64 {
	return l.At(0)
}

// At returns the element at index. Indices outside [0, len) read
// element 0, matching the historic interpreter behavior.
func (l ListValue) At(index int) float64 {
	if len(l) == 0 {
		return 0
	}
	if index < 0 || index >= len(l) {
		index = 0
	}
	return l[index]
}

func (l ListValue) Len() int {
	return len(l)
}

func (l ListValue) Clone() ListValue {
	out := make(ListValue, len(l))
	copy(out, l)
	return out
}
