package types

// registry maps source-level type names to their descriptors. It is never
// modified after package initialization.
var registry = map[string]Type{
	"Int":         I64,
	"Double":      F64,
	"Bool":        I1,
	"Char":        I8,
	"String":      String,
	"IntArray":    IntArray,
	"DoubleArray": DoubleArray,
	"BoolArray":   BoolArray,
	"Void":        None,
	"var":         Var,
	"val":         Val,
}

// Resolve returns the type named name, or false if no such type exists.
func Resolve(name string) (Type, bool) {
	t, ok := registry[name]
	return t, ok
}

// ArrayOf returns the array type with element type elem, or false if elem
// cannot be an array element.
func ArrayOf(elem Type) (Type, bool) {
	for _, a := range []Type{IntArray, DoubleArray, BoolArray} {
		if TypeEqual(a.(Array).Elem, elem) {
			return a, true
		}
	}
	return nil, false
}
