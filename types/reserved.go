package types

var reservedTypeNames = []string{
	"Int",
	"Double",
	"Bool",
	"Char",
	"String",
	"IntArray",
	"DoubleArray",
	"BoolArray",
	"Void",
	"var",
	"val",
}

var reservedTypeSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(reservedTypeNames))
	for _, t := range reservedTypeNames {
		m[t] = struct{}{}
	}
	return m
}()

// ReservedTypeNames returns a copy of source-level reserved type names.
func ReservedTypeNames() []string {
	return append([]string(nil), reservedTypeNames...)
}

// IsReservedTypeName reports whether name is reserved for built-in types.
func IsReservedTypeName(name string) bool {
	_, ok := reservedTypeSet[name]
	return ok
}

// keyFunctions are call names the compiler lowers itself instead of
// emitting a call. Each takes exactly one argument.
var keyFunctions = map[string]string{
	"IntArray":    "Int",
	"DoubleArray": "Double",
	"BoolArray":   "Bool",
	"toInt":       "Int",
	"toDouble":    "Double",
	"toBool":      "Bool",
	"toChar":      "Char",
	"toString":    "String",
	"sizeOf":      "Int",
}

// IsKeyFunction reports whether name is a key function and so cannot be
// declared by a program.
func IsKeyFunction(name string) bool {
	_, ok := keyFunctions[name]
	return ok
}

// KeyFunctionType returns the type name a key function is tied to: the
// element type of an array constructor or the target of a cast.
func KeyFunctionType(name string) string {
	return keyFunctions[name]
}
