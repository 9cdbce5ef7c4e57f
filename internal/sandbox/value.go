package sandbox

import (
	"go.starlark.net/starlark"
)

// maxValueDepth bounds conversion of nested containers; deeper values, and
// cyclic ones, come back as Opaque.
const maxValueDepth = 32

// Opaque stands in for a Starlark value with no Go counterpart, such as a
// function or a module.
type Opaque struct {
	Type string `json:"type"`
	Repr string `json:"repr"`
}

// ToGo converts a Starlark value into a host-side value:
//
//	None          -> nil
//	bool          -> bool
//	string        -> string
//	int           -> int64 (Opaque if it overflows)
//	float         -> float64
//	list, tuple   -> []any
//	dict          -> map[string]any (non-string keys use their repr)
//	anything else -> Opaque
func ToGo(v starlark.Value) any {
	return toGo(v, 0)
}

func toGo(v starlark.Value, depth int) any {
	if depth > maxValueDepth {
		return Opaque{Type: v.Type(), Repr: "..."}
	}
	switch x := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(x)
	case starlark.String:
		return string(x)
	case starlark.Int:
		if i, ok := x.Int64(); ok {
			return i
		}
		return Opaque{Type: x.Type(), Repr: x.String()}
	case starlark.Float:
		return float64(x)
	case starlark.Tuple:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = toGo(elem, depth+1)
		}
		return out
	case *starlark.List:
		out := make([]any, x.Len())
		for i := 0; i < x.Len(); i++ {
			out[i] = toGo(x.Index(i), depth+1)
		}
		return out
	case *starlark.Dict:
		out := make(map[string]any, x.Len())
		for _, item := range x.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				key = item[0].String()
			}
			out[key] = toGo(item[1], depth+1)
		}
		return out
	}
	return Opaque{Type: v.Type(), Repr: v.String()}
}

// str mirrors Starlark's str(): strings unquoted, everything else by repr.
func str(v starlark.Value) string {
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}
