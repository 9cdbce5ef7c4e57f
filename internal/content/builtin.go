package content

import (
	_ "embed"
	"fmt"
)

//go:embed builtin/curriculum.yaml
var builtinYAML []byte

// Builtin returns the curriculum shipped with the binary.
func Builtin() (*Curriculum, error) {
	cur, err := Parse(builtinYAML)
	if err != nil {
		return nil, fmt.Errorf("builtin curriculum: %w", err)
	}
	return cur, nil
}

// MustBuiltin is Builtin for callers that cannot recover from a broken binary.
func MustBuiltin() *Curriculum {
	cur, err := Builtin()
	if err != nil {
		panic(err)
	}
	return cur
}
