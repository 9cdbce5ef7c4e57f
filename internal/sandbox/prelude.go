package sandbox

import (
	"context"

	"go.starlark.net/starlark"
)

// Prelude prepares the global namespace during initialization. Modules are
// bound into the globals first, then Load (if set) is called and its result
// bound, then Script (if set) is executed. Names bound by a prelude are host
// builtins: visible to code but left out of globals() until code rebinds
// them.
type Prelude struct {
	Name    string
	Modules starlark.StringDict
	Load    func(ctx context.Context) (starlark.StringDict, error)
	Script  string
}

// DefaultPreludes returns the mock modules every curriculum may rely on.
func DefaultPreludes() []Prelude {
	return []Prelude{{Name: "mocks", Modules: Mocks()}}
}
