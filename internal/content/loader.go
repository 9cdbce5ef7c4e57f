package content

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Error codes for LoadError.
const (
	ErrCodeNotFound    = "C001" // Path not found
	ErrCodeNoFiles     = "C002" // No curriculum files
	ErrCodeLoadFailed  = "C003" // CUE load or YAML parse failed
	ErrCodeSchema      = "C004" // Schema violation
	ErrCodeStructure   = "C005" // Ids or books inconsistent
	ErrCodeUnsupported = "C006" // Unknown file extension
)

// LoadError reports a curriculum that could not be loaded.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// document is the top-level shape of every curriculum file.
type document struct {
	Chapters []Chapter `json:"chapters" yaml:"chapters"`
}

// Load reads a curriculum from a directory of CUE files or from a single
// .cue, .yaml, .yml or .json file.
func Load(path string) (*Curriculum, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("curriculum not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing curriculum: %v", err)}
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// LoadDir loads every CUE file of the package in dir.
func LoadDir(dir string) (*Curriculum, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	return decodeCUE(ctx, value)
}

// LoadFile loads a single curriculum document.
func LoadFile(path string) (*Curriculum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("failed to read curriculum: %v", err)}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		ctx := cuecontext.New()
		return decodeCUE(ctx, ctx.CompileBytes(data, cue.Filename(path)))
	case ".yaml", ".yml", ".json":
		return Parse(data)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported curriculum file %s", path)}
	}
}

// Parse decodes a YAML or JSON curriculum document. Unknown fields are
// rejected so typos surface instead of silently dropping content.
func Parse(data []byte) (*Curriculum, error) {
	var doc document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("failed to parse curriculum: %v", err)}
	}
	return build(doc.Chapters)
}

func decodeCUE(ctx *cue.Context, value cue.Value) (*Curriculum, error) {
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeLoadFailed, err)
	}

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, cueLoadError(ErrCodeLoadFailed, err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeSchema, err)
	}

	var doc document
	if err := unified.Decode(&doc); err != nil {
		return nil, cueLoadError(ErrCodeSchema, err)
	}
	return build(doc.Chapters)
}

func build(chapters []Chapter) (*Curriculum, error) {
	cur, err := NewCurriculum(chapters)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStructure, Message: err.Error()}
	}
	return cur, nil
}

// cueLoadError extracts position info from the first CUE error.
func cueLoadError(code string, err error) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
