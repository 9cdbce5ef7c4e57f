// Package content holds the curriculum: immutable chapter records grouped
// into books, their per-locale overrides, and the loaders that read them.
//
// The core never parses chapter sources. InitialCode, ValidationCode and
// SolutionCode are opaque Starlark text handed to the sandbox as-is.
//
// Curricula come from three places:
//   - LoadDir: a directory of CUE files declaring `chapters: [...]`,
//     unified with the embedded #Chapter schema (schema.cue)
//   - LoadFile: a single YAML, JSON or CUE document
//   - Builtin: the curriculum embedded in the binary
//
// Locale handling goes through golang.org/x/text/language. Supported
// locales are Spanish (the default) and English; any other request falls
// back to Spanish.
package content
