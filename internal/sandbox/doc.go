// Package sandbox hosts the embedded Starlark interpreter that runs learner
// code and chapter validators.
//
// A Host owns one global namespace for its whole lifetime. Every Execute
// call runs against the same starlark.StringDict, so a validator sees the
// variables and functions the learner defined, including leftovers from
// earlier attempts. The namespace is dropped only by Teardown and rebuilt by
// Initialize or Retry.
//
// LIFECYCLE:
//
//	Uninitialized -> Initializing -> Ready
//	                              -> Failed (sticky until Retry)
//
// Concurrent Initialize calls coalesce through singleflight; exactly one
// bootstrap runs and every caller observes its outcome.
//
// Output written with print is appended, line by line, to the host's Log.
// Execution errors are appended as LineError lines before being returned.
package sandbox
