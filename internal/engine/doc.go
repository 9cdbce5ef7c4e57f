// Package engine runs one attempt at a chapter: the learner's code, then the
// chapter's validator, then the verdict.
//
// ATTEMPT PROTOCOL:
//
//  1. Reject if an attempt is already in flight (ErrBusy) or the
//     interpreter is not ready (sandbox.ErrNotReady).
//  2. Clear the output log.
//  3. Execute the learner source. If it raises, the attempt is a Failure
//     and the validator never runs.
//  4. Execute the validator source, which defines the entry point.
//  5. Evaluate validate(globals()) and decode the (bool, str) verdict.
//  6. Success emits a system line and marks the chapter complete.
//     Failure emits a system line. Nothing advances automatically.
//  7. Faults in steps 4 and 5 are EngineError results. They never mark
//     the chapter complete.
//
// At most one attempt runs per Engine. The guard is a CompareAndSwap on an
// atomic flag; a rejected call does not touch the output log. Busy exposes
// the flag so callers can refuse navigation while an attempt runs.
//
// Every finished attempt is stamped with a logical Clock seq and an
// attempt ID, counted in Prometheus metrics and, when a Journal is
// configured, recorded.
package engine
