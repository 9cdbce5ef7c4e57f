// Package progress is the linear chapter state machine.
//
// The learner sits on one chapter index. Chapter i is navigable when it is
// the first chapter, when it is completed, or when the chapter before it is
// completed. Completed ids only grow; HardReset is the one way to shrink
// them.
//
// Chapters are grouped into books. Advancing across a book boundary does
// not move the index. It enters PhaseBookTransition and waits for
// ConfirmTransition, which models the "book complete" interstitial.
//
// Every mutation is written through to store.Preferences immediately.
// Write failures are logged; the in-memory state stays authoritative.
package progress
