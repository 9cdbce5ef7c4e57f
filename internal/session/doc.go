// Package session ties the curriculum, progress machine, attempt engine and
// interpreter host into the state a single learner interacts with.
//
// A Session owns the editor buffer and the per-chapter flags (revealed
// hints, pending success, result banner). They are reset whenever the
// chapter or the locale changes.
package session
