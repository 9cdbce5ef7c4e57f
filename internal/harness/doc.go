// Package harness exercises curricula end to end.
//
// The harness replays learner scenarios against a fresh session and checks
// that every chapter's reference solution passes while its starter code
// does not.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	curriculum: ../curricula/tiny.yaml   # optional, builtin if empty
//	locale: en                           # optional
//	steps:
//	  - action: run
//	    code: |
//	      nombre = "Clay"
//	    expect:
//	      outcome: success
//	      message: "Clay"
//	  - action: next
//	    expect:
//	      chapter: energia
//	assertions:
//	  - type: completed
//	    ids: [despertar]
//	  - type: attempts
//	    chapter: despertar
//	    count: 1
//
// # Step Actions
//
//   - run: submit code (or the current buffer when code is empty)
//   - solve: load the chapter solution and submit it
//   - next, confirm, prev: navigate; confirm completes a book transition
//   - goto: select the chapter at index
//   - hint: reveal the next hint
//   - locale: switch to locale
//   - reset: hard reset
//
// # Assertion Types
//
//   - completed: the completed ids, in completion order
//   - index: the current chapter index
//   - stage: the number of completed chapters
//   - journey_complete: the last chapter is completed
//   - attempts: journal entries for chapter (all chapters if empty)
//
// # Deterministic Runs
//
// Attempt ids come from testutil.SequentialIDs, seqs from a fresh
// engine.Clock and durations from a testutil.StepClock, so the same
// scenario always yields a byte-identical transcript. RunWithGolden
// compares that transcript with testdata/golden/<name>.golden.
package harness
