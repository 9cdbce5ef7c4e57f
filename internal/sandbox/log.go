package sandbox

import (
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// LineKind distinguishes where an output line came from.
type LineKind int

const (
	// LineStdout is text printed by executed code.
	LineStdout LineKind = iota
	// LineError is a diagnostic for code that raised.
	LineError
	// LineSystem is a host or engine message, such as a verdict.
	LineSystem
)

func (k LineKind) String() string {
	switch k {
	case LineStdout:
		return "stdout"
	case LineError:
		return "error"
	case LineSystem:
		return "system"
	}
	return "unknown"
}

// ErrorPrefix marks error lines when rendered.
const ErrorPrefix = "Error: "

// Line is one output line.
type Line struct {
	Kind LineKind `json:"kind"`
	Text string   `json:"text"`
}

// String renders the line as shown on a console.
func (l Line) String() string {
	if l.Kind == LineError {
		return ErrorPrefix + l.Text
	}
	return l.Text
}

// Log is the observable, append-only output of a host. Clear is the only
// way lines leave it.
type Log struct {
	mu    sync.Mutex
	lines []Line
	sink  func(Line)
}

// NewLog returns an empty log. sink, if non-nil, receives every appended
// line in order.
func NewLog(sink func(Line)) *Log {
	return &Log{sink: sink}
}

// Append splits text on newlines and appends each piece as its own line.
// A single trailing newline does not produce an empty line.
func (l *Log) Append(kind LineKind, text string) {
	text = norm.NFC.String(text)
	text = strings.TrimSuffix(text, "\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, piece := range strings.Split(text, "\n") {
		line := Line{Kind: kind, Text: piece}
		l.lines = append(l.lines, line)
		if l.sink != nil {
			l.sink(line)
		}
	}
}

// Lines returns a copy of the current lines.
func (l *Log) Lines() []Line {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}

// Len returns the number of lines.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

// Last returns the most recent line.
func (l *Log) Last() (Line, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.lines) == 0 {
		return Line{}, false
	}
	return l.lines[len(l.lines)-1], true
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	l.lines = nil
	l.mu.Unlock()
}
