package trace

import (
	"fmt"
	"strings"
)

// Level controls how much of the pipeline is traced.
type Level uint8

const (
	LevelOff    Level = iota // no tracing
	LevelError               // recorded in the ring, dumped only when a build fails
	LevelPhase               // driver and stage boundaries
	LevelDetail              // per-file events
	LevelDebug               // everything, including compiler processes
)

var levelNames = []string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string { return nameOf(levelNames, l) }

// ParseLevel reads a --trace-level value.
func ParseLevel(s string) (Level, error) {
	return parseName[Level]("trace level", levelNames, s)
}

// Admits reports whether events of scope are recorded at this level.
func (l Level) Admits(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopePass
	case LevelError, LevelDetail:
		return scope <= ScopeFile
	case LevelDebug:
		return true
	}
	return false
}

func parseName[T ~uint8](what string, names []string, s string) (T, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	var valid []string
	for i, n := range names {
		if n == "" {
			continue
		}
		if n == s {
			return T(i), nil
		}
		valid = append(valid, n)
	}
	return 0, fmt.Errorf("invalid %s %q (expected: %s)", what, s, strings.Join(valid, "|"))
}
