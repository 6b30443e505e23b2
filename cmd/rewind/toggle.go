package main

import (
	"fmt"
	"os"
	"strings"
)

// toggle is the value of a tri-state flag such as --ui or --color.
type toggle int

const (
	toggleAuto toggle = iota
	toggleOn
	toggleOff
)

var toggleNames = map[string]toggle{
	"":     toggleAuto,
	"auto": toggleAuto,
	"on":   toggleOn,
	"off":  toggleOff,
}

func parseToggle(flag, value string) (toggle, error) {
	t, ok := toggleNames[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return toggleAuto, fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
	}
	return t, nil
}

// enabled resolves auto by asking whether f is a terminal.
func (t toggle) enabled(f *os.File) bool {
	if t == toggleAuto {
		return isTerminal(f)
	}
	return t == toggleOn
}

// progressView reports whether a build should draw the interactive view.
// Quiet runs never do, whatever --ui says.
func progressView(ui toggle, quiet bool) bool {
	return !quiet && ui.enabled(os.Stdout)
}
