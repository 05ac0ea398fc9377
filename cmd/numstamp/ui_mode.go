package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode is the --ui setting of check: force the live view on or off, or
// let shouldUseTUI decide.
type uiMode uint8

const (
	uiAuto uiMode = iota
	uiOn
	uiOff
)

var uiModes = map[string]uiMode{"": uiAuto, "auto": uiAuto, "on": uiOn, "off": uiOff}

func readUIMode(value string) (uiMode, error) {
	if m, ok := uiModes[strings.ToLower(strings.TrimSpace(value))]; ok {
		return m, nil
	}
	return uiAuto, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// shouldUseTUI reports whether check draws the progress view. In auto mode
// only a text report going to a terminal gets it, since the view would
// interleave with structured output.
func shouldUseTUI(mode uiMode, reportFormat string) bool {
	if mode != uiAuto {
		return mode == uiOn
	}
	return reportFormat == "text" && isTerminal(os.Stdout)
}
