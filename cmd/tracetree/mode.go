package main

import (
	"fmt"
	"os"
	"strings"
)

// mode is the value of tri-state flags such as --color and --ui.
type mode string

const (
	modeAuto mode = "auto"
	modeOn   mode = "on"
	modeOff  mode = "off"
)

func readMode(flag, value string) (mode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return modeAuto, nil
	case "on", "always", "true":
		return modeOn, nil
	case "off", "never", "false":
		return modeOff, nil
	default:
		return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
	}
}

// resolve turns auto into on when f is a terminal.
func (m mode) resolve(f *os.File) bool {
	switch m {
	case modeOn:
		return true
	case modeOff:
		return false
	default:
		return isTerminal(f)
	}
}
