package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff   Level = iota // no tracing
	LevelError              // ring only, dumped on failure
	LevelStage              // command and pipeline stage boundaries
	LevelFile               // adds one span per input file
	LevelDebug              // everything
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelStage:
		return "stage"
	case LevelFile:
		return "file"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a flag value to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "stage":
		return LevelStage, nil
	case "file":
		return LevelFile, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|stage|file|debug)", s)
	}
}

// ShouldEmit reports whether events of scope are recorded at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelError, LevelDebug:
		// error-level tracers only feed the ring, which keeps everything
		return true
	case LevelStage:
		return scope <= ScopeStage
	case LevelFile:
		return scope <= ScopeFile
	}
	return false
}
