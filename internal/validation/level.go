package validation

import (
	"fmt"
	"strings"
)

// Level is the severity of a validation result. Levels are ordered:
// Ok < Warning < Error.
type Level int

const (
	Ok Level = iota
	Warning
	Error
)

var levelNames = map[Level]string{
	Ok:      "ok",
	Warning: "warning",
	Error:   "error",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// BorderColor is the colour a UI uses to outline a field at this level.
func (l Level) BorderColor() string {
	switch l {
	case Warning:
		return "orange"
	case Error:
		return "red"
	default:
		return "green"
	}
}

// BackgroundColor is the fill colour a UI uses for a field at this level.
func (l Level) BackgroundColor() string {
	switch l {
	case Warning:
		return "#fff5e5"
	case Error:
		return "#ffe5e5"
	default:
		return "#e5ffe5"
	}
}

// ParseLevel converts "ok", "warning" or "error" (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ok":
		return Ok, nil
	case "warning", "warn":
		return Warning, nil
	case "error":
		return Error, nil
	}
	return Ok, fmt.Errorf("unknown validation level %q: must be 'ok', 'warning' or 'error'", s)
}

// Result is the outcome of one validator, or the worst outcome of several.
type Result struct {
	Level   Level
	Message string
}

// OK is the passing result.
var OK = Result{Level: Ok}

// Worst returns the most severe result. On a tie the earliest result wins,
// so validator order decides which message is reported.
func Worst(results ...Result) Result {
	worst := OK
	for _, r := range results {
		if r.Level > worst.Level {
			worst = r
		}
	}
	return worst
}
