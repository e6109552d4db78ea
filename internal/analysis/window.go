package analysis

import "fmt"

const (
	SecondsPerYear    int64 = 31_536_000
	SecondsPer6Months       = SecondsPerYear / 2
	SecondsPer3Months       = SecondsPer6Months / 2
	SecondsPerMonth         = SecondsPer3Months / 3
)

// Window bounds how far back matches are considered.
type Window string

const (
	WindowMonth   Window = "month"
	Window3Months Window = "3months"
	Window6Months Window = "6months"
	WindowYear    Window = "year"
	WindowAll     Window = "all"
)

// ParseWindow maps a form value to a Window. The empty string selects the
// one-year default.
func ParseWindow(value string) (Window, error) {
	switch w := Window(value); w {
	case "":
		return WindowYear, nil
	case WindowMonth, Window3Months, Window6Months, WindowYear, WindowAll:
		return w, nil
	default:
		return "", fmt.Errorf("unknown window %q", value)
	}
}

// Seconds returns the window length; ok is false for WindowAll.
func (w Window) Seconds() (seconds int64, ok bool) {
	switch w {
	case WindowMonth:
		return SecondsPerMonth, true
	case Window3Months:
		return SecondsPer3Months, true
	case Window6Months:
		return SecondsPer6Months, true
	case WindowYear:
		return SecondsPerYear, true
	default:
		return 0, false
	}
}

func (w Window) Label() string {
	switch w {
	case WindowMonth:
		return "last month"
	case Window3Months:
		return "last 3 months"
	case Window6Months:
		return "last 6 months"
	case WindowYear:
		return "last year"
	default:
		return "all time"
	}
}

// contains reports whether a match started at startTime falls inside the
// window ending at now.
func (w Window) contains(now, startTime int64) bool {
	seconds, bounded := w.Seconds()
	if !bounded {
		return true
	}
	return now-startTime <= seconds
}
