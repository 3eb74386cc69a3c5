package models

import (
	"fmt"
	"time"
)

// Window is a fixed forward-looking horizon over which market effect is measured.
type Window string

const (
	Window1H  Window = "1h"
	Window4H  Window = "4h"
	Window24H Window = "24h"
)

// Windows lists every scoring window in ascending order.
var Windows = []Window{Window1H, Window4H, Window24H}

// Millis returns the window length in milliseconds, or 0 for an unknown window.
func (w Window) Millis() int64 {
	switch w {
	case Window1H:
		return 3_600_000
	case Window4H:
		return 14_400_000
	case Window24H:
		return 86_400_000
	}
	return 0
}

// Duration returns the window length as a time.Duration.
func (w Window) Duration() time.Duration {
	return time.Duration(w.Millis()) * time.Millisecond
}

// ParseWindow converts a string such as "4h" into a Window.
func ParseWindow(s string) (Window, error) {
	w := Window(s)
	if w.Millis() == 0 {
		return "", fmt.Errorf("unknown window %q", s)
	}
	return w, nil
}
