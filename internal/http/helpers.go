package http

import (
	"strings"
	"time"

	"finboard/internal/core"
)

// today returns the current local calendar date.
func today(now func() time.Time) core.Date {
	return core.DateOf(now())
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
