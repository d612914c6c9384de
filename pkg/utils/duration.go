package utils

import (
	"fmt"
	"time"
)

// FormatDuration formats seconds into HH:MM:SS format
func FormatDuration(totalSeconds int64) string {
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// FormatUptime formats the time elapsed since start, prefixed with the
// number of days once it exceeds one.
func FormatUptime(start, now time.Time) string {
	seconds := int64(now.Sub(start) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / 86400
	if days == 0 {
		return FormatDuration(seconds)
	}
	return fmt.Sprintf("%dd %s", days, FormatDuration(seconds%86400))
}
