package monitor

import (
	"time"

	"stock-sentinel/internal/models"
)

// InQuietHours reports whether now falls inside the recipient's quiet
// window. The window is [StartHour, EndHour) in the recipient's local time;
// EndHour < StartHour spans midnight (22 -> 7 covers 22:00 through 06:59).
// StartHour == EndHour disables quiet hours entirely.
func InQuietHours(qh models.QuietHours, now time.Time) bool {
	if qh.StartHour == qh.EndHour {
		return false
	}

	hour := now.Hour()
	if qh.StartHour < qh.EndHour {
		return hour >= qh.StartHour && hour < qh.EndHour
	}
	return hour >= qh.StartHour || hour < qh.EndHour
}
