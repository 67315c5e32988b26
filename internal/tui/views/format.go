package views

import (
	"strings"
	"time"

	"github.com/matheus3301/pollchat/internal/wire"
)

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// preview renders message content for one-line display. Image URLs are
// replaced by a marker.
func preview(content string) string {
	if wire.IsImage(content) {
		return "[image]"
	}
	return strings.Join(strings.Fields(content), " ")
}

// statusTicks is the delivery indicator shown next to the local user's
// messages. Seen and delivered differ by color only.
func statusTicks(s wire.Status) string {
	switch s {
	case wire.StatusSeen, wire.StatusDelivered:
		return "✓✓"
	default:
		return "✓"
	}
}
