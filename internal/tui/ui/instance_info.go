package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// InstanceData holds what the header shows about the connection.
type InstanceData struct {
	Instance  string
	User      string
	Server    string
	Tier      string
	Connected bool
	Chats     int
	LastSync  time.Time
	Uptime    time.Duration
}

// InstanceInfo displays connection metadata in the header.
type InstanceInfo struct {
	*tview.TextView
	theme *Theme
}

// NewInstanceInfo creates a new instance info panel.
func NewInstanceInfo(theme *Theme) *InstanceInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &InstanceInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the instance info.
func (ii *InstanceInfo) Update(data *InstanceData) {
	ii.Clear()
	if data == nil {
		return
	}

	fg := ColorTag(ii.theme.FgColor)
	val := ColorTag(ii.theme.CounterColor)

	link, linkColor := "offline", ColorTag(ii.theme.OfflineColor)
	if data.Connected {
		link, linkColor = "online", ColorTag(ii.theme.OnlineColor)
	}
	lastSync := "-"
	if !data.LastSync.IsZero() {
		lastSync = data.LastSync.Local().Format("15:04:05")
	}

	_, _ = fmt.Fprintf(ii,
		"[%s::b]Instance:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]     [%s]%s[-]\n"+
			"[%s::b]Server:[-:-:-]   [%s]%s[-] [%s]%s[-]\n"+
			"[%s::b]Polling:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Chats:[-:-:-]    [%s]%d[-]\n"+
			"[%s::b]Synced:[-:-:-]   [%s]%s[-] [%s](up %s)[-]",
		fg, val, tview.Escape(data.Instance),
		fg, val, tview.Escape(data.User),
		fg, val, tview.Escape(data.Server), linkColor, link,
		fg, val, data.Tier,
		fg, val, data.Chats,
		fg, val, lastSync, fg, formatDuration(data.Uptime),
	)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
