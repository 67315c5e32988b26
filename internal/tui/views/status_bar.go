package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/pollchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar displays the persistent instance and sync status line.
type StatusBar struct {
	*tview.TextView
	theme     *ui.Theme
	instance  string
	user      string
	tier      string
	connected bool
	lastSync  time.Time
	lastErr   string
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme, tier: "-"}
}

// SetIdentity updates the instance and user shown.
func (sb *StatusBar) SetIdentity(instance, user string) {
	sb.instance, sb.user = instance, user
	sb.render()
}

// SetTier updates the polling tier.
func (sb *StatusBar) SetTier(tier string) {
	sb.tier = tier
	sb.render()
}

// SyncSucceeded marks the connection healthy as of at.
func (sb *StatusBar) SyncSucceeded(at time.Time) {
	sb.connected, sb.lastSync, sb.lastErr = true, at, ""
	sb.render()
}

// SyncFailed marks the connection broken.
func (sb *StatusBar) SyncFailed(err error) {
	sb.connected = false
	if err != nil {
		sb.lastErr = err.Error()
	}
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()
	_, _ = fmt.Fprint(sb, sb.line())
}

func (sb *StatusBar) line() string {
	link := fmt.Sprintf("[%s]●[-] online", ui.ColorTag(sb.theme.OnlineColor))
	if !sb.connected {
		link = fmt.Sprintf("[%s]●[-] offline", ui.ColorTag(sb.theme.FlashErrColor))
	}
	synced := "never"
	if !sb.lastSync.IsZero() {
		synced = sb.lastSync.Local().Format("15:04:05")
	}
	line := fmt.Sprintf(" [::b]%s[-:-:-] %s | %s | poll: %s | synced %s",
		tview.Escape(sb.instance), tview.Escape(sb.user), link, sb.tier, synced)
	if !sb.connected && sb.lastErr != "" {
		line += fmt.Sprintf(" | [%s]%s[-]", ui.ColorTag(sb.theme.FlashWarnColor), tview.Escape(sb.lastErr))
	}
	return line
}
