// Package tui is the terminal chat client. It renders the chat list and the
// open conversation from a sync engine and sends user actions to the server.
package tui

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/pollchat/internal/bus"
	intsync "github.com/matheus3301/pollchat/internal/sync"
	"github.com/matheus3301/pollchat/internal/tui/keys"
	"github.com/matheus3301/pollchat/internal/tui/model"
	"github.com/matheus3301/pollchat/internal/tui/ui"
	"github.com/matheus3301/pollchat/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Page names.
const (
	pageChats   = "chats"
	pageChat    = "chat"
	pageDetails = "details"
	pageNew     = "new"
	pageHelp    = "help"
)

const (
	chatRefreshInterval = 5 * time.Second
	requestTimeout      = 10 * time.Second
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	pages    *ui.Pages
	vm       *model.ViewModel
	engine   *intsync.Engine
	bus      *bus.Bus
	logger   *zap.Logger
	registry *keys.Registry
	flash    *ui.FlashModel

	info      *ui.InstanceInfo
	menu      *ui.Menu
	crumbs    *ui.Crumbs
	prompt    *ui.Prompt
	flashBar  *ui.FlashBar
	statusBar *views.StatusBar
	body      *tview.Flex

	chatList *views.ConversationList
	thread   *views.MessageThread
	details  *views.ConversationInfo
	search   *views.UserSearch
	help     *views.HelpView

	components map[string]ui.Component

	instance string
	server   string
	started  time.Time
	away     bool
	lastSync time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application. The engine is started by Run.
func NewApp(vm *model.ViewModel, engine *intsync.Engine, b *bus.Bus, logger *zap.Logger, instance, server string) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	theme := ui.DefaultTheme()
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:       tview.NewApplication(),
		theme:     theme,
		pages:     ui.NewPages(),
		vm:        vm,
		engine:    engine,
		bus:       b,
		logger:    logger,
		registry:  keys.NewRegistry(),
		flash:     ui.NewFlashModel(),
		info:      ui.NewInstanceInfo(theme),
		menu:      ui.NewMenu(theme, 6),
		crumbs:    ui.NewCrumbs(theme),
		prompt:    ui.NewPrompt(theme),
		flashBar:  ui.NewFlashBar(theme),
		statusBar: views.NewStatusBar(theme),
		chatList:  views.NewConversationList(theme),
		thread:    views.NewMessageThread(theme),
		details:   views.NewConversationInfo(theme),
		search:    views.NewUserSearch(theme),
		help:      views.NewHelpView(theme),
		instance:  instance,
		server:    server,
		started:   time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	a.components = map[string]ui.Component{
		pageChats:   a.chatList,
		pageChat:    a.thread,
		pageDetails: a.details,
		pageNew:     a.search,
		pageHelp:    a.help,
	}

	a.statusBar.SetIdentity(instance, "")
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Name: "quit", Key: tcell.KeyRune, Rune: 'q', Label: "q",
		Description: "Quit", Visible: true,
		Handler: a.Stop,
	})
	a.registry.AddGlobal(&keys.Action{
		Name: "help", Key: tcell.KeyRune, Rune: '?', Label: "?",
		Description: "Help", Visible: true,
		Handler: func() { a.pages.Push(pageHelp) },
	})
	a.registry.AddGlobal(&keys.Action{
		Name: "command", Key: tcell.KeyRune, Rune: ':', Label: ":",
		Description: "Command", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Name: "back", Key: tcell.KeyEscape, Label: "Esc",
		Description: "Back",
		Handler:     a.back,
	})
	a.registry.AddGlobal(&keys.Action{
		Name: "away", Key: tcell.KeyCtrlZ, Label: "Ctrl-Z",
		Description: "Away",
		Handler:     func() { a.setAway(!a.away) },
	})

	a.registry.AddView(pageChats, &keys.Action{
		Name: "filter", Key: tcell.KeyRune, Rune: '/', Label: "/",
		Description: "Filter", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptFilter) },
	})
	a.registry.AddView(pageChats, &keys.Action{
		Name: "clear-filter", Key: tcell.KeyRune, Rune: '0', Label: "0",
		Description: "Clear filter",
		Handler:     a.chatList.ClearFilter,
	})
	a.registry.AddView(pageChats, &keys.Action{
		Name: "new", Key: tcell.KeyRune, Rune: 'n', Label: "n",
		Description: "New chat", Visible: true,
		Handler: func() { a.showSearch("") },
	})
	for n := '1'; n <= '9'; n++ {
		idx := int(n - '0')
		a.registry.AddView(pageChats, &keys.Action{
			Name: "jump-" + string(n), Key: tcell.KeyRune, Rune: n,
			Handler: func() {
				if id := a.chatList.ChatByIndex(idx); id != "" {
					a.openChat(id)
				}
			},
		})
	}

	a.registry.AddView(pageChat, &keys.Action{
		Name: "compose", Key: tcell.KeyRune, Rune: 'i', Label: "i",
		Description: "Compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddView(pageChat, &keys.Action{
		Name: "details", Key: tcell.KeyRune, Rune: 'd', Label: "d",
		Description: "Details", Visible: true,
		Handler: a.showDetails,
	})
}

func (a *App) setupCallbacks() {
	a.chatList.SetSelectedFunc(func(row, col int) {
		if id := a.chatList.SelectedChat(); id != "" {
			a.openChat(id)
		}
	})

	a.thread.SetOnSend(func(text string) {
		go func() {
			ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
			defer cancel()
			if _, err := a.vm.Send(ctx, text); err != nil {
				a.flash.Err(err)
			}
		}()
	})

	a.search.SetOnQuery(a.runSearch)
	a.search.Results().SetSelectedFunc(func(row, col int) {
		userID := a.search.SelectedUser()
		if userID == "" {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
			defer cancel()
			chatID, err := a.vm.StartChat(ctx, userID)
			if err != nil {
				a.flash.Err(err)
				return
			}
			a.openChat(chatID)
		}()
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.chatList.SetFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(func() {
		if a.prompt.Mode() == ui.PromptFilter {
			a.chatList.ClearFilter()
		}
		a.hidePrompt()
	})

	a.pages.SetOnChange(func(stack []string) {
		trail := make([]string, 0, len(stack))
		for _, name := range stack {
			trail = append(trail, a.components[name].Name())
		}
		a.crumbs.Update(trail)

		top := a.components[stack[len(stack)-1]]
		a.menu.Update(top.Hints())
		a.app.SetFocus(top.Focus())

		if a.vm.ActiveChat() != "" && !slices.Contains(stack, pageChat) {
			a.vm.CloseChat()
		}
	})
}

func (a *App) setupLayout() {
	for name, c := range a.components {
		a.pages.AddPage(name, c, true, false)
	}

	header := tview.NewFlex().
		AddItem(ui.NewLogo(a.theme), 30, 0, false).
		AddItem(a.info, 0, 1, false).
		AddItem(a.menu, 0, 2, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(a.body, true)
	a.pages.Reset(pageChats)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		focused := a.app.GetFocus()
		if focused == a.prompt.InputField {
			return event
		}
		if _, ok := focused.(*tview.InputField); ok {
			if event.Key() != tcell.KeyEscape {
				return event
			}
			if focused == a.thread.Composer() {
				a.app.SetFocus(a.thread.Focus())
				return nil
			}
		}
		if a.registry.HandleEvent(a.pages.Current(), event) {
			return nil
		}
		return event
	})
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.body.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt.InputField)
}

func (a *App) hidePrompt() {
	a.body.ResizeItem(a.prompt, 0, 0)
	a.app.SetFocus(a.components[a.pages.Current()].Focus())
}

func (a *App) back() {
	a.pages.Pop()
}

func (a *App) openChat(chatID string) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
		defer cancel()
		if err := a.vm.OpenChat(ctx, chatID); err != nil {
			a.flash.Err(err)
			return
		}
		chat, _ := a.vm.Chat(chatID)
		title := a.vm.Title(chat)
		a.app.QueueUpdateDraw(func() {
			a.thread.SetChat(chatID, title)
			a.thread.Update(a.vm.Messages(), a.vm.Me().ID)
			a.pages.Push(pageChat)
		})
	}()
}

func (a *App) showDetails() {
	chat, ok := a.vm.Chat(a.vm.ActiveChat())
	if !ok {
		return
	}
	a.details.Update(&chat, a.vm.Me().ID)
	a.pages.Push(pageDetails)
}

func (a *App) showSearch(query string) {
	a.search.Reset()
	a.pages.Push(pageNew)
	if query != "" {
		a.search.Input().SetText(query)
		a.runSearch(query)
	}
}

func (a *App) runSearch(query string) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
		defer cancel()
		users, err := a.vm.SearchUsers(ctx, query)
		if err != nil {
			a.flash.Err(err)
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.search.Update(users)
			if len(users) > 0 {
				a.search.Results().Select(1, 0)
				a.app.SetFocus(a.search.Results())
			}
		})
	}()
}

// setAway pauses polling and reports the user offline, or undoes both.
func (a *App) setAway(away bool) {
	if a.away == away {
		return
	}
	a.away = away
	a.engine.SetVisible(!away)
	a.engine.SetWindowFocused(!away)
	if away {
		a.flash.Warn("away: polling paused")
	} else {
		a.flash.Info("back: polling resumed")
	}
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
		defer cancel()
		if err := a.vm.SetOnline(ctx, !away); err != nil {
			a.logger.Warn("presence update failed", zap.Error(err))
		}
	}()
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case CmdChat:
		id, ok := a.vm.FindChat(cmd.Args)
		if !ok {
			a.flash.Warn("no chat matching " + cmd.Args)
			return
		}
		a.openChat(id)
	case CmdNew:
		a.showSearch(cmd.Args)
	case CmdAway:
		a.setAway(true)
	case CmdBack:
		a.setAway(false)
	case CmdHelp:
		a.pages.Push(pageHelp)
	case CmdQuit:
		a.Stop()
	case "":
	default:
		a.flash.Warn("unknown command: " + cmd.Name)
	}
}

// refresh re-renders everything that derives from the view model. It must
// run on the UI goroutine.
func (a *App) refresh() {
	me := a.vm.Me()
	chats := a.vm.Chats()
	a.chatList.Update(chats, me.ID)

	if active := a.vm.ActiveChat(); active != "" && active == a.thread.ChatID() {
		a.thread.Update(a.vm.Messages(), me.ID)
		if chat, ok := a.vm.Chat(active); ok && a.pages.Current() == pageDetails {
			a.details.Update(&chat, me.ID)
		}
	}

	a.statusBar.SetIdentity(a.instance, me.Username)
	a.updateInfo()
}

func (a *App) updateInfo() {
	a.info.Update(&ui.InstanceData{
		Instance:  a.instance,
		User:      a.vm.Me().Username,
		Server:    a.server,
		Tier:      a.engine.Tier().String(),
		Connected: a.engine.Connected(),
		Chats:     len(a.vm.Chats()),
		LastSync:  a.lastSync,
		Uptime:    time.Since(a.started),
	})
}

// Run loads the initial state, starts the engine and blocks until the UI exits.
func (a *App) Run() error {
	defer a.shutdown()

	events, unsub := a.bus.Subscribe("sync.", 64)
	defer unsub()

	a.engine.Start(a.ctx)

	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
		defer cancel()
		if err := a.vm.Load(ctx); err != nil {
			a.flash.Err(err)
			return
		}
		if err := a.vm.SetOnline(ctx, true); err != nil {
			a.logger.Warn("presence update failed", zap.Error(err))
		}
	}()

	go a.eventLoop(events)
	go a.startRefreshLoop()

	return a.app.Run()
}

// eventLoop mirrors engine events, model changes and flash messages into the
// UI until the app stops.
func (a *App) eventLoop(events <-chan bus.Event) {
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.vm.RefreshCh():
			a.app.QueueUpdateDraw(a.refresh)
		case msg := <-a.flash.Watch():
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(&msg) })
		case evt := <-events:
			a.app.QueueUpdateDraw(func() { a.handleEvent(evt) })
		}
	}
}

func (a *App) handleEvent(evt bus.Event) {
	switch p := evt.Payload.(type) {
	case intsync.Completed:
		a.lastSync = evt.Timestamp
		a.statusBar.SyncSucceeded(evt.Timestamp)
	case intsync.Failed:
		a.statusBar.SyncFailed(p.Err)
	case intsync.TierChanged:
		a.statusBar.SetTier(p.To.String())
	}
	a.updateInfo()
}

// startRefreshLoop reloads the chat list so chats other users open with us
// appear, and clears expired flash messages.
func (a *App) startRefreshLoop() {
	ticker := time.NewTicker(chatRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
			err := a.vm.LoadChats(ctx)
			cancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Debug("chat list refresh failed", zap.Error(err))
			}
			a.app.QueueUpdateDraw(func() {
				a.flashBar.Update(a.flash.GetMessage())
				a.refresh()
			})
		}
	}
}

func (a *App) shutdown() {
	a.engine.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.vm.SetOnline(ctx, false); err != nil {
		a.logger.Debug("presence update failed", zap.Error(err))
	}
	a.vm.Close()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
