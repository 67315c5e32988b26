package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/matheus3301/pollchat/internal/bus"
	"github.com/matheus3301/pollchat/internal/client"
	"github.com/matheus3301/pollchat/internal/config"
	"github.com/matheus3301/pollchat/internal/instance"
	"github.com/matheus3301/pollchat/internal/logging"
	"github.com/matheus3301/pollchat/internal/store"
	intsync "github.com/matheus3301/pollchat/internal/sync"
	"github.com/matheus3301/pollchat/internal/wire"
	"go.uber.org/zap"
)

type globals struct {
	instance string
	cfg      *config.Config
	json     bool
	replay   bool
	debug    bool
}

func main() {
	instanceFlag := flag.String("instance", "", "instance name (overrides config default)")
	configFlag := flag.String("config", "", "config file (default ~/.pollchat/config.toml)")
	serverFlag := flag.String("server", "", "server address (overrides [client] server)")
	tokenFlag := flag.String("token", "", "bearer token (overrides [client] token)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	replayFlag := flag.Bool("replay", false, "watch: replay history instead of starting now")
	debugFlag := flag.Bool("debug", false, "log engine activity to stderr")
	flag.Parse()

	cfgPath := *configFlag
	if cfgPath == "" {
		cfgPath = instance.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	if *serverFlag != "" {
		cfg.Client.Server = *serverFlag
	}
	if *tokenFlag != "" {
		cfg.Client.Token = *tokenFlag
	}

	g := globals{
		instance: *instanceFlag,
		cfg:      cfg,
		json:     *jsonFlag,
		replay:   *replayFlag || cfg.Poll.Replay,
		debug:    *debugFlag,
	}
	if g.instance == "" {
		g.instance = cfg.DefaultInstance
	}
	if err := instance.ValidateName(g.instance); err != nil {
		fatalf("%v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "token" {
		cmdToken(g, args[1:])
		return
	}

	target := instance.ClientTarget(cfg, g.instance)
	c, err := client.New(target, cfg.Client.Token)
	if err != nil {
		fatalf("cannot connect to %s: %v", target, err)
	}
	defer func() { _ = c.Close() }()

	if args[0] == "watch" {
		cmdWatch(g, c, args[1:])
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "ping":
		resp, err := c.Ping(ctx)
		check(err)
		g.output(resp, func() { fmt.Printf("Server time: %s\n", resp.Time.AsTime().Local().Format(time.RFC3339)) })
	case "me":
		me, err := c.Me(ctx)
		check(err)
		g.output(me, func() { printUser(*me) })
	case "profile":
		need(args, 2, "pollctl profile <username> [email] [avatar]")
		req := &wire.UpsertProfileRequest{Username: args[1]}
		if len(args) > 2 {
			req.Email = args[2]
		}
		if len(args) > 3 {
			req.Avatar = args[3]
		}
		me, err := c.UpsertProfile(ctx, req)
		check(err)
		g.output(me, func() { printUser(*me) })
	case "users":
		resp, err := c.SearchUsers(ctx, strings.Join(args[1:], " "))
		check(err)
		g.output(resp, func() { printUsers(resp.Users) })
	case "online":
		resp, err := c.OnlineUsers(ctx)
		check(err)
		g.output(resp, func() { printUsers(resp.Users) })
	case "presence":
		need(args, 2, "pollctl presence <on|off>")
		resp, err := c.SetPresence(ctx, args[1] == "on")
		check(err)
		g.output(resp, func() { fmt.Printf("Online: %v\n", resp.Online) })
	case "chats":
		cmdChats(ctx, g, c)
	case "open":
		need(args, 2, "pollctl open <user-id>")
		resp, err := c.CreateChat(ctx, args[1])
		check(err)
		g.output(resp, func() {
			verb := "Existing"
			if resp.Created {
				verb = "Created"
			}
			fmt.Printf("%s chat %s\n", verb, resp.Chat.ID)
		})
	case "send":
		need(args, 3, "pollctl send <chat-id> <text>")
		cmdSend(ctx, g, c, args[1], strings.Join(args[2:], " "))
	case "mark":
		need(args, 3, "pollctl mark <message-id> <delivered|seen>")
		m, err := c.UpdateStatus(ctx, &wire.UpdateStatusRequest{MessageID: args[1], Status: wire.Status(args[2])})
		check(err)
		g.output(m, func() { fmt.Printf("%s %s\n", m.ID, m.Status) })
	case "history":
		need(args, 2, "pollctl history <chat-id> [page]")
		cmdHistory(ctx, g, c, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: pollctl [--instance <name>] [--server <addr>] [--token <t>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  token <username> [--revoke]       Issue a token (writes the instance database)")
	fmt.Fprintln(os.Stderr, "  ping                              Check the server")
	fmt.Fprintln(os.Stderr, "  me                                Show the current user")
	fmt.Fprintln(os.Stderr, "  profile <username> [email] [url]  Update the current user")
	fmt.Fprintln(os.Stderr, "  users [query]                     Search users")
	fmt.Fprintln(os.Stderr, "  online                            List online users")
	fmt.Fprintln(os.Stderr, "  presence <on|off>                 Set presence")
	fmt.Fprintln(os.Stderr, "  chats                             List chats")
	fmt.Fprintln(os.Stderr, "  open <user-id>                    Open a chat with a user")
	fmt.Fprintln(os.Stderr, "  send <chat-id> <text>             Send a message")
	fmt.Fprintln(os.Stderr, "  mark <message-id> <status>        Mark a message delivered or seen")
	fmt.Fprintln(os.Stderr, "  history <chat-id> [page]          Show messages")
	fmt.Fprintln(os.Stderr, "  watch [chat-id...]                Follow chats until interrupted")
}

// cmdToken issues a bearer token for username, creating the user if needed.
// It opens the instance database directly and is meant for the operator of
// the daemon.
func cmdToken(g globals, args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	revoke := fs.Bool("revoke", false, "revoke the user's tokens instead")
	email := fs.String("email", "", "email for a new user")
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fatalf("usage: pollctl token <username> [--email <e>] [--revoke]")
	}
	username := args[0]
	_ = fs.Parse(args[1:])

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := instance.EnsureDir(g.instance); err != nil {
		fatalf("%v", err)
	}
	db, err := store.Open(instance.DBPath(g.instance))
	if err != nil {
		fatalf("%v", err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		fatalf("%v", err)
	}

	user, err := findUser(ctx, db, username)
	check(err)
	if *revoke {
		if user == nil {
			fatalf("no user named %q", username)
		}
		n, err := db.RevokeTokens(ctx, user.ID)
		check(err)
		fmt.Printf("Revoked %d token(s) for %s\n", n, username)
		return
	}
	if user == nil {
		user = &store.User{Username: username, Email: *email}
		check(db.UpsertUser(ctx, user))
	}
	token, err := db.CreateToken(ctx, user.ID)
	check(err)
	g.output(map[string]string{"userId": user.ID, "token": token}, func() {
		fmt.Printf("User:  %s (%s)\n", username, user.ID)
		fmt.Printf("Token: %s\n", token)
		fmt.Println()
		fmt.Println("Add to config.toml:")
		fmt.Printf("  [client]\n  token = %q\n", token)
	})
}

func findUser(ctx context.Context, db *store.DB, username string) (*store.User, error) {
	users, err := db.SearchUsers(ctx, "", username, 50)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, nil
}

func cmdChats(ctx context.Context, g globals, c *client.Client) {
	me, err := c.Me(ctx)
	check(err)
	resp, err := c.ListChats(ctx)
	check(err)
	g.output(resp, func() {
		if len(resp.Chats) == 0 {
			fmt.Println("No chats.")
			return
		}
		for _, chat := range resp.Chats {
			name := chat.ID
			if other := chat.Other(me.ID); other != nil {
				name = other.Username
			}
			last := ""
			if chat.LastMessage != nil {
				last = chat.LastMessage.SenderName + ": " + chat.LastMessage.Content
			}
			fmt.Printf("%-36s %-16s %s %s\n", chat.ID, name, chat.UpdatedAt.Local().Format("01/02 15:04"), last)
		}
	})
}

func cmdSend(ctx context.Context, g globals, c *client.Client, chatID, text string) {
	me, err := c.Me(ctx)
	check(err)
	resp, err := c.ListChats(ctx)
	check(err)
	var receiver string
	for _, chat := range resp.Chats {
		if chat.ID == chatID {
			if other := chat.Other(me.ID); other != nil {
				receiver = other.ID
			}
		}
	}
	if receiver == "" {
		fatalf("chat %s not found", chatID)
	}
	m, err := c.SendMessage(ctx, &wire.SendMessageRequest{ChatID: chatID, Content: text, ReceiverID: receiver})
	check(err)
	g.output(m, func() { fmt.Printf("%s %s\n", m.ID, m.Status) })
}

func cmdHistory(ctx context.Context, g globals, c *client.Client, args []string) {
	req := &wire.ListMessagesRequest{ChatID: args[0], Page: 1, Limit: 50}
	if len(args) > 1 {
		page, err := strconv.Atoi(args[1])
		if err != nil || page < 1 {
			fatalf("invalid page %q", args[1])
		}
		req.Page = page
	}
	resp, err := c.ListMessages(ctx, req)
	check(err)
	g.output(resp, func() {
		for _, m := range resp.Messages {
			printMessage(m)
		}
		if resp.HasMore {
			fmt.Printf("(more: pollctl history %s %d)\n", req.ChatID, resp.Page+1)
		}
	})
}

// cmdWatch runs a sync engine over the given chats, or every chat of the
// user, and prints what it delivers until interrupted.
func cmdWatch(g globals, c *client.Client, chatIDs []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewConsole(g.debug)
	defer func() { _ = logger.Sync() }()

	setup, cancel := context.WithTimeout(ctx, 10*time.Second)
	me, err := c.Me(setup)
	check(err)
	if len(chatIDs) == 0 {
		resp, err := c.ListChats(setup)
		check(err)
		for _, chat := range resp.Chats {
			chatIDs = append(chatIDs, chat.ID)
		}
	}
	var since time.Time
	if !g.replay {
		pong, err := c.Ping(setup)
		check(err)
		since = pong.Time.AsTime()
	}
	cancel()

	b := bus.New()
	engine := intsync.NewEngine(c, b, logger, intsync.Options{
		UserID: me.ID,
		Since:  since,
		Intervals: intsync.Intervals{
			Fast:       g.cfg.Poll.Fast.Duration,
			Background: g.cfg.Poll.Background.Duration,
			Recheck:    g.cfg.Poll.Recheck.Duration,
		},
		AutoDelivered: g.cfg.Poll.AutoDelivered,
	})
	for _, id := range chatIDs {
		engine.Join(id)
	}
	if len(chatIDs) == 1 {
		engine.SetFocus(chatIDs[0])
	}

	engine.OnMessage(intsync.MessageHandlerFunc(func(e intsync.MessageEvent) {
		if g.json {
			outputJSON(e.Message)
			return
		}
		printMessage(e.Message)
	}))

	events, unsub := b.Subscribe("sync.", 16)
	defer unsub()

	engine.Start(ctx)
	defer engine.Stop()
	logger.Info("watching", zap.Int("chats", len(chatIDs)), zap.Time("since", since))
	fmt.Fprintf(os.Stderr, "watching %d chat(s) as %s, Ctrl-C to stop\n", len(chatIDs), me.Username)

	connected := true
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			switch p := evt.Payload.(type) {
			case intsync.Failed:
				if connected {
					fmt.Fprintf(os.Stderr, "sync failing: %v\n", p.Err)
				}
				connected = false
			case intsync.Completed:
				if !connected {
					fmt.Fprintln(os.Stderr, "sync recovered")
				}
				connected = true
			}
		}
	}
}

func printUser(u wire.UserSummary) {
	fmt.Printf("ID:        %s\n", u.ID)
	fmt.Printf("Username:  %s\n", u.Username)
	if u.Email != "" {
		fmt.Printf("Email:     %s\n", u.Email)
	}
	fmt.Printf("Online:    %v\n", u.Online)
	if !u.LastSeen.IsZero() {
		fmt.Printf("Last seen: %s\n", u.LastSeen.Local().Format(time.RFC3339))
	}
}

func printUsers(users []wire.UserSummary) {
	if len(users) == 0 {
		fmt.Println("No users found.")
		return
	}
	for _, u := range users {
		state := "offline"
		if u.Online {
			state = "online"
		}
		fmt.Printf("%-36s %-20s %-28s %s\n", u.ID, u.Username, u.Email, state)
	}
}

func printMessage(m wire.Message) {
	sender := m.SenderID
	if m.Sender != nil {
		sender = m.Sender.Username
	}
	content := m.Content
	if wire.IsImage(content) {
		content = "[image] " + content
	}
	fmt.Printf("%s [%s] %s: %s (%s, %s)\n",
		m.Timestamp.Local().Format("01/02 15:04:05"), m.ChatID, sender, content, m.Status, m.ID)
}

func (g globals) output(v any, text func()) {
	if g.json {
		outputJSON(v)
		return
	}
	text()
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

func need(args []string, n int, usage string) {
	if len(args) < n {
		fatalf("usage: %s", usage)
	}
}

func check(err error) {
	if err != nil {
		fatalf("%v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
