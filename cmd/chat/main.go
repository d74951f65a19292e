package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"arcane-chat-be/internal/config"
	"arcane-chat-be/internal/dto"
	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/internal/repository/memory"
	"arcane-chat-be/internal/service"
	"arcane-chat-be/pkg/feed"
	"arcane-chat-be/pkg/llm/factory"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

const sessionKey = "terminal"

const help = `Commands:
  /new            start a new chat
  /list           list chats, most recent first
  /use <n>        switch to chat n from /list
  /rename <name>  rename the active chat
  /delete [n]     delete chat n, or the active chat
  /clear          clear the active chat's messages
  /quit           exit
Anything else is sent as a message.`

type repl struct {
	ctx     context.Context
	svc     service.ISessionService
	threads []*dto.ThreadResponse
}

func main() {
	cfg := config.Load()

	provider, err := factory.NewLLMProvider(factory.Config{
		Provider: cfg.Chat.LLMProvider,
		BaseURL:  cfg.Chat.LLMBaseURL,
		APIKey:   cfg.Chat.LLMAPIKey,
		Model:    cfg.Chat.LLMModel,
		Timeout:  cfg.Chat.LLMTimeout,
	})
	if err != nil {
		color.Red("Failed to initialize LLM provider: %v", err)
		os.Exit(1)
	}

	broker := feed.NewInMemoryBroker()
	defer broker.Close()

	svc := service.NewSessionService(
		memory.NewSessionRepository(0),
		nil,
		memory.NewGuestStore(0, broker),
		provider,
		nil,
		logger.NewNopLogger(),
		service.SessionServiceConfig{BannerDuration: cfg.Chat.BannerDuration},
	)

	r := &repl{ctx: context.Background(), svc: svc}
	if _, err := svc.Open(r.ctx, sessionKey, entity.GuestIdentity(uuid.New())); err != nil {
		color.Red("Failed to open session: %v", err)
		os.Exit(1)
	}

	color.Cyan("Arcane Chat (%s). Type /help for commands.", cfg.Chat.LLMProvider)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Print(color.HiBlackString("> "))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return
		}
		r.handle(line)
	}
}

func (r *repl) handle(line string) {
	if !strings.HasPrefix(line, "/") {
		r.send(line)
		return
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		fmt.Println(help)
	case "/new":
		thread, err := r.svc.NewChat(r.ctx, sessionKey)
		if r.report(err) {
			return
		}
		color.Green("Started %q", thread.Name)
	case "/list":
		r.list()
	case "/use":
		thread, ok := r.pick(arg)
		if !ok {
			return
		}
		selected, err := r.svc.SelectThread(r.ctx, sessionKey, thread.Id)
		if r.report(err) {
			return
		}
		color.Green("Switched to %q", selected.Name)
		r.history()
	case "/rename":
		state, err := r.svc.State(r.ctx, sessionKey)
		if r.report(err) {
			return
		}
		if state.ActiveThreadId == nil {
			color.Yellow("No active chat")
			return
		}
		thread, err := r.svc.RenameThread(r.ctx, sessionKey, *state.ActiveThreadId, arg)
		if r.report(err) {
			return
		}
		color.Green("Renamed to %q", thread.Name)
	case "/delete":
		var id uuid.UUID
		if arg == "" {
			state, err := r.svc.State(r.ctx, sessionKey)
			if r.report(err) {
				return
			}
			if state.ActiveThreadId == nil {
				color.Yellow("No active chat")
				return
			}
			id = *state.ActiveThreadId
		} else {
			thread, ok := r.pick(arg)
			if !ok {
				return
			}
			id = thread.Id
		}
		if r.report(r.svc.DeleteThread(r.ctx, sessionKey, id)) {
			return
		}
		color.Green("Deleted")
	case "/clear":
		if r.report(r.svc.ClearThread(r.ctx, sessionKey)) {
			return
		}
		color.Green("Cleared")
	default:
		color.Yellow("Unknown command %s", cmd)
	}
}

func (r *repl) send(content string) {
	state, err := r.svc.State(r.ctx, sessionKey)
	if r.report(err) {
		return
	}
	if state.ActiveThreadId == nil {
		if _, err := r.svc.NewChat(r.ctx, sessionKey); r.report(err) {
			return
		}
	}

	res, err := r.svc.SendMessage(r.ctx, sessionKey, content)
	if r.report(err) {
		return
	}
	color.Blue("%s", res.Reply.Content)
	if res.Thread.AutoRenamed && res.Thread.Name != "" {
		color.HiBlack("[%s]", res.Thread.Name)
	}
}

func (r *repl) list() {
	threads, err := r.svc.ListThreads(r.ctx, sessionKey)
	if r.report(err) {
		return
	}
	r.threads = threads
	if len(threads) == 0 {
		color.Yellow("No chats yet")
		return
	}
	for i, t := range threads {
		marker := " "
		if t.Active {
			marker = "*"
		}
		fmt.Printf("%s %d. %s  %s\n", marker, i+1, t.Name, color.HiBlackString(t.LastActivity.Local().Format("Jan 2 15:04")))
	}
}

func (r *repl) history() {
	messages, err := r.svc.Messages(r.ctx, sessionKey, uuid.Nil)
	if r.report(err) {
		return
	}
	for _, m := range messages {
		if m.Role == string(entity.MessageRoleUser) {
			fmt.Printf("%s %s\n", color.HiBlackString("you:"), m.Content)
		} else {
			color.Blue("%s", m.Content)
		}
	}
}

func (r *repl) pick(arg string) (*dto.ThreadResponse, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(r.threads) {
		color.Yellow("Pick a number from /list")
		return nil, false
	}
	return r.threads[n-1], true
}

// report prints err and returns true when there was one.
func (r *repl) report(err error) bool {
	if err == nil {
		return false
	}
	var bannerErr *service.BannerError
	if errors.As(err, &bannerErr) {
		color.Red("%s", bannerErr.Message)
		return true
	}
	color.Red("Error: %v", err)
	return true
}
