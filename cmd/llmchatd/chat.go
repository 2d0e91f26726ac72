package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"llmchatd/internal/httpapi"
	"llmchatd/internal/manager"
	"llmchatd/pkg/types"
)

func buildChatCmd(c *cli) *cobra.Command {
	var chatID, model string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a local model in the terminal",
		Long: "Starts an interactive session. Lines are sent as messages; commands:\n" +
			"  /new            start a new conversation\n" +
			"  /use <model>    switch model and start a new conversation\n" +
			"  /clear          clear the current conversation\n" +
			"  /chats          list conversations\n" +
			"  /models         list models\n" +
			"  /quit           exit\n" +
			"Ctrl+C stops the reply being generated.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if model != "" {
				if err := a.Select(model); err != nil {
					return err
				}
			}
			r := &repl{svc: a, in: c.in, out: c.out, turnContext: interruptible}
			return r.run(cmd.Context(), chatID)
		},
	}
	cmd.Flags().StringVar(&chatID, "chat", "", "Resume an existing conversation by id")
	cmd.Flags().StringVar(&model, "model", "", "Model to chat with (defaults to the selected model)")
	return cmd
}

// interruptible cancels the returned context on Ctrl+C.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

// repl is the terminal chat loop.
type repl struct {
	svc         httpapi.Service
	in          io.Reader
	out         io.Writer
	turnContext func(context.Context) (context.Context, context.CancelFunc)

	chat     types.Conversation
	thinking bool
}

func (r *repl) run(ctx context.Context, chatID string) error {
	if chatID != "" {
		c, err := r.svc.GetChat(ctx, chatID)
		if err != nil {
			return err
		}
		r.chat = c
		for _, m := range c.Messages {
			r.printf("%s> %s\n", m.Role, m.Display())
		}
	} else if err := r.newChat(ctx); err != nil {
		return err
	}

	sc := bufio.NewScanner(r.in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		r.printf("you> ")
		if !sc.Scan() {
			r.printf("\n")
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, line)
			if err != nil {
				r.printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}
		r.send(ctx, line)
	}
}

func (r *repl) printf(format string, args ...any) { fmt.Fprintf(r.out, format, args...) }

func (r *repl) newChat(ctx context.Context) error {
	c, err := r.svc.CreateChat(ctx, "", "")
	if err != nil {
		return err
	}
	r.chat = c
	r.printf("[%s] model %s\n", c.Title, c.ModelID)
	return nil
}

func (r *repl) command(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/new":
		return false, r.newChat(ctx)
	case "/use":
		if arg == "" {
			return false, fmt.Errorf("usage: /use <model>")
		}
		if err := r.svc.Select(arg); err != nil {
			return false, err
		}
		return false, r.newChat(ctx)
	case "/clear":
		if err := r.svc.ResetChat(ctx, r.chat.ID); err != nil {
			return false, err
		}
		r.chat.Messages = nil
		r.printf("cleared\n")
	case "/chats":
		chats, err := r.svc.ListChats(ctx)
		if err != nil {
			return false, err
		}
		for _, s := range chats {
			r.printf("%s  %s  %s\n", s.ID, s.Title, s.Preview)
		}
	case "/models":
		sel := r.svc.SelectedModel()
		for _, m := range r.svc.ListModels() {
			mark := " "
			if m.ID == sel {
				mark = "*"
			}
			r.printf("%s %s (%s)\n", mark, m.ID, m.Name)
		}
	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
	return false, nil
}

func (r *repl) send(ctx context.Context, text string) {
	turn, stop := r.turnContext(ctx)
	defer stop()
	r.thinking = false
	r.printf("%s> ", types.RoleModel)
	c, err := r.svc.Send(turn, r.chat.ID, text, r.writeDelta)
	if r.thinking {
		r.printf("\n[/thinking]\n")
	}
	r.printf("\n")
	if c.ID != "" {
		r.chat = c
	}
	switch {
	case err == nil:
	case turn.Err() != nil && ctx.Err() == nil:
		r.printf("(stopped)\n")
	case manager.IsBusy(err):
		r.printf("error: a reply is still being generated\n")
	default:
		r.printf("error: %v\n", err)
	}
}

// writeDelta prints visible text with thinking sections fenced by markers.
func (r *repl) writeDelta(d manager.Delta) {
	pos := 0
	for _, tr := range d.Transitions {
		r.printf("%s", d.Text[pos:tr.At])
		pos = tr.At
		if tr.Thinking {
			r.printf("\n[thinking]\n")
		} else {
			r.printf("\n[/thinking]\n")
		}
		r.thinking = tr.Thinking
	}
	r.printf("%s", d.Text[pos:])
}
