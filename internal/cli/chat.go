// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive line-based chat for the sirsi CLI.
//
// Command: chat
// Short:   Chat with Sirsi in the terminal, one line at a time
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /retry, /r          Resend the most recent failed message
//   /history            Show the saved conversation
//   /export [format]    Print the conversation (markdown, json, yaml)
//   /clear, /c          Clear the conversation
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel the message being sent
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/sirsi/internal/config"
	"github.com/jeranaias/sirsi/internal/lifecycle"
	"github.com/jeranaias/sirsi/internal/model"
	"github.com/jeranaias/sirsi/internal/storage"
	"github.com/jeranaias/sirsi/internal/ui/styles"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// inputReader reads one line of user input.
type inputReader interface {
	ReadInput(prompt string) (string, error)
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "input_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with 0600 permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// COMMAND
// =============================================================================

func (e *env) newChatCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with Sirsi in the terminal, one line at a time",
		Long: `Starts a line-based chat. The saved conversation is shown first and
every exchange is saved as it happens.

Interactive commands:
  /retry     Resend the most recent failed message
  /history   Show the saved conversation
  /export    Print the conversation (markdown, json or yaml)
  /clear     Clear the conversation
  /quit      Exit`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			app, err := e.openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			in := NewChatCLI()
			defer in.Close()

			r := &repl{
				ctrl:  app.Ctrl,
				in:    in,
				out:   cmd.OutOrStdout(),
				md:    newMarkdownRenderer(cfg.UI.Markdown),
				quiet: quiet,
			}
			return r.run(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "skip the banner and the saved conversation")
	return cmd
}

// =============================================================================
// REPL
// =============================================================================

// repl is the interactive loop over a lifecycle controller.
type repl struct {
	ctrl  *lifecycle.Controller
	in    inputReader
	out   io.Writer
	md    *glamour.TermRenderer
	quiet bool
}

// run reads lines until /quit, Ctrl+C at the prompt or EOF.
func (r *repl) run(ctx context.Context) error {
	if !r.quiet {
		r.printWelcome()
		r.printConversation(r.ctrl.State().Conversation)
	}

	for {
		input, err := r.in.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			fmt.Fprintln(r.out)
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if !r.handleSlashCommand(ctx, input) {
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		r.send(ctx, func(ctx context.Context) error {
			return r.ctrl.Submit(ctx, input)
		})
	}
}

// send runs a submit or retry with Ctrl+C bound to cancelling it, then
// prints the outcome.
func (r *repl) send(ctx context.Context, op func(context.Context) error) {
	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if !r.quiet {
		fmt.Fprintln(r.out, DimStyle.Render(model.AssistantName+" is typing..."))
	}
	if err := op(sendCtx); err != nil {
		if lifecycle.IsValidation(err) {
			fmt.Fprintln(r.out, styles.RenderWarning(err.Error()))
		} else {
			fmt.Fprintln(r.out, styles.RenderError(err.Error()))
		}
		return
	}
	r.printOutcome()
}

// printOutcome prints the message that ended the exchange: the reply, or
// the failure notice with a retry hint.
func (r *repl) printOutcome() {
	conv := r.ctrl.State().Conversation
	n := len(conv)
	if n == 0 {
		return
	}
	r.printBot(conv[n-1].Text)
	if n >= 2 && conv[n-2].Error {
		fmt.Fprintln(r.out, ErrorStyle.Render("Message failed.")+" "+DimStyle.Render("Type /retry to resend."))
	}
	fmt.Fprintln(r.out)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand runs a slash command. Returns false to exit.
func (r *repl) handleSlashCommand(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/q", "/exit":
		return false

	case "/help", "/h", "/?":
		r.printHelp()

	case "/retry", "/r":
		if _, ok := r.ctrl.State().Conversation.LastFailed(); !ok {
			fmt.Fprintln(r.out, styles.RenderInfo("Nothing to retry."))
			return true
		}
		r.send(ctx, r.ctrl.RetryLast)

	case "/history":
		conv := r.ctrl.State().Conversation
		fmt.Fprint(r.out, storage.FormatHistory(conv, GetTerminalWidth()-30))
		if conv.IsDefault() {
			fmt.Fprintln(r.out)
		}

	case "/export":
		format, err := storage.ParseFormat(strings.Join(args, ""))
		if err != nil {
			fmt.Fprintln(r.out, styles.RenderError(err.Error()))
			return true
		}
		if err := storage.Export(r.out, r.ctrl.State().Conversation, format); err != nil {
			fmt.Fprintln(r.out, styles.RenderError(err.Error()))
		}

	case "/clear", "/c":
		if err := r.ctrl.Clear(ctx); err != nil {
			fmt.Fprintln(r.out, styles.RenderError(err.Error()))
			return true
		}
		fmt.Fprintln(r.out, styles.RenderSuccess("Conversation cleared."))
		r.printBot(model.GreetingText)
		fmt.Fprintln(r.out)

	default:
		fmt.Fprintln(r.out, styles.RenderWarning("unknown command "+name+" (try /help)"))
	}
	return true
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *repl) printWelcome() {
	fmt.Fprintln(r.out, welcomeStyle.Render("Sirsi AI Chatbot"))
	fmt.Fprintln(r.out, DimStyle.Render("Type a message and press Enter. /help lists commands, Ctrl+D exits."))
	fmt.Fprintln(r.out, RenderSeparator(GetTerminalWidth()-4))
}

func (r *repl) printHelp() {
	cmds := [][2]string{
		{"/retry", "Resend the most recent failed message"},
		{"/history", "Show the saved conversation"},
		{"/export [fmt]", "Print the conversation (markdown, json, yaml)"},
		{"/clear", "Clear the conversation"},
		{"/quit", "Exit"},
	}
	for _, c := range cmds {
		fmt.Fprintf(r.out, "  %-16s %s\n", commandStyle.Render(c[0]), c[1])
	}
}

// printConversation replays the saved conversation.
func (r *repl) printConversation(conv model.Conversation) {
	for _, msg := range conv {
		if msg.Role == model.RoleUser {
			fmt.Fprintln(r.out, userLabelStyle.Render("You: ")+msg.Text)
			if msg.Error {
				fmt.Fprintln(r.out, ErrorStyle.Render("Message failed."))
			}
			continue
		}
		r.printBot(msg.Text)
	}
	fmt.Fprintln(r.out)
}

func (r *repl) printBot(text string) {
	fmt.Fprintln(r.out, botLabelStyle.Render(model.AssistantName+": ")+renderMarkdown(r.md, text))
}
