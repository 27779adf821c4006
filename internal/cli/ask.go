// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command for the sirsi CLI.
//
// Command: ask [question]
// Short:   Ask Sirsi a single question
//
// Examples:
//   sirsi ask "Where is my order?"
//   echo "How do I reset my router?" | sirsi ask
//   sirsi ask --ephemeral "Quick question"

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jeranaias/sirsi/internal/model"
	"github.com/jeranaias/sirsi/internal/storage"
)

// MaxQuestionBytes caps a question read from stdin.
const MaxQuestionBytes = 64 * 1024

func (e *env) newAskCmd() *cobra.Command {
	var ephemeral bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask Sirsi a single question",
		Long: `Sends one message and prints the reply. With no arguments the question
is read from stdin. The exchange is added to the saved conversation unless
--ephemeral is given.

Exits with status 5 when the reply could not be obtained; the failed message
stays in the conversation so 'sirsi chat' can retry it.`,
		Example: `  sirsi ask "Where is my order?"
  echo "How do I reset my router?" | sirsi ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runAsk(cmd, args, ephemeral)
		},
	}
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "do not read or save the conversation")
	return cmd
}

func (e *env) runAsk(cmd *cobra.Command, args []string, ephemeral bool) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		q, err := readQuestion(cmd.InOrStdin())
		if err != nil {
			return err
		}
		question = q
	}

	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if ephemeral {
		cfg.Storage.Backend = storage.BackendMemory
	}

	app, err := e.openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := app.Ctrl.Submit(ctx, question); err != nil {
		return err
	}

	reply, ok := lastReply(app.Ctrl.State().Conversation)
	if !ok {
		fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render(model.FailureNotice))
		return ErrSendFailed
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderMarkdown(newMarkdownRenderer(cfg.UI.Markdown), reply))
	return nil
}

// readQuestion reads the question from in. An interactive terminal with no
// argument is a usage error rather than a silent wait.
func readQuestion(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", &UsageError{Err: errors.New("no question given")}
	}

	data, err := io.ReadAll(io.LimitReader(in, MaxQuestionBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading question: %w", err)
	}
	if len(data) > MaxQuestionBytes {
		return "", &UsageError{Err: fmt.Errorf("question exceeds %d bytes", MaxQuestionBytes)}
	}

	question := strings.TrimSpace(string(data))
	if question == "" {
		return "", &UsageError{Err: errors.New("no question given")}
	}
	return question, nil
}

// lastReply returns the bot reply that closed the latest exchange. It
// reports false when the exchange ended in a failure.
func lastReply(conv model.Conversation) (string, bool) {
	n := len(conv)
	if n < 2 || conv[n-2].Error {
		return "", false
	}
	last := conv[n-1]
	if last.Role != model.RoleBot || last.IsGreeting() {
		return "", false
	}
	return last.Text, true
}
