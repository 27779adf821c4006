// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Root command, application bootstrap and the TUI entry point.

package cli

import (
	"context"
	"fmt"
	"runtime"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/sirsi/internal/config"
	"github.com/jeranaias/sirsi/internal/lifecycle"
	"github.com/jeranaias/sirsi/internal/logging"
	"github.com/jeranaias/sirsi/internal/remote"
	"github.com/jeranaias/sirsi/internal/storage"
	"github.com/jeranaias/sirsi/internal/ui/chat"
	"github.com/jeranaias/sirsi/internal/ui/styles"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

// clientFactory builds the remote chat client for a loaded config.
type clientFactory func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (remote.Client, error)

// geminiFactory is the production clientFactory. A missing API key is an
// *config.InitializationError.
func geminiFactory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (remote.Client, error) {
	key, err := cfg.RequireAPIKey()
	if err != nil {
		return nil, err
	}
	client, err := remote.NewGeminiClient(ctx, remote.GeminiConfig{
		APIKey:            key,
		BaseURL:           cfg.Client.BaseURL,
		RequestsPerMinute: cfg.Client.RequestsPerMinute,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("gemini client ready", zap.String("model", client.Model()))
	return client, nil
}

// env carries the persistent flags and collaborators shared by commands.
type env struct {
	configPath string
	backend    string
	logLevel   string

	newClient clientFactory
}

// NewRootCmd builds the sirsi command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(geminiFactory)
}

func newRootCmd(newClient clientFactory) *cobra.Command {
	e := &env{newClient: newClient}

	root := &cobra.Command{
		Use:   "sirsi",
		Short: "Sirsi - terminal chat with the Sirsi support assistant",
		Long: `Sirsi is a chat client for the Sirsi virtual assistant.

Running sirsi with no command opens the full-screen chat. The conversation
is saved between runs; a message that fails to send is kept and can be
retried.

The Gemini API key is read from SIRSI_API_KEY, GEMINI_API_KEY or API_KEY,
or from api_key in ~/.sirsi/config.toml.`,
		Example: `  sirsi                          Open the chat UI
  sirsi chat                     Line-based chat in the terminal
  sirsi ask "Where is my order?" Ask one question
  sirsi history export -f json   Export the saved conversation`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          e.runTUI,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&e.configPath, "config", "c", "", "config file (default ~/.sirsi/config.toml)")
	flags.StringVar(&e.backend, "storage", "", "storage backend: file, sqlite or memory")
	flags.StringVar(&e.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	root.AddCommand(
		e.newChatCmd(),
		e.newAskCmd(),
		e.newHistoryCmd(),
		e.newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		DisplayError(root.ErrOrStderr(), err)
	}
	return ExitCode(err)
}

// =============================================================================
// APPLICATION BOOTSTRAP
// =============================================================================

// App is the wired application: config, logger, storage and, for commands
// that talk to the model, the lifecycle controller.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	KV     storage.KV
	Store  *storage.ConversationStore
	Ctrl   *lifecycle.Controller
}

// Close releases the controller, storage and logger.
func (a *App) Close() {
	if a.Ctrl != nil {
		a.Ctrl.Close()
	}
	if err := a.KV.Close(); err != nil {
		a.Logger.Warn("closing storage", zap.Error(err))
	}
	_ = a.Logger.Sync()
}

// loadConfig loads the config file and applies the persistent flags.
func (e *env) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if e.configPath != "" {
		cfg, err = config.LoadFromPath(e.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &configError{err: err}
	}

	if e.backend != "" {
		cfg.Storage.Backend = e.backend
	}
	if e.logLevel != "" {
		cfg.Logging.Level = e.logLevel
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &configError{err: fmt.Errorf("invalid config: %w", err)}
	}
	return cfg, nil
}

// openStore wires logging and storage. The conversation is loaded.
func (e *env) openStore(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
		JSON:  cfg.Logging.JSON,
	})
	if err != nil {
		return nil, &configError{err: fmt.Errorf("logging: %w", err)}
	}

	kv, err := storage.Open(cfg.Storage.Backend, cfg.StoragePath())
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	store := storage.NewConversationStore(kv, cfg.Storage.Key, logger)
	store.Load(ctx)

	logger.Info("sirsi started",
		zap.String("version", Version),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("key", store.Key()))

	return &App{Config: cfg, Logger: logger, KV: kv, Store: store}, nil
}

// openApp wires everything, including the remote client and controller.
// The controller is loaded, so its session is already seeded.
func (e *env) openApp(ctx context.Context, cfg *config.Config) (*App, error) {
	// Fail on a missing key before touching storage.
	if _, err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	app, err := e.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := e.newClient(ctx, cfg, app.Logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Ctrl = lifecycle.New(app.Store, client, lifecycle.Options{
		SendTimeout: time.Duration(cfg.Client.SendTimeoutSecs) * time.Second,
		Logger:      app.Logger,
	})
	app.Ctrl.Load(ctx)
	return app, nil
}

// =============================================================================
// TUI
// =============================================================================

// runTUI opens the full-screen chat.
func (e *env) runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if err := RequiresTTY("open the chat UI"); err != nil {
		return &UsageError{Err: fmt.Errorf("%w (try 'sirsi chat' or 'sirsi ask')", err)}
	}

	app, err := e.openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	m := chat.New(app.Ctrl, styles.NewTheme(cfg.UI.Theme), chat.Options{Markdown: cfg.UI.Markdown})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI: %w", err)
	}
	return nil
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sirsi %s\n", Version)
			fmt.Fprintf(out, "  commit:  %s\n", GitCommit)
			fmt.Fprintf(out, "  built:   %s\n", BuildDate)
			fmt.Fprintf(out, "  model:   %s\n", remote.DefaultModel)
			fmt.Fprintf(out, "  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
