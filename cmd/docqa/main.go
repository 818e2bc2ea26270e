package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docqa/internal/config"
	"docqa/internal/logger"
	"docqa/internal/session"
	"docqa/internal/tui"
)

type flags struct {
	configPath string
	verbose    bool
	ephemeral  bool
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "docqa [file]",
		Short: "Chat with a PDF document using a local model",
		Long: `docqa indexes one PDF document and answers questions about it with a
local Ollama model. The optional file argument pre-fills the upload screen.

Controls:
  Enter        - Upload / Send question
  PgUp/PgDown  - Scroll the conversation
  Ctrl+C       - Quit`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var initial string
			if len(args) == 1 {
				initial = args[0]
			}
			return run(cmd.Context(), f, initial)
		},
	}
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to YAML or TOML config (default ./config.yaml or ~/.config/docqa/config.yaml)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Log at debug level")
	cmd.Flags().BoolVar(&f.ephemeral, "ephemeral", false, "Keep the vector index in memory for this run only")
	return cmd
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "docqa:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags, initialPath string) error {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if f.verbose {
		cfg.Logging.Level = "debug"
	}
	if f.ephemeral {
		cfg.VectorStore.Type = "memory"
	}

	log, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync()

	app, err := assemble(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	app.Ping(pingCtx)
	cancel()

	sess := session.New(cfg.Session.Greeting)
	defer sess.Close()
	ctrl := session.NewController(sess, app.Service, cfg.AdvanceOnFailure())
	log.Info("session started", "session", sess.ID(), "store", cfg.VectorStore.Type)

	p := tea.NewProgram(tui.New(ctx, ctrl, initialPath), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}
