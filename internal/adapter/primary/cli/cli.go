package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"countdown/internal/adapter/primary/web"
	"countdown/internal/config"
	"countdown/internal/logging"
)

var (
	cfgPath   string
	verbosity int
)

// NewRootCmd creates the root CLI command.
// This is the primary adapter that translates CLI inputs to use case calls.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "countdown",
		Short:         "Categorized countdown timers with alerts",
		Long:          "Create, group and run countdown timers from the command line, an interactive shell or a small HTTP API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "path to the settings file")
	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "more log output (-v, -vv, ... up to 4)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.SetVerbosity(verbosity)
	}

	cmd.AddCommand(
		newServeCmd(),
		newShellCmd(),
		newTimerCmd(),
		newCategoryCmd(),
		newHistoryCmd(),
		newExportCmd(),
		newThemeCmd(),
		newConfigCmd(),
	)

	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			e, err := openEngine(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer e.Close()

			if !cmd.Flags().Changed("addr") {
				addr = e.settings.Web.Addr
			}
			srv := web.NewServer(e.timers, addr)
			fmt.Fprintf(cmd.OutOrStdout(), "countdown API running at http://%s\n", addr)
			logging.Infof("API: http://%s", addr)

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "shutting down...")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "HTTP listen address:port")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings as YAML",
			RunE: func(cmd *cobra.Command, args []string) error {
				settings, err := loadSettings()
				if err != nil {
					return err
				}
				if settings.Notify.Telegram.Token != "" {
					settings.Notify.Telegram.Token = "********"
				}
				data, err := config.Marshal(settings)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the settings file location",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), cfgPath)
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the default settings file if none exists",
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := os.Stat(cfgPath); err == nil {
					return fmt.Errorf("%s already exists", cfgPath)
				}
				store, err := config.NewFileStore(cfgPath)
				if err != nil {
					return err
				}
				if err := store.Save(config.Default()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfgPath)
				return nil
			},
		},
	)
	return cmd
}

func newShellCmd() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell; timers keep running between commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveShell(cmd.Context(), prompt)
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "countdown> ", "shell prompt")
	return cmd
}

func runInteractiveShell(ctx context.Context, prompt string) error {
	historyFile := filepath.Join(os.TempDir(), "countdown-shell.history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	e, err := openEngine(ctx, rl.Stdout())
	if err != nil {
		return err
	}
	sharedEngine = e
	defer func() {
		sharedEngine = nil
		e.Close()
	}()

	sessionVerbosity := verbosity
	fmt.Println("Interactive shell. 'help' for examples, 'exit' to quit.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Println()
			continue
		}
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch line {
		case "exit", "quit":
			fmt.Println("Bye!")
			return nil
		case "help":
			printShellHelp()
			continue
		}
		tokens, err := shlex.Split(line)
		if err != nil {
			fmt.Printf("Parse error: %v\n", err)
			continue
		}
		if len(tokens) == 0 {
			continue
		}
		if tokens[0] == "log" {
			if err := handleShellLog(tokens[1:], &sessionVerbosity); err != nil {
				fmt.Printf("log: %v\n", err)
			}
			continue
		}
		switch tokens[0] {
		case "shell":
			fmt.Println("Already in the shell. Type another command or 'exit'.")
			continue
		case "serve":
			fmt.Println("serve is not available inside the shell.")
			continue
		}

		verbosity = sessionVerbosity
		if err := executeArgs(tokens); err != nil {
			fmt.Printf("command error: %v\n", err)
		}
		sessionVerbosity = verbosity
	}
}

func executeArgs(args []string) error {
	if len(args) == 0 {
		return nil
	}
	root := NewRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func handleShellLog(args []string, sessionVerbosity *int) error {
	fs := pflag.NewFlagSet("log", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var vcount int
	var level string
	var show bool
	fs.CountVarP(&vcount, "verbose", "v", "Increase verbosity (-v... up to 4)")
	fs.StringVar(&level, "level", "", "level name (error|warn|info|debug|trace)")
	fs.BoolVarP(&show, "show", "s", false, "print the current level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case show && vcount == 0 && level == "":
		fmt.Printf("log level: %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
		return nil
	case level != "":
		_, count, err := logging.ParseLevel(level)
		if err != nil {
			return err
		}
		*sessionVerbosity = count
	case vcount > 0:
		*sessionVerbosity = vcount
	default:
		fmt.Printf("log level: %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
		return nil
	}

	verbosity = *sessionVerbosity
	logging.SetVerbosity(*sessionVerbosity)
	fmt.Printf("log level set to %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
	return nil
}

func printShellHelp() {
	fmt.Println(`Examples:
  timer add "Plank" --category Workout --duration 90s --mid 50
  timer list --category Workout
  timer start plank            # by id, id prefix or name
  category start Workout       # start every timer in a category
  timer pause-all
  history
  export --format ics --out done.ics
  theme set dark
  log -vv                      # more log output
  log --show                   # current log level
  exit / quit`)
}

// signalContext is the foreground wait of one-shot commands.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}

// parseSeconds accepts a Go duration ("1m30s") or a bare number of seconds.
func parseSeconds(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("duration %q is not a whole number of seconds", s)
	}
	return int(d / time.Second), nil
}
