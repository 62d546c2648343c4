package mdblog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// Runner carries the flags shared by every command.
type Runner struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
	Watch      bool

	loggers *Loggers
}

// Flags registers the persistent flags on cmd.
func (r *Runner) Flags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&r.ConfigFile, "config", "c", "", "config file (yaml or toml)")
	flags.StringVar(&r.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&r.LogFormat, "log-format", "", "log format: console, json, pretty")
}

// Command builds the command tree. Running it with no subcommand generates
// the site.
func (r *Runner) Command(cmdName string) *cobra.Command {
	root := &cobra.Command{
		Use:           cmdName,
		Short:         "Generate a static site from a tree of markdown files",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.generate(cmd.Context())
		},
	}
	r.Flags(root)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Render every markdown file and directory listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.generate(cmd.Context())
		},
	}
	serveCmd := &cobra.Command{
		Use:   "serve [port]",
		Short: "Serve the generated site over HTTP for local preview",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.serve(cmd.Context(), args)
		},
	}
	serveCmd.Flags().BoolVarP(&r.Watch, "watch", "w", false, "regenerate the site when sources or templates change")
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit: %s)\n", cmdName, version, commit)
		},
	}
	root.AddCommand(generateCmd, serveCmd, versionCmd)
	return root
}

func (r *Runner) config() (cfg Config, err error) {
	if cfg, err = LoadConfig(r.ConfigFile); err != nil {
		return cfg, wrapValidationError(err, codeInvalidConfig)
	}
	if r.LogLevel != "" {
		cfg.Log.Level = r.LogLevel
	}
	if r.LogFormat != "" {
		cfg.Log.Format = r.LogFormat
	}
	if r.loggers, err = NewLoggers(cfg.Log); err != nil {
		return cfg, wrapValidationError(err, codeInvalidConfig)
	}
	return
}

func (r *Runner) generate(ctx context.Context) error {
	cfg, err := r.config()
	if err != nil {
		return err
	}
	_, err = r.build(ctx, cfg)
	return err
}

func (r *Runner) build(ctx context.Context, cfg Config) (res Result, err error) {
	g, err := NewGenerator(cfg, WithLogger(r.loggers.Get("generator")))
	if err != nil {
		if errors.Is(err, ErrInvalidConfig) {
			return res, wrapValidationError(err, codeInvalidConfig)
		}
		return res, wrapCommandError(err, "generate", codeGenerateFailed)
	}
	res, err = g.Generate(ctx)
	return res, wrapCommandError(err, "generate", codeGenerateFailed)
}

func (r *Runner) serve(ctx context.Context, args []string) (err error) {
	cfg, err := r.config()
	if err != nil {
		return
	}
	if len(args) > 0 {
		if cfg.Port, err = ParsePort(args[0]); err != nil {
			return wrapValidationError(err, codeInvalidArgument)
		}
	}
	log := r.loggers.Get("server")

	if r.Watch {
		if _, err = r.build(ctx, cfg); err != nil {
			return
		}
		rebuild := func(ctx context.Context) error {
			_, err := r.build(ctx, cfg)
			return err
		}
		w, zerr := newWatcher([]string{cfg.SourceRoot, cfg.TemplateDir}, DefaultWatchInterval,
			r.loggers.Get("watcher"), rebuild)
		if zerr != nil {
			return wrapCommandError(zerr, "watch", codeServeFailed)
		}
		defer w.Close()
		go w.run(ctx)
	}

	err = ListenAndServe(ctx, cfg.Port, NewHandler(cfg.OutputRoot, log), log)
	return wrapCommandError(err, "serve", codeServeFailed)
}

// Main runs the command line. SIGINT and SIGTERM stop a running server.
func Main(cmdName string, args []string) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, cmdName, args)
}

// run executes one command line until it finishes or ctx is done.
func run(ctx context.Context, cmdName string, args []string) error {
	var r Runner
	cmd := r.Command(cmdName)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
