package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/evhist/internal/config"
	"github.com/roach88/evhist/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Dir        string
	Name       string
	ConfigFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the evhist CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "evhist",
		Short: "evhist - event occurrence history",
		Long: `Record and query occurrences of hash-identified events.

Occurrences are stored at millisecond resolution in a local SQLite index.
The store location is resolved from defaults, then the --config file, then
EVHIST_DIR / EVHIST_NAME, then the --dir / --name flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", "", "storage directory (overrides config and env)")
	cmd.PersistentFlags().StringVar(&opts.Name, "name", "", "store name (overrides config and env)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to a CUE config file")

	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// ResolveConfig layers defaults, the config file, environment and flags.
func (o *RootOptions) ResolveConfig() (config.Config, error) {
	cfg := config.Default()

	if o.ConfigFile != "" {
		var err error
		cfg, err = config.LoadFile(o.ConfigFile, cfg)
		if err != nil {
			return config.Config{}, err
		}
	}

	cfg = cfg.FromEnv()

	if o.Dir != "" {
		cfg.Dir = o.Dir
	}
	if o.Name != "" {
		cfg.Name = o.Name
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger writes diagnostics to w. Store warnings are always shown;
// --verbose adds per-operation debug lines.
func (o *RootOptions) newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openStore resolves the configuration and opens the store.
// Failures are reported through f and map to ExitCommandError.
func (o *RootOptions) openStore(cmd *cobra.Command, f *OutputFormatter) (*store.Store, error) {
	cfg, err := o.ResolveConfig()
	if err != nil {
		return nil, f.Fail(CodeConfig, WrapExitError(ExitCommandError, "invalid configuration", err))
	}

	st, err := store.Open(cfg, store.WithLogger(o.newLogger(cmd.ErrOrStderr())))
	if err != nil {
		return nil, f.Fail(CodeStoreOpen, WrapExitError(ExitCommandError, "failed to open store", err))
	}
	return st, nil
}
