package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// InfoOutput describes the resolved store location.
type InfoOutput struct {
	Path          string `json:"path"`
	Dir           string `json:"dir"`
	Name          string `json:"name"`
	BusyTimeoutMs int64  `json:"busy_timeout_ms"`
	Exists        bool   `json:"exists"`
	SizeBytes     int64  `json:"size_bytes,omitempty"`
}

func (o InfoOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "path: %s\n", o.Path)
	fmt.Fprintf(&b, "dir: %s\n", o.Dir)
	fmt.Fprintf(&b, "name: %s\n", o.Name)
	fmt.Fprintf(&b, "busy_timeout_ms: %d\n", o.BusyTimeoutMs)
	fmt.Fprintf(&b, "exists: %t", o.Exists)
	if o.Exists {
		fmt.Fprintf(&b, "\nsize_bytes: %d", o.SizeBytes)
	}
	return b.String()
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the resolved store location and settings",
		Long: `Show the resolved store location and settings without opening the store.

Example:
  evhist info --config ./evhist.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, cmd)
		},
	}
	return cmd
}

func runInfo(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := opts.ResolveConfig()
	if err != nil {
		return f.Fail(CodeConfig, WrapExitError(ExitCommandError, "invalid configuration", err))
	}

	out := InfoOutput{
		Path:          cfg.Path(),
		Dir:           cfg.Dir,
		Name:          cfg.Name,
		BusyTimeoutMs: cfg.BusyTimeout.Milliseconds(),
	}
	if fi, err := os.Stat(out.Path); err == nil {
		out.Exists = true
		out.SizeBytes = fi.Size()
	}

	return f.Success(out)
}
