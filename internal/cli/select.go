package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/evhist/internal/store"
)

// SelectOptions holds flags for the select command.
type SelectOptions struct {
	*RootOptions
	Hash  uint32
	Range rangeFlags
}

// SelectOutput is the select command result.
type SelectOutput struct {
	Hash   uint32       `json:"hash"`
	Result store.Result `json:"result"`
}

func (o SelectOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "count: %d", o.Result.Count)
	if o.Result.Found() {
		fmt.Fprintf(&b, "\noldest: %s", o.Result.Oldest.UTC().Format(time.RFC3339Nano))
		fmt.Fprintf(&b, "\nnewest: %s", o.Result.Newest.UTC().Format(time.RFC3339Nano))
	}
	return b.String()
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SelectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Count occurrences of an event hash in a time range",
		Long: `Count occurrences of an event hash in a time range and report the
oldest and newest matching timestamps. Both bounds are inclusive.

An unreadable store reports a count of 0.

Examples:
  evhist select --hash 42
  evhist select --hash 42 --from 2024-05-01T00:00:00Z
  evhist select --hash 42 --from 1714521600000 --to 1714608000000 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(opts, cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.Hash, "hash", 0, "event hash (required)")
	_ = cmd.MarkFlagRequired("hash")
	opts.Range.register(cmd)

	return cmd
}

func runSelect(opts *SelectOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	r, err := opts.Range.parse()
	if err != nil {
		return f.Fail(CodeInvalidInput, WrapExitError(ExitCommandError, "invalid range", err))
	}

	st, err := opts.openStore(cmd, f)
	if err != nil {
		return err
	}
	defer st.Close()

	res := st.Select(cmd.Context(), opts.Hash, r)
	return f.Success(SelectOutput{Hash: opts.Hash, Result: res})
}
