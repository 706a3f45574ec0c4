package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Hash  uint32
	Range rangeFlags
}

// DeleteOutput is the delete command result.
type DeleteOutput struct {
	Hash    uint32 `json:"hash"`
	Removed int64  `json:"removed"`
}

func (o DeleteOutput) String() string {
	return fmt.Sprintf("removed: %d", o.Removed)
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete occurrences of an event hash in a time range",
		Long: `Delete occurrences of an event hash whose timestamps fall in the
inclusive range. Without --from and --to every occurrence up to now is
removed. Other hashes are never touched.

Examples:
  evhist delete --hash 42
  evhist delete --hash 42 --to 2024-05-01T00:00:00Z`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.Hash, "hash", 0, "event hash (required)")
	_ = cmd.MarkFlagRequired("hash")
	opts.Range.register(cmd)

	return cmd
}

func runDelete(opts *DeleteOptions, cmd *cobra.Command) error {
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

	removed := <-st.Delete(opts.Hash, r)
	return f.Success(DeleteOutput{Hash: opts.Hash, Removed: removed})
}
