package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InsertOptions holds flags for the insert command.
type InsertOptions struct {
	*RootOptions
	Hash uint32
}

// InsertOutput is the insert command result.
type InsertOutput struct {
	Hash     uint32 `json:"hash"`
	Inserted bool   `json:"inserted"`
}

func (o InsertOutput) String() string {
	return fmt.Sprintf("inserted: %t", o.Inserted)
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InsertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Record one occurrence of an event hash",
		Long: `Record one occurrence of an event hash at the current time.

The timestamp is rounded to the nearest millisecond. A second occurrence of
the same hash in the same millisecond is not recorded.

Exit codes:
  0 - Occurrence recorded
  1 - Not recorded (duplicate millisecond or store unavailable)
  2 - Command error

Example:
  evhist insert --hash 3735928559`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(opts, cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.Hash, "hash", 0, "event hash (required)")
	_ = cmd.MarkFlagRequired("hash")

	return cmd
}

func runInsert(opts *InsertOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	st, err := opts.openStore(cmd, f)
	if err != nil {
		return err
	}
	defer st.Close()

	ok := <-st.Insert(opts.Hash)
	if err := f.Success(InsertOutput{Hash: opts.Hash, Inserted: ok}); err != nil {
		return err
	}
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("occurrence of hash %d not recorded", opts.Hash))
	}
	return nil
}
