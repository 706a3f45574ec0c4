package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/evhist/internal/clock"
	"github.com/roach88/evhist/internal/store"
)

// rangeFlags holds the --from/--to bounds shared by select and delete.
type rangeFlags struct {
	From string
	To   string
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.From, "from", "", "inclusive lower bound, RFC3339 or epoch ms (default: epoch)")
	cmd.Flags().StringVar(&r.To, "to", "", "inclusive upper bound, RFC3339 or epoch ms (default: now)")
}

// parse resolves the flags into a store.Range. Empty flags stay open.
func (r *rangeFlags) parse() (store.Range, error) {
	var out store.Range
	if r.From != "" {
		t, err := clock.Parse(r.From)
		if err != nil {
			return out, fmt.Errorf("--from: %w", err)
		}
		out.From = t
	}
	if r.To != "" {
		t, err := clock.Parse(r.To)
		if err != nil {
			return out, fmt.Errorf("--to: %w", err)
		}
		out.To = t
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.To.Before(out.From) {
		return out, fmt.Errorf("--to %s is before --from %s", r.To, r.From)
	}
	return out, nil
}
