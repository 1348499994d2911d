package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Resolve prints path expressions the way commands receive them.
type Resolve struct {
	App *App
}

func (r *Resolve) Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve EXPR...",
		Short: "Print resolved path expressions",
		Args:  cobra.MinimumNArgs(1),
		RunE:  r.RunE,
	}
}

func (r *Resolve) RunE(_ *cobra.Command, args []string) error {
	for _, expr := range args {
		p, err := r.App.resolver.Resolve(expr)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.App.Stdout, p)
	}
	return nil
}
