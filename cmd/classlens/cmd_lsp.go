package main

import (
	"github.com/spf13/cobra"

	"github.com/dhamidi/classlens/lsp"
)

func newLSPCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return lsp.NewServer(version, watch).RunStdio()
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "rescan class directories when they change")

	return cmd
}
