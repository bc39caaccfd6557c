package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newWatchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Index the class path and rescan class directories as they change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "indexed %d classes, watching for changes\n", s.Index.Len())
			err = s.Watch(ctx, func(changed []string, err error) {
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "refresh failed: %s\n", err)
					return
				}
				fmt.Fprintf(out, "%d files changed, %d classes indexed\n", len(changed), s.Index.Len())
			})
			if err != nil {
				return err
			}

			<-ctx.Done()
			return nil
		},
	}
}
