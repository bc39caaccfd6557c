package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newSupersCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "supers <class>",
		Short: "List every ancestor of a class, nearest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.Index.Contains(args[0]) {
				return fmt.Errorf("class %s is not indexed", args[0])
			}
			supers := s.Index.SuperClasses(args[0])
			return g.printer(cmd).print(supers, func(w io.Writer) error {
				for _, name := range supers {
					if _, err := fmt.Fprintln(w, name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
