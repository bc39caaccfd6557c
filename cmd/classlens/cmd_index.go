package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dhamidi/classlens/java"
)

func newIndexCmd(g *globals) *cobra.Command {
	var tokens bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Scan the class path and list every indexed class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if tokens {
				for _, cd := range s.Index.All() {
					s.Index.EnsureToken(cd.Declaration)
				}
			}
			classes := s.Index.Snapshot()
			return g.printer(cmd).print(classes, func(w io.Writer) error {
				for _, cd := range classes {
					if err := printClass(w, cd); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&tokens, "tokens", false, "assign identity tokens to every class before listing")

	return cmd
}

func printClass(w io.Writer, cd *java.ClassDescriptor) error {
	kind := "class"
	switch {
	case cd.IsAnnotation:
		kind = "@interface"
	case cd.IsInterface:
		kind = "interface"
	}
	_, err := fmt.Fprintf(w, "%-10s %s\t%s\n", kind, cd.DisplayDeclaration(), cd.FilePath)
	return err
}
