package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dhamidi/classlens/java"
)

type matchView struct {
	java.ClassDescriptor `yaml:",inline"`
	Distance             int `json:"distance,omitempty" yaml:"distance,omitempty"`
}

func newSearchCmd(g *globals) *cobra.Command {
	var (
		fuzzy    bool
		contains bool
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Find classes by simple name",
		Long: `Find classes by simple name.

By default only exact simple names and declarations match.

Examples:
  classlens search Entry
  classlens search --contains map
  classlens search --fuzzy HashMpa`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fuzzy && contains {
				return fmt.Errorf("--fuzzy and --contains are exclusive")
			}
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			var matches []matchView
			switch {
			case fuzzy:
				for _, m := range s.Index.SearchFuzzy(args[0]) {
					matches = append(matches, matchView{ClassDescriptor: *m.Class, Distance: m.Distance})
				}
			case contains:
				for _, cd := range s.Index.SearchContains(args[0]) {
					matches = append(matches, matchView{ClassDescriptor: *cd})
				}
			default:
				for _, cd := range s.Index.Search(args[0]) {
					matches = append(matches, matchView{ClassDescriptor: *cd})
				}
			}
			if limit > 0 && len(matches) > limit {
				matches = matches[:limit]
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No classes found.")
				return nil
			}

			return g.printer(cmd).print(matches, func(w io.Writer) error {
				for _, m := range matches {
					if err := printClass(w, &m.ClassDescriptor); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "rank by edit distance")
	cmd.Flags().BoolVar(&contains, "contains", false, "match names containing the keyword, ignoring case")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "show at most this many classes, 0 for all")

	return cmd
}
