package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dhamidi/classlens/java"
)

// memberView is a member with its type variables already bound.
type memberView struct {
	DeclaringClass string   `json:"declaringClass" yaml:"declaringClass"`
	Kind           string   `json:"kind" yaml:"kind"`
	Name           string   `json:"name" yaml:"name"`
	Declaration    string   `json:"declaration" yaml:"declaration"`
	Type           string   `json:"type" yaml:"type"`
	Parameters     []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

func viewMember(m *java.Member) memberView {
	v := memberView{
		DeclaringClass: m.DeclaringClass,
		Kind:           string(m.Kind),
		Name:           m.Name,
		Declaration:    m.Declaration(),
		Type:           m.ReturnType(),
	}
	if !m.IsField() {
		v.Parameters = m.ParameterTypes()
	}
	return v
}

func newReflectCmd(g *globals) *cobra.Command {
	var (
		name   string
		fields bool
	)

	cmd := &cobra.Command{
		Use:   "reflect <class>",
		Short: "List the members of a class, inherited ones included",
		Long: `List the members of a class, inherited ones included.

Type arguments bind the class's type parameters in every member:

  classlens reflect 'java.util.Map<java.lang.String,java.lang.Long>'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			var members []*java.Member
			if fields {
				members = s.Reflector.Fields(args[0], name)
			} else {
				members = s.Reflector.Reflect(args[0])
			}
			views := make([]memberView, 0, len(members))
			for _, m := range members {
				if name != "" && m.Name != name {
					continue
				}
				views = append(views, viewMember(m))
			}
			if len(views) == 0 {
				return fmt.Errorf("no members found for %s", args[0])
			}

			return g.printer(cmd).print(views, func(w io.Writer) error {
				for _, v := range views {
					if _, err := fmt.Fprintf(w, "%s\t%s\n", v.Declaration, v.DeclaringClass); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "only members with this name")
	cmd.Flags().BoolVar(&fields, "fields", false, "only fields")

	return cmd
}
