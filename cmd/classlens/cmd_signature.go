package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/classlens/java/names"
	"github.com/dhamidi/classlens/java/signature"
)

type typeView struct {
	Type string   `json:"type" yaml:"type"`
	Base string   `json:"base" yaml:"base"`
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
}

func viewType(t names.TypeName) typeView {
	return typeView{Type: t.String(), Base: t.Erasure(), Args: t.ArgStrings()}
}

func viewTypes(ts []names.TypeName) []typeView {
	out := make([]typeView, len(ts))
	for i, t := range ts {
		out[i] = viewType(t)
	}
	return out
}

type typeParamView struct {
	Name   string     `json:"name" yaml:"name"`
	Bounds []typeView `json:"bounds,omitempty" yaml:"bounds,omitempty"`
}

// signatureView is a parsed signature of any kind. Only the parts the kind
// has are set.
type signatureView struct {
	Kind       string          `json:"kind" yaml:"kind"`
	TypeParams []typeParamView `json:"typeParams,omitempty" yaml:"typeParams,omitempty"`
	Supers     []typeView      `json:"supers,omitempty" yaml:"supers,omitempty"`
	Params     []typeView      `json:"params,omitempty" yaml:"params,omitempty"`
	Return     *typeView       `json:"return,omitempty" yaml:"return,omitempty"`
	Throws     []typeView      `json:"throws,omitempty" yaml:"throws,omitempty"`
	Field      *typeView       `json:"field,omitempty" yaml:"field,omitempty"`
}

func viewTypeParams(tps []signature.TypeParam) []typeParamView {
	out := make([]typeParamView, len(tps))
	for i, tp := range tps {
		out[i] = typeParamView{Name: tp.Name, Bounds: viewTypes(tp.Bounds)}
	}
	return out
}

// signatureKind guesses what sig describes: a parameter list means a
// method, leading formals without one mean a class, anything else is a
// field type.
func signatureKind(sig string) string {
	switch {
	case strings.Contains(sig, "("):
		return "method"
	case strings.HasPrefix(sig, "<"):
		return "class"
	}
	return "field"
}

func parseSignature(kind, sig string) (*signatureView, error) {
	if kind == "" || kind == "auto" {
		kind = signatureKind(sig)
	}
	v := &signatureView{Kind: kind}
	switch kind {
	case "class":
		c, err := signature.ParseClass(sig, nil)
		if err != nil {
			return nil, err
		}
		v.TypeParams = viewTypeParams(c.TypeParams)
		v.Supers = viewTypes(c.Supers())
	case "method":
		m, err := signature.ParseMethod(sig, nil)
		if err != nil {
			return nil, err
		}
		ret := viewType(m.Return)
		v.TypeParams = viewTypeParams(m.TypeParams)
		v.Params = viewTypes(m.Params)
		v.Return = &ret
		v.Throws = viewTypes(m.Throws)
	case "field":
		f, err := signature.ParseField(sig, nil)
		if err != nil {
			return nil, err
		}
		t := viewType(f.Type)
		v.Field = &t
	default:
		return nil, fmt.Errorf("unknown signature kind %q (expected auto, class, method or field)", kind)
	}
	return v, nil
}

func newSignatureCmd(g *globals) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "signature <signature>",
		Short: "Parse a generic signature or descriptor from a class file",
		Long: `Parse a generic signature or descriptor from a class file.

Examples:
  classlens signature 'Ljava/util/List<Ljava/lang/String;>;'
  classlens signature '<T:Ljava/lang/Object;>(TT;)Ljava/util/List<TT;>;'
  classlens signature --kind class 'Ljava/util/AbstractList<TE;>;Ljava/util/List<TE;>;'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseSignature(kind, args[0])
			if err != nil {
				return err
			}
			return g.printer(cmd).print(v, func(w io.Writer) error {
				return printSignature(w, v)
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "auto", "signature kind: auto, class, method or field")

	return cmd
}

func printSignature(w io.Writer, v *signatureView) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "kind: %s\n", v.Kind)
	for _, tp := range v.TypeParams {
		bounds := make([]string, len(tp.Bounds))
		for i, b := range tp.Bounds {
			bounds[i] = b.Type
		}
		fmt.Fprintf(&sb, "type param: %s extends %s\n", tp.Name, strings.Join(bounds, " & "))
	}
	line := func(label string, t typeView) {
		fmt.Fprintf(&sb, "%s: %s\n", label, t.Type)
		if len(t.Args) > 0 {
			fmt.Fprintf(&sb, "  base: %s\n  args: %s\n", t.Base, strings.Join(t.Args, ", "))
		}
	}
	for _, t := range v.Supers {
		line("super", t)
	}
	for _, t := range v.Params {
		line("param", t)
	}
	if v.Return != nil {
		line("return", *v.Return)
	}
	for _, t := range v.Throws {
		line("throws", t)
	}
	if v.Field != nil {
		line("type", *v.Field)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
