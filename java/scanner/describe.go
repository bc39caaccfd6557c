package scanner

import (
	"fmt"
	"slices"

	"github.com/dhamidi/classlens/classfile"
	"github.com/dhamidi/classlens/java"
	"github.com/dhamidi/classlens/java/names"
	"github.com/dhamidi/classlens/java/signature"
)

const functionalInterface = "Ljava/lang/FunctionalInterface;"

// Describe builds the index entry for a parsed class. A malformed generic
// signature still yields a descriptor together with the parse error.
func Describe(cf *classfile.ClassFile) (*java.ClassDescriptor, error) {
	name := names.ReplaceSlash(cf.ClassName())
	var (
		typeParams []string
		supers     []string
		err        error
	)
	sig := cf.Signature()
	if sig != "" {
		c, perr := signature.ParseClass(sig, nil)
		for _, tp := range c.TypeParams {
			typeParams = append(typeParams, tp.Name)
		}
		if perr != nil {
			// keep the formals, fall back to erased supertypes
			err = fmt.Errorf("class %s: %w", name, perr)
			sig = ""
		} else {
			for _, s := range c.Supers() {
				supers = append(supers, s.String())
			}
			if name != names.Object && !slices.Contains(supers, names.Object) {
				supers = append(supers, names.Object)
			}
		}
	}
	if sig == "" {
		if s := cf.SuperClassName(); s != "" {
			supers = append(supers, names.ReplaceSlash(s))
		}
		for _, i := range cf.InterfaceNames() {
			supers = append(supers, names.ReplaceSlash(i))
		}
	}

	cd := java.NewClassDescriptor(name, typeParams, supers)
	cd.IsInterface = cf.AccessFlags.IsInterface()
	cd.IsAnnotation = cf.IsAnnotation()
	cd.Functional = slices.Contains(cf.AnnotationTypes(), functionalInterface)
	return cd, err
}

// visible applies the access rule: loose output directories contribute
// every class, archives only what other code can use.
func visible(cf *classfile.ClassFile, kind Kind, f *Filter) bool {
	if kind == Directory {
		return true
	}
	flags := cf.AccessFlags
	self := cf.ClassName()
	for _, ic := range cf.InnerClasses() {
		if ic.Inner == self {
			if ic.Access.IsPrivate() {
				return false
			}
			flags = ic.Access | (flags & classfile.AccSuper)
			break
		}
	}
	if flags.IsPublic() || flags.IsProtected() {
		return true
	}
	allowSuper := kind == ClassFile || (f != nil && f.IncludePackagePrivate)
	return allowSuper && flags.IsSuper()
}
