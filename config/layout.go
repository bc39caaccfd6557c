package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Layout is the compiled output of a modular project checked out under
// Root:
//
//	src/<project>/<module>/module-info.java
//	out/<project>.<module>/   class directories
//	lib/*.jar                 dependency archives
type Layout struct {
	Root    string
	ID      string
	OutDirs []string
	Jars    []string
}

// DetectLayout finds the project under root. Modules without an output
// directory yet are left out.
func DetectLayout(root string) (*Layout, error) {
	srcDir := filepath.Join(root, "src")
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("read src directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		modules := scanModules(filepath.Join(srcDir, entry.Name()))
		if len(modules) == 0 {
			continue
		}

		l := &Layout{Root: root, ID: entry.Name()}
		for _, m := range modules {
			out := filepath.Join(root, "out", l.ID+"."+m)
			if st, err := os.Stat(out); err == nil && st.IsDir() {
				l.OutDirs = append(l.OutDirs, out)
			}
		}
		l.Jars = jars(filepath.Join(root, "lib"))
		return l, nil
	}
	return nil, fmt.Errorf("detect layout in %s: no src/<project>/<module>/module-info.java", root)
}

func scanModules(projectDir string) []string {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(projectDir, entry.Name(), "module-info.java")); err == nil {
			out = append(out, entry.Name())
		}
	}
	return out
}

func jars(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".jar") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

// Paths lists the output directories, then the archives.
func (l *Layout) Paths() []string {
	return append(append([]string(nil), l.OutDirs...), l.Jars...)
}
