package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/dhamidi/classlens/config"
	"github.com/dhamidi/classlens/session"
)

const version = "0.1.0"

// globals holds the persistent flags shared by every command.
type globals struct {
	verbosity  int
	logFile    string
	configPath string
	classpath  []string
	runtime    string
	format     string

	cfg *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:          "classlens",
		Short:        "Index compiled classes and resolve names against them",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&g.verbosity, "verbose", "v", "increase log verbosity")
	flags.StringVar(&g.logFile, "log-file", "", "write logs to this file instead of stderr")
	flags.StringVarP(&g.configPath, "config", "c", "", "path to "+config.FileName+" (default: look in the working directory)")
	flags.StringSliceVar(&g.classpath, "classpath", nil, "class directories, jars and jmods to index, overriding the config")
	flags.StringVar(&g.runtime, "runtime", "", "JDK home or lib/modules image, overriding the config")
	flags.StringVarP(&g.format, "format", "f", "text", "output format: text, json or yaml")

	rootCmd.AddCommand(newIndexCmd(g))
	rootCmd.AddCommand(newReflectCmd(g))
	rootCmd.AddCommand(newSupersCmd(g))
	rootCmd.AddCommand(newSearchCmd(g))
	rootCmd.AddCommand(newSignatureCmd(g))
	rootCmd.AddCommand(newWatchCmd(g))
	rootCmd.AddCommand(newLSPCmd())

	return rootCmd
}

// setup loads the configuration, applies flag overrides and configures
// logging.
func (g *globals) setup() error {
	if _, err := newPrinter(os.Stdout, g.format); err != nil {
		return err
	}

	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.Load(g.configPath)
	} else {
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return wdErr
		}
		cfg, err = config.Find(wd)
	}
	if err != nil {
		return err
	}

	if len(g.classpath) > 0 {
		cfg.Index.Classpath = nil
		for _, p := range g.classpath {
			abs, err := filepath.Abs(p)
			if err != nil {
				return fmt.Errorf("classpath entry %s: %w", p, err)
			}
			cfg.Index.Classpath = append(cfg.Index.Classpath, abs)
		}
	}
	if g.runtime != "" {
		abs, err := filepath.Abs(g.runtime)
		if err != nil {
			return fmt.Errorf("runtime %s: %w", g.runtime, err)
		}
		cfg.Index.Runtime = abs
	}

	verbosity := max(g.verbosity, cfg.Log.Verbosity)
	logFile := g.logFile
	if logFile == "" {
		logFile = cfg.Log.File
	}
	if logFile != "" {
		commonlog.Configure(verbosity, &logFile)
	} else {
		commonlog.Configure(verbosity, nil)
	}

	g.cfg = cfg
	return nil
}

// open builds a session over the configured paths.
func (g *globals) open(ctx context.Context) (*session.Session, error) {
	return session.Open(ctx, g.cfg)
}

func (g *globals) printer(cmd *cobra.Command) *printer {
	p, _ := newPrinter(cmd.OutOrStdout(), g.format)
	return p
}
