// Package commands provides the CLI commands for the go-flow-graph tool.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-flow-graph/internal/config"
	"github.com/l3aro/go-flow-graph/internal/log"
	"github.com/l3aro/go-flow-graph/internal/scanner"
	"github.com/l3aro/go-flow-graph/pkg/cfg"
	"github.com/l3aro/go-flow-graph/pkg/store"
)

var (
	configPath string
	verbose    bool
	jsonLog    bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "gfg",
	Short: "go-flow-graph - Control flow graphs from unit files",
	Long: `go-flow-graph builds a control flow graph for every method of a unit file
and stores the edges next to the unit's source tree.

Commands:
  build       Build edge files for unit files or directories
  cfg         Print the control flow graph of a unit's methods
  rows        Print the rows of an edge file
  lookup      Show registered edge files
  init        Create a configuration interactively
  version     Print version information

Use "gfg [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ~/.gfg and ./.gfg)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Verbose logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "Log as JSON lines")

	RootCmd.AddCommand(buildCmd)
	RootCmd.AddCommand(cfgCmd)
	RootCmd.AddCommand(rowsCmd)
	RootCmd.AddCommand(lookupCmd)
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		c   *config.Config
		err error
	)
	if configPath != "" {
		c, err = config.LoadFromFile(configPath)
	} else {
		c, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("verbose") {
		c.Verbose = verbose
	}
	if cmd.Flags().Changed("json-log") {
		c.JSONLog = jsonLog
	}
	return c, nil
}

func newLogger(c *config.Config) *log.DefaultLogger {
	level := log.InfoLevel
	if c.Verbose {
		level = log.DebugLevel
	}
	return log.New(log.LoggerConfig{Level: level, JSONOutput: c.JSONLog})
}

func analysisOptions(c *config.Config) cfg.Options {
	return cfg.Options{
		MaxDepth:             c.MaxDepth,
		DoWhileSelfLoop:      c.Compat.DoWhileSelfLoop,
		ForConditionSelfLoop: c.Compat.ForConditionSelfLoop,
	}
}

func layoutFor(c *config.Config) store.Layout {
	return store.Layout{GIRDir: c.GIRDir, SemanticDir: c.SemanticDir, Ext: c.CFGExt}
}

func scannerOptions(c *config.Config) scanner.Options {
	opts := scanner.DefaultOptions()
	opts.GIRDir = c.GIRDir
	opts.SkipDirs = append(opts.SkipDirs, c.SemanticDir)
	return opts
}
