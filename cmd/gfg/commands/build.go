package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-flow-graph/internal/config"
	"github.com/l3aro/go-flow-graph/internal/log"
	"github.com/l3aro/go-flow-graph/internal/scanner"
	"github.com/l3aro/go-flow-graph/pkg/dirty"
	"github.com/l3aro/go-flow-graph/pkg/gir"
	"github.com/l3aro/go-flow-graph/pkg/pipeline"
	"github.com/l3aro/go-flow-graph/pkg/registry"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build [paths...]",
	Short: "Build edge files for unit files or directories",
	Long: `Scans each directory for unit files below the configured gir directory,
builds the control flow graph of every method and writes one edge file per
unit under the semantic directory. Unit files given directly are always built.

With a state file configured, units whose content and build settings are
unchanged since the last successful build are skipped. Use --full to rebuild
everything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applyBuildFlags(cmd, c); err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")

		if len(args) == 0 {
			args = []string{"."}
		}
		return runBuild(cmd.Context(), c, args, jsonOutput)
	},
}

func init() {
	buildCmd.Flags().IntP("workers", "w", 0, "Units processed concurrently (default from config)")
	buildCmd.Flags().String("on-error", "", "Failure policy: skip or abort (default from config)")
	buildCmd.Flags().String("registry", "", "Registry directory (default from config)")
	buildCmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this file")
	buildCmd.Flags().String("state-file", "", "Build state file for incremental builds (default from config)")
	buildCmd.Flags().Bool("full", false, "Ignore build state and rebuild every unit")
	buildCmd.Flags().BoolP("json", "j", false, "Output the report as JSON")
}

func applyBuildFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		c.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("on-error") {
		v, _ := flags.GetString("on-error")
		c.OnError = config.ErrorPolicy(v)
	}
	if flags.Changed("registry") {
		c.RegistryPath, _ = flags.GetString("registry")
	}
	if flags.Changed("metrics-file") {
		c.MetricsFile, _ = flags.GetString("metrics-file")
	}
	if flags.Changed("state-file") {
		c.StateFile, _ = flags.GetString("state-file")
	}
	if full, _ := flags.GetBool("full"); full {
		c.StateFile = ""
	}
	return c.Validate()
}

// collectUnits expands directories into the unit files they contain.
func collectUnits(c *config.Config, args []string) ([]string, error) {
	sc := scanner.New(scannerOptions(c))

	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			if !gir.IsUnitFile(arg) {
				return nil, fmt.Errorf("not a unit file: %s", arg)
			}
			abs, err := filepath.Abs(arg)
			if err != nil {
				return nil, fmt.Errorf("getting absolute path: %w", err)
			}
			paths = append(paths, abs)
			continue
		}

		files, err := sc.Scan(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, scanner.Paths(files)...)
	}
	return paths, nil
}

func runBuild(ctx context.Context, c *config.Config, args []string, jsonOutput bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(c)

	paths, err := collectUnits(c, args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		logger.Warn("no unit files found", "paths", args, "gir_dir", c.GIRDir)
		return nil
	}

	var reg registry.Registry
	if c.RegistryPath != "" {
		b, err := registry.OpenBadger(c.RegistryPath, logger)
		if err != nil {
			return err
		}
		defer b.Close()
		reg = b
	}

	var tracker *dirty.Tracker
	if c.StateFile != "" {
		tracker, err = dirty.Open(dirty.WithStateFile(c.StateFile))
		if err != nil {
			logger.Warn("ignoring unreadable build state", "state_file", c.StateFile, "error", err)
			tracker = dirty.New(dirty.WithStateFile(c.StateFile))
		}
	}

	runner := pipeline.NewRunner(pipeline.Options{
		Layout:       layoutFor(c),
		Workers:      c.Workers,
		AbortOnError: c.OnError == config.OnErrorAbort,
		Analysis:     analysisOptions(c),
		Tracker:      tracker,
	}, reg, logger)

	spinner := log.NewProgressSpinner(fmt.Sprintf("Building %d units...", len(paths)))
	if !c.Verbose && !jsonOutput && !c.JSONLog {
		spinner.Start()
	}
	report, runErr := runner.Run(ctx, paths)
	spinner.Stop()

	if tracker != nil {
		if err := tracker.Save(); err != nil {
			logger.Error("saving build state failed", "error", err)
		}
	}

	if c.MetricsFile != "" {
		if err := runner.Metrics().WriteTextfile(c.MetricsFile); err != nil {
			logger.Error("writing metrics failed", "error", err)
		}
	}

	if jsonOutput {
		if err := printReportJSON(report); err != nil {
			return err
		}
	} else {
		printReport(report)
	}

	return runErr
}

type reportJSON struct {
	RunID   string           `json:"run_id"`
	Elapsed string           `json:"elapsed"`
	Methods int              `json:"methods"`
	Edges   int              `json:"edges"`
	Failed  int              `json:"failed_units"`
	Skipped int              `json:"skipped_units"`
	Units   []unitReportJSON `json:"units"`
}

type unitReportJSON struct {
	UnitPath string   `json:"unit_path"`
	UnitID   int64    `json:"unit_id"`
	CFGPath  string   `json:"cfg_path,omitempty"`
	Methods  int      `json:"methods"`
	Edges    int      `json:"edges"`
	Skipped  bool     `json:"skipped,omitempty"`
	Error    string   `json:"error,omitempty"`
	Failures []string `json:"method_failures,omitempty"`
}

func printReportJSON(report *pipeline.Report) error {
	methods, edges, failed := report.Totals()
	out := reportJSON{
		RunID:   report.RunID,
		Elapsed: report.Finished.Sub(report.Started).Round(time.Millisecond).String(),
		Methods: methods,
		Edges:   edges,
		Failed:  failed,
		Skipped: report.Skipped(),
	}
	for _, u := range report.Units {
		ur := unitReportJSON{
			UnitPath: u.UnitPath,
			UnitID:   u.UnitID,
			CFGPath:  u.CFGPath,
			Methods:  u.Methods,
			Edges:    u.Edges,
			Skipped:  u.Skipped,
		}
		if u.Err != nil {
			ur.Error = u.Err.Error()
		}
		for _, f := range u.Failures {
			ur.Failures = append(ur.Failures, f.Error())
		}
		out.Units = append(out.Units, ur)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printReport(report *pipeline.Report) {
	methods, edges, failed := report.Totals()
	fmt.Printf("Run %s: %d units, %d methods, %d edges in %s\n",
		report.RunID, len(report.Units), methods, edges,
		report.Finished.Sub(report.Started).Round(time.Millisecond))
	if skipped := report.Skipped(); skipped > 0 {
		fmt.Printf("%d unchanged units skipped\n", skipped)
	}

	if failed == 0 {
		return
	}
	fmt.Printf("\nFailures (%d units):\n", failed)
	for _, u := range report.Units {
		if u.Err != nil {
			fmt.Printf("  %s: %v\n", u.UnitPath, u.Err)
			continue
		}
		for _, f := range u.Failures {
			fmt.Printf("  %s: %v\n", u.UnitPath, f)
		}
	}
}
