package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-flow-graph/pkg/cfg"
	"github.com/l3aro/go-flow-graph/pkg/gir"
)

// cfgCmd represents the cfg command
var cfgCmd = &cobra.Command{
	Use:   "cfg <unit-file> [method]",
	Short: "Print the control flow graph of a unit's methods",
	Long: `Builds the control flow graph of every method declared in a unit file, or of
the single method named (by name or statement id), and prints its edges.
Nothing is written to disk.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := analysisOptions(c)
		if cmd.Flags().Changed("dowhile-self-loop") {
			opts.DoWhileSelfLoop, _ = cmd.Flags().GetBool("dowhile-self-loop")
		}
		if cmd.Flags().Changed("for-self-loop") {
			opts.ForConditionSelfLoop, _ = cmd.Flags().GetBool("for-self-loop")
		}

		info, err := os.Stat(args[0])
		if err != nil {
			return fmt.Errorf("stat file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("path is a directory, expected a unit file: %s", args[0])
		}

		unit, err := gir.LoadUnit(args[0])
		if err != nil {
			return err
		}
		res, err := cfg.AnalyzeUnit(unit, opts)
		if err != nil {
			return fmt.Errorf("analyzing %s: %w", args[0], err)
		}

		methods := res.Methods
		if len(args) == 2 {
			m, ok := res.Method(args[1])
			if !ok {
				for _, f := range res.Failures {
					if f.Name == args[1] || fmt.Sprint(f.MethodID) == args[1] {
						return f
					}
				}
				return fmt.Errorf("method %q not found in %s%s", args[1], args[0], suggestMethods(res))
			}
			methods = []*cfg.CFGInfo{m}
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, err := json.MarshalIndent(methods, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
		} else {
			for _, m := range methods {
				printCFGInfo(m)
			}
		}

		if len(args) == 1 {
			for _, f := range res.Failures {
				fmt.Fprintf(os.Stderr, "warning: %v\n", f)
			}
		}
		return nil
	},
}

// suggestMethods lists the available method names for an error message.
func suggestMethods(res *cfg.UnitResult) string {
	if len(res.Methods) == 0 {
		return ""
	}
	names := make([]string, 0, len(res.Methods))
	for _, m := range res.Methods {
		names = append(names, m.MethodName)
	}
	return "\nAvailable: " + strings.Join(names, ", ")
}

// printCFGInfo prints CFG information in human-readable format.
func printCFGInfo(info *cfg.CFGInfo) {
	fmt.Printf("=== CFG for method: %s (id %d, unit %d) ===\n", info.MethodName, info.MethodID, info.UnitID)
	fmt.Printf("Nodes: %d\n", info.NodeCount)
	fmt.Printf("Edges (%d):\n", len(info.Rows))
	for _, r := range info.Rows {
		fmt.Printf("  %s --%s--> %s\n", nodeLabel(r.Source), r.Weight, nodeLabel(r.Target))
	}
	fmt.Println()
}

func nodeLabel(id int64) string {
	if id == cfg.Exit {
		return "EXIT"
	}
	return fmt.Sprint(id)
}

func init() {
	cfgCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	cfgCmd.Flags().Bool("dowhile-self-loop", false, "Add the legacy do-while self edge")
	cfgCmd.Flags().Bool("for-self-loop", false, "Keep the FOR_CONDITION self edge of a bare for loop")
}
