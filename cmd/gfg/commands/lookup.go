package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-flow-graph/pkg/registry"
)

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup [unit-path-prefix]",
	Short: "Show registered edge files",
	Long: `Lists the registry entries whose unit path starts with the given prefix.
An exact unit path prints a single entry. Requires registry_path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("registry") {
			c.RegistryPath, _ = cmd.Flags().GetString("registry")
		}
		if c.RegistryPath == "" {
			return fmt.Errorf("no registry configured (set registry_path or --registry)")
		}

		reg, err := registry.OpenBadger(c.RegistryPath, newLogger(c))
		if err != nil {
			return err
		}
		defer reg.Close()

		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
			if abs, err := filepath.Abs(prefix); err == nil {
				if _, statErr := os.Stat(prefix); statErr == nil {
					prefix = abs
				}
			}
		}

		var entries []registry.Entry
		if e, err := reg.Get(cmd.Context(), prefix); err == nil {
			entries = []registry.Entry{e}
		} else if !errors.Is(err, registry.ErrNotFound) {
			return err
		} else {
			entries, err = reg.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if len(entries) == 0 {
			fmt.Println("No entries.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "UNIT\tCFG\tMETHODS\tEDGES\tRUN\tUPDATED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
				e.UnitPath, e.CFGPath, e.Methods, e.Edges, e.RunID, e.UpdatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	lookupCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	lookupCmd.Flags().String("registry", "", "Registry directory (default from config)")
}
