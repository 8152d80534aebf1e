package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-flow-graph/pkg/cfg"
	"github.com/l3aro/go-flow-graph/pkg/gir"
	"github.com/l3aro/go-flow-graph/pkg/store"
)

// rowsCmd represents the rows command
var rowsCmd = &cobra.Command{
	Use:   "rows <edge-file|unit-file>",
	Short: "Print the rows of an edge file",
	Long: `Prints the stored edge rows. Given a unit file, the edge file derived from
the configured directories is read instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if gir.IsUnitFile(path) {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path = layoutFor(c).PathFor(path)
		}

		rows, err := store.Load(path)
		if err != nil {
			return err
		}

		if method, _ := cmd.Flags().GetInt64("method"); method != 0 {
			rows = filterRows(rows, method)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "UNIT\tMETHOD\tSRC\tDST\tKIND")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n", r.UnitID, r.MethodID, r.Source, nodeLabel(r.Target), r.Weight)
		}
		return w.Flush()
	},
}

func filterRows(rows []cfg.EdgeRow, method int64) []cfg.EdgeRow {
	var out []cfg.EdgeRow
	for _, r := range rows {
		if r.MethodID == method {
			out = append(out, r)
		}
	}
	return out
}

func init() {
	rowsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	rowsCmd.Flags().Int64P("method", "m", 0, "Only rows of this method id")
}
