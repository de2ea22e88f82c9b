package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/trace-eurorack/internal/console"
	"github.com/OpenTraceLab/trace-eurorack/internal/ctxlog"
	"github.com/OpenTraceLab/trace-eurorack/pkg/circuitdef"
	"github.com/OpenTraceLab/trace-eurorack/pkg/erc"
	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/symlib"
	"github.com/OpenTraceLab/trace-eurorack/pkg/netlist"
)

var (
	strictERC bool
	outputDir string
)

var circuitCmd = &cobra.Command{
	Use:   "circuit <definition.hcl>",
	Short: "Check one circuit and write its netlist",
	Long: `Load a circuit definition, run the electrical rules check, print a
summary and write <output_dir>/<name>.net.

ERC findings are reported but do not fail the command unless
--strict-erc is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runCircuit,
}

func init() {
	rootCmd.AddCommand(circuitCmd)
	circuitCmd.Flags().BoolVar(&strictERC, "strict-erc", false, "exit with status 1 when ERC reports errors")
	circuitCmd.Flags().StringVar(&outputDir, "output-dir", "", "netlist directory (default: output_dir from trace.yaml)")
}

func runCircuit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := ctxlog.FromContext(ctx)

	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	resolver, err := symlib.FromEnv()
	if err != nil {
		return fmt.Errorf("error loading symbol libraries: %w", err)
	}

	def, err := circuitdef.LoadFile(ctx, args[0], resolver)
	if err != nil {
		return err
	}
	graph, err := def.Circuit.Finalize()
	if err != nil {
		return err
	}

	out := console.New(cmd.OutOrStdout())
	out.Banner(def.Title)

	result := erc.Check(ctx, graph)
	result.Print(out.Writer())

	out.Println()
	out.Banner("Circuit Summary")
	if err := graph.WriteSummary(out.Writer()); err != nil {
		return err
	}

	dir := outputDir
	if dir == "" {
		dir = p.OutputPath()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	path := filepath.Join(dir, def.Output)

	out.Println()
	out.Banner("Generating netlist...")
	opts := netlist.Options{Source: def.Source}
	if err := netlist.WriteFile(path, graph, opts); err != nil {
		return err
	}
	out.Printf("Netlist written to: %s\n", displayPath(p.Root, path))

	logger.Debug("Circuit done", "name", def.Name, "parts", len(graph.Parts),
		"nets", len(graph.Nets), "erc_errors", len(result.Errors()))

	if strictERC && len(result.Errors()) > 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("%s: %d ERC error(s)", def.Name, len(result.Errors()))}
	}
	return nil
}

// displayPath shortens paths inside the project root.
func displayPath(root, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
