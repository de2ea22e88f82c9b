package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/trace-eurorack/pkg/netlist"
)

var netlistCmd = &cobra.Command{
	Use:   "netlist",
	Short: "KiCad netlist operations",
	Long:  `Commands for working with generated KiCad netlists (.net)`,
}

var netlistInfoCmd = &cobra.Command{
	Use:   "info <netlist_file> [net]",
	Short: "Show netlist information",
	Long: `Display the components and nets of a KiCad netlist.

Without net argument: shows every component and net
With net argument: shows the nodes of that net only`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runNetlistInfo,
}

func init() {
	rootCmd.AddCommand(netlistCmd)
	netlistCmd.AddCommand(netlistInfoCmd)
}

func runNetlistInfo(cmd *cobra.Command, args []string) error {
	nl, err := netlist.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("error parsing netlist: %w", err)
	}
	w := cmd.OutOrStdout()

	if len(args) == 2 {
		net, ok := nl.Net(args[1])
		if !ok {
			return fmt.Errorf("net %q not found", args[1])
		}
		fmt.Fprintf(w, "Net: %s (code %s)\n", net.Name, net.Code)
		for _, n := range net.Nodes {
			fmt.Fprintf(w, "  %s.%s", n.Ref, n.Pin)
			if n.Function != "" {
				fmt.Fprintf(w, " %s", n.Function)
			}
			fmt.Fprintf(w, " [%s]\n", n.Type)
		}
		return nil
	}

	fmt.Fprintf(w, "Netlist: %s\n", args[0])
	fmt.Fprintf(w, "Version: %s\n", nl.Version)
	fmt.Fprintf(w, "Source: %s\n", nl.Source)
	fmt.Fprintf(w, "Tool: %s\n", nl.Tool)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Components: %d\n", len(nl.Components))
	for _, c := range nl.Components {
		fmt.Fprintf(w, "  %-6s %-16s %s\n", c.Ref, c.Value, c.Footprint)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Nets: %d\n", len(nl.Nets))
	for _, net := range nl.Nets {
		nodes := make([]string, len(net.Nodes))
		for i, n := range net.Nodes {
			nodes[i] = n.Ref + "." + n.Pin
		}
		fmt.Fprintf(w, "  %s (%d): %s\n", net.Name, len(net.Nodes), strings.Join(nodes, ", "))
	}
	return nil
}
