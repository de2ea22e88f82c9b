package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/symlib"
)

var libCmd = &cobra.Command{
	Use:   "lib",
	Short: "KiCad symbol library operations",
}

var libShowCmd = &cobra.Command{
	Use:   "show <Lib:Symbol>",
	Short: "Show a library symbol and its pins",
	Long: `Resolve a symbol the way circuit definitions do (KiCad symbol
directory first, then the bundled libraries) and print its pins.`,
	Args: cobra.ExactArgs(1),
	RunE: runLibShow,
}

func init() {
	rootCmd.AddCommand(libCmd)
	libCmd.AddCommand(libShowCmd)
}

func runLibShow(cmd *cobra.Command, args []string) error {
	lib, name, ok := strings.Cut(args[0], ":")
	if !ok || lib == "" || name == "" {
		return fmt.Errorf("symbol must be given as Lib:Symbol, got %q", args[0])
	}
	if _, err := loadProject(cmd); err != nil {
		return err
	}
	resolver, err := symlib.FromEnv()
	if err != nil {
		return fmt.Errorf("error loading symbol libraries: %w", err)
	}
	sym, err := resolver.Lookup(lib, name)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Symbol: %s\n", sym.ID())
	if sym.Extends != "" {
		fmt.Fprintf(w, "Extends: %s\n", sym.Extends)
	}
	fmt.Fprintf(w, "Reference: %s\n", sym.Reference)
	fmt.Fprintf(w, "Value: %s\n", sym.Value)
	if sym.Footprint != "" {
		fmt.Fprintf(w, "Footprint: %s\n", sym.Footprint)
	}
	if sym.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", sym.Description)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Pins: %d\n", len(sym.Pins))
	for _, p := range sym.Pins {
		hidden := ""
		if p.Hidden {
			hidden = " (hidden)"
		}
		fmt.Fprintf(w, "  %-4s %-10s %s%s\n", p.Number, p.Name, p.Type, hidden)
	}
	return nil
}
