package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/trace-eurorack/internal/ctxlog"
	"github.com/OpenTraceLab/trace-eurorack/pkg/project"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "trace",
	Short: "Trace Eurorack Module - circuit definitions and netlist builds",
	Long: `trace declares the circuits of the Trace Eurorack module, checks them
and writes KiCad netlists for PCB layout.

Examples:
  trace build                               # Build every configured circuit
  trace circuit circuits/power_supply.hcl   # Build a single circuit
  trace netlist info power_supply.net       # Inspect a generated netlist
  trace lib show Device:C                   # Show a library symbol`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := ctxlog.New(cmd.ErrOrStderr(), verbose)
		cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	},
}

// ExitError ends the process with Code. Err, when set, is printed first.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Execute runs the root command
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintln(os.Stderr, "Error:", exitErr.Err)
		}
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "project configuration file (default: trace.yaml found from the working directory up)")
}

// loadProject finds the project, loads its configuration and exports the
// KiCad library locations.
func loadProject(cmd *cobra.Command) (*project.Project, error) {
	var (
		p   *project.Project
		err error
	)
	if configPath != "" {
		p, err = project.OpenFile(configPath)
	} else {
		var wd string
		wd, err = os.Getwd()
		if err != nil {
			return nil, err
		}
		p, err = project.Open(wd)
	}
	if err != nil {
		return nil, err
	}
	if err := p.Config.ApplyEnv(); err != nil {
		return nil, err
	}

	ctxlog.FromContext(cmd.Context()).Debug("Loaded project",
		"root", p.Root, "config", p.ConfigPath, "circuits", p.Config.Circuits)
	return p, nil
}
