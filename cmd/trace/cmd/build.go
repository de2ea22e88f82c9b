package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/trace-eurorack/internal/console"
	"github.com/OpenTraceLab/trace-eurorack/pkg/build"
	"github.com/OpenTraceLab/trace-eurorack/pkg/circuitdef"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build every configured circuit",
	Long: `Run "trace circuit" for each circuit listed in trace.yaml, in order,
each in its own process from the project root. Missing definitions are
skipped. The command fails if any circuit failed.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

// newExecutor creates the step runner; replaced in tests.
var newExecutor = func(cmd *cobra.Command) build.Executor {
	return build.ExecExecutor{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("error locating trace executable: %w", err)
	}

	command := []string{exe, "circuit"}
	if p.ConfigPath != "" {
		command = append(command, "--config", p.ConfigPath)
	}
	if verbose {
		command = append(command, "--verbose")
	}

	b := build.New(build.Options{
		Title:       p.Config.Name,
		Circuits:    p.Config.Circuits,
		CircuitsDir: p.CircuitsPath(),
		ProjectRoot: p.Root,
		Extension:   circuitdef.FileExtension,
		Command:     command,
	}, newExecutor(cmd), console.New(cmd.OutOrStdout()))

	report, err := b.Run(cmd.Context())
	if err != nil {
		return err
	}
	if !report.OK() {
		return &ExitError{Code: 1}
	}
	return nil
}
