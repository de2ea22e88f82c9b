// Package build runs every configured circuit definition in its own
// process and aggregates the outcome.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/OpenTraceLab/trace-eurorack/internal/console"
	"github.com/OpenTraceLab/trace-eurorack/internal/ctxlog"
)

// Options configures a build.
type Options struct {
	Title       string   // Printed as "<Title> - Circuit Build"
	Circuits    []string // Circuit names, built in order
	CircuitsDir string   // Directory holding <name><Extension>
	ProjectRoot string   // Working directory of every step
	Extension   string   // Definition file extension, ".hcl" when empty
	Command     []string // Program and leading arguments; the definition path is appended
}

// Status is the outcome of one step.
type Status int

const (
	Skipped Status = iota
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Skipped:
		return "skipped"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// StepResult records one circuit of the build.
type StepResult struct {
	Name     string
	Path     string
	Status   Status
	Err      error
	Duration time.Duration
}

// Report is the result of a build.
type Report struct {
	Steps []StepResult
}

// OK reports whether no step failed. Skipped steps do not count.
func (r *Report) OK() bool {
	for _, s := range r.Steps {
		if s.Status == Failed {
			return false
		}
	}
	return true
}

// Failed returns the names of the failed steps.
func (r *Report) Failed() []string {
	var names []string
	for _, s := range r.Steps {
		if s.Status == Failed {
			names = append(names, s.Name)
		}
	}
	return names
}

// Builder runs builds.
type Builder struct {
	opts Options
	exec Executor
	out  *console.Console
}

// New creates a builder that runs steps through exec and reports to out.
func New(opts Options, exec Executor, out *console.Console) *Builder {
	if opts.Extension == "" {
		opts.Extension = ".hcl"
	}
	return &Builder{opts: opts, exec: exec, out: out}
}

// Run builds every circuit in order. A failing step does not stop the
// build; cancellation of ctx does, before the next step starts.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	report := &Report{}

	b.out.Banner(b.opts.Title + " - Circuit Build")

	for _, name := range b.opts.Circuits {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Steps = append(report.Steps, b.step(ctx, name))
	}

	b.out.Println()
	if report.OK() {
		b.out.Success("BUILD COMPLETE - All circuits generated successfully")
	} else {
		b.out.Failure("BUILD FAILED - See errors above")
	}
	logger.Debug("Build finished", "steps", len(report.Steps), "failed", len(report.Failed()))
	return report, nil
}

func (b *Builder) step(ctx context.Context, name string) StepResult {
	logger := ctxlog.FromContext(ctx)
	file := name + b.opts.Extension
	path := filepath.Join(b.opts.CircuitsDir, file)
	res := StepResult{Name: name, Path: path}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			b.out.Warn("SKIP: %s not found", file)
			res.Status = Skipped
			return res
		}
		b.out.Error("FAILED: %s", name)
		res.Status = Failed
		res.Err = err
		return res
	}

	b.out.Println()
	b.out.Banner("Building: " + name)

	arg := path
	if rel, err := filepath.Rel(b.opts.ProjectRoot, path); err == nil {
		arg = rel
	}
	if len(b.opts.Command) == 0 {
		res.Status = Failed
		res.Err = errors.New("build: no command configured")
		b.out.Error("FAILED: %s", name)
		return res
	}
	args := append(append([]string(nil), b.opts.Command[1:]...), arg)

	logger.Debug("Running circuit", "name", name, "command", b.opts.Command[0], "args", args)
	start := time.Now()
	err := b.exec.Run(ctx, b.opts.ProjectRoot, b.opts.Command[0], args...)
	res.Duration = time.Since(start)

	if err != nil {
		logger.Debug("Circuit failed", "name", name, "error", err)
		b.out.Error("FAILED: %s", name)
		res.Status = Failed
		res.Err = err
		return res
	}
	res.Status = Succeeded
	return res
}
