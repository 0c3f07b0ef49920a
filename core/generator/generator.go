// Package generator runs the controller assembler over input files and writes the
// generated sources.
//
// A run has three stages. Every input is assembled concurrently. The assembled
// controllers of each package are then registered in a package-wide registry, which
// rejects name and channel clashes between controllers of the same package. Finally
// the outputs of the inputs that passed both stages are written.
package generator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"golang.org/x/sync/errgroup"

	"github.com/artpar/ctrlgen/adapters/idgen"
	"github.com/artpar/ctrlgen/core/assemble"
	"github.com/artpar/ctrlgen/core/convention"
	"github.com/artpar/ctrlgen/core/diag"
	"github.com/artpar/ctrlgen/core/events"
	"github.com/artpar/ctrlgen/core/expand"
	"github.com/artpar/ctrlgen/core/registry"
	"github.com/artpar/ctrlgen/core/schema"
	"github.com/artpar/ctrlgen/ports"
)

// DefaultSuffix is appended to the base name of an input to form its output name.
const DefaultSuffix = "_ctrl.gen.go"

// Options configure a Generator.
type Options struct {
	Convention convention.Options

	// Suffix replaces DefaultSuffix when set.
	Suffix string

	// Jobs bounds how many inputs are assembled at once. Zero means GOMAXPROCS.
	Jobs int

	// DryRun assembles and checks every input without writing anything.
	DryRun bool

	// Stdout, when set, receives the generated sources instead of the output files.
	Stdout io.Writer
}

// FileResult is the outcome of one input file.
type FileResult struct {
	Input      string
	Output     string
	Controller string
	Package    string

	Diagnostics diag.List
	Source      []byte

	// Written reports whether the output was handed to the sink.
	Written bool

	derived convention.Derived
}

// Failed reports whether the input produced no output.
func (r FileResult) Failed() bool {
	return r.Source == nil || r.Diagnostics.HasErrors()
}

// Report is the outcome of a run.
type Report struct {
	RunID    string
	Files    []FileResult
	Duration time.Duration
}

// Diagnostics returns the diagnostics of every file, sorted by position.
func (r *Report) Diagnostics() diag.List {
	var all diag.List
	for _, f := range r.Files {
		all.Add(f.Diagnostics...)
	}
	all.Sort()
	return all
}

// Failed returns the number of inputs that produced no output.
func (r *Report) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Failed() {
			n++
		}
	}
	return n
}

// HasErrors reports whether any input failed.
func (r *Report) HasErrors() bool {
	return r.Failed() > 0
}

// Generator turns controller inputs into generated Go files.
type Generator struct {
	opts   Options
	logger zerolog.Logger
	asm    *assemble.Assembler
	ids    ports.IDGenerator
	sink   ports.Sink
	clock  clockz.Clock
}

// New creates a generator writing to disk.
func New(opts Options, logger zerolog.Logger) *Generator {
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	return &Generator{
		opts:   opts,
		logger: logger,
		asm:    assemble.New(opts.Convention, logger),
		ids:    idgen.UUID{},
		sink:   diskSink{},
		clock:  clockz.RealClock,
	}
}

// SetIDGenerator replaces the run id generator.
func (g *Generator) SetIDGenerator(ids ports.IDGenerator) {
	g.ids = ids
}

// SetSink replaces where generated sources are written.
func (g *Generator) SetSink(sink ports.Sink) {
	g.sink = sink
}

// SetClock replaces the clock used to time runs.
func (g *Generator) SetClock(clock clockz.Clock) {
	g.clock = clock
}

// OutputPath returns the generated file path for input.
func (g *Generator) OutputPath(input string) string {
	return filepath.Join(filepath.Dir(input), schema.BaseName(input)+g.opts.Suffix)
}

// Run generates every input found under paths. The returned error is set only when
// the run itself could not proceed; per-file failures are reported in the Report.
func (g *Generator) Run(ctx context.Context, paths []string) (*Report, error) {
	inputs, err := schema.FindInputs(paths)
	if err != nil {
		return nil, fmt.Errorf("find inputs: %w", err)
	}

	start := g.clock.Now()
	report := &Report{RunID: g.ids.New(), Files: make([]FileResult, len(inputs))}
	capitan.Emit(ctx, events.RunStarted, events.KeyRunID.Field(report.RunID), events.KeyFiles.Field(len(inputs)))

	jobs := g.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(jobs)
	for i, input := range inputs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			report.Files[i] = g.assemble(egCtx, report.RunID, input)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	g.register(report.Files)

	for i := range report.Files {
		g.write(ctx, report.RunID, &report.Files[i])
	}

	report.Duration = g.clock.Since(start)
	capitan.Emit(ctx, events.RunCompleted,
		events.KeyRunID.Field(report.RunID),
		events.KeyFiles.Field(len(inputs)),
		events.KeyFailed.Field(report.Failed()),
		events.KeyDuration.Field(report.Duration),
	)
	return report, nil
}

func (g *Generator) assemble(ctx context.Context, runID, input string) FileResult {
	res := FileResult{Input: input, Output: g.OutputPath(input)}
	capitan.Emit(ctx, events.GenerateStarted, events.KeyRunID.Field(runID), events.KeyFile.Field(input))

	f, diags, err := schema.ParseFile(input)
	if err != nil {
		res.Diagnostics.Errorf(diag.Pos{File: input}, diag.ModuleSyntax, "%v", err)
		return res
	}
	res.Diagnostics.Add(diags...)
	if diags.HasErrors() {
		return res
	}
	res.Package = f.Package

	out, ad := g.asm.Assemble(f, res.Output)
	res.Diagnostics.Add(ad...)
	if out == nil || ad.HasErrors() {
		return res
	}

	res.Controller = out.Derived.Name
	res.Source = out.Source
	res.derived = out.Derived
	return res
}

// register checks the controllers of each package against each other. Inputs are
// registered in path order, so the later of two clashing inputs fails.
func (g *Generator) register(files []FileResult) {
	regs := make(map[string]*registry.Registry)
	for i := range files {
		res := &files[i]
		if res.Failed() {
			continue
		}

		key := filepath.Dir(res.Input) + "\x00" + res.Package
		reg, ok := regs[key]
		if !ok {
			reg = registry.New()
			regs[key] = reg
		}

		err := reg.Register(res.Input, res.derived)
		if err == nil {
			continue
		}

		pos := diag.Pos{File: res.Input, Line: 1, Column: 1}
		if ce, ok := err.(*registry.ConflictError); ok {
			for _, c := range ce.Conflicts {
				res.Diagnostics.Errorf(pos, diag.ControllerConflict, "%s", c.Error())
			}
		} else {
			res.Diagnostics.Errorf(pos, diag.ControllerConflict, "%v", err)
		}
		res.Source = nil
	}
}

func (g *Generator) write(ctx context.Context, runID string, res *FileResult) {
	if res.Failed() {
		capitan.Emit(ctx, events.GenerateFailed,
			events.KeyRunID.Field(runID),
			events.KeyFile.Field(res.Input),
			events.KeyError.Field(firstError(res.Diagnostics)),
		)
		return
	}

	switch {
	case g.opts.Stdout != nil:
		if _, err := fmt.Fprintf(g.opts.Stdout, "// %s\n%s\n", res.Output, res.Source); err != nil {
			res.Diagnostics.Errorf(diag.Pos{File: res.Input}, diag.ModuleSyntax, "write output: %v", err)
			res.Source = nil
		}
	case g.opts.DryRun:
	default:
		if err := g.sink.Write(res.Output, res.Source); err != nil {
			res.Diagnostics.Errorf(diag.Pos{File: res.Input}, diag.ModuleSyntax, "write output: %v", err)
			res.Source = nil
		} else {
			res.Written = true
		}
	}

	if res.Failed() {
		capitan.Emit(ctx, events.GenerateFailed,
			events.KeyRunID.Field(runID),
			events.KeyFile.Field(res.Input),
			events.KeyError.Field(firstError(res.Diagnostics)),
		)
		return
	}

	g.logger.Debug().Str("file", res.Input).Bool("written", res.Written).Msg("output ready")
	capitan.Emit(ctx, events.GenerateSucceeded,
		events.KeyRunID.Field(runID),
		events.KeyFile.Field(res.Input),
		events.KeyOutput.Field(res.Output),
		events.KeyController.Field(res.Controller),
	)
}

// Inspect assembles a single input and returns its collaborator contract.
func (g *Generator) Inspect(path string) (expand.Contract, diag.List, error) {
	f, diags, err := schema.ParseFile(path)
	if err != nil {
		return expand.Contract{}, nil, err
	}
	if diags.HasErrors() {
		return expand.Contract{}, diags, nil
	}

	res, ad := g.asm.Assemble(f, g.OutputPath(path))
	diags.Add(ad...)
	if res == nil {
		return expand.Contract{}, diags, nil
	}
	return res.Contract, diags, nil
}

// Outputs returns the output paths of the given results, sorted.
func Outputs(files []FileResult) []string {
	var out []string
	for _, f := range files {
		if f.Written {
			out = append(out, f.Output)
		}
	}
	sort.Strings(out)
	return out
}

func firstError(l diag.List) string {
	for _, d := range l {
		if d.Severity == diag.SevError {
			return d.Error()
		}
	}
	return "no output"
}

// diskSink writes generated files next to their inputs.
type diskSink struct{}

func (diskSink) Write(path string, src []byte) error {
	return os.WriteFile(path, src, 0o644)
}
