// Package assemble turns a parsed controller module into the generated Go file.
//
// Assembly runs in three phases. PARSE partitions the module into its state
// definition, its operation set and passthrough declarations. VALIDATE checks the
// declarations and that both definitions describe the same controller. EMIT expands
// the controller and writes one formatted file. Any error diagnostic stops assembly
// before EMIT, so there is never partial output.
package assemble

import (
	"fmt"
	"go/format"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/tools/imports"

	"github.com/artpar/ctrlgen/core/convention"
	"github.com/artpar/ctrlgen/core/diag"
	"github.com/artpar/ctrlgen/core/expand"
	"github.com/artpar/ctrlgen/core/opgen"
	"github.com/artpar/ctrlgen/core/schema"
)

// Header is the first line of every generated file.
const Header = "// Code generated by ctrlgen. DO NOT EDIT."

// Module is a controller module after the PARSE phase.
type Module struct {
	File       *schema.File
	State      *schema.State
	Operations *schema.OperationSet
	Decls      []*schema.Decl
}

// Result is an assembled controller.
type Result struct {
	Module   Module
	Derived  convention.Derived
	Contract expand.Contract

	// Source is the formatted generated file.
	Source []byte
}

// Assembler assembles controller modules.
type Assembler struct {
	opts   convention.Options
	logger zerolog.Logger
}

// New creates an assembler deriving controllers with opts.
func New(opts convention.Options, logger zerolog.Logger) *Assembler {
	return &Assembler{opts: opts, logger: logger}
}

// Assemble runs all three phases over f. outPath is the path the result will be
// written to; it is used to resolve imports.
func (a *Assembler) Assemble(f *schema.File, outPath string) (*Result, diag.List) {
	mod, diags := Partition(f)
	if diags.HasErrors() {
		return nil, diags
	}

	d, vd := a.Validate(mod)
	diags.Add(vd...)
	if diags.HasErrors() {
		return nil, diags
	}

	res, err := a.Emit(mod, d, outPath)
	if err != nil {
		diags.Errorf(mod.State.Pos, diag.ModuleSyntax, "%v", err)
		return nil, diags
	}

	a.logger.Debug().
		Str("file", f.Path).
		Str("controller", d.Name).
		Int("published", len(d.Published())).
		Int("signals", len(d.Signals)).
		Int("operations", len(d.Calls)).
		Msg("assembled controller")
	return res, diags
}

// Partition is the PARSE phase: it requires exactly one state definition and
// exactly one operation set and passes every other item through.
func Partition(f *schema.File) (Module, diag.List) {
	var diags diag.List
	mod := Module{File: f}
	fileStart := diag.Pos{File: f.Path, Line: 1, Column: 1}

	for _, item := range f.Items {
		switch item.Kind {
		case schema.ItemState:
			if mod.State != nil {
				diags.Errorf(item.Pos, diag.ModuleDuplicateState, "module must contain exactly one state definition")
				continue
			}
			mod.State = item.State
		case schema.ItemOperations:
			if mod.Operations != nil {
				diags.Errorf(item.Pos, diag.ModuleDuplicateOps, "module must contain exactly one operation set")
				continue
			}
			mod.Operations = item.Operations
		default:
			mod.Decls = append(mod.Decls, item.Decl)
		}
	}

	if mod.State == nil {
		diags.Errorf(fileStart, diag.ModuleMissingState, "module must contain a state definition for the controller")
	}
	if mod.Operations == nil {
		diags.Errorf(fileStart, diag.ModuleMissingOps, "module must contain an operation set for the controller")
	}
	return mod, diags
}

// Validate is the VALIDATE phase. It returns the derived controller, which is only
// meaningful when no error diagnostic was reported.
func (a *Assembler) Validate(mod Module) (convention.Derived, diag.List) {
	diags := schema.Validate(mod.File)
	if mod.Operations.Target != mod.State.Name {
		diags.Errorf(mod.Operations.Pos, diag.ModuleNameMismatch,
			"operation set is for type %q but controller state is named %q", mod.Operations.Target, mod.State.Name)
	}
	if diags.HasErrors() {
		return convention.Derived{}, diags
	}

	d, dd := convention.Derive(mod.State, mod.Operations, mod.Decls, a.opts)
	diags.Add(dd...)
	return d, diags
}

// Emit is the EMIT phase.
func (a *Assembler) Emit(mod Module, d convention.Derived, outPath string) (*Result, error) {
	x, err := expand.Expand(d)
	if err != nil {
		return nil, err
	}
	ops, err := opgen.Generate(d, x.Contract)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(Header + "\n\n")
	b.WriteString("//go:build !" + schema.BuildTag + "\n\n")
	fmt.Fprintf(&b, "package %s\n\n", mod.File.Package)
	writeImports(&b, mod.File.Imports)

	sections := []string{x.State}
	for _, art := range x.Artifacts {
		sections = append(sections, art.Payload, art.Emit)
	}
	sections = append(sections, x.Accessors)
	for _, art := range x.Artifacts {
		sections = append(sections, art.Subscriber)
	}
	sections = append(sections, ops)
	for _, decl := range mod.Decls {
		sections = append(sections, decl.Source)
	}
	for _, s := range sections {
		if s = strings.TrimSpace(s); s != "" {
			b.WriteString("\n" + s + "\n")
		}
	}

	src, err := imports.Process(outPath, []byte(b.String()), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("generated code for %s is invalid: %w", d.Name, err)
	}
	if src, err = format.Source(src); err != nil {
		return nil, fmt.Errorf("formatting generated code for %s: %w", d.Name, err)
	}

	return &Result{Module: mod, Derived: d, Contract: x.Contract, Source: src}, nil
}

func writeImports(b *strings.Builder, declared []schema.Import) {
	b.WriteString("import (\n")
	b.WriteString("\t\"context\"\n\n")
	for _, imp := range declared {
		if imp.Path == expand.RuntimeImport || (imp.Path == "context" && imp.Name == "") {
			continue
		}
		b.WriteString("\t")
		if imp.Name != "" {
			b.WriteString(imp.Name + " ")
		}
		b.WriteString(strconv.Quote(imp.Path) + "\n")
	}
	fmt.Fprintf(b, "\n\t%q\n)\n", expand.RuntimeImport)
}
