package schema

import (
	"bytes"
	"errors"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"

	"github.com/artpar/ctrlgen/core/diag"
)

// BuildTag is the build constraint that keeps Go input files out of normal builds.
const BuildTag = "ctrlgen"

const directivePrefix = "//ctrlgen:"

// Directive names.
const (
	DirectiveState      = "state"
	DirectiveOperations = "operations"
	DirectiveSignal     = "signal"
)

// ParseGo parses an annotated Go source file.
func ParseGo(path string, src []byte) (*File, diag.List) {
	var diags diag.List

	fset := token.NewFileSet()
	af, err := parser.ParseFile(fset, path, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, syntaxDiagnostics(path, err, 0)
	}

	if !hasBuildTag(src) {
		diags.Warnf(diag.Pos{File: path, Line: 1}, diag.ModuleDirective,
			"input has no //go:build %s constraint and will be compiled next to the generated file", BuildTag)
	}

	p := &goParser{fset: fset, src: src, path: path}
	file := &File{Path: path, Package: af.Name.Name}
	diags.Add(p.collect(af, file)...)
	return file, diags
}

type goParser struct {
	fset *token.FileSet
	src  []byte
	path string

	// lineOffset shifts reported lines, for Go code embedded in another file.
	lineOffset int
}

// collect appends the imports and items of af to file.
func (p *goParser) collect(af *ast.File, file *File) diag.List {
	var diags diag.List

	for _, decl := range af.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok == token.IMPORT {
				for _, spec := range d.Specs {
					is := spec.(*ast.ImportSpec)
					imp := Import{}
					imp.Path, _ = strconv.Unquote(is.Path.Value)
					if is.Name != nil {
						imp.Name = is.Name.Name
					}
					file.Imports = append(file.Imports, imp)
				}
				continue
			}
			if d.Tok == token.TYPE {
				item, ok, ds := p.typeItem(d)
				diags.Add(ds...)
				if ok {
					file.Items = append(file.Items, item)
					continue
				}
			}
			file.Items = append(file.Items, p.declItem(d))

		case *ast.FuncDecl:
			if dir, ok := findDirective(d.Doc); ok {
				diags.Errorf(p.pos(dir.pos), diag.ModuleDirective,
					"//ctrlgen:%s cannot annotate a function", dir.name)
			}
			file.Items = append(file.Items, p.declItem(d))
		}
	}

	return diags
}

// typeItem recognises state and operation-set declarations. ok is false for ordinary
// type declarations.
func (p *goParser) typeItem(d *ast.GenDecl) (item Item, ok bool, diags diag.List) {
	grouped := d.Lparen.IsValid()

	for _, spec := range d.Specs {
		ts := spec.(*ast.TypeSpec)
		doc := ts.Doc
		if !grouped && doc == nil {
			doc = d.Doc
		}
		dir, found := findDirective(doc)
		if !found {
			continue
		}
		pos := p.pos(ts.Name.Pos())
		if grouped {
			diags.Errorf(pos, diag.ModuleDirective,
				"//ctrlgen:%s is not supported inside a grouped type declaration", dir.name)
			return Item{}, false, diags
		}
		if ts.TypeParams != nil {
			diags.Errorf(pos, diag.FieldUnsupported, "generic type %s cannot be a controller %s", ts.Name.Name, dir.name)
			return Item{}, false, diags
		}

		switch dir.name {
		case DirectiveState:
			st, isStruct := ts.Type.(*ast.StructType)
			if !isStruct {
				diags.Errorf(pos, diag.ModuleDirective, "//ctrlgen:state must annotate a struct type")
				return Item{}, false, diags
			}
			state, ds := p.state(ts, st, stripDirectives(p.comment(doc)))
			diags.Add(ds...)
			return Item{Kind: ItemState, Pos: pos, State: state}, true, diags

		case DirectiveOperations:
			it, isInterface := ts.Type.(*ast.InterfaceType)
			if !isInterface {
				diags.Errorf(pos, diag.ModuleDirective, "//ctrlgen:operations must annotate an interface type")
				return Item{}, false, diags
			}
			ops, ds := p.operations(ts, it, stripDirectives(p.comment(doc)), dir.args)
			diags.Add(ds...)
			return Item{Kind: ItemOperations, Pos: pos, Operations: ops}, true, diags

		default:
			diags.Errorf(pos, diag.ModuleDirective,
				"unknown directive //ctrlgen:%s on type %s (expected state or operations)", dir.name, ts.Name.Name)
			return Item{}, false, diags
		}
	}

	return Item{}, false, nil
}

func (p *goParser) state(ts *ast.TypeSpec, st *ast.StructType, doc string) (*State, diag.List) {
	var diags diag.List
	state := &State{
		Name: ts.Name.Name,
		Doc:  doc,
		Pos:  p.pos(ts.Name.Pos()),
	}

	for _, f := range st.Fields.List {
		if len(f.Names) == 0 {
			diags.Errorf(p.pos(f.Pos()), diag.FieldUnsupported,
				"embedded field %s is not supported in controller state", p.text(f.Type))
			continue
		}

		tag := ""
		if f.Tag != nil {
			tag, _ = strconv.Unquote(f.Tag.Value)
		}
		rest, marker, _ := stripTagKey(tag, MarkerKey)

		for _, name := range f.Names {
			fd := FieldDescriptor{
				Name:    name.Name,
				Type:    p.text(f.Type),
				Pos:     p.pos(name.Pos()),
				Doc:     p.comment(f.Doc),
				Comment: p.comment(f.Comment),
				Tag:     rest,
				Marker:  marker,
			}
			m, ds := ParseMarkers(marker, fd.Pos)
			fd.Markers = m
			diags.Add(ds...)
			state.Fields = append(state.Fields, fd)
		}
	}

	return state, diags
}

func (p *goParser) operations(ts *ast.TypeSpec, it *ast.InterfaceType, doc, target string) (*OperationSet, diag.List) {
	var diags diag.List
	ops := &OperationSet{
		Name:   ts.Name.Name,
		Target: target,
		Doc:    doc,
		Pos:    p.pos(ts.Name.Pos()),
	}
	if ops.Target == "" {
		ops.Target = DefaultTarget(ops.Name)
	}

	for _, m := range it.Methods.List {
		ft, isFunc := m.Type.(*ast.FuncType)
		if !isFunc || len(m.Names) == 0 {
			diags.Errorf(p.pos(m.Pos()), diag.FieldUnsupported,
				"embedded %s is not supported in an operation set", p.text(m.Type))
			continue
		}

		signal := false
		if dir, found := findDirective(m.Doc); found {
			if dir.name != DirectiveSignal {
				diags.Errorf(p.pos(dir.pos), diag.ModuleDirective,
					"unknown directive //ctrlgen:%s on operation %s (expected signal)", dir.name, m.Names[0].Name)
			}
			signal = true
		}

		ops.Methods = append(ops.Methods, Operation{
			Name:    m.Names[0].Name,
			Doc:     stripDirectives(p.comment(m.Doc)),
			Pos:     p.pos(m.Names[0].Pos()),
			Signal:  signal,
			Params:  p.params(ft.Params),
			Results: p.params(ft.Results),
		})
	}

	return ops, diags
}

func (p *goParser) params(fl *ast.FieldList) []Param {
	if fl == nil {
		return nil
	}
	var out []Param
	for _, f := range fl.List {
		typ := p.text(f.Type)
		if len(f.Names) == 0 {
			out = append(out, Param{Type: typ})
			continue
		}
		for _, n := range f.Names {
			out = append(out, Param{Name: n.Name, Type: typ})
		}
	}
	return out
}

func (p *goParser) declItem(decl ast.Decl) Item {
	start := decl.Pos()
	var doc *ast.CommentGroup
	d := &Decl{}

	switch decl := decl.(type) {
	case *ast.GenDecl:
		doc = decl.Doc
		for _, spec := range decl.Specs {
			switch s := spec.(type) {
			case *ast.TypeSpec:
				d.Names = append(d.Names, s.Name.Name)
			case *ast.ValueSpec:
				for _, n := range s.Names {
					if n.Name != "_" {
						d.Names = append(d.Names, n.Name)
					}
				}
			}
		}
	case *ast.FuncDecl:
		doc = decl.Doc
		if decl.Recv != nil && len(decl.Recv.List) > 0 {
			d.Receiver = receiverBase(decl.Recv.List[0].Type)
			d.Method = decl.Name.Name
		} else if decl.Name.Name != "init" && decl.Name.Name != "_" {
			d.Names = append(d.Names, decl.Name.Name)
		}
	}
	if doc != nil {
		start = doc.Pos()
	}

	d.Source = string(p.src[p.offset(start):p.offset(decl.End())])
	return Item{Kind: ItemDecl, Pos: p.pos(decl.Pos()), Decl: d}
}

func receiverBase(expr ast.Expr) string {
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

func (p *goParser) offset(pos token.Pos) int {
	return p.fset.Position(pos).Offset
}

func (p *goParser) text(n ast.Node) string {
	return string(p.src[p.offset(n.Pos()):p.offset(n.End())])
}

func (p *goParser) pos(pos token.Pos) diag.Pos {
	position := p.fset.Position(pos)
	return diag.Pos{File: p.path, Line: position.Line + p.lineOffset, Column: position.Column}
}

// comment returns the raw lines of a comment group.
func (p *goParser) comment(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	lines := make([]string, 0, len(cg.List))
	for _, c := range cg.List {
		lines = append(lines, c.Text)
	}
	return strings.Join(lines, "\n")
}

type directive struct {
	name string
	args string
	pos  token.Pos
}

func findDirective(cg *ast.CommentGroup) (directive, bool) {
	if cg == nil {
		return directive{}, false
	}
	for _, c := range cg.List {
		if !strings.HasPrefix(c.Text, directivePrefix) {
			continue
		}
		body := strings.TrimSpace(strings.TrimPrefix(c.Text, directivePrefix))
		name, args, _ := strings.Cut(body, " ")
		return directive{name: name, args: strings.TrimSpace(args), pos: c.Pos()}, true
	}
	return directive{}, false
}

// stripDirectives removes ctrlgen directive lines and the empty comment lines that
// separated them from the doc text.
func stripDirectives(doc string) string {
	if doc == "" {
		return ""
	}
	var kept []string
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, directivePrefix) {
			continue
		}
		kept = append(kept, line)
	}
	for len(kept) > 0 && strings.TrimSpace(kept[len(kept)-1]) == "//" {
		kept = kept[:len(kept)-1]
	}
	return strings.Join(kept, "\n")
}

// DefaultTarget returns the state name an operation set targets when its directive
// names none.
func DefaultTarget(interfaceName string) string {
	if t := strings.TrimSuffix(interfaceName, "Operations"); t != "" {
		return t
	}
	return interfaceName
}

func hasBuildTag(src []byte) bool {
	for _, line := range bytes.Split(src, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if bytes.HasPrefix(line, []byte("package ")) {
			return false
		}
		if bytes.HasPrefix(line, []byte("//go:build")) {
			for _, f := range strings.FieldsFunc(string(line[len("//go:build"):]), func(r rune) bool {
				return r == ' ' || r == '(' || r == ')' || r == '&' || r == '|'
			}) {
				if f == BuildTag {
					return true
				}
			}
		}
	}
	return false
}

func syntaxDiagnostics(path string, err error, lineOffset int) diag.List {
	var diags diag.List
	var list scanner.ErrorList
	if errors.As(err, &list) {
		for _, e := range list {
			diags.Errorf(diag.Pos{File: path, Line: e.Pos.Line + lineOffset, Column: e.Pos.Column},
				diag.ModuleSyntax, "%s", e.Msg)
		}
		return diags
	}
	diags.Errorf(diag.Pos{File: path}, diag.ModuleSyntax, "%v", err)
	return diags
}
