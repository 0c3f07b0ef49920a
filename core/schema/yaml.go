package schema

import (
	"bytes"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/artpar/ctrlgen/core/diag"
)

// yamlModule is the on-disk layout of a *.ctrl.yaml file.
type yamlModule struct {
	Package    string          `yaml:"package"`
	Imports    []yamlImport    `yaml:"imports,omitempty"`
	State      *yamlState      `yaml:"state"`
	Operations *yamlOperations `yaml:"operations"`

	// Code holds additional Go declarations copied to the output.
	Code yaml.Node `yaml:"code,omitempty"`
}

type yamlImport struct {
	Import
}

// UnmarshalYAML accepts "path", "name path" or {name, path}.
func (i *yamlImport) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		fields := strings.Fields(n.Value)
		switch len(fields) {
		case 1:
			i.Path = fields[0]
		case 2:
			i.Name, i.Path = fields[0], fields[1]
		default:
			return fmt.Errorf("line %d: malformed import %q", n.Line, n.Value)
		}
		return nil
	}
	return n.Decode(&i.Import)
}

type yamlState struct {
	Name   string      `yaml:"name"`
	Doc    string      `yaml:"doc,omitempty"`
	Fields []yamlField `yaml:"fields"`
	line   int
}

func (s *yamlState) UnmarshalYAML(n *yaml.Node) error {
	type plain yamlState
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*s = yamlState(p)
	s.line = n.Line
	return nil
}

type yamlField struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Ctrl    string `yaml:"ctrl,omitempty"`
	Tag     string `yaml:"tag,omitempty"`
	Doc     string `yaml:"doc,omitempty"`
	Comment string `yaml:"comment,omitempty"`
	line    int
	column  int
}

func (f *yamlField) UnmarshalYAML(n *yaml.Node) error {
	type plain yamlField
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*f = yamlField(p)
	f.line, f.column = n.Line, n.Column
	return nil
}

type yamlOperations struct {
	Name    string       `yaml:"name"`
	For     string       `yaml:"for,omitempty"`
	Doc     string       `yaml:"doc,omitempty"`
	Methods []yamlMethod `yaml:"methods"`
	line    int
}

func (o *yamlOperations) UnmarshalYAML(n *yaml.Node) error {
	type plain yamlOperations
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*o = yamlOperations(p)
	o.line = n.Line
	return nil
}

type yamlMethod struct {
	Name    string  `yaml:"name"`
	Doc     string  `yaml:"doc,omitempty"`
	Signal  bool    `yaml:"signal,omitempty"`
	Params  []Param `yaml:"params,omitempty"`
	Results []Param `yaml:"results,omitempty"`
	line    int
	column  int
}

func (m *yamlMethod) UnmarshalYAML(n *yaml.Node) error {
	type plain yamlMethod
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*m = yamlMethod(p)
	m.line, m.column = n.Line, n.Column
	return nil
}

// ParseYAML parses a YAML controller definition.
func ParseYAML(path string, data []byte) (*File, diag.List) {
	var diags diag.List

	var mod yamlModule
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&mod); err != nil && !errors.Is(err, io.EOF) {
		diags.Errorf(diag.Pos{File: path}, diag.ModuleSyntax, "parse yaml: %v", err)
		return nil, diags
	}

	if mod.Package == "" {
		diags.Errorf(diag.Pos{File: path, Line: 1}, diag.ModuleSyntax, "package name is required")
	}

	file := &File{Path: path, Package: mod.Package}
	for _, imp := range mod.Imports {
		file.Imports = append(file.Imports, imp.Import)
	}

	if mod.State != nil {
		state, ds := yamlToState(path, mod.State)
		diags.Add(ds...)
		file.Items = append(file.Items, Item{Kind: ItemState, Pos: state.Pos, State: state})
	}
	if mod.Operations != nil {
		ops := yamlToOperations(path, mod.Operations)
		file.Items = append(file.Items, Item{Kind: ItemOperations, Pos: ops.Pos, Operations: ops})
	}

	if code := mod.Code.Value; strings.TrimSpace(code) != "" && mod.Package != "" {
		// The prelude line shifts Go line numbers by one relative to the block start.
		src := []byte("package " + mod.Package + "\n" + code)
		fset := token.NewFileSet()
		af, err := parser.ParseFile(fset, path, src, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			diags.Add(syntaxDiagnostics(path, err, mod.Code.Line-1)...)
			return nil, diags
		}
		p := &goParser{fset: fset, src: src, path: path, lineOffset: mod.Code.Line - 1}
		diags.Add(p.collect(af, file)...)
	}

	return file, diags
}

func yamlToState(path string, s *yamlState) (*State, diag.List) {
	var diags diag.List
	state := &State{
		Name: s.Name,
		Doc:  commentLines(s.Doc),
		Pos:  diag.Pos{File: path, Line: s.line},
	}
	for _, f := range s.Fields {
		fd := FieldDescriptor{
			Name:    f.Name,
			Type:    f.Type,
			Pos:     diag.Pos{File: path, Line: f.line, Column: f.column},
			Doc:     commentLines(f.Doc),
			Comment: commentLines(f.Comment),
			Tag:     f.Tag,
			Marker:  f.Ctrl,
		}
		m, ds := ParseMarkers(f.Ctrl, fd.Pos)
		fd.Markers = m
		diags.Add(ds...)
		state.Fields = append(state.Fields, fd)
	}
	return state, diags
}

func yamlToOperations(path string, o *yamlOperations) *OperationSet {
	ops := &OperationSet{
		Name:   o.Name,
		Target: o.For,
		Doc:    commentLines(o.Doc),
		Pos:    diag.Pos{File: path, Line: o.line},
	}
	if ops.Target == "" {
		ops.Target = DefaultTarget(ops.Name)
	}
	for _, m := range o.Methods {
		ops.Methods = append(ops.Methods, Operation{
			Name:    m.Name,
			Doc:     commentLines(m.Doc),
			Pos:     diag.Pos{File: path, Line: m.line, Column: m.column},
			Signal:  m.Signal,
			Params:  m.Params,
			Results: m.Results,
		})
	}
	return ops
}

// commentLines turns plain text into // comment lines.
func commentLines(text string) string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = "//"
		} else {
			lines[i] = "// " + l
		}
	}
	return strings.Join(lines, "\n")
}
