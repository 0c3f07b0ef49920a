package schema

import (
	"fmt"

	"github.com/artpar/ctrlgen/core/diag"
)

// File is a parsed controller module.
type File struct {
	// Path is the input file the module was read from.
	Path string

	// Package is the Go package name of the generated file.
	Package string

	// Imports are the imports declared by the input.
	Imports []Import

	// Items are the top-level declarations in source order.
	Items []Item
}

// Import is a single import declaration.
type Import struct {
	Name string `yaml:"name,omitempty"`
	Path string `yaml:"path"`
}

// ItemKind classifies a module item.
type ItemKind int

const (
	ItemDecl ItemKind = iota
	ItemState
	ItemOperations
)

func (k ItemKind) String() string {
	switch k {
	case ItemState:
		return "state"
	case ItemOperations:
		return "operations"
	default:
		return "decl"
	}
}

// Item is one top-level declaration of a module. Exactly one of State, Operations
// or Decl is set, according to Kind.
type Item struct {
	Kind       ItemKind
	Pos        diag.Pos
	State      *State
	Operations *OperationSet
	Decl       *Decl
}

// Decl is a passthrough declaration copied verbatim to the output.
type Decl struct {
	// Source is the declaration text including its doc comment.
	Source string

	// Names are the package-level identifiers the declaration introduces.
	Names []string

	// Receiver is the receiver base type for a method declaration.
	Receiver string

	// Method is the method name when Receiver is set.
	Method string
}

// State is the controller state definition.
type State struct {
	Name   string
	Doc    string
	Pos    diag.Pos
	Fields []FieldDescriptor
}

// Field returns the field with the given name.
func (s *State) Field(name string) (FieldDescriptor, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Published returns the published fields in declaration order.
func (s *State) Published() []FieldDescriptor {
	var out []FieldDescriptor
	for _, f := range s.Fields {
		if f.Published {
			out = append(out, f)
		}
	}
	return out
}

// FieldDescriptor describes one field of the state definition together with its
// parsed markers.
type FieldDescriptor struct {
	Name string
	// Type is the Go type expression as written in the input.
	Type string
	Pos  diag.Pos

	// Doc and Comment are the field's leading and trailing comments, without markers.
	Doc     string
	Comment string

	// Tag is the struct tag without the ctrl key, without backquotes.
	Tag string

	// Marker is the raw marker text.
	Marker string

	Markers
}

// Markers is the validated form of a field's marker string.
type Markers struct {
	// Published fields get a channel, a mutator and a subscriber type.
	Published bool

	// PubSetter exposes the mutator through the generated client.
	PubSetter bool

	// Strategy is the explicitly requested channel strategy, if any.
	Strategy Strategy

	// Clone publishes value.Clone() instead of the value itself.
	Clone bool

	HasGetter  bool
	GetterName string

	HasSetter  bool
	SetterName string
}

// Strategy selects the channel primitive backing a published field.
type Strategy int

const (
	// StrategyUnset defers to the configured default.
	StrategyUnset Strategy = iota

	// StrategyLatest retains only the newest value. A fresh subscriber's first poll
	// returns the current value.
	StrategyLatest

	// StrategyHistory publishes every change as a {Previous, New} event into a ring
	// of fixed depth.
	StrategyHistory
)

func (s Strategy) String() string {
	switch s {
	case StrategyLatest:
		return "latest"
	case StrategyHistory:
		return "history"
	default:
		return "unset"
	}
}

// ParseStrategy parses "latest" or "history".
func ParseStrategy(s string) (Strategy, bool) {
	switch s {
	case "latest":
		return StrategyLatest, true
	case "history":
		return StrategyHistory, true
	}
	return StrategyUnset, false
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	if string(text) == "unset" {
		*s = StrategyUnset
		return nil
	}
	v, ok := ParseStrategy(string(text))
	if !ok {
		return fmt.Errorf("unknown strategy %q", text)
	}
	*s = v
	return nil
}

// OperationSet is the set of operations clients may invoke on the controller.
type OperationSet struct {
	// Name is the interface name.
	Name string

	// Target is the state type the operations belong to.
	Target string

	Doc     string
	Pos     diag.Pos
	Methods []Operation
}

// Signals returns the operations marked as signals.
func (o *OperationSet) Signals() []Operation {
	var out []Operation
	for _, m := range o.Methods {
		if m.Signal {
			out = append(out, m)
		}
	}
	return out
}

// Calls returns the operations that are not signals.
func (o *OperationSet) Calls() []Operation {
	var out []Operation
	for _, m := range o.Methods {
		if !m.Signal {
			out = append(out, m)
		}
	}
	return out
}

// Operation is a single method of the operation set.
type Operation struct {
	Name    string
	Doc     string
	Pos     diag.Pos
	Signal  bool
	Params  []Param
	Results []Param
}

// Variadic reports whether the last parameter is variadic.
func (o Operation) Variadic() bool {
	return len(o.Params) > 0 && o.Params[len(o.Params)-1].Variadic()
}

// Param is a parameter or result.
type Param struct {
	Name string `yaml:"name,omitempty"`
	Type string `yaml:"type"`
}

// Variadic reports whether the parameter type is written as ...T.
func (p Param) Variadic() bool {
	return len(p.Type) > 3 && p.Type[:3] == "..."
}
