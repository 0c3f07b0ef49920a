// Package diag provides point-located, generation-time diagnostics.
// Every problem found in a controller definition is reported as a Diagnostic;
// a List of them doubles as the error returned by the generator.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Pos is a location in an input file. Line and Column are 1-based; zero means unknown.
type Pos struct {
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column int    `json:"column,omitempty" yaml:"column,omitempty"`
}

// IsValid reports whether the position carries a line.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

// String formats the position as file:line:column.
func (p Pos) String() string {
	s := p.File
	if s == "" {
		s = "-"
	}
	if p.IsValid() {
		s += fmt.Sprintf(":%d", p.Line)
		if p.Column > 0 {
			s += fmt.Sprintf(":%d", p.Column)
		}
	}
	return s
}

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// Diagnostic is a single problem found in a controller definition.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Pos      Pos
	Message  string
}

// Error formats the diagnostic as "file:line:col: error CG1001: message".
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s %s: %s", d.Pos, d.Severity, d.Code, d.Message)
}

// Errorf builds an error-severity diagnostic.
func Errorf(pos Pos, code Code, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: SevError,
		Code:     code,
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Warnf builds a warning-severity diagnostic.
func Warnf(pos Pos, code Code, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: SevWarning,
		Code:     code,
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
	}
}

// List is an ordered collection of diagnostics. A List with at least one error-severity
// entry is used as an error value.
type List []Diagnostic

// Add appends diagnostics.
func (l *List) Add(d ...Diagnostic) {
	*l = append(*l, d...)
}

// Errorf appends an error-severity diagnostic.
func (l *List) Errorf(pos Pos, code Code, format string, args ...any) {
	l.Add(Errorf(pos, code, format, args...))
}

// Warnf appends a warning-severity diagnostic.
func (l *List) Warnf(pos Pos, code Code, format string, args ...any) {
	l.Add(Warnf(pos, code, format, args...))
}

// HasErrors reports whether any diagnostic has error severity.
func (l List) HasErrors() bool {
	for i := range l {
		if l[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func (l List) Errors() List {
	var out List
	for _, d := range l {
		if d.Severity >= SevError {
			out = append(out, d)
		}
	}
	return out
}

// Sort orders diagnostics by file, line, column and code.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		a, b := l[i].Pos, l[j].Pos
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return l[i].Code < l[j].Code
	})
}

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no diagnostics"
	case 1:
		return l[0].Error()
	}
	lines := make([]string, len(l))
	for i, d := range l {
		lines[i] = d.Error()
	}
	return strings.Join(lines, "\n")
}

// Err returns the list as an error if it contains errors, nil otherwise.
func (l List) Err() error {
	if l.HasErrors() {
		return l
	}
	return nil
}

// Contains reports whether any diagnostic carries code.
func (l List) Contains(code Code) bool {
	for _, d := range l {
		if d.Code == code {
			return true
		}
	}
	return false
}
