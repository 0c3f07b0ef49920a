package schema

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/artpar/ctrlgen/core/diag"
)

// Validate checks the state and operation-set items of a file for declaration-level
// problems. Module structure (how many of each item) is checked by the assembler.
func Validate(f *File) diag.List {
	var diags diag.List

	if f.Package != "" && !isValidIdentifier(f.Package) {
		diags.Errorf(diag.Pos{File: f.Path, Line: 1}, diag.InvalidIdentifier,
			"package name %q is not a valid identifier", f.Package)
	}

	for _, item := range f.Items {
		switch item.Kind {
		case ItemState:
			diags.Add(ValidateState(item.State)...)
		case ItemOperations:
			diags.Add(ValidateOperations(item.Operations)...)
		}
	}

	return diags
}

// ValidateState validates a state definition.
func ValidateState(s *State) diag.List {
	var diags diag.List

	if !isValidIdentifier(s.Name) {
		diags.Errorf(s.Pos, diag.InvalidIdentifier, "state name %q is not a valid identifier", s.Name)
	}

	seen := make(map[string]bool)
	for _, f := range s.Fields {
		if !isValidIdentifier(f.Name) || f.Name == "_" {
			diags.Errorf(f.Pos, diag.InvalidIdentifier, "field name %q is not a valid identifier", f.Name)
			continue
		}
		if seen[f.Name] {
			diags.Errorf(f.Pos, diag.FieldDuplicate, "field %q is declared more than once", f.Name)
			continue
		}
		seen[f.Name] = true

		expr, err := parseType(f.Type)
		if err != nil {
			diags.Errorf(f.Pos, diag.InvalidIdentifier, "field %q: invalid type %q", f.Name, f.Type)
			continue
		}
		if f.Published && !f.Clone && isReferenceExpr(expr) {
			diags.Errorf(f.Pos, diag.FieldReferenceType,
				"field %q: published type %s shares memory with subscribers; mark it publish(clone) and give it a Clone method",
				f.Name, f.Type)
		}
	}

	return diags
}

// ValidateOperations validates an operation set.
func ValidateOperations(o *OperationSet) diag.List {
	var diags diag.List

	if !isValidIdentifier(o.Name) {
		diags.Errorf(o.Pos, diag.InvalidIdentifier, "operation set name %q is not a valid identifier", o.Name)
	}
	if !isValidIdentifier(o.Target) {
		diags.Errorf(o.Pos, diag.InvalidIdentifier, "operation set target %q is not a valid identifier", o.Target)
	}

	seen := make(map[string]bool)
	for _, m := range o.Methods {
		if !isValidIdentifier(m.Name) || m.Name == "_" {
			diags.Errorf(m.Pos, diag.InvalidIdentifier, "operation name %q is not a valid identifier", m.Name)
			continue
		}
		if seen[m.Name] {
			diags.Errorf(m.Pos, diag.OperationDuplicate, "operation %q is declared more than once", m.Name)
			continue
		}
		seen[m.Name] = true

		if m.Signal && len(m.Results) > 0 {
			diags.Errorf(m.Pos, diag.SignalResults, "signal %q must not return results", m.Name)
		}

		params := make(map[string]bool)
		for i, p := range m.Params {
			if p.Name != "" {
				if !isValidIdentifier(p.Name) {
					diags.Errorf(m.Pos, diag.InvalidIdentifier,
						"operation %q: parameter name %q is not a valid identifier", m.Name, p.Name)
				} else if p.Name != "_" && params[p.Name] {
					diags.Errorf(m.Pos, diag.InvalidIdentifier,
						"operation %q: duplicate parameter %q", m.Name, p.Name)
				}
				params[p.Name] = true
			}
			if p.Variadic() && i != len(m.Params)-1 {
				diags.Errorf(m.Pos, diag.InvalidIdentifier,
					"operation %q: only the last parameter may be variadic", m.Name)
			}
			if _, err := parseType(strings.TrimPrefix(p.Type, "...")); err != nil {
				diags.Errorf(m.Pos, diag.InvalidIdentifier,
					"operation %q: invalid parameter type %q", m.Name, p.Type)
			}
		}
		for _, r := range m.Results {
			if r.Variadic() {
				diags.Errorf(m.Pos, diag.InvalidIdentifier, "operation %q: results cannot be variadic", m.Name)
				continue
			}
			if _, err := parseType(r.Type); err != nil {
				diags.Errorf(m.Pos, diag.InvalidIdentifier,
					"operation %q: invalid result type %q", m.Name, r.Type)
			}
		}
	}

	return diags
}

// IsReferenceType reports whether a Go type expression is syntactically a pointer,
// slice, map, channel, function or interface literal.
func IsReferenceType(typ string) bool {
	expr, err := parseType(typ)
	if err != nil {
		return false
	}
	return isReferenceExpr(expr)
}

func isReferenceExpr(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.StarExpr, *ast.MapType, *ast.ChanType, *ast.FuncType, *ast.InterfaceType:
		return true
	case *ast.ArrayType:
		return e.Len == nil
	case *ast.ParenExpr:
		return isReferenceExpr(e.X)
	}
	return false
}

func parseType(typ string) (ast.Expr, error) {
	if strings.TrimSpace(typ) == "" {
		return nil, errEmptyType
	}
	return parser.ParseExprFrom(token.NewFileSet(), "", typ, 0)
}

type typeError string

func (e typeError) Error() string { return string(e) }

const errEmptyType = typeError("empty type")

// isValidIdentifier checks if a string is a valid Go identifier.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' {
				return false
			}
		}
	}

	return token.Lookup(s) == token.IDENT
}

// IsValidIdentifier is the exported form of isValidIdentifier.
func IsValidIdentifier(s string) bool {
	return isValidIdentifier(s)
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
