package schema

import (
	"testing"

	"github.com/artpar/ctrlgen/core/diag"
)

func TestValidateState(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		wantErr diag.Code
	}{
		{
			name: "valid",
			state: State{Name: "Controller", Fields: []FieldDescriptor{
				{Name: "mode", Type: "Mode", Markers: Markers{Published: true}},
				{Name: "items", Type: "[]string"},
				{Name: "tags", Type: "Tags", Markers: Markers{Published: true, Clone: true}},
			}},
		},
		{
			name:    "bad state name",
			state:   State{Name: "func"},
			wantErr: diag.InvalidIdentifier,
		},
		{
			name: "duplicate field",
			state: State{Name: "S", Fields: []FieldDescriptor{
				{Name: "a", Type: "int"},
				{Name: "a", Type: "int"},
			}},
			wantErr: diag.FieldDuplicate,
		},
		{
			name:    "bad type",
			state:   State{Name: "S", Fields: []FieldDescriptor{{Name: "a", Type: "[[int"}}},
			wantErr: diag.InvalidIdentifier,
		},
		{
			name:    "empty type",
			state:   State{Name: "S", Fields: []FieldDescriptor{{Name: "a"}}},
			wantErr: diag.InvalidIdentifier,
		},
		{
			name: "published slice",
			state: State{Name: "S", Fields: []FieldDescriptor{
				{Name: "items", Type: "[]string", Markers: Markers{Published: true}},
			}},
			wantErr: diag.FieldReferenceType,
		},
		{
			name: "published pointer",
			state: State{Name: "S", Fields: []FieldDescriptor{
				{Name: "cfg", Type: "*Config", Markers: Markers{Published: true}},
			}},
			wantErr: diag.FieldReferenceType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := ValidateState(&tt.state)
			if tt.wantErr == 0 {
				if len(diags) > 0 {
					t.Errorf("ValidateState() = %v, want no diagnostics", diags)
				}
				return
			}
			if !diags.Contains(tt.wantErr) {
				t.Errorf("ValidateState() = %v, want code %v", diags, tt.wantErr)
			}
		})
	}
}

func TestValidateOperations(t *testing.T) {
	tests := []struct {
		name    string
		ops     OperationSet
		wantErr diag.Code
	}{
		{
			name: "valid",
			ops: OperationSet{Name: "ControllerOperations", Target: "Controller", Methods: []Operation{
				{Name: "Start", Results: []Param{{Type: "error"}}},
				{Name: "Log", Params: []Param{{Name: "format", Type: "string"}, {Name: "args", Type: "...any"}}},
				{Name: "Done", Signal: true},
			}},
		},
		{
			name: "duplicate",
			ops: OperationSet{Name: "O", Target: "S", Methods: []Operation{
				{Name: "Start"}, {Name: "Start"},
			}},
			wantErr: diag.OperationDuplicate,
		},
		{
			name: "signal with result",
			ops: OperationSet{Name: "O", Target: "S", Methods: []Operation{
				{Name: "Done", Signal: true, Results: []Param{{Type: "error"}}},
			}},
			wantErr: diag.SignalResults,
		},
		{
			name: "variadic not last",
			ops: OperationSet{Name: "O", Target: "S", Methods: []Operation{
				{Name: "Log", Params: []Param{{Name: "a", Type: "...int"}, {Name: "b", Type: "int"}}},
			}},
			wantErr: diag.InvalidIdentifier,
		},
		{
			name: "duplicate parameter",
			ops: OperationSet{Name: "O", Target: "S", Methods: []Operation{
				{Name: "Log", Params: []Param{{Name: "a", Type: "int"}, {Name: "a", Type: "int"}}},
			}},
			wantErr: diag.InvalidIdentifier,
		},
		{
			name:    "bad target",
			ops:     OperationSet{Name: "O", Target: ""},
			wantErr: diag.InvalidIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := ValidateOperations(&tt.ops)
			if tt.wantErr == 0 {
				if len(diags) > 0 {
					t.Errorf("ValidateOperations() = %v, want no diagnostics", diags)
				}
				return
			}
			if !diags.Contains(tt.wantErr) {
				t.Errorf("ValidateOperations() = %v, want code %v", diags, tt.wantErr)
			}
		})
	}
}

func TestIsReferenceType(t *testing.T) {
	tests := map[string]bool{
		"int":             false,
		"Mode":            false,
		"[4]byte":         false,
		"struct{ a int }": false,
		"time.Duration":   false,
		"*Config":         true,
		"[]string":        true,
		"map[string]int":  true,
		"chan int":        true,
		"func()":          true,
		"(*Config)":       true,
		"interface{}":     true,
	}
	for typ, want := range tests {
		if got := IsReferenceType(typ); got != want {
			t.Errorf("IsReferenceType(%q) = %v, want %v", typ, got, want)
		}
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := map[string]bool{
		"":      false,
		"a":     true,
		"_x1":   true,
		"1x":    false,
		"a-b":   false,
		"type":  false,
		"Mode2": true,
	}
	for s, want := range tests {
		if got := IsValidIdentifier(s); got != want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestValidate_Package(t *testing.T) {
	f := &File{Path: "x", Package: "my-pkg"}
	if diags := Validate(f); !diags.Contains(diag.InvalidIdentifier) {
		t.Errorf("Validate() = %v, want InvalidIdentifier", diags)
	}
}
