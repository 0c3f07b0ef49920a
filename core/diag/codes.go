package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Field markers
	MarkerUnknown       Code = 1001
	MarkerPublishOption Code = 1002
	MarkerDuplicate     Code = 1003
	MarkerConflict      Code = 1004
	MarkerArguments     Code = 1005
	MarkerSyntax        Code = 1006
	MarkerName          Code = 1007
	FieldReferenceType  Code = 1008

	// Module structure
	ModuleSyntax         Code = 2001
	ModuleDuplicateState Code = 2002
	ModuleDuplicateOps   Code = 2003
	ModuleMissingState   Code = 2004
	ModuleMissingOps     Code = 2005
	ModuleNameMismatch   Code = 2006
	ModuleDirective      Code = 2007

	// Declarations
	NameCollision      Code = 3001
	SignalResults      Code = 3002
	OperationDuplicate Code = 3003
	FieldDuplicate     Code = 3004
	ReservedName       Code = 3005
	InvalidIdentifier  Code = 3006
	FieldUnsupported   Code = 3007

	// Package-wide
	ControllerConflict Code = 4001
)

var codeTitles = map[Code]string{
	UnknownCode:          "unknown",
	MarkerUnknown:        "unknown field marker",
	MarkerPublishOption:  "unknown publish option",
	MarkerDuplicate:      "duplicate field marker",
	MarkerConflict:       "conflicting field markers",
	MarkerArguments:      "invalid marker arguments",
	MarkerSyntax:         "malformed marker",
	MarkerName:           "invalid accessor name",
	FieldReferenceType:   "published reference type",
	ModuleSyntax:         "syntax error",
	ModuleDuplicateState: "duplicate state definition",
	ModuleDuplicateOps:   "duplicate operation set",
	ModuleMissingState:   "missing state definition",
	ModuleMissingOps:     "missing operation set",
	ModuleNameMismatch:   "state and operation set names differ",
	ModuleDirective:      "malformed directive",
	NameCollision:        "generated name collision",
	SignalResults:        "signal with results",
	OperationDuplicate:   "duplicate operation",
	FieldDuplicate:       "duplicate field",
	ReservedName:         "reserved name",
	InvalidIdentifier:    "invalid identifier",
	FieldUnsupported:     "unsupported field",
	ControllerConflict:   "controller conflict",
}

// ID returns the stable identifier of the code, e.g. CG1001.
func (c Code) ID() string {
	return fmt.Sprintf("CG%04d", uint16(c))
}

// Title returns a short human-readable description of the code.
func (c Code) Title() string {
	if t, ok := codeTitles[c]; ok {
		return t
	}
	return codeTitles[UnknownCode]
}

func (c Code) String() string {
	return c.ID()
}
