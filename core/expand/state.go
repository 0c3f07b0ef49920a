package expand

import (
	"fmt"

	"github.com/artpar/ctrlgen/core/convention"
)

type stateData struct {
	D    convention.Derived
	R    string
	Arts []Artifact
}

// State generates the channel key constants, the state struct with its sender fields
// and command queue, and the constructor.
func State(d convention.Derived, arts []Artifact) (string, error) {
	src, err := render("state", stateData{D: d, R: d.Receiver, Arts: arts})
	if err != nil {
		return "", fmt.Errorf("expanding state %s: %w", d.Name, err)
	}
	return src, nil
}

// Expansion is the complete expansion of a controller.
type Expansion struct {
	State     string
	Artifacts []Artifact
	Accessors string
	Contract  Contract
}

// Expand expands every published field, signal and accessor of d.
func Expand(d convention.Derived) (Expansion, error) {
	var x Expansion
	for _, f := range d.Published() {
		a, err := Field(d, f)
		if err != nil {
			return Expansion{}, err
		}
		x.Artifacts = append(x.Artifacts, a)
	}
	for _, s := range d.Signals {
		a, err := Signal(d, s)
		if err != nil {
			return Expansion{}, err
		}
		x.Artifacts = append(x.Artifacts, a)
	}
	for _, a := range x.Artifacts {
		x.Contract.Published = append(x.Contract.Published, a.Info)
	}

	var err error
	if x.Accessors, x.Contract.Accessors, err = Accessors(d); err != nil {
		return Expansion{}, err
	}
	if x.State, err = State(d, x.Artifacts); err != nil {
		return Expansion{}, err
	}
	return x, nil
}
