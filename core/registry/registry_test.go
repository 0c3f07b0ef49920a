package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/artpar/ctrlgen/core/convention"
	"github.com/artpar/ctrlgen/core/schema"
)

// Helper function to derive a controller with one published field
func makeController(t *testing.T, name, field string) convention.Derived {
	t.Helper()
	state := &schema.State{Name: name, Fields: []schema.FieldDescriptor{
		{Name: field, Type: "int", Markers: schema.Markers{Published: true}},
	}}
	ops := &schema.OperationSet{Name: name + "Operations", Target: name}
	d, diags := convention.Derive(state, ops, nil, convention.Options{})
	if diags.HasErrors() {
		t.Fatalf("Derive() = %v", diags)
	}
	return d
}

func TestNew(t *testing.T) {
	r := New()
	if r.controllers == nil || r.claims == nil {
		t.Fatal("New() did not initialize its maps")
	}
}

func TestRegistry_Register(t *testing.T) {
	r := New()
	if err := r.Register("pump.ctrl.go", makeController(t, "Pump", "level")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register("valve.ctrl.go", makeController(t, "Valve", "level")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	e, ok := r.Get("Pump")
	if !ok || e.File != "pump.ctrl.go" {
		t.Errorf("Get(Pump) = %+v, %v", e, ok)
	}

	list := r.List()
	if len(list) != 2 || list[0].Derived.Name != "Pump" || list[1].Derived.Name != "Valve" {
		t.Errorf("List() = %+v", list)
	}

	var keys []string
	for _, c := range r.Channels() {
		keys = append(keys, c.Key)
	}
	want := "PUMP_COMMAND_CHANNEL PUMP_LEVEL_CHANNEL VALVE_COMMAND_CHANNEL VALVE_LEVEL_CHANNEL"
	if strings.Join(keys, " ") != want {
		t.Errorf("Channels() = %v, want %s", keys, want)
	}
}

func TestRegistry_Register_DuplicateName(t *testing.T) {
	r := New()
	if err := r.Register("a.ctrl.go", makeController(t, "Pump", "level")); err != nil {
		t.Fatalf("First Register() error = %v", err)
	}
	err := r.Register("b.ctrl.go", makeController(t, "Pump", "rate"))
	if err == nil || !strings.Contains(err.Error(), "a.ctrl.go") {
		t.Errorf("Second Register() error = %v, want duplicate naming a.ctrl.go", err)
	}
}

func TestRegistry_Register_Conflicts(t *testing.T) {
	r := New()
	// PumpLevel is the subscriber type of Pump.level and also a controller name whose
	// state collides with it.
	if err := r.Register("pump.ctrl.go", makeController(t, "Pump", "level")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := r.Register("level.ctrl.go", makeController(t, "PumpLevel", "x"))

	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("Register() error = %v, want *ConflictError", err)
	}
	if !ce.HasConflicts() {
		t.Error("HasConflicts() = false")
	}
	found := false
	for _, c := range ce.Conflicts {
		if c.Kind == ClaimName && c.Key == "PumpLevel" {
			found = true
		}
	}
	if !found {
		t.Errorf("conflicts = %v, want PumpLevel", ce.Conflicts)
	}
	if !strings.Contains(err.Error(), `name "PumpLevel" claimed by Pump (pump.ctrl.go) and PumpLevel (level.ctrl.go)`) {
		t.Errorf("Error() = %s", err)
	}

	// A failed registration claims nothing.
	if _, ok := r.Get("PumpLevel"); ok {
		t.Error("conflicting controller was registered")
	}
}

func TestRegistry_Register_ChannelConflict(t *testing.T) {
	r := New()
	if err := r.Register("a.ctrl.go", makeController(t, "Pump", "levelRate")); err != nil {
		t.Fatal(err)
	}
	// Pump.levelRate and PumpLevel.rate both map to PUMP_LEVEL_RATE_CHANNEL.
	err := r.Register("b.ctrl.go", makeController(t, "PumpLevel", "rate"))
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("Register() error = %v, want *ConflictError", err)
	}
	found := false
	for _, c := range ce.Conflicts {
		if c.Kind == ClaimChannel && c.Key == "PUMP_LEVEL_RATE_CHANNEL" {
			found = true
		}
	}
	if !found {
		t.Errorf("conflicts = %v, want channel PUMP_LEVEL_RATE_CHANNEL", ce.Conflicts)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := New()
	if err := r.Register("pump.ctrl.go", makeController(t, "Pump", "level")); err != nil {
		t.Fatal(err)
	}
	if err := r.Unregister("Pump"); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if len(r.Channels()) != 0 {
		t.Errorf("Channels() after Unregister = %v", r.Channels())
	}
	if err := r.Unregister("Pump"); err == nil {
		t.Error("Unregister() of an unknown controller should fail")
	}
	// Its names are free again.
	if err := r.Register("pump2.ctrl.go", makeController(t, "Pump", "level")); err != nil {
		t.Errorf("Register() after Unregister error = %v", err)
	}
}
