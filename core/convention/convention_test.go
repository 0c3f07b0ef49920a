package convention

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/artpar/ctrlgen/core/diag"
	"github.com/artpar/ctrlgen/core/schema"
	"github.com/artpar/ctrlgen/pkg/pubsub"
)

func TestPascal(t *testing.T) {
	tests := map[string]string{
		"mode":          "Mode",
		"current_state": "CurrentState",
		"currentState":  "CurrentState",
		"ErrorOccurred": "ErrorOccurred",
		"_x":            "X",
	}
	for in, want := range tests {
		if got := Pascal(in); got != want {
			t.Errorf("Pascal(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLowerCamel(t *testing.T) {
	tests := map[string]string{
		"mode":          "mode",
		"ErrorOccurred": "errorOccurred",
		"HTTPServer":    "httpServer",
		"current_state": "currentState",
		"":              "",
	}
	for in, want := range tests {
		if got := LowerCamel(in); got != want {
			t.Errorf("LowerCamel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWords(t *testing.T) {
	tests := map[string][]string{
		"HTTPServer":    {"HTTP", "Server"},
		"currentState":  {"current", "State"},
		"current_state": {"current", "state"},
		"ID":            {"ID"},
		"v2Mode":        {"v2", "Mode"},
	}
	for in, want := range tests {
		if diff := cmp.Diff(want, Words(in)); diff != "" {
			t.Errorf("Words(%q) mismatch (-want +got):\n%s", in, diff)
		}
	}
}

func TestChannelKey(t *testing.T) {
	tests := []struct {
		typ, member, want string
	}{
		{"Controller", "mode", "CONTROLLER_MODE_CHANNEL"},
		{"Controller", "currentState", "CONTROLLER_CURRENT_STATE_CHANNEL"},
		{"Controller", "ErrorOccurred", "CONTROLLER_ERROR_OCCURRED_CHANNEL"},
		{"LEDDriver", "level", "LED_DRIVER_LEVEL_CHANNEL"},
	}
	for _, tt := range tests {
		if got := ChannelKey(tt.typ, tt.member); got != tt.want {
			t.Errorf("ChannelKey(%q, %q) = %q, want %q", tt.typ, tt.member, got, tt.want)
		}
	}
	if got := CommandKey("Controller"); got != "CONTROLLER_COMMAND_CHANNEL" {
		t.Errorf("CommandKey() = %q", got)
	}
}

func TestSelectStrategy(t *testing.T) {
	plain := schema.FieldDescriptor{Markers: schema.Markers{Published: true}}
	history := schema.FieldDescriptor{Markers: schema.Markers{Published: true, Strategy: schema.StrategyHistory}}
	latest := schema.FieldDescriptor{Markers: schema.Markers{Published: true, Strategy: schema.StrategyLatest}}

	tests := []struct {
		name  string
		field schema.FieldDescriptor
		def   schema.Strategy
		want  schema.Strategy
	}{
		{"unset default", plain, schema.StrategyUnset, schema.StrategyLatest},
		{"configured default", plain, schema.StrategyHistory, schema.StrategyHistory},
		{"explicit history", history, schema.StrategyLatest, schema.StrategyHistory},
		{"explicit latest", latest, schema.StrategyHistory, schema.StrategyLatest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectStrategy(tt.field, tt.def); got != tt.want {
				t.Errorf("SelectStrategy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlanField(t *testing.T) {
	opts := Options{Capacity: 4, MaxSubscribers: 3}

	latest := PlanField(schema.FieldDescriptor{Markers: schema.Markers{Published: true}}, opts)
	want := ChannelPlan{
		Strategy:       schema.StrategyLatest,
		Kind:           pubsub.KindWatch,
		Capacity:       1,
		MaxSubscribers: 3,
		MaxPublishers:  1,
	}
	if diff := cmp.Diff(want, latest); diff != "" {
		t.Errorf("PlanField(latest) mismatch (-want +got):\n%s", diff)
	}

	history := PlanField(schema.FieldDescriptor{Markers: schema.Markers{Published: true, Strategy: schema.StrategyHistory}}, opts)
	want = ChannelPlan{
		Strategy:       schema.StrategyHistory,
		Kind:           pubsub.KindBroadcast,
		Capacity:       4,
		MaxSubscribers: 3,
		MaxPublishers:  1,
	}
	if diff := cmp.Diff(want, history); diff != "" {
		t.Errorf("PlanField(history) mismatch (-want +got):\n%s", diff)
	}

	signal := PlanSignal(Options{})
	if signal.Kind != pubsub.KindBroadcast || signal.Capacity != pubsub.DefaultSignalCapacity {
		t.Errorf("PlanSignal() = %+v", signal)
	}
}

func controller() (*schema.State, *schema.OperationSet) {
	state := &schema.State{Name: "Controller", Fields: []schema.FieldDescriptor{
		{Name: "mode", Type: "Mode", Markers: schema.Markers{Published: true, HasGetter: true, HasSetter: true}},
		{Name: "tags", Type: "Tags", Markers: schema.Markers{Published: true, Strategy: schema.StrategyHistory, PubSetter: true}},
		{Name: "counter", Type: "int", Markers: schema.Markers{HasSetter: true, SetterName: "Reset"}},
	}}
	ops := &schema.OperationSet{Name: "ControllerOperations", Target: "Controller", Methods: []schema.Operation{
		{Name: "Start", Params: []schema.Param{{Name: "ctx", Type: "context.Context"}}, Results: []schema.Param{{Type: "error"}}},
		{Name: "Add", Params: []schema.Param{{Name: "", Type: "int"}, {Name: "_", Type: "int"}}, Results: []schema.Param{{Type: "int"}}},
		{Name: "ErrorOccurred", Signal: true, Params: []schema.Param{{Name: "code", Type: "int"}, {Name: "message", Type: "string"}}},
	}}
	return state, ops
}

func TestDerive(t *testing.T) {
	state, ops := controller()
	d, diags := Derive(state, ops, nil, Options{})
	if len(diags) > 0 {
		t.Fatalf("Derive() diagnostics = %v", diags)
	}

	if d.Receiver != "c" || d.ClientReceiver != "cl" {
		t.Errorf("receivers = %q, %q", d.Receiver, d.ClientReceiver)
	}
	if d.RequestType != "controllerRequest" || d.CommandKey != "CONTROLLER_COMMAND_CHANNEL" {
		t.Errorf("command = %q, %q", d.RequestType, d.CommandKey)
	}

	mode := d.Fields[0]
	if mode.Getter != "Mode" || mode.Setter != "SetMode" || !mode.SetterIsMutator {
		t.Errorf("mode accessors = %q, %q, %v", mode.Getter, mode.Setter, mode.SetterIsMutator)
	}
	wantMode := &PublishPlan{
		Channel:               ChannelPlan{Strategy: schema.StrategyLatest, Kind: pubsub.KindWatch, Capacity: 1, MaxSubscribers: 16, MaxPublishers: 1},
		Key:                   "CONTROLLER_MODE_CHANNEL",
		Const:                 "ControllerModeChannel",
		SenderField:           "modeSender",
		Mutator:               "SetMode",
		Subscriber:            "ControllerMode",
		SubscriberConstructor: "NewControllerMode",
		Payload:               "Mode",
		Receive:               "ReceiveModeChanged",
	}
	if diff := cmp.Diff(wantMode, mode.Publish); diff != "" {
		t.Errorf("mode plan mismatch (-want +got):\n%s", diff)
	}

	tags := d.Fields[1].Publish
	if tags.ChangedType != "ControllerTagsChanged" || tags.Payload != "ControllerTagsChanged" || !tags.PubSetter {
		t.Errorf("tags plan = %+v", tags)
	}

	counter := d.Fields[2]
	if counter.Publish != nil || counter.Setter != "Reset" || counter.SetterIsMutator {
		t.Errorf("counter = %+v", counter)
	}

	if len(d.Signals) != 1 {
		t.Fatalf("signals = %d, want 1", len(d.Signals))
	}
	sig := d.Signals[0]
	if sig.Args != "ControllerErrorOccurredArgs" || sig.SenderField != "errorOccurredSender" || sig.Receive != "ReceiveErrorOccurred" {
		t.Errorf("signal = %+v", sig)
	}
	if sig.Params[1].Field != "Message" {
		t.Errorf("signal param field = %q", sig.Params[1].Field)
	}

	if len(d.Calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(d.Calls))
	}
	if start := d.Calls[0]; !start.ContextParam || !start.MergeError {
		t.Errorf("Start = %+v", start)
	}
	add := d.Calls[1]
	if add.ContextParam || add.MergeError {
		t.Errorf("Add = %+v", add)
	}
	if add.Params[0].Name != "arg0" || add.Params[1].Name != "arg1" {
		t.Errorf("Add params = %+v", add.Params)
	}

	if got := len(d.Published()); got != 2 {
		t.Errorf("Published() = %d, want 2", got)
	}
	if got := len(d.Setters()); got != 2 {
		t.Errorf("Setters() = %d, want 2", got)
	}
	wantKeys := []string{"CONTROLLER_COMMAND_CHANNEL", "CONTROLLER_MODE_CHANNEL", "CONTROLLER_TAGS_CHANNEL", "CONTROLLER_ERROR_OCCURRED_CHANNEL"}
	if diff := cmp.Diff(wantKeys, d.ChannelKeys()); diff != "" {
		t.Errorf("ChannelKeys() mismatch (-want +got):\n%s", diff)
	}
}

func TestDerive_Receivers(t *testing.T) {
	state := &schema.State{Name: "Counter", Fields: []schema.FieldDescriptor{{Name: "c", Type: "int"}}}
	ops := &schema.OperationSet{Name: "CounterOperations", Target: "Counter", Methods: []schema.Operation{
		{Name: "Add", Params: []schema.Param{{Name: "ctrl", Type: "int"}, {Name: "cl", Type: "int"}}},
	}}
	d, diags := Derive(state, ops, nil, Options{})
	if len(diags) > 0 {
		t.Fatalf("Derive() diagnostics = %v", diags)
	}
	if d.Receiver != "owner" || d.ClientReceiver != "client" {
		t.Errorf("receivers = %q, %q, want owner, client", d.Receiver, d.ClientReceiver)
	}

	state.Fields[0].Name = "reg"
	d, _ = Derive(state, ops, nil, Options{})
	if d.Fields[0].Param != "regValue" {
		t.Errorf("Param = %q, want regValue", d.Fields[0].Param)
	}
}

func TestDerive_Collisions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*schema.State, *schema.OperationSet) []*schema.Decl
		code   diag.Code
	}{
		{
			name: "getter clashes with operation",
			mutate: func(s *schema.State, _ *schema.OperationSet) []*schema.Decl {
				s.Fields[2].HasGetter = true
				s.Fields[2].GetterName = "Start"
				return nil
			},
			code: diag.NameCollision,
		},
		{
			name: "getter clashes with field name",
			mutate: func(s *schema.State, _ *schema.OperationSet) []*schema.Decl {
				s.Fields[2].HasGetter = true
				s.Fields[2].GetterName = "mode"
				return nil
			},
			code: diag.NameCollision,
		},
		{
			name: "setter clashes with mutator",
			mutate: func(s *schema.State, _ *schema.OperationSet) []*schema.Decl {
				s.Fields[2].SetterName = "SetTags"
				return nil
			},
			code: diag.NameCollision,
		},
		{
			name: "passthrough declares a generated type",
			mutate: func(*schema.State, *schema.OperationSet) []*schema.Decl {
				return []*schema.Decl{{Names: []string{"ControllerMode"}}}
			},
			code: diag.NameCollision,
		},
		{
			name: "method on the state clashes with a mutator",
			mutate: func(*schema.State, *schema.OperationSet) []*schema.Decl {
				return []*schema.Decl{{Receiver: "Controller", Method: "SetMode"}}
			},
			code: diag.NameCollision,
		},
		{
			name: "field named like a signal",
			mutate: func(s *schema.State, _ *schema.OperationSet) []*schema.Decl {
				s.Fields = append(s.Fields, schema.FieldDescriptor{Name: "ErrorOccurred", Type: "bool"})
				return nil
			},
			code: diag.NameCollision,
		},
		{
			name: "channel keys collide",
			mutate: func(s *schema.State, _ *schema.OperationSet) []*schema.Decl {
				s.Fields = append(s.Fields, schema.FieldDescriptor{Name: "Mode", Type: "Mode", Markers: schema.Markers{Published: true}})
				return nil
			},
			code: diag.NameCollision,
		},
		{
			name: "ctx outside first position",
			mutate: func(_ *schema.State, o *schema.OperationSet) []*schema.Decl {
				o.Methods[1].Params[1].Name = "ctx"
				return nil
			},
			code: diag.ReservedName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, ops := controller()
			decls := tt.mutate(state, ops)
			_, diags := Derive(state, ops, decls, Options{})
			if !diags.Contains(tt.code) {
				t.Errorf("Derive() diagnostics = %v, want %v", diags, tt.code)
			}
		})
	}
}

func TestDerive_ImplementedOperationIsNotACollision(t *testing.T) {
	state, ops := controller()
	decls := []*schema.Decl{{Receiver: "Controller", Method: "Start"}, {Receiver: "Controller", Method: "helper"}}
	if _, diags := Derive(state, ops, decls, Options{}); len(diags) > 0 {
		t.Errorf("Derive() diagnostics = %v", diags)
	}
}
