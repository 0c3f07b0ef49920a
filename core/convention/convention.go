// Package convention derives the generated names and per-field plans of a controller
// from its state definition and operation set.
package convention

import (
	"fmt"
	"strings"

	"github.com/artpar/ctrlgen/core/diag"
	"github.com/artpar/ctrlgen/core/schema"
)

// Derived contains everything derived from a controller definition. This is the
// fully-expanded form the code generators consume.
type Derived struct {
	// State and Operations are the source definitions.
	State      *schema.State
	Operations *schema.OperationSet

	// Name is the controller type name.
	Name string

	// Receiver is the receiver name of generated owner methods.
	Receiver string

	// ClientReceiver is the receiver name of generated client methods.
	ClientReceiver string

	// Constructor is the owner constructor, e.g. NewController.
	Constructor string

	// RegistryParam is the name of the registry parameter of generated constructors.
	RegistryParam string

	// ClientType and ClientConstructor name the generated client.
	ClientType        string
	ClientConstructor string

	// RequestType is the unexported request function type carried on the command queue.
	RequestType string

	// CommandKey and CommandConst name the command queue.
	CommandKey      string
	CommandConst    string
	CommandCapacity int

	// Fields are all state fields in declaration order.
	Fields []DerivedField

	// Signals are the operations marked as signals.
	Signals []DerivedSignal

	// Calls are the operations clients invoke through the command queue.
	Calls []DerivedCall
}

// Published returns the published fields.
func (d Derived) Published() []DerivedField {
	var out []DerivedField
	for _, f := range d.Fields {
		if f.Publish != nil {
			out = append(out, f)
		}
	}
	return out
}

// Getters returns the fields with a getter.
func (d Derived) Getters() []DerivedField {
	var out []DerivedField
	for _, f := range d.Fields {
		if f.Getter != "" {
			out = append(out, f)
		}
	}
	return out
}

// Setters returns the fields with a setter.
func (d Derived) Setters() []DerivedField {
	var out []DerivedField
	for _, f := range d.Fields {
		if f.Setter != "" {
			out = append(out, f)
		}
	}
	return out
}

// DerivedField is a state field with its generated names.
type DerivedField struct {
	schema.FieldDescriptor

	// Pascal is the field name in PascalCase.
	Pascal string

	// Param is the constructor parameter carrying the initial value.
	Param string

	// Getter and Setter are the accessor names, empty when not requested.
	Getter string
	Setter string

	// SetterIsMutator is set when the setter is the publishing mutator itself.
	SetterIsMutator bool

	// Publish is set for published fields.
	Publish *PublishPlan
}

// PublishPlan holds the generated names and channel of a published field.
type PublishPlan struct {
	Channel ChannelPlan

	// Key is the registry key and Const the Go constant holding it.
	Key   string
	Const string

	// SenderField is the owner field holding the sender.
	SenderField string

	// Mutator is the mutate-and-publish method, Set{Field}.
	Mutator string

	// Subscriber and SubscriberConstructor name the subscriber type.
	Subscriber            string
	SubscriberConstructor string

	// Payload is the type carried on the channel: the field type for the latest
	// strategy, ChangedType for history.
	Payload     string
	ChangedType string

	// Receive is the client method returning a subscriber.
	Receive string

	// PubSetter exposes the mutator through the client.
	PubSetter bool
}

// DerivedParam is a parameter with a usable name.
type DerivedParam struct {
	// Name is the parameter name, generated when the source left it blank.
	Name string

	// Type is the declared type, "...T" for a variadic parameter.
	Type string

	// Field is the PascalCase struct field name carrying the parameter in a signal payload.
	Field string
}

// Variadic reports whether the parameter is variadic.
func (p DerivedParam) Variadic() bool {
	return strings.HasPrefix(p.Type, "...")
}

// FieldType is the parameter's type as a struct field: []T for a variadic ...T.
func (p DerivedParam) FieldType() string {
	if p.Variadic() {
		return "[]" + strings.TrimPrefix(p.Type, "...")
	}
	return p.Type
}

// DerivedSignal is a signal operation with its generated names.
type DerivedSignal struct {
	schema.Operation

	Params  []DerivedParam
	Channel ChannelPlan

	Key         string
	Const       string
	SenderField string

	// Args is the payload struct, one field per parameter.
	Args string

	Subscriber            string
	SubscriberConstructor string
	Receive               string
}

// DerivedCall is an operation clients invoke on the owner.
type DerivedCall struct {
	schema.Operation

	Params []DerivedParam

	// Results are the result types of the operation.
	Results []string

	// ContextParam is set when the first parameter is a context.Context; the client
	// then passes its own ctx through instead of adding one.
	ContextParam bool

	// MergeError is set when the last result is an error; the client reports transport
	// failures through it instead of adding another error result.
	MergeError bool
}

// Derive expands a state definition and its operation set into the derived form.
// decls are the module's passthrough declarations; their names take part in collision
// detection. Every collision or reserved-name use is reported as a diagnostic.
func Derive(state *schema.State, ops *schema.OperationSet, decls []*schema.Decl, opts Options) (Derived, diag.List) {
	opts = opts.normalize()
	name := state.Name

	d := Derived{
		State:             state,
		Operations:        ops,
		Name:              name,
		Constructor:       "New" + name,
		RegistryParam:     "reg",
		ClientType:        name + "Client",
		ClientConstructor: "New" + name + "Client",
		RequestType:       LowerCamel(name) + "Request",
		CommandKey:        CommandKey(name),
		CommandConst:      name + "CommandChannel",
		CommandCapacity:   opts.CommandCapacity,
	}

	for _, f := range state.Fields {
		d.Fields = append(d.Fields, deriveField(name, f, opts))
	}

	for _, op := range ops.Methods {
		params := deriveParams(op.Params)
		if op.Signal {
			pascal := Pascal(op.Name)
			d.Signals = append(d.Signals, DerivedSignal{
				Operation:             op,
				Params:                params,
				Channel:               PlanSignal(opts),
				Key:                   ChannelKey(name, op.Name),
				Const:                 name + pascal + "Channel",
				SenderField:           LowerCamel(op.Name) + "Sender",
				Args:                  name + pascal + "Args",
				Subscriber:            name + pascal,
				SubscriberConstructor: "New" + name + pascal,
				Receive:               "Receive" + pascal,
			})
			continue
		}

		call := DerivedCall{Operation: op, Params: params}
		for _, r := range op.Results {
			call.Results = append(call.Results, r.Type)
		}
		call.ContextParam = len(params) > 0 && params[0].Type == "context.Context"
		call.MergeError = len(call.Results) > 0 && call.Results[len(call.Results)-1] == "error"
		d.Calls = append(d.Calls, call)
	}

	var diags diag.List
	diags.Add(assignReceivers(&d)...)
	diags.Add(checkCollisions(d, decls)...)
	return d, diags
}

func deriveField(typeName string, f schema.FieldDescriptor, opts Options) DerivedField {
	df := DerivedField{
		FieldDescriptor: f,
		Pascal:          Pascal(f.Name),
		Param:           f.Name,
	}
	if df.Param == "reg" {
		df.Param = "regValue"
	}

	mutator := "Set" + df.Pascal
	if f.HasGetter {
		df.Getter = f.GetterName
		if df.Getter == "" {
			df.Getter = df.Pascal
		}
	}
	if f.HasSetter {
		df.Setter = f.SetterName
		if df.Setter == "" {
			df.Setter = mutator
		}
		df.SetterIsMutator = f.Published && df.Setter == mutator
	}

	if f.Published {
		plan := &PublishPlan{
			Channel:               PlanField(f, opts),
			Key:                   ChannelKey(typeName, f.Name),
			Const:                 typeName + df.Pascal + "Channel",
			SenderField:           LowerCamel(f.Name) + "Sender",
			Mutator:               mutator,
			Subscriber:            typeName + df.Pascal,
			SubscriberConstructor: "New" + typeName + df.Pascal,
			Payload:               f.Type,
			Receive:               "Receive" + df.Pascal + "Changed",
			PubSetter:             f.PubSetter,
		}
		if plan.Channel.Strategy == schema.StrategyHistory {
			plan.ChangedType = typeName + df.Pascal + "Changed"
			plan.Payload = plan.ChangedType
		}
		df.Publish = plan
	}

	return df
}

func deriveParams(params []schema.Param) []DerivedParam {
	out := make([]DerivedParam, len(params))
	for i, p := range params {
		name := p.Name
		if name == "" || name == "_" {
			name = fmt.Sprintf("arg%d", i)
		}
		out[i] = DerivedParam{Name: name, Type: p.Type, Field: Pascal(name)}
	}
	return out
}

// packageNames are the packages generated code refers to.
var packageNames = map[string]bool{"context": true, "pubsub": true}

// assignReceivers picks receiver names that no parameter or field shadows.
func assignReceivers(d *Derived) diag.List {
	var diags diag.List
	taken := map[string]bool{
		"ctx":      true,
		"value":    true,
		"previous": true,
		"reg":      true,
		"err":      true,
	}
	for _, f := range d.Fields {
		taken[f.Param] = true
	}
	for _, s := range d.Signals {
		for _, p := range s.Params {
			if packageNames[p.Name] {
				diags.Errorf(s.Pos, diag.ReservedName,
					"signal %q: parameter name %q shadows an imported package", s.Name, p.Name)
			}
			taken[p.Name] = true
		}
	}
	for _, c := range d.Calls {
		for i, p := range c.Params {
			switch {
			case p.Name == "ctx" && !(i == 0 && c.ContextParam):
				diags.Errorf(c.Pos, diag.ReservedName,
					"operation %q: parameter name \"ctx\" is reserved for the client context", c.Name)
			case p.Name == "res" || p.Name == "err":
				diags.Errorf(c.Pos, diag.ReservedName,
					"operation %q: parameter name %q is reserved for the client result", c.Name, p.Name)
			case packageNames[p.Name]:
				diags.Errorf(c.Pos, diag.ReservedName,
					"operation %q: parameter name %q shadows an imported package", c.Name, p.Name)
			}
			taken[p.Name] = true
		}
	}

	d.Receiver = pick(taken, strings.ToLower(d.Name[:1]), "ctrl", "owner", "self")
	taken[d.Receiver] = true
	d.ClientReceiver = pick(taken, "cl", "client", "cli")
	return diags
}

func pick(taken map[string]bool, candidates ...string) string {
	for _, c := range candidates {
		if !taken[c] {
			return c
		}
	}
	for i := 0; ; i++ {
		c := fmt.Sprintf("%s%d", candidates[0], i)
		if !taken[c] {
			return c
		}
	}
}

// claims records which declaration claimed each name within one namespace.
type claims struct {
	owner map[string]string
	diags *diag.List
	what  string
}

func newClaims(what string, diags *diag.List) *claims {
	return &claims{owner: make(map[string]string), diags: diags, what: what}
}

func (c *claims) claim(pos diag.Pos, name, by string) {
	if prev, ok := c.owner[name]; ok {
		c.diags.Errorf(pos, diag.NameCollision, "%s %q for %s collides with %s", c.what, name, by, prev)
		return
	}
	c.owner[name] = by
}

// checkCollisions verifies generated names are distinct within each Go namespace: the
// package scope, the owner's fields and methods, and the client's methods.
func checkCollisions(d Derived, decls []*schema.Decl) diag.List {
	var diags diag.List
	pkg := newClaims("name", &diags)
	owner := newClaims("member", &diags)
	client := newClaims("client method", &diags)

	statePos := d.State.Pos
	opsPos := d.Operations.Pos

	for _, decl := range decls {
		for _, n := range decl.Names {
			pkg.claim(statePos, n, "a declaration in the module")
		}
	}
	pkg.claim(statePos, d.Name, "the state definition")
	pkg.claim(opsPos, d.Operations.Name, "the operation set")
	pkg.claim(statePos, d.Constructor, "the constructor")
	pkg.claim(statePos, d.ClientType, "the client")
	pkg.claim(statePos, d.ClientConstructor, "the client constructor")
	pkg.claim(statePos, d.RequestType, "the request type")
	pkg.claim(statePos, d.CommandConst, "the command channel")

	for _, f := range d.Fields {
		owner.claim(f.Pos, f.Name, fmt.Sprintf("field %q", f.Name))
	}
	owner.claim(statePos, "requests", "the command queue receiver")
	owner.claim(statePos, "Run", "the run loop")

	// Methods the module implements on the state type, other than operations.
	implemented := make(map[string]bool)
	for _, decl := range decls {
		if decl.Receiver == d.Name && decl.Method != "" {
			implemented[decl.Method] = true
		}
	}
	for _, c := range d.Calls {
		delete(implemented, c.Name)
		owner.claim(c.Pos, c.Name, fmt.Sprintf("operation %q", c.Name))
		client.claim(c.Pos, c.Name, fmt.Sprintf("operation %q", c.Name))
	}

	for _, f := range d.Fields {
		what := fmt.Sprintf("field %q", f.Name)
		if f.Getter != "" {
			owner.claim(f.Pos, f.Getter, "the getter of "+what)
			client.claim(f.Pos, f.Getter, "the getter of "+what)
		}
		if f.Setter != "" && !f.SetterIsMutator {
			owner.claim(f.Pos, f.Setter, "the setter of "+what)
			client.claim(f.Pos, f.Setter, "the setter of "+what)
		}
		if f.Publish == nil {
			continue
		}
		p := f.Publish
		owner.claim(f.Pos, p.SenderField, "the sender of "+what)
		owner.claim(f.Pos, p.Mutator, "the mutator of "+what)
		if p.PubSetter || f.SetterIsMutator {
			client.claim(f.Pos, p.Mutator, "the mutator of "+what)
		}
		client.claim(f.Pos, p.Receive, "the subscription of "+what)

		pkg.claim(f.Pos, p.Const, "the channel of "+what)
		pkg.claim(f.Pos, p.Subscriber, "the subscriber of "+what)
		pkg.claim(f.Pos, p.SubscriberConstructor, "the subscriber constructor of "+what)
		if p.ChangedType != "" {
			pkg.claim(f.Pos, p.ChangedType, "the change event of "+what)
		}
	}

	for _, s := range d.Signals {
		what := fmt.Sprintf("signal %q", s.Name)
		owner.claim(s.Pos, s.Name, "the emitter of "+what)
		owner.claim(s.Pos, s.SenderField, "the sender of "+what)
		client.claim(s.Pos, s.Receive, "the subscription of "+what)
		pkg.claim(s.Pos, s.Const, "the channel of "+what)
		pkg.claim(s.Pos, s.Args, "the payload of "+what)
		pkg.claim(s.Pos, s.Subscriber, "the subscriber of "+what)
		pkg.claim(s.Pos, s.SubscriberConstructor, "the subscriber constructor of "+what)

		fields := make(map[string]bool)
		for _, p := range s.Params {
			if fields[p.Field] {
				diags.Errorf(s.Pos, diag.NameCollision,
					"signal %q: parameters map to the same payload field %q", s.Name, p.Field)
			}
			fields[p.Field] = true
		}
	}

	for m := range implemented {
		owner.claim(statePos, m, fmt.Sprintf("method %s.%s in the module", d.Name, m))
	}

	// Channel keys share the registry namespace.
	keys := newClaims("channel key", &diags)
	keys.claim(statePos, d.CommandKey, "the command channel")
	for _, f := range d.Published() {
		keys.claim(f.Pos, f.Publish.Key, fmt.Sprintf("field %q", f.Name))
	}
	for _, s := range d.Signals {
		keys.claim(s.Pos, s.Key, fmt.Sprintf("signal %q", s.Name))
	}

	return diags
}

// PackageNames returns the package-level names generated for d.
func (d Derived) PackageNames() []string {
	names := []string{
		d.Name, d.Operations.Name, d.Constructor, d.ClientType, d.ClientConstructor,
		d.RequestType, d.CommandConst,
	}
	for _, f := range d.Published() {
		p := f.Publish
		names = append(names, p.Const, p.Subscriber, p.SubscriberConstructor)
		if p.ChangedType != "" {
			names = append(names, p.ChangedType)
		}
	}
	for _, s := range d.Signals {
		names = append(names, s.Const, s.Args, s.Subscriber, s.SubscriberConstructor)
	}
	return names
}

// ChannelKeys returns the registry keys used by d.
func (d Derived) ChannelKeys() []string {
	keys := []string{d.CommandKey}
	for _, f := range d.Published() {
		keys = append(keys, f.Publish.Key)
	}
	for _, s := range d.Signals {
		keys = append(keys, s.Key)
	}
	return keys
}
