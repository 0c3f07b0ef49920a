// Package expand turns the derived plan of a controller into Go source: the state
// type and its constructor, one artifact per published field or signal, and the
// getter and setter accessors.
//
// Every function returns source fragments; the assembler puts them into one file and
// formats it.
package expand

import (
	"fmt"

	"github.com/artpar/ctrlgen/core/schema"
)

// RuntimeImport is the import path of the channel runtime generated code uses.
const RuntimeImport = "github.com/artpar/ctrlgen/pkg/pubsub"

// Artifact is the generated bundle for one published field or signal.
type Artifact struct {
	Info PublishedFieldInfo

	// ConstSpec is the channel key constant, e.g. `ControllerModeChannel = "CONTROLLER_MODE_CHANNEL"`.
	ConstSpec string

	// SenderField is the owner struct field holding the sender.
	SenderField string

	// SenderInit is the composite literal element obtaining the sender in the constructor.
	SenderInit string

	// InitialPublish is the constructor statement publishing the initial value. It is
	// empty for the history strategy and for signals.
	InitialPublish string

	// Payload declares the event type carried on the channel, empty when the channel
	// carries the bare field value.
	Payload string

	// Emit is the mutate-and-publish method of a field or the emit method of a signal.
	Emit string

	// Subscriber declares the subscriber type and its methods.
	Subscriber string
}

// PublishedFieldInfo describes a published field or signal to code generated
// elsewhere, the client in particular.
type PublishedFieldInfo struct {
	// Field is the field name, or the signal name.
	Field string `json:"field" yaml:"field"`

	// Type is the field type, or the payload type of a signal.
	Type string `json:"type" yaml:"type"`

	// Setter is the mutate-and-publish method of a field, or the emit method of a signal.
	Setter string `json:"setter" yaml:"setter"`

	Subscriber            string `json:"subscriber" yaml:"subscriber"`
	SubscriberConstructor string `json:"subscriber_constructor" yaml:"subscriber_constructor"`

	// Payload is the type a subscriber's Next returns.
	Payload string `json:"payload" yaml:"payload"`

	// Channel is the registry key.
	Channel  string          `json:"channel" yaml:"channel"`
	Strategy schema.Strategy `json:"strategy" yaml:"strategy"`

	// Receive is the client method returning a new subscriber.
	Receive string `json:"receive" yaml:"receive"`

	PubSetter bool `json:"pub_setter,omitempty" yaml:"pub_setter,omitempty"`
	Signal    bool `json:"signal,omitempty" yaml:"signal,omitempty"`
}

// AccessorKind classifies an accessor the client forwards.
type AccessorKind int

const (
	AccessorGetter AccessorKind = iota
	AccessorSetter
	AccessorMutator
)

func (k AccessorKind) String() string {
	switch k {
	case AccessorGetter:
		return "getter"
	case AccessorSetter:
		return "setter"
	default:
		return "mutator"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k AccessorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AccessorKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "getter":
		*k = AccessorGetter
	case "setter":
		*k = AccessorSetter
	case "mutator":
		*k = AccessorMutator
	default:
		return fmt.Errorf("unknown accessor kind %q", text)
	}
	return nil
}

// AccessorInfo describes an owner accessor method.
type AccessorInfo struct {
	Kind  AccessorKind `json:"kind" yaml:"kind"`
	Name  string       `json:"name" yaml:"name"`
	Field string       `json:"field" yaml:"field"`
	Type  string       `json:"type" yaml:"type"`
}

// Contract is what the field and accessor expansion hands to the operation
// generator.
type Contract struct {
	Published []PublishedFieldInfo `json:"published" yaml:"published"`
	Accessors []AccessorInfo       `json:"accessors" yaml:"accessors"`
}

// Fields returns the published fields of the contract, without signals.
func (c Contract) Fields() []PublishedFieldInfo {
	var out []PublishedFieldInfo
	for _, p := range c.Published {
		if !p.Signal {
			out = append(out, p)
		}
	}
	return out
}

// Signals returns the signals of the contract.
func (c Contract) Signals() []PublishedFieldInfo {
	var out []PublishedFieldInfo
	for _, p := range c.Published {
		if p.Signal {
			out = append(out, p)
		}
	}
	return out
}
