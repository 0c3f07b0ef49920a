package expand

import (
	"fmt"

	"github.com/artpar/ctrlgen/core/convention"
)

type signalData struct {
	D convention.Derived
	S convention.DerivedSignal
	R string
}

// Signal expands a signal into its artifact: a published event with no backing field.
func Signal(d convention.Derived, s convention.DerivedSignal) (Artifact, error) {
	data := signalData{D: d, S: s, R: d.Receiver}
	a := Artifact{
		ConstSpec: fmt.Sprintf("%s = %q", s.Const, s.Key),
		Info: PublishedFieldInfo{
			Field:                 s.Name,
			Type:                  s.Args,
			Setter:                s.Name,
			Subscriber:            s.Subscriber,
			SubscriberConstructor: s.SubscriberConstructor,
			Payload:               s.Args,
			Channel:               s.Key,
			Strategy:              s.Channel.Strategy,
			Receive:               s.Receive,
			Signal:                true,
		},
	}

	var err error
	for _, step := range []struct {
		dst  *string
		name string
		data any
	}{
		{&a.SenderField, "signalSenderField", data},
		{&a.SenderInit, "signalSenderInit", data},
		{&a.Payload, "signalArgs", data},
		{&a.Emit, "signalEmit", data},
		{&a.Subscriber, "broadcastSubscriber", subscriberData{
			Subscriber:  s.Subscriber,
			Constructor: s.SubscriberConstructor,
			Payload:     s.Args,
			Of:          d.Name + "." + s.Name,
			Const:       s.Const,
			Plan:        s.Channel,
		}},
	} {
		if *step.dst, err = render(step.name, step.data); err != nil {
			return Artifact{}, fmt.Errorf("expanding signal %s: %w", s.Name, err)
		}
	}
	return a, nil
}
