package expand

import (
	"fmt"

	"github.com/artpar/ctrlgen/core/convention"
	"github.com/artpar/ctrlgen/core/schema"
)

type fieldData struct {
	D convention.Derived
	F convention.DerivedField
	P *convention.PublishPlan
	R string

	// Value and Previous are the expressions published for the new and old value.
	Value    string
	Previous string
}

type subscriberData struct {
	Subscriber  string
	Constructor string
	Payload     string
	Of          string
	Const       string
	Plan        convention.ChannelPlan
}

// Field expands a published field into its artifact.
func Field(d convention.Derived, f convention.DerivedField) (Artifact, error) {
	if f.Publish == nil {
		return Artifact{}, fmt.Errorf("field %s is not published", f.Name)
	}
	p := f.Publish
	data := fieldData{
		D:        d,
		F:        f,
		P:        p,
		R:        d.Receiver,
		Value:    d.Receiver + "." + f.Name,
		Previous: "previous",
	}
	if f.Clone {
		data.Value += ".Clone()"
		data.Previous += ".Clone()"
	}

	a := Artifact{
		ConstSpec: fmt.Sprintf("%s = %q", p.Const, p.Key),
		Info: PublishedFieldInfo{
			Field:                 f.Name,
			Type:                  f.Type,
			Setter:                p.Mutator,
			Subscriber:            p.Subscriber,
			SubscriberConstructor: p.SubscriberConstructor,
			Payload:               p.Payload,
			Channel:               p.Key,
			Strategy:              p.Channel.Strategy,
			Receive:               p.Receive,
			PubSetter:             p.PubSetter,
		},
	}

	var err error
	set := func(dst *string, name string, data any) {
		if err != nil {
			return
		}
		*dst, err = render(name, data)
	}

	switch p.Channel.Strategy {
	case schema.StrategyHistory:
		set(&a.SenderField, "historySenderField", data)
		set(&a.SenderInit, "historySenderInit", data)
		set(&a.Payload, "historyPayload", data)
		set(&a.Emit, "historyMutator", data)
		set(&a.Subscriber, "broadcastSubscriber", subscriberData{
			Subscriber:  p.Subscriber,
			Constructor: p.SubscriberConstructor,
			Payload:     p.ChangedType,
			Of:          d.Name + "." + f.Name,
			Const:       p.Const,
			Plan:        p.Channel,
		})
	default:
		set(&a.SenderField, "latestSenderField", data)
		set(&a.SenderInit, "latestSenderInit", data)
		set(&a.Emit, "latestMutator", data)
		set(&a.Subscriber, "latestSubscriber", data)
		a.InitialPublish = fmt.Sprintf("%s.%s.Send(%s)", d.Receiver, p.SenderField, data.Value)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("expanding field %s: %w", f.Name, err)
	}
	return a, nil
}
