package expand

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/artpar/ctrlgen/core/convention"
	"github.com/artpar/ctrlgen/pkg/pubsub"
)

var funcs = template.FuncMap{
	"quote":  strconv.Quote,
	"limits": Limits,
	"params": Params,
	"args":   Args,
	"tag":    structTag,
	"indent": indent,
}

// templates holds every fragment template; each is executed by name.
var templates = template.Must(template.New("expand").Funcs(funcs).Parse(fragmentTemplates))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Limits renders the pubsub.Limits literal of a broadcast channel plan.
func Limits(p convention.ChannelPlan) string {
	return fmt.Sprintf("pubsub.Limits{Capacity: %d, MaxSubscribers: %d, MaxPublishers: %d}",
		p.Capacity, p.MaxSubscribers, max(p.MaxPublishers, pubsub.DefaultMaxPublishers))
}

// Params renders a parameter list, e.g. "code int, message string".
func Params(params []convention.DerivedParam) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + " " + p.Type
	}
	return strings.Join(parts, ", ")
}

// Args renders the arguments passing params on, spreading a variadic parameter.
func Args(params []convention.DerivedParam) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name
		if p.Variadic() {
			parts[i] += "..."
		}
	}
	return strings.Join(parts, ", ")
}

func structTag(tag string) string {
	if strings.Contains(tag, "`") {
		return strconv.Quote(tag)
	}
	return "`" + tag + "`"
}

func indent(prefix, text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

const fragmentTemplates = `
{{define "latestSenderField"}}{{.P.SenderField}} *pubsub.WatchSender[{{.F.Type}}]{{end}}

{{define "latestSenderInit"}}{{.P.SenderField}}: pubsub.MustWatch[{{.F.Type}}]({{.D.RegistryParam}}, {{.P.Const}}, {{.P.Channel.MaxSubscribers}}).MustSender(),{{end}}

{{define "historySenderField"}}{{.P.SenderField}} *pubsub.Publisher[{{.P.ChangedType}}]{{end}}

{{define "historySenderInit"}}{{.P.SenderField}}: pubsub.MustBroadcast[{{.P.ChangedType}}]({{.D.RegistryParam}}, {{.P.Const}}, {{limits .P.Channel}}).MustPublisher(),{{end}}

{{define "latestMutator"}}
// {{.P.Mutator}} sets {{.F.Name}} and publishes the new value to every {{.P.Subscriber}}.
func ({{.R}} *{{.D.Name}}) {{.P.Mutator}}(value {{.F.Type}}) {
	{{.R}}.{{.F.Name}} = value
	{{.R}}.{{.P.SenderField}}.Send({{.Value}})
}
{{end}}

{{define "historyMutator"}}
// {{.P.Mutator}} sets {{.F.Name}} and publishes a {{.P.ChangedType}} event.
func ({{.R}} *{{.D.Name}}) {{.P.Mutator}}(value {{.F.Type}}) {
	previous := {{.R}}.{{.F.Name}}
	{{.R}}.{{.F.Name}} = value
	{{.R}}.{{.P.SenderField}}.Publish({{.P.ChangedType}}{Previous: {{.Previous}}, New: {{.Value}}})
}
{{end}}

{{define "historyPayload"}}
// {{.P.ChangedType}} is published each time {{.D.Name}}.{{.F.Name}} is set.
type {{.P.ChangedType}} struct {
	Previous {{.F.Type}}
	New      {{.F.Type}}
}
{{end}}

{{define "latestSubscriber"}}
// {{.P.Subscriber}} observes {{.D.Name}}.{{.F.Name}}. The first call to Next or TryNext
// returns the current value if one was published; later calls return only new values.
type {{.P.Subscriber}} struct {
	receiver  *pubsub.WatchReceiver[{{.F.Type}}]
	delivered bool
}

// {{.P.SubscriberConstructor}} subscribes to {{.D.Name}}.{{.F.Name}} in reg.
func {{.P.SubscriberConstructor}}(reg *pubsub.Registry) (*{{.P.Subscriber}}, error) {
	w, err := pubsub.WatchFor[{{.F.Type}}](reg, {{.P.Const}}, {{.P.Channel.MaxSubscribers}})
	if err != nil {
		return nil, err
	}
	r, err := w.Receiver()
	if err != nil {
		return nil, err
	}
	return &{{.P.Subscriber}}{receiver: r}, nil
}

// Next waits for the next value until ctx is done.
func (s *{{.P.Subscriber}}) Next(ctx context.Context) ({{.F.Type}}, error) {
	if !s.delivered {
		s.delivered = true
		if v, ok := s.receiver.Get(); ok {
			return v, nil
		}
	}
	return s.receiver.Changed(ctx)
}

// TryNext returns the next value without waiting.
func (s *{{.P.Subscriber}}) TryNext() ({{.F.Type}}, bool) {
	if !s.delivered {
		s.delivered = true
		if v, ok := s.receiver.Get(); ok {
			return v, true
		}
	}
	return s.receiver.TryChanged()
}

// Close releases the subscription.
func (s *{{.P.Subscriber}}) Close() {
	s.receiver.Close()
}
{{end}}

{{define "broadcastSubscriber"}}
// {{.Subscriber}} receives {{.Payload}} events{{if .Of}} of {{.Of}}{{end}}. A subscriber
// that falls more than {{.Plan.Capacity}} events behind loses the oldest ones.
type {{.Subscriber}} struct {
	sub *pubsub.Subscriber[{{.Payload}}]
}

// {{.Constructor}} subscribes to {{.Of}} in reg.
func {{.Constructor}}(reg *pubsub.Registry) (*{{.Subscriber}}, error) {
	b, err := pubsub.BroadcastFor[{{.Payload}}](reg, {{.Const}}, {{limits .Plan}})
	if err != nil {
		return nil, err
	}
	sub, err := b.Subscriber()
	if err != nil {
		return nil, err
	}
	return &{{.Subscriber}}{sub: sub}, nil
}

// Next waits for the next event until ctx is done.
func (s *{{.Subscriber}}) Next(ctx context.Context) ({{.Payload}}, error) {
	return s.sub.Next(ctx)
}

// TryNext returns the next event without waiting.
func (s *{{.Subscriber}}) TryNext() ({{.Payload}}, bool) {
	return s.sub.TryNext()
}

// Lagged reports how many events were lost because the subscriber fell behind.
func (s *{{.Subscriber}}) Lagged() uint64 {
	return s.sub.Lagged()
}

// Close releases the subscription.
func (s *{{.Subscriber}}) Close() {
	s.sub.Close()
}
{{end}}

{{define "signalSenderField"}}{{.S.SenderField}} *pubsub.Publisher[{{.S.Args}}]{{end}}

{{define "signalSenderInit"}}{{.S.SenderField}}: pubsub.MustBroadcast[{{.S.Args}}]({{.D.RegistryParam}}, {{.S.Const}}, {{limits .S.Channel}}).MustPublisher(),{{end}}

{{define "signalArgs"}}
// {{.S.Args}} carries the arguments of the {{.S.Name}} signal.
type {{.S.Args}} struct {
{{- range .S.Params}}
	{{.Field}} {{.FieldType}}
{{- end}}
}
{{end}}

{{define "signalEmit"}}
{{if .S.Doc}}{{.S.Doc}}
//
{{end}}// {{.S.Name}} emits the {{.S.Name}} signal to every {{.S.Subscriber}}.
func ({{.R}} *{{.D.Name}}) {{.S.Name}}({{params .S.Params}}) {
	{{.R}}.{{.S.SenderField}}.Publish({{.S.Args}}{
{{- range .S.Params}}
		{{.Field}}: {{.Name}},
{{- end}}
	})
}
{{end}}

{{define "getter"}}
// {{.F.Getter}} returns {{if .F.Clone}}a copy of {{end}}{{.F.Name}}.
func ({{.R}} *{{.D.Name}}) {{.F.Getter}}() {{.F.Type}} {
	return {{.R}}.{{.F.Name}}{{if .F.Clone}}.Clone(){{end}}
}
{{end}}

{{define "setter"}}
// {{.F.Setter}} sets {{.F.Name}}.
func ({{.R}} *{{.D.Name}}) {{.F.Setter}}(value {{.F.Type}}) {
	{{.R}}.{{.F.Name}} = value
}
{{end}}

{{define "publishingSetter"}}
// {{.F.Setter}} sets {{.F.Name}} through {{.F.Publish.Mutator}}, publishing the change.
func ({{.R}} *{{.D.Name}}) {{.F.Setter}}(value {{.F.Type}}) {
	{{.R}}.{{.F.Publish.Mutator}}(value)
}
{{end}}

{{define "state"}}
// Registry keys of the {{.D.Name}} channels.
const (
	{{.D.CommandConst}} = {{quote .D.CommandKey}}
{{- range .Arts}}
	{{.ConstSpec}}
{{- end}}
)

{{if .D.State.Doc}}{{.D.State.Doc}}
{{- else}}// {{.D.Name}} is the state of a controller. Only the goroutine running Run may use it.{{end}}
type {{.D.Name}} struct {
{{- range .D.Fields}}
{{- if .Doc}}
{{indent "\t" .Doc}}
{{- end}}
	{{.Name}} {{.Type}}{{if .Tag}} {{tag .Tag}}{{end}}{{if .Comment}} {{.Comment}}{{end}}
{{- end}}
{{if .Arts}}
{{- range .Arts}}
	{{.SenderField}}
{{- end}}
{{end}}
	requests *pubsub.QueueReceiver[{{.D.RequestType}}]
}

// {{.D.Constructor}} creates a {{.D.Name}} holding the given initial values and binds it
// to its channels in {{.D.RegistryParam}}. It panics if another {{.D.Name}} already owns them.
func {{.D.Constructor}}({{.D.RegistryParam}} *pubsub.Registry{{range .D.Fields}}, {{.Param}} {{.Type}}{{end}}) *{{.D.Name}} {
	{{.R}} := &{{.D.Name}}{
{{- range .D.Fields}}
		{{.Name}}: {{.Param}},
{{- end}}
{{- range .Arts}}
		{{.SenderInit}}
{{- end}}
		requests: pubsub.MustQueue[{{.D.RequestType}}]({{.D.RegistryParam}}, {{.D.CommandConst}}, {{.D.CommandCapacity}}).MustReceiver(),
	}
{{- range .Arts}}
{{- if .InitialPublish}}
	{{.InitialPublish}}
{{- end}}
{{- end}}
	return {{.R}}
}
{{end}}
`
