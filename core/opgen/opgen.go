// Package opgen generates the operation side of a controller: the request type and
// run loop of the owner, the operation set interface, and the client that forwards
// operations, accessors and subscriptions to the owning goroutine.
package opgen

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/artpar/ctrlgen/core/convention"
	"github.com/artpar/ctrlgen/core/expand"
	"github.com/artpar/ctrlgen/core/schema"
)

// Method is one generated client method.
type Method struct {
	Doc     string
	Name    string
	Params  string
	Results string
	Body    string
}

type data struct {
	D          convention.Derived
	R          string
	CR         string
	OpsDoc     string
	Interface  []string
	Methods    []Method
	Subscribes []expand.PublishedFieldInfo
}

var tmpl = template.Must(template.New("opgen").Parse(opsTemplate))

// Generate returns the operation source of d. contract lists the published fields,
// signals and accessors produced by the field expansion.
func Generate(d convention.Derived, contract expand.Contract) (string, error) {
	x := data{
		D:          d,
		R:          d.Receiver,
		CR:         d.ClientReceiver,
		OpsDoc:     d.Operations.Doc,
		Subscribes: contract.Published,
	}
	if x.OpsDoc == "" {
		x.OpsDoc = fmt.Sprintf("// %s lists the operations of %s.", d.Operations.Name, d.Name)
	}

	signals := make(map[string]convention.DerivedSignal, len(d.Signals))
	for _, s := range d.Signals {
		signals[s.Name] = s
	}
	calls := make(map[string]convention.DerivedCall, len(d.Calls))
	for _, c := range d.Calls {
		calls[c.Name] = c
	}
	for _, op := range d.Operations.Methods {
		var sig string
		if s, ok := signals[op.Name]; ok {
			sig = s.Name + "(" + expand.Params(s.Params) + ")"
		} else {
			c := calls[op.Name]
			sig = c.Name + "(" + expand.Params(c.Params) + ")" + resultList(op.Results)
		}
		if op.Doc != "" {
			sig = op.Doc + "\n" + sig
		}
		x.Interface = append(x.Interface, sig)
	}

	for _, c := range d.Calls {
		x.Methods = append(x.Methods, callMethod(d, c))
	}
	for _, a := range contract.Accessors {
		x.Methods = append(x.Methods, accessorMethod(d, a))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, x); err != nil {
		return "", fmt.Errorf("generating operations of %s: %w", d.Name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// resultList renders results the way they appear after a parameter list.
func resultList(results []schema.Param) string {
	switch {
	case len(results) == 0:
		return ""
	case len(results) == 1 && results[0].Name == "":
		return " " + results[0].Type
	}
	named := true
	for _, r := range results {
		if r.Name == "" {
			named = false
		}
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Type
		if named {
			parts[i] = r.Name + " " + r.Type
		}
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func tuple(types []string) string {
	if len(types) == 1 {
		return types[0]
	}
	return "(" + strings.Join(types, ", ") + ")"
}

func callMethod(d convention.Derived, c convention.DerivedCall) Method {
	params := c.Params
	args := expand.Args(params)
	if c.ContextParam {
		params = params[1:]
		args = "ctx"
		if len(params) > 0 {
			args += ", " + expand.Args(params)
		}
	}
	sig := "ctx context.Context"
	if len(params) > 0 {
		sig += ", " + expand.Params(params)
	}

	m := Method{
		Doc:    fmt.Sprintf("// %s calls %s.%s on the owning goroutine.", c.Name, d.Name, c.Name),
		Name:   c.Name,
		Params: sig,
	}
	invoke := fmt.Sprintf("%s.%s(%s)", d.Receiver, c.Name, args)
	owner := fmt.Sprintf("func(%s *%s)", d.Receiver, d.Name)

	switch n := len(c.Results); {
	case n == 0:
		m.Results = "error"
		m.Body = fmt.Sprintf("return pubsub.Do(ctx, %s.requests, %s {\n\t%s\n})", d.ClientReceiver, owner, invoke)

	case n == 1 && c.MergeError:
		m.Results = "error"
		m.Body = fmt.Sprintf("res, err := pubsub.Call(ctx, %s.requests, %s error {\n\treturn %s\n})\nif err != nil {\n\treturn err\n}\nreturn res",
			d.ClientReceiver, owner, invoke)

	case n == 1:
		m.Results = fmt.Sprintf("(%s, error)", c.Results[0])
		m.Body = fmt.Sprintf("return pubsub.Call(ctx, %s.requests, %s %s {\n\treturn %s\n})",
			d.ClientReceiver, owner, c.Results[0], invoke)

	default:
		fields := make([]string, n)
		refs := make([]string, n)
		for i, t := range c.Results {
			fields[i] = fmt.Sprintf("r%d %s", i, t)
			refs[i] = fmt.Sprintf("res.r%d", i)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "type result struct {\n\t%s\n}\n", strings.Join(fields, "\n\t"))
		fmt.Fprintf(&b, "res, err := pubsub.Call(ctx, %s.requests, %s result {\n", d.ClientReceiver, owner)
		fmt.Fprintf(&b, "\tvar res result\n\t%s = %s\n\treturn res\n})\n", strings.Join(refs, ", "), invoke)
		if c.MergeError {
			m.Results = tuple(c.Results)
			fmt.Fprintf(&b, "if err != nil {\n\treturn %s, err\n}\nreturn %s", strings.Join(refs[:n-1], ", "), strings.Join(refs, ", "))
		} else {
			m.Results = tuple(append(append([]string(nil), c.Results...), "error"))
			fmt.Fprintf(&b, "return %s, err", strings.Join(refs, ", "))
		}
		m.Body = b.String()
	}
	return m
}

func accessorMethod(d convention.Derived, a expand.AccessorInfo) Method {
	owner := fmt.Sprintf("func(%s *%s)", d.Receiver, d.Name)
	if a.Kind == expand.AccessorGetter {
		return Method{
			Doc:     fmt.Sprintf("// %s returns %s.%s as seen by the owning goroutine.", a.Name, d.Name, a.Field),
			Name:    a.Name,
			Params:  "ctx context.Context",
			Results: fmt.Sprintf("(%s, error)", a.Type),
			Body: fmt.Sprintf("return pubsub.Call(ctx, %s.requests, %s %s {\n\treturn %s.%s()\n})",
				d.ClientReceiver, owner, a.Type, d.Receiver, a.Name),
		}
	}
	return Method{
		Doc:     fmt.Sprintf("// %s sets %s.%s on the owning goroutine.", a.Name, d.Name, a.Field),
		Name:    a.Name,
		Params:  "ctx context.Context, value " + a.Type,
		Results: "error",
		Body: fmt.Sprintf("return pubsub.Do(ctx, %s.requests, %s {\n\t%s.%s(value)\n})",
			d.ClientReceiver, owner, d.Receiver, a.Name),
	}
}

const opsTemplate = `
// {{.D.RequestType}} is a function the owning goroutine runs against its {{.D.Name}}.
type {{.D.RequestType}} func(*{{.D.Name}})

// Run serves client requests until ctx is done and returns ctx.Err(). Call it from
// the goroutine that owns {{.R}}; no other goroutine may use {{.R}} while it runs.
func ({{.R}} *{{.D.Name}}) Run(ctx context.Context) error {
	return pubsub.Serve(ctx, {{.R}}.requests, {{.R}})
}

{{.OpsDoc}}
type {{.D.Operations.Name}} interface {
{{- range .Interface}}
	{{.}}
{{- end}}
}

var _ {{.D.Operations.Name}} = (*{{.D.Name}})(nil)

// {{.D.ClientType}} reaches a {{.D.Name}} from other goroutines. Its methods run on
// the owning goroutine and may be called concurrently.
type {{.D.ClientType}} struct {
	reg      *pubsub.Registry
	requests *pubsub.Queue[{{.D.RequestType}}]
}

// {{.D.ClientConstructor}} creates a client of the {{.D.Name}} bound to reg.
func {{.D.ClientConstructor}}(reg *pubsub.Registry) (*{{.D.ClientType}}, error) {
	q, err := pubsub.QueueFor[{{.D.RequestType}}](reg, {{.D.CommandConst}}, {{.D.CommandCapacity}})
	if err != nil {
		return nil, err
	}
	return &{{.D.ClientType}}{reg: reg, requests: q}, nil
}
{{range .Methods}}
{{.Doc}}
func ({{$.CR}} *{{$.D.ClientType}}) {{.Name}}({{.Params}}) {{.Results}} {
	{{.Body}}
}
{{end}}
{{- range .Subscribes}}
// {{.Receive}} subscribes to {{if .Signal}}the {{.Field}} signal{{else}}changes of {{.Field}}{{end}}.
func ({{$.CR}} *{{$.D.ClientType}}) {{.Receive}}() (*{{.Subscriber}}, error) {
	return {{.SubscriberConstructor}}({{$.CR}}.reg)
}
{{end}}
`
