package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/artpar/ctrlgen/core/diag"
)

// MarkerKey is the struct tag key holding field markers in Go input.
const MarkerKey = "ctrl"

// markerItem is one comma-separated entry of a marker string.
type markerItem struct {
	name     string
	value    string
	hasValue bool
	inner    []string
	hasInner bool
}

// ParseMarkers parses the marker string of one field. Every problem is reported as a
// diagnostic at pos naming the offending marker; the returned Markers are only
// meaningful when the list has no errors.
func ParseMarkers(s string, pos diag.Pos) (Markers, diag.List) {
	var m Markers
	var diags diag.List

	s = strings.TrimSpace(s)
	if s == "" {
		return m, nil
	}

	raw, err := splitMarkers(s)
	if err != nil {
		diags.Errorf(pos, diag.MarkerSyntax, "%v", err)
		return m, diags
	}

	seen := make(map[string]bool)
	for _, r := range raw {
		item, err := parseMarkerItem(r)
		if err != nil {
			diags.Errorf(pos, diag.MarkerSyntax, "%v", err)
			continue
		}
		if seen[item.name] {
			diags.Errorf(pos, diag.MarkerDuplicate, "duplicate marker %q", item.name)
			continue
		}
		seen[item.name] = true

		switch item.name {
		case "publish":
			if item.hasValue {
				diags.Errorf(pos, diag.MarkerArguments, "marker %q does not take a value", item.name)
				continue
			}
			m.Published = true
			diags.Add(applyPublishOptions(&m, item.inner, pos)...)

		case "getter", "setter":
			if item.hasInner {
				diags.Errorf(pos, diag.MarkerArguments, "marker %q does not take options", item.name)
				continue
			}
			if item.hasValue && !isValidIdentifier(item.value) {
				diags.Errorf(pos, diag.MarkerName, "%s name %q is not a valid identifier", item.name, item.value)
				continue
			}
			if item.name == "getter" {
				m.HasGetter = true
				m.GetterName = item.value
			} else {
				m.HasSetter = true
				m.SetterName = item.value
			}

		default:
			diags.Errorf(pos, diag.MarkerUnknown, "unknown marker %q (expected publish, getter or setter)", item.name)
		}
	}

	return m, diags
}

func applyPublishOptions(m *Markers, opts []string, pos diag.Pos) diag.List {
	var diags diag.List
	seen := make(map[string]bool)
	for _, opt := range opts {
		if !isValidIdentifier(opt) {
			diags.Errorf(pos, diag.MarkerArguments, "publish option %q does not take arguments", opt)
			continue
		}
		if seen[opt] {
			diags.Errorf(pos, diag.MarkerDuplicate, "duplicate publish option %q", opt)
			continue
		}
		seen[opt] = true

		switch opt {
		case "pub_setter":
			m.PubSetter = true
		case "latest":
			m.Strategy = StrategyLatest
		case "history":
			m.Strategy = StrategyHistory
		case "clone":
			m.Clone = true
		default:
			diags.Errorf(pos, diag.MarkerPublishOption,
				"unknown publish option %q (expected pub_setter, latest, history or clone)", opt)
		}
	}
	if seen["latest"] && seen["history"] {
		diags.Errorf(pos, diag.MarkerConflict, `publish options "latest" and "history" are mutually exclusive`)
	}
	return diags
}

// splitMarkers splits s at commas that are outside parentheses and quotes.
func splitMarkers(s string) ([]string, error) {
	var parts []string
	depth := 0
	inQuote := false
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			switch c {
			case '\\':
				i++
			case '"':
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(':
			depth++
			if depth > 1 {
				return nil, fmt.Errorf("nested parentheses in marker %q", s)
			}
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced ')' in marker %q", s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated string in marker %q", s)
	}
	if depth != 0 {
		return nil, fmt.Errorf("unclosed '(' in marker %q", s)
	}
	return append(parts, s[start:]), nil
}

func parseMarkerItem(raw string) (markerItem, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return markerItem{}, fmt.Errorf("empty marker")
	}

	n := 0
	for n < len(raw) && (isLetter(rune(raw[n])) || isDigit(rune(raw[n])) || raw[n] == '_') {
		n++
	}
	if n == 0 {
		return markerItem{}, fmt.Errorf("malformed marker %q", raw)
	}

	item := markerItem{name: raw[:n]}
	rest := strings.TrimSpace(raw[n:])

	switch {
	case rest == "":
		return item, nil

	case rest[0] == '=':
		value := strings.TrimSpace(rest[1:])
		if strings.HasPrefix(value, `"`) {
			unquoted, err := strconv.Unquote(value)
			if err != nil {
				return markerItem{}, fmt.Errorf("malformed value for marker %q: %s", item.name, value)
			}
			value = unquoted
		}
		if value == "" {
			return markerItem{}, fmt.Errorf("marker %q has an empty value", item.name)
		}
		item.value = value
		item.hasValue = true
		return item, nil

	case rest[0] == '(' && rest[len(rest)-1] == ')':
		item.hasInner = true
		inner := strings.TrimSpace(rest[1 : len(rest)-1])
		if inner == "" {
			return item, nil
		}
		for _, opt := range strings.Split(inner, ",") {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				return markerItem{}, fmt.Errorf("empty option in marker %q", item.name)
			}
			item.inner = append(item.inner, opt)
		}
		return item, nil
	}

	return markerItem{}, fmt.Errorf("malformed marker %q", raw)
}

// stripTagKey removes key from a conventional struct tag and returns the rest. The
// second result is the removed value.
func stripTagKey(tag, key string) (rest string, value string, found bool) {
	var kept []string
	for tag != "" {
		i := 0
		for i < len(tag) && tag[i] == ' ' {
			i++
		}
		tag = tag[i:]
		if tag == "" {
			break
		}

		i = 0
		for i < len(tag) && tag[i] > ' ' && tag[i] != ':' && tag[i] != '"' && tag[i] != 0x7f {
			i++
		}
		if i == 0 || i+1 >= len(tag) || tag[i] != ':' || tag[i+1] != '"' {
			// Not a conventional tag; keep the remainder as is.
			kept = append(kept, tag)
			break
		}
		name := tag[:i]
		tag = tag[i+1:]

		i = 1
		for i < len(tag) && tag[i] != '"' {
			if tag[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(tag) {
			kept = append(kept, name+":"+tag)
			break
		}
		qvalue := tag[:i+1]
		tag = tag[i+1:]

		if name == key && !found {
			v, err := strconv.Unquote(qvalue)
			if err != nil {
				v = strings.Trim(qvalue, `"`)
			}
			value = v
			found = true
			continue
		}
		kept = append(kept, name+":"+qvalue)
	}
	return strings.Join(kept, " "), value, found
}
