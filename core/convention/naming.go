package convention

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Words splits an identifier into words at underscores and case boundaries.
// Acronyms stay together: "HTTPServer" is ["HTTP", "Server"].
func Words(name string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' {
			flush()
			continue
		}
		if i > 0 && unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// Pascal converts snake_case or camelCase to PascalCase: "current_state" and
// "currentState" both become "CurrentState".
func Pascal(name string) string {
	// Casers are stateful; generation runs concurrently, so each call gets its own.
	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		b.WriteString(title.String(part))
	}
	return b.String()
}

// LowerCamel converts a name to lowerCamelCase: "ErrorOccurred" becomes
// "errorOccurred" and "HTTPServer" becomes "httpServer".
func LowerCamel(name string) string {
	words := Words(name)
	if len(words) == 0 {
		return ""
	}
	lower := cases.Lower(language.Und)
	title := cases.Title(language.Und)

	var b strings.Builder
	b.WriteString(lower.String(words[0]))
	for _, w := range words[1:] {
		b.WriteString(title.String(w))
	}
	return b.String()
}

// ScreamingSnake converts a name to SCREAMING_SNAKE_CASE: "currentState" becomes
// "CURRENT_STATE".
func ScreamingSnake(name string) string {
	return cases.Upper(language.Und).String(strings.Join(Words(name), "_"))
}

// ChannelKey returns the registry key of a published field or signal channel,
// e.g. CONTROLLER_MODE_CHANNEL.
func ChannelKey(typeName, member string) string {
	return ScreamingSnake(typeName) + "_" + ScreamingSnake(member) + "_CHANNEL"
}

// CommandKey returns the registry key of a controller's command queue.
func CommandKey(typeName string) string {
	return ScreamingSnake(typeName) + "_COMMAND_CHANNEL"
}
