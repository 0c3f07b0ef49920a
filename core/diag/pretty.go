package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	posColor     = color.New(color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	codeColor    = color.New(color.Faint)
)

// PrettyOpts configures Pretty.
type PrettyOpts struct {
	Color bool
	// Max limits the number of printed diagnostics; 0 prints all.
	Max int
}

// Pretty writes one line per diagnostic:
//
//	<file>:<line>:<col>: <severity> <code>: <message>
func Pretty(w io.Writer, list List, opts PrettyOpts) {
	for i, d := range list {
		if opts.Max > 0 && i >= opts.Max {
			fmt.Fprintf(w, "... and %d more\n", len(list)-opts.Max)
			return
		}
		if !opts.Color {
			fmt.Fprintln(w, d.Error())
			continue
		}
		sev := severityColor(d.Severity)
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			posColor.Sprint(d.Pos.String()),
			sev.Sprint(d.Severity.String()),
			codeColor.Sprint(d.Code.ID()),
			d.Message)
	}
}

func severityColor(s Severity) *color.Color {
	switch s {
	case SevError:
		return errorColor
	case SevWarning:
		return warningColor
	default:
		return infoColor
	}
}
