// Package theme renders a projected presentation state as HTML.
package theme

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"idlely/internal/presentation"
)

// StyleElementID identifies the injected style block so clients can replace it.
const StyleElementID = "idlely-theme"

// Shell holds the document-level classes for a state.
type Shell struct {
	RootClass string
	BodyClass string
}

const (
	lightBody = "min-h-screen bg-stone-50 text-stone-900"
	darkBody  = "min-h-screen bg-slate-950 text-slate-100"
)

// Resolve returns the root and body classes for state.
func Resolve(state presentation.State) Shell {
	body := lightBody
	if state.Dark {
		body = darkBody
	}
	if len(state.BodyClasses) > 0 {
		body += " " + strings.Join(state.BodyClasses, " ")
	}
	return Shell{RootClass: state.RootClass(), BodyClass: body}
}

// StyleSheet returns the CSS for state, safe to embed in a style element.
func StyleSheet(state presentation.State) string {
	return strings.ReplaceAll(state.CSS(), "</", `<\/`)
}

// Style renders the state's variables and custom CSS as a style element.
func Style(state presentation.State) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<style id="`+StyleElementID+`">`+"\n"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, StyleSheet(state)); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</style>")
		return err
	})
}
