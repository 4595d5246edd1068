package presentation

import (
	"maps"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
)

// State is the projected presentation. Anything absent from it is cleared
// when a Surface applies it.
type State struct {
	Variables   map[string]string
	Dark        bool
	BodyClasses []string
	CustomCSS   string
	Premium     bool
}

// Variable returns the value of a presentation variable.
func (s State) Variable(name string) (string, bool) {
	v, ok := s.Variables[name]
	return v, ok
}

// HasClass reports whether class is applied to the body.
func (s State) HasClass(class string) bool {
	return slices.Contains(s.BodyClasses, class)
}

// RootClass is the class the document root carries for this state.
func (s State) RootClass() string {
	if s.Dark {
		return "dark"
	}
	return ""
}

// CSS renders the variables as a :root rule followed by the custom stylesheet.
// Variables are emitted in name order so the output is stable.
func (s State) CSS() string {
	names := make([]string, 0, len(s.Variables))
	for name := range s.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, name := range names {
		b.WriteString("  ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(s.Variables[name])
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
	if s.CustomCSS != "" {
		b.WriteString(s.CustomCSS)
		if !strings.HasSuffix(s.CustomCSS, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (s State) clone() State {
	out := s
	out.Variables = maps.Clone(s.Variables)
	out.BodyClasses = slices.Clone(s.BodyClasses)
	return out
}

// Surface receives projected states. Apply replaces whatever was applied before.
type Surface interface {
	Apply(State)
}

// Context is an in-memory Surface holding the current visual state.
type Context struct {
	mu      sync.RWMutex
	current State
	applied int
}

// NewContext returns an empty rendering context.
func NewContext() *Context {
	return &Context{current: State{Variables: map[string]string{}}}
}

// Apply implements Surface.
func (c *Context) Apply(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = state.clone()
	c.applied++
}

// Current returns a copy of the applied state.
func (c *Context) Current() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.clone()
}

// Applied counts how many states have been applied.
func (c *Context) Applied() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.applied
}

// Appearance is the system-level light/dark preference signal.
type Appearance interface {
	PrefersDark() bool
}

// AppearanceFunc adapts a function to Appearance.
type AppearanceFunc func() bool

// PrefersDark implements Appearance.
func (f AppearanceFunc) PrefersDark() bool {
	return f()
}

// Fixed is an Appearance with a constant answer.
type Fixed bool

// PrefersDark implements Appearance.
func (f Fixed) PrefersDark() bool {
	return bool(f)
}

// EnvAppearance reads PREFERS_COLOR_SCHEME ("dark" or "light") from the
// environment each time it is asked.
var EnvAppearance = AppearanceFunc(func() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("PREFERS_COLOR_SCHEME")), "dark")
})
