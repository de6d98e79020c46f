package domain

import (
	"fmt"
	"strings"
	"sync"

	m "zest.dev/pkg/zest/internal/model"
)

// Root is a registered top-level suite.
type Root struct {
	Name    string
	Fn      SuiteFunc
	Options []Option
}

// Registry holds the root suites known to the process in registration order.
type Registry struct {
	mu    sync.Mutex
	roots []Root
	names map[string]bool
}

// DefaultRegistry is filled by package init functions of test suites.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{names: map[string]bool{}}
}

// Register adds a root suite. Root names must be unique and must not contain
// the path separator.
func (r *Registry) Register(name string, fn SuiteFunc, options ...Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case name == "":
		return &m.StructuralError{Message: "root suite with empty name"}
	case strings.Contains(name, "."):
		return &m.StructuralError{Path: name, Message: "root suite name must not contain '.'"}
	case r.names[name]:
		return &m.StructuralError{Path: name, Message: fmt.Sprintf("root suite %q registered twice", name)}
	}

	r.names[name] = true
	r.roots = append(r.roots, Root{Name: name, Fn: fn, Options: options})

	return nil
}

// Roots returns the registered root suites in registration order.
func (r *Registry) Roots() []Root {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Root(nil), r.roots...)
}

// Len returns the number of registered roots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.roots)
}
