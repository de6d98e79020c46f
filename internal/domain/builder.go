package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	m "zest.dev/pkg/zest/internal/model"
)

// S is the builder handed to a suite function. Suites register leaves,
// nested suites and hooks on it; the engine works purely on what was
// registered.
type S struct {
	node   *TestNode
	ic     *InvocationContext
	sealed bool
}

// Name returns the suite name.
func (s *S) Name() string {
	return s.node.Name
}

// FullName returns the dotted path of the suite.
func (s *S) FullName() string {
	return s.node.FullName()
}

// Before registers the hook run immediately before every direct leaf child.
func (s *S) Before(fn LeafFunc) {
	s.mustRegister("Before")

	if s.node.before != nil {
		s.fail("before hook registered more than once")
		return
	}

	s.node.before = fn
}

// After registers the hook run immediately after every direct leaf child,
// including when the leaf panics.
func (s *S) After(fn LeafFunc) {
	s.mustRegister("After")

	if s.node.after != nil {
		s.fail("after hook registered more than once")
		return
	}

	s.node.after = fn
}

// It registers a leaf test.
func (s *S) It(name string, fn LeafFunc, options ...Option) {
	s.mustRegister("It")

	if !s.validName(name) {
		return
	}

	if fn == nil {
		s.fail(fmt.Sprintf("leaf %q has no body", name))
		return
	}

	leaf := newNode(name, m.KindLeaf, s.node, options...)
	leaf.body = fn
	s.node.addChild(leaf)
}

// Describe registers a nested suite and builds it immediately.
func (s *S) Describe(name string, fn SuiteFunc, options ...Option) {
	s.mustRegister("Describe")

	if !s.validName(name) {
		return
	}

	if fn == nil {
		s.fail(fmt.Sprintf("suite %q has no body", name))
		return
	}

	suite := newNode(name, m.KindSuite, s.node, options...)
	suite.suite = fn
	s.node.addChild(suite)

	build(s.ic, suite)
}

func (s *S) validName(name string) bool {
	if name == "" {
		s.fail("empty test name")
		return false
	}

	if strings.Contains(name, ".") {
		s.fail(fmt.Sprintf("test name %q must not contain '.'", name))
		return false
	}

	if s.node.Child(name) != nil {
		s.fail(fmt.Sprintf("duplicate test name %q", name))
		return false
	}

	return true
}

// mustRegister rejects registrations made outside of discovery, for example
// from inside a leaf body that captured the builder.
func (s *S) mustRegister(op string) {
	if s.sealed || s.ic.Mode() != ModeDiscover {
		panic(&m.StructuralError{
			Path:    s.node.FullName(),
			Message: op + " called after discovery finished",
		})
	}
}

func (s *S) fail(message string) {
	err := &m.StructuralError{Path: s.node.FullName(), Message: message}
	s.node.BuildErr = errors.Join(s.node.BuildErr, err)
}

// build runs the suite function of node in discovery mode, recording any
// structural error or panic on the node instead of propagating it.
func build(ic *InvocationContext, node *TestNode) {
	s := &S{node: node, ic: ic}

	ic.EnterScope(node.Name)
	defer ic.LeaveScope()

	defer func() {
		s.sealed = true

		r := recover()
		if r == nil {
			return
		}

		err, ok := r.(error)
		if !ok || !m.IsStructural(err) {
			err = &m.UnexpectedError{Value: r, Stack: string(debug.Stack())}
		}

		node.BuildErr = errors.Join(node.BuildErr, err)
		slog.Warn("suite failed to build", "suite", node.FullName(), "error", err)
	}()

	node.suite(s)
}
