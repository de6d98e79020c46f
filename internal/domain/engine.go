package domain

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"zest.dev/pkg/zest/internal/adapter"
	m "zest.dev/pkg/zest/internal/model"
)

const (
	reasonNotSelected = "not selected"
	reasonAborted     = "aborted"
	reasonCanceled    = "canceled"
	reasonAllSkipped  = "all children skipped"
)

// Listener is notified when a node starts and when its result is complete.
// Results handed to OnStop are not sealed yet and must not be retained past
// the end of the run without copying.
type Listener interface {
	OnStart(ctx context.Context, fullName string)
	OnStop(ctx context.Context, result *m.Result)
}

type nopListener struct{}

func (nopListener) OnStart(context.Context, string) {}
func (nopListener) OnStop(context.Context, *m.Result) {}

// Engine builds test trees from root suites and executes them.
type Engine interface {
	// Discover runs the suite functions of root once and returns the tree.
	Discover(ic *InvocationContext, root Root) *TestNode
	// Plan returns the selected leaves of tree in execution order.
	Plan(ic *InvocationContext, tree *TestNode) []*TestNode
	// Execute runs the selected part of tree and returns its sealed result,
	// or nil when nothing in tree is selected.
	Execute(ctx context.Context, ic *InvocationContext, tree *TestNode) *m.Result
}

type engine struct {
	scratch  adapter.Scratch
	listener Listener
}

// NewEngine creates an Engine. A nil listener discards notifications.
func NewEngine(scratch adapter.Scratch, listener Listener) Engine {
	if listener == nil {
		listener = nopListener{}
	}

	return &engine{scratch: scratch, listener: listener}
}

func (e *engine) Discover(ic *InvocationContext, root Root) *TestNode {
	ic.setMode(ModeDiscover)

	node := newNode(root.Name, m.KindSuite, nil, root.Options...)
	if root.Fn == nil {
		node.BuildErr = &m.StructuralError{Path: root.Name, Message: "root suite has no body"}
		return node
	}

	node.suite = root.Fn
	build(ic, node)

	slog.Debug("discovered suite", "root", root.Name, "leaves", len(node.Leaves()))

	return node
}

func (e *engine) Plan(ic *InvocationContext, tree *TestNode) []*TestNode {
	included := map[*TestNode]bool{}
	selectNodes(ic.Selection(), tree, included)

	var plan []*TestNode

	var visit func(n *TestNode)
	visit = func(n *TestNode) {
		if !included[n] {
			return
		}

		if n.Kind == m.KindLeaf {
			plan = append(plan, n)
			return
		}

		for _, child := range order(ic, n) {
			visit(child)
		}
	}
	visit(tree)

	return plan
}

func (e *engine) Execute(ctx context.Context, ic *InvocationContext, tree *TestNode) *m.Result {
	included := map[*TestNode]bool{}
	if !selectNodes(ic.Selection(), tree, included) {
		slog.Debug("nothing selected", "root", tree.Name)
		return nil
	}

	ic.setMode(ModeExecute)
	defer ic.setMode(ModeDiscover)

	res := e.runSuite(ctx, ic, tree, included)
	res.Seal()

	return res
}

// selectNodes marks the selected leaves of n and all of their ancestors.
// Suites that have no children, or that failed to build, are judged by their
// own name so their errors stay visible.
func selectNodes(sel m.Selection, n *TestNode, included map[*TestNode]bool) bool {
	if n.Kind == m.KindLeaf {
		if sel.Includes(n.FullName(), n.EffectiveGroups()) {
			included[n] = true
		}

		return included[n]
	}

	selected := false

	for _, child := range n.Children {
		if selectNodes(sel, child, included) {
			selected = true
		}
	}

	if !selected && (len(n.Children) == 0 || n.BuildErr != nil) {
		selected = sel.Includes(n.FullName(), n.EffectiveGroups())
	}

	if selected {
		included[n] = true
	}

	return selected
}

// order returns the children of n in execution order. The permutation only
// depends on the seed and the suite's full name.
func order(ic *InvocationContext, n *TestNode) []*TestNode {
	children := slices.Clone(n.Children)
	if !ic.Shuffle() || len(children) < 2 {
		return children
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(n.FullName()))

	rng := rand.New(rand.NewPCG(ic.Seed(), h.Sum64()))
	rng.Shuffle(len(children), func(i, j int) {
		children[i], children[j] = children[j], children[i]
	})

	return children
}

func (e *engine) runSuite(ctx context.Context, ic *InvocationContext, n *TestNode, included map[*TestNode]bool) *m.Result {
	ic.EnterScope(n.Name)
	defer ic.LeaveScope()

	res := m.NewResult(n.Name, n.FullName(), m.KindSuite)
	e.listener.OnStart(ctx, res.FullName)

	start := time.Now()

	defer func() {
		res.SetDuration(time.Since(start))
		e.listener.OnStop(ctx, res)
	}()

	if n.Skip && !ic.Selection().Bypass(res.FullName) {
		e.skipChildren(ctx, n, res, included, n.SkipReason)
		res.Skip(n.SkipReason)

		return res
	}

	if n.BuildErr != nil {
		res.Finish(m.Error, failureOf(n.BuildErr))
		return res
	}

	mark := ic.spyMark()
	defer ic.restoreSpies(mark)

	for _, spy := range n.stack {
		b, err := spy.bind()
		if err != nil {
			slog.Error("Failed to install stack spy", "suite", res.FullName, "error", err)
			res.Finish(m.Error, failureOf(err))

			return res
		}

		ic.pushSpy(b)
	}

	var abort *m.Failure

	for _, child := range order(ic, n) {
		for _, spy := range n.stack {
			spy.mock.Reset()
		}

		var cr *m.Result

		switch {
		case !included[child]:
			cr = e.skipped(ctx, child, reasonNotSelected)
		case abort != nil:
			cr = e.skipTree(ctx, child, included, reasonAborted)
		case ctx.Err() != nil:
			cr = e.skipTree(ctx, child, included, reasonCanceled)
		case child.Kind == m.KindLeaf:
			cr, abort = e.runLeaf(ctx, ic, n, child)
		default:
			cr = e.runSuite(ctx, ic, child, included)
		}

		res.AddChild(cr)
	}

	aggregate(res, abort)

	return res
}

func aggregate(res *m.Result, abort *m.Failure) {
	if abort != nil {
		res.Finish(m.Error, &m.Failure{Message: "aborted: " + abort.Message})
		return
	}

	failed := false
	allSkipped := len(res.Children) > 0

	for _, child := range res.Children {
		if child.AnyFailed() {
			failed = true
		}

		if child.Status != m.Skipped {
			allSkipped = false
		}
	}

	switch {
	case failed:
		res.Finish(m.Fail, nil)
	case allSkipped:
		res.Skip(reasonAllSkipped)
	}
}

// runLeaf executes one leaf with the hooks of its parent suite. A non-nil
// failure is a structural error, raised by the leaf or its after hook, that
// must abort the parent.
func (e *engine) runLeaf(ctx context.Context, ic *InvocationContext, parent, leaf *TestNode) (*m.Result, *m.Failure) {
	ic.EnterScope(leaf.Name)
	defer ic.LeaveScope()

	res := m.NewResult(leaf.Name, leaf.FullName(), m.KindLeaf)
	e.listener.OnStart(ctx, res.FullName)

	start := time.Now()

	defer func() {
		res.SetDuration(time.Since(start))
		e.listener.OnStop(ctx, res)
	}()

	if leaf.Skip && !ic.Selection().Bypass(res.FullName) {
		res.Skip(leaf.SkipReason)
		return res, nil
	}

	t := newT(ic, leaf, res, e.scratch)
	attempts := leaf.Retries + 1

	var o outcome

	for attempt := 1; attempt <= attempts; attempt++ {
		t.resetAttempt()

		o = e.attempt(t, parent, leaf)
		res.SetAttempts(attempt)

		if o.status != m.Fail || attempt == attempts || t.structural != nil {
			break
		}

		slog.Info("retrying leaf", "leaf", res.FullName, "attempt", attempt, "failure", o.failure.Message)
	}

	if o.skipped {
		res.Skip(o.skipReason)
	} else {
		res.Finish(o.status, o.failure)
	}

	for _, extra := range t.extras {
		res.AddExtra(extra)
	}

	switch {
	case o.structural:
		return res, o.failure
	case t.structural != nil:
		return res, t.structural
	}

	return res, nil
}

// attempt runs before, body and after once. Substitutions installed by the
// leaf are restored after the after hook.
func (e *engine) attempt(t *T, parent, leaf *TestNode) outcome {
	mark := t.ic.spyMark()
	defer t.ic.restoreSpies(mark)
	defer t.cleanup()

	if parent.after != nil {
		defer t.runAfter(parent.after)
	}

	if parent.before != nil {
		r, stack := t.run(parent.before)
		if r != nil || t.Failed() {
			o := t.classify(r, stack)
			if o.failure != nil {
				o.failure.Message = "before hook: " + o.failure.Message
			}

			return o
		}
	}

	r, stack := t.run(leaf.body)

	return t.classify(r, stack)
}

// skipped reports a node that does not run, without descending into it.
func (e *engine) skipped(ctx context.Context, n *TestNode, reason string) *m.Result {
	res := m.NewResult(n.Name, n.FullName(), n.Kind)

	e.listener.OnStart(ctx, res.FullName)
	res.Skip(reason)
	e.listener.OnStop(ctx, res)

	return res
}

// skipTree reports n and its selected descendants as skipped.
func (e *engine) skipTree(ctx context.Context, n *TestNode, included map[*TestNode]bool, reason string) *m.Result {
	if n.Kind == m.KindLeaf {
		return e.skipped(ctx, n, reason)
	}

	res := m.NewResult(n.Name, n.FullName(), n.Kind)
	e.listener.OnStart(ctx, res.FullName)
	e.skipChildren(ctx, n, res, included, reason)
	res.Skip(reason)
	e.listener.OnStop(ctx, res)

	return res
}

func (e *engine) skipChildren(ctx context.Context, n *TestNode, res *m.Result, included map[*TestNode]bool, reason string) {
	for _, child := range n.Children {
		if included[child] {
			res.AddChild(e.skipTree(ctx, child, included, reason))
		}
	}
}

func failureOf(err error) *m.Failure {
	failure := &m.Failure{Message: err.Error()}

	var unexpected *m.UnexpectedError
	if errors.As(err, &unexpected) {
		failure.Stack = unexpected.Stack
	}

	return failure
}
