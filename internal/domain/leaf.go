package domain

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"zest.dev/pkg/zest/internal/adapter"
	m "zest.dev/pkg/zest/internal/model"
)

// skipSignal unwinds a leaf that skipped itself.
type skipSignal struct {
	reason string
}

// T is the handle passed to leaf bodies and hooks. It satisfies the
// TestingT interfaces of testify's assert and require packages.
type T struct {
	node    *TestNode
	ic      *InvocationContext
	result  *m.Result
	scratch adapter.Scratch

	failures []string
	failNow  *m.AssertionFailure
	aborted  bool
	extras   []m.Failure
	tempDirs []m.Path

	// structural is set when the after hook raised a structural error.
	structural *m.Failure
}

func newT(ic *InvocationContext, node *TestNode, result *m.Result, scratch adapter.Scratch) *T {
	return &T{
		node:    node,
		ic:      ic,
		result:  result,
		scratch: scratch,
	}
}

// Name returns the leaf name.
func (t *T) Name() string {
	return t.node.Name
}

// FullName returns the dotted path of the leaf.
func (t *T) FullName() string {
	return t.node.FullName()
}

// Seed returns the shuffle seed of the current run.
func (t *T) Seed() uint64 {
	return t.ic.Seed()
}

// Helper is a no-op; it exists so T satisfies testify's tHelper.
func (t *T) Helper() {}

// Errorf records a failure and continues.
func (t *T) Errorf(format string, args ...any) {
	t.failures = append(t.failures, fmt.Sprintf(format, args...))
}

// Error records a failure and continues.
func (t *T) Error(args ...any) {
	t.failures = append(t.failures, strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

// Fail marks the leaf failed without a message.
func (t *T) Fail() {
	t.failures = append(t.failures, "failed")
}

// FailNow stops the leaf as failed.
func (t *T) FailNow() {
	message := "FailNow called"
	if len(t.failures) > 0 {
		message = strings.Join(t.failures, "\n")
	}

	t.failNow = &m.AssertionFailure{Message: message}
	panic(t.failNow)
}

// Fatalf records a failure and stops the leaf.
func (t *T) Fatalf(format string, args ...any) {
	t.Errorf(format, args...)
	t.FailNow()
}

// Fatal records a failure and stops the leaf.
func (t *T) Fatal(args ...any) {
	t.Error(args...)
	t.FailNow()
}

// Assert stops the leaf as failed when cond is false.
func (t *T) Assert(cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(format, args...)
	}
}

// Failed reports whether the leaf has failed so far. After hooks use it to
// inspect the outcome of the body they follow.
func (t *T) Failed() bool {
	return len(t.failures) > 0 || t.failNow != nil || t.aborted
}

// Skip stops the leaf and reports it skipped.
func (t *T) Skip(reason string) {
	panic(skipSignal{reason: reason})
}

// Log appends a line to the leaf's captured output.
func (t *T) Log(args ...any) {
	t.result.AppendOutput(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

// Logf appends a formatted line to the leaf's captured output.
func (t *T) Logf(format string, args ...any) {
	t.result.AppendOutput(fmt.Sprintf(format, args...))
}

// TempDir returns a fresh scratch directory removed when the leaf finishes.
func (t *T) TempDir() string {
	dir, err := t.scratch.CreateTempDir(t.ic.tmpRoot, "zest-*")
	if err != nil {
		t.Fatalf("create scratch dir: %v", err)
	}

	t.tempDirs = append(t.tempDirs, dir)

	return string(dir)
}

func (t *T) cleanup() {
	for _, dir := range t.tempDirs {
		if err := t.scratch.RemoveAll(dir); err != nil {
			slog.Error("Failed to remove scratch dir", "leaf", t.FullName(), "dir", dir, "error", err)
		}
	}

	t.tempDirs = nil
}

func (t *T) resetAttempt() {
	t.failures = nil
	t.failNow = nil
	t.aborted = false
	t.extras = nil
	t.structural = nil
}

// run calls fn and recovers whatever it panics with.
func (t *T) run(fn LeafFunc) (r any, stack string) {
	defer func() {
		if r = recover(); r != nil {
			stack = string(debug.Stack())
		}
	}()

	fn(t)

	return nil, ""
}

// outcome is the classified result of one leaf attempt.
type outcome struct {
	status     m.Status
	failure    *m.Failure
	structural bool
	skipped    bool
	skipReason string
}

// classify turns the value recovered from a leaf body or before hook into an
// outcome. Recovering marks the leaf failed for the after hook.
func (t *T) classify(r any, stack string) outcome {
	if r == nil {
		if t.Failed() {
			return outcome{status: m.Fail, failure: &m.Failure{Message: strings.Join(t.failures, "\n")}}
		}

		return outcome{status: m.Pass}
	}

	if sig, ok := r.(skipSignal); ok {
		return outcome{status: m.Skipped, skipped: true, skipReason: sig.reason}
	}

	t.aborted = true

	if af, ok := r.(*m.AssertionFailure); ok && af == t.failNow {
		return outcome{status: m.Fail, failure: &m.Failure{Message: af.Message, Stack: stack}}
	}

	if err, ok := r.(error); ok {
		if m.IsStructural(err) {
			return outcome{
				status:     m.Error,
				failure:    &m.Failure{Message: err.Error(), Stack: stack},
				structural: true,
			}
		}

		if m.IsAssertion(err) {
			messages := append(append([]string(nil), t.failures...), err.Error())

			return outcome{status: m.Fail, failure: &m.Failure{Message: strings.Join(messages, "\n"), Stack: stack}}
		}
	}

	unexpected := &m.UnexpectedError{Value: r, Stack: stack}

	return outcome{status: m.Error, failure: &m.Failure{Message: unexpected.Error(), Stack: stack}}
}

// runAfter runs the after hook. Anything it fails with is kept apart from the
// leaf's own outcome.
func (t *T) runAfter(fn LeafFunc) {
	mark := len(t.failures)

	r, stack := t.run(fn)
	if _, ok := r.(skipSignal); ok {
		r = nil
	}

	var (
		message    string
		structural bool
	)

	switch {
	case len(t.failures) > mark:
		message = strings.Join(t.failures[mark:], "\n")
	case r == nil:
		return
	case r == any(t.failNow):
		message = t.failNow.Message
	default:
		if err, ok := r.(error); ok && (m.IsAssertion(err) || m.IsStructural(err)) {
			message = err.Error()
			structural = m.IsStructural(err)
		} else {
			message = (&m.UnexpectedError{Value: r, Stack: stack}).Error()
		}
	}

	failure := m.Failure{Message: "after hook: " + message, Stack: stack}
	t.extras = append(t.extras, failure)

	if structural {
		t.structural = &failure
	}
}
