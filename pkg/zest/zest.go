// Package zest is the API for writing hierarchical tests.
//
// A root suite is registered with Register, usually from an init function.
// Its function receives a builder on which leaves (It), nested suites
// (Describe) and per-leaf hooks (Before, After) are registered:
//
//	func init() {
//		zest.Register("parser", func(s *zest.S) {
//			s.Before(func(t *zest.T) { ... })
//
//			s.It("parses numbers", func(t *zest.T) {
//				t.Assert(parse("1") == 1, "want 1")
//			})
//
//			s.Describe("errors", func(s *zest.S) {
//				s.It("rejects garbage", func(t *zest.T) {
//					zest.Raises[*SyntaxError](func() error {
//						_, err := parse("?")
//						return err
//					}, zest.MessageContains[*SyntaxError]("unexpected"))
//				})
//			})
//		})
//	}
//
// Suite functions run once to build the tree. Leaves run afterwards, in an
// order shuffled per suite from the run's seed.
package zest

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"

	"zest.dev/pkg/zest/internal/adapter"
	"zest.dev/pkg/zest/internal/domain"
	"zest.dev/pkg/zest/internal/model"
)

type (
	// S is the suite builder.
	S = domain.S
	// T is the handle of a running leaf. It satisfies testify's TestingT.
	T = domain.T
	// Recorder records the calls made through a substituted binding and
	// answers them with configured values.
	Recorder = domain.Mock
	// Call is one recorded invocation.
	Call = domain.Call
	// Option adjusts a suite or leaf when it is registered.
	Option = domain.Option
	// SuiteFunc registers the children of a suite.
	SuiteFunc = domain.SuiteFunc
	// LeafFunc is the body of a leaf or hook.
	LeafFunc = domain.LeafFunc
	// Listener is notified when nodes start and stop.
	Listener = domain.Listener

	// Result is the sealed outcome of a node.
	Result = model.Result
	// Status is the outcome of a node.
	Status = model.Status
	// Counts aggregates leaf outcomes.
	Counts = model.Counts
	// Selection restricts which leaves run.
	Selection = model.Selection

	// StructuralError reports a malformed test definition.
	StructuralError = model.StructuralError
	// AssertionFailure is an expectation that did not hold.
	AssertionFailure = model.AssertionFailure
	// ExpectationError is raised when a trapped block raised nothing.
	ExpectationError = model.ExpectationError
	// UnexpectedError wraps any other panic that escaped a leaf.
	UnexpectedError = model.UnexpectedError
)

// Trapped holds the error caught by Raises or Catch.
type Trapped[E error] = domain.Trapped[E]

// Matcher checks one attribute of a trapped error.
type Matcher[E error] = domain.Matcher[E]

// Node statuses.
const (
	Pass    = model.Pass
	Fail    = model.Fail
	Error   = model.Error
	Skipped = model.Skipped
)

// Node kinds.
const (
	KindSuite = model.KindSuite
	KindLeaf  = model.KindLeaf
)

// Register adds a root suite to the default registry. It panics when the name
// is empty, contains a dot or is already registered.
func Register(name string, fn SuiteFunc, options ...Option) {
	if err := domain.DefaultRegistry.Register(name, fn, options...); err != nil {
		panic(err)
	}
}

// Skip disables a suite or leaf with a reason.
func Skip(reason string) Option {
	return domain.Skip(reason)
}

// Group tags a suite or leaf for group selection.
func Group(names ...string) Option {
	return domain.Group(names...)
}

// Retry runs a failing leaf up to attempts times in total.
func Retry(attempts int) Option {
	return domain.Retry(attempts)
}

// Raises runs block and returns the trapped error of kind E. It fails the
// leaf when block raises nothing or when a matcher does not hold; errors of
// other kinds propagate unchanged. Code after the raising call inside block
// never runs.
func Raises[E error](block func() error, matchers ...Matcher[E]) *Trapped[E] {
	return domain.Raises(block, matchers...)
}

// Catch is like Raises but reports matcher mismatches on the returned value
// instead of failing the leaf.
func Catch[E error](block func() error, matchers ...Matcher[E]) *Trapped[E] {
	return domain.Catch(block, matchers...)
}

// Equals matches when a named attribute of the error equals want.
func Equals[E error, V comparable](name string, get func(E) V, want V) Matcher[E] {
	return domain.Equals(name, get, want)
}

// Contains matches when a named attribute of the error contains substr.
func Contains[E error, V any](name string, get func(E) V, substr string) Matcher[E] {
	return domain.Contains(name, get, substr)
}

// MessageContains matches when the error message contains substr.
func MessageContains[E error](substr string) Matcher[E] {
	return domain.MessageContains[E](substr)
}

// MessageEquals matches when the error message equals want.
func MessageEquals[E error](want string) Matcher[E] {
	return domain.MessageEquals[E](want)
}

// Mock substitutes the func binding target until the running leaf returns,
// after hook included.
func Mock[F any](t *T, target *F) *Recorder {
	return domain.MockLeaf(t, target)
}

// WithMock substitutes target while fn runs.
func WithMock[F any](t *T, target *F, fn func(*Recorder)) *Recorder {
	return domain.WithMock(t, target, fn)
}

// StackMock substitutes target while the suite runs. Recorded calls are reset
// before each direct child.
func StackMock[F any](s *S, target *F) *Recorder {
	return domain.StackMock(s, target)
}

// Substitute replaces target outside of any run until restore is called.
func Substitute[F any](target *F) (recorder *Recorder, restore func()) {
	return domain.Substitute(target)
}

// RunOption configures Run, RunSuite and Test.
type RunOption func(*runConfig)

type runConfig struct {
	seed      uint64
	seedSet   bool
	shuffle   bool
	selection Selection
	tmpRoot   string
	listener  Listener
}

// WithSeed fixes the shuffle seed.
func WithSeed(seed uint64) RunOption {
	return func(c *runConfig) {
		c.seed = seed
		c.seedSet = true
	}
}

// WithoutShuffle runs children in registration order.
func WithoutShuffle() RunOption {
	return func(c *runConfig) {
		c.shuffle = false
	}
}

// WithSelection restricts which leaves run.
func WithSelection(selection Selection) RunOption {
	return func(c *runConfig) {
		c.selection = selection
	}
}

// WithTmpRoot sets the directory under which T.TempDir creates directories.
func WithTmpRoot(dir string) RunOption {
	return func(c *runConfig) {
		c.tmpRoot = dir
	}
}

// WithListener receives start and stop notifications.
func WithListener(listener Listener) RunOption {
	return func(c *runConfig) {
		c.listener = listener
	}
}

func newRunConfig(options []RunOption) runConfig {
	cfg := runConfig{shuffle: true}
	for _, option := range options {
		option(&cfg)
	}

	if !cfg.seedSet {
		cfg.seed = rand.Uint64()
	}

	return cfg
}

func (c runConfig) execute(ctx context.Context, root domain.Root) *Result {
	ic := domain.NewInvocationContext(
		domain.WithSeed(c.seed),
		domain.WithShuffle(c.shuffle),
		domain.WithSelection(c.selection),
		domain.WithTmpRoot(model.Path(c.tmpRoot)),
	)

	engine := domain.NewEngine(adapter.NewLocalFSAdapter(), c.listener)

	return engine.Execute(ctx, ic, engine.Discover(ic, root))
}

// RunSuite builds and runs one root suite without registering it. It returns
// nil when the selection excludes every leaf.
func RunSuite(ctx context.Context, name string, fn SuiteFunc, options ...RunOption) *Result {
	return newRunConfig(options).execute(ctx, domain.Root{Name: name, Fn: fn})
}

// Tally counts the leaf outcomes under res.
func Tally(res *Result) Counts {
	return model.Tally(res)
}

// Run runs every registered root suite in registration order.
func Run(ctx context.Context, options ...RunOption) []*Result {
	cfg := newRunConfig(options)

	var results []*Result

	for _, root := range domain.DefaultRegistry.Roots() {
		if res := cfg.execute(ctx, root); res != nil {
			results = append(results, res)
		}
	}

	return results
}

// Test runs a suite from a Go test and reports every failed node on tb.
func Test(tb testing.TB, name string, fn SuiteFunc, options ...RunOption) *Result {
	tb.Helper()

	cfg := newRunConfig(options)

	res := cfg.execute(context.Background(), domain.Root{Name: name, Fn: fn})
	if res == nil {
		tb.Logf("zest: nothing selected in %s", name)
		return nil
	}

	res.Walk(func(node *Result) {
		if !node.Failed() || (node.Kind == model.KindSuite && node.Failure == nil) {
			return
		}

		tb.Errorf("%s %s: %s", node.Status, node.FullName, describe(node))
	})

	if res.AnyFailed() {
		tb.Logf("zest: rerun with seed %d", cfg.seed)
	}

	return res
}

func describe(node *Result) string {
	var messages []string
	if node.Failure != nil {
		messages = append(messages, node.Failure.Message)
	}

	for _, extra := range node.Extra {
		messages = append(messages, extra.Message)
	}

	return strings.Join(messages, "; ")
}
