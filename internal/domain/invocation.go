package domain

import (
	"strings"

	m "zest.dev/pkg/zest/internal/model"
)

// Mode tells nested invocations whether the tree is being built or run.
type Mode int

const (
	// ModeDiscover is active while suite functions register their children.
	ModeDiscover Mode = iota
	// ModeExecute is active while leaves run.
	ModeExecute
)

func (md Mode) String() string {
	if md == ModeExecute {
		return "execute"
	}

	return "discover"
}

// InvocationContext is the state of one top-level run. It is shared by
// reference with every nested scope of that run and must not be used by two
// runs at once.
type InvocationContext struct {
	mode      Mode
	seed      uint64
	shuffle   bool
	selection m.Selection
	tmpRoot   m.Path
	path      []string
	spies     []*binding
}

// ContextOption configures an InvocationContext.
type ContextOption func(*InvocationContext)

// WithSeed sets the shuffle seed.
func WithSeed(seed uint64) ContextOption {
	return func(ic *InvocationContext) {
		ic.seed = seed
	}
}

// WithShuffle enables or disables sibling shuffling.
func WithShuffle(enabled bool) ContextOption {
	return func(ic *InvocationContext) {
		ic.shuffle = enabled
	}
}

// WithSelection restricts which leaves execute.
func WithSelection(selection m.Selection) ContextOption {
	return func(ic *InvocationContext) {
		ic.selection = selection
	}
}

// WithTmpRoot sets the directory under which per-leaf scratch dirs are made.
func WithTmpRoot(root m.Path) ContextOption {
	return func(ic *InvocationContext) {
		ic.tmpRoot = root
	}
}

// NewInvocationContext creates the context for one top-level run. Shuffling
// is on by default.
func NewInvocationContext(options ...ContextOption) *InvocationContext {
	ic := &InvocationContext{
		mode:    ModeDiscover,
		shuffle: true,
	}

	for _, option := range options {
		option(ic)
	}

	return ic
}

// Mode returns the current execution mode.
func (ic *InvocationContext) Mode() Mode {
	return ic.mode
}

func (ic *InvocationContext) setMode(md Mode) {
	ic.mode = md
}

// Seed returns the shuffle seed of the run.
func (ic *InvocationContext) Seed() uint64 {
	return ic.seed
}

// Shuffle reports whether sibling order is permuted.
func (ic *InvocationContext) Shuffle() bool {
	return ic.shuffle
}

// Selection returns the selection of the run.
func (ic *InvocationContext) Selection() m.Selection {
	return ic.selection
}

// EnterScope descends into the named child node.
func (ic *InvocationContext) EnterScope(name string) {
	ic.path = append(ic.path, name)
}

// LeaveScope returns to the parent node.
func (ic *InvocationContext) LeaveScope() {
	if len(ic.path) > 0 {
		ic.path = ic.path[:len(ic.path)-1]
	}
}

// Path returns the dotted full name of the current scope.
func (ic *InvocationContext) Path() string {
	return strings.Join(ic.path, ".")
}

// depth returns how many scopes are currently entered.
func (ic *InvocationContext) depth() int {
	return len(ic.path)
}

func (ic *InvocationContext) pushSpy(b *binding) {
	ic.spies = append(ic.spies, b)
}

// spyMark returns a position on the spy stack to unwind to later.
func (ic *InvocationContext) spyMark() int {
	return len(ic.spies)
}

// restoreSpies restores every binding installed after mark, newest first.
func (ic *InvocationContext) restoreSpies(mark int) {
	for len(ic.spies) > mark {
		last := ic.spies[len(ic.spies)-1]
		ic.spies = ic.spies[:len(ic.spies)-1]
		last.restore()
	}
}

// activeSpies returns how many substitutions are currently installed.
func (ic *InvocationContext) activeSpies() int {
	return len(ic.spies)
}
