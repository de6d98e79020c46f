package domain

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	m "zest.dev/pkg/zest/internal/model"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Call is one recorded invocation of a spied binding.
type Call struct {
	Args []any
}

// Mock records every call made through a substituted binding and answers
// with configured values. The original callable is never invoked unless a
// hook is configured.
type Mock struct {
	name   string
	fnType reflect.Type

	mu            sync.Mutex
	calls         []Call
	returns       []reflect.Value
	serialReturns [][]reflect.Value
	raise         error
	serialRaises  []error
	serialRaising bool
	hook          reflect.Value
}

func newMock(name string, fnType reflect.Type) *Mock {
	return &Mock{name: name, fnType: fnType}
}

// Name identifies the spied binding in messages.
func (mk *Mock) Name() string {
	return mk.name
}

// Returns configures the values returned by every call. Values are matched to
// the binding's results in order; a trailing error result may be omitted.
func (mk *Mock) Returns(values ...any) *Mock {
	converted := mk.convertResults(values)

	mk.mu.Lock()
	defer mk.mu.Unlock()

	mk.mustNotRaise("Returns")
	mk.mustNotHook("Returns")
	mk.returns = converted

	return mk
}

// ReturnsSerially configures one result set per call, in order. Calling the
// binding more often than there are sets fails the leaf.
func (mk *Mock) ReturnsSerially(sets ...[]any) *Mock {
	converted := make([][]reflect.Value, 0, len(sets))
	for _, set := range sets {
		converted = append(converted, mk.convertResults(set))
	}

	mk.mu.Lock()
	defer mk.mu.Unlock()

	mk.mustNotRaise("ReturnsSerially")
	mk.mustNotHook("ReturnsSerially")
	mk.serialReturns = converted

	return mk
}

// Raises configures the error raised by every call. When the binding returns
// an error as its last result the error is returned there, otherwise the call
// panics with it.
func (mk *Mock) Raises(err error) *Mock {
	mk.mu.Lock()
	defer mk.mu.Unlock()

	mk.mustNotReturn("Raises")
	mk.mustNotHook("Raises")
	mk.raise = err

	return mk
}

// RaisesSerially configures one error per call, in order.
func (mk *Mock) RaisesSerially(errs ...error) *Mock {
	mk.mu.Lock()
	defer mk.mu.Unlock()

	mk.mustNotReturn("RaisesSerially")
	mk.mustNotHook("RaisesSerially")
	mk.serialRaises = append([]error(nil), errs...)
	mk.serialRaising = true

	return mk
}

// Hook forwards every call to fn, which must have the binding's type. It
// cannot be combined with configured returns or raises.
func (mk *Mock) Hook(fn any) *Mock {
	value := reflect.ValueOf(fn)
	if !value.IsValid() || value.Type() != mk.fnType {
		panic(&m.StructuralError{
			Path:    mk.name,
			Message: fmt.Sprintf("hook of type %T does not match %s", fn, mk.fnType),
		})
	}

	mk.mu.Lock()
	defer mk.mu.Unlock()

	mk.mustNotReturn("Hook")
	mk.mustNotRaise("Hook")
	mk.hook = value

	return mk
}

// Reset forgets the recorded calls but keeps the configuration.
func (mk *Mock) Reset() {
	mk.mu.Lock()
	defer mk.mu.Unlock()

	mk.calls = nil
}

// Calls returns a copy of the recorded calls in invocation order.
func (mk *Mock) Calls() []Call {
	mk.mu.Lock()
	defer mk.mu.Unlock()

	return append([]Call(nil), mk.calls...)
}

// CallCount returns how many times the binding was called.
func (mk *Mock) CallCount() int {
	mk.mu.Lock()
	defer mk.mu.Unlock()

	return len(mk.calls)
}

// Called reports whether the binding was called at least once.
func (mk *Mock) Called() bool {
	return mk.CallCount() > 0
}

// CalledOnce reports whether the binding was called exactly once.
func (mk *Mock) CalledOnce() bool {
	return mk.CallCount() == 1
}

// NotCalled reports whether the binding was never called.
func (mk *Mock) NotCalled() bool {
	return mk.CallCount() == 0
}

// CalledOnceWith reports whether the binding was called exactly once and
// with exactly these arguments. Variadic arguments are compared expanded.
func (mk *Mock) CalledOnceWith(args ...any) bool {
	mk.mu.Lock()
	defer mk.mu.Unlock()

	if len(mk.calls) != 1 {
		return false
	}

	got := mk.calls[0].Args
	if len(got) != len(args) {
		return false
	}

	for i := range got {
		if !reflect.DeepEqual(got[i], args[i]) {
			return false
		}
	}

	return true
}

func (mk *Mock) mustNotRaise(op string) {
	if mk.raise != nil || mk.serialRaising {
		panic(&m.StructuralError{
			Path:    mk.name,
			Message: op + " conflicts with a configured raise",
		})
	}
}

func (mk *Mock) mustNotReturn(op string) {
	if mk.returns != nil || mk.serialReturns != nil {
		panic(&m.StructuralError{
			Path:    mk.name,
			Message: op + " conflicts with a configured return",
		})
	}
}

func (mk *Mock) mustNotHook(op string) {
	if mk.hook.IsValid() {
		panic(&m.StructuralError{
			Path:    mk.name,
			Message: op + " conflicts with a configured hook",
		})
	}
}

func (mk *Mock) convertResults(values []any) []reflect.Value {
	numOut := mk.fnType.NumOut()

	if len(values) == numOut-1 && numOut > 0 && mk.fnType.Out(numOut-1) == errorType {
		values = append(values, nil)
	}

	if len(values) != numOut {
		panic(&m.StructuralError{
			Path:    mk.name,
			Message: fmt.Sprintf("%d return values configured for %s", len(values), mk.fnType),
		})
	}

	out := make([]reflect.Value, numOut)

	for i, value := range values {
		want := mk.fnType.Out(i)
		if value == nil {
			out[i] = reflect.Zero(want)
			continue
		}

		v := reflect.ValueOf(value)
		if !v.Type().AssignableTo(want) {
			if !v.Type().ConvertibleTo(want) {
				panic(&m.StructuralError{
					Path:    mk.name,
					Message: fmt.Sprintf("return value %d: %T is not assignable to %s", i, value, want),
				})
			}

			v = v.Convert(want)
		}

		out[i] = v
	}

	return out
}

func (mk *Mock) invoke(args []reflect.Value) []reflect.Value {
	mk.mu.Lock()
	mk.calls = append(mk.calls, Call{Args: mk.expand(args)})
	hook := mk.hook
	mk.mu.Unlock()

	if hook.IsValid() {
		if mk.fnType.IsVariadic() {
			return hook.CallSlice(args)
		}

		return hook.Call(args)
	}

	mk.mu.Lock()
	defer mk.mu.Unlock()

	if mk.serialRaising {
		if len(mk.serialRaises) == 0 {
			panic(&m.AssertionFailure{
				Message: fmt.Sprintf("%s was called more times than RaisesSerially had errors", mk.name),
			})
		}

		err := mk.serialRaises[0]
		mk.serialRaises = mk.serialRaises[1:]

		return mk.raiseResults(err)
	}

	if mk.raise != nil {
		return mk.raiseResults(mk.raise)
	}

	if mk.serialReturns != nil {
		if len(mk.serialReturns) == 0 {
			panic(&m.AssertionFailure{
				Message: fmt.Sprintf("%s was called more times than ReturnsSerially had values", mk.name),
			})
		}

		out := mk.serialReturns[0]
		mk.serialReturns = mk.serialReturns[1:]

		return out
	}

	if mk.returns != nil {
		return mk.returns
	}

	return mk.zeroResults()
}

func (mk *Mock) expand(args []reflect.Value) []any {
	out := make([]any, 0, len(args))

	for i, arg := range args {
		if mk.fnType.IsVariadic() && i == len(args)-1 {
			for j := 0; j < arg.Len(); j++ {
				out = append(out, arg.Index(j).Interface())
			}

			break
		}

		out = append(out, arg.Interface())
	}

	return out
}

func (mk *Mock) zeroResults() []reflect.Value {
	out := make([]reflect.Value, mk.fnType.NumOut())
	for i := range out {
		out[i] = reflect.Zero(mk.fnType.Out(i))
	}

	return out
}

func (mk *Mock) raiseResults(err error) []reflect.Value {
	numOut := mk.fnType.NumOut()
	if numOut == 0 || mk.fnType.Out(numOut-1) != errorType {
		panic(err)
	}

	out := mk.zeroResults()
	out[numOut-1] = reflect.ValueOf(&err).Elem()

	return out
}

// binding is one installed substitution of a func-typed seam.
type binding struct {
	key      uintptr
	owner    string
	target   reflect.Value
	original reflect.Value
	restored bool
}

func (b *binding) restore() {
	if b.restored {
		return
	}

	b.target.Set(b.original)
	b.restored = true

	activeBindings.release(b.key)
	slog.Debug("spy restored", "binding", b.owner)
}

// bindingRegistry enforces a single writer per binding across every run in
// the process.
type bindingRegistry struct {
	mu     sync.Mutex
	owners map[uintptr]string
}

var activeBindings = &bindingRegistry{owners: map[uintptr]string{}}

func (r *bindingRegistry) acquire(key uintptr, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.owners[key]; ok {
		return &m.StructuralError{
			Path:    owner,
			Message: fmt.Sprintf("binding is already spied by %s", current),
		}
	}

	r.owners[key] = owner

	return nil
}

func (r *bindingRegistry) release(key uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.owners, key)
}

// seamMock validates the target and creates its Mock without installing it.
func seamMock[F any](target *F, owner string) *Mock {
	if target == nil {
		panic(&m.StructuralError{Path: owner, Message: "cannot spy on a nil binding"})
	}

	fnType := reflect.TypeOf(target).Elem()
	if fnType.Kind() != reflect.Func {
		panic(&m.StructuralError{
			Path:    owner,
			Message: fmt.Sprintf("unmockable binding of type %s (must be a func)", fnType),
		})
	}

	return newMock(owner+":"+fnType.String(), fnType)
}

// bind installs mk over target. The returned binding restores the original.
func bind[F any](target *F, mk *Mock, owner string) (*binding, error) {
	value := reflect.ValueOf(target).Elem()
	key := reflect.ValueOf(target).Pointer()

	if err := activeBindings.acquire(key, owner); err != nil {
		return nil, err
	}

	b := &binding{
		key:      key,
		owner:    owner,
		target:   value,
		original: reflect.ValueOf(*target),
	}

	value.Set(reflect.MakeFunc(mk.fnType, mk.invoke))
	slog.Debug("spy installed", "binding", owner, "type", mk.fnType.String())

	return b, nil
}

// install creates a Mock for target and pushes it on the context's spy stack.
func install[F any](ic *InvocationContext, target *F) *Mock {
	owner := ic.Path()
	mk := seamMock(target, owner)

	b, err := bind(target, mk, owner)
	if err != nil {
		panic(err)
	}

	ic.pushSpy(b)

	return mk
}

// MockLeaf substitutes target until the running leaf (hooks included) returns.
func MockLeaf[F any](t *T, target *F) *Mock {
	return install(t.ic, target)
}

// WithMock substitutes target for the duration of fn and restores it on every
// exit path. The returned Mock can be inspected after the scope ended.
func WithMock[F any](t *T, target *F, fn func(*Mock)) *Mock {
	mark := t.ic.spyMark()
	defer t.ic.restoreSpies(mark)

	mk := install(t.ic, target)
	fn(mk)

	return mk
}

// StackMock registers a substitution that is installed while the suite
// executes and whose calls are reset before each direct child.
func StackMock[F any](s *S, target *F) *Mock {
	s.mustRegister("StackMock")

	owner := s.node.FullName()
	mk := seamMock(target, owner)

	s.node.stack = append(s.node.stack, &stackSpy{
		mock: mk,
		bind: func() (*binding, error) {
			return bind(target, mk, owner)
		},
	})

	return mk
}

// Substitute installs a substitution outside of any run. The caller must call
// the returned restore function, typically with defer.
func Substitute[F any](target *F) (*Mock, func()) {
	mk := seamMock(target, "substitute")

	b, err := bind(target, mk, "substitute")
	if err != nil {
		panic(err)
	}

	return mk, b.restore
}

type stackSpy struct {
	mock *Mock
	bind func() (*binding, error)
}
