package model

import (
	"fmt"
	"time"
)

// Failure describes why a node did not pass.
type Failure struct {
	Message string `yaml:"message"`
	Stack   string `yaml:"stack,omitempty"`
}

// Result is the sealed outcome of one TestNode.
//
// A Result is created when its node begins executing and sealed once the node
// completes. Mutators panic on a sealed Result.
type Result struct {
	Name       string        `yaml:"name"`
	FullName   string        `yaml:"full_name"`
	Kind       Kind          `yaml:"kind"`
	Status     Status        `yaml:"status"`
	Duration   time.Duration `yaml:"duration"`
	Failure    *Failure      `yaml:"failure,omitempty"`
	Extra      []Failure     `yaml:"extra,omitempty"`
	SkipReason string        `yaml:"skip_reason,omitempty"`
	Output     []string      `yaml:"output,omitempty"`
	Attempts   int           `yaml:"attempts,omitempty"`
	Children   []*Result     `yaml:"children,omitempty"`

	sealed bool
}

// NewResult opens a Result for the named node.
func NewResult(name, fullName string, kind Kind) *Result {
	return &Result{
		Name:     name,
		FullName: fullName,
		Kind:     kind,
		Status:   Pass,
	}
}

// Skip finishes the result as Skipped.
func (r *Result) Skip(reason string) {
	r.mustOpen()
	r.Status = Skipped
	r.SkipReason = reason
}

// Finish records the final status and optional failure detail.
func (r *Result) Finish(status Status, failure *Failure) {
	r.mustOpen()
	r.Status = status
	r.Failure = failure
}

// AddExtra records an additional failure that must not replace the status.
func (r *Result) AddExtra(failure Failure) {
	r.mustOpen()
	r.Extra = append(r.Extra, failure)
}

// AddChild appends a child result.
func (r *Result) AddChild(child *Result) {
	r.mustOpen()
	r.Children = append(r.Children, child)
}

// AppendOutput appends one captured log line.
func (r *Result) AppendOutput(line string) {
	r.mustOpen()
	r.Output = append(r.Output, line)
}

// SetDuration records the elapsed time.
func (r *Result) SetDuration(d time.Duration) {
	r.mustOpen()
	r.Duration = d
}

// SetAttempts records how many times a leaf body ran.
func (r *Result) SetAttempts(n int) {
	r.mustOpen()
	r.Attempts = n
}

// Seal freezes the result and its whole subtree.
func (r *Result) Seal() {
	for _, child := range r.Children {
		child.Seal()
	}

	r.sealed = true
}

// Sealed reports whether the result can no longer change.
func (r *Result) Sealed() bool {
	return r.sealed
}

// Failed reports whether this node failed on its own, including failures
// recorded by an after hook.
func (r *Result) Failed() bool {
	return r.Status == Fail || r.Status == Error || len(r.Extra) > 0
}

// AnyFailed reports whether the node or any descendant failed.
func (r *Result) AnyFailed() bool {
	if r.Failed() {
		return true
	}

	for _, child := range r.Children {
		if child.AnyFailed() {
			return true
		}
	}

	return false
}

// Walk visits the result and all descendants depth-first.
func (r *Result) Walk(fn func(*Result)) {
	fn(r)

	for _, child := range r.Children {
		child.Walk(fn)
	}
}

// Find returns the descendant (or self) with the given full name.
func (r *Result) Find(fullName string) *Result {
	var found *Result

	r.Walk(func(res *Result) {
		if found == nil && res.FullName == fullName {
			found = res
		}
	})

	return found
}

func (r *Result) mustOpen() {
	if r.sealed {
		panic(fmt.Sprintf("result %s is sealed", r.FullName))
	}
}

// Counts aggregates leaf outcomes.
type Counts struct {
	Pass    int
	Fail    int
	Error   int
	Skipped int
}

// Total returns the number of counted leaves.
func (c Counts) Total() int {
	return c.Pass + c.Fail + c.Error + c.Skipped
}

// Failed reports whether any leaf failed or errored.
func (c Counts) Failed() bool {
	return c.Fail+c.Error > 0
}

// Add merges two counts.
func (c Counts) Add(other Counts) Counts {
	return Counts{
		Pass:    c.Pass + other.Pass,
		Fail:    c.Fail + other.Fail,
		Error:   c.Error + other.Error,
		Skipped: c.Skipped + other.Skipped,
	}
}

// Tally counts the leaves under r. Suites that failed structurally count as
// one error since their children never ran. Leaves with failures in Extra
// count as errors.
func Tally(r *Result) Counts {
	var c Counts

	r.Walk(func(res *Result) {
		if res.Kind == KindSuite {
			if res.Status == Error && res.Failure != nil && len(res.Children) == 0 {
				c.Error++
			}

			return
		}

		switch {
		case res.Status == Pass && len(res.Extra) > 0:
			c.Error++
		case res.Status == Pass:
			c.Pass++
		case res.Status == Fail:
			c.Fail++
		case res.Status == Error:
			c.Error++
		case res.Status == Skipped:
			c.Skipped++
		}
	})

	return c
}
