package model

import "time"

// Path represents a file system path.
type Path string

// Run is the stored record of one root suite execution.
type Run struct {
	ID       string    `yaml:"id"`
	Seed     uint64    `yaml:"seed"`
	Shuffled bool      `yaml:"shuffled"`
	Started  time.Time `yaml:"started"`
	Root     *Result   `yaml:"root"`
}

// FailedNames returns the full names of the failed leaves in the run.
func (r Run) FailedNames() []string {
	if r.Root == nil {
		return nil
	}

	var names []string

	r.Root.Walk(func(res *Result) {
		if res.Kind == KindLeaf && res.Failed() {
			names = append(names, res.FullName)
		}
	})

	return names
}
