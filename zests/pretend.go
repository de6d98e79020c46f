// Package zests holds zest's own test suites. They double as examples of the
// API and run with `zest run`.
package zests

import "errors"

// ErrNotImplemented is returned by the unmocked seams below.
var ErrNotImplemented = errors.New("not implemented")

// NotCallable is a binding that cannot be spied on.
var NotCallable = 1

// Foo is a seam standing in for a unit under test. Calling it unmocked fails.
var Foo = func(arg1 string, rest ...string) (int, error) {
	return 0, ErrNotImplemented
}

// Bar is a seam without an error result; configured errors panic through it.
var Bar = func(n int) int {
	panic(ErrNotImplemented)
}

// Foobar calls Foo once.
func Foobar() error {
	_, err := Foo("foobar")
	return err
}

// Store is a collaborator injected through a struct field.
type Store struct {
	Load func(key string) ([]byte, error)
}

// Lookup reads key from the store.
func (s *Store) Lookup(key string) (string, error) {
	data, err := s.Load(key)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
