// Package model defines the data structures shared by the zest engine, its
// reporters and the result store.
package model

import "fmt"

// Status is the outcome of a test node.
type Status int

const (
	// Pass indicates the node completed without failures.
	Pass Status = iota
	// Fail indicates an expectation did not hold.
	Fail
	// Error indicates an unexpected panic or a structural problem.
	Error
	// Skipped indicates the node was marked skip or was not selected.
	Skipped
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Error:
		return "error"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pass":
		*s = Pass
	case "fail":
		*s = Fail
	case "error":
		*s = Error
	case "skipped":
		*s = Skipped
	default:
		return fmt.Errorf("unknown status %q", text)
	}

	return nil
}

// Kind distinguishes grouping nodes from executable ones.
type Kind int

const (
	// KindSuite is a node with children.
	KindSuite Kind = iota
	// KindLeaf is an executable node without children.
	KindLeaf
)

func (k Kind) String() string {
	if k == KindLeaf {
		return "leaf"
	}

	return "suite"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "suite":
		*k = KindSuite
	case "leaf":
		*k = KindLeaf
	default:
		return fmt.Errorf("unknown kind %q", text)
	}

	return nil
}
