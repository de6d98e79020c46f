package domain

import (
	"strings"

	m "zest.dev/pkg/zest/internal/model"
)

// LeafFunc is the body of a leaf test or a hook.
type LeafFunc func(t *T)

// SuiteFunc registers the children and hooks of a suite on its builder.
type SuiteFunc func(s *S)

// TestNode is one suite or leaf of the test tree. Ownership flows from the
// root to the children; Parent is a back reference only.
type TestNode struct {
	Name       string
	Kind       m.Kind
	Parent     *TestNode
	Children   []*TestNode
	Groups     []string
	Skip       bool
	SkipReason string
	Retries    int
	BuildErr   error

	body   LeafFunc
	suite  SuiteFunc
	before LeafFunc
	after  LeafFunc
	stack  []*stackSpy
	index  map[string]*TestNode
}

// Option adjusts a node when it is registered.
type Option func(*TestNode)

// Skip marks the node disabled with a reason.
func Skip(reason string) Option {
	return func(n *TestNode) {
		n.Skip = true
		n.SkipReason = reason
	}
}

// Group tags the node for group based selection.
func Group(names ...string) Option {
	return func(n *TestNode) {
		n.Groups = append(n.Groups, names...)
	}
}

// Retry lets a failing leaf body run up to attempts times in total.
func Retry(attempts int) Option {
	return func(n *TestNode) {
		if attempts > 1 {
			n.Retries = attempts - 1
		}
	}
}

func newNode(name string, kind m.Kind, parent *TestNode, options ...Option) *TestNode {
	n := &TestNode{
		Name:   name,
		Kind:   kind,
		Parent: parent,
	}

	for _, option := range options {
		option(n)
	}

	return n
}

// FullName returns the dotted path from the root to this node.
func (n *TestNode) FullName() string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent {
		parts = append(parts, cur.Name)
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}

	return strings.Join(parts, ".")
}

// EffectiveGroups returns the groups of the node and all its ancestors.
func (n *TestNode) EffectiveGroups() []string {
	var groups []string
	for cur := n; cur != nil; cur = cur.Parent {
		groups = append(groups, cur.Groups...)
	}

	return groups
}

// Child returns the direct child with the given name.
func (n *TestNode) Child(name string) *TestNode {
	return n.index[name]
}

// Find returns the node (self or descendant) with the given full name.
func (n *TestNode) Find(fullName string) *TestNode {
	if n.FullName() == fullName {
		return n
	}

	for _, child := range n.Children {
		if found := child.Find(fullName); found != nil {
			return found
		}
	}

	return nil
}

// Leaves returns every leaf under the node in registration order.
func (n *TestNode) Leaves() []*TestNode {
	if n.Kind == m.KindLeaf {
		return []*TestNode{n}
	}

	var leaves []*TestNode
	for _, child := range n.Children {
		leaves = append(leaves, child.Leaves()...)
	}

	return leaves
}

// HasBefore reports whether the suite registered a before hook.
func (n *TestNode) HasBefore() bool {
	return n.before != nil
}

// HasAfter reports whether the suite registered an after hook.
func (n *TestNode) HasAfter() bool {
	return n.after != nil
}

func (n *TestNode) addChild(child *TestNode) {
	if n.index == nil {
		n.index = map[string]*TestNode{}
	}

	n.index[child.Name] = child
	n.Children = append(n.Children, child)
}
