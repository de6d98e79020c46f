package model

import "strings"

const (
	// AllowAll allows every test to run.
	AllowAll = "__all__"
	// AllowFailed expands to the tests that failed in the previous stored run.
	AllowFailed = "__failed__"
)

// Selection restricts which leaves execute. The zero value selects everything.
type Selection struct {
	// Match is a substring that must appear in the full name.
	Match string
	// Exclude is a substring that must not appear in the full name.
	Exclude string
	// Groups admits leaves tagged (directly or through an ancestor) with any of these.
	Groups []string
	// ExcludeGroups rejects leaves tagged with any of these.
	ExcludeGroups []string
	// Allow lists full names allowed to run. A trailing dot selects a subtree.
	Allow []string
	// BypassSkip lists full names whose skip marker is ignored.
	BypassSkip []string
}

// Includes reports whether a leaf with the given full name and effective
// groups is selected.
func (s Selection) Includes(fullName string, groups []string) bool {
	if s.Match != "" && !strings.Contains(fullName, s.Match) {
		return false
	}

	if s.Exclude != "" && strings.Contains(fullName, s.Exclude) {
		return false
	}

	if len(s.Groups) > 0 && !intersects(s.Groups, groups) {
		return false
	}

	if intersects(s.ExcludeGroups, groups) {
		return false
	}

	return s.allowed(fullName)
}

// Bypass reports whether the skip marker of fullName should be ignored.
func (s Selection) Bypass(fullName string) bool {
	for _, name := range s.BypassSkip {
		if name == fullName {
			return true
		}
	}

	return false
}

// IsUnlimited reports whether the selection admits everything.
func (s Selection) IsUnlimited() bool {
	return s.Match == "" && s.Exclude == "" &&
		len(s.Groups) == 0 && len(s.ExcludeGroups) == 0 &&
		s.allowsAll()
}

func (s Selection) allowsAll() bool {
	if len(s.Allow) == 0 {
		return true
	}

	for _, name := range s.Allow {
		if name == AllowAll {
			return true
		}
	}

	return false
}

func (s Selection) allowed(fullName string) bool {
	if s.allowsAll() {
		return true
	}

	for _, name := range s.Allow {
		if name == "" || name == AllowFailed {
			continue
		}

		if strings.HasSuffix(name, ".") {
			if fullName == strings.TrimSuffix(name, ".") || strings.HasPrefix(fullName, name) {
				return true
			}

			continue
		}

		if fullName == name || strings.HasPrefix(fullName, name+".") {
			return true
		}
	}

	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}

	return false
}
