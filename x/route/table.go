// Package route classifies request paths into access classes
package route

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Class is the access class of a request path.
type Class int

const (
	// Protected requires a valid identity. It is the default: any path not
	// explicitly enumerated below classifies Protected.
	Protected Class = iota
	// Public is reachable by anyone. The gate must not touch the credential.
	Public
	// AuthFlow covers the login/bootstrap surface, reachable unauthenticated.
	AuthFlow
)

func (c Class) String() string {
	switch c {
	case Public:
		return "Public"
	case AuthFlow:
		return "AuthFlow"
	case Protected:
		return "Protected"
	default:
		return "Error"
	}
}

type entry struct {
	prefix string
	class  Class
}

// Table is an immutable prefix table. Construct once at startup; Classify is
// pure and safe for concurrent use.
type Table struct {
	entries []entry
}

// NewTable builds a classification table from the enumerated public and
// authflow prefixes. A prefix appearing twice, in one list or across both, is
// a configuration error: ambiguity is rejected at startup, never resolved at
// request time.
func NewTable(public []string, authflow []string) (*Table, error) {
	entries := make([]entry, 0, len(public)+len(authflow))
	seen := []string{}

	add := func(prefixes []string, class Class) error {
		for _, p := range prefixes {
			p = normalize(p)
			if slices.Contains(seen, p) {
				return fmt.Errorf("duplicate route prefix: %s", p)
			}
			seen = append(seen, p)
			entries = append(entries, entry{prefix: p, class: class})
		}
		return nil
	}

	if err := add(public, Public); err != nil {
		return nil, err
	}
	if err := add(authflow, AuthFlow); err != nil {
		return nil, err
	}

	// longest prefix first, so the first match wins
	slices.SortFunc(entries, func(a, b entry) int {
		return len(b.prefix) - len(a.prefix)
	})

	return &Table{entries: entries}, nil
}

// Classify maps a path to its access class. Total: every input maps to
// exactly one class, unmatched paths to Protected.
func (t *Table) Classify(path string) Class {
	path = normalize(path)
	for _, e := range t.entries {
		if matches(path, e.prefix) {
			return e.class
		}
	}
	return Protected
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// matches reports whether prefix covers path on segment boundaries:
// /auth covers /auth and /auth/login but not /authx.
func matches(path, prefix string) bool {
	if prefix == "/" {
		return path == "/"
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
