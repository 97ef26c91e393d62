// Package patterns holds the forbidden-content matchers applied by the
// content inspector. A Set is built once at startup and never mutated, so
// it is read concurrently by every request without locking.
package patterns

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DefaultScriptTag matches an opening script tag, case-insensitively and
// tolerant of whitespace and attributes.
const DefaultScriptTag = `(?i)<\s*script\b[^>]*>`

// Set is an ordered list of compiled matchers.
type Set struct {
	res []*regexp.Regexp
}

// Default returns the compiled-in policy.
func Default() *Set {
	return &Set{res: []*regexp.Regexp{regexp.MustCompile(DefaultScriptTag)}}
}

// Compile builds a Set from expressions, keeping their order.
func Compile(exprs []string) (*Set, error) {
	if len(exprs) == 0 {
		return nil, errors.New("pattern list is empty")
	}
	s := &Set{res: make([]*regexp.Regexp, 0, len(exprs))}
	for i, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			return nil, fmt.Errorf("pattern %d %q: %w", i, e, err)
		}
		s.res = append(s.res, re)
	}
	return s, nil
}

type policyFile struct {
	Patterns []string `yaml:"patterns"`
}

// LoadFile reads a YAML policy of the form:
//
//	patterns:
//	  - '(?i)<\s*script\b[^>]*>'
//	  - '(?i)javascript:'
func LoadFile(path string) (*Set, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pattern policy: %w", err)
	}
	var pf policyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parsing pattern policy %s: %w", path, err)
	}
	s, err := Compile(pf.Patterns)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern policy %s: %w", path, err)
	}
	return s, nil
}

// MatchString reports whether any pattern matches s.
func (s *Set) MatchString(v string) bool {
	for _, re := range s.res {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

// Match is MatchString for byte slices.
func (s *Set) Match(b []byte) bool {
	for _, re := range s.res {
		if re.Match(b) {
			return true
		}
	}
	return false
}

// Len returns the number of patterns.
func (s *Set) Len() int { return len(s.res) }
