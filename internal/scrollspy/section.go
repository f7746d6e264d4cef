// Package scrollspy keeps the navigation bar in step with the page: it
// tracks which section is in view, scrolls to sections on request and
// publishes the shared navigation state (active section, scroll progress,
// theme) that the nav UI renders from.
//
// Nothing in this package touches a browser directly. Viewport visibility
// and scrolling come in through the Observer and Scroller interfaces, which
// are implemented by the dom package in the browser and by the viewport
// package everywhere else.
package scrollspy

import (
	"errors"
	"fmt"
)

// Section is a named, anchorable region of the page. ID must match the id
// attribute of the anchor element in the page markup.
type Section struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Icon  string `json:"icon,omitempty" yaml:"icon"`
}

// InvalidSectionError reports a section id that is not in the registry.
// It signals a markup/configuration mismatch, not a user-facing condition.
type InvalidSectionError struct {
	ID string
}

func (e *InvalidSectionError) Error() string {
	return fmt.Sprintf("scrollspy: unknown section %q", e.ID)
}

var (
	ErrNoSections       = errors.New("scrollspy: registry needs at least one section")
	ErrEmptySectionID   = errors.New("scrollspy: section id must not be empty")
	ErrDuplicateSection = errors.New("scrollspy: duplicate section id")
)

// Registry is the static, ordered set of sections. It is immutable after
// construction and safe for concurrent reads.
type Registry struct {
	sections []Section
	index    map[string]int
}

// NewRegistry builds a registry in declaration order, which is also the
// tie-break order used by the resolver.
func NewRegistry(sections ...Section) (*Registry, error) {
	if len(sections) == 0 {
		return nil, ErrNoSections
	}

	r := &Registry{
		sections: make([]Section, 0, len(sections)),
		index:    make(map[string]int, len(sections)),
	}
	for _, s := range sections {
		if s.ID == "" {
			return nil, ErrEmptySectionID
		}
		if _, dup := r.index[s.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSection, s.ID)
		}
		if s.Label == "" {
			s.Label = s.ID
		}
		r.index[s.ID] = len(r.sections)
		r.sections = append(r.sections, s)
	}
	return r, nil
}

// MustRegistry is NewRegistry for statically known section lists.
func MustRegistry(sections ...Section) *Registry {
	r, err := NewRegistry(sections...)
	if err != nil {
		panic(err)
	}
	return r
}

// Sections returns a copy of the sections in declaration order.
func (r *Registry) Sections() []Section {
	out := make([]Section, len(r.sections))
	copy(out, r.sections)
	return out
}

// Len returns the number of sections.
func (r *Registry) Len() int { return len(r.sections) }

// Default is the initial active section: the first one declared.
func (r *Registry) Default() string { return r.sections[0].ID }

// Lookup returns the section with the given id or an *InvalidSectionError.
func (r *Registry) Lookup(id string) (Section, error) {
	i, ok := r.index[id]
	if !ok {
		return Section{}, &InvalidSectionError{ID: id}
	}
	return r.sections[i], nil
}

// Contains reports whether id is a registered section.
func (r *Registry) Contains(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Order returns the declaration index of id, or -1 if it is unknown.
func (r *Registry) Order(id string) int {
	i, ok := r.index[id]
	if !ok {
		return -1
	}
	return i
}
