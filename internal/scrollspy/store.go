package scrollspy

import (
	"math"
	"sync"
)

// Field identifies which part of the navigation state changed.
type Field int

const (
	FieldActiveSection Field = iota
	FieldScrollProgress
	FieldTheme
)

func (f Field) String() string {
	switch f {
	case FieldActiveSection:
		return "active_section"
	case FieldScrollProgress:
		return "scroll_progress"
	case FieldTheme:
		return "theme"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of the navigation state.
type Snapshot struct {
	ActiveSection  string  `json:"active_section"`
	ScrollProgress float64 `json:"scroll_progress"`
	DarkMode       bool    `json:"dark_mode"`
}

// Change is delivered to subscribers after a value actually changed.
type Change struct {
	Field Field
	State Snapshot
}

// Store is the single writable copy of the navigation state. The only
// mutators are SetActiveSection, SetScrollProgress and ToggleTheme; every
// other component holds snapshots.
//
// Subscribers run synchronously on the mutating goroutine, after the lock
// has been released, so they may read the store again.
type Store struct {
	registry  *Registry
	precision float64

	mu    sync.Mutex
	state Snapshot
	subs  map[int]func(Change)
	next  int
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithProgressDecimals sets how many decimals of scroll progress count as a
// change. Default is 2.
func WithProgressDecimals(n int) StoreOption {
	return func(s *Store) {
		if n < 0 {
			n = 0
		}
		s.precision = math.Pow(10, float64(n))
	}
}

// WithDarkMode sets the initial theme.
func WithDarkMode(dark bool) StoreOption {
	return func(s *Store) { s.state.DarkMode = dark }
}

// WithInitialSection overrides the registry default as starting section.
// Unknown ids are ignored.
func WithInitialSection(id string) StoreOption {
	return func(s *Store) {
		if s.registry.Contains(id) {
			s.state.ActiveSection = id
		}
	}
}

// NewStore creates a store whose active section starts at reg.Default().
func NewStore(reg *Registry, opts ...StoreOption) *Store {
	s := &Store{
		registry:  reg,
		precision: 100,
		state:     Snapshot{ActiveSection: reg.Default()},
		subs:      make(map[int]func(Change)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveSection returns the current active section id.
func (s *Store) ActiveSection() string {
	return s.Snapshot().ActiveSection
}

// DarkMode returns the current theme flag.
func (s *Store) DarkMode() bool {
	return s.Snapshot().DarkMode
}

// SetActiveSection makes id the active section. It reports whether the
// value changed; unknown ids fail with *InvalidSectionError and leave the
// state untouched.
func (s *Store) SetActiveSection(id string) (bool, error) {
	if !s.registry.Contains(id) {
		return false, &InvalidSectionError{ID: id}
	}

	s.mu.Lock()
	if s.state.ActiveSection == id {
		s.mu.Unlock()
		return false, nil
	}
	s.state.ActiveSection = id
	snap := s.state
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, Change{Field: FieldActiveSection, State: snap})
	return true, nil
}

// SetScrollProgress stores p clamped to [0,1] and rounded to the store's
// precision. It reports whether the rounded value changed.
func (s *Store) SetScrollProgress(p float64) bool {
	p = s.round(clamp01(p))

	s.mu.Lock()
	if s.state.ScrollProgress == p {
		s.mu.Unlock()
		return false
	}
	s.state.ScrollProgress = p
	snap := s.state
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, Change{Field: FieldScrollProgress, State: snap})
	return true
}

// ToggleTheme flips the theme flag and returns the new value.
func (s *Store) ToggleTheme() bool {
	s.mu.Lock()
	s.state.DarkMode = !s.state.DarkMode
	snap := s.state
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, Change{Field: FieldTheme, State: snap})
	return snap.DarkMode
}

// Subscribe registers fn for change notifications. The returned func
// removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) subscribersLocked() []func(Change) {
	if len(s.subs) == 0 {
		return nil
	}
	// Deliver in subscription order.
	out := make([]func(Change), 0, len(s.subs))
	for i := 0; i < s.next; i++ {
		if fn, ok := s.subs[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (s *Store) round(p float64) float64 {
	return math.Round(p*s.precision) / s.precision
}

func notify(subs []func(Change), c Change) {
	for _, fn := range subs {
		fn(c)
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
