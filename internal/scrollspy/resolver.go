package scrollspy

import "sync"

// Resolver turns the stream of observations into a single active section.
//
// Among intersecting sections the greatest ratio wins; an exact tie goes to
// the section declared first. When nothing intersects the previous value is
// kept. Delivery order of observations is irrelevant: each resolution looks
// at the latest observation of every section.
type Resolver struct {
	registry *Registry
	store    *Store

	mu     sync.Mutex
	latest map[string]Observation
	held   string
}

// NewResolver creates a resolver writing into store.
func NewResolver(reg *Registry, store *Store) *Resolver {
	return &Resolver{
		registry: reg,
		store:    store,
		latest:   make(map[string]Observation, reg.Len()),
	}
}

// Update applies a batch of observations and resolves once. Observations
// for unknown sections are dropped. It returns the resolved section, which
// is the held section while a programmatic scroll owns the state.
func (r *Resolver) Update(obs ...Observation) string {
	r.mu.Lock()
	for _, o := range obs {
		if !r.registry.Contains(o.SectionID) {
			continue
		}
		r.latest[o.SectionID] = o
	}
	if r.held != "" {
		held := r.held
		r.mu.Unlock()
		return held
	}
	id, ok := r.resolveLocked()
	r.mu.Unlock()

	if !ok {
		return r.store.ActiveSection()
	}
	r.store.SetActiveSection(id) //nolint:errcheck // id comes from the registry
	return id
}

// Resolve returns the section the current observations point at, and
// false when nothing intersects. It does not write to the store.
func (r *Resolver) Resolve() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked()
}

// Hold suspends store writes in favour of id until Release. Observations
// keep accumulating while held.
func (r *Resolver) Hold(id string) {
	r.mu.Lock()
	r.held = id
	r.mu.Unlock()
}

// Release ends a hold. The next Update resolves from everything observed
// in the meantime.
func (r *Resolver) Release() {
	r.mu.Lock()
	r.held = ""
	r.mu.Unlock()
}

// Held returns the section currently holding the resolver, if any.
func (r *Resolver) Held() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.held
}

func (r *Resolver) resolveLocked() (string, bool) {
	best := ""
	bestRatio := -1.0
	bestOrder := 0
	for id, o := range r.latest {
		if !o.Intersecting {
			continue
		}
		order := r.registry.Order(id)
		switch {
		case o.Ratio > bestRatio:
		case o.Ratio == bestRatio && order < bestOrder:
		default:
			continue
		}
		best, bestRatio, bestOrder = id, o.Ratio, order
	}
	return best, best != ""
}
