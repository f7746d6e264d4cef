package scrollspy

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Mode selects how often an observation fires.
type Mode int

const (
	// Continuous fires on every threshold crossing for as long as the
	// subscription lives. Nav highlighting needs this.
	Continuous Mode = iota
	// Once fires on the first intersection and then detaches. Used for
	// one-shot entrance animations.
	Once
)

func (m Mode) String() string {
	switch m {
	case Continuous:
		return "continuous"
	case Once:
		return "once"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	ErrAnchorNotFound   = errors.New("scrollspy: no anchor element for section")
	ErrInvalidThreshold = errors.New("scrollspy: threshold must be in (0,1]")
)

// Observation is one visibility report for a section anchor.
type Observation struct {
	SectionID    string
	Intersecting bool
	// Ratio is the visible fraction of the anchor's area, in [0,1].
	Ratio float64
}

// ObserveOptions configures a single registration.
type ObserveOptions struct {
	Thresholds []float64
	Mode       Mode
}

// DefaultThresholds reports every tenth of visibility, which is fine enough
// for max-ratio resolution without flooding the resolver.
var DefaultThresholds = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

// Validate checks that every threshold lies in (0,1].
func (o ObserveOptions) Validate() error {
	if len(o.Thresholds) == 0 {
		return fmt.Errorf("%w: no thresholds given", ErrInvalidThreshold)
	}
	for _, t := range o.Thresholds {
		if t <= 0 || t > 1 {
			return fmt.Errorf("%w: got %v", ErrInvalidThreshold, t)
		}
	}
	return nil
}

// Subscription is the teardown handle of one Observe call.
type Subscription interface {
	Unsubscribe()
}

// Observer reports visibility changes of section anchors. Implementations
// must deliver an initial observation soon after Observe returns and must
// return ErrAnchorNotFound (wrapped) when the anchor does not exist.
type Observer interface {
	Observe(sectionID string, opts ObserveOptions, onChange func(Observation)) (Subscription, error)
}

// Watcher registers one continuous observation per section and feeds the
// results to a Resolver.
type Watcher struct {
	registry *Registry
	observer Observer
	resolver *Resolver
	opts     ObserveOptions
	strict   bool
	logger   *zap.Logger

	mu   sync.Mutex
	subs []Subscription
}

// WatcherOption customizes a Watcher.
type WatcherOption func(*Watcher)

// WithThresholds overrides DefaultThresholds.
func WithThresholds(th ...float64) WatcherOption {
	return func(w *Watcher) { w.opts.Thresholds = th }
}

// WithStrictAnchors makes Watch fail when a section has no anchor instead
// of skipping it. Enable in development builds.
func WithStrictAnchors(strict bool) WatcherOption {
	return func(w *Watcher) { w.strict = strict }
}

// WithWatcherLogger sets the logger used for skipped anchors.
func WithWatcherLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher creates a watcher; call Watch to start observing.
func NewWatcher(reg *Registry, obs Observer, res *Resolver, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		registry: reg,
		observer: obs,
		resolver: res,
		opts:     ObserveOptions{Thresholds: DefaultThresholds, Mode: Continuous},
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Watch observes every registered section. In strict mode a missing anchor
// aborts the whole registration and nothing stays subscribed.
func (w *Watcher) Watch() error {
	if err := w.opts.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, s := range w.registry.sections {
		sub, err := w.observer.Observe(s.ID, w.opts, func(o Observation) {
			w.resolver.Update(o)
		})
		if err != nil {
			if w.strict || !errors.Is(err, ErrAnchorNotFound) {
				w.unsubscribeLocked()
				return fmt.Errorf("observing section %q: %w", s.ID, err)
			}
			w.logger.Warn("section has no anchor, it will never become active",
				zap.String("section", s.ID))
			continue
		}
		w.subs = append(w.subs, sub)
	}
	return nil
}

// Stop removes every subscription made by Watch.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unsubscribeLocked()
}

func (w *Watcher) unsubscribeLocked() {
	for _, s := range w.subs {
		s.Unsubscribe()
	}
	w.subs = nil
}
