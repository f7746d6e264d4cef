package scrollspy

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Progress maps a scroll offset to [0,1] over the scrollable range. A page
// that does not scroll reports 0.
func Progress(scrollY, documentHeight, viewportHeight float64) float64 {
	scrollable := documentHeight - viewportHeight
	if scrollable <= 0 {
		return 0
	}
	return clamp01(scrollY / scrollable)
}

// Config carries the tunables of a Tracker. Zero values select the
// defaults, so ProgressDecimals 0 means 2 decimals.
type Config struct {
	NavOffset        float64
	ScrollDuration   time.Duration
	ScrollGrace      time.Duration
	Thresholds       []float64
	ProgressDecimals int
	StrictAnchors    bool
	DarkMode         bool
}

// Tracker wires the registry, store, resolver, watcher and controller into
// one unit with a single teardown.
type Tracker struct {
	Registry   *Registry
	Store      *Store
	Resolver   *Resolver
	Controller *Controller

	watcher *Watcher
	once    sync.Once
}

// NewTracker builds the pipeline and starts observing. The Config zero
// value uses the package defaults.
func NewTracker(reg *Registry, obs Observer, sc Scroller, cfg Config, clk Clock, logger *zap.Logger) (*Tracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = SystemClock{}
	}

	storeOpts := []StoreOption{WithDarkMode(cfg.DarkMode)}
	if cfg.ProgressDecimals > 0 {
		storeOpts = append(storeOpts, WithProgressDecimals(cfg.ProgressDecimals))
	}
	store := NewStore(reg, storeOpts...)
	res := NewResolver(reg, store)

	ctrlOpts := []ControllerOption{WithClock(clk), WithControllerLogger(logger)}
	if cfg.NavOffset > 0 {
		ctrlOpts = append(ctrlOpts, WithNavOffset(cfg.NavOffset))
	}
	if cfg.ScrollDuration > 0 {
		ctrlOpts = append(ctrlOpts, WithScrollDuration(cfg.ScrollDuration))
	}
	if cfg.ScrollGrace > 0 {
		ctrlOpts = append(ctrlOpts, WithScrollGrace(cfg.ScrollGrace))
	}
	ctrl := NewController(reg, store, res, sc, ctrlOpts...)

	watchOpts := []WatcherOption{WithStrictAnchors(cfg.StrictAnchors), WithWatcherLogger(logger)}
	if len(cfg.Thresholds) > 0 {
		watchOpts = append(watchOpts, WithThresholds(cfg.Thresholds...))
	}
	w := NewWatcher(reg, obs, res, watchOpts...)
	if err := w.Watch(); err != nil {
		return nil, err
	}

	return &Tracker{
		Registry:   reg,
		Store:      store,
		Resolver:   res,
		Controller: ctrl,
		watcher:    w,
	}, nil
}

// NavigateTo is Controller.NavigateTo.
func (t *Tracker) NavigateTo(sectionID string) (*Task, error) {
	return t.Controller.NavigateTo(sectionID)
}

// OnScroll updates scroll progress from the viewport geometry.
func (t *Tracker) OnScroll(scrollY, documentHeight, viewportHeight float64) {
	t.Store.SetScrollProgress(Progress(scrollY, documentHeight, viewportHeight))
}

// Close stops observing and abandons any in-flight scroll.
func (t *Tracker) Close() {
	t.once.Do(func() {
		t.Controller.Stop()
		t.watcher.Stop()
	})
}
