package scrollspy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultScrollDuration is the smooth-scroll animation length.
	DefaultScrollDuration = 500 * time.Millisecond
	// DefaultNavOffset is the height of the fixed nav bar in CSS pixels.
	DefaultNavOffset = 80.0
	// DefaultScrollGrace is added to the duration before a scroll that
	// never signalled completion is given up.
	DefaultScrollGrace = 100 * time.Millisecond
)

var (
	ErrScrollTimeout    = errors.New("scrollspy: scroll did not complete in time")
	ErrScrollSuperseded = errors.New("scrollspy: scroll superseded by a newer navigation")
	ErrScrollCanceled   = errors.New("scrollspy: scroll canceled")
)

// Scroller performs the platform scroll. ScrollTo must not block: it starts
// the animation and calls onDone once the viewport settled on y. If the user
// interrupts the animation onDone is never called.
type Scroller interface {
	AnchorTop(sectionID string) (float64, error)
	ScrollTo(y float64, duration time.Duration, onDone func())
}

// Task is the future of one NavigateTo call.
type Task struct {
	Section string
	Target  float64

	done   chan struct{}
	once   sync.Once
	err    error
	cancel func()
}

func newTask(section string, target float64) *Task {
	return &Task{Section: section, Target: target, done: make(chan struct{})}
}

// Done is closed when the task settles.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err is nil after a completed scroll, otherwise ErrScrollTimeout,
// ErrScrollSuperseded or ErrScrollCanceled. It is only meaningful once Done
// is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task settles or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel abandons the task. The resolver regains authority immediately.
func (t *Task) Cancel() {
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *Task) settle(err error) bool {
	settled := false
	t.once.Do(func() {
		t.err = err
		close(t.done)
		settled = true
	})
	return settled
}

// Controller scrolls to sections and keeps the navigation state ahead of
// the viewport while the animation runs.
type Controller struct {
	registry *Registry
	store    *Store
	resolver *Resolver
	scroller Scroller
	clock    Clock
	logger   *zap.Logger

	offset   float64
	duration time.Duration
	grace    time.Duration

	mu      sync.Mutex
	current *Task
	timer   Timer
	hooks   []func(sectionID string)
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithNavOffset sets the fixed nav bar height subtracted from anchor tops.
func WithNavOffset(px float64) ControllerOption {
	return func(c *Controller) { c.offset = px }
}

// WithScrollDuration sets the animation length.
func WithScrollDuration(d time.Duration) ControllerOption {
	return func(c *Controller) { c.duration = d }
}

// WithScrollGrace sets the slack added to the duration for the timeout.
func WithScrollGrace(d time.Duration) ControllerOption {
	return func(c *Controller) { c.grace = d }
}

// WithClock replaces the system clock.
func WithClock(clk Clock) ControllerOption {
	return func(c *Controller) { c.clock = clk }
}

// WithControllerLogger sets the logger.
func WithControllerLogger(l *zap.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// NewController wires a controller to the shared state.
func NewController(reg *Registry, store *Store, res *Resolver, sc Scroller, opts ...ControllerOption) *Controller {
	c := &Controller{
		registry: reg,
		store:    store,
		resolver: res,
		scroller: sc,
		clock:    SystemClock{},
		logger:   zap.NewNop(),
		offset:   DefaultNavOffset,
		duration: DefaultScrollDuration,
		grace:    DefaultScrollGrace,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OnComplete registers fn to run after every scroll that reached its
// target, e.g. to close the mobile menu.
func (c *Controller) OnComplete(fn func(sectionID string)) {
	c.mu.Lock()
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

// Timeout is how long a scroll may run before the viewport takes over.
func (c *Controller) Timeout() time.Duration {
	return c.duration + c.grace
}

// NavigateTo starts a smooth scroll to the section. An unknown id fails
// with *InvalidSectionError before any state is touched. A scroll already
// in flight is superseded.
func (c *Controller) NavigateTo(sectionID string) (*Task, error) {
	if _, err := c.registry.Lookup(sectionID); err != nil {
		return nil, err
	}
	top, err := c.scroller.AnchorTop(sectionID)
	if err != nil {
		return nil, fmt.Errorf("locating section %q: %w", sectionID, err)
	}

	target := top - c.offset
	if target < 0 {
		target = 0
	}
	task := newTask(sectionID, target)
	task.cancel = func() { c.finish(task, ErrScrollCanceled) }

	// The hold and the active section change together with c.current so
	// that a finishing older task can never release a newer task's hold.
	c.mu.Lock()
	prev, prevTimer := c.current, c.timer
	c.current = task
	c.timer = c.clock.AfterFunc(c.Timeout(), func() {
		c.finish(task, ErrScrollTimeout)
	})
	c.resolver.Hold(sectionID)
	c.store.SetActiveSection(sectionID) //nolint:errcheck // validated above
	c.mu.Unlock()

	if prevTimer != nil {
		prevTimer.Stop()
	}
	if prev != nil && prev.settle(ErrScrollSuperseded) {
		c.logger.Debug("scroll superseded",
			zap.String("from", prev.Section), zap.String("to", sectionID))
	}

	c.logger.Debug("scrolling to section",
		zap.String("section", sectionID), zap.Float64("target", target))
	c.scroller.ScrollTo(target, c.duration, func() {
		c.finish(task, nil)
	})
	return task, nil
}

// Current returns the in-flight task, or nil.
func (c *Controller) Current() *Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Stop cancels any in-flight scroll.
func (c *Controller) Stop() {
	if t := c.Current(); t != nil {
		t.Cancel()
	}
}

// finish settles task if it is still the current one. Store subscribers
// run while c.mu is held here and in NavigateTo, so they must not call back
// into the controller.
func (c *Controller) finish(task *Task, err error) {
	c.mu.Lock()
	if c.current != task {
		c.mu.Unlock()
		return
	}
	c.current = nil
	timer := c.timer
	c.timer = nil
	hooks := append([]func(string){}, c.hooks...)
	task.settle(err)
	if err == nil {
		c.store.SetActiveSection(task.Section) //nolint:errcheck // validated in NavigateTo
	}
	c.resolver.Release()
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}

	if err != nil {
		c.logger.Debug("scroll abandoned",
			zap.String("section", task.Section), zap.Error(err))
		// A newer NavigateTo may hold the resolver by now; Update then
		// leaves the store alone.
		c.resolver.Update()
		return
	}
	for _, fn := range hooks {
		fn(task.Section)
	}
}
