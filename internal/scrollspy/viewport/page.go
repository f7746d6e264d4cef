// Package viewport is a geometric model of a scrolling page. It implements
// scrollspy.Observer and scrollspy.Scroller without a browser, for tests and
// for headless consumers of the navigation core.
package viewport

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Zachkp/folio/internal/scrollspy"
)

// frames is how many steps a smooth scroll is split into.
const frames = 5

// Rect is the vertical extent of an anchor in document coordinates.
type Rect struct {
	Top    float64
	Height float64
}

// Bottom returns Top+Height.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Page holds the viewport, the anchors and the scroll offset.
type Page struct {
	clock scrollspy.Clock

	mu        sync.Mutex
	height    float64
	scrollY   float64
	anchors   map[string]Rect
	subs      map[int]*subscription
	nextSub   int
	anim      *animation
	listeners []func(scrollY float64)
}

type subscription struct {
	page     *Page
	id       int
	section  string
	opts     scrollspy.ObserveOptions
	onChange func(scrollspy.Observation)

	bucket       int
	intersecting bool
}

type animation struct {
	timer    scrollspy.Timer
	canceled bool
}

type delivery struct {
	fn  func(scrollspy.Observation)
	obs scrollspy.Observation
}

// NewPage creates a page with the given viewport height, scrolled to the top.
func NewPage(viewportHeight float64, clock scrollspy.Clock) *Page {
	if clock == nil {
		clock = scrollspy.SystemClock{}
	}
	return &Page{
		clock:   clock,
		height:  viewportHeight,
		anchors: make(map[string]Rect),
		subs:    make(map[int]*subscription),
	}
}

// Stack lays out anchors top to bottom starting at 0, in the given order.
func Stack(p *Page, ids []string, heights []float64) {
	top := 0.0
	for i, id := range ids {
		p.SetAnchor(id, Rect{Top: top, Height: heights[i]})
		top += heights[i]
	}
}

// SetAnchor adds or moves an anchor and re-evaluates observers.
func (p *Page) SetAnchor(id string, r Rect) {
	p.mu.Lock()
	p.anchors[id] = r
	out := p.evaluateLocked()
	p.mu.Unlock()
	deliver(out)
}

// Resize changes the viewport height.
func (p *Page) Resize(viewportHeight float64) {
	p.mu.Lock()
	p.height = viewportHeight
	p.scrollY = p.clampLocked(p.scrollY)
	out := p.evaluateLocked()
	p.mu.Unlock()
	deliver(out)
}

// ViewportHeight returns the viewport height.
func (p *Page) ViewportHeight() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}

// DocumentHeight is the bottom of the lowest anchor, never less than the
// viewport.
func (p *Page) DocumentHeight() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.documentHeightLocked()
}

// ScrollY returns the current offset.
func (p *Page) ScrollY() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrollY
}

// OnScroll registers fn to be called with every new offset.
func (p *Page) OnScroll(fn func(scrollY float64)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Observe implements scrollspy.Observer. Like IntersectionObserver it
// reports the current state right away.
func (p *Page) Observe(sectionID string, opts scrollspy.ObserveOptions, onChange func(scrollspy.Observation)) (scrollspy.Subscription, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if _, ok := p.anchors[sectionID]; !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", scrollspy.ErrAnchorNotFound, sectionID)
	}
	s := &subscription{
		page:     p,
		id:       p.nextSub,
		section:  sectionID,
		opts:     opts,
		onChange: onChange,
	}
	p.nextSub++
	p.subs[s.id] = s

	obs := p.observeLocked(s)
	s.bucket = bucket(obs.Ratio, opts.Thresholds)
	s.intersecting = obs.Intersecting
	var out []delivery
	if opts.Mode == scrollspy.Continuous || obs.Intersecting {
		out = append(out, delivery{fn: onChange, obs: obs})
		if opts.Mode == scrollspy.Once {
			delete(p.subs, s.id)
		}
	}
	p.mu.Unlock()

	deliver(out)
	return s, nil
}

func (s *subscription) Unsubscribe() {
	s.page.mu.Lock()
	delete(s.page.subs, s.id)
	s.page.mu.Unlock()
}

// AnchorTop implements scrollspy.Scroller.
func (p *Page) AnchorTop(sectionID string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.anchors[sectionID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", scrollspy.ErrAnchorNotFound, sectionID)
	}
	return r.Top, nil
}

// ScrollTo implements scrollspy.Scroller: an eased animation in a few
// frames. A newer ScrollTo or a user scroll abandons it without calling
// onDone.
func (p *Page) ScrollTo(y float64, duration time.Duration, onDone func()) {
	p.mu.Lock()
	p.cancelAnimationLocked()
	start := p.scrollY
	target := p.clampLocked(y)
	a := &animation{}
	p.anim = a
	p.mu.Unlock()

	step := duration / frames
	var frame func(i int)
	frame = func(i int) {
		p.mu.Lock()
		if a.canceled {
			p.mu.Unlock()
			return
		}
		t := float64(i) / frames
		p.scrollY = start + (target-start)*easeInOut(t)
		if i == frames {
			p.scrollY = target
			p.anim = nil
		}
		out, listeners, y := p.scrolledLocked()
		if i < frames {
			a.timer = p.clock.AfterFunc(step, func() { frame(i + 1) })
		}
		p.mu.Unlock()

		notifyScroll(listeners, y)
		deliver(out)
		if i == frames && onDone != nil {
			onDone()
		}
	}

	p.mu.Lock()
	a.timer = p.clock.AfterFunc(step, func() { frame(1) })
	p.mu.Unlock()
}

// UserScroll jumps to y as a manual scroll would, interrupting any
// programmatic animation.
func (p *Page) UserScroll(y float64) {
	p.mu.Lock()
	p.cancelAnimationLocked()
	p.scrollY = p.clampLocked(y)
	out, listeners, sy := p.scrolledLocked()
	p.mu.Unlock()

	notifyScroll(listeners, sy)
	deliver(out)
}

// UserScrollBy scrolls by dy.
func (p *Page) UserScrollBy(dy float64) {
	p.UserScroll(p.ScrollY() + dy)
}

// Ratio returns the visible fraction of an anchor at the current offset.
func (p *Page) Ratio(sectionID string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.anchors[sectionID]
	if !ok {
		return 0
	}
	return p.ratioLocked(r)
}

func (p *Page) cancelAnimationLocked() {
	if p.anim == nil {
		return
	}
	p.anim.canceled = true
	if p.anim.timer != nil {
		p.anim.timer.Stop()
	}
	p.anim = nil
}

func (p *Page) scrolledLocked() ([]delivery, []func(float64), float64) {
	listeners := append([]func(float64){}, p.listeners...)
	return p.evaluateLocked(), listeners, p.scrollY
}

// evaluateLocked collects deliveries for every subscription whose
// intersection state or threshold bucket changed, in registration order.
func (p *Page) evaluateLocked() []delivery {
	var out []delivery
	for id := 0; id < p.nextSub; id++ {
		s, ok := p.subs[id]
		if !ok {
			continue
		}
		obs := p.observeLocked(s)
		b := bucket(obs.Ratio, s.opts.Thresholds)
		if b == s.bucket && obs.Intersecting == s.intersecting {
			continue
		}
		s.bucket, s.intersecting = b, obs.Intersecting
		if s.opts.Mode == scrollspy.Once {
			if !obs.Intersecting {
				continue
			}
			delete(p.subs, id)
		}
		out = append(out, delivery{fn: s.onChange, obs: obs})
	}
	return out
}

func (p *Page) observeLocked(s *subscription) scrollspy.Observation {
	r := p.anchors[s.section]
	ratio := p.ratioLocked(r)
	return scrollspy.Observation{
		SectionID:    s.section,
		Intersecting: ratio > 0,
		Ratio:        ratio,
	}
}

func (p *Page) ratioLocked(r Rect) float64 {
	if r.Height <= 0 {
		return 0
	}
	top := math.Max(r.Top, p.scrollY)
	bottom := math.Min(r.Bottom(), p.scrollY+p.height)
	if bottom <= top {
		return 0
	}
	return (bottom - top) / r.Height
}

func (p *Page) documentHeightLocked() float64 {
	h := p.height
	for _, r := range p.anchors {
		h = math.Max(h, r.Bottom())
	}
	return h
}

func (p *Page) clampLocked(y float64) float64 {
	limit := p.documentHeightLocked() - p.height
	return math.Max(0, math.Min(y, limit))
}

func bucket(ratio float64, thresholds []float64) int {
	n := 0
	for _, t := range thresholds {
		if ratio >= t {
			n++
		}
	}
	return n
}

func easeInOut(t float64) float64 {
	return t * t * (3 - 2*t)
}

func deliver(out []delivery) {
	for _, d := range out {
		d.fn(d.obs)
	}
}

func notifyScroll(listeners []func(float64), y float64) {
	for _, fn := range listeners {
		fn(y)
	}
}
