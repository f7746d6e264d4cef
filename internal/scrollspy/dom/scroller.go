//go:build js && wasm

package dom

import (
	"fmt"
	"math"
	"syscall/js"
	"time"

	"github.com/Zachkp/folio/internal/scrollspy"
)

// settleTolerance is how far from the target a finished scroll may stop
// and still count as having arrived (sub-pixel rounding, zoom).
const settleTolerance = 2.0

// Scroller implements scrollspy.Scroller on window.scrollTo. Completion is
// detected with the scrollend event; a scroll that ends elsewhere was taken
// over by the user and never reports completion.
type Scroller struct {
	win js.Value
	doc js.Value

	pending js.Func
	active  bool
}

// NewScroller returns a scroller over the global window.
func NewScroller() *Scroller {
	g := js.Global()
	return &Scroller{win: g, doc: g.Get("document")}
}

// AnchorTop implements scrollspy.Scroller.
func (s *Scroller) AnchorTop(sectionID string) (float64, error) {
	el := s.doc.Call("getElementById", sectionID)
	if el.IsNull() || el.IsUndefined() {
		return 0, fmt.Errorf("%w: %q", scrollspy.ErrAnchorNotFound, sectionID)
	}
	rect := el.Call("getBoundingClientRect")
	return rect.Get("top").Float() + s.ScrollY(), nil
}

// ScrollY is window.scrollY.
func (s *Scroller) ScrollY() float64 {
	return s.win.Get("scrollY").Float()
}

// DocumentHeight is the full scrollable height.
func (s *Scroller) DocumentHeight() float64 {
	return s.doc.Get("documentElement").Get("scrollHeight").Float()
}

// ViewportHeight is window.innerHeight.
func (s *Scroller) ViewportHeight() float64 {
	return s.win.Get("innerHeight").Float()
}

// ScrollTo implements scrollspy.Scroller. The browser picks the animation
// length for behavior "smooth"; duration only matters for the caller's
// timeout.
func (s *Scroller) ScrollTo(y float64, _ time.Duration, onDone func()) {
	s.detach()

	target := math.Min(y, math.Max(0, s.DocumentHeight()-s.ViewportHeight()))
	if math.Abs(s.ScrollY()-target) <= settleTolerance {
		onDone()
		return
	}

	s.pending = js.FuncOf(func(js.Value, []js.Value) any {
		arrived := math.Abs(s.ScrollY()-target) <= settleTolerance
		s.detach()
		if arrived {
			onDone()
		}
		return nil
	})
	s.active = true
	s.win.Call("addEventListener", "scrollend", s.pending, map[string]any{"once": true})
	s.win.Call("scrollTo", map[string]any{"top": target, "behavior": "smooth"})
}

func (s *Scroller) detach() {
	if !s.active {
		return
	}
	s.win.Call("removeEventListener", "scrollend", s.pending)
	s.pending.Release()
	s.active = false
}
