//go:build js && wasm

// Package dom binds the scrollspy core to a browser page through
// syscall/js: IntersectionObserver for visibility, window.scrollTo for
// smooth scrolling and class toggles for rendering.
package dom

import (
	"fmt"
	"sync"
	"syscall/js"

	"github.com/Zachkp/folio/internal/scrollspy"
)

// Observer implements scrollspy.Observer with one IntersectionObserver per
// registration. Section ids are element ids.
type Observer struct {
	doc js.Value
}

// NewObserver returns an observer over the global document.
func NewObserver() *Observer {
	return &Observer{doc: js.Global().Get("document")}
}

type subscription struct {
	io   js.Value
	cb   js.Func
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.io.Call("disconnect")
		s.cb.Release()
	})
}

// Observe implements scrollspy.Observer.
func (o *Observer) Observe(sectionID string, opts scrollspy.ObserveOptions, onChange func(scrollspy.Observation)) (scrollspy.Subscription, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	el := o.doc.Call("getElementById", sectionID)
	if el.IsNull() || el.IsUndefined() {
		return nil, fmt.Errorf("%w: %q", scrollspy.ErrAnchorNotFound, sectionID)
	}
	sub, err := observeElement(el, opts, func(e js.Value) {
		onChange(scrollspy.Observation{
			SectionID:    sectionID,
			Intersecting: e.Get("isIntersecting").Bool(),
			Ratio:        e.Get("intersectionRatio").Float(),
		})
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// observeElement wires an IntersectionObserver to el. In Once mode the
// observer disconnects itself after the first intersecting entry.
func observeElement(el js.Value, opts scrollspy.ObserveOptions, onEntry func(entry js.Value)) (*subscription, error) {
	thresholds := make([]any, len(opts.Thresholds))
	for i, t := range opts.Thresholds {
		thresholds[i] = t
	}

	sub := &subscription{}
	sub.cb = js.FuncOf(func(this js.Value, args []js.Value) any {
		entries := args[0]
		for i := 0; i < entries.Length(); i++ {
			e := entries.Index(i)
			if opts.Mode == scrollspy.Once {
				if !e.Get("isIntersecting").Bool() {
					continue
				}
				onEntry(e)
				// Releasing a js.Func from inside its own call is allowed;
				// syscall/js allows it.
				sub.Unsubscribe()
				return nil
			}
			onEntry(e)
		}
		return nil
	})

	ctor := js.Global().Get("IntersectionObserver")
	if ctor.IsUndefined() {
		sub.cb.Release()
		return nil, fmt.Errorf("dom: IntersectionObserver is not available")
	}
	sub.io = ctor.New(sub.cb, map[string]any{"threshold": thresholds})
	sub.io.Call("observe", el)
	return sub, nil
}

// Reveal adds class to every element matching selector the first time it
// scrolls into view. Used for entrance animations.
func Reveal(selector, class string, threshold float64) ([]scrollspy.Subscription, error) {
	opts := scrollspy.ObserveOptions{Thresholds: []float64{threshold}, Mode: scrollspy.Once}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	nodes := js.Global().Get("document").Call("querySelectorAll", selector)
	subs := make([]scrollspy.Subscription, 0, nodes.Length())
	for i := 0; i < nodes.Length(); i++ {
		el := nodes.Index(i)
		sub, err := observeElement(el, opts, func(js.Value) {
			el.Get("classList").Call("add", class)
		})
		if err != nil {
			return subs, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}
