//go:build js && wasm

package dom

import (
	"fmt"
	"strconv"
	"syscall/js"

	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/scrollspy"
)

// scrolledAt is the offset past which the header gets its solid background.
const scrolledAt = 20

// Binding connects a Tracker to the page markup:
//
//	[data-nav-link="<id>"]   nav items, desktop and mobile
//	[data-scroll-progress]   progress bar, scaled on X
//	[data-nav-header]        header, gets is-scrolled
//	[data-mobile-menu]       mobile menu, gets is-open
//	[data-menu-toggle]       mobile menu button
//	[data-theme-toggle]      theme button
type Binding struct {
	tracker  *scrollspy.Tracker
	scroller *Scroller
	logger   *zap.Logger

	doc   js.Value
	funcs []js.Func
	unsub func()
}

// Bind renders the current state and starts listening to the page.
func Bind(tr *scrollspy.Tracker, sc *Scroller, logger *zap.Logger) *Binding {
	b := &Binding{
		tracker:  tr,
		scroller: sc,
		logger:   logger,
		doc:      js.Global().Get("document"),
	}

	b.unsub = tr.Store.Subscribe(b.render)
	tr.Controller.OnComplete(func(string) { b.setMenu(false) })

	b.each("[data-nav-link]", func(el js.Value) {
		id := el.Call("getAttribute", "data-nav-link").String()
		b.on(el, "click", func(ev js.Value) {
			ev.Call("preventDefault")
			if _, err := tr.NavigateTo(id); err != nil {
				b.logger.Error("navigation failed", zap.String("section", id), zap.Error(err))
			}
		})
	})
	b.each("[data-theme-toggle]", func(el js.Value) {
		// The toggle sits in a POST /theme form for pages without wasm.
		// Submitting it here as well would flip the cookie back.
		b.on(el, "click", func(ev js.Value) {
			ev.Call("preventDefault")
			tr.Store.ToggleTheme()
		})
	})
	b.each("[data-menu-toggle]", func(el js.Value) {
		b.on(el, "click", func(js.Value) { b.setMenu(!b.menuOpen()) })
	})

	onScroll := func(js.Value) {
		y := sc.ScrollY()
		tr.OnScroll(y, sc.DocumentHeight(), sc.ViewportHeight())
		b.each("[data-nav-header]", func(el js.Value) {
			el.Get("classList").Call("toggle", "is-scrolled", y > scrolledAt)
		})
	}
	win := js.Global()
	b.onOpts(win, "scroll", onScroll, map[string]any{"passive": true})
	b.on(win, "resize", onScroll)

	onScroll(js.Undefined())
	snap := tr.Store.Snapshot()
	for _, f := range []scrollspy.Field{scrollspy.FieldActiveSection, scrollspy.FieldScrollProgress, scrollspy.FieldTheme} {
		b.render(scrollspy.Change{Field: f, State: snap})
	}
	return b
}

// Release removes every listener.
func (b *Binding) Release() {
	b.unsub()
	for _, f := range b.funcs {
		f.Release()
	}
	b.funcs = nil
}

func (b *Binding) render(c scrollspy.Change) {
	switch c.Field {
	case scrollspy.FieldActiveSection:
		b.each("[data-nav-link]", func(el js.Value) {
			active := el.Call("getAttribute", "data-nav-link").String() == c.State.ActiveSection
			el.Get("classList").Call("toggle", "is-active", active)
			if active {
				el.Call("setAttribute", "aria-current", "page")
			} else {
				el.Call("removeAttribute", "aria-current")
			}
		})
	case scrollspy.FieldScrollProgress:
		scale := strconv.FormatFloat(c.State.ScrollProgress, 'f', -1, 64)
		b.each("[data-scroll-progress]", func(el js.Value) {
			el.Get("style").Set("transform", "scaleX("+scale+")")
		})
	case scrollspy.FieldTheme:
		root := b.doc.Get("documentElement")
		root.Get("classList").Call("toggle", "dark", c.State.DarkMode)
		theme := "light"
		if c.State.DarkMode {
			theme = "dark"
		}
		b.doc.Set("cookie", fmt.Sprintf("theme=%s; path=/; max-age=31536000; samesite=lax", theme))
		b.each("[data-theme-toggle]", func(el js.Value) {
			label := "Switch to dark mode"
			if c.State.DarkMode {
				label = "Switch to light mode"
			}
			el.Call("setAttribute", "aria-label", label)
		})
	}
}

func (b *Binding) menuOpen() bool {
	el := b.doc.Call("querySelector", "[data-mobile-menu]")
	return !el.IsNull() && el.Get("classList").Call("contains", "is-open").Bool()
}

func (b *Binding) setMenu(open bool) {
	b.each("[data-mobile-menu]", func(el js.Value) {
		el.Get("classList").Call("toggle", "is-open", open)
	})
	b.each("[data-menu-toggle]", func(el js.Value) {
		el.Call("setAttribute", "aria-expanded", strconv.FormatBool(open))
	})
}

func (b *Binding) each(selector string, fn func(el js.Value)) {
	nodes := b.doc.Call("querySelectorAll", selector)
	for i := 0; i < nodes.Length(); i++ {
		fn(nodes.Index(i))
	}
}

func (b *Binding) on(target js.Value, event string, fn func(ev js.Value)) {
	b.onOpts(target, event, fn, nil)
}

func (b *Binding) onOpts(target js.Value, event string, fn func(ev js.Value), opts map[string]any) {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		ev := js.Undefined()
		if len(args) > 0 {
			ev = args[0]
		}
		fn(ev)
		return nil
	})
	b.funcs = append(b.funcs, f)
	if opts != nil {
		target.Call("addEventListener", event, f, opts)
		return
	}
	target.Call("addEventListener", event, f)
}
