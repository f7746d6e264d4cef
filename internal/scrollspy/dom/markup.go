//go:build js && wasm

package dom

import (
	"strconv"
	"strings"
	"syscall/js"
	"time"

	"github.com/Zachkp/folio/internal/scrollspy"
)

// RegistryFromMarkup reads the desktop nav items, in document order, into a
// registry. Mobile duplicates share ids and are skipped.
func RegistryFromMarkup() (*scrollspy.Registry, error) {
	nodes := js.Global().Get("document").Call("querySelectorAll", "[data-nav-link]")
	seen := make(map[string]bool)
	var sections []scrollspy.Section
	for i := 0; i < nodes.Length(); i++ {
		el := nodes.Index(i)
		id := el.Call("getAttribute", "data-nav-link").String()
		if seen[id] {
			continue
		}
		seen[id] = true
		sections = append(sections, scrollspy.Section{
			ID:    id,
			Label: attr(el, "data-label"),
			Icon:  attr(el, "data-icon"),
		})
	}
	return scrollspy.NewRegistry(sections...)
}

// ConfigFromMarkup reads tracker settings from data attributes on <body>:
// data-nav-offset, data-scroll-ms, data-scroll-grace-ms, data-thresholds
// (comma separated), data-progress-decimals and data-strict-anchors.
// The theme comes from the dark class on <html>.
func ConfigFromMarkup() scrollspy.Config {
	doc := js.Global().Get("document")
	body := doc.Get("body")

	cfg := scrollspy.Config{
		NavOffset:        floatAttr(body, "data-nav-offset"),
		ScrollDuration:   time.Duration(floatAttr(body, "data-scroll-ms")) * time.Millisecond,
		ScrollGrace:      time.Duration(floatAttr(body, "data-scroll-grace-ms")) * time.Millisecond,
		ProgressDecimals: int(floatAttr(body, "data-progress-decimals")),
		StrictAnchors:    attr(body, "data-strict-anchors") == "true",
		DarkMode:         doc.Get("documentElement").Get("classList").Call("contains", "dark").Bool(),
	}
	for _, part := range strings.Split(attr(body, "data-thresholds"), ",") {
		if v, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
			cfg.Thresholds = append(cfg.Thresholds, v)
		}
	}
	return cfg
}

func attr(el js.Value, name string) string {
	v := el.Call("getAttribute", name)
	if v.IsNull() || v.IsUndefined() {
		return ""
	}
	return v.String()
}

func floatAttr(el js.Value, name string) float64 {
	v, err := strconv.ParseFloat(attr(el, name), 64)
	if err != nil {
		return 0
	}
	return v
}
