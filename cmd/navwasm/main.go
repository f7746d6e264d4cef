//go:build js && wasm

// Command navwasm runs the navigation core in the browser. Build with
//
//	GOOS=js GOARCH=wasm go build -o static/nav.wasm ./cmd/navwasm
package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Zachkp/folio/internal/scrollspy"
	"github.com/Zachkp/folio/internal/scrollspy/dom"
)

func main() {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync() //nolint:errcheck

	reg, err := dom.RegistryFromMarkup()
	if err != nil {
		logger.Error("no navigable sections", zap.Error(err))
		return
	}
	navCfg := dom.ConfigFromMarkup()

	scroller := dom.NewScroller()
	tracker, err := scrollspy.NewTracker(reg, dom.NewObserver(), scroller, navCfg, scrollspy.SystemClock{}, logger)
	if err != nil {
		logger.Error("starting navigation tracker", zap.Error(err))
		return
	}
	dom.Bind(tracker, scroller, logger)

	if _, err := dom.Reveal("[data-reveal]", "is-visible", 0.1); err != nil {
		logger.Warn("entrance animations disabled", zap.Error(err))
	}

	logger.Info("navigation ready", zap.Int("sections", reg.Len()))
	select {}
}
