package scrollspy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/folio/internal/scrollspy"
	"github.com/Zachkp/folio/internal/scrollspy/viewport"
)

func pageWithout(t *testing.T, missing string) *viewport.Page {
	t.Helper()
	page := viewport.NewPage(800, viewport.NewManualClock())
	top := 0.0
	for _, id := range sectionIDs {
		if id != missing {
			page.SetAnchor(id, viewport.Rect{Top: top, Height: 800})
		}
		top += 800
	}
	return page
}

func TestWatcherStrictModeFailsOnMissingAnchor(t *testing.T) {
	page := pageWithout(t, "work")
	_, err := scrollspy.NewTracker(testRegistry(t), page, page,
		scrollspy.Config{StrictAnchors: true}, nil, nil)
	assert.ErrorIs(t, err, scrollspy.ErrAnchorNotFound)
}

func TestWatcherSkipsMissingAnchor(t *testing.T) {
	page := pageWithout(t, "work")
	tr, err := scrollspy.NewTracker(testRegistry(t), page, page, scrollspy.Config{}, nil, nil)
	require.NoError(t, err)
	defer tr.Close()

	page.UserScroll(1000)
	require.Equal(t, "about", tr.Store.ActiveSection())

	page.UserScroll(1600) // exactly where "work" would be
	assert.Equal(t, "about", tr.Store.ActiveSection(), "missing section never becomes active")

	page.UserScroll(2400)
	assert.Equal(t, "projects", tr.Store.ActiveSection())
}

func TestWatcherRejectsInvalidThresholds(t *testing.T) {
	page := pageWithout(t, "")
	for _, th := range [][]float64{{0}, {1.5}, {-0.1, 0.5}} {
		_, err := scrollspy.NewTracker(testRegistry(t), page, page,
			scrollspy.Config{Thresholds: th}, nil, nil)
		assert.ErrorIs(t, err, scrollspy.ErrInvalidThreshold, "thresholds %v", th)
	}
}

func TestTrackerFollowsScrolling(t *testing.T) {
	page := pageWithout(t, "")
	tr, err := scrollspy.NewTracker(testRegistry(t), page, page, scrollspy.Config{}, nil, nil)
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, "home", tr.Store.ActiveSection())
	for i, id := range sectionIDs {
		page.UserScroll(float64(i)*800 + 100)
		assert.Equal(t, id, tr.Store.ActiveSection())
	}
}

func TestTrackerCloseStopsObserving(t *testing.T) {
	page := pageWithout(t, "")
	tr, err := scrollspy.NewTracker(testRegistry(t), page, page, scrollspy.Config{}, nil, nil)
	require.NoError(t, err)

	tr.Close()
	tr.Close()
	page.UserScroll(2400)
	assert.Equal(t, "home", tr.Store.ActiveSection())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "continuous", scrollspy.Continuous.String())
	assert.Equal(t, "once", scrollspy.Once.String())
}
