package scrollspy_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Zachkp/folio/internal/scrollspy"
	"github.com/Zachkp/folio/internal/scrollspy/viewport"
)

// fixture is a page of five full-height sections in an 800px viewport.
type fixture struct {
	clock   *viewport.ManualClock
	page    *viewport.Page
	tracker *scrollspy.Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := viewport.NewManualClock()
	page := viewport.NewPage(800, clock)
	viewport.Stack(page, sectionIDs, []float64{800, 800, 800, 800, 800})

	tr, err := scrollspy.NewTracker(testRegistry(t), page, page, scrollspy.Config{}, clock, nil)
	require.NoError(t, err)
	t.Cleanup(tr.Close)

	page.OnScroll(func(y float64) {
		tr.OnScroll(y, page.DocumentHeight(), page.ViewportHeight())
	})
	return &fixture{clock: clock, page: page, tracker: tr}
}

func TestNavigateToSetsSectionImmediately(t *testing.T) {
	f := newFixture(t)
	store := f.tracker.Store
	require.Equal(t, "home", store.ActiveSection())

	var seen []string
	store.Subscribe(func(c scrollspy.Change) {
		if c.Field == scrollspy.FieldActiveSection {
			seen = append(seen, c.State.ActiveSection)
		}
	})

	task, err := f.tracker.NavigateTo("projects")
	require.NoError(t, err)
	assert.Equal(t, "projects", store.ActiveSection(), "set before the scroll starts")
	assert.Equal(t, 3*800-scrollspy.DefaultNavOffset, task.Target)

	f.clock.Advance(scrollspy.DefaultScrollDuration)
	select {
	case <-task.Done():
	default:
		t.Fatal("task should have completed")
	}
	require.NoError(t, task.Err())
	assert.Equal(t, task.Target, f.page.ScrollY())

	// After settling the viewport keeps agreeing.
	f.page.UserScrollBy(1)
	f.clock.Advance(time.Second)
	assert.Equal(t, "projects", store.ActiveSection())
	assert.Equal(t, []string{"projects"}, seen, "no flicker through about/work")
}

func TestNavigateToUnknownSection(t *testing.T) {
	f := newFixture(t)
	before := f.tracker.Store.Snapshot()

	task, err := f.tracker.NavigateTo("nonexistent")
	assert.Nil(t, task)
	var invalid *scrollspy.InvalidSectionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "nonexistent", invalid.ID)

	assert.Equal(t, before, f.tracker.Store.Snapshot())
	assert.Zero(t, f.clock.Pending(), "no scroll or timeout scheduled")
	assert.Equal(t, 0.0, f.page.ScrollY())
}

func TestNavigateToRunsCompletionHooks(t *testing.T) {
	f := newFixture(t)

	menuOpen := true
	f.tracker.Controller.OnComplete(func(id string) {
		assert.Equal(t, "about", id)
		menuOpen = false
	})

	task, err := f.tracker.NavigateTo("about")
	require.NoError(t, err)
	assert.True(t, menuOpen)

	f.clock.Advance(scrollspy.DefaultScrollDuration)
	require.NoError(t, task.Wait(context.Background()))
	assert.False(t, menuOpen)
}

func TestUserScrollDuringNavigationTimesOut(t *testing.T) {
	f := newFixture(t)
	store := f.tracker.Store

	hookCalled := false
	f.tracker.Controller.OnComplete(func(string) { hookCalled = true })

	task, err := f.tracker.NavigateTo("contact")
	require.NoError(t, err)

	f.clock.Advance(2 * scrollspy.DefaultScrollDuration / 5)
	f.page.UserScroll(800) // user grabs the page back at "about"
	assert.Equal(t, "contact", store.ActiveSection(), "controller still owns the state")

	f.clock.Advance(f.tracker.Controller.Timeout())
	assert.ErrorIs(t, task.Err(), scrollspy.ErrScrollTimeout)
	assert.False(t, hookCalled)
	assert.Equal(t, "about", store.ActiveSection(), "viewport regains authority")
	assert.Empty(t, f.tracker.Resolver.Held())
}

func TestNavigateToSupersedesInflightScroll(t *testing.T) {
	f := newFixture(t)

	first, err := f.tracker.NavigateTo("contact")
	require.NoError(t, err)
	f.clock.Advance(scrollspy.DefaultScrollDuration / 5)

	second, err := f.tracker.NavigateTo("work")
	require.NoError(t, err)
	assert.ErrorIs(t, first.Err(), scrollspy.ErrScrollSuperseded)
	assert.Equal(t, "work", f.tracker.Store.ActiveSection())

	f.clock.Advance(f.tracker.Controller.Timeout())
	require.NoError(t, second.Err())
	assert.Equal(t, 2*800-scrollspy.DefaultNavOffset, f.page.ScrollY())
	assert.Equal(t, "work", f.tracker.Store.ActiveSection())
	assert.Nil(t, f.tracker.Controller.Current())
}

func TestTaskCancel(t *testing.T) {
	f := newFixture(t)

	task, err := f.tracker.NavigateTo("projects")
	require.NoError(t, err)
	task.Cancel()

	assert.ErrorIs(t, task.Err(), scrollspy.ErrScrollCanceled)
	assert.Empty(t, f.tracker.Resolver.Held())
	assert.Equal(t, "home", f.tracker.Store.ActiveSection(), "page has not moved yet")
}

func TestNavigateToTopClampsOffset(t *testing.T) {
	f := newFixture(t)
	task, err := f.tracker.NavigateTo("home")
	require.NoError(t, err)
	assert.Equal(t, 0.0, task.Target)
}

func TestScrollProgressFollowsPage(t *testing.T) {
	f := newFixture(t)
	store := f.tracker.Store
	assert.Equal(t, 0.0, store.Snapshot().ScrollProgress)

	last := 0.0
	for y := 0.0; y <= 3200; y += 37 {
		f.page.UserScroll(y)
		p := store.Snapshot().ScrollProgress
		assert.GreaterOrEqual(t, p, last, "progress must not decrease at y=%v", y)
		last = p
	}

	f.page.UserScroll(f.page.DocumentHeight())
	assert.Equal(t, 1.0, store.Snapshot().ScrollProgress)
	f.page.UserScroll(0)
	assert.Equal(t, 0.0, store.Snapshot().ScrollProgress)
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.0, scrollspy.Progress(0, 4000, 800))
	assert.Equal(t, 0.5, scrollspy.Progress(1600, 4000, 800))
	assert.Equal(t, 1.0, scrollspy.Progress(3200, 4000, 800))
	assert.Equal(t, 1.0, scrollspy.Progress(9000, 4000, 800))
	assert.Equal(t, 0.0, scrollspy.Progress(0, 500, 800), "unscrollable page")
}

func TestThemeToggleLeavesNavigationAlone(t *testing.T) {
	f := newFixture(t)
	f.page.UserScroll(1700)
	before := f.tracker.Store.Snapshot()

	f.tracker.Store.ToggleTheme()
	f.tracker.Store.ToggleTheme()

	assert.Equal(t, before, f.tracker.Store.Snapshot())
}

func TestControllerWithSystemClock(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := viewport.NewPage(800, scrollspy.SystemClock{})
	viewport.Stack(page, sectionIDs, []float64{800, 800, 800, 800, 800})
	tr, err := scrollspy.NewTracker(testRegistry(t), page, page, scrollspy.Config{
		ScrollDuration: 10 * time.Millisecond,
		ScrollGrace:    50 * time.Millisecond,
	}, nil, nil)
	require.NoError(t, err)
	defer tr.Close()

	task, err := tr.NavigateTo("contact")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, task.Wait(ctx))
	assert.Equal(t, "contact", tr.Store.ActiveSection())
}

// gatedClock wraps a ManualClock. Once armed, the next Timer.Stop blocks
// until the gate opens, which parks a finishing task half way through.
type gatedClock struct {
	*viewport.ManualClock
	mu      sync.Mutex
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedClock) arm() {
	g.mu.Lock()
	g.entered = make(chan struct{})
	g.gate = make(chan struct{})
	g.mu.Unlock()
}

func (g *gatedClock) AfterFunc(d time.Duration, f func()) scrollspy.Timer {
	return gatedTimer{Timer: g.ManualClock.AfterFunc(d, f), clock: g}
}

type gatedTimer struct {
	scrollspy.Timer
	clock *gatedClock
}

func (t gatedTimer) Stop() bool {
	g := t.clock
	g.mu.Lock()
	entered, gate := g.entered, g.gate
	g.entered, g.gate = nil, nil
	g.mu.Unlock()
	if gate != nil {
		close(entered)
		<-gate
	}
	return t.Timer.Stop()
}

func TestTimeoutDoesNotReleaseNewerScroll(t *testing.T) {
	clock := viewport.NewManualClock()
	gated := &gatedClock{ManualClock: clock}
	page := viewport.NewPage(800, clock)
	viewport.Stack(page, sectionIDs, []float64{800, 800, 800, 800, 800})

	tr, err := scrollspy.NewTracker(testRegistry(t), page, page, scrollspy.Config{}, gated, nil)
	require.NoError(t, err)
	t.Cleanup(tr.Close)

	first, err := tr.NavigateTo("about")
	require.NoError(t, err)
	page.UserScroll(0)

	gated.arm()
	entered, gate := gated.entered, gated.gate
	advanced := make(chan struct{})
	go func() {
		clock.Advance(tr.Controller.Timeout())
		close(advanced)
	}()
	<-entered

	second, err := tr.NavigateTo("projects")
	require.NoError(t, err)
	close(gate)
	<-advanced

	assert.ErrorIs(t, first.Err(), scrollspy.ErrScrollTimeout)
	assert.Equal(t, "projects", tr.Resolver.Held())
	assert.Equal(t, "projects", tr.Store.ActiveSection())

	clock.Advance(scrollspy.DefaultScrollDuration)
	require.NoError(t, second.Err())
	assert.Equal(t, "projects", tr.Store.ActiveSection())
	assert.Empty(t, tr.Resolver.Held())
}

func TestTrackerProgressDecimals(t *testing.T) {
	clock := viewport.NewManualClock()
	page := viewport.NewPage(800, clock)
	viewport.Stack(page, sectionIDs, []float64{800, 800, 800, 800, 800})

	coarse, err := scrollspy.NewTracker(testRegistry(t), page, page, scrollspy.Config{ProgressDecimals: 1}, clock, nil)
	require.NoError(t, err)
	t.Cleanup(coarse.Close)
	coarse.OnScroll(1000, page.DocumentHeight(), page.ViewportHeight())
	assert.Equal(t, 0.3, coarse.Store.Snapshot().ScrollProgress)

	unset, err := scrollspy.NewTracker(testRegistry(t), page, page, scrollspy.Config{}, clock, nil)
	require.NoError(t, err)
	t.Cleanup(unset.Close)
	unset.OnScroll(1000, page.DocumentHeight(), page.ViewportHeight())
	assert.Equal(t, 0.31, unset.Store.Snapshot().ScrollProgress)
}
