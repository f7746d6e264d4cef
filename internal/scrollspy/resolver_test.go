package scrollspy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Zachkp/folio/internal/scrollspy"
)

func visible(id string, ratio float64) scrollspy.Observation {
	return scrollspy.Observation{SectionID: id, Intersecting: ratio > 0, Ratio: ratio}
}

func TestResolverSingleIntersectingSection(t *testing.T) {
	for _, id := range sectionIDs {
		t.Run(id, func(t *testing.T) {
			reg := testRegistry(t)
			store := scrollspy.NewStore(reg)
			res := scrollspy.NewResolver(reg, store)

			batch := make([]scrollspy.Observation, 0, len(sectionIDs))
			for _, other := range sectionIDs {
				ratio := 0.0
				if other == id {
					ratio = 0.3
				}
				batch = append(batch, visible(other, ratio))
			}

			assert.Equal(t, id, res.Update(batch...))
			assert.Equal(t, id, store.ActiveSection())
		})
	}
}

func TestResolverPrefersGreatestRatio(t *testing.T) {
	reg := testRegistry(t)
	store := scrollspy.NewStore(reg)
	res := scrollspy.NewResolver(reg, store)

	res.Update(visible("about", 0.2), visible("work", 0.7), visible("projects", 0.1))
	assert.Equal(t, "work", store.ActiveSection())
}

func TestResolverTieGoesToEarlierSection(t *testing.T) {
	reg := testRegistry(t)
	store := scrollspy.NewStore(reg)
	res := scrollspy.NewResolver(reg, store)

	// Delivery order must not matter.
	res.Update(visible("projects", 0.5), visible("work", 0.5))
	assert.Equal(t, "work", store.ActiveSection())

	res.Update(visible("about", 0.5))
	assert.Equal(t, "about", store.ActiveSection())
}

func TestResolverKeepsSectionInGap(t *testing.T) {
	reg := testRegistry(t)
	store := scrollspy.NewStore(reg)
	res := scrollspy.NewResolver(reg, store)

	res.Update(visible("projects", 0.6))
	assert.Equal(t, "projects", store.ActiveSection())

	changes := 0
	store.Subscribe(func(scrollspy.Change) { changes++ })

	res.Update(visible("projects", 0))
	_, ok := res.Resolve()
	assert.False(t, ok)
	assert.Equal(t, "projects", store.ActiveSection())
	assert.Zero(t, changes)
}

func TestResolverIgnoresUnknownSections(t *testing.T) {
	reg := testRegistry(t)
	store := scrollspy.NewStore(reg)
	res := scrollspy.NewResolver(reg, store)

	res.Update(visible("footer", 1), visible("about", 0.1))
	assert.Equal(t, "about", store.ActiveSection())
}

func TestResolverHold(t *testing.T) {
	reg := testRegistry(t)
	store := scrollspy.NewStore(reg)
	res := scrollspy.NewResolver(reg, store)

	res.Hold("contact")
	assert.Equal(t, "contact", res.Update(visible("about", 1)))
	assert.Equal(t, "home", store.ActiveSection(), "held resolver must not write")

	res.Release()
	assert.Empty(t, res.Held())
	assert.Equal(t, "about", res.Update())
	assert.Equal(t, "about", store.ActiveSection())
}
