package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverge/adverge/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func testStore() *AdUnitStore {
	return Static(
		[]models.App{
			{ID: "app-1", Name: "News Reader", Platform: "android", Active: true},
		},
		[]models.AdUnit{
			{ID: "Unit-1", AppID: "app-1", Type: models.AdTypeBanner, Active: true, FloorPrice: floatPtr(0.50)},
			{ID: "unit-2", AppID: "app-1", Type: models.AdTypeRewarded, Active: false},
		},
	)
}

func TestAdUnitStore_Lookups(t *testing.T) {
	s := testStore()

	u, ok := s.GetAdUnit("unit-1")
	require.True(t, ok, "lookup should be case-insensitive")
	assert.Equal(t, models.AdTypeBanner, u.Type)
	assert.Equal(t, 0.50, *u.FloorPrice)

	_, ok = s.GetAdUnit("unit-404")
	assert.False(t, ok, "unknown unit must not resolve")

	app, ok := s.GetApp("APP-1")
	require.True(t, ok)
	assert.Equal(t, "News Reader", app.Name)
}

func TestAdUnitStore_InactiveUnitsStillListed(t *testing.T) {
	s := testStore()
	// The snapshot keeps inactive units; serving-path callers check Active.
	u, ok := s.GetAdUnit("unit-2")
	require.True(t, ok, "inactive unit should still resolve from the snapshot")
	assert.False(t, u.Active)
	assert.Len(t, s.AdUnits(), 2)
}

func TestAdUnitStore_ReloadWithoutDatabaseIsNoOp(t *testing.T) {
	s := testStore()
	require.NoError(t, s.ReloadAll(t.Context()), "static store reload must be a no-op")
	_, ok := s.GetAdUnit("unit-1")
	assert.True(t, ok, "reload must not drop the static snapshot")
}
