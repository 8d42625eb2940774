package store

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/adverge/adverge/internal/models"
)

// snapshot is one immutable view of the configuration. Lookups read the
// current snapshot; reloads swap in a fresh one, so a reload never blocks
// in-flight auctions.
type snapshot struct {
	apps    map[string]*models.App
	adUnits map[string]*models.AdUnit
}

// AdUnitStore serves app and ad unit configuration from memory, refreshed
// from Postgres on a fixed interval.
type AdUnitStore struct {
	pg *Postgres

	mu   sync.RWMutex
	snap *snapshot
}

// NewAdUnitStore constructs an AdUnitStore around a Postgres connection.
// Call ReloadAll before serving.
func NewAdUnitStore(pg *Postgres) *AdUnitStore {
	return &AdUnitStore{pg: pg, snap: &snapshot{
		apps:    map[string]*models.App{},
		adUnits: map[string]*models.AdUnit{},
	}}
}

// ReloadAll loads apps and ad units from Postgres and swaps the snapshot.
// On error the previous snapshot stays in place.
func (s *AdUnitStore) ReloadAll(ctx context.Context) error {
	if s.pg == nil {
		return nil
	}
	apps, err := s.pg.LoadApps(ctx)
	if err != nil {
		return err
	}
	units, err := s.pg.LoadAdUnits(ctx)
	if err != nil {
		return err
	}

	next := &snapshot{
		apps:    make(map[string]*models.App, len(apps)),
		adUnits: make(map[string]*models.AdUnit, len(units)),
	}
	for i := range apps {
		next.apps[strings.ToLower(apps[i].ID)] = &apps[i]
	}
	for i := range units {
		next.adUnits[strings.ToLower(units[i].ID)] = &units[i]
	}

	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()

	zap.L().Info("configuration reloaded",
		zap.Int("apps", len(apps)),
		zap.Int("ad_units", len(units)))
	return nil
}

// GetAdUnit returns the ad unit with the given ID, case-insensitively.
func (s *AdUnitStore) GetAdUnit(id string) (*models.AdUnit, bool) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	u, ok := snap.adUnits[strings.ToLower(id)]
	return u, ok
}

// GetApp returns the app with the given ID, case-insensitively.
func (s *AdUnitStore) GetApp(id string) (*models.App, bool) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	a, ok := snap.apps[strings.ToLower(id)]
	return a, ok
}

// AdUnits returns every ad unit in the current snapshot.
func (s *AdUnitStore) AdUnits() []*models.AdUnit {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	out := make([]*models.AdUnit, 0, len(snap.adUnits))
	for _, u := range snap.adUnits {
		out = append(out, u)
	}
	return out
}

// Static builds an AdUnitStore preloaded with fixed data and no database
// behind it. Reloads are no-ops. Used in tests and local setups.
func Static(apps []models.App, units []models.AdUnit) *AdUnitStore {
	snap := &snapshot{
		apps:    make(map[string]*models.App, len(apps)),
		adUnits: make(map[string]*models.AdUnit, len(units)),
	}
	for i := range apps {
		snap.apps[strings.ToLower(apps[i].ID)] = &apps[i]
	}
	for i := range units {
		snap.adUnits[strings.ToLower(units[i].ID)] = &units[i]
	}
	return &AdUnitStore{snap: snap}
}
