// Package cache owns the published board snapshot and the background refresh
// loop that rebuilds it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/warner-apps/service-timeclock/timeclock"
)

var snapshotBucket = []byte("snapshot")

const snapshotKey = "latest"

// Snapshot is one complete, immutable board result. Readers get a pointer to
// it and never see a half-built board; a refresh builds a new Snapshot and
// swaps it in whole.
type Snapshot struct {
	Records     []timeclock.TechnicianStatus `json:"data"`
	LastRefresh time.Time                    `json:"last_refresh"`
}

// Source supplies the per-cycle inputs. Implemented by database.Store.
type Source interface {
	FetchRoster(ctx context.Context, branch string) ([]timeclock.TechnicianRosterEntry, error)
	FetchPunchesToday(ctx context.Context, branch string) ([]timeclock.RawPunchRecord, error)
}

// Cache refreshes the board on a fixed interval and serves the latest
// complete snapshot. A failed cycle logs and leaves the previous snapshot in
// place: a stale board beats a blank one.
type Cache struct {
	engine   *timeclock.Engine
	source   Source
	interval time.Duration
	timeout  time.Duration

	snap atomic.Pointer[Snapshot]
	db   *bolt.DB // optional; persists the last good snapshot across restarts
}

// New builds a Cache. boltDB may be nil to skip persistence; when set, any
// snapshot saved by a previous run is loaded so readers have data before the
// first fetch completes.
func New(engine *timeclock.Engine, source Source, interval, timeout time.Duration, boltDB *bolt.DB) *Cache {
	c := &Cache{
		engine:   engine,
		source:   source,
		interval: interval,
		timeout:  timeout,
		db:       boltDB,
	}
	if boltDB != nil {
		if snap, err := loadSnapshot(boltDB); err != nil {
			slog.Warn("could not load persisted snapshot", "error", err)
		} else if snap != nil {
			c.snap.Store(snap)
			slog.Info("restored persisted snapshot", "records", len(snap.Records), "last_refresh", snap.LastRefresh)
		}
	}
	return c
}

// Latest returns the current snapshot, or nil before the first successful
// refresh of a fresh deployment. The returned snapshot must not be modified.
func (c *Cache) Latest() *Snapshot {
	return c.snap.Load()
}

// Run refreshes immediately, then at the configured interval until ctx is
// cancelled. The next cycle is scheduled only after the current one finishes,
// so cycles never overlap. Cancellation prevents further cycles from
// starting; a cycle already in flight finishes on its own fetch timeout.
func (c *Cache) Run(ctx context.Context) {
	slog.Info("starting board refresh loop", "interval", c.interval)
	c.refresh()

	timer := time.NewTimer(c.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("board refresh loop stopped")
			return
		case <-timer.C:
			c.refresh()
			timer.Reset(c.interval)
		}
	}
}

// refresh runs one fetch + aggregate + publish cycle.
func (c *Cache) refresh() {
	runID := uuid.NewString()
	started := time.Now()
	slog.Info("refreshing cached technician data", "run_id", runID)

	snap, err := c.buildSnapshot()
	if err != nil {
		slog.Error("cache refresh failed, keeping previous snapshot", "run_id", runID, "error", err)
		return
	}

	c.snap.Store(snap)
	if c.db != nil {
		if err := saveSnapshot(c.db, snap); err != nil {
			slog.Warn("could not persist snapshot", "run_id", runID, "error", err)
		}
	}
	slog.Info("cache updated", "run_id", runID, "records", len(snap.Records), "took", time.Since(started))
}

// buildSnapshot fetches both sources and aggregates. Any fetch error aborts
// the cycle with nothing published. The board is always built unfiltered;
// branch filtering happens at read time. The timeout bounds both fetches so
// a stuck source cannot stall future cycles.
func (c *Cache) buildSnapshot() (*Snapshot, error) {
	fetchCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	roster, err := c.source.FetchRoster(fetchCtx, "")
	if err != nil {
		return nil, fmt.Errorf("roster fetch: %w", err)
	}
	punches, err := c.source.FetchPunchesToday(fetchCtx, "")
	if err != nil {
		return nil, fmt.Errorf("punch fetch: %w", err)
	}

	return &Snapshot{
		Records:     c.engine.Run(roster, punches, ""),
		LastRefresh: time.Now(),
	}, nil
}

func saveSnapshot(db *bolt.DB, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("error marshalling snapshot: %w", err)
	}
	return db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(snapshotBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(snapshotKey), raw)
	})
}

func loadSnapshot(db *bolt.DB) (*Snapshot, error) {
	var raw []byte
	err := db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(snapshotBucket)
		if bucket == nil {
			return nil
		}
		if v := bucket.Get([]byte(snapshotKey)); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("error unmarshalling persisted snapshot: %w", err)
	}
	return &snap, nil
}
