package social

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/moviecrew/moviecrew/pkg/observability"
)

// CounterSnapshot is one stored counter value, as read from an owning
// entity's record.
type CounterSnapshot struct {
	Counter  Counter
	EntityID string
	Value    int
}

// CounterSource reads all stored counter values for auditing.
type CounterSource interface {
	SnapshotCounters(ctx context.Context) ([]CounterSnapshot, error)
}

// Auditor periodically recomputes the true edge population behind each
// counter and reports drift. It never repairs: divergence is prevented
// at the write boundary, so any drift found here is a bug to surface,
// not state to paper over.
type Auditor struct {
	store   Store
	source  CounterSource
	logger  *observability.Logger
	metrics *observability.Metrics
	cron    *cron.Cron
}

// NewAuditor creates a counter auditor.
func NewAuditor(store Store, source CounterSource, logger *observability.Logger, metrics *observability.Metrics) *Auditor {
	return &Auditor{
		store:   store,
		source:  source,
		logger:  logger,
		metrics: metrics,
		cron:    cron.New(),
	}
}

// Start schedules the audit on the given cron spec (e.g. "@every 5m").
func (a *Auditor) Start(spec string) error {
	_, err := a.cron.AddFunc(spec, func() {
		if _, err := a.Run(context.Background()); err != nil {
			a.logger.WithError(err).Error("counter audit failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule counter audit: %w", err)
	}
	a.cron.Start()
	return nil
}

// Stop halts the scheduled audits.
func (a *Auditor) Stop() {
	a.cron.Stop()
}

// Run performs one audit pass and returns the number of drifting
// counters.
func (a *Auditor) Run(ctx context.Context) (int, error) {
	snapshots, err := a.source.SnapshotCounters(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to snapshot counters: %w", err)
	}

	truth, err := a.trueCounts(ctx)
	if err != nil {
		return 0, err
	}

	drifting := 0
	maxDrift := make(map[Counter]int)
	seen := make(map[counterEntity]bool, len(snapshots))
	for _, snap := range snapshots {
		seen[counterEntity{snap.Counter, snap.EntityID}] = true
		want := truth[counterEntity{snap.Counter, snap.EntityID}]
		drift := snap.Value - want
		if drift < 0 {
			drift = -drift
		}
		if drift > 0 {
			drifting++
			a.logger.WithFields(map[string]interface{}{
				"counter":   string(snap.Counter),
				"entity_id": snap.EntityID,
				"stored":    snap.Value,
				"actual":    want,
			}).Warn("counter drift detected")
		}
		if drift > maxDrift[snap.Counter] {
			maxDrift[snap.Counter] = drift
		}
	}

	// Edges can outlive their entity: deleting a user or group leaves
	// its edges behind, and the vanished record carries no counter for
	// the snapshot loop to compare. Report those populations as drift.
	for key, want := range truth {
		if want == 0 || seen[key] {
			continue
		}
		drifting++
		a.logger.WithFields(map[string]interface{}{
			"counter":   string(key.counter),
			"entity_id": key.entityID,
			"actual":    want,
		}).Warn("edges reference an entity with no counter record")
		if want > maxDrift[key.counter] {
			maxDrift[key.counter] = want
		}
	}

	if a.metrics != nil {
		for _, c := range []Counter{
			CounterGroupMembers, CounterGroupRequests,
			CounterUserFollowers, CounterUserFollowing,
			CounterUserFriends, CounterMovieLikes,
		} {
			a.metrics.CounterDrift.WithLabelValues(string(c)).Set(float64(maxDrift[c]))
		}
	}
	return drifting, nil
}

type counterEntity struct {
	counter  Counter
	entityID string
}

// trueCounts aggregates per-entity contributions over all edges.
func (a *Auditor) trueCounts(ctx context.Context) (map[counterEntity]int, error) {
	truth := make(map[counterEntity]int)
	for _, t := range []EdgeType{EdgeMembership, EdgeFriendship, EdgeFollow, EdgeJoinRequest, EdgeLike} {
		edges, err := a.store.FindEdges(ctx, Filter{Type: t})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s edges: %w", t, err)
		}
		for _, e := range edges {
			for _, d := range contributions(e) {
				truth[counterEntity{d.Counter, d.EntityID}] += d.Delta
			}
		}
	}
	return truth, nil
}
