// Package ingest runs the fetch→normalize→upsert→diff→persist cycle
// against the temporal store, on a timer or on demand.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/banshee-data/orbit.report/internal/catalog"
	"github.com/banshee-data/orbit.report/internal/db"
	"github.com/banshee-data/orbit.report/internal/detect"
)

// CycleSummary reports the outcome of one ingestion cycle.
type CycleSummary struct {
	StartedAt time.Time
	Processed int // objects upserted with a snapshot appended
	Skipped   int // malformed or duplicate records dropped
	Failed    int // per-object write failures (constraint violations)
	Maneuvers int // maneuver events persisted
	Err       error
}

// Orchestrator executes ingestion cycles. It is the only writer of
// lineage records; tracked objects and snapshots are written from
// catalog client output, maneuver events from the detector's verdicts.
type Orchestrator struct {
	Client     *catalog.Client
	DB         *db.DB
	Source     string
	Thresholds detect.Thresholds
}

// NewOrchestrator wires a catalog client and store into an orchestrator.
func NewOrchestrator(client *catalog.Client, database *db.DB, source string) *Orchestrator {
	return &Orchestrator{
		Client:     client,
		DB:         database,
		Source:     source,
		Thresholds: detect.DefaultThresholds(),
	}
}

// RunCycle executes one full pass. A total fetch failure aborts the
// cycle before any database write; per-record problems are counted and
// contained. Exactly one lineage record is written per attempt, success
// or failure.
func (o *Orchestrator) RunCycle(ctx context.Context) CycleSummary {
	summary := CycleSummary{StartedAt: time.Now().UTC()}

	log.Printf("fetching catalog data from %s", o.Client.URL)
	result, err := o.Client.FetchAll(ctx)
	if err != nil {
		summary.Err = err
		o.writeLineage(ctx, &summary, "")
		return summary
	}
	log.Printf("retrieved %d catalog records (%d skipped upstream)", len(result.Records), result.Skipped)
	summary.Skipped = result.Skipped

	// One snapshot per object per cycle: drop in-batch duplicates of
	// the same catalog id (first occurrence wins).
	seen := make(map[int64]bool, len(result.Records))

	for _, rec := range result.Records {
		// Graceful drain: stop between objects, never mid-write.
		if ctx.Err() != nil {
			summary.Err = ctx.Err()
			break
		}

		if seen[rec.Object.NoradID] {
			summary.Skipped++
			continue
		}
		seen[rec.Object.NoradID] = true

		maneuvered, err := o.processRecord(ctx, rec)
		if err != nil {
			if errors.Is(err, db.ErrConstraint) {
				// This object's write is lost; the batch continues.
				summary.Failed++
				log.Printf("object %d write failed: %v", rec.Object.NoradID, err)
				continue
			}
			// Anything else is a store-level failure; abort the cycle.
			summary.Err = fmt.Errorf("%w: %v", db.ErrUnavailable, err)
			break
		}
		summary.Processed++
		if maneuvered {
			summary.Maneuvers++
		}
	}

	o.writeLineage(ctx, &summary, result.ContentHash)

	if summary.Err != nil {
		log.Printf("cycle aborted: %v (processed %d, skipped %d, failed %d)",
			summary.Err, summary.Processed, summary.Skipped, summary.Failed)
	} else {
		log.Printf("cycle complete: %d objects, %d maneuvers, %d skipped, %d failed",
			summary.Processed, summary.Maneuvers, summary.Skipped, summary.Failed)
	}
	return summary
}

// processRecord upserts one object, compares its new elements against
// the most recent stored snapshot, and commits the snapshot (plus any
// maneuver event) as a single transaction. Returns whether a maneuver
// was recorded.
func (o *Orchestrator) processRecord(ctx context.Context, rec catalog.Record) (bool, error) {
	obj := &db.TrackedObject{
		NoradID:    rec.Object.NoradID,
		SourceID:   rec.Object.SourceID,
		Name:       rec.Object.Name,
		Country:    rec.Object.Country,
		Operator:   rec.Object.Operator,
		OrbitClass: rec.Object.OrbitClass,
		Mission:    rec.Object.Mission,
		Payload:    rec.Object.Payload,
		Launched:   rec.Object.Launched,
		Decayed:    rec.Object.Decayed,
	}
	if err := o.DB.UpsertObject(ctx, obj); err != nil {
		return false, err
	}

	// The prior snapshot is read before the new one is written and
	// passed to the detector by value, so classification is a pure
	// function of exactly two inputs.
	prev, err := o.DB.LatestSnapshot(ctx, obj.ID)
	if err != nil {
		return false, err
	}

	snap := &db.ElementSnapshot{
		ObjectID:      obj.ID,
		Epoch:         rec.Elements.Epoch,
		Line1:         rec.Elements.Line1,
		Line2:         rec.Elements.Line2,
		SemiMajorAxis: rec.Elements.SemiMajorAxis,
		Eccentricity:  rec.Elements.Eccentricity,
		Inclination:   rec.Elements.Inclination,
		RAAN:          rec.Elements.RAAN,
		ArgPerigee:    rec.Elements.ArgPerigee,
		MeanAnomaly:   rec.Elements.MeanAnomaly,
		CollectedAt:   time.Now().UTC(),
		Source:        o.Source,
	}

	outcome := detect.Classify(snapshotElements(prev), detect.Elements{
		SemiMajorAxis: snap.SemiMajorAxis,
		Eccentricity:  snap.Eccentricity,
		Inclination:   snap.Inclination,
	}, o.Thresholds)

	var event *db.ManeuverEvent
	if outcome.Classification == detect.Maneuver {
		cand := outcome.Candidate
		event = &db.ManeuverEvent{
			DetectedAt:     snap.CollectedAt,
			DeltaA:         cand.DeltaA,
			DeltaE:         cand.DeltaE,
			DeltaI:         cand.DeltaI,
			Confidence:     cand.Confidence,
			Classification: cand.Class,
		}
	}

	if err := o.DB.CommitObservation(ctx, snap, event); err != nil {
		return false, err
	}
	return event != nil, nil
}

// writeLineage records the cycle attempt. Lineage is best-effort when
// the store itself is the failure: the error is logged, not escalated.
func (o *Orchestrator) writeLineage(ctx context.Context, summary *CycleSummary, contentHash string) {
	rec := &db.LineageRecord{
		Source:            o.Source,
		StartedAt:         summary.StartedAt,
		RecordsProcessed:  summary.Processed,
		RecordsSkipped:    summary.Skipped,
		ManeuversDetected: summary.Maneuvers,
		ResponseHash:      contentHash,
	}
	if summary.Err != nil {
		msg := summary.Err.Error()
		rec.Error = &msg
	}

	// Use a fresh context so a cancelled cycle still gets its audit row.
	lineageCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := o.DB.InsertLineage(lineageCtx, rec); err != nil {
		log.Printf("failed to write lineage record: %v", err)
	}
}

func snapshotElements(snap *db.ElementSnapshot) *detect.Elements {
	if snap == nil {
		return nil
	}
	return &detect.Elements{
		SemiMajorAxis: snap.SemiMajorAxis,
		Eccentricity:  snap.Eccentricity,
		Inclination:   snap.Inclination,
	}
}
