package icerays

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// RetireReason says why a ray stopped being traced.
type RetireReason uint8

const (
	RetireExited RetireReason = iota
	RetireKilled
	RetireSegmentLimit
)

func (r RetireReason) String() string {
	switch r {
	case RetireExited:
		return "exited"
	case RetireKilled:
		return "killed"
	case RetireSegmentLimit:
		return "segment_limit"
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// RayRecord is the final state of a traced ray.
type RayRecord struct {
	Ray    *Ray
	Reason RetireReason
}

// Tracer walks rays cell by cell through a Grid and runs the kernel pipeline on every segment.
type Tracer struct {
	Grid        *Grid
	Fields      FieldSource
	Pipeline    Pipeline
	Tally       *Tally
	Metrics     *Metrics
	Events      *EventLog
	Logger      *slog.Logger
	MaxSegments int // per ray; <= 0 means DefaultMaxSegments
}

// Trace traces rays with one worker per context of alloc. Each worker owns a slice of the
// input rays plus every ray it spawns, and draws spawned ids from its own block.
// The first kernel error stops all workers.
func (t *Tracer) Trace(ctx context.Context, rays []*Ray, alloc *IdentityAllocator) ([]RayRecord, error) {
	workers := alloc.Contexts()
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "tracer"))

	total := int64(len(rays))
	nextPrint := int64(1)
	if total >= DefaultProgress {
		nextPrint = total / DefaultProgress
	}
	var done atomic.Int64

	results := make([][]RayRecord, workers)
	g, ctx := errgroup.WithContext(ctx)
	base, rem := len(rays)/workers, len(rays)%workers
	lo := 0
	for w := 0; w < workers; w++ {
		n := base
		if w < rem {
			n++
		}
		queue := append([]*Ray(nil), rays[lo:lo+n]...)
		lo += n
		wid := w
		g.Go(func() error {
			tc := &TraceContext{
				Worker:  wid,
				Block:   alloc.Block(wid),
				Fields:  t.Fields,
				Tally:   t.Tally,
				Metrics: t.Metrics,
				Events:  t.Events,
				Logger:  logger.With(slog.Int("worker", wid)),
			}
			var recs []RayRecord
			for len(queue) > 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
				r := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				reason, err := t.traceRay(tc, r)
				if err != nil {
					return err
				}
				recs = append(recs, RayRecord{Ray: r, Reason: reason})
				queue = append(queue, tc.takeSpawned()...)
				if r.Generation == 0 {
					if fired := done.Add(1); fired%nextPrint == 0 {
						logger.Info("progress", slog.String("done", fmt.Sprintf("%.2f%%", float64(fired)*100/float64(total))))
					}
				}
			}
			results[wid] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []RayRecord
	for _, recs := range results {
		out = append(out, recs...)
	}
	return out, nil
}

// traceRay follows one ray until it leaves the domain, is killed or hits the segment limit.
func (t *Tracer) traceRay(tc *TraceContext, ray *Ray) (RetireReason, error) {
	limit := t.MaxSegments
	if limit <= 0 {
		limit = DefaultMaxSegments
	}
	for n := 0; ; n++ {
		if !ray.Continue {
			return t.retire(tc, ray, RetireKilled, Killed), nil
		}
		if n >= limit {
			tc.Logger.Debug("segment limit", slog.Uint64("ray", ray.ID), slog.Int("segments", n))
			return t.retire(tc, ray, RetireSegmentLimit, SegmentLimit), nil
		}
		cell, ok := t.Grid.Locate(ray.Position, ray.Direction)
		if !ok {
			return t.retire(tc, ray, RetireExited, Exited), nil
		}
		start, dir := ray.Position, ray.Direction
		length := cell.exit(start, dir)
		end := along(start, dir, length)
		seg := Segment{Start: start, End: end, Elem: cell}
		if faces := t.Grid.BoundaryFaces(end, dir); len(faces) > 0 {
			seg.Boundary = &BoundaryHit{Faces: faces}
		}

		ray.resetTrajectoryChanged()
		tc.Metrics.segment()
		if err := t.Pipeline.OnSegment(tc, ray, seg); err != nil {
			return 0, err
		}

		if ray.TrajectoryChanged() {
			ray.Distance += dist(start, ray.Position)
			continue
		}
		ray.Distance += length
		ray.Position = end
		if seg.Boundary != nil && ray.Continue {
			return t.retire(tc, ray, RetireExited, Exited), nil
		}
		if length == 0 {
			// stuck on a face the nudge cannot get past; step over it
			ray.Position = along(end, dir, bumpShift*r3.Norm(t.Grid.CellSize()))
		}
	}
}

func (t *Tracer) retire(tc *TraceContext, ray *Ray, reason RetireReason, c Category) RetireReason {
	tc.Metrics.retire(reason)
	tc.Events.Log(c, ray, ray.Position)
	return reason
}
