package icerays

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

type Category uint8

const (
	Refract            Category = iota // crossed the interface and refracted
	Parallel                           // crossed at normal incidence
	InternalReflection                 // total internal reflection
	Spawn                              // reflected ray created
	Suppressed                         // reflected ray under the kill threshold, not created
	Killed                             // ray under the kill threshold
	Exited                             // ray left the domain
	SegmentLimit                       // ray hit the segment limit
)

var categoryNames = []string{"refract", "parallel", "internal_reflection", "spawn", "suppressed", "killed", "exited", "segment_limit"}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

func outcomeCategory(o SnellOutcome) Category {
	switch o {
	case SnellParallel:
		return Parallel
	case SnellInternalReflection:
		return InternalReflection
	}
	return Refract
}

// RayEvent is one logged event; it doubles as the events.csv row.
type RayEvent struct {
	Category string `csv:"category"`
	RayID    uint64 `csv:"ray"`
	Parent   uint64 `csv:"parent"`
	X        Real   `csv:"x"`
	Y        Real   `csv:"y"`
	Z        Real   `csv:"z"`
	DX       Real   `csv:"dx"`
	DY       Real   `csv:"dy"`
	DZ       Real   `csv:"dz"`
	Energy   Real   `csv:"energy"`
	Distance Real   `csv:"distance"`
}

// EventLog caches ray events by category. A nil *EventLog drops everything.
type EventLog struct {
	mu     sync.Mutex
	events map[Category][]RayEvent
}

func NewEventLog() *EventLog {
	return &EventLog{events: make(map[Category][]RayEvent)}
}

// Log records an event for ray at point.
func (l *EventLog) Log(c Category, ray *Ray, point r3.Vec) {
	if l == nil {
		return
	}
	ev := RayEvent{
		Category: c.String(),
		RayID:    ray.ID,
		Parent:   ray.Parent,
		X:        point.X,
		Y:        point.Y,
		Z:        point.Z,
		DX:       ray.Direction.X,
		DY:       ray.Direction.Y,
		DZ:       ray.Direction.Z,
		Energy:   ray.TotalEnergy(),
		Distance: ray.Distance,
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[c] = append(l.events[c], ev)
}

// Counts returns the number of events per category.
func (l *EventLog) Counts() map[Category]int {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[Category]int, len(l.events))
	for c, evs := range l.events {
		out[c] = len(evs)
	}
	return out
}

// Events returns all events grouped by category, in logging order within a category.
func (l *EventLog) Events() []RayEvent {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cats := make([]Category, 0, len(l.events))
	for c := range l.events {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	var out []RayEvent
	for _, c := range cats {
		out = append(out, l.events[c]...)
	}
	return out
}
