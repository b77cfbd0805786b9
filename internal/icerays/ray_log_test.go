package icerays

import (
	"sync"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestEventLogGroupsByCategory(t *testing.T) {
	l := NewEventLog()
	a := NewRay(1, r3.Vec{}, r3.Vec{X: 1}, []Real{1, 2})
	b := NewRay(2, r3.Vec{}, r3.Vec{Y: 1}, []Real{0.5, 0.5})
	l.Log(Exited, a, r3.Vec{X: 1})
	l.Log(Refract, a, r3.Vec{X: 0.5})
	l.Log(Exited, b, r3.Vec{Y: 1})

	counts := l.Counts()
	if counts[Exited] != 2 || counts[Refract] != 1 || counts[Spawn] != 0 {
		t.Fatalf("counts %v", counts)
	}
	ev := l.Events()
	if len(ev) != 3 {
		t.Fatalf("got %d events", len(ev))
	}
	if ev[0].Category != "refract" || ev[0].X != 0.5 || ev[0].Energy != 3 {
		t.Fatalf("first event %+v", ev[0])
	}
	if ev[1].RayID != 1 || ev[2].RayID != 2 || ev[2].DY != 1 {
		t.Fatalf("exited events out of logging order: %+v %+v", ev[1], ev[2])
	}
}

func TestEventLogConcurrent(t *testing.T) {
	l := NewEventLog()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ray := NewRay(uint64(w), r3.Vec{}, r3.Vec{Z: 1}, []Real{1})
			for i := 0; i < 100; i++ {
				l.Log(Spawn, ray, r3.Vec{})
			}
		}(w)
	}
	wg.Wait()
	if n := l.Counts()[Spawn]; n != 800 {
		t.Fatalf("got %d spawn events, want 800", n)
	}
}

func TestEventLogNil(t *testing.T) {
	var l *EventLog
	l.Log(Killed, NewRay(1, r3.Vec{}, r3.Vec{X: 1}, []Real{1}), r3.Vec{})
	if l.Counts() != nil || l.Events() != nil {
		t.Fatalf("nil log returned data")
	}
}

func TestCategoryString(t *testing.T) {
	cases := map[Category]string{
		Refract:            "refract",
		InternalReflection: "internal_reflection",
		SegmentLimit:       "segment_limit",
		Category(42):       "category(42)",
	}
	for c, want := range cases {
		if got := c.String(); got != want {
			t.Fatalf("Category(%d).String() = %q, want %q", uint8(c), got, want)
		}
	}
	if outcomeCategory(SnellParallel) != Parallel || outcomeCategory(SnellInternalReflection) != InternalReflection ||
		outcomeCategory(SnellRefract) != Refract {
		t.Fatalf("outcomeCategory mapping broken")
	}
}
