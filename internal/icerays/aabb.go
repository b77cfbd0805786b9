package icerays

import "gonum.org/v1/gonum/spatial/r3"

type rayRecips struct {
	inv [3]Real
	par [3]bool // parallel flags (|D| < eps)
}

func newRayRecips(d r3.Vec) rayRecips {
	const eps = 1e-12
	var rr rayRecips
	for a := 0; a < 3; a++ {
		c := component(d, a)
		if c > -eps && c < eps {
			rr.par[a] = true
			continue
		}
		rr.inv[a] = 1 / c
	}
	return rr
}

// rayAABB returns the entry and exit parameters of the ray O + t*D against the box.
func rayAABB(O, minP, maxP r3.Vec, rr rayRecips) (bool, Real, Real) {
	tmin, tmax := -1e300, 1e300
	for a := 0; a < 3; a++ {
		o, lo, hi := component(O, a), component(minP, a), component(maxP, a)
		if rr.par[a] {
			if o < lo || o > hi {
				return false, 0, 0
			}
			continue
		}
		t1 := (lo - o) * rr.inv[a]
		t2 := (hi - o) * rr.inv[a]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}
	if tmax < 0 || tmin > tmax {
		return false, 0, 0
	}
	return true, tmin, tmax
}
