package icerays

import (
	"fmt"
	"math"
)

// Brent finds t in [a, b] with f(t) = 0 using Brent's method.
// fa and fb must be f(a) and f(b) and must have opposite signs, unless either is fuzzily zero.
func Brent(a, b, fa, fb Real, f func(Real) Real) (Real, error) {
	return brent(a, b, fa, fb, f, MaxRootIterations)
}

func brent(a, b, fa, fb Real, f func(Real) Real, maxIter int) (Real, error) {
	if !isFinite(fa) || !isFinite(fb) {
		return 0, fmt.Errorf("%w: non-finite end values f(%g) = %g, f(%g) = %g", ErrNoConvergence, a, fa, b, fb)
	}
	if fuzzyZero(fa) {
		return a, nil
	}
	if fuzzyZero(fb) {
		return b, nil
	}
	if fa*fb > 0 {
		return 0, &NotBracketedError{A: a, B: b, FA: fa, FB: fb}
	}

	// b is the best estimate, a the opposite-sign end.
	if math.Abs(fa) < math.Abs(fb) {
		a, b = b, a
		fa, fb = fb, fa
	}

	const tol2 = Tolerance * Tolerance
	c, fc := a, fa
	var d Real
	mflag := true

	for it := 0; it < maxIter; it++ {
		var s Real
		if !fuzzyEqual(fa, fc) && !fuzzyEqual(fb, fc) {
			// inverse quadratic interpolation
			s = a * fb * fc / ((fa - fb) * (fa - fc))
			s += b * fa * fc / ((fb - fa) * (fb - fc))
			s += c * fa * fb / ((fc - fa) * (fc - fb))
		} else {
			// secant
			s = b - fb*(b-a)/(fb-fa)
		}

		m := 0.25 * (3*a + b)
		lo, hi := math.Min(m, b), math.Max(m, b)
		if !(s > lo && s < hi) ||
			(mflag && math.Abs(s-b) >= 0.5*math.Abs(b-c)) ||
			(!mflag && math.Abs(s-b) >= 0.5*math.Abs(c-d)) ||
			(mflag && math.Abs(b-c) < tol2) ||
			(!mflag && math.Abs(c-d) < tol2) {
			s = 0.5 * (a + b)
			mflag = true
		} else {
			mflag = false
		}

		fs := f(s)
		if !isFinite(fs) {
			return s, fmt.Errorf("%w: f(%g) = %g", ErrNoConvergence, s, fs)
		}
		d = c
		c, fc = b, fb

		if fa*fs < 0 {
			b, fb = s, fs
		} else {
			a, fa = s, fs
		}
		if math.Abs(fa) < math.Abs(fb) {
			a, b = b, a
			fa, fb = fb, fa
		}

		if fuzzyZero(fb) || math.Abs(b-a) < tol2 {
			return b, nil
		}
		if fuzzyZero(fs) {
			return s, nil
		}
	}
	return b, fmt.Errorf("%w after %d iterations: a=%g b=%g f(a)=%g f(b)=%g",
		ErrNoConvergence, maxIter, a, b, fa, fb)
}
