package icerays

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

func isFinite(x Real) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) }

// fuzzyEqual is the absolute fuzzy equality shared by the whole package.
func fuzzyEqual(a, b Real) bool { return scalar.EqualWithinAbs(a, b, FuzzyTolerance) }

func fuzzyZero(x Real) bool { return fuzzyEqual(x, 0) }
