package icerays

// Real keeps the numeric type in one place.
type Real = float64

const (
	Tolerance          = 1e-6                  // length scale tolerance; squared for bracket/stall checks
	FuzzyTolerance     = Tolerance * Tolerance // absolute fuzzy equality
	MaxRootIterations  = 200
	DefaultThreshold   = 0.5       // phase change threshold
	DefaultCapacity    = 1_000_000 // rays one worker may spawn in a single pass
	DefaultMaxSegments = 100_000   // per-ray segment guard, like MaxBounces for photons
	DefaultProgress    = 100       // progress records per pass (~1% each)
	NumShards          = 1024
	AuxJustInteracted  = "just_interacted"
	// hot-loop constants reused across segments
	bumpShift    = 1e-9 // relative nudge used to pick the cell a ray enters
	containSlack = 1e-9 // relative slack for element containment
)
