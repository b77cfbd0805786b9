package icerays

// ThresholdGate decides when a ray carries too little energy to be worth tracing.
// A nil gate never kills.
type ThresholdGate struct {
	Threshold []Real
}

// NewThresholdGate validates the per-group kill threshold.
func NewThresholdGate(threshold []Real, groups int) (*ThresholdGate, error) {
	if len(threshold) != groups {
		return nil, configErrorf("kill_threshold must be the length of the number of groups: %d, got %d", groups, len(threshold))
	}
	t := make([]Real, groups)
	copy(t, threshold)
	return &ThresholdGate{Threshold: t}, nil
}

// UnderThreshold reports whether factor*energy[g] <= threshold[g] for every group.
func (g *ThresholdGate) UnderThreshold(ray *Ray, factor Real) bool {
	if g == nil {
		return false
	}
	for i, e := range ray.Energy {
		if factor*e > g.Threshold[i] {
			return false
		}
	}
	return true
}

// ThresholdKernel kills rays whose every group fell under the gate.
type ThresholdKernel struct {
	Gate *ThresholdGate
}

func (k *ThresholdKernel) Kind() KernelKind { return KindThreshold }

func (k *ThresholdKernel) OnSegment(_ *TraceContext, ray *Ray, _ Segment) error {
	if ray.Continue && k.Gate.UnderThreshold(ray, 1) {
		ray.Kill()
	}
	return nil
}
