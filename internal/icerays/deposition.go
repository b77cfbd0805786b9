package icerays

// DepositionKernel adds distance * total energy of the ray to the element it traverses.
// When another kernel redirected the ray in this segment only the part up to the new
// start point counts; the rest is traced as the next segment.
type DepositionKernel struct{}

func (DepositionKernel) Kind() KernelKind { return KindDeposition }

func (DepositionKernel) OnSegment(tc *TraceContext, ray *Ray, seg Segment) error {
	if !ray.Continue {
		return nil
	}
	d := seg.Length()
	if ray.TrajectoryChanged() {
		d = dist(seg.Start, ray.Position)
	}
	tc.Tally.AddPathEnergy(seg.Elem.ID(), d*ray.TotalEnergy())
	return nil
}
