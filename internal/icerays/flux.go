package icerays

// FluxKernel accumulates the energy of rays leaving the domain through each face.
// On an edge or corner the energy is shared evenly between the faces hit.
type FluxKernel struct{}

func (FluxKernel) Kind() KernelKind { return KindFlux }

func (FluxKernel) OnSegment(tc *TraceContext, ray *Ray, seg Segment) error {
	if seg.Boundary == nil || !ray.Continue || ray.TrajectoryChanged() {
		return nil
	}
	factor := 1 / Real(len(seg.Boundary.Faces))
	for _, f := range seg.Boundary.Faces {
		tc.Tally.AddFlux(f, ray.Energy, factor)
	}
	return nil
}
