package icerays

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// NormalSampling selects where the interface normal (unit phase gradient) is evaluated.
type NormalSampling uint8

const (
	NormalAtCrossing NormalSampling = iota
	NormalAtEnd
	NormalAtMidpoint
)

// ParseNormalSampling maps "crossing", "end" or "midpoint"; empty means crossing.
func ParseNormalSampling(s string) (NormalSampling, error) {
	switch s {
	case "", "crossing":
		return NormalAtCrossing, nil
	case "end":
		return NormalAtEnd, nil
	case "midpoint":
		return NormalAtMidpoint, nil
	}
	return 0, configErrorf("normal_at must be crossing, end or midpoint, got %q", s)
}

// FresnelCosine selects the direction whose angle with the normal enters the Fresnel
// coefficient next to the incident one.
type FresnelCosine uint8

const (
	FresnelReflected FresnelCosine = iota // mirror direction, the reference model
	FresnelRefracted                      // transmitted direction
)

// ParseFresnelCosine maps "reflected" or "refracted"; empty means reflected.
func ParseFresnelCosine(s string) (FresnelCosine, error) {
	switch s {
	case "", "reflected":
		return FresnelReflected, nil
	case "refracted":
		return FresnelRefracted, nil
	}
	return 0, configErrorf("fresnel_cosine must be reflected or refracted, got %q", s)
}

// InteractionConfig holds the optical properties of the two phases.
// Phase 0 is where the field is below PhaseChangeThreshold.
type InteractionConfig struct {
	Groups               int
	RefractiveIndex0     Real
	RefractiveIndex1     Real
	PhaseChangeThreshold Real
	Attenuation0         []Real // defaults to 0 for every group
	Attenuation1         []Real // defaults to 1 for every group
	NormalAt             NormalSampling
	FresnelCosine        FresnelCosine
}

func (c InteractionConfig) Validate() error {
	switch {
	case c.Groups < 1:
		return configErrorf("interaction needs at least one energy group, got %d", c.Groups)
	case !(c.RefractiveIndex0 > 0) || !(c.RefractiveIndex1 > 0):
		return configErrorf("refractive indices must be > 0, got %g and %g", c.RefractiveIndex0, c.RefractiveIndex1)
	case c.RefractiveIndex0 == c.RefractiveIndex1:
		return configErrorf("refractive_index_0 and refractive_index_1 must differ, both are %g", c.RefractiveIndex0)
	case !isFinite(c.PhaseChangeThreshold):
		return configErrorf("phase_change_threshold must be finite, got %g", c.PhaseChangeThreshold)
	}
	for _, att := range []struct {
		name string
		mu   []Real
	}{
		{"attenuation_coefficient_0", c.Attenuation0},
		{"attenuation_coefficient_1", c.Attenuation1},
	} {
		if att.mu == nil {
			continue
		}
		if len(att.mu) != c.Groups {
			return configErrorf("%s must be the length of the number of groups: %d, got %d", att.name, c.Groups, len(att.mu))
		}
		for g, v := range att.mu {
			if v < 0 || !isFinite(v) {
				return configErrorf("%s[%d] must be a finite non-negative number, got %g", att.name, g, v)
			}
		}
	}
	return nil
}

// Interaction describes what the engine did on one segment.
type Interaction struct {
	Crossed    bool
	Outcome    SnellOutcome
	Point      r3.Vec
	Normal     r3.Vec // oriented against the incident direction
	R          Real   // reflection coefficient, REFRACT only
	Spawned    *Ray
	Suppressed bool // REFRACT whose reflected part was under the kill threshold
}

// InteractionEngine refracts, reflects and attenuates rays at the phase interface.
type InteractionEngine struct {
	cfg  InteractionConfig
	gate *ThresholdGate
}

// NewInteractionEngine validates cfg and fills default attenuation coefficients.
// gate may be nil, in which case no ray is ever killed and every reflection is spawned.
func NewInteractionEngine(cfg InteractionConfig, gate *ThresholdGate) (*InteractionEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gate != nil && len(gate.Threshold) != cfg.Groups {
		return nil, configErrorf("kill threshold has %d groups, interaction has %d", len(gate.Threshold), cfg.Groups)
	}
	if cfg.Attenuation0 == nil {
		cfg.Attenuation0 = make([]Real, cfg.Groups)
	}
	if cfg.Attenuation1 == nil {
		cfg.Attenuation1 = make([]Real, cfg.Groups)
		for g := range cfg.Attenuation1 {
			cfg.Attenuation1[g] = 1
		}
	}
	return &InteractionEngine{cfg: cfg, gate: gate}, nil
}

func (e *InteractionEngine) Kind() KernelKind { return KindInteraction }

func (e *InteractionEngine) OnSegment(tc *TraceContext, ray *Ray, seg Segment) error {
	_, err := e.Interact(tc, ray, seg)
	return err
}

// Interact runs the interface protocol for one segment of ray and reports what happened.
func (e *InteractionEngine) Interact(tc *TraceContext, ray *Ray, seg Segment) (Interaction, error) {
	var in Interaction
	if !ray.Continue {
		return in, nil
	}
	if e.gate.UnderThreshold(ray, 1) {
		ray.Kill()
		return in, nil
	}

	thr := e.cfg.PhaseChangeThreshold
	sampler := tc.Fields.Sampler(seg.Elem)
	startV, endV := sampler.Value(seg.Start), sampler.Value(seg.End)
	startAt, endAt := fuzzyEqual(startV, thr), fuzzyEqual(endV, thr)

	// The previous segment ended on this ray's crossing; only travel is left to account for.
	// startV is within roundoff of the threshold here, so the phase comes from the end.
	if ray.Aux.Get(AuxJustInteracted) != 0 {
		ray.ClearAux(AuxJustInteracted)
		phase0 := endV < thr
		if endAt {
			phase0 = startV < thr
		}
		e.attenuate(tc, ray, seg.Start, seg.End, e.mu(phase0), seg.Elem)
		return in, nil
	}

	// A crossing exactly at the end point belongs to the next segment, which then starts on
	// the interface and arrives from the side opposite its end.
	startPhase0 := startV < thr
	crosses := !endAt && (startAt || startPhase0 != (endV < thr))
	if startAt && !endAt {
		startPhase0 = endV >= thr
	}
	mu := e.mu(startPhase0)
	if !crosses {
		e.attenuate(tc, ray, seg.Start, seg.End, mu, seg.Elem)
		e.regate(ray)
		return in, nil
	}

	point, err := e.crossingPoint(sampler, seg, startV, endV)
	if err != nil {
		return in, err
	}
	d := ray.Direction
	normal := unit(sampler.Gradient(e.normalPoint(seg, point)))
	if r3.Norm(normal) == 0 || !vecFinite(normal) {
		// flat field: no surface to interact with
		e.attenuate(tc, ray, seg.Start, seg.End, mu, seg.Elem)
		e.regate(ray)
		return in, nil
	}
	normal = OrientNormal(normal, d)
	n1, n2 := e.cfg.RefractiveIndex1, e.cfg.RefractiveIndex0
	if startPhase0 {
		n1, n2 = e.cfg.RefractiveIndex0, e.cfg.RefractiveIndex1
	}

	e.attenuate(tc, ray, seg.Start, point, mu, seg.Elem)

	outcome, refracted := Snell(d, normal, n1, n2)
	reflected := ReflectedDirection(d, normal)
	in = Interaction{Crossed: true, Outcome: outcome, Point: point, Normal: normal}

	switch outcome {
	case SnellInternalReflection:
		ray.ChangeTrajectory(point, reflected)
	case SnellParallel:
		ray.ChangeTrajectory(point, refracted)
	case SnellRefract:
		ray.ChangeTrajectory(point, refracted)
		other := reflected
		if e.cfg.FresnelCosine == FresnelRefracted {
			other = refracted
		}
		in.R = ReflectionCoefficient(d, other, normal, n1, n2)
		if e.gate.UnderThreshold(ray, in.R) {
			ray.ScaleEnergy(1 - in.R)
			in.Suppressed = true
			tc.Metrics.suppress()
			tc.Events.Log(Suppressed, ray, point)
		} else {
			id, err := tc.Block.Next()
			if err != nil {
				return in, err
			}
			child := ray.split(id, point, reflected, in.R)
			child.Distance += dist(seg.Start, point)
			child.SetAux(AuxJustInteracted, 1)
			tc.Spawn(child)
			in.Spawned = child
		}
	}
	ray.SetAux(AuxJustInteracted, 1)
	tc.Metrics.interaction(outcome)
	tc.Events.Log(outcomeCategory(outcome), ray, point)
	e.regate(ray)
	return in, nil
}

// crossingPoint locates where the field equals the threshold on the segment.
func (e *InteractionEngine) crossingPoint(s FieldSampler, seg Segment, startV, endV Real) (r3.Vec, error) {
	thr := e.cfg.PhaseChangeThreshold
	if fuzzyEqual(startV, thr) {
		return seg.Start, nil
	}
	delta := r3.Sub(seg.End, seg.Start)
	f := func(t Real) Real { return s.Value(along(seg.Start, delta, t)) - thr }
	t, err := Brent(0, 1, startV-thr, endV-thr, f)
	if err != nil {
		return r3.Vec{}, err
	}
	return along(seg.Start, delta, t), nil
}

func (e *InteractionEngine) normalPoint(seg Segment, crossing r3.Vec) r3.Vec {
	switch e.cfg.NormalAt {
	case NormalAtEnd:
		return seg.End
	case NormalAtMidpoint:
		return r3.Scale(0.5, r3.Add(seg.Start, seg.End))
	}
	return crossing
}

// attenuate applies Beer-Lambert absorption between two points and deposits the loss.
// Group 0's coefficient is applied to every group, matching the reference model.
func (e *InteractionEngine) attenuate(tc *TraceContext, ray *Ray, from, to r3.Vec, mu []Real, elem Element) {
	a := math.Exp(-dist(from, to) * mu[0])
	if a == 1 {
		return
	}
	before := ray.TotalEnergy()
	ray.ScaleEnergy(a)
	tc.Tally.AddAbsorbed(elem.ID(), before*(1-a))
}

func (e *InteractionEngine) mu(phase0 bool) []Real {
	if phase0 {
		return e.cfg.Attenuation0
	}
	return e.cfg.Attenuation1
}

func (e *InteractionEngine) regate(ray *Ray) {
	if e.gate.UnderThreshold(ray, 1) {
		ray.Kill()
	}
}
