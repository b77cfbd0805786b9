package icerays

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"runtime"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Vec3Cfg is a point or direction written as [x, y, z].
type Vec3Cfg [3]Real

func (v Vec3Cfg) Vec() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

type DomainCfg struct {
	Min        Vec3Cfg `yaml:"min"`
	Max        Vec3Cfg `yaml:"max"`
	Resolution [3]int  `yaml:"resolution"`
}

// InterfaceCfg describes the initial phase field: plane, sphere or slab.
type InterfaceCfg struct {
	Shape         string  `yaml:"shape"`
	Center        Vec3Cfg `yaml:"center"`
	Normal        Vec3Cfg `yaml:"normal"`         // plane, slab
	Radius        Real    `yaml:"radius"`         // sphere
	HalfThickness Real    `yaml:"half_thickness"` // slab
	Width         Real    `yaml:"width"`          // diffuse interface thickness
}

type OpticsCfg struct {
	RefractiveIndex0     Real   `yaml:"refractive_index_0"`
	RefractiveIndex1     Real   `yaml:"refractive_index_1"`
	PhaseChangeThreshold Real   `yaml:"phase_change_threshold"`
	Attenuation0         []Real `yaml:"attenuation_coefficient_0,omitempty"`
	Attenuation1         []Real `yaml:"attenuation_coefficient_1,omitempty"`
	KillThreshold        []Real `yaml:"kill_threshold,omitempty"` // empty: never kill
	NormalAt             string `yaml:"normal_at"`
	FresnelCosine        string `yaml:"fresnel_cosine"`
}

// StudyCfg selects and parametrises the ray study. Fields of the other type are ignored.
type StudyCfg struct {
	Type string `yaml:"type"` // simple | uniform

	StartPoints []Vec3Cfg `yaml:"start_points,omitempty"`
	Directions  []Vec3Cfg `yaml:"directions,omitempty"`
	Energy      []Real    `yaml:"energy,omitempty"`

	Boundaries []string `yaml:"boundaries,omitempty"`
	Direction  Vec3Cfg  `yaml:"direction"`
	Intensity  []Real   `yaml:"intensity,omitempty"`
	Splits     [][2]int `yaml:"splits,omitempty"`
}

type Config struct {
	Groups        int      `yaml:"groups"`
	Processes     int      `yaml:"processes"`
	Workers       int      `yaml:"workers"`
	SpawnCapacity uint64   `yaml:"spawn_capacity"`
	MaxSegments   int      `yaml:"max_segments"`
	Kernels       []string `yaml:"kernels"`
	OutputDir     string   `yaml:"output_dir"`
	Events        bool     `yaml:"events"`

	Domain    DomainCfg    `yaml:"domain"`
	Interface InterfaceCfg `yaml:"interface"`
	Optics    OpticsCfg    `yaml:"optics"`
	Study     StudyCfg     `yaml:"study"`
}

// LoadConfig reads path over the embedded defaults and validates the result.
// An empty path uses the defaults alone.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Processes <= 0 {
		c.Processes = 1
	}
	if c.SpawnCapacity == 0 {
		c.SpawnCapacity = DefaultCapacity
	}
	if c.MaxSegments <= 0 {
		c.MaxSegments = DefaultMaxSegments
	}
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Groups < 1 {
		errs = append(errs, configErrorf("groups must be >= 1, got %d", c.Groups))
	}
	if c.Workers < 1 {
		errs = append(errs, configErrorf("workers must be >= 1, got %d", c.Workers))
	}
	if c.Processes < 1 {
		errs = append(errs, configErrorf("processes must be >= 1, got %d", c.Processes))
	}
	if _, err := c.KernelOrder(); err != nil {
		errs = append(errs, err)
	}
	grid, err := c.Grid()
	if err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Profile(); err != nil {
		errs = append(errs, err)
	}
	if ic, err := c.InteractionConfig(); err != nil {
		errs = append(errs, err)
	} else if err := ic.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Gate(); err != nil {
		errs = append(errs, err)
	}
	if s, err := c.BuildStudy(); err != nil {
		errs = append(errs, err)
	} else if grid != nil && c.Groups >= 1 {
		if err := s.Validate(c.Groups, grid); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteYAML saves the effective configuration.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func (c *Config) KernelOrder() ([]KernelKind, error) {
	if len(c.Kernels) == 0 {
		return nil, configErrorf("kernels must list at least one kernel")
	}
	order := make([]KernelKind, 0, len(c.Kernels))
	for _, name := range c.Kernels {
		k, err := ParseKernelKind(name)
		if err != nil {
			return nil, err
		}
		order = append(order, k)
	}
	return order, nil
}

func (c *Config) Grid() (*Grid, error) {
	r := c.Domain.Resolution
	return NewGrid(c.Domain.Min.Vec(), c.Domain.Max.Vec(), r[0], r[1], r[2])
}

func (c *Config) Profile() (Profile, error) {
	ic := c.Interface
	if !(ic.Width > 0) {
		return nil, configErrorf("interface width must be > 0, got %g", ic.Width)
	}
	switch ic.Shape {
	case "plane", "slab":
		n := ic.Normal.Vec()
		if r3.Norm(n) == 0 {
			return nil, configErrorf("interface normal must be non-zero")
		}
		if ic.Shape == "plane" {
			return PlaneProfile(ic.Center.Vec(), n, ic.Width), nil
		}
		if !(ic.HalfThickness > 0) {
			return nil, configErrorf("slab half_thickness must be > 0, got %g", ic.HalfThickness)
		}
		return SlabProfile(ic.Center.Vec(), n, ic.HalfThickness, ic.Width), nil
	case "sphere":
		if !(ic.Radius > 0) {
			return nil, configErrorf("sphere radius must be > 0, got %g", ic.Radius)
		}
		return SphereProfile(ic.Center.Vec(), ic.Radius, ic.Width), nil
	}
	return nil, configErrorf("unknown interface shape %q (want plane, sphere or slab)", ic.Shape)
}

func (c *Config) InteractionConfig() (InteractionConfig, error) {
	o := c.Optics
	normalAt, err := ParseNormalSampling(o.NormalAt)
	if err != nil {
		return InteractionConfig{}, err
	}
	fc, err := ParseFresnelCosine(o.FresnelCosine)
	if err != nil {
		return InteractionConfig{}, err
	}
	return InteractionConfig{
		Groups:               c.Groups,
		RefractiveIndex0:     o.RefractiveIndex0,
		RefractiveIndex1:     o.RefractiveIndex1,
		PhaseChangeThreshold: o.PhaseChangeThreshold,
		Attenuation0:         o.Attenuation0,
		Attenuation1:         o.Attenuation1,
		NormalAt:             normalAt,
		FresnelCosine:        fc,
	}, nil
}

// Gate builds the kill threshold gate; nil when no threshold is configured.
func (c *Config) Gate() (*ThresholdGate, error) {
	if len(c.Optics.KillThreshold) == 0 {
		return nil, nil
	}
	return NewThresholdGate(c.Optics.KillThreshold, c.Groups)
}

func (c *Config) BuildStudy() (Study, error) {
	s := c.Study
	switch s.Type {
	case "simple":
		st := &SimpleStudy{Energy: s.Energy}
		for _, p := range s.StartPoints {
			st.StartPoints = append(st.StartPoints, p.Vec())
		}
		for _, d := range s.Directions {
			st.Directions = append(st.Directions, d.Vec())
		}
		return st, nil
	case "uniform":
		st := &UniformStudy{Direction: s.Direction.Vec(), Intensity: s.Intensity, Splits: s.Splits}
		for _, name := range s.Boundaries {
			f, err := ParseFace(name)
			if err != nil {
				return nil, err
			}
			st.Boundaries = append(st.Boundaries, f)
		}
		return st, nil
	}
	return nil, configErrorf("unknown study type %q (want simple or uniform)", s.Type)
}
