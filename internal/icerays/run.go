package icerays

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunSummary is the outcome of one pass, reduced over all processes.
type RunSummary struct {
	RunID           string
	Processes       int
	Workers         int
	Generated       int
	Spawned         uint64
	Exited          int
	Killed          int
	SegmentLimit    int
	InitialEnergy   Real
	TotalAbsorbed   Real
	TotalFlux       Real
	TotalPathEnergy Real
	Elapsed         time.Duration
}

// LogValue implements slog.LogValuer for structured logging.
func (s RunSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run_id", s.RunID),
		slog.Int("processes", s.Processes),
		slog.Int("workers", s.Workers),
		slog.Int("generated", s.Generated),
		slog.Uint64("spawned", s.Spawned),
		slog.Int("exited", s.Exited),
		slog.Int("killed", s.Killed),
		slog.Int("segment_limit", s.SegmentLimit),
		slog.Float64("initial_energy", s.InitialEnergy),
		slog.Float64("absorbed", s.TotalAbsorbed),
		slog.Float64("flux", s.TotalFlux),
		slog.Float64("path_energy", s.TotalPathEnergy),
		slog.Duration("elapsed", s.Elapsed),
	)
}

// RunResult holds everything a pass produced.
type RunResult struct {
	Summary RunSummary
	Records []RayRecord
	Tally   *Tally // reduced over all processes
	Metrics *Metrics
	Events  *EventLog // nil unless events are enabled
}

// Run loads the configuration at cfgPath, traces it and writes the outputs.
func Run(cfgPath string) error {
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	logger := slog.Default()
	logger.Debug("loaded config", slog.String("path", cfgPath), slog.Int("groups", cfg.Groups),
		slog.Int("processes", cfg.Processes), slog.Int("workers", cfg.Workers))
	res, err := RunConfig(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("run finished", slog.Any("summary", res.Summary))
	return nil
}

// RunConfig traces one pass of cfg. Processes are simulated by goroutines sharing a
// LocalCluster; each owns its rays, allocator and tally until the final reduction.
func RunConfig(ctx context.Context, cfg *Config, logger *slog.Logger) (*RunResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grid, err := cfg.Grid()
	if err != nil {
		return nil, err
	}
	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}
	ic, err := cfg.InteractionConfig()
	if err != nil {
		return nil, err
	}
	gate, err := cfg.Gate()
	if err != nil {
		return nil, err
	}
	study, err := cfg.BuildStudy()
	if err != nil {
		return nil, err
	}
	order, err := cfg.KernelOrder()
	if err != nil {
		return nil, err
	}
	engine, err := NewInteractionEngine(ic, gate)
	if err != nil {
		return nil, err
	}
	pipeline, err := NewPipeline(order, map[KernelKind]Kernel{
		KindThreshold:   &ThresholdKernel{Gate: gate},
		KindInteraction: engine,
		KindDeposition:  DepositionKernel{},
		KindFlux:        FluxKernel{},
	})
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger = logger.With(slog.String("run_id", runID))
	res := &RunResult{Metrics: NewMetrics()}
	if cfg.Events {
		res.Events = NewEventLog()
	}
	field := NewNodalField(grid, profile)

	var comms []Communicator
	if cfg.Processes == 1 {
		comms = []Communicator{SerialComm{}}
	} else {
		comms = NewLocalCluster(cfg.Processes)
	}

	type rankResult struct {
		records   []RayRecord
		generated int
		spawned   uint64
		energy    Real
		tally     *Tally
		err       error
	}
	results := make([]rankResult, len(comms))
	start := time.Now()
	var wg sync.WaitGroup
	for r, comm := range comms {
		wg.Add(1)
		go func(r int, comm Communicator) {
			defer wg.Done()
			out := &results[r]
			rlog := logger.With(slog.Int("rank", r))
			rays, localMax := study.Generate(comm, grid)
			out.generated = len(rays)
			for _, ray := range rays {
				out.energy += ray.TotalEnergy()
			}
			res.Metrics.generate(len(rays))
			rlog.Debug("generated rays", slog.Int("rays", len(rays)), slog.Uint64("max_id", localMax))

			alloc, err := NewIdentityAllocator(comm, localMax, cfg.Workers, cfg.SpawnCapacity)
			if err != nil {
				// every rank sees the same reduced max and fails together
				out.err = err
				return
			}
			out.tally = NewTally(grid.NumCells(), cfg.Groups)
			tracer := &Tracer{
				Grid:        grid,
				Fields:      field,
				Pipeline:    pipeline,
				Tally:       out.tally,
				Metrics:     res.Metrics,
				Events:      res.Events,
				Logger:      rlog,
				MaxSegments: cfg.MaxSegments,
			}
			out.records, out.err = tracer.Trace(ctx, rays, alloc)
			out.spawned = alloc.Spawned()
			// the reduction is collective, so a failed rank still takes part
			out.tally.Reduce(comm)
		}(r, comm)
	}
	wg.Wait()

	var errs []error
	for r, out := range results {
		if out.err != nil {
			errs = append(errs, fmt.Errorf("rank %d: %w", r, out.err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	s := RunSummary{RunID: runID, Processes: len(comms), Workers: cfg.Workers, Elapsed: time.Since(start)}
	for _, out := range results {
		res.Records = append(res.Records, out.records...)
		s.Generated += out.generated
		s.Spawned += out.spawned
		s.InitialEnergy += out.energy
	}
	for _, rec := range res.Records {
		switch rec.Reason {
		case RetireExited:
			s.Exited++
		case RetireKilled:
			s.Killed++
		case RetireSegmentLimit:
			s.SegmentLimit++
		}
	}
	res.Tally = results[0].tally
	s.TotalAbsorbed = res.Tally.TotalAbsorbed()
	s.TotalFlux = res.Tally.TotalFlux()
	s.TotalPathEnergy = res.Tally.TotalPathEnergy()
	res.Summary = s

	if err := writeOutputs(cfg, grid, res); err != nil {
		return nil, err
	}
	return res, nil
}

func writeOutputs(cfg *Config, grid *Grid, res *RunResult) error {
	om, err := NewOutputManager(cfg.OutputDir)
	if err != nil || om == nil {
		return err
	}
	for _, write := range []func() error{
		func() error { return om.WriteConfig(cfg) },
		func() error { return om.WriteRays(res.Records) },
		func() error { return om.WriteFlux(res.Tally) },
		func() error { return om.WriteDeposition(res.Tally, grid) },
		func() error { return om.WriteEvents(res.Events) },
		func() error { return om.WriteMetrics(res.Metrics) },
	} {
		if err := write(); err != nil {
			return err
		}
	}
	return nil
}
