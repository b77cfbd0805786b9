package icerays

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gocarina/gocsv"
)

// RayRow is one line of rays.csv.
type RayRow struct {
	ID         uint64 `csv:"id"`
	Parent     uint64 `csv:"parent"`
	Generation int    `csv:"generation"`
	Reason     string `csv:"reason"`
	X          Real   `csv:"x"`
	Y          Real   `csv:"y"`
	Z          Real   `csv:"z"`
	DX         Real   `csv:"dx"`
	DY         Real   `csv:"dy"`
	DZ         Real   `csv:"dz"`
	Energy     Real   `csv:"energy"`
	Distance   Real   `csv:"distance"`
}

// FluxRow is one line of flux.csv.
type FluxRow struct {
	Face  string `csv:"face"`
	Group int    `csv:"group"`
	Flux  Real   `csv:"flux"`
}

// DepositionRow is one line of deposition.csv.
type DepositionRow struct {
	Cell       int  `csv:"cell"`
	I          int  `csv:"i"`
	J          int  `csv:"j"`
	K          int  `csv:"k"`
	X          Real `csv:"x"`
	Y          Real `csv:"y"`
	Z          Real `csv:"z"`
	Absorbed   Real `csv:"absorbed"`
	PathEnergy Real `csv:"path_energy"`
}

// OutputManager writes the results of a run into a directory.
// A nil manager (empty dir) writes nothing.
type OutputManager struct {
	dir string
}

// NewOutputManager creates dir. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &OutputManager{dir: dir}, nil
}

func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteRays writes the final state of every traced ray, ordered by id.
func (om *OutputManager) WriteRays(records []RayRecord) error {
	if om == nil {
		return nil
	}
	rows := make([]RayRow, 0, len(records))
	for _, rec := range records {
		r := rec.Ray
		rows = append(rows, RayRow{
			ID:         r.ID,
			Parent:     r.Parent,
			Generation: r.Generation,
			Reason:     rec.Reason.String(),
			X:          r.Position.X,
			Y:          r.Position.Y,
			Z:          r.Position.Z,
			DX:         r.Direction.X,
			DY:         r.Direction.Y,
			DZ:         r.Direction.Z,
			Energy:     r.TotalEnergy(),
			Distance:   r.Distance,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return om.writeCSV("rays.csv", &rows)
}

// WriteFlux writes the boundary flux per face and group.
func (om *OutputManager) WriteFlux(t *Tally) error {
	if om == nil {
		return nil
	}
	rows := make([]FluxRow, 0, int(NumFaces)*t.Groups)
	for f := Face(0); f < NumFaces; f++ {
		for g := 0; g < t.Groups; g++ {
			rows = append(rows, FluxRow{Face: f.String(), Group: g, Flux: t.FluxAt(f, g)})
		}
	}
	return om.writeCSV("flux.csv", &rows)
}

// WriteDeposition writes the per-cell tallies with cell centres.
func (om *OutputManager) WriteDeposition(t *Tally, g *Grid) error {
	if om == nil {
		return nil
	}
	rows := make([]DepositionRow, 0, g.NumCells())
	for id := 0; id < g.NumCells(); id++ {
		c := g.Cell(id)
		lo, hi := c.Bounds()
		rows = append(rows, DepositionRow{
			Cell:       id,
			I:          c.I,
			J:          c.J,
			K:          c.K,
			X:          0.5 * (lo.X + hi.X),
			Y:          0.5 * (lo.Y + hi.Y),
			Z:          0.5 * (lo.Z + hi.Z),
			Absorbed:   t.Absorbed[id],
			PathEnergy: t.PathEnergy[id],
		})
	}
	return om.writeCSV("deposition.csv", &rows)
}

// WriteEvents writes the event log; nothing is written when it is nil.
func (om *OutputManager) WriteEvents(l *EventLog) error {
	if om == nil || l == nil {
		return nil
	}
	events := l.Events()
	return om.writeCSV("events.csv", &events)
}

// WriteMetrics dumps the metrics registry in the Prometheus text format.
func (om *OutputManager) WriteMetrics(m *Metrics) error {
	if om == nil || m == nil {
		return nil
	}
	if err := m.WriteTextfile(filepath.Join(om.dir, "metrics.prom")); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

func (om *OutputManager) writeCSV(name string, rows any) error {
	f, err := os.Create(filepath.Join(om.dir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if err := gocsv.MarshalFile(rows, f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return f.Close()
}
