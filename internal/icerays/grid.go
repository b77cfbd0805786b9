package icerays

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Face identifies one of the six planar boundaries of the grid domain.
type Face uint8

const (
	FaceLeft   Face = iota // x = min
	FaceRight              // x = max
	FaceBottom             // y = min
	FaceTop                // y = max
	FaceBack               // z = min
	FaceFront              // z = max
	NumFaces
)

var faceNames = [NumFaces]string{"left", "right", "bottom", "top", "back", "front"}

func (f Face) String() string {
	if f < NumFaces {
		return faceNames[f]
	}
	return fmt.Sprintf("face(%d)", uint8(f))
}

// ParseFace maps a boundary name to a Face.
func ParseFace(name string) (Face, error) {
	for i, n := range faceNames {
		if n == name {
			return Face(i), nil
		}
	}
	return 0, configErrorf("unknown boundary %q (want one of %v)", name, faceNames)
}

// Axis is the coordinate normal to the face; High reports whether it is the max side.
func (f Face) Axis() int  { return int(f) / 2 }
func (f Face) High() bool { return f%2 == 1 }

func (f Face) Inward() r3.Vec {
	var v r3.Vec
	s := 1.0
	if f.High() {
		s = -1
	}
	setComponent(&v, f.Axis(), s)
	return v
}

// Grid is an axis-aligned structured mesh of Nx*Ny*Nz hexahedral cells.
type Grid struct {
	Min, Max   r3.Vec
	Nx, Ny, Nz int

	// cached spacing & mapping
	h       r3.Vec
	invH    r3.Vec
	slack   Real
	strideX int
	strideY int
}

// NewGrid validates the box and resolution and precomputes spacing & strides.
func NewGrid(min, max r3.Vec, nx, ny, nz int) (*Grid, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, configErrorf("grid resolution must be positive, got (%d, %d, %d)", nx, ny, nz)
	}
	if !(max.X > min.X && max.Y > min.Y && max.Z > min.Z) {
		return nil, configErrorf("grid max %+v must exceed min %+v on every axis", max, min)
	}
	h := r3.Vec{
		X: (max.X - min.X) / Real(nx),
		Y: (max.Y - min.Y) / Real(ny),
		Z: (max.Z - min.Z) / Real(nz),
	}
	g := &Grid{
		Min: min, Max: max, Nx: nx, Ny: ny, Nz: nz,
		h:       h,
		invH:    r3.Vec{X: 1 / h.X, Y: 1 / h.Y, Z: 1 / h.Z},
		slack:   containSlack*r3.Norm(r3.Sub(max, min)) + FuzzyTolerance,
		strideY: nz,
		strideX: ny * nz,
	}
	return g, nil
}

// NumCells returns Nx*Ny*Nz.
func (g *Grid) NumCells() int { return g.Nx * g.Ny * g.Nz }

// CellSize returns the spacing along X,Y,Z.
func (g *Grid) CellSize() r3.Vec { return g.h }

func (g *Grid) idx(i, j, k int) int { return i*g.strideX + j*g.strideY + k }

// CellIndexOf maps a point to cell indices; the domain is half-open except at the max faces.
func (g *Grid) CellIndexOf(p r3.Vec) (ok bool, i, j, k int) {
	if p.X < g.Min.X || p.X > g.Max.X || p.Y < g.Min.Y || p.Y > g.Max.Y || p.Z < g.Min.Z || p.Z > g.Max.Z {
		return false, 0, 0, 0
	}
	i = int((p.X - g.Min.X) * g.invH.X)
	j = int((p.Y - g.Min.Y) * g.invH.Y)
	k = int((p.Z - g.Min.Z) * g.invH.Z)
	if i == g.Nx {
		i = g.Nx - 1
	}
	if j == g.Ny {
		j = g.Ny - 1
	}
	if k == g.Nz {
		k = g.Nz - 1
	}
	return true, i, j, k
}

// Cell returns the cell with flat index id.
func (g *Grid) Cell(id int) Cell {
	i := id / g.strideX
	j := (id % g.strideX) / g.strideY
	k := id % g.strideY
	return g.cell(i, j, k)
}

func (g *Grid) cell(i, j, k int) Cell {
	min := r3.Vec{
		X: g.Min.X + Real(i)*g.h.X,
		Y: g.Min.Y + Real(j)*g.h.Y,
		Z: g.Min.Z + Real(k)*g.h.Z,
	}
	return Cell{
		id: g.idx(i, j, k), I: i, J: j, K: k,
		min: min, max: r3.Add(min, g.h),
		slack: g.slack,
	}
}

// Locate returns the cell a ray at p travelling along d is about to traverse.
// Points on cell faces are resolved by nudging along d.
func (g *Grid) Locate(p, d r3.Vec) (Cell, bool) {
	q := along(p, d, bumpShift*r3.Norm(g.h))
	ok, i, j, k := g.CellIndexOf(q)
	if !ok {
		return Cell{}, false
	}
	return g.cell(i, j, k), true
}

// Contains reports whether p lies in the closed domain box (with slack).
func (g *Grid) Contains(p r3.Vec) bool {
	return p.X >= g.Min.X-g.slack && p.X <= g.Max.X+g.slack &&
		p.Y >= g.Min.Y-g.slack && p.Y <= g.Max.Y+g.slack &&
		p.Z >= g.Min.Z-g.slack && p.Z <= g.Max.Z+g.slack
}

// BoundaryFaces lists the domain faces p lies on that a ray moving along d leaves through.
// More than one face means an edge or a corner.
func (g *Grid) BoundaryFaces(p, d r3.Vec) []Face {
	var faces []Face
	for a := 0; a < 3; a++ {
		x, dx := component(p, a), component(d, a)
		if dx < 0 && math.Abs(x-component(g.Min, a)) <= g.slack {
			faces = append(faces, Face(2*a))
		}
		if dx > 0 && math.Abs(x-component(g.Max, a)) <= g.slack {
			faces = append(faces, Face(2*a+1))
		}
	}
	return faces
}

// FaceBounds returns the rectangle of a domain face as min/max corners.
func (g *Grid) FaceBounds(f Face) (r3.Vec, r3.Vec) {
	lo, hi := g.Min, g.Max
	a := f.Axis()
	if f.High() {
		setComponent(&lo, a, component(g.Max, a))
	} else {
		setComponent(&hi, a, component(g.Min, a))
	}
	return lo, hi
}

// Cell is one hexahedral element of a Grid.
type Cell struct {
	id       int
	I, J, K  int
	min, max r3.Vec
	slack    Real
}

func (c Cell) ID() int                  { return c.id }
func (c Cell) Bounds() (r3.Vec, r3.Vec) { return c.min, c.max }

func (c Cell) Contains(p r3.Vec) bool {
	return p.X >= c.min.X-c.slack && p.X <= c.max.X+c.slack &&
		p.Y >= c.min.Y-c.slack && p.Y <= c.max.Y+c.slack &&
		p.Z >= c.min.Z-c.slack && p.Z <= c.max.Z+c.slack
}

// exit returns the distance along d from p (inside the cell) to the cell boundary.
func (c Cell) exit(p, d r3.Vec) Real {
	// p may sit up to slack outside; a ray parallel to that face must still hit the box
	p = r3.Vec{
		X: math.Max(c.min.X, math.Min(c.max.X, p.X)),
		Y: math.Max(c.min.Y, math.Min(c.max.Y, p.Y)),
		Z: math.Max(c.min.Z, math.Min(c.max.Z, p.Z)),
	}
	ok, _, tFar := rayAABB(p, c.min, c.max, newRayRecips(d))
	if !ok || tFar < 0 {
		return 0
	}
	return tFar
}
