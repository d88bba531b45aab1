// Package lattice converts between continuous map coordinates and integer
// cell indices on a fixed-size square grid.
package lattice

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultTileSize is the edge length of a cell in degrees.
const DefaultTileSize = 1e-4

// Cell addresses one lattice square. X indexes longitude, Y latitude.
type Cell struct {
	X int
	Y int
}

func (c Cell) Key() string {
	return strconv.Itoa(c.X) + "," + strconv.Itoa(c.Y)
}

func (c Cell) Add(dx, dy int) Cell {
	return Cell{X: c.X + dx, Y: c.Y + dy}
}

// ParseKey is the inverse of Cell.Key.
func ParseKey(key string) (Cell, error) {
	xs, ys, ok := strings.Cut(key, ",")
	if !ok {
		return Cell{}, fmt.Errorf("cell key %q: missing comma", key)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return Cell{}, fmt.Errorf("cell key %q: x: %w", key, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return Cell{}, fmt.Errorf("cell key %q: y: %w", key, err)
	}
	return Cell{X: x, Y: y}, nil
}

// Point is a continuous position. X is longitude, Y latitude.
type Point struct {
	X float64
	Y float64
}

// Bounds is the rectangle covered by a cell, south-west to north-east.
type Bounds struct {
	SW Point
	NE Point
}

type Mapper struct {
	TileSize float64
}

func NewMapper(tileSize float64) Mapper {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	return Mapper{TileSize: tileSize}
}

func (m Mapper) ToCellIndex(v float64) int {
	return int(math.Round(v / m.TileSize))
}

func (m Mapper) ToContinuous(i int) float64 {
	return float64(i) * m.TileSize
}

func (m Mapper) CellOf(p Point) Cell {
	return Cell{X: m.ToCellIndex(p.X), Y: m.ToCellIndex(p.Y)}
}

func (m Mapper) PointOf(c Cell) Point {
	return Point{X: m.ToContinuous(c.X), Y: m.ToContinuous(c.Y)}
}

// Snap quantizes p to the nearest lattice-aligned point.
func (m Mapper) Snap(p Point) Point {
	return m.PointOf(m.CellOf(p))
}

func (m Mapper) Bounds(c Cell) Bounds {
	sw := m.PointOf(c)
	return Bounds{SW: sw, NE: Point{X: sw.X + m.TileSize, Y: sw.Y + m.TileSize}}
}

// Window lists every cell whose offset from center lies in [-r, r) on both
// axes, x-major. The result holds 2r*2r cells.
func Window(center Cell, r int) []Cell {
	if r <= 0 {
		return nil
	}
	out := make([]Cell, 0, 4*r*r)
	for dx := -r; dx < r; dx++ {
		for dy := -r; dy < r; dy++ {
			out = append(out, center.Add(dx, dy))
		}
	}
	return out
}

const earthRadiusMeters = 6371000

// DistanceMeters is the great-circle distance between two lng/lat points.
func DistanceMeters(a, b Point) float64 {
	rad := math.Pi / 180
	lat1 := a.Y * rad
	lat2 := b.Y * rad
	sinDLat := math.Sin((b.Y - a.Y) * rad / 2)
	sinDLng := math.Sin((b.X - a.X) * rad / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
