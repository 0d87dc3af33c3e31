/*
Copyright © 2024 the Regrid authors.
This file is part of Regrid.

Regrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Regrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Regrid.  If not, see <http://www.gnu.org/licenses/>.
*/

package regrid

// GridTopology specifies how the horizontal points of a grid are organized.
type GridTopology int

const (
	// Curvilinear is a structured grid with full 2-D coordinate arrays,
	// such as a tripolar ocean model grid.
	Curvilinear GridTopology = iota
	// Rectangular is a structured grid with separable 1-D coordinate
	// axes, expanded to full per-point arrays when the grid is loaded.
	Rectangular
	// Unstructured is a flat list of points with no lattice structure.
	Unstructured
)

func (t GridTopology) String() string {
	switch t {
	case Curvilinear:
		return "curvilinear"
	case Rectangular:
		return "rectangular"
	case Unstructured:
		return "unstructured"
	}
	return "unknown"
}

// Grid is a horizontal geographic grid. For structured grids the point
// arrays are row-major with Ni varying fastest; for unstructured grids
// Nj is zero and Ni is the number of points. Grids are read once and
// are not modified afterwards.
type Grid struct {
	Topology GridTopology

	Ni, Nj int

	// Lon and Lat hold per-point geographic coordinates in degrees,
	// of length Nij().
	Lon, Lat []float64

	// NumLayers optionally holds, for each point, the number of
	// vertically contiguous valid layers counted from the top.
	// Zero means the whole column is masked out. Nil means no mask.
	NumLayers []int32
}

// Nij returns the total number of horizontal points in the grid.
func (g *Grid) Nij() int {
	n := g.Ni
	if g.Nj > 0 {
		n *= g.Nj
	}
	return n
}

// shape returns the horizontal array shape of one layer: [Nj, Ni] for
// structured grids, [Ni] for unstructured grids.
func (g *Grid) shape() []int {
	if g.Topology == Unstructured {
		return []int{g.Ni}
	}
	return []int{g.Nj, g.Ni}
}

// check verifies internal consistency of the grid arrays.
func (g *Grid) check(label string) error {
	if g.Ni <= 0 {
		return ConfigErrorf("regrid: %s grid: ni = %d", label, g.Ni)
	}
	if g.Topology == Unstructured && g.Nj != 0 {
		return ConfigErrorf("regrid: %s grid: unstructured grid with nj = %d", label, g.Nj)
	}
	if g.Topology != Unstructured && g.Nj <= 0 {
		return ConfigErrorf("regrid: %s grid: %s grid with nj = %d", label, g.Topology, g.Nj)
	}
	n := g.Nij()
	if len(g.Lon) != n || len(g.Lat) != n {
		return ConfigErrorf("regrid: %s grid: coordinate lengths %d x %d do not match %d points",
			label, len(g.Lon), len(g.Lat), n)
	}
	if g.NumLayers != nil && len(g.NumLayers) != n {
		return ConfigErrorf("regrid: %s grid: valid-layer count length %d does not match %d points",
			label, len(g.NumLayers), n)
	}
	return nil
}
