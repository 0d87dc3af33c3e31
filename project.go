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

import "math"

const deg2rad = math.Pi / 180

// Hemisphere selects one of the two stereographic projections kept for
// every point. South is the projection used for querying points with
// non-negative latitude; North is used for the rest. Keeping both means
// that for any point at least one projection is numerically safe.
type Hemisphere int

const (
	South Hemisphere = iota
	North
)

func (h Hemisphere) String() string {
	if h == South {
		return "south"
	}
	return "north"
}

// Projection holds dual stereographic planar coordinates for every
// point of a grid. It is computed once per grid and reused for every
// layer.
type Projection struct {
	XSouth, YSouth []float64
	XNorth, YNorth []float64
}

// stereographic converts geographic coordinates in degrees to a unit
// Cartesian vector and projects it from the pole opposite the given
// latitude's sign convention: planar = (vx, vy) / (1 - vz). The result
// is finite everywhere except at the singular point, where it
// overflows to infinity.
func stereographic(lon, lat float64) (x, y float64) {
	lonR := lon * deg2rad
	latR := lat * deg2rad
	cosLat := math.Cos(latR)
	vx := math.Sin(lonR) * cosLat
	vy := math.Cos(lonR) * cosLat
	vz := math.Sin(latR)
	return vx / (1 - vz), vy / (1 - vz)
}

// projectPoint produces the two planar coordinate pairs for one
// geographic point: the south pair with the latitude negated, and the
// north pair with the latitude as given.
func projectPoint(lon, lat float64) (xSouth, ySouth, xNorth, yNorth float64) {
	xSouth, ySouth = stereographic(lon, -lat)
	xNorth, yNorth = stereographic(lon, lat)
	return
}

// NewProjection computes dual stereographic coordinates for every
// point of g.
func NewProjection(g *Grid) *Projection {
	n := g.Nij()
	p := &Projection{
		XSouth: make([]float64, n),
		YSouth: make([]float64, n),
		XNorth: make([]float64, n),
		YNorth: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		p.XSouth[i], p.YSouth[i], p.XNorth[i], p.YNorth[i] = projectPoint(g.Lon[i], g.Lat[i])
	}
	return p
}

// at returns the planar coordinates of point i in the given hemisphere
// projection.
func (p *Projection) at(hem Hemisphere, i int) (x, y float64) {
	if hem == South {
		return p.XSouth[i], p.YSouth[i]
	}
	return p.XNorth[i], p.YNorth[i]
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
