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

import (
	"math"

	"github.com/fogleman/delaunay"
)

// poleEpsilon is the planar distance from a projection's center below
// which points are considered coincident with the pole. A Delaunay
// triangulation cannot tolerate duplicate points, and every grid point
// at the singular latitude projects onto the center.
const poleEpsilon = 1e-8

// pointSet is a reusable per-layer arena of projected points and their
// attached scalar values. It is cleared between layers rather than
// reallocated.
type pointSet struct {
	pts  []delaunay.Point
	vals []float64

	poleSeen bool
}

func (s *pointSet) reset() {
	s.pts = s.pts[:0]
	s.vals = s.vals[:0]
	s.poleSeen = false
}

// add appends a point unless it is a repeated polar point.
func (s *pointSet) add(x, y, v float64) {
	if math.Hypot(x, y) < poleEpsilon {
		if s.poleSeen {
			return
		}
		s.poleSeen = true
	}
	s.pts = append(s.pts, delaunay.Point{X: x, Y: y})
	s.vals = append(s.vals, v)
}

// gatherPoints fills dst with the source points that are valid for
// layer k in the given hemisphere projection. A point is rejected if
// it lies in an excluded edge column, if its column has bottomed out
// above layer k, if its value is not finite, or if its projected
// coordinates are not finite in this hemisphere. A negative k disables
// the valid-layer check, which is used for mask transfer.
func gatherPoints(dst *pointSet, hem Hemisphere, g *Grid, p *Projection, vals []float64, k int, skipEdges bool) {
	dst.reset()
	for i, v := range vals {
		if skipEdges && g.Topology != Unstructured &&
			(i%g.Ni == 0 || i%g.Ni == g.Ni-1) {
			continue
		}
		if k >= 0 && g.NumLayers != nil && k >= int(g.NumLayers[i]) {
			continue
		}
		if !isFinite(v) {
			continue
		}
		x, y := p.at(hem, i)
		// A projection can itself be non-finite arbitrarily close
		// to its own singular point, so the same point can appear
		// in one hemisphere's set and not the other.
		if !isFinite(x) || !isFinite(y) {
			continue
		}
		dst.add(x, y, v)
	}
}
