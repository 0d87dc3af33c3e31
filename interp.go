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
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/fogleman/delaunay"
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50

	// baryEpsilon is the tolerance on barycentric coordinates for
	// deciding that a query point lies inside a triangle, so that
	// points on shared edges are not lost to rounding.
	baryEpsilon = 1e-12
)

// Interpolator builds a piecewise-linear interpolant over a planar
// point set and evaluates it at query points. Evaluate returns NaN for
// points outside the convex hull of the set. Release frees the
// interpolant's resources; the interpolant must not be used afterwards.
type Interpolator interface {
	Build(pts []delaunay.Point, vals []float64) (Interpolant, error)
	Release(Interpolant)
}

// Interpolant evaluates an interpolated value at a planar point.
type Interpolant interface {
	Evaluate(x, y float64) float64
}

// DelaunayInterpolator is the default Interpolator, backed by a
// Delaunay triangulation with an r-tree index for triangle lookup.
type DelaunayInterpolator struct{}

// triangle is one triangle of a built interpolant, carrying the scalar
// values at its vertices.
type triangle struct {
	p0, p1, p2 delaunay.Point
	v0, v1, v2 float64
	b          *geom.Bounds
}

func (t *triangle) Bounds() *geom.Bounds { return t.b }

// interpolate evaluates the linear interpolant of t at (x, y) using
// barycentric coordinates. ok is false if the point is outside t.
func (t *triangle) interpolate(x, y float64) (v float64, ok bool) {
	d := (t.p1.Y-t.p2.Y)*(t.p0.X-t.p2.X) + (t.p2.X-t.p1.X)*(t.p0.Y-t.p2.Y)
	if d == 0 {
		return 0, false
	}
	w0 := ((t.p1.Y-t.p2.Y)*(x-t.p2.X) + (t.p2.X-t.p1.X)*(y-t.p2.Y)) / d
	w1 := ((t.p2.Y-t.p0.Y)*(x-t.p2.X) + (t.p0.X-t.p2.X)*(y-t.p2.Y)) / d
	w2 := 1 - w0 - w1
	if w0 < -baryEpsilon || w1 < -baryEpsilon || w2 < -baryEpsilon {
		return 0, false
	}
	return w0*t.v0 + w1*t.v1 + w2*t.v2, true
}

// delaunayInterpolant indexes the triangles of one layer-hemisphere
// triangulation. It is built fresh for every layer and released as
// soon as the layer's destination points have been evaluated.
type delaunayInterpolant struct {
	index *rtree.Rtree
}

// Build triangulates the given points and prepares a piecewise-linear
// interpolant over them. It must not be called with an empty point
// set. Point sets too small or too degenerate to triangulate (fewer
// than three points, or all collinear) yield an interpolant whose
// every evaluation is NaN.
func (DelaunayInterpolator) Build(pts []delaunay.Point, vals []float64) (Interpolant, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("regrid: building an interpolant from an empty point set")
	}
	in := &delaunayInterpolant{index: rtree.NewTree(rtreeMinChildren, rtreeMaxChildren)}
	if len(pts) < 3 {
		return in, nil
	}
	tri, err := delaunay.Triangulate(pts)
	if err != nil {
		// Degenerate geometry; every query falls back to the
		// fill policy.
		return in, nil
	}
	for i := 0; i < len(tri.Triangles); i += 3 {
		i0 := tri.Triangles[i]
		i1 := tri.Triangles[i+1]
		i2 := tri.Triangles[i+2]
		t := &triangle{
			p0: pts[i0], p1: pts[i1], p2: pts[i2],
			v0: vals[i0], v1: vals[i1], v2: vals[i2],
		}
		b := geom.NewBoundsPoint(geom.Point{X: t.p0.X, Y: t.p0.Y})
		b.Extend(geom.NewBoundsPoint(geom.Point{X: t.p1.X, Y: t.p1.Y}))
		b.Extend(geom.NewBoundsPoint(geom.Point{X: t.p2.X, Y: t.p2.Y}))
		t.b = b
		in.index.Insert(t)
	}
	return in, nil
}

// Release drops the interpolant's triangle index.
func (DelaunayInterpolator) Release(in Interpolant) {
	if din, ok := in.(*delaunayInterpolant); ok {
		din.index = nil
	}
}

func (in *delaunayInterpolant) Evaluate(x, y float64) float64 {
	p := geom.Point{X: x, Y: y}
	for _, tI := range in.index.SearchIntersect(p.Bounds()) {
		if v, ok := tI.(*triangle).interpolate(x, y); ok {
			return v
		}
	}
	return math.NaN()
}
