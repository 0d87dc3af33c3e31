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
	"testing"

	"github.com/fogleman/delaunay"
)

// A piecewise-linear interpolant reproduces a globally linear field
// exactly, whatever the triangulation.
func TestDelaunayLinearField(t *testing.T) {
	f := func(x, y float64) float64 { return 2*x + 3*y + 1 }

	var pts []delaunay.Point
	var vals []float64
	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			x, y := float64(i)/2, float64(j)/2
			pts = append(pts, delaunay.Point{X: x, Y: y})
			vals = append(vals, f(x, y))
		}
	}

	var interp DelaunayInterpolator
	in, err := interp.Build(pts, vals)
	if err != nil {
		t.Fatal(err)
	}
	defer interp.Release(in)

	queries := [][2]float64{
		{0.25, 0.4}, {0.8, 0.1}, {0.5, 0.5}, {0, 0}, {1, 1}, {0.5, 0},
	}
	for _, q := range queries {
		have := in.Evaluate(q[0], q[1])
		want := f(q[0], q[1])
		if different(have, want) {
			t.Errorf("f(%g, %g): have %g, want %g", q[0], q[1], have, want)
		}
	}
}

func TestDelaunayVertexValues(t *testing.T) {
	pts := []delaunay.Point{{X: 0, Y: 0}, {X: 1, Y: 0.2}, {X: 0.3, Y: 1}, {X: 0.9, Y: 0.8}}
	vals := []float64{-3, 7, 0.25, 100}

	var interp DelaunayInterpolator
	in, err := interp.Build(pts, vals)
	if err != nil {
		t.Fatal(err)
	}
	defer interp.Release(in)

	for i, p := range pts {
		if have := in.Evaluate(p.X, p.Y); different(have, vals[i]) {
			t.Errorf("vertex %d: have %g, want %g", i, have, vals[i])
		}
	}
}

func TestDelaunayOutsideHull(t *testing.T) {
	pts := []delaunay.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	vals := []float64{1, 2, 3}

	var interp DelaunayInterpolator
	in, err := interp.Build(pts, vals)
	if err != nil {
		t.Fatal(err)
	}
	defer interp.Release(in)

	for _, q := range [][2]float64{{5, 5}, {-1, 0}, {0.9, 0.9}} {
		if v := in.Evaluate(q[0], q[1]); !math.IsNaN(v) {
			t.Errorf("query (%g, %g) outside the hull: have %g, want NaN", q[0], q[1], v)
		}
	}
}

// Too few or collinear points cannot be triangulated; the interpolant
// must still exist and report every query as a gap.
func TestDelaunayDegenerate(t *testing.T) {
	var interp DelaunayInterpolator

	in, err := interp.Build([]delaunay.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, []float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if v := in.Evaluate(0.5, 0.5); !math.IsNaN(v) {
		t.Errorf("two points: have %g, want NaN", v)
	}
	interp.Release(in)

	in, err = interp.Build(
		[]delaunay.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}},
		[]float64{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if v := in.Evaluate(1, 1); !math.IsNaN(v) {
		t.Errorf("collinear points: have %g, want NaN", v)
	}
	interp.Release(in)
}

func TestDelaunayEmpty(t *testing.T) {
	var interp DelaunayInterpolator
	if _, err := interp.Build(nil, nil); err == nil {
		t.Error("building from an empty point set should fail")
	}
}
