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
)

func different(a, b float64) bool {
	const tolerance = 1e-9
	if math.IsNaN(a) || math.IsNaN(b) {
		return !(math.IsNaN(a) && math.IsNaN(b))
	}
	return math.Abs(a-b) > tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestStereographic(t *testing.T) {
	tests := []struct {
		lon, lat float64
		x, y     float64
	}{
		{lon: 0, lat: 0, x: 0, y: 1},
		{lon: 90, lat: 0, x: 1, y: 0},
		{lon: 180, lat: 0, x: 0, y: -1},
		{lon: -90, lat: 0, x: -1, y: 0},
		{lon: 0, lat: -90, x: 0, y: 0},
		{lon: 123, lat: -90, x: 0, y: 0},
	}
	for _, test := range tests {
		x, y := stereographic(test.lon, test.lat)
		if different(x, test.x) || different(y, test.y) {
			t.Errorf("(%g, %g): have (%g, %g), want (%g, %g)",
				test.lon, test.lat, x, y, test.x, test.y)
		}
	}
}

func TestStereographicSingularity(t *testing.T) {
	for _, lon := range []float64{0, 45, -135} {
		x, y := stereographic(lon, 90)
		if isFinite(x) && isFinite(y) {
			t.Errorf("lon %g: the projection should not be finite at its singular point; have (%g, %g)", lon, x, y)
		}
	}
}

// The two projections of any point must never both be singular: a
// point at one pole is at the projection center of the projection
// taken from the other pole.
func TestProjectPointPoles(t *testing.T) {
	xs, ys, xn, yn := projectPoint(45, 90)
	if isFinite(xn) && isFinite(yn) {
		t.Errorf("north pair at the north pole should not be finite; have (%g, %g)", xn, yn)
	}
	if !isFinite(xs) || !isFinite(ys) {
		t.Errorf("south pair at the north pole should be finite; have (%g, %g)", xs, ys)
	}
	if math.Hypot(xs, ys) >= poleEpsilon {
		t.Errorf("south pair at the north pole should be at the projection center; have (%g, %g)", xs, ys)
	}

	xs, ys, xn, yn = projectPoint(45, -90)
	if isFinite(xs) && isFinite(ys) {
		t.Errorf("south pair at the south pole should not be finite; have (%g, %g)", xs, ys)
	}
	if math.Hypot(xn, yn) >= poleEpsilon {
		t.Errorf("north pair at the south pole should be at the projection center; have (%g, %g)", xn, yn)
	}
}

func TestNewProjection(t *testing.T) {
	g := &Grid{
		Topology: Unstructured,
		Ni:       3,
		Lon:      []float64{0, 90, 45},
		Lat:      []float64{10, -10, 90},
	}
	p := NewProjection(g)

	x, y := p.at(South, 0)
	wantX, wantY := stereographic(0, -10)
	if different(x, wantX) || different(y, wantY) {
		t.Errorf("south projection of point 0: have (%g, %g), want (%g, %g)", x, y, wantX, wantY)
	}
	x, y = p.at(North, 1)
	wantX, wantY = stereographic(90, -10)
	if different(x, wantX) || different(y, wantY) {
		t.Errorf("north projection of point 1: have (%g, %g), want (%g, %g)", x, y, wantX, wantY)
	}

	// The north-pole point is only usable in the south projection.
	if x, y := p.at(North, 2); isFinite(x) && isFinite(y) {
		t.Errorf("north projection of the pole point should not be finite; have (%g, %g)", x, y)
	}
	if x, y := p.at(South, 2); !isFinite(x) || !isFinite(y) {
		t.Errorf("south projection of the pole point should be finite; have (%g, %g)", x, y)
	}
}
