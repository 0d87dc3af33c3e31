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

// transferMask derives a destination valid-layer count from the source
// grid's count by interpolating the integer depth counts across both
// hemispheres and rounding to the nearest non-negative integer.
// Destination points outside the convex hull receive a count of zero,
// i.e. fully masked. It runs once, before the layer loop.
func (e *Engine) transferMask() ([]int32, error) {
	nij := e.src.Nij()
	counts := make([]float64, nij)
	for i, c := range e.src.NumLayers {
		counts[i] = float64(c)
	}

	// The valid-layer check is disabled here: land columns with a
	// count of zero are data, not missing values.
	gatherPoints(&e.south, South, e.src, e.srcProj, counts, -1, e.cfg.SkipEdgeColumns)
	gatherPoints(&e.north, North, e.src, e.srcProj, counts, -1, e.cfg.SkipEdgeColumns)

	var interpSouth, interpNorth Interpolant
	var err error
	if len(e.south.pts) > 0 {
		if interpSouth, err = e.interp.Build(e.south.pts, e.south.vals); err != nil {
			return nil, DataErrorf("regrid: mask transfer: building south interpolant: %v", err)
		}
		defer e.interp.Release(interpSouth)
	}
	if len(e.north.pts) > 0 {
		if interpNorth, err = e.interp.Build(e.north.pts, e.north.vals); err != nil {
			return nil, DataErrorf("regrid: mask transfer: building north interpolant: %v", err)
		}
		defer e.interp.Release(interpNorth)
	}

	mask := make([]int32, e.dst.Nij())
	for i := range mask {
		var in Interpolant
		var x, y float64
		if e.dst.Lat[i] >= 0 {
			in = interpSouth
			x, y = e.dstProj.at(South, i)
		} else {
			in = interpNorth
			x, y = e.dstProj.at(North, i)
		}
		if in == nil {
			continue
		}
		v := in.Evaluate(x, y)
		if isFinite(v) && v > 0 {
			mask[i] = int32(math.Round(v))
		}
	}
	e.cfg.Log.WithField("points", len(mask)).Debug("destination mask transferred")
	return mask, nil
}
