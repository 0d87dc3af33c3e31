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

package ncio

import (
	"github.com/ctessum/cdf"

	"github.com/spatialmodel/regrid"
)

// GridSpec names the NetCDF file and variables holding a grid's
// coordinates and optional valid-layer count.
type GridSpec struct {
	File string
	Lon  string
	Lat  string
	// Mask is the name of the per-point valid-layer count variable,
	// or empty if the grid has none.
	Mask string
}

// ReadGrid reads a source grid, resolving its topology against the
// trailing dimensions of the field variable it will be used with:
// 2-D coordinates make a curvilinear grid; 1-D coordinates matching
// the field's two trailing dimensions make a rectangular grid; a pair
// of equal-length 1-D coordinates matching the field's single trailing
// dimension makes an unstructured one.
func ReadGrid(spec GridSpec, fieldDims []int) (*regrid.Grid, error) {
	return readGrid(spec, func(nLon, nLat int) (regrid.GridTopology, int, int, error) {
		if len(fieldDims) >= 2 && nLon == fieldDims[len(fieldDims)-1] && nLat == fieldDims[len(fieldDims)-2] {
			return regrid.Rectangular, nLon, nLat, nil
		}
		if nLon == nLat && len(fieldDims) >= 1 && nLon == fieldDims[len(fieldDims)-1] {
			return regrid.Unstructured, nLon, 0, nil
		}
		return 0, 0, 0, regrid.ConfigErrorf(
			"ncio: %s: coordinate lengths %d x %d do not match the field dimensions %v",
			spec.File, nLon, nLat, fieldDims)
	})
}

// ReadGridLike reads a destination grid, resolving the ambiguity of
// 1-D coordinate pairs by the source grid's topology: an unstructured
// source requires an unstructured destination.
func ReadGridLike(spec GridSpec, src *regrid.Grid) (*regrid.Grid, error) {
	return readGrid(spec, func(nLon, nLat int) (regrid.GridTopology, int, int, error) {
		if src.Topology == regrid.Unstructured {
			if nLon != nLat {
				return 0, 0, 0, regrid.ConfigErrorf(
					"ncio: %s: source grid is unstructured but destination coordinates %q and %q have different lengths (%d and %d)",
					spec.File, spec.Lon, spec.Lat, nLon, nLat)
			}
			return regrid.Unstructured, nLon, 0, nil
		}
		return regrid.Rectangular, nLon, nLat, nil
	})
}

// resolve1d decides the topology of a grid with 1-D coordinate arrays
// of the given lengths.
type resolve1d func(nLon, nLat int) (t regrid.GridTopology, ni, nj int, err error)

func readGrid(spec GridSpec, resolve resolve1d) (*regrid.Grid, error) {
	f, cf, err := openCDF(spec.File)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lonDims := cf.Header.Lengths(spec.Lon)
	latDims := cf.Header.Lengths(spec.Lat)
	if len(lonDims) == 0 {
		return nil, regrid.DataErrorf("ncio: %s: variable %q not in file", spec.File, spec.Lon)
	}
	if len(latDims) == 0 {
		return nil, regrid.DataErrorf("ncio: %s: variable %q not in file", spec.File, spec.Lat)
	}

	g := new(regrid.Grid)
	switch len(lonDims) {
	case 2:
		if len(latDims) != 2 || latDims[0] != lonDims[0] || latDims[1] != lonDims[1] {
			return nil, regrid.ConfigErrorf("ncio: %s: coordinates %q (%v) and %q (%v) have different shapes",
				spec.File, spec.Lon, lonDims, spec.Lat, latDims)
		}
		g.Topology = regrid.Curvilinear
		g.Nj, g.Ni = lonDims[0], lonDims[1]
		if g.Lon, err = readVar(cf, spec.Lon); err != nil {
			return nil, err
		}
		if g.Lat, err = readVar(cf, spec.Lat); err != nil {
			return nil, err
		}
	case 1:
		if len(latDims) != 1 {
			return nil, regrid.ConfigErrorf("ncio: %s: coordinate %q is 1-D but %q is not",
				spec.File, spec.Lon, spec.Lat)
		}
		var t regrid.GridTopology
		t, g.Ni, g.Nj, err = resolve(lonDims[0], latDims[0])
		if err != nil {
			return nil, err
		}
		g.Topology = t
		lon, err := readVar(cf, spec.Lon)
		if err != nil {
			return nil, err
		}
		lat, err := readVar(cf, spec.Lat)
		if err != nil {
			return nil, err
		}
		if t == regrid.Unstructured {
			g.Lon, g.Lat = lon, lat
		} else {
			g.Lon, g.Lat = broadcast(lon, lat, g.Ni, g.Nj)
		}
	default:
		return nil, regrid.ConfigErrorf("ncio: %s: coordinate %q has %d dimensions",
			spec.File, spec.Lon, len(lonDims))
	}

	if spec.Mask != "" {
		if err := readMask(cf, spec, g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// broadcast expands separable 1-D coordinate axes to full per-point
// arrays, row-major with i varying fastest.
func broadcast(lon, lat []float64, ni, nj int) (fullLon, fullLat []float64) {
	fullLon = make([]float64, ni*nj)
	fullLat = make([]float64, ni*nj)
	for j := 0; j < nj; j++ {
		for i := 0; i < ni; i++ {
			fullLon[j*ni+i] = lon[i]
			fullLat[j*ni+i] = lat[j]
		}
	}
	return fullLon, fullLat
}

func readMask(cf *cdf.File, spec GridSpec, g *regrid.Grid) error {
	dims := cf.Header.Lengths(spec.Mask)
	if len(dims) == 0 {
		return regrid.DataErrorf("ncio: %s: variable %q not in file", spec.File, spec.Mask)
	}
	ok := false
	switch g.Topology {
	case regrid.Unstructured:
		ok = len(dims) == 1 && dims[0] == g.Ni
	default:
		ok = len(dims) == 2 && dims[0] == g.Nj && dims[1] == g.Ni
	}
	if !ok {
		return regrid.ConfigErrorf("ncio: %s: valid-layer count %q (%v) does not match the grid shape",
			spec.File, spec.Mask, dims)
	}
	mask, err := readVarInt(cf, spec.Mask)
	if err != nil {
		return err
	}
	g.NumLayers = mask
	return nil
}
