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

// Package ncio reads grids and layered fields from NetCDF files and
// writes regridded fields back out. It handles the _FillValue,
// missing_value, valid_range, valid_min, valid_max, scale_factor and
// add_offset attribute conventions, converting masked entries to NaN
// on read and back to the stored fill value on write.
package ncio

import (
	"os"

	"github.com/ctessum/cdf"

	"github.com/spatialmodel/regrid"
)

// openCDF opens an existing NetCDF file for reading.
func openCDF(path string) (*os.File, *cdf.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, regrid.DataErrorf("ncio: %v", err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, nil, regrid.DataErrorf("ncio: %s: %v", path, err)
	}
	return f, cf, nil
}

// toFloats converts a typed slice read from a NetCDF variable or
// attribute to float64. It returns nil for non-numeric types.
func toFloats(vals interface{}) []float64 {
	switch v := vals.(type) {
	case []float64:
		return v
	case []float32:
		out := make([]float64, len(v))
		for i, val := range v {
			out[i] = float64(val)
		}
		return out
	case []int32:
		out := make([]float64, len(v))
		for i, val := range v {
			out[i] = float64(val)
		}
		return out
	case []int16:
		out := make([]float64, len(v))
		for i, val := range v {
			out[i] = float64(val)
		}
		return out
	case []int8:
		out := make([]float64, len(v))
		for i, val := range v {
			out[i] = float64(val)
		}
		return out
	case []uint8:
		out := make([]float64, len(v))
		for i, val := range v {
			out[i] = float64(val)
		}
		return out
	}
	return nil
}

// attrFloat returns the first element of a numeric single-valued
// attribute of variable v, or ok == false if the attribute is absent
// or not numeric.
func attrFloat(cf *cdf.File, v, a string) (float64, bool) {
	vals := toFloats(cf.Header.GetAttribute(v, a))
	if len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// attrFloatPair returns the two elements of a numeric two-valued
// attribute such as valid_range.
func attrFloatPair(cf *cdf.File, v, a string) (lo, hi float64, ok bool) {
	vals := toFloats(cf.Header.GetAttribute(v, a))
	if len(vals) != 2 {
		return 0, 0, false
	}
	return vals[0], vals[1], true
}

// readVar reads the full contents of a variable as float64.
func readVar(cf *cdf.File, name string) ([]float64, error) {
	dims := cf.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, regrid.DataErrorf("ncio: variable %q not in file", name)
	}
	n := 1
	for _, d := range dims {
		n *= d
	}
	r := cf.Reader(name, nil, nil)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, regrid.DataErrorf("ncio: reading variable %s: %v", name, err)
	}
	vals := toFloats(buf)
	if vals == nil {
		return nil, regrid.DataErrorf("ncio: variable %s has a non-numeric type", name)
	}
	return vals, nil
}

// readVarInt reads the full contents of an integer-valued variable.
func readVarInt(cf *cdf.File, name string) ([]int32, error) {
	vals, err := readVar(cf, name)
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(vals))
	for i, v := range vals {
		out[i] = int32(v)
	}
	return out, nil
}
