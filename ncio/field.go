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
	"math"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/spatialmodel/regrid"
)

// VarDims returns the stored dimension lengths of a variable, with a
// record dimension reported as zero. It is used to resolve the source
// grid's topology before the field reader is constructed.
func VarDims(path, variable string) ([]int, error) {
	f, cf, err := openCDF(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dims := cf.Header.Lengths(variable)
	if len(dims) == 0 {
		return nil, regrid.DataErrorf("ncio: %s: variable %q not in file", path, variable)
	}
	out := make([]int, len(dims))
	copy(out, dims)
	return out, nil
}

// varLayout maps a variable's stored dimensions onto the regridder's
// layer-by-layer view of the field.
type varLayout struct {
	names []string
	dims  []int // as stored; record dimension as 0

	record   bool
	layerDim int // index of the vertical dimension, or -1
	nk       int
	spatial  int // number of trailing horizontal dimensions
	nij      int
}

// resolveLayout validates a variable's dimensions against a grid and
// locates its record, vertical, and horizontal dimensions.
func resolveLayout(cf *cdf.File, path, variable string, g *regrid.Grid) (*varLayout, error) {
	l := &varLayout{
		names:    cf.Header.Dimensions(variable),
		dims:     cf.Header.Lengths(variable),
		layerDim: -1,
		nk:       1,
		spatial:  1,
		nij:      g.Nij(),
	}
	if len(l.dims) == 0 {
		return nil, regrid.DataErrorf("ncio: %s: variable %q not in file", path, variable)
	}
	if g.Topology != regrid.Unstructured {
		l.spatial = 2
	}
	body := l.dims
	first := 0
	if body[0] == 0 {
		l.record = true
		first = 1
		body = body[1:]
	}
	if len(body) < l.spatial {
		return nil, regrid.ConfigErrorf("ncio: %s: variable %q has %d non-record dimensions; a %s grid needs at least %d",
			path, variable, len(body), g.Topology, l.spatial)
	}
	if g.Topology == regrid.Unstructured {
		if body[len(body)-1] != g.Ni {
			return nil, regrid.ConfigErrorf("ncio: %s: variable %q horizontal dimension (%d) does not match the grid (%d points)",
				path, variable, body[len(body)-1], g.Ni)
		}
	} else if body[len(body)-1] != g.Ni || body[len(body)-2] != g.Nj {
		return nil, regrid.ConfigErrorf("ncio: %s: variable %q horizontal dimensions (%d x %d) do not match the grid (%d x %d)",
			path, variable, body[len(body)-2], body[len(body)-1], g.Nj, g.Ni)
	}
	switch mid := body[:len(body)-l.spatial]; len(mid) {
	case 0:
	case 1:
		l.layerDim = first
		l.nk = mid[0]
	default:
		return nil, regrid.ConfigErrorf("ncio: %s: variable %q: unsupported dimensionality %v",
			path, variable, l.dims)
	}
	return l, nil
}

// slab returns the begin and end index vectors covering layer k.
func (l *varLayout) slab(k int) (begin, end []int) {
	begin = make([]int, len(l.dims))
	end = make([]int, len(l.dims))
	for i, d := range l.dims {
		end[i] = d
	}
	if l.record {
		end[0] = 1
	}
	if l.layerDim >= 0 {
		begin[l.layerDim], end[l.layerDim] = k, k+1
	}
	return begin, end
}

// shape returns the horizontal dimensions of one layer.
func (l *varLayout) shape() []int {
	if l.spatial == 1 {
		return []int{l.nij}
	}
	return []int{l.dims[len(l.dims)-2], l.dims[len(l.dims)-1]}
}

func shapeMatches(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// packing holds the attribute conventions of one variable. Masking
// (fill value, missing value, valid range) applies to the raw stored
// values; scale and offset apply afterwards.
type packing struct {
	scale, offset      float64
	fill               float64
	hasMissing         bool
	missing            float64
	hasMin, hasMax     bool
	validMin, validMax float64
	hasRange           bool
	rangeLo, rangeHi   float64
}

func resolvePacking(cf *cdf.File, variable string) packing {
	p := packing{scale: 1}
	if v, ok := attrFloat(cf, variable, "scale_factor"); ok {
		p.scale = v
	}
	if v, ok := attrFloat(cf, variable, "add_offset"); ok {
		p.offset = v
	}
	p.fill = scalarToFloat(cf.Header.FillValue(variable))
	if v, ok := attrFloat(cf, variable, "missing_value"); ok {
		p.hasMissing, p.missing = true, v
	}
	if v, ok := attrFloat(cf, variable, "valid_min"); ok {
		p.hasMin, p.validMin = true, v
	}
	if v, ok := attrFloat(cf, variable, "valid_max"); ok {
		p.hasMax, p.validMax = true, v
	}
	if lo, hi, ok := attrFloatPair(cf, variable, "valid_range"); ok {
		p.hasRange, p.rangeLo, p.rangeHi = true, lo, hi
	}
	return p
}

// unpack converts one raw stored value to its physical value, or NaN
// if the raw value is masked.
func (p *packing) unpack(raw float64) float64 {
	if raw == p.fill {
		return math.NaN()
	}
	if p.hasMissing && raw == p.missing {
		return math.NaN()
	}
	if p.hasMin && raw < p.validMin {
		return math.NaN()
	}
	if p.hasMax && raw > p.validMax {
		return math.NaN()
	}
	if p.hasRange && (raw < p.rangeLo || raw > p.rangeHi) {
		return math.NaN()
	}
	return raw*p.scale + p.offset
}

// pack converts one physical value back to its raw stored value,
// clamping to the valid range and replacing NaN with the fill value.
func (p *packing) pack(v float64) float64 {
	if math.IsNaN(v) {
		if p.hasMissing {
			return p.missing
		}
		return p.fill
	}
	raw := (v - p.offset) / p.scale
	if p.hasMin && raw < p.validMin {
		raw = p.validMin
	}
	if p.hasMax && raw > p.validMax {
		raw = p.validMax
	}
	if p.hasRange {
		if raw < p.rangeLo {
			raw = p.rangeLo
		} else if raw > p.rangeHi {
			raw = p.rangeHi
		}
	}
	return raw
}

func scalarToFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int32:
		return float64(val)
	case int16:
		return float64(val)
	case int8:
		return float64(val)
	case uint8:
		return float64(val)
	}
	return math.NaN()
}

// FieldReader reads horizontal layers of one variable, converting
// masked entries to NaN and applying scale/offset metadata.
type FieldReader struct {
	f        *os.File
	cf       *cdf.File
	path     string
	variable string
	layout   *varLayout
	pack     packing
}

// OpenFieldReader opens the variable in the given file for
// layer-by-layer reading on the given grid.
func OpenFieldReader(path, variable string, g *regrid.Grid) (*FieldReader, error) {
	f, cf, err := openCDF(path)
	if err != nil {
		return nil, err
	}
	layout, err := resolveLayout(cf, path, variable, g)
	if err != nil {
		f.Close()
		return nil, err
	}
	if layout.record {
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, regrid.DataErrorf("ncio: %s: %v", path, err)
		}
		if nrec := cf.Header.NumRecs(fi.Size()); nrec > 1 {
			f.Close()
			return nil, regrid.DataErrorf("ncio: %s: %s: can not handle more than one record yet (%d records)",
				path, variable, nrec)
		}
	}
	return &FieldReader{
		f:        f,
		cf:       cf,
		path:     path,
		variable: variable,
		layout:   layout,
		pack:     resolvePacking(cf, variable),
	}, nil
}

// Layers returns the number of vertical layers of the variable.
func (r *FieldReader) Layers() int { return r.layout.nk }

// Dims returns the variable's stored dimension lengths, with a record
// dimension reported as zero.
func (r *FieldReader) Dims() []int { return r.layout.dims }

// ReadLayer reads layer k of the variable as a dense array shaped like
// one horizontal layer, with NaN for missing entries.
func (r *FieldReader) ReadLayer(variable string, k int) (*sparse.DenseArray, error) {
	if variable != r.variable {
		return nil, regrid.DataErrorf("ncio: %s: reader is bound to %q, not %q", r.path, r.variable, variable)
	}
	if k < 0 || k >= r.layout.nk {
		return nil, regrid.DataErrorf("ncio: %s: %s: layer %d out of range [0, %d)", r.path, variable, k, r.layout.nk)
	}
	begin, end := r.layout.slab(k)
	rd := r.cf.Reader(variable, begin, end)
	buf := rd.Zero(r.layout.nij)
	if _, err := rd.Read(buf); err != nil {
		return nil, regrid.DataErrorf("ncio: %s: reading %s layer %d: %v", r.path, variable, k, err)
	}
	raw := toFloats(buf)
	if raw == nil {
		return nil, regrid.DataErrorf("ncio: %s: variable %s has a non-numeric type", r.path, variable)
	}
	data := sparse.ZerosDense(r.layout.shape()...)
	for i, v := range raw {
		data.Elements[i] = r.pack.unpack(v)
	}
	return data, nil
}

// Close closes the underlying file.
func (r *FieldReader) Close() error { return r.f.Close() }

// FieldWriter writes regridded layers to a temporary file that is
// renamed to the final name only when every layer has been written.
// This is the only persistence guarantee: output is all-or-nothing.
type FieldWriter struct {
	f        *os.File
	cf       *cdf.File
	path     string
	tmpPath  string
	variable string
	layout   *varLayout
	pack     packing
	done     bool
}

// CreateFieldWriter creates the destination file for the regridded
// variable. The variable keeps the source's dimension names, type, and
// attributes, with the horizontal lengths replaced by the destination
// grid's; the command line and working directory are recorded as
// global attributes. The deflate level is accepted for compatibility
// with compressing sinks; the classic-format writer has nothing to
// compress with and ignores it.
func CreateFieldWriter(path string, src *FieldReader, dst *regrid.Grid, deflate int, command string) (*FieldWriter, error) {
	srcHdr := src.cf.Header
	names := srcHdr.Dimensions(src.variable)
	lengths := make([]int, len(names))
	copy(lengths, srcHdr.Lengths(src.variable))
	if dst.Topology == regrid.Unstructured {
		lengths[len(lengths)-1] = dst.Ni
	} else {
		lengths[len(lengths)-1] = dst.Ni
		lengths[len(lengths)-2] = dst.Nj
	}

	h := cdf.NewHeader(names, lengths)
	h.AddVariable(src.variable, names, srcHdr.ZeroValue(src.variable, 1))
	for _, a := range srcHdr.Attributes(src.variable) {
		h.AddAttribute(src.variable, a, srcHdr.GetAttribute(src.variable, a))
	}
	for _, a := range srcHdr.Attributes("") {
		// A previously regridded input may already carry our
		// provenance attributes.
		if a == "regrid: command" || a == "regrid: wdir" {
			continue
		}
		h.AddAttribute("", a, srcHdr.GetAttribute("", a))
	}
	h.AddAttribute("", "regrid: command", command)
	if wd, err := os.Getwd(); err == nil {
		h.AddAttribute("", "regrid: wdir", wd)
	}
	h.Define()
	for _, err := range h.Check() {
		return nil, regrid.DataErrorf("ncio: creating %s: %v", path, err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, regrid.DataErrorf("ncio: %v", err)
	}
	cf, err := cdf.Create(f, h)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, regrid.DataErrorf("ncio: creating %s: %v", path, err)
	}
	w := &FieldWriter{
		f:        f,
		cf:       cf,
		path:     path,
		tmpPath:  tmpPath,
		variable: src.variable,
		pack:     resolvePacking(cf, src.variable),
	}
	w.layout, err = resolveLayout(cf, tmpPath, src.variable, dst)
	if err != nil {
		w.Abort()
		return nil, err
	}
	return w, nil
}

// WriteLayer writes layer k of the regridded variable, packing the
// values back into the variable's stored type.
func (w *FieldWriter) WriteLayer(variable string, k int, data *sparse.DenseArray) error {
	if variable != w.variable {
		return regrid.DataErrorf("ncio: %s: writer is bound to %q, not %q", w.path, w.variable, variable)
	}
	if !shapeMatches(data.Shape, w.layout.shape()) {
		return regrid.DataErrorf("ncio: %s: %s layer %d: layer shape %v does not match the stored shape %v",
			w.path, variable, k, data.Shape, w.layout.shape())
	}
	begin, end := w.layout.slab(k)
	buf := w.cf.Header.ZeroValue(variable, len(data.Elements))
	switch out := buf.(type) {
	case []float64:
		for i, v := range data.Elements {
			out[i] = w.pack.pack(v)
		}
	case []float32:
		for i, v := range data.Elements {
			out[i] = float32(w.pack.pack(v))
		}
	case []int32:
		for i, v := range data.Elements {
			out[i] = int32(math.Round(w.pack.pack(v)))
		}
	case []int16:
		for i, v := range data.Elements {
			out[i] = int16(math.Round(w.pack.pack(v)))
		}
	case []uint8:
		for i, v := range data.Elements {
			out[i] = uint8(math.Round(w.pack.pack(v)))
		}
	default:
		return regrid.DataErrorf("ncio: %s: variable %s has a non-numeric type", w.path, variable)
	}
	if _, err := w.cf.Writer(variable, begin, end).Write(buf); err != nil {
		return regrid.DataErrorf("ncio: %s: writing %s layer %d: %v", w.path, variable, k, err)
	}
	return nil
}

// Commit finalizes the temporary file and renames it to the final
// name.
func (w *FieldWriter) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	if w.layout.record {
		if err := cdf.UpdateNumRecs(w.f); err != nil {
			w.f.Close()
			os.Remove(w.tmpPath)
			return regrid.DataErrorf("ncio: finalizing %s: %v", w.path, err)
		}
	}
	if err := w.f.Close(); err != nil {
		os.Remove(w.tmpPath)
		return regrid.DataErrorf("ncio: finalizing %s: %v", w.path, err)
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		os.Remove(w.tmpPath)
		return regrid.DataErrorf("ncio: %v", err)
	}
	return nil
}

// Abort discards the temporary file, leaving any pre-existing
// destination untouched.
func (w *FieldWriter) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.f.Close()
	os.Remove(w.tmpPath)
}
