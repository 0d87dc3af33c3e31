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

// Package regrid interpolates geophysical layered fields onto a
// different horizontal grid. It targets geographic grids with nodes
// defined in lat/lon and provides robust interpolation on the sphere,
// including topologically complicated cases such as tripolar grids and
// grids with discontinuities in node coordinates. Source and
// destination grids can be structured or unstructured; vertical layers
// are interpolated sequentially.
//
// The coordinate singularity at the poles is avoided by keeping two
// stereographic projections for every point, one projected from each
// pole, and interpolating each destination point in the projection
// that is well-conditioned for its hemisphere.
package regrid

import (
	"math"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Version gives the version number.
const Version = "0.3.1"

// FillPolicy selects the value assigned to destination points whose
// query falls outside the convex hull of the source points.
type FillPolicy int

const (
	FillZero FillPolicy = iota
	FillNaN
)

func (p FillPolicy) String() string {
	if p == FillNaN {
		return "nan"
	}
	return "zero"
}

// ParseFillPolicy converts a configuration string to a FillPolicy.
func ParseFillPolicy(s string) (FillPolicy, error) {
	switch s {
	case "zero", "":
		return FillZero, nil
	case "nan":
		return FillNaN, nil
	}
	return FillZero, ConfigErrorf("regrid: unknown fill policy %q (expected \"zero\" or \"nan\")", s)
}

func (p FillPolicy) value() float64 {
	if p == FillNaN {
		return math.NaN()
	}
	return 0
}

// Source reads one horizontal layer of a field. Missing or invalid
// entries are NaN; any stored scale, offset, and fill-value metadata
// has already been applied.
type Source interface {
	ReadLayer(variable string, k int) (*sparse.DenseArray, error)
}

// Sink persists one horizontal layer of the regridded field.
type Sink interface {
	WriteLayer(variable string, k int, data *sparse.DenseArray) error
}

// Config holds the options consumed by an Engine.
type Config struct {
	// Variable is the name of the field to regrid.
	Variable string

	// Layers is the number of vertical layers of the field.
	Layers int

	// SkipEdgeColumns excludes the first and last i columns of a
	// structured source grid, for grid conventions with duplicated
	// wrap-around columns (e.g. NEMO on ORCA grids).
	SkipEdgeColumns bool

	// Fill is the value policy for destination points that cannot
	// be interpolated.
	Fill FillPolicy

	// PropagateDown reuses, for a destination point whose query
	// falls outside the hull, the last value successfully
	// interpolated for that point at a shallower layer.
	PropagateDown bool

	// TransferMask derives the destination valid-layer counts from
	// the source grid's counts. It is invalid if the destination
	// grid already carries an explicit mask.
	TransferMask bool

	// Interpolator overrides the triangulation backend. Nil means
	// DelaunayInterpolator.
	Interpolator Interpolator

	// Log receives run progress. Nil means the logrus standard
	// logger. Per-layer point counts are logged at debug level.
	Log logrus.FieldLogger
}

// Engine regrids the layers of one field from a source grid onto a
// destination grid. Grids and projections are computed at creation and
// reused for every layer; point sets and interpolants live only within
// one layer.
type Engine struct {
	cfg Config

	src, dst         *Grid
	srcProj, dstProj *Projection

	// dstMask is the destination valid-layer count: either the
	// destination grid's own, or the result of mask transfer.
	dstMask []int32

	// fillLast carries the last interpolated value per destination
	// point when PropagateDown is enabled. It is never reset within
	// a run.
	fillLast []float64

	south, north pointSet

	interp Interpolator

	filledTotal int
}

// New validates the configuration and prepares an Engine.
func New(cfg Config, src, dst *Grid) (*Engine, error) {
	if cfg.Variable == "" {
		return nil, ConfigErrorf("regrid: no variable name specified")
	}
	if cfg.Layers < 1 {
		return nil, ConfigErrorf("regrid: variable %s: %d layers", cfg.Variable, cfg.Layers)
	}
	if err := src.check("source"); err != nil {
		return nil, err
	}
	if err := dst.check("destination"); err != nil {
		return nil, err
	}
	if src.Topology == Unstructured != (dst.Topology == Unstructured) {
		return nil, ConfigErrorf("regrid: source grid is %s but destination grid is %s",
			src.Topology, dst.Topology)
	}
	if cfg.TransferMask {
		if dst.NumLayers != nil {
			return nil, ConfigErrorf("regrid: mask transfer requested but the destination grid has an explicit valid-layer count")
		}
		if src.NumLayers == nil {
			return nil, ConfigErrorf("regrid: mask transfer requested but the source grid has no valid-layer count")
		}
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Interpolator == nil {
		cfg.Interpolator = DelaunayInterpolator{}
	}
	e := &Engine{
		cfg:     cfg,
		src:     src,
		dst:     dst,
		srcProj: NewProjection(src),
		dstProj: NewProjection(dst),
		dstMask: dst.NumLayers,
		interp:  cfg.Interpolator,
	}
	return e, nil
}

// Run regrids all layers of the configured variable from src to sink,
// in strictly increasing layer order.
func (e *Engine) Run(src Source, sink Sink) error {
	if e.cfg.TransferMask {
		mask, err := e.transferMask()
		if err != nil {
			return err
		}
		e.dstMask = mask
	}
	nij := e.dst.Nij()
	if e.cfg.PropagateDown {
		e.fillLast = make([]float64, nij)
		for i := range e.fillLast {
			e.fillLast[i] = math.NaN()
		}
	}
	out := sparse.ZerosDense(e.dst.shape()...)
	for k := 0; k < e.cfg.Layers; k++ {
		vals, err := src.ReadLayer(e.cfg.Variable, k)
		if err != nil {
			return DataErrorf("regrid: reading %s layer %d: %v", e.cfg.Variable, k, err)
		}
		if len(vals.Elements) != e.src.Nij() {
			return DataErrorf("regrid: %s layer %d: %d values for %d grid points",
				e.cfg.Variable, k, len(vals.Elements), e.src.Nij())
		}
		if err := e.regridLayer(k, vals.Elements, out.Elements); err != nil {
			return err
		}
		if err := sink.WriteLayer(e.cfg.Variable, k, out); err != nil {
			return DataErrorf("regrid: writing %s layer %d: %v", e.cfg.Variable, k, err)
		}
	}
	e.cfg.Log.WithFields(logrus.Fields{
		"variable": e.cfg.Variable,
		"filled":   e.filledTotal,
	}).Debug("regridding finished")
	return nil
}

// regridLayer computes one destination layer into out.
func (e *Engine) regridLayer(k int, vals, out []float64) error {
	gatherPoints(&e.south, South, e.src, e.srcProj, vals, k, e.cfg.SkipEdgeColumns)
	gatherPoints(&e.north, North, e.src, e.srcProj, vals, k, e.cfg.SkipEdgeColumns)

	if len(e.south.pts) == 0 && len(e.north.pts) == 0 {
		// A layer with no usable source points takes the plain
		// fill value everywhere. Values carried forward from
		// shallower layers do not apply and are left for the
		// layers below.
		fill := e.cfg.Fill.value()
		for i := range out {
			out[i] = fill
		}
		e.filledTotal += len(out)
		e.cfg.Log.WithFields(logrus.Fields{
			"layer":  k,
			"filled": len(out),
		}).Debug("layer has no source points")
		return nil
	}

	var interpSouth, interpNorth Interpolant
	var err error
	if len(e.south.pts) > 0 {
		if interpSouth, err = e.interp.Build(e.south.pts, e.south.vals); err != nil {
			return DataErrorf("regrid: %s layer %d: building south interpolant: %v", e.cfg.Variable, k, err)
		}
		defer e.interp.Release(interpSouth)
	}
	if len(e.north.pts) > 0 {
		if interpNorth, err = e.interp.Build(e.north.pts, e.north.vals); err != nil {
			return DataErrorf("regrid: %s layer %d: building north interpolant: %v", e.cfg.Variable, k, err)
		}
		defer e.interp.Release(interpNorth)
	}

	evaluated, filled := 0, 0
	for i := range out {
		if e.dstMask != nil && k >= int(e.dstMask[i]) {
			out[i] = e.cfg.Fill.value()
			continue
		}
		evaluated++
		var in Interpolant
		var x, y float64
		if e.dst.Lat[i] >= 0 {
			in = interpSouth
			x, y = e.dstProj.at(South, i)
		} else {
			in = interpNorth
			x, y = e.dstProj.at(North, i)
		}
		v := math.NaN()
		if in != nil {
			v = in.Evaluate(x, y)
		}
		if isFinite(v) {
			out[i] = v
			if e.fillLast != nil {
				e.fillLast[i] = v
			}
		} else {
			filled++
			out[i] = e.fillValue(i)
		}
	}
	e.filledTotal += filled
	fields := logrus.Fields{
		"layer":  k,
		"south":  len(e.south.pts),
		"north":  len(e.north.pts),
		"out":    evaluated,
		"filled": filled,
	}
	if debugEnabled(e.cfg.Log) {
		fields["min"] = floats.Min(out)
		fields["max"] = floats.Max(out)
	}
	e.cfg.Log.WithFields(fields).Debug("layer regridded")
	return nil
}

// debugEnabled reports whether log emits debug-level entries, so that
// values computed only for debug fields can be skipped otherwise.
func debugEnabled(log logrus.FieldLogger) bool {
	switch l := log.(type) {
	case *logrus.Logger:
		return l.Level >= logrus.DebugLevel
	case *logrus.Entry:
		return l.Logger.Level >= logrus.DebugLevel
	}
	return true
}

// fillValue resolves the fallback value for destination point i. In
// propagate mode the value carried forward from a shallower layer
// takes precedence over the plain fill value.
func (e *Engine) fillValue(i int) float64 {
	if e.fillLast != nil && isFinite(e.fillLast[i]) {
		return e.fillLast[i]
	}
	return e.cfg.Fill.value()
}

// FilledTotal reports the number of destination values that have taken
// the fill policy so far in the run.
func (e *Engine) FilledTotal() int { return e.filledTotal }
