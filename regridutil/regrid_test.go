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

package regridutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"

	"github.com/spatialmodel/regrid"
	"github.com/spatialmodel/regrid/ncio"
)

func createInput(t *testing.T, path string) {
	t.Helper()
	h := cdf.NewHeader([]string{"lev", "lat", "lon"}, []int{2, 3, 4})
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddVariable("temp", []string{"lev", "lat", "lon"}, []float64{0})
	h.Define()
	for _, err := range h.Check() {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cf, err := cdf.Create(f, h)
	if err != nil {
		t.Fatal(err)
	}
	temp := make([]float64, 24)
	for i := range temp {
		if i < 12 {
			temp[i] = 100
		} else {
			temp[i] = 101
		}
	}
	for v, vals := range map[string]interface{}{
		"lon":  []float64{0, 10, 20, 30},
		"lat":  []float64{10, 20, 30},
		"temp": temp,
	} {
		if _, err := cf.Writer(v, nil, nil).Write(vals); err != nil {
			t.Fatalf("writing %s: %v", v, err)
		}
	}
}

func createDestinationGrid(t *testing.T, path string) {
	t.Helper()
	h := cdf.NewHeader([]string{"dlat", "dlon"}, []int{2, 2})
	h.AddVariable("dlon", []string{"dlon"}, []float64{0})
	h.AddVariable("dlat", []string{"dlat"}, []float64{0})
	h.Define()
	for _, err := range h.Check() {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cf, err := cdf.Create(f, h)
	if err != nil {
		t.Fatal(err)
	}
	for v, vals := range map[string]interface{}{
		"dlon": []float64{5, 15},
		"dlat": []float64{15, 25},
	} {
		if _, err := cf.Writer(v, nil, nil).Write(vals); err != nil {
			t.Fatalf("writing %s: %v", v, err)
		}
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.nc")
	dstGrid := filepath.Join(dir, "grid.nc")
	out := filepath.Join(dir, "out.nc")
	createInput(t, in)
	createDestinationGrid(t, dstGrid)

	err := Run(in, out, "temp",
		[]string{in, "lon", "lat"},
		[]string{dstGrid, "dlon", "dlat"},
		false, "zero", false, false, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	g, err := ncio.ReadGridLike(ncio.GridSpec{File: dstGrid, Lon: "dlon", Lat: "dlat"},
		&regrid.Grid{Topology: regrid.Rectangular})
	if err != nil {
		t.Fatal(err)
	}
	r, err := ncio.OpenFieldReader(out, "temp", g)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	// The field is constant within each layer, so every interior
	// destination point takes the layer constant exactly.
	for k, want := range []float64{100, 101} {
		layer, err := r.ReadLayer("temp", k)
		if err != nil {
			t.Fatal(err)
		}
		if len(layer.Elements) != 4 {
			t.Fatalf("layer %d: have %d values, want 4", k, len(layer.Elements))
		}
		for i, have := range layer.Elements {
			if math.Abs(have-want) > 1e-9 {
				t.Errorf("layer %d point %d: have %g, want %g", k, i, have, want)
			}
		}
	}
}

func TestRunMissingOptions(t *testing.T) {
	if err := Run("", "", "", nil, nil, false, "zero", false, false, 0, 0); err == nil {
		t.Error("expected an error for missing options")
	}
}

func TestParseGridSpec(t *testing.T) {
	spec, err := parseGridSpec("srcgrid", []string{"f.nc", "lon", "lat"})
	if err != nil {
		t.Fatal(err)
	}
	if spec.File != "f.nc" || spec.Lon != "lon" || spec.Lat != "lat" || spec.Mask != "" {
		t.Errorf("have %+v", spec)
	}

	spec, err = parseGridSpec("srcgrid", []string{"f.nc", "lon", "lat", "mask"})
	if err != nil {
		t.Fatal(err)
	}
	if spec.Mask != "mask" {
		t.Errorf("have mask %q, want \"mask\"", spec.Mask)
	}

	if _, err := parseGridSpec("dstgrid", []string{"f.nc"}); err == nil {
		t.Error("expected an error for a short grid specification")
	}
}

func TestFlagBinding(t *testing.T) {
	for _, name := range []string{"in", "out", "var", "srcgrid", "dstgrid",
		"skipedges", "fill", "propagate", "transfermask", "deflate", "verbosity"} {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("the run command has no flag %q", name)
		}
	}
	if Root.PersistentFlags().Lookup("config") == nil {
		t.Error("the root command has no flag \"config\"")
	}
	if Cfg.GetString("fill") != "zero" {
		t.Errorf("default fill: have %q, want \"zero\"", Cfg.GetString("fill"))
	}
	if Cfg.GetInt("verbosity") != 1 {
		t.Errorf("default verbosity: have %d, want 1", Cfg.GetInt("verbosity"))
	}
}
