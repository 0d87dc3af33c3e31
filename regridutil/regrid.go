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
	"fmt"
	"os"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/regrid"
	"github.com/spatialmodel/regrid/ncio"
)

// parseGridSpec converts the value of a --srcgrid or --dstgrid flag into
// a grid specification. The flag holds either three elements (file, the
// longitude variable, and the latitude variable) or four, where the fourth
// names the variable holding the number of valid layers in each column.
func parseGridSpec(flag string, spec []string) (ncio.GridSpec, error) {
	switch len(spec) {
	case 3:
		return ncio.GridSpec{File: spec[0], Lon: spec[1], Lat: spec[2]}, nil
	case 4:
		return ncio.GridSpec{File: spec[0], Lon: spec[1], Lat: spec[2], Mask: spec[3]}, nil
	default:
		return ncio.GridSpec{}, fmt.Errorf("regrid: --%s must be 'file,lonVar,latVar' or 'file,lonVar,latVar,maskVar'; got %d elements", flag, len(spec))
	}
}

// setupLog configures the standard logger for the given verbosity level
// and returns it.
func setupLog(verbosity int) logrus.FieldLogger {
	log := logrus.StandardLogger()
	switch {
	case verbosity <= 0:
		logrus.SetLevel(logrus.ErrorLevel)
	case verbosity == 1:
		logrus.SetLevel(logrus.InfoLevel)
	default:
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:  true,
		DisableSorting: true,
	})
	return log
}

// progressSink wraps a Sink and reports each written layer to the log.
type progressSink struct {
	regrid.Sink
	log logrus.FieldLogger
}

func (s *progressSink) WriteLayer(variable string, k int, data *sparse.DenseArray) error {
	if err := s.Sink.WriteLayer(variable, k, data); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"variable": variable, "layer": k}).Info("wrote layer")
	return nil
}

// Run reads the field named variable from the file in, interpolates it
// from the grid described by srcGrid to the grid described by dstGrid,
// and writes the result to the file out.
func Run(in, out, variable string, srcGrid, dstGrid []string, skipEdges bool,
	fill string, propagate, transferMask bool, deflate, verbosity int) error {

	log := setupLog(verbosity)

	if in == "" || out == "" || variable == "" {
		return fmt.Errorf("regrid: the --in, --out, and --var options are all required")
	}
	srcSpec, err := parseGridSpec("srcgrid", srcGrid)
	if err != nil {
		return err
	}
	dstSpec, err := parseGridSpec("dstgrid", dstGrid)
	if err != nil {
		return err
	}
	fillPolicy, err := regrid.ParseFillPolicy(fill)
	if err != nil {
		return err
	}
	if deflate < 0 || deflate > 9 {
		return fmt.Errorf("regrid: --deflate must be between 0 and 9; got %d", deflate)
	}

	fieldDims, err := ncio.VarDims(in, variable)
	if err != nil {
		return err
	}
	src, err := ncio.ReadGrid(srcSpec, fieldDims)
	if err != nil {
		return err
	}
	dst, err := ncio.ReadGridLike(dstSpec, src)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"source":      src.Topology.String(),
		"destination": dst.Topology.String(),
		"variable":    variable,
	}).Info("read grids")

	reader, err := ncio.OpenFieldReader(in, variable, src)
	if err != nil {
		return err
	}
	defer reader.Close()

	engine, err := regrid.New(regrid.Config{
		Variable:        variable,
		Layers:          reader.Layers(),
		SkipEdgeColumns: skipEdges,
		Fill:            fillPolicy,
		PropagateDown:   propagate,
		TransferMask:    transferMask,
		Log:             log,
	}, src, dst)
	if err != nil {
		return err
	}

	writer, err := ncio.CreateFieldWriter(out, reader, dst, deflate, strings.Join(os.Args, " "))
	if err != nil {
		return err
	}
	if err := engine.Run(reader, &progressSink{Sink: writer, log: log}); err != nil {
		writer.Abort()
		return err
	}
	if err := writer.Commit(); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"file":   out,
		"filled": engine.FilledTotal(),
	}).Info("finished")
	return nil
}
