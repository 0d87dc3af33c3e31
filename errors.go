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

import "fmt"

// ConfigError indicates contradictory or invalid run options, such as
// requesting mask transfer for a destination grid that already carries
// an explicit mask, or grid dimensions that do not match a variable.
// It is fatal and is reported before any output file is created.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

// ConfigErrorf formats a new ConfigError.
func ConfigErrorf(format string, args ...interface{}) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// DataError indicates that input data could not be read or that its
// shape disagrees with the grid. It is fatal and aborts the run; the
// output file is never renamed into place so no partial result is
// left visible.
type DataError struct {
	msg string
}

func (e *DataError) Error() string { return e.msg }

// DataErrorf formats a new DataError.
func DataErrorf(format string, args ...interface{}) error {
	return &DataError{msg: fmt.Sprintf(format, args...)}
}
