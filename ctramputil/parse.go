/*
Copyright © 2026 the ctramplog authors.
This file is part of ctramplog.

ctramplog is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ctramplog is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ctramplog.  If not, see <http://www.gnu.org/licenses/>.
*/

package ctramputil

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/travelmodel/ctramplog"
	"github.com/travelmodel/ctramplog/compare"
)

// Parse decodes the utility blocks in LogFile and writes them to
// OutputDir.
//
// Prefix is "base" or "build" and starts the name of every output table.
//
// Labels gives the expression row descriptions and Alts the sizes of the
// destination and mode choice sets.
//
// ExcludeRows, if not nil, is a range of rows to leave out of the output,
// and Filter, if not empty, an expression selecting the records to write.
//
// Tables already written stay in place if decoding fails part way
// through the log.
func Parse(ctx context.Context, Prefix, LogFile, OutputDir string, Labels *ctramplog.LabelSet,
	Alts ctramplog.Alternatives, ExcludeRows *ctramplog.RowRange, Filter string,
	log logrus.FieldLogger) (*ctramplog.Result, error) {

	startTime := time.Now()

	w, err := ctramplog.NewWriter(OutputDir, Prefix, LogFile)
	if err != nil {
		return nil, err
	}
	w.Log = log
	w.ExcludeRows = ExcludeRows
	if Filter != "" {
		if w.Filter, err = ctramplog.NewRecordFilter(Filter); err != nil {
			return nil, err
		}
	}

	p, err := ctramplog.NewParser(Labels, Alts)
	if err != nil {
		return nil, err
	}
	p.Log = log

	f, err := os.Open(LogFile)
	if err != nil {
		return nil, errors.Wrap(err, "ctramplog: opening log file")
	}
	defer f.Close()

	log.WithField("file", LogFile).Info("reading log")
	res, err := p.Parse(ctx, f, w)
	if err != nil {
		return res, err
	}
	if err := w.Finish(res); err != nil {
		return res, err
	}
	log.WithFields(logrus.Fields{
		"blocks":   len(res.Summaries),
		"lines":    res.Lines,
		"duration": time.Since(startTime).String(),
	}).Info("finished")
	return res, nil
}

// Compare writes the differences between the base and build tables
// to OutputFile and returns how many terms differ.
func Compare(BaseFile, BuildFile, OutputFile string, Tolerance float64) (int, error) {
	base, err := compare.ReadFile(BaseFile)
	if err != nil {
		return 0, err
	}
	build, err := compare.ReadFile(BuildFile)
	if err != nil {
		return 0, err
	}
	diffs := compare.Tables(base, build, Tolerance)
	if err := compare.WriteFile(OutputFile, diffs); err != nil {
		return 0, err
	}
	return len(diffs), nil
}
