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

package ctramplog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Float is a float64 that is written to CSV in its shortest exact form,
// with non-finite values written as NaN, +Inf and -Inf.
type Float float64

// MarshalCSV implements gocsv.TypeMarshaller.
func (f Float) MarshalCSV() (string, error) {
	return strconv.FormatFloat(float64(f), 'g', -1, 64), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (f *Float) UnmarshalCSV(s string) error {
	v, err := ParseValue(s)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// DestinationRow is one line of a destination choice utility table.
type DestinationRow struct {
	Row         int    `csv:"row num"`
	Description string `csv:"row description"`
	Alt         int    `csv:"dest alt"`
	DestTAZ     int    `csv:"dest taz"`
	DestSubzone int    `csv:"dest subzone"`
	Coefficient Float  `csv:"coefficient"`
	Variable    Float  `csv:"variable"`
}

// ModeRow is one line of a mode choice utility table. Mode choice
// blocks from the whole log share one table, so each line also
// identifies the decision maker and the tour. TourID is -1 when the
// header has none.
type ModeRow struct {
	HH          int64  `csv:"hh"`
	PersonNum   int    `csv:"person num"`
	Purpose     string `csv:"purpose"`
	TourID      int    `csv:"tour id"`
	Row         int    `csv:"row num"`
	Description string `csv:"row description"`
	Alt         int    `csv:"mode alt"`
	DestTAZ     int    `csv:"dest taz"`
	DestSubzone int    `csv:"dest subzone"`
	Coefficient Float  `csv:"coefficient"`
	Variable    Float  `csv:"variable"`
}

type summaryRow struct {
	Kind         string `csv:"kind"`
	Variant      string `csv:"variant"`
	Purpose      string `csv:"purpose"`
	HH           int64  `csv:"hh"`
	PersonNum    int    `csv:"person num"`
	PersonType   string `csv:"person type"`
	TourNum      int    `csv:"tour num"`
	TourID       int    `csv:"tour id"`
	DestTAZ      int    `csv:"dest taz"`
	DestSubzone  int    `csv:"dest subzone"`
	Line         int    `csv:"log line"`
	Alternatives int    `csv:"alternatives"`
	Records      int    `csv:"records"`
	Logsum       Float  `csv:"logsum"`
	BestAlt      int    `csv:"best alt"`
	Fingerprint  string `csv:"fingerprint"`
}

// RowRange is an inclusive range of expression row numbers.
type RowRange struct {
	First, Last int
}

// Contains reports whether row is within r.
func (r RowRange) Contains(row int) bool { return row >= r.First && row <= r.Last }

// Writer writes decoded utility blocks to CSV tables.
type Writer struct {
	// OutputDir is the directory that the output directories are created in.
	OutputDir string

	// Prefix is "base" or "build" and starts every table file name, so
	// that the output of two model runs can be put side by side.
	Prefix string

	// SourceLog is the log that is being parsed. It is copied into each
	// output directory.
	SourceLog string

	// ExcludeRows, if not nil, gives a range of rows, typically the
	// alternative specific constants, that are left out of the tables.
	ExcludeRows *RowRange

	// Filter, if not nil, selects the records to write.
	Filter *RecordFilter

	Log logrus.FieldLogger

	written map[string]int
	copied  map[string]bool
}

// NewWriter creates a writer. prefix must be "base" or "build".
func NewWriter(outputDir, prefix, sourceLog string) (*Writer, error) {
	if prefix != "base" && prefix != "build" {
		return nil, fmt.Errorf("ctramplog: output prefix must be 'base' or 'build' but is %q", prefix)
	}
	if outputDir == "" {
		outputDir = "."
	}
	if _, err := os.Stat(outputDir); err != nil {
		return nil, errors.Wrap(err, "ctramplog: the output directory doesn't exist")
	}
	return &Writer{
		OutputDir: outputDir,
		Prefix:    prefix,
		SourceLog: sourceLog,
		Log:       logrus.StandardLogger(),
		written:   make(map[string]int),
		copied:    make(map[string]bool),
	}, nil
}

// Select returns the records that should be written: those with a
// nonzero coefficient that are outside ExcludeRows and pass Filter.
func (w *Writer) Select(records []Record) ([]Record, error) {
	o := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Coefficient == 0 {
			continue
		}
		if w.ExcludeRows != nil && w.ExcludeRows.Contains(r.Row) {
			continue
		}
		if w.Filter != nil {
			keep, err := w.Filter.Keep(r)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
		}
		o = append(o, r)
	}
	return o, nil
}

// DestinationDir returns the output directory for the destination choice
// block with header h.
func (w *Writer) DestinationDir(h Header) string {
	return filepath.Join(w.OutputDir, fmt.Sprintf("destchoice_%v_hh%d_pers%d", h.Variant, h.HH, h.PersonNum))
}

// ModeChoiceDir returns the output directory for mode choice blocks of
// variant v.
func (w *Writer) ModeChoiceDir(v Variant) string {
	return filepath.Join(w.OutputDir, fmt.Sprintf("modechoice_%v", v))
}

// HandleBlock writes destination choice blocks as soon as they are
// decoded. Mode choice blocks are ignored here and written together by
// WriteModeChoice.
func (w *Writer) HandleBlock(b *Block) error {
	if b.Kind != DestinationChoice {
		return nil
	}
	dir := w.DestinationDir(b.Header)
	if err := w.prepareDir(dir); err != nil {
		return err
	}
	w.written[dir]++
	name := w.Prefix + "_dc_utilities.csv"
	if n := w.written[dir]; n > 1 {
		name = fmt.Sprintf("%s_dc_utilities_%d.csv", w.Prefix, n)
		w.Log.WithFields(logrus.Fields{
			"hh":        b.HH,
			"personNum": b.PersonNum,
			"tourNum":   b.TourNum,
			"file":      name,
		}).Warn("decision maker has more than one destination choice block")
	}

	records, err := w.Select(b.Records)
	if err != nil {
		return err
	}
	rows := make([]DestinationRow, len(records))
	for i, r := range records {
		rows[i] = DestinationRow{
			Row:         r.Row,
			Description: r.Description,
			Alt:         r.Alt,
			DestTAZ:     r.DestTAZ,
			DestSubzone: r.DestSubzone,
			Coefficient: Float(r.Coefficient),
			Variable:    Float(r.Variable),
		}
	}
	path := filepath.Join(dir, name)
	if err := writeCSV(path, &rows); err != nil {
		return err
	}
	w.Log.WithFields(logrus.Fields{
		"file":    path,
		"records": len(rows),
	}).Info("wrote destination choice utilities")
	return nil
}

// WriteModeChoice writes all mode choice blocks into one table per
// variant.
func (w *Writer) WriteModeChoice(blocks []*Block) error {
	byVariant := make(map[Variant][]ModeRow)
	var variants []Variant
	for _, b := range blocks {
		if b.Kind != ModeChoice {
			continue
		}
		records, err := w.Select(b.Records)
		if err != nil {
			return err
		}
		if _, ok := byVariant[b.Variant]; !ok {
			variants = append(variants, b.Variant)
			byVariant[b.Variant] = []ModeRow{}
		}
		for _, r := range records {
			byVariant[b.Variant] = append(byVariant[b.Variant], ModeRow{
				HH:          b.HH,
				PersonNum:   b.PersonNum,
				Purpose:     b.Purpose,
				TourID:      b.TourID,
				Row:         r.Row,
				Description: r.Description,
				Alt:         r.Alt,
				DestTAZ:     r.DestTAZ,
				DestSubzone: r.DestSubzone,
				Coefficient: Float(r.Coefficient),
				Variable:    Float(r.Variable),
			})
		}
	}
	for _, v := range variants {
		dir := w.ModeChoiceDir(v)
		if err := w.prepareDir(dir); err != nil {
			return err
		}
		rows := byVariant[v]
		path := filepath.Join(dir, w.Prefix+"_mc_utilities.csv")
		if err := writeCSV(path, &rows); err != nil {
			return err
		}
		w.Log.WithFields(logrus.Fields{
			"file":    path,
			"records": len(rows),
		}).Info("wrote mode choice utilities")
	}
	return nil
}

// SummaryFile returns the path of the block summary table.
func (w *Writer) SummaryFile() string {
	return filepath.Join(w.OutputDir, w.Prefix+"_blocks.csv")
}

// WriteSummaries writes one line per decoded block.
func (w *Writer) WriteSummaries(summaries []BlockSummary) error {
	rows := make([]summaryRow, len(summaries))
	for i, s := range summaries {
		rows[i] = summaryRow{
			Kind:         s.Kind.String(),
			Variant:      s.Variant.String(),
			Purpose:      s.Purpose,
			HH:           s.HH,
			PersonNum:    s.PersonNum,
			PersonType:   s.PersonType,
			TourNum:      s.TourNum,
			TourID:       s.TourID,
			DestTAZ:      s.DestTAZ,
			DestSubzone:  s.DestSubzone,
			Line:         s.Line,
			Alternatives: s.Alternatives,
			Records:      s.Records,
			Logsum:       Float(s.Logsum),
			BestAlt:      s.BestAlt,
			Fingerprint:  s.Fingerprint,
		}
	}
	return writeCSV(w.SummaryFile(), &rows)
}

// Finish writes the mode choice tables and the block summary of res.
func (w *Writer) Finish(res *Result) error {
	if err := w.WriteModeChoice(res.ModeChoice); err != nil {
		return err
	}
	return w.WriteSummaries(res.Summaries)
}

// prepareDir creates dir if needed and copies the source log into it
// the first time it is used.
func (w *Writer) prepareDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "ctramplog: creating output directory")
	}
	if w.SourceLog == "" || w.copied[dir] {
		return nil
	}
	if err := copyFile(w.SourceLog, filepath.Join(dir, filepath.Base(w.SourceLog))); err != nil {
		return err
	}
	w.copied[dir] = true
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "ctramplog: opening source log for copying")
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(err, "ctramplog: creating log copy")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "ctramplog: copying %s", src)
	}
	return out.Close()
}

func writeCSV(path string, rows interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "ctramplog: creating output file")
	}
	if err := gocsv.Marshal(rows, f); err != nil {
		f.Close()
		return errors.Wrapf(err, "ctramplog: writing %s", path)
	}
	return f.Close()
}
