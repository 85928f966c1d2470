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
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// maxLineBytes is the longest log line that can be read. A destination
// choice expression row holds one coefficient and value pair for each of
// several thousand alternatives.
const maxLineBytes = 64 * 1024 * 1024

// LineReader reads a log one line at a time, keeping track of the line
// number.
type LineReader struct {
	s    *bufio.Scanner
	line int
	text string
}

// NewLineReader returns a LineReader reading from r.
func NewLineReader(r io.Reader) *LineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &LineReader{s: s}
}

// Next advances to the next line, returning false at the end of the
// input or on a read error.
func (lr *LineReader) Next() bool {
	if !lr.s.Scan() {
		lr.text = ""
		return false
	}
	lr.line++
	lr.text = lr.s.Text()
	return true
}

// Text returns the current line with the log prefix removed.
func (lr *LineReader) Text() string { return StripPrefix(lr.text) }

// Line returns the 1-based number of the current line.
func (lr *LineReader) Line() int { return lr.line }

// Err returns the first read error encountered.
func (lr *LineReader) Err() error { return lr.s.Err() }

// preambleLines is the number of lines between a block header and
// its first expression row: the model's explanation of the layout,
// the alternative names, and a rule.
const preambleLines = 5

// totalUtilityLabel starts the last line of each block.
const totalUtilityLabel = "Alt Utility"

// Decoder decodes utility blocks.
type Decoder struct {
	Alternatives Alternatives
	Labels       *LabelSet
}

// DecodeBlock reads the block opened by header h, with lr positioned on
// the header line. On return lr is positioned on the total utility line.
func (d *Decoder) DecodeBlock(lr *LineReader, h Header) (*Block, error) {
	perr := func(kind ParseErrorKind, err error) *ParseError {
		return &ParseError{
			Kind:      kind,
			Line:      lr.Line(),
			Text:      lr.Text(),
			HH:        h.HH,
			PersonNum: h.PersonNum,
			Err:       err,
		}
	}

	table, err := d.Labels.Table(h.Kind, h.Variant)
	if err != nil {
		return nil, perr(MissingConfiguration, err)
	}
	n := d.Alternatives.Count(h.Kind)
	if n <= 0 {
		return nil, perr(MissingConfiguration, fmt.Errorf("no alternatives configured for %v blocks", h.Kind))
	}

	b := &Block{
		Header:       h,
		Line:         lr.Line(),
		Alternatives: n,
		Records:      make([]Record, 0, (table.Len()+1)*n),
	}

	next := func(want string) error {
		if lr.Next() {
			return nil
		}
		if err := lr.Err(); err != nil {
			return perr(Truncated, err)
		}
		return perr(Truncated, fmt.Errorf("end of log while reading %s", want))
	}

	for i := 0; i < preambleLines; i++ {
		if err := next("block preamble"); err != nil {
			return nil, err
		}
	}

	prevRow := math.MinInt32
	coefs := make([]float64, n)
	vals := make([]float64, n)
	for i := 0; i < table.Len(); i++ {
		if err := next(fmt.Sprintf("expression row %d of %d", i+1, table.Len())); err != nil {
			return nil, err
		}
		row, err := ParseExpressionRow(lr.Text(), coefs, vals)
		if err != nil {
			return nil, perr(StructuralMismatch, err)
		}
		if row <= prevRow {
			return nil, perr(StructuralMismatch, fmt.Errorf("row %d follows row %d", row, prevRow))
		}
		prevRow = row
		desc, err := table.Description(row)
		if err != nil {
			return nil, perr(UnknownRowIndex, err)
		}
		for j := 0; j < n; j++ {
			alt, taz, sz, err := d.Alternatives.Coordinates(h, j+1)
			if err != nil {
				return nil, perr(StructuralMismatch, err)
			}
			b.Records = append(b.Records, Record{
				Row:         row,
				Description: desc,
				Alt:         alt,
				DestTAZ:     taz,
				DestSubzone: sz,
				Coefficient: coefs[j],
				Variable:    vals[j],
			})
		}
	}

	if err := next("separator"); err != nil {
		return nil, err
	}
	if !isSeparator(lr.Text()) {
		return nil, perr(StructuralMismatch, fmt.Errorf("expected separator after %d expression rows", table.Len()))
	}

	if err := next("total utility"); err != nil {
		return nil, err
	}
	if err := ParseTotalUtility(lr.Text(), vals); err != nil {
		return nil, perr(StructuralMismatch, err)
	}
	for j := 0; j < n; j++ {
		alt, taz, sz, err := d.Alternatives.Coordinates(h, j+1)
		if err != nil {
			return nil, perr(StructuralMismatch, err)
		}
		b.Records = append(b.Records, Record{
			Row:         TotalUtilityRow,
			Description: TotalUtilityDescription,
			Alt:         alt,
			DestTAZ:     taz,
			DestSubzone: sz,
			Coefficient: 1,
			Variable:    vals[j],
		})
	}
	return b, nil
}

// ParseExpressionRow parses an expression row of the form
//
//	<row>  <coef> * <value>  <coef> * <value> ...
//
// filling coefs and vals, whose length gives the expected number of
// alternatives.
func ParseExpressionRow(payload string, coefs, vals []float64) (row int, err error) {
	fields := strings.Fields(strings.Replace(payload, "*", " * ", -1))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty expression row")
	}
	row, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("invalid row number %q", fields[0])
	}
	terms := fields[1:]
	if len(terms) != 3*len(coefs) {
		if len(terms)%3 == 0 {
			return row, fmt.Errorf("row %d has %d alternatives but should have %d",
				row, len(terms)/3, len(coefs))
		}
		return row, fmt.Errorf("row %d has %d tokens after the row number, "+
			"which is not a whole number of 'coefficient * value' terms", row, len(terms))
	}
	for j := range coefs {
		c, star, v := terms[3*j], terms[3*j+1], terms[3*j+2]
		if star != "*" {
			return row, fmt.Errorf("row %d alternative %d: expected '*' but found %q", row, j+1, star)
		}
		if coefs[j], err = ParseValue(c); err != nil {
			return row, fmt.Errorf("row %d alternative %d coefficient: %v", row, j+1, err)
		}
		if vals[j], err = ParseValue(v); err != nil {
			return row, fmt.Errorf("row %d alternative %d value: %v", row, j+1, err)
		}
	}
	return row, nil
}

// ParseTotalUtility parses a line of the form
//
//	Alt Utility  <value> <value> ...
//
// filling vals, whose length gives the expected number of alternatives.
func ParseTotalUtility(payload string, vals []float64) error {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, totalUtilityLabel) {
		return fmt.Errorf("expected %q line", totalUtilityLabel)
	}
	fields := strings.Fields(payload[len(totalUtilityLabel):])
	if len(fields) != len(vals) {
		return fmt.Errorf("total utility has %d alternatives but should have %d", len(fields), len(vals))
	}
	for j, f := range fields {
		v, err := ParseValue(f)
		if err != nil {
			return fmt.Errorf("total utility alternative %d: %v", j+1, err)
		}
		vals[j] = v
	}
	return nil
}

// ParseValue parses a coefficient or variable value. The model writes
// non-finite values as "NaN", "Infinity" and "-Infinity".
func ParseValue(s string) (float64, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity", "+Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// isSeparator reports whether payload is a horizontal rule.
func isSeparator(payload string) bool {
	payload = strings.TrimSpace(payload)
	return payload != "" && strings.Trim(payload, "-=_*") == ""
}
