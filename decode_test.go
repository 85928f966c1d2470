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
	"math"
	"os"
	"strings"
	"testing"
	"unicode/utf8"
)

const testPrefix = "08-Mar-2016 13:21:31, INFO, "

// testAlts are the choice set sizes of the logs in testdata.
var testAlts = Alternatives{TAZCount: 2, SubzoneCount: 2, ModeAlternatives: 3}

var testPreamble = []string{
	"*******************************************************************************************",
	"For each model expression, 'coeff * expressionValue' pairs are listed for each available alternative.  At the end, total utility is listed.",
	"The last line shows total utility for each available alternative.",
	"Alternative                      1                              2",
	"--------------------------------------------------------------------------------------------",
}

// logText adds the log prefix to each payload.
func logText(payloads ...string) string {
	var b strings.Builder
	for _, p := range payloads {
		b.WriteString(testPrefix)
		b.WriteString(p)
		b.WriteString("\n")
	}
	return b.String()
}

// blockText returns a log holding header, the preamble and lines.
func blockText(header string, lines ...string) string {
	payloads := append([]string{header}, testPreamble...)
	return logText(append(payloads, lines...)...)
}

func testLabels(t *testing.T) *LabelSet {
	f, err := os.Open("testdata/labels.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	labels, err := ReadLabelsTOML(f)
	if err != nil {
		t.Fatal(err)
	}
	return labels
}

// decodeFirst decodes the block whose header is the first line of text.
func decodeFirst(t *testing.T, d *Decoder, text string) (*Block, error) {
	lr := NewLineReader(strings.NewReader(text))
	if !lr.Next() {
		t.Fatal("empty log")
	}
	h := Classify(lr.Text())
	if h.Kind == NoHeader {
		t.Fatalf("not a header: %q", lr.Text())
	}
	return d.DecodeBlock(lr, h)
}

// sameFloat reports whether a and b are equal, treating NaNs as equal.
func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}

func sameRecords(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Row != y.Row || x.Description != y.Description || x.Alt != y.Alt ||
			x.DestTAZ != y.DestTAZ || x.DestSubzone != y.DestSubzone ||
			!sameFloat(x.Coefficient, y.Coefficient) || !sameFloat(x.Variable, y.Variable) {
			return false
		}
	}
	return true
}

const usualDestHeader = "Utility Expressions for Usual Location Choice Model for: Purpose=work_med for HH=42, PersonNum=1, PersonType=Full-time worker, TourNum=1"

func TestParseValue(t *testing.T) {
	tests := []struct {
		s    string
		want float64
	}{
		{s: "NaN", want: math.NaN()},
		{s: "Infinity", want: math.Inf(1)},
		{s: "+Infinity", want: math.Inf(1)},
		{s: "-Infinity", want: math.Inf(-1)},
		{s: "1.25000e+01", want: 12.5},
		{s: "-0.02100000", want: -0.021},
		{s: "0", want: 0},
	}
	for _, test := range tests {
		got, err := ParseValue(test.s)
		if err != nil {
			t.Errorf("%s: %v", test.s, err)
			continue
		}
		if !sameFloat(got, test.want) {
			t.Errorf("%s: %g != %g", test.s, got, test.want)
		}
	}
	for _, s := range []string{"", "abc", "1.0.0", "nan-ish"} {
		if _, err := ParseValue(s); err == nil {
			t.Errorf("%q: expected an error", s)
		}
	}
}

func TestParseExpressionRow(t *testing.T) {
	t.Run("spaced", func(t *testing.T) {
		coefs, vals := make([]float64, 2), make([]float64, 2)
		row, err := ParseExpressionRow("12   -0.02100000 * 1.25000e+01      0.50000000 * NaN", coefs, vals)
		if err != nil {
			t.Fatal(err)
		}
		if row != 12 {
			t.Errorf("row %d != 12", row)
		}
		if coefs[0] != -0.021 || coefs[1] != 0.5 {
			t.Errorf("coefficients: %v", coefs)
		}
		if vals[0] != 12.5 || !math.IsNaN(vals[1]) {
			t.Errorf("values: %v", vals)
		}
	})
	t.Run("unspaced", func(t *testing.T) {
		coefs, vals := make([]float64, 2), make([]float64, 2)
		row, err := ParseExpressionRow("3 1.0*Infinity -2*-Infinity", coefs, vals)
		if err != nil {
			t.Fatal(err)
		}
		if row != 3 || coefs[0] != 1 || coefs[1] != -2 ||
			!math.IsInf(vals[0], 1) || !math.IsInf(vals[1], -1) {
			t.Errorf("row %d, coefficients %v, values %v", row, coefs, vals)
		}
	})
	for _, test := range []struct {
		name, payload string
		n             int
	}{
		{name: "too many alternatives", payload: "1 1*2 3*4 5*6", n: 2},
		{name: "too few alternatives", payload: "1 1*2", n: 2},
		{name: "partial term", payload: "1 1*2 3", n: 2},
		{name: "missing star", payload: "1 1 2 3", n: 1},
		{name: "bad row", payload: "x 1*2", n: 1},
		{name: "bad coefficient", payload: "1 one*2", n: 1},
		{name: "bad value", payload: "1 1*two", n: 1},
		{name: "empty", payload: "", n: 1},
	} {
		t.Run(test.name, func(t *testing.T) {
			if _, err := ParseExpressionRow(test.payload, make([]float64, test.n), make([]float64, test.n)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseTotalUtility(t *testing.T) {
	vals := make([]float64, 3)
	if err := ParseTotalUtility("Alt Utility   -1.7625   NaN  -999.0", vals); err != nil {
		t.Fatal(err)
	}
	if vals[0] != -1.7625 || !math.IsNaN(vals[1]) || vals[2] != -999 {
		t.Errorf("values: %v", vals)
	}
	for _, payload := range []string{
		"Alt Utility 1 2",
		"Alt Utility 1 2 3 4",
		"Utility 1 2 3",
		"Alt Utility 1 x 3",
	} {
		if err := ParseTotalUtility(payload, vals); err == nil {
			t.Errorf("%q: expected an error", payload)
		}
	}
}

func TestIsSeparator(t *testing.T) {
	for payload, want := range map[string]bool{
		"-----------":  true,
		"  ======== ":  true,
		"*****-----":   true,
		"":             false,
		"Alt Utility":  false,
		"1 1.0 * -2.0": false,
	} {
		if got := isSeparator(payload); got != want {
			t.Errorf("%q: %v != %v", payload, got, want)
		}
	}
}

// Two alternatives and two expression rows, where the first
// alternative of row 1 has a zero coefficient and the second has a
// NaN value.
func TestDecodeBlock_zeroCoefficientAndNaN(t *testing.T) {
	table, err := NewLabelTable(DestinationChoice, Usual, map[int]string{
		1: "Mode choice logsum",
		2: "Distance",
	})
	if err != nil {
		t.Fatal(err)
	}
	d := &Decoder{
		Alternatives: Alternatives{TAZCount: 1, SubzoneCount: 2, ModeAlternatives: 1},
		Labels:       NewLabelSet(table),
	}
	b, err := decodeFirst(t, d, blockText(usualDestHeader,
		"1       0.00000000 * 3.00000e+00       1.00000000 * NaN",
		"2       0.00000000 * 1.00000e+00       0.00000000 * 2.00000e+00",
		"--------------------------------------------------------------------------------------------",
		"Alt Utility       -999.0        NaN",
	))
	if err != nil {
		t.Fatal(err)
	}
	if b.Alternatives != 2 || len(b.Records) != 6 {
		t.Fatalf("have %d alternatives and %d records, want 2 and 6", b.Alternatives, len(b.Records))
	}
	for _, row := range []int{1, 2, TotalUtilityRow} {
		n := 0
		for _, r := range b.Records {
			if r.Row == row {
				n++
			}
		}
		if n != b.Alternatives {
			t.Errorf("row %d has %d records, want %d", row, n, b.Alternatives)
		}
	}

	records, err := new(Writer).Select(b.Records)
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{
		{Row: 1, Description: "Mode choice logsum", Alt: 2, DestTAZ: 1, DestSubzone: 1, Coefficient: 1, Variable: math.NaN()},
		{Row: TotalUtilityRow, Description: TotalUtilityDescription, Alt: 1, DestTAZ: 1, DestSubzone: 0, Coefficient: 1, Variable: -999},
		{Row: TotalUtilityRow, Description: TotalUtilityDescription, Alt: 2, DestTAZ: 1, DestSubzone: 1, Coefficient: 1, Variable: math.NaN()},
	}
	if !sameRecords(records, want) {
		t.Errorf("have %+v\nwant %+v", records, want)
	}
}

func TestDecodeBlock_errors(t *testing.T) {
	d := &Decoder{Alternatives: testAlts, Labels: testLabels(t)}
	const (
		row1 = "1      1.00000000 * -1.20000e+00      1.00000000 * -8.00000e-01      1.00000000 * Infinity      1.00000000 * -2.00000e+00"
		row2 = "2     -0.05000000 * 3.00000e+00      -0.05000000 * 4.50000e+00      -0.05000000 * 6.00000e+00      -0.05000000 * 7.50000e+00"
		row3 = "3      0.00000000 * 1.00000e+00       0.00000000 * 1.00000e+00       0.00000000 * 1.00000e+00       0.00000000 * 1.00000e+00"
		row4 = "4      0.00000000 * 1.00000e+00       0.00000000 * 1.00000e+00       0.00000000 * 1.00000e+00       0.00000000 * 1.00000e+00"
		sep  = "--------------------------------------------------------------------------------------------"
		tot  = "Alt Utility   -1.35   -1.025   Infinity   -2.375"
	)
	tests := []struct {
		name  string
		lines []string
		kind  ParseErrorKind
		line  int
	}{
		{
			name:  "unknown row",
			lines: []string{row1, row2, row4, sep, tot},
			kind:  UnknownRowIndex,
			line:  9,
		},
		{
			name:  "missing alternative",
			lines: []string{row1, "2 -0.05 * 3.0 -0.05 * 4.5 -0.05 * 6.0", row3, sep, tot},
			kind:  StructuralMismatch,
			line:  8,
		},
		{
			name:  "rows out of order",
			lines: []string{row1, row3, row2, sep, tot},
			kind:  StructuralMismatch,
			line:  9,
		},
		{
			name:  "extra row",
			lines: []string{row1, row2, row3, row4, sep, tot},
			kind:  StructuralMismatch,
			line:  10,
		},
		{
			name:  "short total utility",
			lines: []string{row1, row2, row3, sep, "Alt Utility   -1.35   -1.025   Infinity"},
			kind:  StructuralMismatch,
			line:  11,
		},
		{
			name:  "truncated",
			lines: []string{row1, row2},
			kind:  Truncated,
			line:  8,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := decodeFirst(t, d, blockText(usualDestHeader, test.lines...))
			pe, ok := err.(*ParseError)
			if !ok {
				t.Fatalf("have error %v (%T), want *ParseError", err, err)
			}
			if pe.Kind != test.kind {
				t.Errorf("kind: %v != %v", pe.Kind, test.kind)
			}
			if pe.Line != test.line {
				t.Errorf("line: %d != %d", pe.Line, test.line)
			}
			if pe.HH != 42 || pe.PersonNum != 1 {
				t.Errorf("decision maker: HH=%d, PersonNum=%d", pe.HH, pe.PersonNum)
			}
			if test.kind == UnknownRowIndex {
				if _, ok := pe.Err.(*UnknownRowError); !ok {
					t.Errorf("cause %T is not an *UnknownRowError", pe.Err)
				}
			}
		})
	}
}

func TestDecodeBlock_missingLabels(t *testing.T) {
	table, err := NewLabelTable(ModeChoice, Usual, map[int]string{1: "a"})
	if err != nil {
		t.Fatal(err)
	}
	const nonMandatoryModeHeader = "Utility Expressions for INDIVIDUAL Tour Mode Choice Logsum calculation for " +
		"shopping Location Choice HH=7, PersonNum=2, PersonType=Non-worker, destTaz=1 destWalkSubzone=0"

	tests := []struct {
		name   string
		d      *Decoder
		header string
	}{
		{
			name:   "no label table",
			d:      &Decoder{Alternatives: testAlts, Labels: NewLabelSet(table)},
			header: nonMandatoryModeHeader,
		},
		{
			name:   "no alternatives",
			d:      &Decoder{Alternatives: Alternatives{TAZCount: 2, SubzoneCount: 2}, Labels: testLabels(t)},
			header: nonMandatoryModeHeader,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			lr := NewLineReader(strings.NewReader(logText("Starting Individual Non-Mandatory Tour Location Choice") +
				blockText(test.header)))
			lr.Next()
			if !lr.Next() {
				t.Fatal("empty log")
			}
			_, err := test.d.DecodeBlock(lr, Classify(lr.Text()))
			pe, ok := err.(*ParseError)
			if !ok {
				t.Fatalf("have error %v (%T), want *ParseError", err, err)
			}
			if pe.Kind != MissingConfiguration || pe.Line != 2 || pe.HH != 7 || pe.PersonNum != 2 {
				t.Errorf("%+v", pe)
			}
		})
	}
}

func TestParseErrorMessage(t *testing.T) {
	err := &ParseError{
		Kind:      UnknownRowIndex,
		Line:      9,
		Text:      strings.Repeat("x", 200),
		HH:        42,
		PersonNum: 1,
		Err:       &UnknownRowError{Kind: DestinationChoice, Variant: Usual, Row: 4},
	}
	msg := err.Error()
	for _, want := range []string{"unknown row index", "log line 9", "HH=42", "PersonNum=1", "row 4", "..."} {
		if !strings.Contains(msg, want) {
			t.Errorf("%q does not contain %q", msg, want)
		}
	}
	if strings.Contains(msg, strings.Repeat("x", 161)) {
		t.Error("line text was not shortened")
	}

	// Shortening keeps whole runes.
	err.Text = strings.Repeat("x", maxQuotedText-1) + strings.Repeat("é", 10)
	msg = err.Error()
	if !utf8.ValidString(msg) || strings.Contains(msg, `\x`) {
		t.Errorf("%q", msg)
	}
	if !strings.Contains(msg, strings.Repeat("x", maxQuotedText-1)+`..."`) {
		t.Errorf("%q is not cut before the first multi-byte rune", msg)
	}
}
