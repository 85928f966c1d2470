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
	"unicode/utf8"
)

// ParseErrorKind classifies fatal decoding failures.
type ParseErrorKind int

const (
	// StructuralMismatch means a line did not have the fixed shape
	// expected at its position in a utility block.
	StructuralMismatch ParseErrorKind = iota + 1

	// UnknownRowIndex means an expression row number is missing from
	// the active row label table.
	UnknownRowIndex

	// Truncated means the log ended inside a utility block.
	Truncated

	// MissingConfiguration means a block was found for which no row
	// label table or alternative count is configured.
	MissingConfiguration
)

func (k ParseErrorKind) String() string {
	switch k {
	case StructuralMismatch:
		return "structural mismatch"
	case UnknownRowIndex:
		return "unknown row index"
	case Truncated:
		return "truncated block"
	case MissingConfiguration:
		return "missing configuration"
	default:
		return fmt.Sprintf("ParseErrorKind(%d)", int(k))
	}
}

// maxQuotedText limits how much of the offending line is quoted in
// error messages. Expression rows can be several hundred kilobytes long.
const maxQuotedText = 160

// ParseError is returned when a utility block cannot be decoded.
// Decoding never skips a malformed line because that would shift every
// following row attribution.
type ParseError struct {
	Kind ParseErrorKind

	// Line is the 1-based line number in the log.
	Line int

	// Text is the content of the offending line, without the log prefix.
	Text string

	// HH and PersonNum identify the decision maker whose block failed.
	HH        int64
	PersonNum int

	Err error
}

func (e *ParseError) Error() string {
	text := e.Text
	if len(text) > maxQuotedText {
		i := maxQuotedText
		for i > 0 && !utf8.RuneStart(text[i]) {
			i--
		}
		text = text[:i] + "..."
	}
	return fmt.Sprintf("ctramplog: %v at log line %d (HH=%d, PersonNum=%d): %v: %q",
		e.Kind, e.Line, e.HH, e.PersonNum, e.Err, text)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// Cause returns the underlying error, for use with github.com/pkg/errors.
func (e *ParseError) Cause() error { return e.Err }

// UnknownRowError is returned when a row number has no label.
type UnknownRowError struct {
	Kind    Kind
	Variant Variant
	Row     int
}

func (e *UnknownRowError) Error() string {
	return fmt.Sprintf("ctramplog: row %d is not in the %v %v label table; "+
		"the labels are out of sync with the model's utility specification", e.Row, e.Kind, e.Variant)
}
