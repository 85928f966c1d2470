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

	"github.com/travelmodel/ctramplog/internal/hash"
	"gonum.org/v1/gonum/floats"
)

// BlockSummary describes one decoded utility block.
type BlockSummary struct {
	Kind        Kind
	Variant     Variant
	Purpose     string
	HH          int64
	PersonNum   int
	PersonType  string
	TourNum     int
	TourID      int
	DestTAZ     int
	DestSubzone int

	// Line is the log line number of the block header.
	Line         int
	Alternatives int
	Records      int

	// Logsum is the log of the sum of the exponentiated finite total
	// utilities. It is NaN if no alternative has a finite utility.
	Logsum float64

	// BestAlt is the alternative with the highest finite total utility,
	// or 0 if there is none.
	BestAlt int

	// Fingerprint is a digest of the decoded records.
	Fingerprint string
}

// Summarize computes the summary of b.
func Summarize(b *Block) BlockSummary {
	s := BlockSummary{
		Kind:         b.Kind,
		Variant:      b.Variant,
		Purpose:      b.Purpose,
		HH:           b.HH,
		PersonNum:    b.PersonNum,
		PersonType:   b.PersonType,
		TourNum:      b.TourNum,
		TourID:       b.TourID,
		DestTAZ:      b.DestTAZ,
		DestSubzone:  b.DestSubzone,
		Line:         b.Line,
		Alternatives: b.Alternatives,
		Records:      len(b.Records),
		Logsum:       math.NaN(),
		Fingerprint:  hash.Fingerprint(b.Records),
	}
	s.Logsum, s.BestAlt = logsum(b.TotalUtilities())
	return s
}

// logsum returns the logsum and the best 1-based alternative of the
// finite utilities in u.
func logsum(u []float64) (float64, int) {
	finite := make([]float64, 0, len(u))
	alts := make([]int, 0, len(u))
	for i, v := range u {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		finite = append(finite, v)
		alts = append(alts, i+1)
	}
	if len(finite) == 0 {
		return math.NaN(), 0
	}
	return floats.LogSumExp(finite), alts[floats.MaxIdx(finite)]
}
