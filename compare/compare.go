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

// Package compare finds the utility terms that differ between the
// decoded tables of a base and a build model run.
package compare

import (
	"math"
	"os"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/travelmodel/ctramplog"
	"gonum.org/v1/gonum/floats"
)

// Term is one line of a destination or mode choice utility table.
// Tables written for destination choice have no hh, person, purpose or
// tour columns and name the alternative column "dest alt"; mode choice
// tables name it "mode alt".
type Term struct {
	HH          int64           `csv:"hh"`
	PersonNum   int             `csv:"person num"`
	Purpose     string          `csv:"purpose"`
	TourID      int             `csv:"tour id"`
	Row         int             `csv:"row num"`
	Description string          `csv:"row description"`
	DestAlt     int             `csv:"dest alt"`
	ModeAlt     int             `csv:"mode alt"`
	DestTAZ     int             `csv:"dest taz"`
	DestSubzone int             `csv:"dest subzone"`
	Coefficient ctramplog.Float `csv:"coefficient"`
	Variable    ctramplog.Float `csv:"variable"`
}

// Alt returns the alternative number of t.
func (t Term) Alt() int {
	if t.ModeAlt != 0 {
		return t.ModeAlt
	}
	return t.DestAlt
}

// key identifies a term. Mode choice blocks of one person differ by
// their tour and destination, so for mode choice terms these are part
// of the block identity.
type key struct {
	hh           int64
	personNum    int
	purpose      string
	tourID       int
	blockTAZ     int
	blockSubzone int
	row          int
	alt          int
}

func (t Term) key() key {
	k := key{hh: t.HH, personNum: t.PersonNum, row: t.Row, alt: t.Alt()}
	if t.ModeAlt != 0 {
		k.purpose, k.tourID = t.Purpose, t.TourID
		k.blockTAZ, k.blockSubzone = t.DestTAZ, t.DestSubzone
	}
	return k
}

func (k key) less(o key) bool {
	switch {
	case k.hh != o.hh:
		return k.hh < o.hh
	case k.personNum != o.personNum:
		return k.personNum < o.personNum
	case k.purpose != o.purpose:
		return k.purpose < o.purpose
	case k.tourID != o.tourID:
		return k.tourID < o.tourID
	case k.blockTAZ != o.blockTAZ:
		return k.blockTAZ < o.blockTAZ
	case k.blockSubzone != o.blockSubzone:
		return k.blockSubzone < o.blockSubzone
	case k.row != o.row:
		return k.row < o.row
	default:
		return k.alt < o.alt
	}
}

// Status describes how a term differs.
type Status string

// Difference statuses.
const (
	BaseOnly  Status = "base only"
	BuildOnly Status = "build only"
	Changed   Status = "changed"
)

// Difference is a term that is not the same in the base and build tables.
type Difference struct {
	Status      Status          `csv:"status"`
	HH          int64           `csv:"hh"`
	PersonNum   int             `csv:"person num"`
	Purpose     string          `csv:"purpose"`
	TourID      int             `csv:"tour id"`
	Row         int             `csv:"row num"`
	Description string          `csv:"row description"`
	Alt         int             `csv:"alt"`
	DestTAZ     int             `csv:"dest taz"`
	DestSubzone int             `csv:"dest subzone"`
	BaseCoef    ctramplog.Float `csv:"base coefficient"`
	BuildCoef   ctramplog.Float `csv:"build coefficient"`
	BaseVar     ctramplog.Float `csv:"base variable"`
	BuildVar    ctramplog.Float `csv:"build variable"`
	DeltaTerm   ctramplog.Float `csv:"term change"`
}

// equal reports whether a and b are within tol of each other, absolute
// or relative. NaN equals NaN and infinities equal themselves.
func equal(a, b, tol float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return floats.EqualWithinAbsOrRel(a, b, tol, tol)
}

func term(t Term) float64 { return float64(t.Coefficient) * float64(t.Variable) }

// Tables returns the terms that differ between base and build by more
// than tol, ordered by decision maker, row and alternative. Terms are
// matched on decision maker, row number and alternative, and mode
// choice terms also on tour and destination.
func Tables(base, build []Term, tol float64) []Difference {
	baseMap := make(map[key]Term, len(base))
	for _, t := range base {
		baseMap[t.key()] = t
	}
	buildMap := make(map[key]Term, len(build))
	for _, t := range build {
		buildMap[t.key()] = t
	}

	var o []Difference
	var keys []key
	for k, b := range baseMap {
		d, ok := buildMap[k]
		switch {
		case !ok:
			o = append(o, difference(BaseOnly, b, b))
			o[len(o)-1].BuildCoef = ctramplog.Float(math.NaN())
			o[len(o)-1].BuildVar = ctramplog.Float(math.NaN())
			o[len(o)-1].DeltaTerm = ctramplog.Float(-term(b))
		case !equal(float64(b.Coefficient), float64(d.Coefficient), tol) ||
			!equal(float64(b.Variable), float64(d.Variable), tol):
			o = append(o, difference(Changed, b, d))
		default:
			continue
		}
		keys = append(keys, k)
	}
	for k, d := range buildMap {
		if _, ok := baseMap[k]; ok {
			continue
		}
		o = append(o, difference(BuildOnly, d, d))
		o[len(o)-1].BaseCoef = ctramplog.Float(math.NaN())
		o[len(o)-1].BaseVar = ctramplog.Float(math.NaN())
		o[len(o)-1].DeltaTerm = ctramplog.Float(term(d))
		keys = append(keys, k)
	}
	sort.Sort(byKey{o, keys})
	return o
}

func difference(s Status, b, d Term) Difference {
	desc := b.Description
	if desc == "" {
		desc = d.Description
	}
	return Difference{
		Status:      s,
		HH:          b.HH,
		PersonNum:   b.PersonNum,
		Purpose:     b.Purpose,
		TourID:      b.TourID,
		Row:         b.Row,
		Description: desc,
		Alt:         b.Alt(),
		DestTAZ:     b.DestTAZ,
		DestSubzone: b.DestSubzone,
		BaseCoef:    b.Coefficient,
		BuildCoef:   d.Coefficient,
		BaseVar:     b.Variable,
		BuildVar:    d.Variable,
		DeltaTerm:   ctramplog.Float(term(d) - term(b)),
	}
}

type byKey struct {
	d    []Difference
	keys []key
}

func (b byKey) Len() int           { return len(b.d) }
func (b byKey) Less(i, j int) bool { return b.keys[i].less(b.keys[j]) }
func (b byKey) Swap(i, j int) {
	b.d[i], b.d[j] = b.d[j], b.d[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

// ReadFile reads a utility table written by ctramplog.Writer.
func ReadFile(path string) ([]Term, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "compare: opening utility table")
	}
	defer f.Close()
	var terms []Term
	if err := gocsv.UnmarshalFile(f, &terms); err != nil {
		return nil, errors.Wrapf(err, "compare: reading %s", path)
	}
	return terms, nil
}

// WriteFile writes differences to a CSV file.
func WriteFile(path string, diffs []Difference) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "compare: creating output file")
	}
	if diffs == nil {
		diffs = []Difference{}
	}
	if err := gocsv.Marshal(&diffs, f); err != nil {
		f.Close()
		return errors.Wrapf(err, "compare: writing %s", path)
	}
	return f.Close()
}
