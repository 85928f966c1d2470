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

// Package ctramplog reconstructs the utility calculations of a CT-RAMP
// travel demand model from its debug trace log. Destination choice and
// tour mode choice logsum blocks are recognized in a single forward scan
// of the log and decoded into one record per expression row and
// alternative, which can then be written out as CSV tables for review.
package ctramplog

import "fmt"

// Version gives the version number.
const Version = "0.3.0"

// Kind is the type of utility block that a log header opens.
type Kind int

// These are the kinds of headers the classifier recognizes.
const (
	NoHeader Kind = iota
	DestinationChoice
	ModeChoice
)

func (k Kind) String() string {
	switch k {
	case NoHeader:
		return "none"
	case DestinationChoice:
		return "destchoice"
	case ModeChoice:
		return "modechoice"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Variant distinguishes the usual (mandatory) location choice context from
// the non-mandatory tour context. Each variant has its own utility
// specification and therefore its own row label table.
type Variant int

// Purpose variants.
const (
	Usual Variant = iota
	NonMandatory
)

func (v Variant) String() string {
	switch v {
	case Usual:
		return "usual"
	case NonMandatory:
		return "nonmandatory"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Header holds the identity of a decision maker and the decision context
// read from the first line of a utility block.
type Header struct {
	Kind    Kind
	Variant Variant

	Purpose    string
	HH         int64
	PersonNum  int
	PersonType string

	// TourNum is the tour number or id given in destination choice headers.
	// It is -1 for mode choice headers.
	TourNum int

	// TourID is the optional tour id of mode choice headers, -1 if absent.
	TourID int

	// DestTAZ and DestSubzone are the destination that a mode choice
	// logsum was calculated for. They are zero for destination choice.
	DestTAZ     int
	DestSubzone int
}

// TotalUtilityRow is the row number given to the synthesized records
// that hold the total utility of each alternative.
const TotalUtilityRow = -1

// TotalUtilityDescription is the row description of total utility records.
const TotalUtilityDescription = "Total Utility"

// Record is one coefficient and variable value pair of one expression row
// for one alternative.
type Record struct {
	Row         int
	Description string

	// Alt is the 1-based alternative number: the flat destination
	// alternative for destination choice or the mode for mode choice.
	Alt         int
	DestTAZ     int
	DestSubzone int

	Coefficient float64
	Variable    float64
}

// Term returns the contribution of r to the utility of its alternative.
func (r Record) Term() float64 { return r.Coefficient * r.Variable }

// Block is a fully decoded utility block.
type Block struct {
	Header

	// Line is the 1-based log line number of the block header.
	Line int

	// Alternatives is the number of alternatives in the block.
	Alternatives int

	// Records holds the expression row records in row-major order
	// followed by one total utility record per alternative.
	Records []Record
}

// TotalUtilities returns the total utility of each alternative, indexed
// by alternative number minus one.
func (b *Block) TotalUtilities() []float64 {
	u := make([]float64, b.Alternatives)
	for _, r := range b.Records {
		if r.Row == TotalUtilityRow && r.Alt >= 1 && r.Alt <= b.Alternatives {
			u[r.Alt-1] = r.Variable
		}
	}
	return u
}
