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

import "fmt"

// Alternatives holds the fixed choice set sizes of the travel model.
type Alternatives struct {
	// TAZCount is the number of traffic analysis zones.
	TAZCount int

	// SubzoneCount is the number of walk access subzones in each zone.
	SubzoneCount int

	// ModeAlternatives is the number of tour modes.
	ModeAlternatives int
}

// DefaultAlternatives returns the choice set sizes of the nine-county
// travel model.
func DefaultAlternatives() Alternatives {
	return Alternatives{
		TAZCount:         1454,
		SubzoneCount:     3,
		ModeAlternatives: 21,
	}
}

// Validate checks that all of the choice set sizes are positive.
func (a Alternatives) Validate() error {
	vals := []int{a.TAZCount, a.SubzoneCount, a.ModeAlternatives}
	names := []string{"TAZCount", "SubzoneCount", "ModeAlternatives"}
	for i, v := range vals {
		if v <= 0 {
			return fmt.Errorf("ctramplog: %s=%d but should be >0", names[i], v)
		}
	}
	return nil
}

// Count returns the number of alternatives in a block of kind k.
func (a Alternatives) Count(k Kind) int {
	switch k {
	case DestinationChoice:
		return a.TAZCount * a.SubzoneCount
	case ModeChoice:
		return a.ModeAlternatives
	default:
		return 0
	}
}

// Coordinates returns the alternative number, destination zone and
// subzone of alternative alt in the block with header h.
func (a Alternatives) Coordinates(h Header, alt int) (num, taz, subzone int, err error) {
	switch h.Kind {
	case DestinationChoice:
		taz, subzone, err = DestAlternative(alt, a.TAZCount, a.SubzoneCount)
		return alt, taz, subzone, err
	case ModeChoice:
		num, err = ModeAlternative(alt, a.ModeAlternatives)
		return num, h.DestTAZ, h.DestSubzone, err
	default:
		return 0, 0, 0, fmt.Errorf("ctramplog: no alternatives for header kind %v", h.Kind)
	}
}

// DestAlternative splits the 1-based flat destination choice alternative
// alt into its 1-based zone and 0-based walk subzone.
func DestAlternative(alt, tazCount, subzones int) (taz, subzone int, err error) {
	if subzones <= 0 {
		return 0, 0, fmt.Errorf("ctramplog: invalid subzone count %d", subzones)
	}
	if alt < 1 || alt > tazCount*subzones {
		return 0, 0, fmt.Errorf("ctramplog: destination alternative %d out of range [1, %d]",
			alt, tazCount*subzones)
	}
	taz = (alt-1)/subzones + 1
	subzone = (alt - 1) % subzones
	return taz, subzone, nil
}

// DestAltNumber is the inverse of DestAlternative.
func DestAltNumber(taz, subzone, subzones int) int {
	return (taz-1)*subzones + subzone + 1
}

// ModeAlternative checks that alt is a valid mode for a choice set of
// n modes and returns it. Mode alternatives are not decomposed.
func ModeAlternative(alt, n int) (int, error) {
	if alt < 1 || alt > n {
		return 0, fmt.Errorf("ctramplog: mode alternative %d out of range [1, %d]", alt, n)
	}
	return alt, nil
}
