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
	"regexp"
	"strconv"
	"strings"
)

var (
	// prefixRegexp matches the "08-Mar-2016 13:21:31, INFO, " prefix
	// that the model's logger writes before every message.
	prefixRegexp = regexp.MustCompile(`^\d{2}-[A-Za-z]{3}-\d{4} \d{2}:\d{2}:\d{2}, [A-Z]+, `)

	destHeaderRegexp = regexp.MustCompile(`Utility Expressions for (.*?)Location Choice Model for:.*?Purpose=(\S+) for HH=(\d+), PersonNum=(\d+), PersonType=([^,]+), Tour(?:Num|Id)=(-?\d+)`)

	modeHeaderRegexp = regexp.MustCompile(`Utility Expressions for (.*?)Tour Mode Choice Logsum calculation for (\S+) Location Choice HH=(\d+), PersonNum=(\d+), PersonType=([^,]+), (?:TourId=(-?\d+), )?destTaz=(\d+) destWalkSubzone=(\d+)`)
)

// StripPrefix removes the timestamp and severity prefix and any trailing
// white space from a log line. Lines without the prefix are returned
// with only the trailing white space removed.
func StripPrefix(line string) string {
	line = strings.TrimRight(line, " \t\r\n")
	if loc := prefixRegexp.FindStringIndex(line); loc != nil {
		return line[loc[1]:]
	}
	return line
}

// Classify determines whether line opens a destination choice or a mode
// choice logsum utility block. Lines that open neither return a Header
// with Kind NoHeader.
func Classify(line string) Header {
	payload := StripPrefix(line)
	if !strings.HasPrefix(payload, "Utility Expressions for ") {
		return Header{}
	}
	if m := modeHeaderRegexp.FindStringSubmatch(payload); m != nil {
		return modeHeader(m)
	}
	if m := destHeaderRegexp.FindStringSubmatch(payload); m != nil {
		return destHeader(m)
	}
	return Header{}
}

func destHeader(m []string) Header {
	ctx := strings.ToLower(m[1])
	h := Header{
		Kind:       DestinationChoice,
		Purpose:    m[2],
		PersonType: strings.TrimSpace(m[5]),
		TourID:     -1,
	}
	switch {
	case strings.Contains(ctx, "usual"):
		h.Variant = Usual
	case strings.Contains(ctx, "non-mandatory"), strings.Contains(ctx, "non mandatory"),
		strings.Contains(ctx, "nonmandatory"):
		h.Variant = NonMandatory
	default:
		return Header{}
	}
	var ok bool
	if h.HH, ok = atoi64(m[3]); !ok {
		return Header{}
	}
	if h.PersonNum, ok = atoi(m[4]); !ok {
		return Header{}
	}
	if h.TourNum, ok = atoi(m[6]); !ok {
		return Header{}
	}
	return h
}

func modeHeader(m []string) Header {
	h := Header{
		Kind:       ModeChoice,
		Variant:    purposeVariant(m[2]),
		Purpose:    m[2],
		PersonType: strings.TrimSpace(m[5]),
		TourNum:    -1,
		TourID:     -1,
	}
	var ok bool
	if h.HH, ok = atoi64(m[3]); !ok {
		return Header{}
	}
	if h.PersonNum, ok = atoi(m[4]); !ok {
		return Header{}
	}
	if m[6] != "" {
		if h.TourID, ok = atoi(m[6]); !ok {
			return Header{}
		}
	}
	if h.DestTAZ, ok = atoi(m[7]); !ok {
		return Header{}
	}
	if h.DestSubzone, ok = atoi(m[8]); !ok {
		return Header{}
	}
	return h
}

// purposeVariant maps a tour purpose to the variant of the location
// choice model it belongs to. Work, school and university tours are
// located by the usual location choice model.
func purposeVariant(purpose string) Variant {
	p := strings.ToLower(purpose)
	for _, mandatory := range []string{"work", "school", "university"} {
		if strings.HasPrefix(p, mandatory) {
			return Usual
		}
	}
	return NonMandatory
}

func atoi(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	return v, err == nil
}

func atoi64(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}
