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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/travelmodel/ctramplog"
)

// alternativesConfig unmarshals the choice set sizes from a viper configuration.
func alternativesConfig(cfg *viper.Viper) (ctramplog.Alternatives, error) {
	a := ctramplog.Alternatives{
		TAZCount:         cfg.GetInt("TAZCount"),
		SubzoneCount:     cfg.GetInt("SubzoneCount"),
		ModeAlternatives: cfg.GetInt("ModeAlternatives"),
	}
	if err := a.Validate(); err != nil {
		return a, fmt.Errorf("parsing alternatives configuration: %v", err)
	}
	return a, nil
}

// rowRangeConfig returns the ExcludeRows range, or nil if it is empty.
func rowRangeConfig(cfg *viper.Viper) (*ctramplog.RowRange, error) {
	rows, err := toIntSliceE(cfg.Get("ExcludeRows"))
	if err != nil {
		return nil, fmt.Errorf("ExcludeRows: %v", err)
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 2:
		if rows[0] > rows[1] {
			return nil, fmt.Errorf("ExcludeRows: first row %d is after last row %d", rows[0], rows[1])
		}
		return &ctramplog.RowRange{First: rows[0], Last: rows[1]}, nil
	default:
		return nil, fmt.Errorf("ExcludeRows should have 0 or 2 values but has %d", len(rows))
	}
}

// toIntSliceE converts s to an integer slice, accounting for the fact
// that it is a JSON-like string such as "[1,5]" when it was set from a
// command line argument.
func toIntSliceE(s interface{}) ([]int, error) {
	switch v := s.(type) {
	case nil:
		return nil, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" || v == "[]" {
			return nil, nil
		}
		var o []int
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, err
		}
		return o, nil
	default:
		return cast.ToIntSliceE(s)
	}
}

// newLogger returns a logger writing to the command's output at the given level.
func newLogger(cmd *cobra.Command, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LogLevel: %v", err)
	}
	log := logrus.New()
	log.Out = cmd.ErrOrStderr()
	log.Level = lvl
	return log, nil
}
