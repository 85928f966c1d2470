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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/requestcache"
	"github.com/pkg/errors"
	"github.com/tealeg/xlsx"
)

// LabelTable maps the expression row numbers of one utility
// specification to human readable descriptions.
type LabelTable struct {
	Kind    Kind
	Variant Variant

	labels map[int]string
	rows   []int
}

// NewLabelTable creates a label table. The row numbers must form a
// contiguous range.
func NewLabelTable(k Kind, v Variant, labels map[int]string) (*LabelTable, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("ctramplog: %v %v label table is empty", k, v)
	}
	t := &LabelTable{
		Kind:    k,
		Variant: v,
		labels:  make(map[int]string, len(labels)),
		rows:    make([]int, 0, len(labels)),
	}
	for row, desc := range labels {
		t.labels[row] = desc
		t.rows = append(t.rows, row)
	}
	sort.Ints(t.rows)
	for i := 1; i < len(t.rows); i++ {
		if t.rows[i] != t.rows[i-1]+1 {
			return nil, fmt.Errorf("ctramplog: %v %v label table is missing row %d",
				k, v, t.rows[i-1]+1)
		}
	}
	return t, nil
}

// Description returns the label of the given row.
func (t *LabelTable) Description(row int) (string, error) {
	desc, ok := t.labels[row]
	if !ok {
		return "", &UnknownRowError{Kind: t.Kind, Variant: t.Variant, Row: row}
	}
	return desc, nil
}

// Len returns the number of rows in the table.
func (t *LabelTable) Len() int { return len(t.rows) }

// Rows returns the row numbers in increasing order.
func (t *LabelTable) Rows() []int {
	o := make([]int, len(t.rows))
	copy(o, t.rows)
	return o
}

type labelKey struct {
	kind    Kind
	variant Variant
}

// LabelSet holds the label tables of all supported choice contexts.
type LabelSet struct {
	tables map[labelKey]*LabelTable
}

// NewLabelSet creates a LabelSet from the given tables. Later tables
// replace earlier ones with the same kind and variant.
func NewLabelSet(tables ...*LabelTable) *LabelSet {
	s := &LabelSet{tables: make(map[labelKey]*LabelTable)}
	for _, t := range tables {
		s.tables[labelKey{t.Kind, t.Variant}] = t
	}
	return s
}

// Table returns the label table for the given kind and variant.
func (s *LabelSet) Table(k Kind, v Variant) (*LabelTable, error) {
	t, ok := s.tables[labelKey{k, v}]
	if !ok {
		return nil, fmt.Errorf("ctramplog: no %v %v label table has been loaded", k, v)
	}
	return t, nil
}

// Tables returns all tables ordered by kind and variant.
func (s *LabelSet) Tables() []*LabelTable {
	o := make([]*LabelTable, 0, len(s.tables))
	for _, t := range s.tables {
		o = append(o, t)
	}
	sort.Slice(o, func(i, j int) bool {
		if o[i].Kind != o[j].Kind {
			return o[i].Kind < o[j].Kind
		}
		return o[i].Variant < o[j].Variant
	})
	return o
}

// Label file section names.
var (
	kindSections = map[string]Kind{
		"destination": DestinationChoice,
		"modechoice":  ModeChoice,
	}
	variantSections = map[string]Variant{
		"usual":        Usual,
		"nonmandatory": NonMandatory,
	}
)

func sectionKey(kind, variant string) (labelKey, error) {
	k, ok := kindSections[strings.ToLower(kind)]
	if !ok {
		return labelKey{}, fmt.Errorf("ctramplog: unknown label section %q", kind)
	}
	v, ok := variantSections[strings.ToLower(variant)]
	if !ok {
		return labelKey{}, fmt.Errorf("ctramplog: unknown label variant %q in section %q", variant, kind)
	}
	return labelKey{k, v}, nil
}

// LoadLabels reads a label file. Files ending in ".xlsx" are read as
// UEC workbooks with LoadLabelsWorkbook; everything else is read as TOML
// with ReadLabelsTOML.
func LoadLabels(path string) (*LabelSet, error) {
	if path == "" {
		return nil, fmt.Errorf("ctramplog: no label file specified")
	}
	path = os.ExpandEnv(path)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadLabelsWorkbook(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "ctramplog: opening label file")
	}
	defer f.Close()
	return ReadLabelsTOML(f)
}

// ReadLabelsTOML reads label tables from TOML of the form
//
//	[destination.usual]
//	1 = "Mode choice logsum"
//	2 = "Distance"
//
// with the sections destination.usual, destination.nonmandatory,
// modechoice.usual and modechoice.nonmandatory. Sections may be omitted.
func ReadLabelsTOML(r io.Reader) (*LabelSet, error) {
	var raw map[string]map[string]map[string]string
	if _, err := toml.DecodeReader(r, &raw); err != nil {
		return nil, errors.Wrap(err, "ctramplog: reading label TOML")
	}
	var tables []*LabelTable
	for kind, variants := range raw {
		for variant, rows := range variants {
			key, err := sectionKey(kind, variant)
			if err != nil {
				return nil, err
			}
			labels := make(map[int]string, len(rows))
			for rs, desc := range rows {
				row, err := strconv.Atoi(strings.TrimSpace(rs))
				if err != nil {
					return nil, fmt.Errorf("ctramplog: label section %s.%s: invalid row number %q", kind, variant, rs)
				}
				labels[row] = desc
			}
			t, err := NewLabelTable(key.kind, key.variant, labels)
			if err != nil {
				return nil, err
			}
			tables = append(tables, t)
		}
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("ctramplog: label file contains no tables")
	}
	return NewLabelSet(tables...), nil
}

// workbookCache holds previously opened UEC workbooks
// to avoid reading the same file multiple times.
var workbookCache *requestcache.Cache

var loadWorkbookCacheOnce sync.Once

func loadWorkbook(fileName string) (*xlsx.File, error) {
	loadWorkbookCacheOnce.Do(func() {
		workbookCache = requestcache.NewCache(func(ctx context.Context, req interface{}) (interface{}, error) {
			f, err := xlsx.OpenFile(req.(string))
			if err != nil {
				return nil, errors.Wrap(err, "ctramplog: opening xlsx file")
			}
			return f, nil
		}, runtime.GOMAXPROCS(-1), requestcache.Memory(20))
	})
	r := workbookCache.NewRequest(context.Background(), fileName, fileName)
	fI, err := r.Result()
	if err != nil {
		return nil, err
	}
	return fI.(*xlsx.File), nil
}

// LoadLabelsWorkbook reads label tables from a UEC workbook. Sheets
// named like "destination_usual" or "modechoice_nonmandatory" hold one
// table each, with the row number in the first column and the
// description in the second. Rows whose first cell is not an integer,
// such as titles and column headings, are skipped. Other sheets are
// ignored. Sheet names are not case sensitive, and two sheets for the
// same table are an error.
func LoadLabelsWorkbook(fileName string) (*LabelSet, error) {
	f, err := loadWorkbook(fileName)
	if err != nil {
		return nil, err
	}
	var tables []*LabelTable
	sheets := make(map[labelKey]string)
	for _, s := range f.Sheets {
		name := s.Name
		parts := strings.SplitN(name, "_", 2)
		if len(parts) != 2 {
			continue
		}
		key, err := sectionKey(parts[0], parts[1])
		if err != nil {
			continue
		}
		if prev, ok := sheets[key]; ok {
			return nil, fmt.Errorf("ctramplog: workbook %s has sheets %s and %s for the same label table",
				fileName, prev, name)
		}
		sheets[key] = name
		labels := make(map[int]string)
		for j := 0; j < s.MaxRow; j++ {
			row, err := strconv.Atoi(strings.TrimSpace(s.Cell(j, 0).Value))
			if err != nil {
				continue
			}
			labels[row] = strings.TrimSpace(s.Cell(j, 1).Value)
		}
		t, err := NewLabelTable(key.kind, key.variant, labels)
		if err != nil {
			return nil, errors.Wrapf(err, "sheet %s", name)
		}
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("ctramplog: workbook %s contains no label sheets", fileName)
	}
	return NewLabelSet(tables...), nil
}
