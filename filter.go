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
	"math"

	"github.com/Knetic/govaluate"
)

// RecordFilter selects records using a boolean expression. The
// expression can use the variables
//
//	row, alt, taz, subzone, coefficient, variable, term
//
// where term is coefficient*variable, and the functions isNaN(x),
// isInf(x) and abs(x). For example, "abs(term) > 0.01 || row < 0" keeps
// the terms that move utility by more than 0.01 plus the total utilities.
type RecordFilter struct {
	expression string
	expr       *govaluate.EvaluableExpression
}

var filterFunctions = map[string]govaluate.ExpressionFunction{
	"isNaN": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("ctramplog: got %d arguments for function 'isNaN', but needs 1", len(arg))
		}
		v, ok := arg[0].(float64)
		if !ok {
			return nil, fmt.Errorf("ctramplog: 'isNaN' argument must be a number")
		}
		return math.IsNaN(v), nil
	},
	"isInf": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("ctramplog: got %d arguments for function 'isInf', but needs 1", len(arg))
		}
		v, ok := arg[0].(float64)
		if !ok {
			return nil, fmt.Errorf("ctramplog: 'isInf' argument must be a number")
		}
		return math.IsInf(v, 0), nil
	},
	"abs": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("ctramplog: got %d arguments for function 'abs', but needs 1", len(arg))
		}
		v, ok := arg[0].(float64)
		if !ok {
			return nil, fmt.Errorf("ctramplog: 'abs' argument must be a number")
		}
		return math.Abs(v), nil
	},
}

// NewRecordFilter compiles expression.
func NewRecordFilter(expression string) (*RecordFilter, error) {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(expression, filterFunctions)
	if err != nil {
		return nil, fmt.Errorf("ctramplog: record filter %q: %v", expression, err)
	}
	return &RecordFilter{expression: expression, expr: expr}, nil
}

func (f *RecordFilter) String() string { return f.expression }

// Keep reports whether r passes the filter.
func (f *RecordFilter) Keep(r Record) (bool, error) {
	params := map[string]interface{}{
		"row":         float64(r.Row),
		"alt":         float64(r.Alt),
		"taz":         float64(r.DestTAZ),
		"subzone":     float64(r.DestSubzone),
		"coefficient": r.Coefficient,
		"variable":    r.Variable,
		"term":        r.Term(),
	}
	v, err := f.expr.Evaluate(params)
	if err != nil {
		return false, fmt.Errorf("ctramplog: record filter %q: %v", f.expression, err)
	}
	keep, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("ctramplog: record filter %q evaluated to %v, not true or false", f.expression, v)
	}
	return keep, nil
}
