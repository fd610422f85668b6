// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package query

import "fmt"

// WithClauseFilter is a cardinality predicate: how many neighbours reached
// by a traversal must satisfy the clause's term.
type WithClauseFilter struct {
	Op  Op
	Num int
}

func (f WithClauseFilter) String() string {
	switch {
	case f.Op == OpEq && f.Num == 0:
		return "empty"
	case f.Op == OpGt && f.Num == 0:
		return "any"
	default:
		return fmt.Sprintf("count%s%d", f.Op, f.Num)
	}
}

// WithClause is a recursive cardinality constraint along a navigation:
// "at least/at most/exactly N neighbours reached via Navigation match Term,
// and recursively satisfy WithClause".
type WithClause struct {
	WithFilter WithClauseFilter
	Navigation Navigation
	Term       Term        // nil means "no additional term"
	WithClause *WithClause // nil means "no nested clause"
}

func (w WithClause) String() string {
	term := ""
	if w.Term != nil {
		term = " " + w.Term.String()
	}
	nested := ""
	if w.WithClause != nil {
		nested = " " + w.WithClause.String()
	}
	return fmt.Sprintf("with(%s, %s%s%s)", w.WithFilter, w.Navigation, term, nested)
}

func (w WithClause) ChangeVariable(fn func(string) string) WithClause {
	if w.Term != nil {
		w.Term = w.Term.ChangeVariable(fn)
	}
	if w.WithClause != nil {
		nested := w.WithClause.ChangeVariable(fn)
		w.WithClause = &nested
	}
	return w
}
