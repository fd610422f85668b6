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

import (
	"fmt"
	"strings"
)

// Part is one step of a Query: a term to filter by, plus the clauses that
// apply once the term has been evaluated (cardinality, tag, sort, limit)
// and the navigation that joins this part to the next one.
type Part struct {
	Term       Term
	Tag        string // empty means "no tag"
	WithClause *WithClause
	Sort       []Sort
	Limit      *int
	Navigation *Navigation
}

// NewPart builds a Part with just a term, the common case.
func NewPart(term Term) Part {
	return Part{Term: term}
}

func (p Part) String() string {
	var b strings.Builder
	b.WriteString(p.Term.String())
	if p.WithClause != nil {
		b.WriteString(" ")
		b.WriteString(p.WithClause.String())
	}
	if p.Tag != "" {
		fmt.Fprintf(&b, "#%s", p.Tag)
	}
	if len(p.Sort) > 0 {
		parts := make([]string, len(p.Sort))
		for i, s := range p.Sort {
			parts[i] = s.String()
		}
		b.WriteString(" sort " + strings.Join(parts, ","))
	}
	if p.Limit != nil {
		fmt.Fprintf(&b, " limit %d", *p.Limit)
	}
	if p.Navigation != nil {
		b.WriteString(" " + p.Navigation.String())
	}
	return b.String()
}

func (p Part) ChangeVariable(fn func(string) string) Part {
	p.Term = p.Term.ChangeVariable(fn)
	if p.WithClause != nil {
		wc := p.WithClause.ChangeVariable(fn)
		p.WithClause = &wc
	}
	sorted := make([]Sort, len(p.Sort))
	for i, s := range p.Sort {
		sorted[i] = s.ChangeVariable(fn)
	}
	p.Sort = sorted
	return p
}

// clone returns a shallow copy of p, safe to mutate fields of without
// affecting the original (slices are copied where the builders mutate them).
func (p Part) clone() Part {
	sorted := make([]Sort, len(p.Sort))
	copy(sorted, p.Sort)
	p.Sort = sorted
	return p
}
