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
	"sort"
	"strings"
	"sync"
)

// SimpleValue is a scalar preamble value.
type SimpleValue = any

// Query is a non-empty ordered sequence of Parts, stored in reverse
// execution order: Parts[0] is the part currently being built; rendering
// reverses back to execution order. Every fluent combinator below returns a
// new Query; a Query is never mutated after construction.
type Query struct {
	Parts     []Part
	Preamble  map[string]SimpleValue
	Aggregate *Aggregate

	once           sync.Once
	mergeNames     map[string]struct{}
	mergeQueries   []MergeQuery
}

// NewQuery constructs a Query from already-ordered (reverse-execution)
// parts. Panics if parts is empty: a Query must always have at least one
// part, matching the Python implementation's __post_init__ guard.
func NewQuery(parts []Part, preamble map[string]SimpleValue, aggregate *Aggregate) *Query {
	if len(parts) == 0 {
		panic("query: expected non-empty parts")
	}
	if preamble == nil {
		preamble = map[string]SimpleValue{}
	}
	return &Query{Parts: parts, Preamble: preamble, Aggregate: aggregate}
}

// By builds a single-part query filtering by term, mirroring Query.by in
// the original model.
func By(term Term, preamble map[string]SimpleValue) *Query {
	return NewQuery([]Part{NewPart(term)}, preamble, nil)
}

// ByKind is a convenience for By(IsTerm{Kinds: []string{kind}}, nil).
func ByKind(kind string, preamble map[string]SimpleValue) *Query {
	return By(IsTerm{Kinds: []string{kind}}, preamble)
}

func (q *Query) String() string {
	aggregate := ""
	if q.Aggregate != nil {
		aggregate = q.Aggregate.String()
	}
	preamble := ""
	if len(q.Preamble) > 0 {
		keys := make([]string, 0, len(q.Preamble))
		for k := range q.Preamble {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%s", k, ValueStrRep(q.Preamble[k]))
		}
		preamble = "(" + strings.Join(parts, ", ") + ")"
	}
	colon := ""
	if preamble != "" || q.Aggregate != nil {
		colon = ":"
	}
	parts := make([]string, len(q.Parts))
	for i, p := range q.Parts {
		parts[i] = p.String()
	}
	reverse(parts)
	return fmt.Sprintf("%s%s%s%s", aggregate, preamble, colon, strings.Join(parts, " "))
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// CurrentPart returns the part currently being built (index 0 — remember
// the part order is reversed).
func (q *Query) CurrentPart() Part { return q.Parts[0] }

// clonedParts returns a copy of q.Parts safe to mutate in place.
func (q *Query) clonedParts() []Part {
	parts := make([]Part, len(q.Parts))
	copy(parts, q.Parts)
	return parts
}

// MergeNames is the set of merge-query names used anywhere in this query,
// computed lazily and memoized since the Query is immutable.
func (q *Query) MergeNames() map[string]struct{} {
	q.once.Do(q.computeMerges)
	return q.mergeNames
}

// MergeQueryByName is every MergeQuery referenced anywhere in this query.
func (q *Query) MergeQueryByName() []MergeQuery {
	q.once.Do(q.computeMerges)
	return q.mergeQueries
}

func (q *Query) computeMerges() {
	names := map[string]struct{}{}
	var merges []MergeQuery
	for _, part := range q.Parts {
		if mt, ok := part.Term.(MergeTerm); ok {
			for _, m := range mt.Merge {
				names[m.Name] = struct{}{}
				merges = append(merges, m)
			}
		}
	}
	q.mergeNames = names
	q.mergeQueries = merges
}

// Filter ANDs term into the current part if it has no navigation yet,
// otherwise prepends a fresh leading part.
func (q *Query) Filter(term Term) *Query {
	parts := q.clonedParts()
	first := parts[0]
	if first.Navigation == nil {
		parts[0] = NewPart(AndTerm(first.Term, term))
	} else {
		parts = append([]Part{NewPart(term)}, parts...)
	}
	return NewQuery(parts, q.Preamble, q.Aggregate)
}

// FilterWith replaces the leading part's with-clause.
func (q *Query) FilterWith(clause WithClause) *Query {
	parts := q.clonedParts()
	first := parts[0]
	first.WithClause = &clause
	parts[0] = first
	return NewQuery(parts, q.Preamble, q.Aggregate)
}

// Traverse composes a navigation into the current part: it is attached to
// the current part when that has no navigation yet, additively combined
// with an existing navigation of the same edge type and direction, and
// placed on a fresh leading AllTerm part when the existing navigation
// differs.
func (q *Query) Traverse(start, until int, edgeType string, direction Direction) *Query {
	if edgeType == "" {
		edgeType = DefaultEdgeType
	}
	parts := q.clonedParts()
	p0 := parts[0]
	switch {
	case p0.Navigation != nil && p0.Navigation.EdgeType == edgeType && p0.Navigation.Direction == direction:
		combined := p0.Navigation.combine(start, until)
		p0.Navigation = &combined
		parts[0] = p0
	case p0.Navigation != nil:
		nav := NewNavigation(start, until, edgeType, direction)
		parts = append([]Part{{Term: AllTerm{}, Navigation: &nav}}, parts...)
	default:
		nav := NewNavigation(start, until, edgeType, direction)
		p0.Navigation = &nav
		parts[0] = p0
	}
	return NewQuery(parts, q.Preamble, q.Aggregate)
}

func (q *Query) TraverseOut(start, until int, edgeType string) *Query {
	return q.Traverse(start, until, edgeType, DirectionOutbound)
}

func (q *Query) TraverseIn(start, until int, edgeType string) *Query {
	return q.Traverse(start, until, edgeType, DirectionInbound)
}

func (q *Query) TraverseInOut(start, until int, edgeType string) *Query {
	return q.Traverse(start, until, edgeType, DirectionAny)
}

// GroupBy sets the query's aggregate.
func (q *Query) GroupBy(vars []AggregateVariable, funcs []AggregateFunction) *Query {
	return NewQuery(q.clonedParts(), q.Preamble, &Aggregate{GroupBy: vars, GroupFunc: funcs})
}

// changeCurrentPart applies fn to the current part, first spawning a fresh
// empty part if the current one already carries a navigation
// (AddSort/WithLimit/Tag share this rule).
func (q *Query) changeCurrentPart(fn func(Part) Part) *Query {
	parts := q.clonedParts()
	var part Part
	if parts[0].Navigation != nil {
		part = NewPart(AllTerm{})
		parts = append([]Part{part}, parts...)
	} else {
		part = parts[0]
	}
	parts[0] = fn(part)
	return NewQuery(parts, q.Preamble, q.Aggregate)
}

// AddSort appends a sort clause to the current part.
func (q *Query) AddSort(name string, order SortOrder) *Query {
	return q.changeCurrentPart(func(p Part) Part {
		p.Sort = append(append([]Sort{}, p.Sort...), NewSort(name, order))
		return p
	})
}

// WithLimit sets the current part's result limit.
func (q *Query) WithLimit(n int) *Query {
	return q.changeCurrentPart(func(p Part) Part {
		p.Limit = &n
		return p
	})
}

// Tag names the current part.
func (q *Query) Tag(name string) *Query {
	return q.changeCurrentPart(func(p Part) Part {
		p.Tag = name
		return p
	})
}

// MergePreamble shallow-merges extra into the preamble, with extra winning
// on key collision.
func (q *Query) MergePreamble(extra map[string]SimpleValue) *Query {
	merged := make(map[string]SimpleValue, len(q.Preamble)+len(extra))
	for k, v := range q.Preamble {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return NewQuery(q.clonedParts(), merged, q.Aggregate)
}

// ChangeVariable rewrites every name in the query (predicate names, function
// property paths, sort names, aggregate variable/function names) with fn.
func (q *Query) ChangeVariable(fn func(string) string) *Query {
	parts := make([]Part, len(q.Parts))
	for i, p := range q.Parts {
		parts[i] = p.ChangeVariable(fn)
	}
	var agg *Aggregate
	if q.Aggregate != nil {
		a := q.Aggregate.ChangeVariable(fn)
		agg = &a
	}
	return NewQuery(parts, q.Preamble, agg)
}

// Combine appends other to the right of q: the result renders as "q other".
// If q's current part carries a navigation the parts are simply
// concatenated; otherwise q's current part is fused with other's first
// executed part: terms AND, clashing tags or with-clauses are rejected,
// sorts concatenate, the tighter limit wins.
func (q *Query) Combine(other *Query) (*Query, error) {
	preamble := make(map[string]SimpleValue, len(q.Preamble)+len(other.Preamble))
	for k, v := range q.Preamble {
		preamble[k] = v
	}
	for k, v := range other.Preamble {
		preamble[k] = v
	}
	if q.Aggregate != nil && other.Aggregate != nil {
		return nil, ErrInternal.New("can not combine 2 aggregations")
	}
	agg := q.Aggregate
	if agg == nil {
		agg = other.Aggregate
	}

	leftLast := q.Parts[0]
	rightFirst := other.Parts[len(other.Parts)-1]

	var parts []Part
	if leftLast.Navigation != nil {
		parts = append(append([]Part{}, other.Parts...), q.Parts...)
	} else {
		if leftLast.WithClause != nil && rightFirst.WithClause != nil {
			return nil, ErrInternal.New("can not combine 2 with clauses")
		}
		if leftLast.Tag != "" && rightFirst.Tag != "" {
			return nil, ErrInternal.New("can not combine 2 tag clauses")
		}
		term := AndTerm(leftLast.Term, rightFirst.Term)
		tag := leftLast.Tag
		if tag == "" {
			tag = rightFirst.Tag
		}
		withClause := leftLast.WithClause
		if withClause == nil {
			withClause = rightFirst.WithClause
		}
		var combinedSort []Sort
		if len(leftLast.Sort) > 0 || len(rightFirst.Sort) > 0 {
			combinedSort = append(append([]Sort{}, leftLast.Sort...), rightFirst.Sort...)
		}
		limit := combineLimit(leftLast.Limit, rightFirst.Limit)

		combined := Part{
			Term:       term,
			Tag:        tag,
			WithClause: withClause,
			Sort:       combinedSort,
			Limit:      limit,
			Navigation: rightFirst.Navigation,
		}
		parts = append(append([]Part{}, other.Parts[:len(other.Parts)-1]...), combined)
		parts = append(parts, q.Parts[1:]...)
	}
	return NewQuery(parts, preamble, agg), nil
}

func combineLimit(a, b *int) *int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a < *b:
		return a
	default:
		return b
	}
}

// Predicates returns every Predicate appearing anywhere in the query.
func (q *Query) Predicates() []Predicate {
	var result []Predicate
	var walk func(Term)
	walk = func(t Term) {
		switch v := t.(type) {
		case Predicate:
			result = append(result, v)
		case CombinedTerm:
			walk(v.Left)
			walk(v.Right)
		case MergeTerm:
			walk(v.PreFilter)
			if v.PostFilter != nil {
				walk(v.PostFilter)
			}
		case NotTerm:
			walk(v.Term)
		}
	}
	for _, p := range q.Parts {
		walk(p.Term)
	}
	return result
}

// MkTerm ANDs term with any additional terms, converting bare kind-name
// strings into IsTerm as it goes, mirroring Query.mk_term.
func MkTerm(term any, terms ...any) (Term, error) {
	all := append([]any{term}, terms...)
	var combined Term
	for i, t := range all {
		var converted Term
		switch v := t.(type) {
		case Term:
			converted = v
		case string:
			converted = IsTerm{Kinds: []string{v}}
		default:
			return nil, ErrParse.New(fmt.Sprintf("expected term or string, got %v", t))
		}
		if i == 0 {
			combined = converted
		} else {
			combined = CombinedTerm{Left: combined, Op: And, Right: converted}
		}
	}
	return combined, nil
}
