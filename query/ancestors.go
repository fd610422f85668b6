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
	"sort"
	"strings"
)

// ResolvedPropertyNames are ancestor/descendant-shaped names that the graph
// model already resolves onto the node itself (duplicated there for fast
// filtering), so they must never be treated as merge-predicate shorthand.
// "ancestors.account.reported.id" and its siblings are used as plain filter
// predicates when restricting runs to accounts.
var ResolvedPropertyNames = map[string]struct{}{
	"ancestors.cloud.reported.id":     {},
	"ancestors.cloud.reported.name":   {},
	"ancestors.account.reported.id":   {},
	"ancestors.account.reported.name": {},
	"ancestors.region.reported.id":    {},
	"ancestors.region.reported.name":  {},
	"ancestors.zone.reported.id":      {},
	"ancestors.zone.reported.name":    {},
}

func isAncestorDescendant(name string) bool {
	if _, resolved := ResolvedPropertyNames[name]; resolved {
		return false
	}
	return strings.HasPrefix(name, "ancestors.") || strings.HasPrefix(name, "descendants.")
}

func hasAncestorDescendant(t Term) bool {
	switch v := t.(type) {
	case Predicate:
		return isAncestorDescendant(v.Name)
	case CombinedTerm:
		return hasAncestorDescendant(v.Left) || hasAncestorDescendant(v.Right)
	case MergeTerm:
		if hasAncestorDescendant(v.PreFilter) {
			return true
		}
		return v.PostFilter != nil && hasAncestorDescendant(v.PostFilter)
	case NotTerm:
		return hasAncestorDescendant(v.Term)
	default:
		return false
	}
}

func ancestorDescendantPredicates(t Term) []Predicate {
	switch v := t.(type) {
	case Predicate:
		if isAncestorDescendant(v.Name) {
			return []Predicate{v}
		}
		return nil
	case CombinedTerm:
		return append(ancestorDescendantPredicates(v.Left), ancestorDescendantPredicates(v.Right)...)
	case MergeTerm:
		result := ancestorDescendantPredicates(v.PreFilter)
		if v.PostFilter != nil {
			result = append(result, ancestorDescendantPredicates(v.PostFilter)...)
		}
		return result
	case NotTerm:
		return ancestorDescendantPredicates(v.Term)
	default:
		return nil
	}
}

type ancGroupKey struct {
	ancDec string
	kind   string
}

// namePredicate splits an ancestor/descendant predicate's dot-delimited
// name into its (ancestors|descendants, kind) group key.
// A malformed name (fewer than three dot-separated segments)
// surfaces a structured parse error quoting the expected shape.
func namePredicate(p Predicate) (ancGroupKey, error) {
	parts := strings.SplitN(p.Name, ".", 3)
	if len(parts) < 3 {
		return ancGroupKey{}, ErrParse.New(
			"the name of an ancestor/descendant variable has to follow the format " +
				"ancestors.<kind>.<path.to.variable> or descendants.<kind>.<path.to.variable>, got: " + p.Name)
	}
	return ancGroupKey{ancDec: parts[0], kind: parts[1]}, nil
}

func mergeQueryFor(key ancGroupKey) MergeQuery {
	direction := DirectionOutbound
	if key.ancDec == "ancestors" {
		direction = DirectionInbound
	}
	nav := NewNavigation(0, NavigationMax, DefaultEdgeType, direction)
	sub := NewQuery([]Part{
		NewPart(IsTerm{Kinds: []string{key.kind}}),
		{Term: AllTerm{}, Navigation: &nav},
	}, nil, nil)
	return MergeQuery{Name: key.ancDec + "." + key.kind, Query: sub, OnlyFirst: true}
}

// rewriteForAncestorsDescendants applies the ancestor/descendant lifting
// rewrite to a single Part. Applying it twice is idempotent by value: an
// already-rewritten Part still carries its ancestor/descendant predicate in
// the MergeTerm's post-filter, so it is rebuilt, into a MergeTerm equal to
// the one it had (its existing merge queries win by name).
func rewriteForAncestorsDescendants(part Part) (Part, error) {
	if !hasAncestorDescendant(part.Term) {
		return part, nil
	}

	var beforeMerge Term = AllTerm{}
	var afterMerge Term = AllTerm{}

	var walk func(Term) error
	walk = func(t Term) error {
		switch v := t.(type) {
		case CombinedTerm:
			leftHasAD := hasAncestorDescendant(v.Left)
			rightHasAD := hasAncestorDescendant(v.Right)
			switch {
			case v.Op == Or:
				afterMerge = AndTerm(afterMerge, v)
			case leftHasAD && rightHasAD:
				if err := walk(v.Left); err != nil {
					return err
				}
				return walk(v.Right)
			case leftHasAD:
				beforeMerge = AndTerm(beforeMerge, v.Right)
				return walk(v.Left)
			case rightHasAD:
				beforeMerge = AndTerm(beforeMerge, v.Left)
				return walk(v.Right)
			default:
				return ErrInternal.New("ancestor/descendant rewriter reached an unreachable branch")
			}
		case MergeTerm:
			if v.PostFilter != nil {
				return walk(CombinedTerm{Left: v.PreFilter, Op: And, Right: v.PostFilter})
			}
			return walk(v.PreFilter)
		default:
			afterMerge = AndTerm(afterMerge, t)
		}
		return nil
	}

	if err := walk(part.Term); err != nil {
		return Part{}, err
	}

	predicates := ancestorDescendantPredicates(afterMerge)
	seen := map[ancGroupKey]bool{}
	var created []MergeQuery
	for _, p := range predicates {
		key, err := namePredicate(p)
		if err != nil {
			return Part{}, err
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		created = append(created, mergeQueryFor(key))
	}

	existing := map[string]MergeQuery{}
	if mt, ok := part.Term.(MergeTerm); ok {
		for _, m := range mt.Merge {
			existing[m.Name] = m
		}
	}
	byName := map[string]MergeQuery{}
	for _, m := range created {
		byName[m.Name] = m
	}
	// existing entries win on name collision.
	for name, m := range existing {
		byName[name] = m
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	merged := make([]MergeQuery, 0, len(names))
	for _, name := range names {
		merged = append(merged, byName[name])
	}

	result := part
	result.Term = MergeTerm{PreFilter: beforeMerge, Merge: merged, PostFilter: afterMerge}
	return result, nil
}

// RewriteAncestorsDescendants rewrites every part of q that contains an
// ancestor/descendant predicate into a MergeTerm.
// Idempotent: rewriting an already-rewritten query returns an equivalent
// query.
func (q *Query) RewriteAncestorsDescendants() (*Query, error) {
	parts := make([]Part, len(q.Parts))
	changed := false
	for i, p := range q.Parts {
		if hasAncestorDescendant(p.Term) {
			changed = true
		}
		rewritten, err := rewriteForAncestorsDescendants(p)
		if err != nil {
			return nil, err
		}
		parts[i] = rewritten
	}
	if !changed {
		return q, nil
	}
	return NewQuery(parts, q.Preamble, q.Aggregate), nil
}
