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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByKindTraverseOutFilterRendersInExecutionOrder(t *testing.T) {
	q := ByKind("aws_instance", nil).TraverseOut(1, 1, "").Filter(Pred("x").Eq(1))
	require.Equal(t, `is("aws_instance") --> x == 1`, q.String())
}

func TestFilterFusesIntoCurrentPartWithoutNavigation(t *testing.T) {
	q := ByKind("aws_instance", nil).Filter(Pred("x").Eq(1))
	require.Len(t, q.Parts, 1)
	require.Equal(t, `(is("aws_instance") and x == 1)`, q.String())
}

func TestTraverseCombinesSameEdgeAndDirectionAdditively(t *testing.T) {
	q := ByKind("a", nil).TraverseOut(1, 1, "").TraverseOut(1, 2, "")
	require.Len(t, q.Parts, 1)
	nav := q.Parts[0].Navigation
	require.NotNil(t, nav)
	require.Equal(t, 2, nav.Start)
	require.Equal(t, 3, nav.Until)
}

func TestTraverseSpawnsNewPartForDifferentDirection(t *testing.T) {
	q := ByKind("a", nil).TraverseOut(1, 1, "").TraverseIn(1, 1, "")
	require.Len(t, q.Parts, 2)
}

func TestWithLimitAndTagOnCurrentPart(t *testing.T) {
	q := ByKind("a", nil).WithLimit(5).Tag("leaf")
	require.Equal(t, 5, *q.Parts[0].Limit)
	require.Equal(t, "leaf", q.Parts[0].Tag)
}

func TestOnSectionThenRelativeToSectionRoundTrips(t *testing.T) {
	q := By(Pred("a.b").Eq(1), nil)
	abs := q.OnSection("reported")
	require.Equal(t, `reported.a.b == 1`, abs.String())

	rel := abs.RelativeToSection("reported")
	require.Equal(t, q.String(), rel.String())
}

func TestOnSectionHonoursRootEscape(t *testing.T) {
	q := By(Pred("/metadata.x").Eq(1), nil)
	abs := q.OnSection("reported")
	require.Equal(t, `metadata.x == 1`, abs.String())
}

func TestCombineFusesAcrossQueriesWithoutLeadingNavigation(t *testing.T) {
	left := ByKind("a", nil)
	right := By(Pred("x").Eq(1), nil)
	combined, err := right.Combine(left)
	require.NoError(t, err)
	require.Equal(t, `(x == 1 and is("a"))`, combined.String())
}

func TestCombineRejectsTwoAggregates(t *testing.T) {
	left := ByKind("a", nil).GroupBy(nil, []AggregateFunction{{Function: "sum", Name: "x"}})
	right := ByKind("b", nil).GroupBy(nil, []AggregateFunction{{Function: "sum", Name: "y"}})
	_, err := right.Combine(left)
	require.Error(t, err)
}

func TestPreambleRendersSortedAndQuoted(t *testing.T) {
	q := ByKind("a", nil).MergePreamble(map[string]SimpleValue{"b": 1, "a": "x"})
	require.Equal(t, `(a="x", b=1):is("a")`, q.String())
}

func TestMergeNamesCollectedFromMergeTerms(t *testing.T) {
	sub := ByKind("account", nil)
	mt := MergeTerm{PreFilter: AllTerm{}, Merge: []MergeQuery{{Name: "ancestors.account", Query: sub, OnlyFirst: true}}}
	q := NewQuery([]Part{{Term: mt}}, nil, nil)
	names := q.MergeNames()
	_, ok := names["ancestors.account"]
	require.True(t, ok)
	require.Len(t, q.MergeQueryByName(), 1)
}

func TestPredicatesWalksCombinedAndMergeTerms(t *testing.T) {
	mt := MergeTerm{PreFilter: Pred("a").Eq(1), PostFilter: Pred("b").Eq(2)}
	q := NewQuery([]Part{{Term: mt}, NewPart(Pred("c").Eq(3))}, nil, nil)
	names := map[string]bool{}
	for _, p := range q.Predicates() {
		names[p.Name] = true
	}
	require.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, names)
}

func TestMkTermConvertsBareStringsToIsTerm(t *testing.T) {
	term, err := MkTerm("aws_instance", Pred("x").Eq(1))
	require.NoError(t, err)
	require.Equal(t, `(is("aws_instance") and x == 1)`, term.String())
}

func TestMkTermRejectsUnsupportedArgument(t *testing.T) {
	_, err := MkTerm(42)
	require.Error(t, err)
}

func TestNewQueryPanicsOnEmptyParts(t *testing.T) {
	require.Panics(t, func() { NewQuery(nil, nil, nil) })
}
