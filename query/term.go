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

// Package query implements the graph query algebra: an immutable,
// composable algebraic data type for filters, traversals, merges,
// aggregations and sort/limit clauses over a typed property graph, plus the
// rewriting passes (variable rebinding, ancestor/descendant lifting, query
// composition) that operate on it.
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Op is a predicate comparison operator.
type Op string

const (
	OpEq         Op = "=="
	OpNe         Op = "!="
	OpLt         Op = "<"
	OpLe         Op = "<="
	OpGt         Op = ">"
	OpGe         Op = ">="
	OpMatches    Op = "=~"
	OpNotMatches Op = "!~"
	OpIn         Op = "in"
	OpNotIn      Op = "not in"
)

// ArrayFilter is the array-quantifier carried in a Predicate's Args under
// the "filter" key.
type ArrayFilter string

const (
	ArrayAny  ArrayFilter = "any"
	ArrayAll  ArrayFilter = "all"
	ArrayNone ArrayFilter = "none"
)

// Term is the closed sum type of the query algebra. Every variant lives in
// this package; the unexported sealed method keeps the type switch in every
// rewriter exhaustive and statically checked.
type Term interface {
	fmt.Stringer
	ChangeVariable(fn func(string) string) Term
	sealed()
}

// AllTerm matches everything. It is the identity element for And and the
// absorbing element for Or.
type AllTerm struct{}

func (AllTerm) String() string                             { return "all" }
func (a AllTerm) ChangeVariable(func(string) string) Term   { return a }
func (AllTerm) sealed()                                     {}

// NotTerm negates its inner term.
type NotTerm struct {
	Term Term
}

func (t NotTerm) String() string { return fmt.Sprintf("not(%s)", t.Term) }
func (t NotTerm) ChangeVariable(fn func(string) string) Term {
	return NotTerm{Term: t.Term.ChangeVariable(fn)}
}
func (NotTerm) sealed() {}

// Predicate compares a named property against a value.
type Predicate struct {
	Name  string
	Op    Op
	Value any
	Args  map[string]any
}

func (p Predicate) String() string {
	modifier := ""
	if f, ok := p.Args["filter"]; ok {
		modifier = fmt.Sprintf("%v ", f)
	}
	return fmt.Sprintf("%s %s%s %s", p.Name, modifier, p.Op, ValueStrRep(p.Value))
}

func (p Predicate) ChangeVariable(fn func(string) string) Term {
	p.Name = fn(p.Name)
	return p
}

func (Predicate) sealed() {}

// IsTerm matches nodes whose kind is one of Kinds.
type IsTerm struct {
	Kinds []string
}

func (t IsTerm) String() string {
	quoted := make([]string, len(t.Kinds))
	for i, k := range t.Kinds {
		quoted[i] = fmt.Sprintf("%q", k)
	}
	if len(quoted) == 1 {
		return fmt.Sprintf("is(%s)", quoted[0])
	}
	return fmt.Sprintf("is([%s])", strings.Join(quoted, ", "))
}

func (t IsTerm) ChangeVariable(func(string) string) Term { return t }
func (IsTerm) sealed()                                   {}

// IdTerm matches a single node by id.
type IdTerm struct {
	Id string
}

func (t IdTerm) String() string                           { return fmt.Sprintf("id(%q)", t.Id) }
func (t IdTerm) ChangeVariable(func(string) string) Term { return t }
func (IdTerm) sealed()                                    {}

// FunctionTerm applies a named function to a property path and a fixed
// argument list, e.g. age(reported.ctime, 1d).
type FunctionTerm struct {
	Fn           string
	PropertyPath string
	Args         []any
}

func (t FunctionTerm) String() string {
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = ValueStrRep(a)
	}
	sep := ""
	if len(args) > 0 {
		sep = ", "
	}
	return fmt.Sprintf("%s(%s%s%s)", t.Fn, t.PropertyPath, sep, strings.Join(args, ", "))
}

func (t FunctionTerm) ChangeVariable(fn func(string) string) Term {
	t.PropertyPath = fn(t.PropertyPath)
	return t
}
func (FunctionTerm) sealed() {}

// CombinedOp is the boolean combinator of a CombinedTerm.
type CombinedOp string

const (
	And CombinedOp = "and"
	Or  CombinedOp = "or"
)

// CombinedTerm is the boolean combination of two terms. Construct it with
// the And/Or helpers below, which perform AllTerm simplification; do not
// construct it directly outside this package's builders.
type CombinedTerm struct {
	Left  Term
	Op    CombinedOp
	Right Term
}

func (t CombinedTerm) String() string { return fmt.Sprintf("(%s %s %s)", t.Left, t.Op, t.Right) }

func (t CombinedTerm) ChangeVariable(fn func(string) string) Term {
	return CombinedTerm{Left: t.Left.ChangeVariable(fn), Op: t.Op, Right: t.Right.ChangeVariable(fn)}
}
func (CombinedTerm) sealed() {}

// AndTerm combines left and right with AND, simplifying away AllTerm
// operands: AllTerm and x = x, x and AllTerm = x.
func AndTerm(left, right Term) Term {
	if _, ok := left.(AllTerm); ok {
		return right
	}
	if _, ok := right.(AllTerm); ok {
		return left
	}
	return CombinedTerm{Left: left, Op: And, Right: right}
}

// OrTerm combines left and right with OR, simplifying away AllTerm
// operands: AllTerm or x = AllTerm, x or AllTerm = AllTerm.
func OrTerm(left, right Term) Term {
	if _, ok := left.(AllTerm); ok {
		return left
	}
	if _, ok := right.(AllTerm); ok {
		return right
	}
	return CombinedTerm{Left: left, Op: Or, Right: right}
}

// MergeQuery is a named sub-query merged into the current node's data
// before a MergeTerm's post-filter is applied. Name is dot-delimited, e.g.
// "ancestors.account".
type MergeQuery struct {
	Name      string
	Query     *Query
	OnlyFirst bool
}

func (m MergeQuery) String() string {
	arr := ""
	if !m.OnlyFirst {
		arr = "[]"
	}
	return fmt.Sprintf("%s%s: %s", m.Name, arr, m.Query)
}

func (m MergeQuery) ChangeVariable(fn func(string) string) MergeQuery {
	m.Query = m.Query.ChangeVariable(fn)
	return m
}

// MergeTerm joins data from related nodes (via Merge) before evaluating
// PostFilter; PreFilter is independent of the merged data.
type MergeTerm struct {
	PreFilter  Term
	Merge      []MergeQuery
	PostFilter Term // nil means "no post filter"
}

func (t MergeTerm) String() string {
	names := make([]string, len(t.Merge))
	for i, m := range t.Merge {
		names[i] = m.String()
	}
	post := ""
	if t.PostFilter != nil {
		post = " " + t.PostFilter.String()
	}
	return fmt.Sprintf("%s {%s}%s", t.PreFilter, strings.Join(names, ", "), post)
}

func (t MergeTerm) ChangeVariable(fn func(string) string) Term {
	merge := make([]MergeQuery, len(t.Merge))
	for i, m := range t.Merge {
		merge[i] = m.ChangeVariable(fn)
	}
	var post Term
	if t.PostFilter != nil {
		post = t.PostFilter.ChangeVariable(fn)
	}
	return MergeTerm{PreFilter: t.PreFilter.ChangeVariable(fn), Merge: merge, PostFilter: post}
}
func (MergeTerm) sealed() {}

// ValueStrRep renders a scalar or composite predicate value the way the
// canonical query text form expects: quoted strings, bracketed lists,
// bare numbers/bools, and "null" for nil.
func ValueStrRep(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = ValueStrRep(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []string:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = ValueStrRep(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%s", k, ValueStrRep(val[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", val)
	}
}
