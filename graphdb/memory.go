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

package graphdb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nburtsev/resoto/internal/regex"
	"github.com/nburtsev/resoto/query"
)

// Node is one vertex of the in-memory reference graph: an id, a kind used by
// IsTerm, and an arbitrary document tree addressed by dotted-path predicates
// ("reported.name", "tags.owner", ...).
type Node struct {
	ID   string
	Kind string
	Data map[string]interface{}
}

type edge struct {
	to   string
	kind string
}

// MemoryHandle is an in-memory Handle, this repo's analogue of the teacher's
// memory package role in enginetest: a fake used only by tests.
type MemoryHandle struct {
	mu       sync.RWMutex
	nodes    map[string]*Node
	outbound map[string][]edge
	inbound  map[string][]edge
	log      *logrus.Entry
}

// NewMemoryHandle builds an empty in-memory graph.
func NewMemoryHandle() *MemoryHandle {
	return &MemoryHandle{
		nodes:    map[string]*Node{},
		outbound: map[string][]edge{},
		inbound:  map[string][]edge{},
		log:      logrus.WithField("component", "graphdb.memory"),
	}
}

// AddNode inserts or replaces a node. data is kept by reference; callers
// should not mutate it afterwards.
func (h *MemoryHandle) AddNode(id, kind string, data map[string]interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if data == nil {
		data = map[string]interface{}{}
	}
	h.nodes[id] = &Node{ID: id, Kind: kind, Data: data}
}

// AddEdge records a directed edge of the given type ("" means the default
// edge type).
func (h *MemoryHandle) AddEdge(from, to, edgeType string) {
	if edgeType == "" {
		edgeType = query.DefaultEdgeType
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.outbound[from] = append(h.outbound[from], edge{to: to, kind: edgeType})
	h.inbound[to] = append(h.inbound[to], edge{to: from, kind: edgeType})
}

// SearchList evaluates q against the whole graph and returns a cursor over
// the resulting rows. model and opts are accepted for interface conformance
// and otherwise unused.
func (h *MemoryHandle) SearchList(ctx context.Context, q *query.Query, model Model, opts ...SearchOption) (Cursor, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	nodes, err := h.evalQuery(q, nil)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]interface{}, len(nodes))
	for i, n := range nodes {
		rows[i] = h.view(n)
	}
	return &memoryCursor{rows: rows}, nil
}

// UpdateSecuritySection drains issues, attaching each node's findings under
// its "security" document, restricted to accounts when non-empty.
func (h *MemoryHandle) UpdateSecuritySection(ctx context.Context, runID string, issues <-chan NodeIssues, model Model, accounts []string) error {
	allowed := map[string]bool{}
	for _, a := range accounts {
		allowed[a] = true
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ni, ok := <-issues:
			if !ok {
				return nil
			}
			if err := h.applySecurityIssues(ni, runID, allowed); err != nil {
				return err
			}
		}
	}
}

func (h *MemoryHandle) applySecurityIssues(ni NodeIssues, runID string, allowed map[string]bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	n, ok := h.nodes[ni.NodeID]
	if !ok {
		h.log.WithField("node", ni.NodeID).Warn("security update for unknown node")
		return nil
	}

	if len(allowed) > 0 {
		accountID, _ := lookupPath(h.unlockedView(n), "ancestors.account.reported.id")
		if s, ok := accountID.(string); !ok || !allowed[s] {
			return nil
		}
	}

	section := SecuritySection{HasIssues: len(ni.Issues) > 0, RunID: runID, Issues: ni.Issues}
	n.Data["security"] = section.ToMap()
	return nil
}

// allNodes returns every node, sorted by id for deterministic iteration.
func (h *MemoryHandle) allNodes() []*Node {
	out := make([]*Node, 0, len(h.nodes))
	for _, n := range h.nodes {
		out = append(out, n)
	}
	sortNodesByID(out)
	return out
}

func sortNodesByID(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

// view renders n's document tree the way dotted-path predicates address it:
// n.Data plus "id" and "kind".
func (h *MemoryHandle) view(n *Node) map[string]interface{} {
	v := make(map[string]interface{}, len(n.Data)+2)
	for k, val := range n.Data {
		v[k] = val
	}
	v["id"] = n.ID
	v["kind"] = n.Kind
	return v
}

// unlockedView is view without re-acquiring h.mu; callers must already hold
// a lock.
func (h *MemoryHandle) unlockedView(n *Node) map[string]interface{} { return h.view(n) }

// evalQuery executes q starting from self (MergeQuery sub-query semantics)
// or from the whole graph when self is nil (top-level search), walking
// q.Parts in execution order (the reverse of their storage order).
func (h *MemoryHandle) evalQuery(q *query.Query, self *Node) ([]*Node, error) {
	var current []*Node
	if self != nil {
		current = []*Node{self}
	} else {
		current = h.allNodes()
	}

	for i := len(q.Parts) - 1; i >= 0; i-- {
		part := q.Parts[i]

		filtered := make([]*Node, 0, len(current))
		for _, n := range current {
			ok, err := h.evalTerm(part.Term, n, h.view(n))
			if err != nil {
				return nil, err
			}
			if ok {
				filtered = append(filtered, n)
			}
		}

		if part.Navigation != nil {
			next, err := h.navigate(filtered, *part.Navigation)
			if err != nil {
				return nil, err
			}
			filtered = next
		}

		if part.WithClause != nil {
			next, err := h.applyWithClause(filtered, *part.WithClause)
			if err != nil {
				return nil, err
			}
			filtered = next
		}

		if len(part.Sort) > 0 {
			h.sortNodes(filtered, part.Sort)
		}

		if part.Limit != nil && len(filtered) > *part.Limit {
			filtered = filtered[:*part.Limit]
		}

		current = filtered
	}

	return current, nil
}

func (h *MemoryHandle) sortNodes(nodes []*Node, sorts []query.Sort) {
	sort.SliceStable(nodes, func(i, j int) bool {
		for _, s := range sorts {
			vi, _ := lookupPath(h.view(nodes[i]), s.Name)
			vj, _ := lookupPath(h.view(nodes[j]), s.Name)
			cmp, ok := compareOrdered(vi, vj)
			if !ok || cmp == 0 {
				continue
			}
			if s.Order == query.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// navigate walks nav.Start..nav.Until hops from roots, returning the
// deduplicated union of nodes reached within that inclusive range. Only
// nodes reached by at least one hop are collected: the roots themselves
// (0 hops) are not part of the result, even when nav.Start is 0.
func (h *MemoryHandle) navigate(roots []*Node, nav query.Navigation) ([]*Node, error) {
	frontier := map[string]*Node{}
	for _, r := range roots {
		frontier[r.ID] = r
	}

	result := map[string]*Node{}
	depth := 0
	for depth < nav.Until && len(frontier) > 0 {
		depth++
		next := map[string]*Node{}
		for id := range frontier {
			for _, nb := range h.neighbors(id, nav.EdgeType, nav.Direction) {
				if n, ok := h.nodes[nb]; ok {
					next[nb] = n
				}
			}
		}
		if depth >= nav.Start {
			for id, n := range next {
				result[id] = n
			}
		}
		frontier = next
	}

	out := make([]*Node, 0, len(result))
	for _, n := range result {
		out = append(out, n)
	}
	sortNodesByID(out)
	return out, nil
}

func (h *MemoryHandle) neighbors(id, edgeType string, direction query.Direction) []string {
	var out []string
	collect := func(edges []edge) {
		for _, e := range edges {
			if edgeType == query.DefaultEdgeType || e.kind == edgeType {
				out = append(out, e.to)
			}
		}
	}
	switch direction {
	case query.DirectionOutbound:
		collect(h.outbound[id])
	case query.DirectionInbound:
		collect(h.inbound[id])
	default:
		collect(h.outbound[id])
		collect(h.inbound[id])
	}
	return out
}

func (h *MemoryHandle) applyWithClause(nodes []*Node, wc query.WithClause) ([]*Node, error) {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		ok, err := h.satisfiesWithClause(n, wc)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (h *MemoryHandle) satisfiesWithClause(n *Node, wc query.WithClause) (bool, error) {
	neighbors, err := h.navigate([]*Node{n}, wc.Navigation)
	if err != nil {
		return false, err
	}

	matched := neighbors
	if wc.Term != nil {
		matched = matched[:0:0]
		for _, nb := range neighbors {
			ok, err := h.evalTerm(wc.Term, nb, h.view(nb))
			if err != nil {
				return false, err
			}
			if ok {
				matched = append(matched, nb)
			}
		}
	}

	if wc.WithClause != nil {
		nested := matched[:0:0]
		for _, nb := range matched {
			ok, err := h.satisfiesWithClause(nb, *wc.WithClause)
			if err != nil {
				return false, err
			}
			if ok {
				nested = append(nested, nb)
			}
		}
		matched = nested
	}

	return compareCount(len(matched), wc.WithFilter), nil
}

func compareCount(count int, f query.WithClauseFilter) bool {
	switch f.Op {
	case query.OpEq:
		return count == f.Num
	case query.OpNe:
		return count != f.Num
	case query.OpGt:
		return count > f.Num
	case query.OpGe:
		return count >= f.Num
	case query.OpLt:
		return count < f.Num
	case query.OpLe:
		return count <= f.Num
	default:
		return false
	}
}

// evalTerm evaluates term against self, using view as the document self's
// predicates and function terms are addressed against. view starts out as
// h.view(self) and is replaced with a merge-enriched copy for a MergeTerm's
// PostFilter.
func (h *MemoryHandle) evalTerm(term query.Term, self *Node, view map[string]interface{}) (bool, error) {
	switch t := term.(type) {
	case query.AllTerm:
		return true, nil

	case query.NotTerm:
		ok, err := h.evalTerm(t.Term, self, view)
		return !ok, err

	case query.CombinedTerm:
		left, err := h.evalTerm(t.Left, self, view)
		if err != nil {
			return false, err
		}
		if t.Op == query.And && !left {
			return false, nil
		}
		if t.Op == query.Or && left {
			return true, nil
		}
		right, err := h.evalTerm(t.Right, self, view)
		if err != nil {
			return false, err
		}
		if t.Op == query.And {
			return left && right, nil
		}
		return left || right, nil

	case query.IsTerm:
		for _, k := range t.Kinds {
			if k == self.Kind {
				return true, nil
			}
		}
		return false, nil

	case query.IdTerm:
		return t.Id == self.ID, nil

	case query.Predicate:
		return h.evalPredicate(t, view)

	case query.FunctionTerm:
		return h.evalFunction(t, view)

	case query.MergeTerm:
		ok, err := h.evalTerm(t.PreFilter, self, view)
		if err != nil || !ok {
			return false, err
		}
		if len(t.Merge) == 0 {
			if t.PostFilter == nil {
				return true, nil
			}
			return h.evalTerm(t.PostFilter, self, view)
		}

		merged := cloneView(view)
		for _, m := range t.Merge {
			results, err := h.evalQuery(m.Query, self)
			if err != nil {
				return false, err
			}
			attachMerge(merged, m.Name, results, m.OnlyFirst, h)
		}
		if t.PostFilter == nil {
			return true, nil
		}
		return h.evalTerm(t.PostFilter, self, merged)

	default:
		return false, fmt.Errorf("graphdb: unsupported term %T", term)
	}
}

func (h *MemoryHandle) evalPredicate(p query.Predicate, view map[string]interface{}) (bool, error) {
	val, found := lookupPath(view, p.Name)

	if rawFilter, hasFilter := p.Args["filter"]; hasFilter {
		filter, _ := rawFilter.(query.ArrayFilter)
		elems, isArray := toSlice(val)
		if !found || !isArray {
			return filter == query.ArrayNone, nil
		}
		switch filter {
		case query.ArrayAny:
			for _, e := range elems {
				ok, err := compareOp(e, p.Op, p.Value)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}
			}
			return false, nil
		case query.ArrayAll:
			for _, e := range elems {
				ok, err := compareOp(e, p.Op, p.Value)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
			}
			return true, nil
		default: // ArrayNone
			for _, e := range elems {
				ok, err := compareOp(e, p.Op, p.Value)
				if err != nil {
					return false, err
				}
				if ok {
					return false, nil
				}
			}
			return true, nil
		}
	}

	if !found {
		return false, nil
	}
	return compareOp(val, p.Op, p.Value)
}

// evalFunction supports the "age" builtin: age(path, duration) is true when
// the timestamp at path is older than duration ago.
func (h *MemoryHandle) evalFunction(t query.FunctionTerm, view map[string]interface{}) (bool, error) {
	switch t.Fn {
	case "age":
		if len(t.Args) != 1 {
			return false, fmt.Errorf("graphdb: age() takes exactly one argument, got %d", len(t.Args))
		}
		raw, found := lookupPath(view, t.PropertyPath)
		if !found {
			return false, nil
		}
		ts, err := parseTimestamp(raw)
		if err != nil {
			return false, nil
		}
		threshold, ok := t.Args[0].(string)
		if !ok {
			return false, fmt.Errorf("graphdb: age() duration must be a string, got %T", t.Args[0])
		}
		d, err := parseResotoDuration(threshold)
		if err != nil {
			return false, err
		}
		return time.Since(ts) > d, nil
	default:
		return false, fmt.Errorf("graphdb: unsupported function %q", t.Fn)
	}
}

func parseTimestamp(v interface{}) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		return time.Parse(time.RFC3339, val)
	default:
		return time.Time{}, fmt.Errorf("graphdb: not a timestamp: %v", v)
	}
}

// parseResotoDuration parses durations in the "1d", "2h30m", "45s" style
// used throughout resoto check thresholds: a sequence of non-negative
// (possibly fractional) numbers, each followed by one of the units "w",
// "d", "h", "m" or "s". Other time.ParseDuration units ("ms", "us", "ns")
// and signs are not accepted.
func parseResotoDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var total time.Duration
	i := 0
	for i < len(s) {
		start := i
		for i < len(s) && (s[i] == '.' || (s[i] >= '0' && s[i] <= '9')) {
			i++
		}
		if start == i {
			return 0, fmt.Errorf("graphdb: invalid duration %q", s)
		}
		numStr := s[start:i]

		unitStart := i
		for i < len(s) && (s[i] < '0' || s[i] > '9') && s[i] != '.' {
			i++
		}
		unit := s[unitStart:i]

		n, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return 0, fmt.Errorf("graphdb: invalid duration %q: %w", s, err)
		}

		switch unit {
		case "w":
			total += time.Duration(n * float64(7*24*time.Hour))
		case "d":
			total += time.Duration(n * float64(24*time.Hour))
		case "h":
			total += time.Duration(n * float64(time.Hour))
		case "m":
			total += time.Duration(n * float64(time.Minute))
		case "s":
			total += time.Duration(n * float64(time.Second))
		default:
			return 0, fmt.Errorf("graphdb: unknown duration unit %q in %q", unit, s)
		}
	}
	return total, nil
}

func compareOp(a interface{}, op query.Op, b interface{}) (bool, error) {
	switch op {
	case query.OpEq:
		return valuesEqual(a, b), nil
	case query.OpNe:
		return !valuesEqual(a, b), nil
	case query.OpIn:
		return containsValue(b, a), nil
	case query.OpNotIn:
		return !containsValue(b, a), nil
	case query.OpMatches, query.OpNotMatches:
		s, ok := a.(string)
		if !ok {
			return false, nil
		}
		pattern, ok := b.(string)
		if !ok {
			return false, fmt.Errorf("graphdb: regex pattern must be a string, got %T", b)
		}
		m, d, err := regex.New(regex.Default(), pattern)
		if err != nil {
			return false, err
		}
		defer d.Dispose()
		matched := m.Match(s)
		if op == query.OpNotMatches {
			return !matched, nil
		}
		return matched, nil
	default:
		cmp, ok := compareOrdered(a, b)
		if !ok {
			return false, nil
		}
		switch op {
		case query.OpLt:
			return cmp < 0, nil
		case query.OpLe:
			return cmp <= 0, nil
		case query.OpGt:
			return cmp > 0, nil
		case query.OpGe:
			return cmp >= 0, nil
		default:
			return false, fmt.Errorf("graphdb: unsupported operator %q", op)
		}
	}
}

func valuesEqual(a, b interface{}) bool {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			return af == bf
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func containsValue(list interface{}, v interface{}) bool {
	elems, ok := toSlice(list)
	if !ok {
		return false
	}
	for _, e := range elems {
		if valuesEqual(e, v) {
			return true
		}
	}
	return false
}

// compareOrdered returns (-1/0/1, true) when a and b are both numeric or
// both strings, (0, false) otherwise — ordering operators are simply false
// for incomparable operands.
func compareOrdered(a, b interface{}) (int, bool) {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}

func toSlice(v interface{}) ([]interface{}, bool) {
	switch val := v.(type) {
	case []interface{}:
		return val, true
	case []string:
		out := make([]interface{}, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// lookupPath descends a dotted path through a tree of map[string]interface{}
// values, returning (nil, false) on any missing segment.
func lookupPath(view map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = view
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func cloneView(view map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(view))
	for k, v := range view {
		out[k] = v
	}
	return out
}

// attachMerge writes results under the dotted path name within view,
// creating intermediate maps as needed, as a single document when onlyFirst
// (or nil if there were no results) or as a list otherwise.
func attachMerge(view map[string]interface{}, name string, results []*Node, onlyFirst bool, h *MemoryHandle) {
	segments := strings.Split(name, ".")
	cursor := view
	for _, seg := range segments[:len(segments)-1] {
		next, ok := cursor[seg].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cursor[seg] = next
		}
		cursor = next
	}

	leaf := segments[len(segments)-1]
	if onlyFirst {
		if len(results) == 0 {
			cursor[leaf] = nil
			return
		}
		cursor[leaf] = h.view(results[0])
		return
	}

	docs := make([]interface{}, len(results))
	for i, r := range results {
		docs[i] = h.view(r)
	}
	cursor[leaf] = docs
}

type memoryCursor struct {
	rows []map[string]interface{}
	pos  int
}

func (c *memoryCursor) Next(ctx context.Context) (map[string]interface{}, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if c.pos >= len(c.rows) {
		return nil, false, nil
	}
	row := c.rows[c.pos]
	c.pos++
	return row, true, nil
}

func (c *memoryCursor) Count() (int, bool) { return len(c.rows), true }

func (c *memoryCursor) Close() error { return nil }
