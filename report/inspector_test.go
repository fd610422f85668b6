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

package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nburtsev/resoto/graphdb"
	"github.com/nburtsev/resoto/parse"
	"github.com/nburtsev/resoto/query"
)

// fakeConfigStore is an in-memory ConfigStore double for tests.
type fakeConfigStore struct {
	docs map[string]map[string]interface{}
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{docs: map[string]map[string]interface{}{}}
}

func (s *fakeConfigStore) GetConfig(ctx context.Context, id string) (map[string]interface{}, bool, error) {
	doc, ok := s.docs[id]
	return doc, ok, nil
}

func (s *fakeConfigStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeConfigStore) Update(ctx context.Context, id string, doc map[string]interface{}) error {
	s.docs[id] = doc
	return nil
}

func (s *fakeConfigStore) Delete(ctx context.Context, id string) error {
	delete(s.docs, id)
	return nil
}

// fakeExpander maps a fixed set of detection source strings to prebuilt
// queries, standing in for a real template expander in tests.
type fakeExpander struct {
	bySource map[string]*query.Query
}

func (f *fakeExpander) ParseQuery(ctx context.Context, source string, onSection string, env map[string]interface{}) (*query.Query, error) {
	q, ok := f.bySource[source]
	if !ok {
		return nil, ErrValidation.New("no fake query registered for " + source)
	}
	return q, nil
}

func instancePublicQuery() *query.Query {
	return query.By(query.AndTerm(
		query.OfKind("aws_instance"),
		query.Pred("reported.public").Eq(true),
	), nil)
}

func buildTestGraph() *graphdb.MemoryHandle {
	h := graphdb.NewMemoryHandle()
	h.AddNode("acct1", "account", map[string]interface{}{
		"reported": map[string]interface{}{"id": "acct1", "cloud": "aws"},
	})
	h.AddNode("inst1", "aws_instance", map[string]interface{}{
		"reported":  map[string]interface{}{"id": "inst1", "public": true},
		"ancestors": map[string]interface{}{"account": map[string]interface{}{"reported": map[string]interface{}{"id": "acct1"}}},
	})
	h.AddNode("inst2", "aws_instance", map[string]interface{}{
		"reported":  map[string]interface{}{"id": "inst2", "public": false},
		"ancestors": map[string]interface{}{"account": map[string]interface{}{"reported": map[string]interface{}{"id": "acct1"}}},
	})
	h.AddEdge("acct1", "inst1", "default")
	h.AddEdge("acct1", "inst2", "default")
	return h
}

func testCheckDoc() map[string]interface{} {
	return map[string]interface{}{
		"report_check": []interface{}{
			map[string]interface{}{
				"id":           "check1",
				"title":        "Instance is public",
				"risk":         "Public instances are reachable from the internet.",
				"severity":     "high",
				"result_kinds": []interface{}{"aws_instance"},
				"detect": map[string]interface{}{
					"resoto": "is(aws_instance) and reported.public==true",
				},
				"remediation": map[string]interface{}{
					"text": "Remove the public IP.",
					"url":  "https://example.com",
				},
			},
		},
	}
}

func testBenchmarkDoc() map[string]interface{} {
	return map[string]interface{}{
		"report_benchmark": map[string]interface{}{
			"id":    "bench1",
			"title": "Bench1",
			"children": []interface{}{
				map[string]interface{}{
					"id":     "col1",
					"title":  "Col1",
					"checks": []interface{}{"check1"},
				},
			},
		},
	}
}

func newTestInspector(handle graphdb.Handle) (*Inspector, *fakeConfigStore) {
	store := newFakeConfigStore()
	store.docs["report_check/check1"] = testCheckDoc()
	store.docs["report_benchmark/bench1"] = testBenchmarkDoc()

	expander := &fakeExpander{bySource: map[string]*query.Query{
		"is(aws_instance) and reported.public==true": instancePublicQuery(),
	}}
	return NewInspector(handle, store, expander, nil, graphdb.Model("resoto")), store
}

func TestPerformBenchmarksFindsFailingResource(t *testing.T) {
	handle := buildTestGraph()
	inspector, _ := newTestInspector(handle)

	results, err := inspector.PerformBenchmarks(context.Background(), []string{"bench1"}, NewCheckContext(), false, "")
	require.NoError(t, err)
	require.Len(t, results, 1)

	result := results[0]
	require.True(t, result.Failed())
	passing, failing := result.PassingFailingChecksForAccount("acct1")
	require.Empty(t, passing)
	require.Len(t, failing, 1)
	require.Equal(t, "check1", failing[0].Id)
}

func TestPerformBenchmarksOnlyFailedDropsPassingCollections(t *testing.T) {
	handle := graphdb.NewMemoryHandle()
	handle.AddNode("acct1", "account", map[string]interface{}{"reported": map[string]interface{}{"id": "acct1"}})
	handle.AddNode("inst1", "aws_instance", map[string]interface{}{
		"reported":  map[string]interface{}{"id": "inst1", "public": false},
		"ancestors": map[string]interface{}{"account": map[string]interface{}{"reported": map[string]interface{}{"id": "acct1"}}},
	})

	inspector, _ := newTestInspector(handle)
	checkCtx := NewCheckContext()
	checkCtx.OnlyFailed = true

	results, err := inspector.PerformBenchmarks(context.Background(), []string{"bench1"}, checkCtx, false, "")
	require.NoError(t, err)
	require.False(t, results[0].Failed())
	require.Empty(t, results[0].Children)
}

func TestPerformBenchmarksSeverityGateExcludesLowerSeverityChecks(t *testing.T) {
	handle := buildTestGraph()
	inspector, _ := newTestInspector(handle)

	critical := Critical
	checkCtx := NewCheckContext()
	checkCtx.Severity = &critical

	results, err := inspector.PerformBenchmarks(context.Background(), []string{"bench1"}, checkCtx, false, "")
	require.NoError(t, err)
	require.False(t, results[0].Failed())
}

func TestPerformBenchmarksSyncsSecuritySection(t *testing.T) {
	handle := buildTestGraph()
	inspector, _ := newTestInspector(handle)

	_, err := inspector.PerformBenchmarks(context.Background(), []string{"bench1"}, NewCheckContext(), true, "run-1")
	require.NoError(t, err)

	q := query.By(query.WithId("inst1"), nil)
	cursor, err := handle.SearchList(context.Background(), q, graphdb.Model("resoto"))
	require.NoError(t, err)
	defer cursor.Close()

	row, ok, err := cursor.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	security, _ := row["security"].(map[string]interface{})
	require.NotNil(t, security)
	require.Equal(t, true, security["has_issues"])
	require.Equal(t, "run-1", security["run_id"])
}

func TestLoadBenchmarksRebuildsFromMaterializedIssues(t *testing.T) {
	handle := buildTestGraph()
	inspector, _ := newTestInspector(handle)

	_, err := inspector.PerformBenchmarks(context.Background(), []string{"bench1"}, NewCheckContext(), true, "run-1")
	require.NoError(t, err)

	results, err := inspector.LoadBenchmarks(context.Background(), []string{"bench1"}, NewCheckContext())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Failed())
}

func TestListFailingResourcesReturnsRawRows(t *testing.T) {
	handle := buildTestGraph()
	inspector, _ := newTestInspector(handle)

	rows, err := inspector.ListFailingResources(context.Background(), "check1", NewCheckContext())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	reported, _ := rows[0]["reported"].(map[string]interface{})
	require.Equal(t, "inst1", reported["id"])
}

func TestFilterChecksUserDefinedOverridesPredefinedByID(t *testing.T) {
	handle := buildTestGraph()
	inspector, store := newTestInspector(handle)

	override := testCheckDoc()
	checkList := override["report_check"].([]interface{})
	checkEntry := checkList[0].(map[string]interface{})
	checkEntry["id"] = "aws_s3_bucket_public_read_access"
	checkEntry["title"] = "Overridden title"
	store.docs["report_check/override"] = override

	checks, err := inspector.FilterChecks(context.Background(), nil)
	require.NoError(t, err)

	var found bool
	for _, c := range checks {
		if c.Id == "aws_s3_bucket_public_read_access" {
			found = true
			require.Equal(t, "Overridden title", c.Title)
		}
	}
	require.True(t, found)
}

func TestPerformChecksAutoResolvesAccountsWhenNoneGiven(t *testing.T) {
	handle := buildTestGraph()
	inspector, _ := newTestInspector(handle)

	result, err := inspector.PerformChecks(context.Background(), ChecksFilter{CheckIDs: []string{"check1"}}, NewCheckContext())
	require.NoError(t, err)
	require.True(t, result.Failed())
}

func reachableCheckDoc() map[string]interface{} {
	return map[string]interface{}{
		"report_check": []interface{}{
			map[string]interface{}{
				"id":           "instance_reachable",
				"title":        "Instance reachable from an account",
				"risk":         "Reachable instances widen the blast radius of a compromised account.",
				"severity":     "medium",
				"result_kinds": []interface{}{"aws_instance"},
				"detect": map[string]interface{}{
					"resoto": "is(account) --> is(aws_instance)",
				},
				"remediation": map[string]interface{}{
					"text": "Review the instance's placement.",
					"url":  "https://example.com",
				},
			},
		},
	}
}

func traversalDetectQuery() *query.Query {
	return query.By(query.OfKind("account"), nil).
		TraverseOut(1, 1, "").
		Filter(query.OfKind("aws_instance"))
}

// buildSharedInstanceGraph has two accounts with one instance each, plus an
// edge sharing instA into acctB's subtree while instA's resolved account
// stays acctA. Every node carries its resolved account ancestor, the way
// the graph model duplicates it onto the node document.
func buildSharedInstanceGraph() *graphdb.MemoryHandle {
	account := func(id string) map[string]interface{} {
		return map[string]interface{}{"account": map[string]interface{}{"reported": map[string]interface{}{"id": id}}}
	}

	h := graphdb.NewMemoryHandle()
	h.AddNode("acctA", "account", map[string]interface{}{
		"reported":  map[string]interface{}{"id": "acctA"},
		"ancestors": account("acctA"),
	})
	h.AddNode("acctB", "account", map[string]interface{}{
		"reported":  map[string]interface{}{"id": "acctB"},
		"ancestors": account("acctB"),
	})
	h.AddNode("instA", "aws_instance", map[string]interface{}{
		"reported":  map[string]interface{}{"id": "instA"},
		"ancestors": account("acctA"),
	})
	h.AddNode("instB", "aws_instance", map[string]interface{}{
		"reported":  map[string]interface{}{"id": "instB"},
		"ancestors": account("acctB"),
	})
	h.AddEdge("acctA", "instA", "default")
	h.AddEdge("acctB", "instB", "default")
	h.AddEdge("acctB", "instA", "default")
	return h
}

func TestListFailingResourcesRestrictsAccountsOnTraversalQuery(t *testing.T) {
	req := require.New(t)

	store := newFakeConfigStore()
	store.docs["report_check/instance_reachable"] = reachableCheckDoc()
	expander := &fakeExpander{bySource: map[string]*query.Query{
		"is(account) --> is(aws_instance)": traversalDetectQuery(),
	}}
	inspector := NewInspector(buildSharedInstanceGraph(), store, expander, nil, graphdb.Model("resoto"))

	rowIDs := func(accounts []string) []string {
		checkCtx := NewCheckContext()
		checkCtx.Accounts = accounts
		rows, err := inspector.ListFailingResources(context.Background(), "instance_reachable", checkCtx)
		req.NoError(err)
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			id, _ := row["id"].(string)
			ids = append(ids, id)
		}
		return ids
	}

	req.ElementsMatch([]string{"instA", "instB"}, rowIDs(nil))

	// the account restriction applies to the traversal roots, so only
	// resources under the restricted account's subtree remain
	req.ElementsMatch([]string{"instA"}, rowIDs([]string{"acctA"}))

	// instA hangs under acctB as a shared resource: restricting to acctB
	// keeps it even though its resolved owning account is acctA
	req.ElementsMatch([]string{"instA", "instB"}, rowIDs([]string{"acctB"}))

	req.Empty(rowIDs([]string{"n/a"}))
}

func TestListFailingResourcesResolvesAncestorPredicateThroughMerge(t *testing.T) {
	req := require.New(t)

	h := graphdb.NewMemoryHandle()
	h.AddNode("vpc1", "vpc", map[string]interface{}{
		"reported": map[string]interface{}{"id": "vpc1"},
	})
	h.AddNode("instX", "aws_instance", map[string]interface{}{
		"reported": map[string]interface{}{"id": "instX"},
	})
	h.AddNode("instY", "aws_instance", map[string]interface{}{
		"reported": map[string]interface{}{"id": "instY"},
	})
	h.AddEdge("vpc1", "instX", "default")

	store := newFakeConfigStore()
	store.docs["report_check/instance_in_vpc"] = vpcCheckDoc()
	inspector := NewInspector(h, store, parse.Expander{}, nil, graphdb.Model("resoto"))

	// instX's vpc ancestor is only reachable through the graph, not
	// embedded on the node, so this passes only if the parsed detection
	// lifted the ancestor predicate into a merge query
	rows, err := inspector.ListFailingResources(context.Background(), "instance_in_vpc", NewCheckContext())
	req.NoError(err)
	req.Len(rows, 1)
	req.Equal("instX", rows[0]["id"])
}

func vpcCheckDoc() map[string]interface{} {
	return map[string]interface{}{
		"report_check": []interface{}{
			map[string]interface{}{
				"id":           "instance_in_vpc",
				"title":        "Instance placed in the audited VPC",
				"risk":         "Instances in the audited VPC are in scope for the review.",
				"severity":     "low",
				"result_kinds": []interface{}{"aws_instance"},
				"detect": map[string]interface{}{
					"resoto": `is(aws_instance) and /ancestors.vpc.reported.id == "vpc1"`,
				},
				"remediation": map[string]interface{}{
					"text": "Confirm the instance belongs in this VPC.",
					"url":  "https://example.com",
				},
			},
		},
	}
}
