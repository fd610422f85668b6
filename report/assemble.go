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
	"github.com/nburtsev/resoto/graphdb"
)

// BuildBenchmarkResult rebuilds a BenchmarkResult tree from the flat
// per-check, per-account failing-resource map the scheduler produces,
// mirroring __to_result's recursive to_result(cc) walk in the original
// model.
func BuildBenchmarkResult(benchmark Benchmark, checksByID map[string]ReportCheck, resourcesByCheck map[string]map[string][]ResourceProjection) BenchmarkResult {
	children := make([]CheckCollectionResult, 0, len(benchmark.Children))
	for _, c := range benchmark.Children {
		children = append(children, buildCollectionResult(c, checksByID, resourcesByCheck))
	}
	return BenchmarkResult{Benchmark: benchmark, Children: children}
}

func buildCollectionResult(c CheckCollection, checksByID map[string]ReportCheck, resourcesByCheck map[string]map[string][]ResourceProjection) CheckCollectionResult {
	result := CheckCollectionResult{Collection: c}
	for _, id := range c.Checks {
		check, ok := checksByID[id]
		if !ok {
			continue
		}
		result.Checks = append(result.Checks, CheckResult{
			Check:                     check,
			ResourcesFailingByAccount: resourcesByCheck[id],
		})
	}
	for _, child := range c.Children {
		result.Children = append(result.Children, buildCollectionResult(child, checksByID, resourcesByCheck))
	}
	return result
}

// GraphElement is one node or edge of a BenchmarkResult.ToGraph export.
type GraphElement struct {
	IsEdge bool
	ID     string
	From   string
	To     string
	Kind   string
	Data   map[string]interface{}
}

// ToGraph renders the result tree as a flat node/edge list, the shape
// test_benchmark_node_result exercises: one node per benchmark/collection/
// check, and one edge per parent-child link in the tree.
func (b BenchmarkResult) ToGraph() (nodes, edges []GraphElement) {
	benchmarkNodeID := "benchmark:" + b.Benchmark.Id
	nodes = append(nodes, GraphElement{
		ID:   benchmarkNodeID,
		Kind: "benchmark",
		Data: map[string]interface{}{"id": b.Benchmark.Id, "title": b.Benchmark.Title},
	})
	for _, child := range b.Children {
		cn, ce := child.toGraph(benchmarkNodeID)
		nodes = append(nodes, cn...)
		edges = append(edges, ce...)
	}
	return nodes, edges
}

func (c CheckCollectionResult) toGraph(parentID string) (nodes, edges []GraphElement) {
	nodeID := "collection:" + c.Collection.Id
	nodes = append(nodes, GraphElement{
		ID:   nodeID,
		Kind: "check_collection",
		Data: map[string]interface{}{"id": c.Collection.Id, "title": c.Collection.Title},
	})
	edges = append(edges, GraphElement{IsEdge: true, From: parentID, To: nodeID, Kind: "child"})

	for _, check := range c.Checks {
		checkNodeID := "check:" + check.Check.Id
		nodes = append(nodes, GraphElement{
			ID:   checkNodeID,
			Kind: "check",
			Data: map[string]interface{}{
				"id":                         check.Check.Id,
				"title":                      check.Check.Title,
				"severity":                   check.Check.Severity.String(),
				"number_of_resources_failing": check.NumberOfResourcesFailing(),
			},
		})
		edges = append(edges, GraphElement{IsEdge: true, From: nodeID, To: checkNodeID, Kind: "child"})
	}

	for _, grandchild := range c.Children {
		gn, ge := grandchild.toGraph(nodeID)
		nodes = append(nodes, gn...)
		edges = append(edges, ge...)
	}
	return nodes, edges
}

// SecurityIssue is one check's failure against one node, the unit
// PerformBenchmarks' security-section materialization pass streams into
// graphdb.Handle.UpdateSecuritySection.
type SecurityIssue struct {
	Check      string
	Severity   Severity
	Benchmarks []string
}

// nodeIssuesFromResults walks a BenchmarkResult's failing resources,
// grouping them back by node id, mirroring
// __benchmarks_to_security_iterator in the original model.
func nodeIssuesFromResults(results []BenchmarkResult) map[string][]SecurityIssue {
	byNode := map[string][]SecurityIssue{}
	for _, result := range results {
		addCollectionIssues(result.Children, result.Benchmark.Id, byNode)
	}
	return byNode
}

func addCollectionIssues(children []CheckCollectionResult, benchmarkID string, byNode map[string][]SecurityIssue) {
	for _, c := range children {
		for _, check := range c.Checks {
			if !check.Failed() {
				continue
			}
			for _, resources := range check.ResourcesFailingByAccount {
				for _, resource := range resources {
					byNode[resource.NodeID] = append(byNode[resource.NodeID], SecurityIssue{
						Check:      check.Check.Id,
						Severity:   check.Check.Severity,
						Benchmarks: []string{benchmarkID},
					})
				}
			}
		}
		addCollectionIssues(c.Children, benchmarkID, byNode)
	}
}

// toNodeIssuesChannel streams byNode onto a channel of graphdb.NodeIssues,
// merging the Benchmarks list for the same check reached from more than
// one benchmark in the same run.
func toNodeIssuesChannel(byNode map[string][]SecurityIssue) <-chan graphdb.NodeIssues {
	ch := make(chan graphdb.NodeIssues, len(byNode))
	for nodeID, issues := range byNode {
		merged := mergeIssuesByCheck(issues)
		refs := make([]graphdb.SecurityIssueRef, len(merged))
		for i, iss := range merged {
			refs[i] = graphdb.SecurityIssueRef{
				Check:      iss.Check,
				Severity:   int(iss.Severity),
				Benchmarks: iss.Benchmarks,
			}
		}
		ch <- graphdb.NodeIssues{NodeID: nodeID, Issues: refs}
	}
	close(ch)
	return ch
}

func mergeIssuesByCheck(issues []SecurityIssue) []SecurityIssue {
	byCheck := map[string]*SecurityIssue{}
	var order []string
	for _, issue := range issues {
		existing, ok := byCheck[issue.Check]
		if !ok {
			copied := issue
			byCheck[issue.Check] = &copied
			order = append(order, issue.Check)
			continue
		}
		existing.Benchmarks = append(existing.Benchmarks, issue.Benchmarks...)
	}
	merged := make([]SecurityIssue, len(order))
	for i, id := range order {
		merged[i] = *byCheck[id]
	}
	return merged
}
