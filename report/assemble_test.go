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
	"testing"

	"github.com/stretchr/testify/require"
)

func twoCollectionBenchmark() (Benchmark, map[string]ReportCheck) {
	benchmark := Benchmark{
		Id:    "bench",
		Title: "Bench",
		Children: []CheckCollection{
			{Id: "col_a", Title: "A", Checks: []string{"check_a"}},
			{Id: "col_b", Title: "B", Checks: []string{"check_b"}},
		},
	}
	checks := map[string]ReportCheck{
		"check_a": {Id: "check_a", Title: "Check A", Severity: High},
		"check_b": {Id: "check_b", Title: "Check B", Severity: Medium},
	}
	return benchmark, checks
}

func TestBuildBenchmarkResultAttachesFailingResourcesByCheck(t *testing.T) {
	benchmark, checks := twoCollectionBenchmark()
	resources := map[string]map[string][]ResourceProjection{
		"check_a": {"acct1": {{NodeID: "n1"}}},
	}
	result := BuildBenchmarkResult(benchmark, checks, resources)

	require.Len(t, result.Children, 2)
	require.True(t, result.Children[0].Checks[0].Failed())
	require.False(t, result.Children[1].Checks[0].Failed())
	require.True(t, result.Failed())
}

func TestBenchmarkResultToGraphProducesFiveNodesFourEdges(t *testing.T) {
	benchmark, checks := twoCollectionBenchmark()
	result := BuildBenchmarkResult(benchmark, checks, nil)

	nodes, edges := result.ToGraph()
	require.Len(t, nodes, 5)
	require.Len(t, edges, 4)

	edgeCount := map[bool]int{}
	for _, e := range edges {
		edgeCount[e.IsEdge]++
	}
	require.Equal(t, 4, edgeCount[true])
}

func TestNodeIssuesFromResultsGroupsByNode(t *testing.T) {
	benchmark, checks := twoCollectionBenchmark()
	resources := map[string]map[string][]ResourceProjection{
		"check_a": {"acct1": {{NodeID: "n1"}}},
		"check_b": {"acct1": {{NodeID: "n1"}}},
	}
	result := BuildBenchmarkResult(benchmark, checks, resources)

	byNode := nodeIssuesFromResults([]BenchmarkResult{result})
	require.Len(t, byNode["n1"], 2)

	ch := toNodeIssuesChannel(byNode)
	var collected []string
	for issues := range ch {
		require.Equal(t, "n1", issues.NodeID)
		for _, ref := range issues.Issues {
			collected = append(collected, ref.Check)
		}
	}
	require.ElementsMatch(t, []string{"check_a", "check_b"}, collected)
}
