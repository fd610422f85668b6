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
)

func TestListBenchmarksMergesUserDefined(t *testing.T) {
	req := require.New(t)

	inspector, _ := newTestInspector(buildTestGraph())
	benchmarks, err := inspector.ListBenchmarks(context.Background())
	req.NoError(err)

	byID := map[string]Benchmark{}
	for _, b := range benchmarks {
		byID[b.Id] = b
	}
	// the predefined benchmark and the store-backed one are both present
	req.Contains(byID, "cis_foundations")
	req.Contains(byID, "bench1")
}

func TestUpdateBenchmarkConfigStoresUserBenchmark(t *testing.T) {
	req := require.New(t)

	inspector, store := newTestInspector(buildTestGraph())
	doc := testBenchmarkDoc()
	doc["report_benchmark"].(map[string]interface{})["id"] = "custom"
	doc["report_benchmark"].(map[string]interface{})["title"] = "Custom"

	req.NoError(inspector.UpdateBenchmarkConfig(context.Background(), BenchmarkConfigRoot+"/custom", doc))
	_, found := store.docs[BenchmarkConfigRoot+"/custom"]
	req.True(found)

	benchmarks, err := inspector.ListBenchmarks(context.Background())
	req.NoError(err)
	ids := make([]string, 0, len(benchmarks))
	for _, b := range benchmarks {
		ids = append(ids, b.Id)
	}
	req.Contains(ids, "custom")
}

func TestUpdateBenchmarkConfigRejectsPredefined(t *testing.T) {
	req := require.New(t)

	inspector, _ := newTestInspector(buildTestGraph())
	err := inspector.UpdateBenchmarkConfig(context.Background(), BenchmarkConfigRoot+"/cis_foundations", testBenchmarkDoc())
	req.Error(err)
	req.True(ErrDenied.Is(err))
}

func TestUpdateBenchmarkConfigRejectsMismatchedID(t *testing.T) {
	req := require.New(t)

	inspector, _ := newTestInspector(buildTestGraph())
	// document says bench1, config id says other
	err := inspector.UpdateBenchmarkConfig(context.Background(), BenchmarkConfigRoot+"/other", testBenchmarkDoc())
	req.Error(err)
	req.True(ErrValidation.Is(err))
}

func TestDeleteBenchmarkConfigRemovesUserBenchmark(t *testing.T) {
	req := require.New(t)

	inspector, store := newTestInspector(buildTestGraph())
	req.NoError(inspector.DeleteBenchmarkConfig(context.Background(), BenchmarkConfigRoot+"/bench1"))
	_, found := store.docs[BenchmarkConfigRoot+"/bench1"]
	req.False(found)

	benchmarks, err := inspector.ListBenchmarks(context.Background())
	req.NoError(err)
	for _, b := range benchmarks {
		req.NotEqual("bench1", b.Id)
	}
}

func TestDeleteBenchmarkConfigRejectsPredefined(t *testing.T) {
	req := require.New(t)

	inspector, _ := newTestInspector(buildTestGraph())
	err := inspector.DeleteBenchmarkConfig(context.Background(), BenchmarkConfigRoot+"/cis_foundations")
	req.Error(err)
	req.True(ErrDenied.Is(err))
}

func TestDeleteBenchmarkConfigUnknownIsNotFound(t *testing.T) {
	req := require.New(t)

	inspector, _ := newTestInspector(buildTestGraph())
	err := inspector.DeleteBenchmarkConfig(context.Background(), BenchmarkConfigRoot+"/ghost")
	req.Error(err)
	req.True(ErrNotFound.Is(err))
}
