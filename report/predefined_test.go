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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPredefinedChecksLoadsKnownIDs(t *testing.T) {
	checks, err := PredefinedChecks()
	require.NoError(t, err)
	require.Contains(t, checks, "aws_s3_bucket_public_read_access")
	require.Contains(t, checks, "manual_inventory_review")

	manual := checks["manual_inventory_review"]
	require.Equal(t, "true", manual.Detect["manual"])
	require.Equal(t, Info, manual.Severity)
}

func TestPredefinedBenchmarksNestedCheckIDsCoverAllChecks(t *testing.T) {
	benchmarks, err := PredefinedBenchmarks()
	require.NoError(t, err)
	benchmark, ok := benchmarks["cis_foundations"]
	require.True(t, ok)

	ids := benchmark.NestedCheckIDs()
	require.Contains(t, ids, "aws_s3_bucket_public_read_access")
	require.Contains(t, ids, "aws_ec2_instance_imdsv2_required")
	require.Contains(t, ids, "manual_inventory_review")

	checks, err := PredefinedChecks()
	require.NoError(t, err)
	for _, id := range ids {
		_, ok := checks[id]
		require.True(t, ok, "benchmark references unknown check %q", id)
	}
}

func TestPredefinedChecksIsMemoizedAcrossConcurrentFirstCalls(t *testing.T) {
	predefinedChecksOnce = sync.Once{}
	predefinedChecksVal = nil
	predefinedChecksErr = nil

	var wg sync.WaitGroup
	results := make([]map[string]ReportCheck, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			checks, err := PredefinedChecks()
			require.NoError(t, err)
			results[idx] = checks
		}(i)
	}
	wg.Wait()

	first := results[0]
	for _, r := range results[1:] {
		require.True(t, sameMap(first, r))
	}
}

func sameMap(a, b map[string]ReportCheck) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
