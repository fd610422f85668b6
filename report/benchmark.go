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

// Benchmark is a named, versioned tree of check collections scoped to one
// or more cloud providers.
type Benchmark struct {
	Id          string
	Title       string
	Description string
	Framework   string
	Version     string
	Clouds      []string
	Children    []CheckCollection
}

// NestedCheckIDs collects every check id reachable from any of b's
// top-level collections, mirroring Benchmark.nested_checks() in the
// original model.
func (b Benchmark) NestedCheckIDs() []string {
	var ids []string
	for _, child := range b.Children {
		ids = append(ids, child.NestedCheckIDs()...)
	}
	return ids
}

// ConfigOverride adjusts a run: checks named in IgnoreChecks are dropped
// from a PerformBenchmarks run (PerformChecks does not consult them), and
// DefaultValues, keyed by check id, is layered over that check's own
// DefaultValues before evaluation, the override winning on key collision.
type ConfigOverride struct {
	DefaultValues map[string]map[string]interface{}
	IgnoreChecks  map[string]bool
}
