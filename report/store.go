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
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ListBenchmarks returns every known benchmark, predefined and user-defined
// merged with user-defined winning by id, sorted by id.
func (i *Inspector) ListBenchmarks(ctx context.Context) ([]Benchmark, error) {
	predefined, err := PredefinedBenchmarks()
	if err != nil {
		return nil, err
	}
	combined := make(map[string]Benchmark, len(predefined))
	for id, b := range predefined {
		combined[id] = b
	}

	if i.Config != nil {
		ids, err := i.Config.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !strings.HasPrefix(id, BenchmarkConfigRoot+"/") {
				continue
			}
			doc, found, err := i.Config.GetConfig(ctx, id)
			if err != nil || !found {
				continue
			}
			data, err := yaml.Marshal(doc)
			if err != nil {
				continue
			}
			var parsed benchmarkDocument
			if err := yaml.Unmarshal(data, &parsed); err != nil {
				continue
			}
			b := convertBenchmark(parsed.ReportBenchmark)
			combined[b.Id] = b
		}
	}

	ids := make([]string, 0, len(combined))
	for id := range combined {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Benchmark, 0, len(ids))
	for _, id := range ids {
		out = append(out, combined[id])
	}
	return out, nil
}

// UpdateBenchmarkConfig validates and stores a user-defined benchmark
// document under cfgID. Predefined benchmarks cannot be shadowed this way:
// updating one fails with ErrDenied.
func (i *Inspector) UpdateBenchmarkConfig(ctx context.Context, cfgID string, doc map[string]interface{}) error {
	id := trailingSegment(cfgID)

	predefined, err := PredefinedBenchmarks()
	if err != nil {
		return err
	}
	if _, ok := predefined[id]; ok {
		return ErrDenied.New("benchmark " + id + " is predefined and cannot be updated")
	}

	violations, err := ValidateBenchmarkConfig(cfgID, doc)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return ErrValidation.New(strings.Join(violations, "; "))
	}

	if i.Config == nil {
		return ErrInternal.New("no configuration store")
	}
	return i.Config.Update(ctx, cfgID, doc)
}

// DeleteBenchmarkConfig removes a user-defined benchmark document.
// Deleting a predefined benchmark fails with ErrDenied; deleting an
// unknown one fails with ErrNotFound.
func (i *Inspector) DeleteBenchmarkConfig(ctx context.Context, cfgID string) error {
	id := trailingSegment(cfgID)

	predefined, err := PredefinedBenchmarks()
	if err != nil {
		return err
	}
	if _, ok := predefined[id]; ok {
		return ErrDenied.New("benchmark " + id + " is predefined and cannot be deleted")
	}

	if i.Config == nil {
		return ErrInternal.New("no configuration store")
	}
	_, found, err := i.Config.GetConfig(ctx, cfgID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound.New("benchmark config " + cfgID)
	}
	return i.Config.Delete(ctx, cfgID)
}
