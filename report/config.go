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

import "context"

// BenchmarkConfigRoot, CheckConfigRoot and ReportConfigRoot name the
// top-level keys a ConfigStore document is expected to carry, depending on
// what kind of document it is.
const (
	BenchmarkConfigRoot = "report_benchmark"
	CheckConfigRoot     = "report_check"
	ReportConfigRoot    = "resoto_report_config"
)

// ReportConfig is the user-editable policy layered over every check run:
// which checks are globally ignored, and per-check default value overrides.
type ReportConfig struct {
	IgnoreChecks   []string
	OverrideValues map[string]map[string]interface{}
}

// CheckAllowed reports whether id is not in IgnoreChecks, the gate
// PerformBenchmarks/LoadBenchmarks apply before evaluating a check.
func (c ReportConfig) CheckAllowed(id string) bool {
	for _, ignored := range c.IgnoreChecks {
		if ignored == id {
			return false
		}
	}
	return true
}

// ConfigStore is the document store report.Inspector reads predefined and
// user-defined benchmark/check/report-config documents from.
type ConfigStore interface {
	GetConfig(ctx context.Context, id string) (map[string]interface{}, bool, error)
	List(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id string, doc map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}
