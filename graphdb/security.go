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

// SecuritySection is the "security" sub-document UpdateSecuritySection
// writes onto a node, and what LoadBenchmarks reads back via
// "security.has_issues"/"security.issues[]" predicates.
type SecuritySection struct {
	HasIssues bool               `json:"has_issues"`
	RunID     string             `json:"run_id"`
	Issues    []SecurityIssueRef `json:"issues"`
}

// ToMap renders s the way it is stored in a node's document tree, so query
// predicates can address it by dotted path ("security.has_issues").
func (s SecuritySection) ToMap() map[string]interface{} {
	issues := make([]interface{}, len(s.Issues))
	for i, issue := range s.Issues {
		benchmarks := make([]interface{}, len(issue.Benchmarks))
		for j, b := range issue.Benchmarks {
			benchmarks[j] = b
		}
		issues[i] = map[string]interface{}{
			"check":      issue.Check,
			"severity":   issue.Severity,
			"benchmarks": benchmarks,
		}
	}
	return map[string]interface{}{
		"has_issues": s.HasIssues,
		"run_id":     s.RunID,
		"issues":     issues,
	}
}
