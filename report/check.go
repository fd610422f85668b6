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

// Severity ranks how serious a failing check is. Zero value is Info.
type Severity int

const (
	Info Severity = iota
	Low
	Medium
	High
	Critical
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity resolves a severity name, defaulting to Medium for an
// unrecognized one (mirrors a permissive config parse rather than failing
// benchmark loading over a typo).
func ParseSeverity(name string) Severity {
	switch name {
	case "info":
		return Info
	case "low":
		return Low
	case "medium":
		return Medium
	case "high":
		return High
	case "critical":
		return Critical
	default:
		return Medium
	}
}

// IncludesSeverity reports whether s is at least min — the gate
// CheckContext.Severity applies to narrow a benchmark run.
func (s Severity) IncludesSeverity(min Severity) bool { return s >= min }

// Remediation is the fix-it guidance attached to a check.
type Remediation struct {
	Text string
	URL  string
}

// ReportCheck is a single, independently evaluable check: its detection
// method (exactly one of Detect's "resoto"/"resoto_cmd"/"manual" keys is
// set), and the metadata the assembler and CLI need to render a result.
type ReportCheck struct {
	Id            string
	Provider      string
	Service       string
	Categories    []string
	Kind          []string
	Title         string
	Risk          string
	Severity      Severity
	ResultKinds   []string
	Detect        map[string]string
	Remediation   Remediation
	URL           string
	Related       []string
	DefaultValues map[string]interface{}
}

// Environment layers overrides on top of DefaultValues, overrides winning
// on key collision, mirroring Check.Environment in the original model.
func (c ReportCheck) Environment(overrides map[string]interface{}) map[string]interface{} {
	env := make(map[string]interface{}, len(c.DefaultValues)+len(overrides))
	for k, v := range c.DefaultValues {
		env[k] = v
	}
	for k, v := range overrides {
		env[k] = v
	}
	return env
}

// CheckCollection is one node of a benchmark's check tree: either a leaf
// holding check ids directly, an interior node holding nested collections,
// or both.
type CheckCollection struct {
	Id            string
	Title         string
	Description   string
	Documentation string
	Checks        []string
	Children      []CheckCollection
}

// NestedCheckIDs collects every check id reachable from c, depth-first,
// mirroring nested_checks() in the original model.
func (c CheckCollection) NestedCheckIDs() []string {
	ids := append([]string{}, c.Checks...)
	for _, child := range c.Children {
		ids = append(ids, child.NestedCheckIDs()...)
	}
	return ids
}
