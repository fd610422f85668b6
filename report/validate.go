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
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

var benchmarkConfigSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"required": ["report_benchmark"],
	"properties": {
		"report_benchmark": {
			"type": "object",
			"required": ["id", "title"],
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"title": {"type": "string", "minLength": 1},
				"children": {"type": "array"}
			}
		}
	}
}`)

var checkCollectionConfigSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"required": ["report_check"],
	"properties": {
		"report_check": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "detect"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"detect": {"type": "object"}
				}
			}
		}
	}
}`)

// ValidateBenchmark checks that every check id reachable from benchmark
// resolves against checksByID. All violations are collected; the function
// never stops at the first one.
func ValidateBenchmark(benchmark Benchmark, checksByID map[string]ReportCheck) []string {
	var violations []string
	for _, id := range benchmark.NestedCheckIDs() {
		if _, ok := checksByID[id]; !ok {
			violations = append(violations, fmt.Sprintf("benchmark %q references unknown check %q", benchmark.Id, id))
		}
	}
	return violations
}

// ValidateCheck checks a single check's structural and semantic
// requirements: exactly one detection method, that method parses (when
// expander/cli are supplied), non-empty result kinds textually present in
// the detection string, and non-empty remediation/id/title/risk. All
// violations are collected; nothing here short-circuits.
func ValidateCheck(ctx context.Context, check ReportCheck, expander TemplateExpander, cli CLIEvaluator) []string {
	var violations []string

	resoto, hasResoto := check.Detect["resoto"]
	cmd, hasCmd := check.Detect["resoto_cmd"]
	_, hasManual := check.Detect["manual"]
	present := 0
	for _, set := range []bool{hasResoto, hasCmd, hasManual} {
		if set {
			present++
		}
	}
	if present != 1 {
		violations = append(violations, fmt.Sprintf("check %q must set exactly one of detect.resoto, detect.resoto_cmd, detect.manual", check.Id))
	}

	detection := ""
	switch {
	case hasResoto:
		detection = resoto
		if expander != nil {
			if _, err := expander.ParseQuery(ctx, resoto, "reported", check.Environment(nil)); err != nil {
				violations = append(violations, fmt.Sprintf("check %q detect.resoto does not parse: %v", check.Id, err))
			}
		}
	case hasCmd:
		detection = cmd
		if cli != nil {
			if err := cli.Evaluate(ctx, cmd, check.Environment(nil)); err != nil {
				violations = append(violations, fmt.Sprintf("check %q detect.resoto_cmd does not parse: %v", check.Id, err))
			}
		}
	}

	if len(check.ResultKinds) == 0 {
		violations = append(violations, fmt.Sprintf("check %q has no result_kinds", check.Id))
	} else if !hasManual {
		for _, kind := range check.ResultKinds {
			if !strings.Contains(detection, kind) {
				violations = append(violations, fmt.Sprintf("check %q result kind %q does not appear in its detection string", check.Id, kind))
			}
		}
	}

	if check.Remediation.Text == "" || check.Remediation.URL == "" {
		violations = append(violations, fmt.Sprintf("check %q is missing remediation text or url", check.Id))
	}
	if check.Id == "" {
		violations = append(violations, "check is missing an id")
	}
	if check.Title == "" {
		violations = append(violations, fmt.Sprintf("check %q is missing a title", check.Id))
	}
	if check.Risk == "" {
		violations = append(violations, fmt.Sprintf("check %q is missing a risk description", check.Id))
	}
	return violations
}

// ValidateBenchmarkConfig decodes a raw configuration-store document as a
// benchmark, runs it through a structural schema gate first, then checks
// the trailing segment of cfgID equals the decoded benchmark's id.
func ValidateBenchmarkConfig(cfgID string, doc map[string]interface{}) ([]string, error) {
	if violations := schemaViolations(benchmarkConfigSchema, doc); len(violations) > 0 {
		return violations, nil
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, ErrInternal.Wrap(err, "remarshaling benchmark config")
	}
	var parsed benchmarkDocument
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, ErrValidation.Wrap(err, "decoding "+BenchmarkConfigRoot+" document")
	}
	benchmark := convertBenchmark(parsed.ReportBenchmark)

	var violations []string
	if trailingSegment(cfgID) != benchmark.Id {
		violations = append(violations, fmt.Sprintf("configuration id %q must end with the benchmark id %q", cfgID, benchmark.Id))
	}
	if benchmark.Title == "" {
		violations = append(violations, fmt.Sprintf("benchmark %q is missing a title", benchmark.Id))
	}
	return violations, nil
}

// ValidateCheckCollectionConfig decodes a raw configuration-store document
// as a list of checks and runs ValidateCheck (structural checks only,
// expander/cli omitted since no parser is available at this boundary) over
// each entry.
func ValidateCheckCollectionConfig(doc map[string]interface{}) ([]string, error) {
	if violations := schemaViolations(checkCollectionConfigSchema, doc); len(violations) > 0 {
		return violations, nil
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, ErrInternal.Wrap(err, "remarshaling check collection config")
	}

	var violations []string
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var raw struct {
			ReportCheck []checkYAML `yaml:"report_check"`
		}
		err := dec.Decode(&raw)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ErrValidation.Wrap(err, "decoding "+CheckConfigRoot+" document")
		}
		for _, y := range raw.ReportCheck {
			check, err := convertCheck(y)
			if err != nil {
				violations = append(violations, err.Error())
				continue
			}
			violations = append(violations, ValidateCheck(context.Background(), check, nil, nil)...)
		}
	}
	return violations, nil
}

func schemaViolations(schema gojsonschema.JSONLoader, doc map[string]interface{}) []string {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return []string{fmt.Sprintf("document does not match expected shape: %v", err)}
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return violations
}

func trailingSegment(id string) string {
	idx := strings.LastIndex(id, "/")
	if idx < 0 {
		return id
	}
	return id[idx+1:]
}
