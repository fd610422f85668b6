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

func validCheck() ReportCheck {
	return ReportCheck{
		Id:          "aws_example_check",
		Title:       "Example check",
		Risk:        "Something bad can happen.",
		Severity:    High,
		ResultKinds: []string{"aws_instance"},
		Detect:      map[string]string{"resoto": "is(aws_instance) and reported.public==true"},
		Remediation: Remediation{Text: "Fix it.", URL: "https://example.com"},
	}
}

func TestValidateCheckAcceptsWellFormedCheck(t *testing.T) {
	violations := ValidateCheck(context.Background(), validCheck(), nil, nil)
	require.Empty(t, violations)
}

func TestValidateCheckRejectsMultipleDetectionMethods(t *testing.T) {
	check := validCheck()
	check.Detect = map[string]string{"resoto": "is(aws_instance)", "manual": "true"}
	violations := ValidateCheck(context.Background(), check, nil, nil)
	require.NotEmpty(t, violations)
}

func TestValidateCheckRejectsNoDetectionMethod(t *testing.T) {
	check := validCheck()
	check.Detect = map[string]string{}
	violations := ValidateCheck(context.Background(), check, nil, nil)
	require.NotEmpty(t, violations)
}

func TestValidateCheckRejectsResultKindMissingFromDetection(t *testing.T) {
	check := validCheck()
	check.ResultKinds = []string{"gcp_instance"}
	violations := ValidateCheck(context.Background(), check, nil, nil)
	require.NotEmpty(t, violations)
}

func TestValidateCheckRejectsMissingRemediation(t *testing.T) {
	check := validCheck()
	check.Remediation = Remediation{}
	violations := ValidateCheck(context.Background(), check, nil, nil)
	require.NotEmpty(t, violations)
}

func TestValidateCheckCollectsEveryViolationWithoutShortCircuiting(t *testing.T) {
	check := ReportCheck{Id: "", Title: "", Risk: "", Detect: map[string]string{}}
	violations := ValidateCheck(context.Background(), check, nil, nil)
	require.GreaterOrEqual(t, len(violations), 4)
}

func TestValidateBenchmarkRejectsUnknownCheckID(t *testing.T) {
	benchmark := Benchmark{
		Id: "my_benchmark",
		Children: []CheckCollection{
			{Id: "col", Checks: []string{"does_not_exist"}},
		},
	}
	violations := ValidateBenchmark(benchmark, map[string]ReportCheck{})
	require.NotEmpty(t, violations)
}

func TestValidateBenchmarkAcceptsKnownCheckIDs(t *testing.T) {
	benchmark := Benchmark{
		Id: "my_benchmark",
		Children: []CheckCollection{
			{Id: "col", Checks: []string{"aws_example_check"}},
		},
	}
	checks := map[string]ReportCheck{"aws_example_check": validCheck()}
	violations := ValidateBenchmark(benchmark, checks)
	require.Empty(t, violations)
}

func TestValidateBenchmarkConfigRejectsMismatchedTrailingSegment(t *testing.T) {
	doc := map[string]interface{}{
		"report_benchmark": map[string]interface{}{
			"id":    "cis_foundations",
			"title": "CIS Foundations",
		},
	}
	violations, err := ValidateBenchmarkConfig("report_benchmark/other_id", doc)
	require.NoError(t, err)
	require.NotEmpty(t, violations)
}

func TestValidateBenchmarkConfigAcceptsMatchingTrailingSegment(t *testing.T) {
	doc := map[string]interface{}{
		"report_benchmark": map[string]interface{}{
			"id":    "cis_foundations",
			"title": "CIS Foundations",
		},
	}
	violations, err := ValidateBenchmarkConfig("report_benchmark/cis_foundations", doc)
	require.NoError(t, err)
	require.Empty(t, violations)
}

func TestValidateBenchmarkConfigRejectsSchemaViolation(t *testing.T) {
	doc := map[string]interface{}{
		"report_benchmark": map[string]interface{}{
			"title": "missing id",
		},
	}
	violations, err := ValidateBenchmarkConfig("report_benchmark/anything", doc)
	require.NoError(t, err)
	require.NotEmpty(t, violations)
}

func TestValidateCheckCollectionConfigAcceptsWellFormedDocument(t *testing.T) {
	doc := map[string]interface{}{
		"report_check": []interface{}{
			map[string]interface{}{
				"id":           "aws_example_check",
				"title":        "Example check",
				"risk":         "Something bad can happen.",
				"result_kinds": []interface{}{"aws_instance"},
				"detect": map[string]interface{}{
					"resoto": "is(aws_instance) and reported.public==true",
				},
				"remediation": map[string]interface{}{
					"text": "Fix it.",
					"url":  "https://example.com",
				},
			},
		},
	}
	violations, err := ValidateCheckCollectionConfig(doc)
	require.NoError(t, err)
	require.Empty(t, violations)
}

func TestValidateCheckCollectionConfigRejectsSchemaViolation(t *testing.T) {
	doc := map[string]interface{}{
		"report_check": []interface{}{
			map[string]interface{}{"title": "missing id and detect"},
		},
	}
	violations, err := ValidateCheckCollectionConfig(doc)
	require.NoError(t, err)
	require.NotEmpty(t, violations)
}
