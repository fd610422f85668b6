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
	_ "embed"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed predefined/checks.yaml
var predefinedChecksYAML []byte

//go:embed predefined/benchmarks.yaml
var predefinedBenchmarksYAML []byte

type checkDocument struct {
	ReportCheck checkYAML `yaml:"report_check"`
}

type checkYAML struct {
	ID            string                 `yaml:"id"`
	Provider      string                 `yaml:"provider"`
	Service       string                 `yaml:"service"`
	Categories    []string               `yaml:"categories"`
	Kind          []string               `yaml:"kind"`
	Title         string                 `yaml:"title"`
	Risk          string                 `yaml:"risk"`
	Severity      string                 `yaml:"severity"`
	ResultKinds   []string               `yaml:"result_kinds"`
	Detect        map[string]interface{} `yaml:"detect"`
	Remediation   remediationYAML        `yaml:"remediation"`
	Related       []string               `yaml:"related"`
	DefaultValues map[string]interface{} `yaml:"default_values"`
}

type remediationYAML struct {
	Text string `yaml:"text"`
	URL  string `yaml:"url"`
}

type benchmarkDocument struct {
	ReportBenchmark benchmarkYAML `yaml:"report_benchmark"`
}

type benchmarkYAML struct {
	ID          string           `yaml:"id"`
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Framework   string           `yaml:"framework"`
	Version     string           `yaml:"version"`
	Clouds      []string         `yaml:"clouds"`
	Children    []collectionYAML `yaml:"children"`
}

type collectionYAML struct {
	ID          string           `yaml:"id"`
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Checks      []string         `yaml:"checks"`
	Children    []collectionYAML `yaml:"children"`
}

var (
	predefinedChecksOnce sync.Once
	predefinedChecksVal  map[string]ReportCheck
	predefinedChecksErr  error

	predefinedBenchmarksOnce sync.Once
	predefinedBenchmarksVal  map[string]Benchmark
	predefinedBenchmarksErr  error
)

// PredefinedChecks returns the engine's built-in checks, keyed by id, loaded
// and memoized on first access. Concurrent first calls are safe: sync.Once
// guarantees a single decode regardless of how many goroutines race in.
func PredefinedChecks() (map[string]ReportCheck, error) {
	predefinedChecksOnce.Do(func() {
		predefinedChecksVal, predefinedChecksErr = decodeChecksYAML(predefinedChecksYAML)
	})
	return predefinedChecksVal, predefinedChecksErr
}

// PredefinedBenchmarks returns the engine's built-in benchmarks, keyed by
// id, loaded and memoized the same way as PredefinedChecks.
func PredefinedBenchmarks() (map[string]Benchmark, error) {
	predefinedBenchmarksOnce.Do(func() {
		predefinedBenchmarksVal, predefinedBenchmarksErr = decodeBenchmarksYAML(predefinedBenchmarksYAML)
	})
	return predefinedBenchmarksVal, predefinedBenchmarksErr
}

func decodeChecksYAML(data []byte) (map[string]ReportCheck, error) {
	checks := map[string]ReportCheck{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc checkDocument
		err := dec.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ErrInternal.Wrap(err, "decoding "+CheckConfigRoot+" document")
		}
		check, err := convertCheck(doc.ReportCheck)
		if err != nil {
			return nil, err
		}
		if _, exists := checks[check.Id]; exists {
			return nil, ErrInternal.New("duplicate predefined check id " + check.Id)
		}
		checks[check.Id] = check
	}
	return checks, nil
}

func decodeBenchmarksYAML(data []byte) (map[string]Benchmark, error) {
	benchmarks := map[string]Benchmark{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc benchmarkDocument
		err := dec.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ErrInternal.Wrap(err, "decoding "+BenchmarkConfigRoot+" document")
		}
		benchmark := convertBenchmark(doc.ReportBenchmark)
		if _, exists := benchmarks[benchmark.Id]; exists {
			return nil, ErrInternal.New("duplicate predefined benchmark id " + benchmark.Id)
		}
		benchmarks[benchmark.Id] = benchmark
	}
	return benchmarks, nil
}

func convertCheck(y checkYAML) (ReportCheck, error) {
	if y.ID == "" {
		return ReportCheck{}, ErrValidation.New("check document missing id")
	}
	detect := make(map[string]string, len(y.Detect))
	for k, v := range y.Detect {
		detect[k] = fmt.Sprintf("%v", v)
	}
	return ReportCheck{
		Id:            y.ID,
		Provider:      y.Provider,
		Service:       y.Service,
		Categories:    y.Categories,
		Kind:          y.Kind,
		Title:         y.Title,
		Risk:          y.Risk,
		Severity:      ParseSeverity(y.Severity),
		ResultKinds:   y.ResultKinds,
		Detect:        detect,
		Remediation:   Remediation{Text: y.Remediation.Text, URL: y.Remediation.URL},
		Related:       y.Related,
		DefaultValues: y.DefaultValues,
	}, nil
}

func convertBenchmark(y benchmarkYAML) Benchmark {
	children := make([]CheckCollection, 0, len(y.Children))
	for _, c := range y.Children {
		children = append(children, convertCollection(c))
	}
	return Benchmark{
		Id:          y.ID,
		Title:       y.Title,
		Description: y.Description,
		Framework:   y.Framework,
		Version:     y.Version,
		Clouds:      y.Clouds,
		Children:    children,
	}
}

func convertCollection(y collectionYAML) CheckCollection {
	children := make([]CheckCollection, 0, len(y.Children))
	for _, c := range y.Children {
		children = append(children, convertCollection(c))
	}
	return CheckCollection{
		Id:          y.ID,
		Title:       y.Title,
		Description: y.Description,
		Checks:      y.Checks,
		Children:    children,
	}
}
