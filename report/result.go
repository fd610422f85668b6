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

// CheckResult is one check's outcome across every account it ran against.
type CheckResult struct {
	Check                     ReportCheck
	ResourcesFailingByAccount map[string][]ResourceProjection
}

// NumberOfResourcesFailing sums the failing resources across every account.
func (r CheckResult) NumberOfResourcesFailing() int {
	n := 0
	for _, resources := range r.ResourcesFailingByAccount {
		n += len(resources)
	}
	return n
}

// Failed reports whether any account has at least one failing resource.
func (r CheckResult) Failed() bool { return r.NumberOfResourcesFailing() > 0 }

// CheckCollectionResult is one node of a benchmark's result tree, mirroring
// the shape of the CheckCollection it was evaluated from.
type CheckCollectionResult struct {
	Collection CheckCollection
	Checks     []CheckResult
	Children   []CheckCollectionResult
}

// Failed reports whether any check in this subtree failed.
func (c CheckCollectionResult) Failed() bool {
	for _, check := range c.Checks {
		if check.Failed() {
			return true
		}
	}
	for _, child := range c.Children {
		if child.Failed() {
			return true
		}
	}
	return false
}

// filterResult keeps only failing checks/children when onlyFailed is set,
// mirroring filter_result(filter_failed=True) in the original model.
func (c CheckCollectionResult) filterResult(onlyFailed bool) CheckCollectionResult {
	if !onlyFailed {
		return c
	}
	filtered := CheckCollectionResult{Collection: c.Collection}
	for _, check := range c.Checks {
		if check.Failed() {
			filtered.Checks = append(filtered.Checks, check)
		}
	}
	for _, child := range c.Children {
		fc := child.filterResult(true)
		if fc.Failed() {
			filtered.Children = append(filtered.Children, fc)
		}
	}
	return filtered
}

// PassingFailingChecksForAccount splits every check in this subtree into
// those that passed and those that failed for account.
func (c CheckCollectionResult) PassingFailingChecksForAccount(account string) (passing, failing []ReportCheck) {
	for _, check := range c.Checks {
		if len(check.ResourcesFailingByAccount[account]) > 0 {
			failing = append(failing, check.Check)
		} else {
			passing = append(passing, check.Check)
		}
	}
	for _, child := range c.Children {
		p, f := child.PassingFailingChecksForAccount(account)
		passing = append(passing, p...)
		failing = append(failing, f...)
	}
	return passing, failing
}

func (c CheckCollectionResult) countByAccount() map[string]int {
	counts := map[string]int{}
	for _, check := range c.Checks {
		for account, resources := range check.ResourcesFailingByAccount {
			counts[account] += len(resources)
		}
	}
	for _, child := range c.Children {
		for account, n := range child.countByAccount() {
			counts[account] += n
		}
	}
	return counts
}

// BenchmarkResult is the outcome of running every check in a Benchmark.
type BenchmarkResult struct {
	Benchmark Benchmark
	Children  []CheckCollectionResult
}

// Failed reports whether any check in the benchmark failed.
func (b BenchmarkResult) Failed() bool {
	for _, child := range b.Children {
		if child.Failed() {
			return true
		}
	}
	return false
}

// FilterResult keeps only failing checks/collections when onlyFailed is set,
// mirroring CheckContext.OnlyFailed applied at the top of a benchmark run.
func (b BenchmarkResult) FilterResult(onlyFailed bool) BenchmarkResult {
	if !onlyFailed {
		return b
	}
	filtered := BenchmarkResult{Benchmark: b.Benchmark}
	for _, child := range b.Children {
		fc := child.filterResult(true)
		if fc.Failed() {
			filtered.Children = append(filtered.Children, fc)
		}
	}
	return filtered
}

// PassingFailingChecksForAccount splits every check in the benchmark into
// those that passed and those that failed for account.
func (b BenchmarkResult) PassingFailingChecksForAccount(account string) (passing, failing []ReportCheck) {
	for _, child := range b.Children {
		p, f := child.PassingFailingChecksForAccount(account)
		passing = append(passing, p...)
		failing = append(failing, f...)
	}
	return passing, failing
}

// CountByAccount sums failing resources per account across the whole
// benchmark.
func (b BenchmarkResult) CountByAccount() map[string]int {
	counts := map[string]int{}
	for _, child := range b.Children {
		for account, n := range child.countByAccount() {
			counts[account] += n
		}
	}
	return counts
}
