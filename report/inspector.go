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
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v3"

	"github.com/nburtsev/resoto/graphdb"
	"github.com/nburtsev/resoto/internal/similartext"
	"github.com/nburtsev/resoto/query"
)

// TemplateExpander turns a check's detect.resoto search string into a
// query.Query, bound to the variable environment a check's Environment
// produces. onSection names the section the search is relative to
// ("reported" for every detection in this model).
type TemplateExpander interface {
	ParseQuery(ctx context.Context, source string, onSection string, env map[string]interface{}) (*query.Query, error)
}

// CLIEvaluator runs or validates a detect.resoto_cmd command string against
// the graph. Execute streams result rows; Evaluate only checks that cmd
// parses, used by ValidateCheck.
type CLIEvaluator interface {
	Execute(ctx context.Context, cmd string, env map[string]interface{}) ([]map[string]interface{}, error)
	Evaluate(ctx context.Context, cmd string, env map[string]interface{}) error
}

// Inspector is the benchmark/check scheduler: it resolves benchmarks and
// checks (predefined plus user-defined, user-defined winning by id),
// evaluates detections against a graphdb.Handle with bounded parallelism,
// and assembles/materializes results.
type Inspector struct {
	Handle   graphdb.Handle
	Config   ConfigStore
	Expander TemplateExpander
	CLI      CLIEvaluator
	Model    graphdb.Model
	log      *logrus.Entry
}

// NewInspector wires an Inspector from its four collaborators.
func NewInspector(handle graphdb.Handle, config ConfigStore, expander TemplateExpander, cli CLIEvaluator, model graphdb.Model) *Inspector {
	return &Inspector{
		Handle:   handle,
		Config:   config,
		Expander: expander,
		CLI:      cli,
		Model:    model,
		log:      logrus.WithField("component", "inspector"),
	}
}

// ReportConfig reads the user-editable report configuration document,
// returning a safe zero value (nothing ignored, no overrides) on any read
// error rather than failing the caller.
func (i *Inspector) ReportConfig(ctx context.Context) ReportConfig {
	if i.Config == nil {
		return ReportConfig{}
	}
	doc, found, err := i.Config.GetConfig(ctx, ReportConfigRoot)
	if err != nil || !found {
		return ReportConfig{}
	}
	cfg := ReportConfig{}
	if ignore, ok := doc["ignore_checks"].([]interface{}); ok {
		for _, v := range ignore {
			if s, ok := v.(string); ok {
				cfg.IgnoreChecks = append(cfg.IgnoreChecks, s)
			}
		}
	}
	if overrides, ok := doc["override_values"].(map[string]interface{}); ok {
		cfg.OverrideValues = map[string]map[string]interface{}{}
		for id, v := range overrides {
			if m, ok := v.(map[string]interface{}); ok {
				cfg.OverrideValues[id] = m
			}
		}
	}
	return cfg
}

// FilterChecks merges predefined and user-defined checks (user-defined
// wins by id) and returns those matching predicate, mirroring filter_checks
// in the original model.
func (i *Inspector) FilterChecks(ctx context.Context, predicate func(ReportCheck) bool) ([]ReportCheck, error) {
	all, err := i.allChecks(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var result []ReportCheck
	for _, id := range ids {
		check := all[id]
		if predicate == nil || predicate(check) {
			result = append(result, check)
		}
	}
	return result, nil
}

func (i *Inspector) allChecks(ctx context.Context) (map[string]ReportCheck, error) {
	merged, err := PredefinedChecks()
	if err != nil {
		return nil, err
	}
	combined := make(map[string]ReportCheck, len(merged))
	for id, check := range merged {
		combined[id] = check
	}
	if i.Config == nil {
		return combined, nil
	}
	ids, err := i.Config.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if !strings.HasPrefix(id, CheckConfigRoot+"/") {
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
		var raw struct {
			ReportCheck []checkYAML `yaml:"report_check"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			continue
		}
		for _, y := range raw.ReportCheck {
			check, err := convertCheck(y)
			if err != nil {
				continue
			}
			combined[check.Id] = check
		}
	}
	return combined, nil
}

// ChecksFilter narrows ListChecks/PerformChecks to a subset of checks.
type ChecksFilter struct {
	Provider     string
	Service      string
	Category     string
	Kind         string
	CheckIDs     []string
	IgnoreChecks []string
}

func (f ChecksFilter) matches(c ReportCheck) bool {
	if f.Provider != "" && c.Provider != f.Provider {
		return false
	}
	if f.Service != "" && c.Service != f.Service {
		return false
	}
	if f.Category != "" && !contains(c.Categories, f.Category) {
		return false
	}
	if f.Kind != "" && !contains(c.Kind, f.Kind) {
		return false
	}
	if len(f.CheckIDs) > 0 && !contains(f.CheckIDs, c.Id) {
		return false
	}
	if contains(f.IgnoreChecks, c.Id) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// ListChecks returns every check matching filter, predefined and
// user-defined combined, mirroring list_checks in the original model.
func (i *Inspector) ListChecks(ctx context.Context, filter ChecksFilter) ([]ReportCheck, error) {
	return i.FilterChecks(ctx, filter.matches)
}

// resolveBenchmarks resolves names to Benchmark objects, user-defined
// beating predefined by id.
func (i *Inspector) resolveBenchmarks(ctx context.Context, names []string) ([]Benchmark, error) {
	predefined, err := PredefinedBenchmarks()
	if err != nil {
		return nil, err
	}

	var resolved []Benchmark
	for _, name := range names {
		if i.Config != nil {
			if doc, found, err := i.Config.GetConfig(ctx, BenchmarkConfigRoot+"/"+name); err == nil && found {
				if data, err := yaml.Marshal(doc); err == nil {
					var parsed benchmarkDocument
					if err := yaml.Unmarshal(data, &parsed); err == nil && parsed.ReportBenchmark.ID == name {
						resolved = append(resolved, convertBenchmark(parsed.ReportBenchmark))
						continue
					}
				}
			}
		}
		benchmark, ok := predefined[name]
		if !ok {
			return nil, ErrNotFound.New("benchmark " + name + similartext.FindFromMap(predefined, name))
		}
		resolved = append(resolved, benchmark)
	}
	return resolved, nil
}

// PerformBenchmarks evaluates benchmarkNames from scratch against the
// graph (detect, stream, group by account), then assembles
// each benchmark's result tree and optionally materializes the findings
// back onto the graph (syncSecuritySection), defaulting runID to a fresh
// uuid when empty.
func (i *Inspector) PerformBenchmarks(ctx context.Context, benchmarkNames []string, checkCtx CheckContext, syncSecuritySection bool, runID string) ([]BenchmarkResult, error) {
	benchmarks, err := i.resolveBenchmarks(ctx, benchmarkNames)
	if err != nil {
		return nil, err
	}

	checkIDs := uniqueCheckIDs(benchmarks)
	reportConfig := i.ReportConfig(ctx)
	checks, err := i.selectChecks(ctx, checkIDs, checkCtx, reportConfig)
	if err != nil {
		return nil, err
	}

	resourcesByCheck := i.evaluateChecks(ctx, checks, checkCtx, reportConfig)

	byID := make(map[string]ReportCheck, len(checks))
	for _, c := range checks {
		byID[c.Id] = c
	}

	results := make([]BenchmarkResult, 0, len(benchmarks))
	for _, benchmark := range benchmarks {
		result := BuildBenchmarkResult(benchmark, byID, resourcesByCheck).FilterResult(checkCtx.OnlyFailed)
		results = append(results, result)
	}

	if syncSecuritySection {
		if err := i.syncSecuritySection(ctx, results, checkCtx, runID); err != nil {
			return results, err
		}
	}
	return results, nil
}

// LoadBenchmarks rebuilds the result tree for benchmarkNames directly from
// already-materialized security issues on the graph, without re-running any
// detection.
func (i *Inspector) LoadBenchmarks(ctx context.Context, benchmarkNames []string, checkCtx CheckContext) ([]BenchmarkResult, error) {
	benchmarks, err := i.resolveBenchmarks(ctx, benchmarkNames)
	if err != nil {
		return nil, err
	}
	checkIDs := uniqueCheckIDs(benchmarks)
	reportConfig := i.ReportConfig(ctx)

	all, err := i.allChecks(ctx)
	if err != nil {
		return nil, err
	}
	checksByID := map[string]ReportCheck{}
	for _, id := range checkIDs {
		if check, ok := all[id]; ok && reportConfig.CheckAllowed(id) && checkCtx.IncludesSeverity(check.Severity) {
			checksByID[id] = check
		}
	}

	q := withAccountsFilter(query.By(query.Pred("security.has_issues").Eq(true), nil), checkCtx.Accounts)

	resourcesByCheck := map[string]map[string][]ResourceProjection{}
	err = graphdb.WithCursor(ctx, i.Handle, q, i.Model, func(cursor graphdb.Cursor) error {
		for {
			row, ok, err := cursor.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			projection := ProjectResource(row)
			for _, checkID := range securityIssueCheckIDs(row, checksByID, benchmarkNames) {
				if resourcesByCheck[checkID] == nil {
					resourcesByCheck[checkID] = map[string][]ResourceProjection{}
				}
				resourcesByCheck[checkID][projection.Account] = append(resourcesByCheck[checkID][projection.Account], projection)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]BenchmarkResult, 0, len(benchmarks))
	for _, benchmark := range benchmarks {
		result := BuildBenchmarkResult(benchmark, checksByID, resourcesByCheck).FilterResult(checkCtx.OnlyFailed)
		results = append(results, result)
	}
	return results, nil
}

// securityIssueCheckIDs reads a row's already-materialized security.issues
// list and returns the check ids whose issue belongs to one of
// benchmarkNames and resolves against checksByID.
func securityIssueCheckIDs(row map[string]interface{}, checksByID map[string]ReportCheck, benchmarkNames []string) []string {
	security, _ := row["security"].(map[string]interface{})
	if security == nil {
		return nil
	}
	issues, _ := security["issues"].([]interface{})
	var ids []string
	for _, raw := range issues {
		issue, _ := raw.(map[string]interface{})
		if issue == nil {
			continue
		}
		check, _ := issue["check"].(string)
		if _, ok := checksByID[check]; !ok {
			continue
		}
		benchmarks, _ := issue["benchmarks"].([]interface{})
		for _, b := range benchmarks {
			name, _ := b.(string)
			if contains(benchmarkNames, name) {
				ids = append(ids, check)
				break
			}
		}
	}
	return ids
}

// PerformChecks runs an ad-hoc, unnamed benchmark assembled from filter
// rather than a stored one, auto-resolving the account list from the graph
// when checkCtx.Accounts is empty.
func (i *Inspector) PerformChecks(ctx context.Context, filter ChecksFilter, checkCtx CheckContext) (BenchmarkResult, error) {
	checks, err := i.ListChecks(ctx, filter)
	if err != nil {
		return BenchmarkResult{}, err
	}

	reportConfig := i.ReportConfig(ctx)
	var selected []ReportCheck
	for _, check := range checks {
		if reportConfig.CheckAllowed(check.Id) && checkCtx.IncludesSeverity(check.Severity) {
			selected = append(selected, check)
		}
	}

	if len(checkCtx.Accounts) == 0 {
		accounts, err := i.listAccounts(ctx, nil)
		if err != nil {
			return BenchmarkResult{}, err
		}
		checkCtx.Accounts = accounts
	}

	resourcesByCheck := i.evaluateChecks(ctx, selected, checkCtx, reportConfig)

	collection := CheckCollection{Id: "ad_hoc", Title: "Ad-hoc check selection"}
	for _, check := range selected {
		collection.Checks = append(collection.Checks, check.Id)
	}
	benchmark := Benchmark{Id: "ad_hoc", Title: "Ad-hoc check selection", Children: []CheckCollection{collection}}
	checksByID := map[string]ReportCheck{}
	for _, check := range selected {
		checksByID[check.Id] = check
	}
	return BuildBenchmarkResult(benchmark, checksByID, resourcesByCheck).FilterResult(checkCtx.OnlyFailed), nil
}

// listAccounts resolves every node of kind "account" within clouds (all
// clouds when empty), mirroring __list_accounts in the original model.
func (i *Inspector) listAccounts(ctx context.Context, clouds []string) ([]string, error) {
	term := query.OfKind("account")
	if len(clouds) > 0 {
		var values []interface{}
		for _, c := range clouds {
			values = append(values, c)
		}
		term = query.AndTerm(term, query.Pred("reported.cloud").IsIn(values))
	}
	q := query.By(term, nil)

	var accounts []string
	err := graphdb.WithCursor(ctx, i.Handle, q, i.Model, func(cursor graphdb.Cursor) error {
		for {
			row, ok, err := cursor.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			projection := ProjectResource(row)
			if projection.ID != "" {
				accounts = append(accounts, projection.ID)
			}
		}
		return nil
	})
	return accounts, err
}

// ListFailingResources returns the raw, unprojected rows failing a single
// check, the evaluation path one step of PerformBenchmarks' step 5 takes.
func (i *Inspector) ListFailingResources(ctx context.Context, checkID string, checkCtx CheckContext) ([]map[string]interface{}, error) {
	all, err := i.allChecks(ctx)
	if err != nil {
		return nil, err
	}
	check, ok := all[checkID]
	if !ok {
		return nil, ErrNotFound.New("check " + checkID + similartext.FindFromMap(all, checkID))
	}

	var rows []map[string]interface{}
	err = i.streamCheck(ctx, check, checkCtx, ReportConfig{}, func(row map[string]interface{}) {
		rows = append(rows, row)
	})
	return rows, err
}

func uniqueCheckIDs(benchmarks []Benchmark) []string {
	seen := map[string]bool{}
	var ids []string
	for _, b := range benchmarks {
		for _, id := range b.NestedCheckIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

func (i *Inspector) selectChecks(ctx context.Context, checkIDs []string, checkCtx CheckContext, reportConfig ReportConfig) ([]ReportCheck, error) {
	all, err := i.allChecks(ctx)
	if err != nil {
		return nil, err
	}
	var selected []ReportCheck
	for _, id := range checkIDs {
		check, ok := all[id]
		if !ok {
			continue
		}
		if !reportConfig.CheckAllowed(id) {
			continue
		}
		if checkCtx.Override != nil && checkCtx.Override.IgnoreChecks[id] {
			continue
		}
		if !checkCtx.IncludesSeverity(check.Severity) {
			continue
		}
		selected = append(selected, check)
	}
	return selected, nil
}

// evaluateChecks runs every check concurrently, bounded at
// checkCtx.effectiveParallelChecks in-flight, and folds the per-account
// failing-resource lists into an order-independent map.
func (i *Inspector) evaluateChecks(ctx context.Context, checks []ReportCheck, checkCtx CheckContext, reportConfig ReportConfig) map[string]map[string][]ResourceProjection {
	result := map[string]map[string][]ResourceProjection{}
	var mu sync.Mutex

	sem := semaphore.NewWeighted(int64(checkCtx.effectiveParallelChecks()))
	var wg sync.WaitGroup

	for _, check := range checks {
		check := check
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			byAccount := map[string][]ResourceProjection{}
			err := i.streamCheck(ctx, check, checkCtx, reportConfig, func(row map[string]interface{}) {
				projection := ProjectResource(row)
				byAccount[projection.Account] = append(byAccount[projection.Account], projection)
			})
			if err != nil {
				i.log.WithError(err).WithField("check", check.Id).Warn("check evaluation failed, demoting to empty result")
				byAccount = map[string][]ResourceProjection{}
			}

			mu.Lock()
			result[check.Id] = byAccount
			mu.Unlock()
		}()
	}
	wg.Wait()
	return result
}

// streamCheck dispatches a single check's detection (resoto, resoto_cmd, or
// manual) and streams every resulting row to emit.
func (i *Inspector) streamCheck(ctx context.Context, check ReportCheck, checkCtx CheckContext, reportConfig ReportConfig, emit func(map[string]interface{})) error {
	env := check.Environment(overridesFor(check.Id, checkCtx, reportConfig))

	if _, ok := check.Detect["manual"]; ok {
		return nil
	}

	if source, ok := check.Detect["resoto"]; ok {
		if i.Expander == nil {
			return errors.New("no template expander configured")
		}
		q, err := i.Expander.ParseQuery(ctx, source, "reported", env)
		if err != nil {
			return errors.Wrap(err, "parsing detect.resoto")
		}
		q = withAccountsFilter(q, checkCtx.Accounts)
		return graphdb.WithCursor(ctx, i.Handle, q, i.Model, func(cursor graphdb.Cursor) error {
			for {
				row, ok, err := cursor.Next(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				emit(row)
			}
		})
	}

	if cmd, ok := check.Detect["resoto_cmd"]; ok {
		if i.CLI == nil {
			return errors.New("no CLI evaluator configured")
		}
		if len(checkCtx.Accounts) > 0 {
			cmd = fmt.Sprintf("search /ancestors.account.reported.id in %s | %s", stringListRep(checkCtx.Accounts), cmd)
		}
		rows, err := i.CLI.Execute(ctx, cmd, env)
		if err != nil {
			return errors.Wrap(err, "executing detect.resoto_cmd")
		}
		for _, row := range rows {
			emit(row)
		}
		return nil
	}

	return ErrValidation.New("check " + check.Id + " has no resoto, resoto_cmd, or manual detection")
}

func overridesFor(checkID string, checkCtx CheckContext, reportConfig ReportConfig) map[string]interface{} {
	merged := map[string]interface{}{}
	for k, v := range reportConfig.OverrideValues[checkID] {
		merged[k] = v
	}
	if checkCtx.Override != nil {
		for k, v := range checkCtx.Override.DefaultValues[checkID] {
			merged[k] = v
		}
	}
	return merged
}

// withAccountsFilter restricts q to the given accounts by fusing the
// account predicate onto q's first executed part: traversals start only
// from resources owned by those accounts.
func withAccountsFilter(q *query.Query, accounts []string) *query.Query {
	if len(accounts) == 0 {
		return q
	}
	var values []interface{}
	for _, a := range accounts {
		values = append(values, a)
	}
	acctQuery := query.By(query.Pred("ancestors.account.reported.id").IsIn(values), nil)
	combined, err := acctQuery.Combine(q)
	if err != nil {
		return q
	}
	return combined
}

func stringListRep(values []string) string {
	quoted := make([]string, len(values))
	for idx, v := range values {
		quoted[idx] = fmt.Sprintf("%q", v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// syncSecuritySection streams every failing resource's issues back onto the
// graph, one materialization pass per run, run_id defaulting to a fresh
// uuid when unset.
func (i *Inspector) syncSecuritySection(ctx context.Context, results []BenchmarkResult, checkCtx CheckContext, runID string) error {
	if runID == "" {
		runID = uuid.NewV4().String()
	}
	byNode := nodeIssuesFromResults(results)
	return i.Handle.UpdateSecuritySection(ctx, runID, toNodeIssuesChannel(byNode), i.Model, checkCtx.Accounts)
}
