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

// Package resoto wires the posture evaluation core together: the benchmark
// inspector, its graph-db handle, the search-text expander, authentication
// and the process event bus, behind one Engine type embedders construct
// once and share.
package resoto

import (
	"context"
	"sync/atomic"
	"time"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/nburtsev/resoto/auth"
	"github.com/nburtsev/resoto/eventbus"
	"github.com/nburtsev/resoto/graphdb"
	"github.com/nburtsev/resoto/parse"
	"github.com/nburtsev/resoto/report"
)

// Config for the engine.
type Config struct {
	// Auth gates every engine operation. Nil means auth.None.
	Auth auth.Auth
	// Model names the graph model queries run against.
	Model graphdb.Model
	// ParallelChecks caps concurrent check evaluations per run when the
	// caller's CheckContext leaves it unset.
	ParallelChecks int
}

// Engine is the public face of the evaluation core. All operations go
// through it: it authorizes the session, traces the call, runs it on the
// inspector, and announces begin/finish on the event bus.
type Engine struct {
	Inspector *report.Inspector
	Handle    graphdb.Handle
	Bus       *eventbus.Bus
	Auth      auth.Auth

	parallelChecks int
	sessionID      uint32
}

// New creates an engine with the given collaborators and configuration.
// expander and cli may be nil when no resoto / resoto_cmd detections will
// be evaluated.
func New(handle graphdb.Handle, store report.ConfigStore, expander report.TemplateExpander, cli report.CLIEvaluator, cfg *Config) *Engine {
	if cfg == nil {
		cfg = &Config{}
	}
	a := cfg.Auth
	if a == nil {
		a = new(auth.None)
	}
	model := cfg.Model
	if model == "" {
		model = graphdb.Model("resoto")
	}

	return &Engine{
		Inspector:      report.NewInspector(handle, store, expander, cli, model),
		Handle:         handle,
		Bus:            eventbus.New(),
		Auth:           a,
		parallelChecks: cfg.ParallelChecks,
	}
}

// NewDefault creates an engine with the built-in search-text expander and
// no authentication.
func NewDefault(handle graphdb.Handle, store report.ConfigStore) *Engine {
	return New(handle, store, parse.Expander{}, nil, nil)
}

// Authenticate verifies credentials and opens a session for them.
func (e *Engine) Authenticate(user, password, address string) (auth.Session, error) {
	if err := e.Auth.Verify(user, password); err != nil {
		return auth.Session{}, err
	}
	return e.NewSession(user, address), nil
}

// NewSession opens a session without checking credentials, for embedders
// that authenticate by other means.
func (e *Engine) NewSession(user, address string) auth.Session {
	return auth.Session{
		User:    user,
		Address: address,
		ID:      atomic.AddUint32(&e.sessionID, 1),
	}
}

// PerformBenchmarks evaluates the named benchmarks from scratch. Syncing
// the security section writes to the graph and therefore needs write
// permission on top of read.
func (e *Engine) PerformBenchmarks(ctx context.Context, s auth.Session, names []string, checkCtx report.CheckContext, syncSecuritySection bool, runID string) ([]report.BenchmarkResult, error) {
	perm := auth.ReadPerm
	if syncSecuritySection {
		perm |= auth.WritePerm
	}
	if err := e.Auth.Allowed(s, perm); err != nil {
		return nil, err
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.perform_benchmarks")
	defer span.Finish()

	start := time.Now()
	e.Bus.Dispatch(eventbus.Event{Type: eventbus.BenchmarksBegin, Data: names}, false)
	results, err := e.Inspector.PerformBenchmarks(ctx, names, e.checkContext(checkCtx), syncSecuritySection, runID)
	e.Bus.Dispatch(eventbus.Event{Type: eventbus.BenchmarksFinish, Data: names}, false)
	e.audit(s, "perform_benchmarks", start, err)

	return results, err
}

// LoadBenchmarks rebuilds result trees from security issues already
// materialized on the graph, without re-running detections.
func (e *Engine) LoadBenchmarks(ctx context.Context, s auth.Session, names []string, checkCtx report.CheckContext) ([]report.BenchmarkResult, error) {
	if err := e.Auth.Allowed(s, auth.ReadPerm); err != nil {
		return nil, err
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.load_benchmarks")
	defer span.Finish()

	start := time.Now()
	results, err := e.Inspector.LoadBenchmarks(ctx, names, e.checkContext(checkCtx))
	e.audit(s, "load_benchmarks", start, err)

	return results, err
}

// PerformChecks evaluates an ad-hoc benchmark assembled from filter.
func (e *Engine) PerformChecks(ctx context.Context, s auth.Session, filter report.ChecksFilter, checkCtx report.CheckContext) (report.BenchmarkResult, error) {
	if err := e.Auth.Allowed(s, auth.ReadPerm); err != nil {
		return report.BenchmarkResult{}, err
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.perform_checks")
	defer span.Finish()

	start := time.Now()
	e.Bus.Dispatch(eventbus.Event{Type: eventbus.ChecksBegin, Data: filter}, false)
	result, err := e.Inspector.PerformChecks(ctx, filter, e.checkContext(checkCtx))
	e.Bus.Dispatch(eventbus.Event{Type: eventbus.ChecksFinish, Data: filter}, false)
	e.audit(s, "perform_checks", start, err)

	return result, err
}

// ListChecks returns every check matching filter.
func (e *Engine) ListChecks(ctx context.Context, s auth.Session, filter report.ChecksFilter) ([]report.ReportCheck, error) {
	if err := e.Auth.Allowed(s, auth.ReadPerm); err != nil {
		return nil, err
	}

	start := time.Now()
	checks, err := e.Inspector.ListChecks(ctx, filter)
	e.audit(s, "list_checks", start, err)

	return checks, err
}

// ListBenchmarks returns every known benchmark, predefined and
// user-defined.
func (e *Engine) ListBenchmarks(ctx context.Context, s auth.Session) ([]report.Benchmark, error) {
	if err := e.Auth.Allowed(s, auth.ReadPerm); err != nil {
		return nil, err
	}

	start := time.Now()
	benchmarks, err := e.Inspector.ListBenchmarks(ctx)
	e.audit(s, "list_benchmarks", start, err)

	return benchmarks, err
}

// ListFailingResources streams the raw rows failing a single check.
func (e *Engine) ListFailingResources(ctx context.Context, s auth.Session, checkID string, checkCtx report.CheckContext) ([]map[string]interface{}, error) {
	if err := e.Auth.Allowed(s, auth.ReadPerm); err != nil {
		return nil, err
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.list_failing_resources")
	defer span.Finish()

	start := time.Now()
	rows, err := e.Inspector.ListFailingResources(ctx, checkID, e.checkContext(checkCtx))
	e.audit(s, "list_failing_resources", start, err)

	return rows, err
}

// Search parses search text against the reported section and returns a
// cursor over the matching rows. The caller owns the cursor and must close
// it.
func (e *Engine) Search(ctx context.Context, s auth.Session, search string, env map[string]interface{}) (graphdb.Cursor, error) {
	if err := e.Auth.Allowed(s, auth.ReadPerm); err != nil {
		return nil, err
	}
	if e.Inspector.Expander == nil {
		return nil, report.ErrInternal.New("no template expander configured")
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.search")
	defer span.Finish()

	q, err := e.Inspector.Expander.ParseQuery(ctx, search, "reported", env)
	if err != nil {
		return nil, err
	}
	return e.Handle.SearchList(ctx, q, e.Inspector.Model)
}

// UpdateBenchmarkConfig stores a user-defined benchmark document.
func (e *Engine) UpdateBenchmarkConfig(ctx context.Context, s auth.Session, cfgID string, doc map[string]interface{}) error {
	if err := e.Auth.Allowed(s, auth.WritePerm); err != nil {
		return err
	}

	start := time.Now()
	err := e.Inspector.UpdateBenchmarkConfig(ctx, cfgID, doc)
	e.audit(s, "update_benchmark_config", start, err)

	return err
}

// DeleteBenchmarkConfig removes a user-defined benchmark document.
func (e *Engine) DeleteBenchmarkConfig(ctx context.Context, s auth.Session, cfgID string) error {
	if err := e.Auth.Allowed(s, auth.WritePerm); err != nil {
		return err
	}

	start := time.Now()
	err := e.Inspector.DeleteBenchmarkConfig(ctx, cfgID)
	e.audit(s, "delete_benchmark_config", start, err)

	return err
}

// checkContext fills the engine-wide parallelism default into a caller's
// CheckContext when it left the field unset.
func (e *Engine) checkContext(checkCtx report.CheckContext) report.CheckContext {
	if checkCtx.ParallelChecks == 0 && e.parallelChecks > 0 {
		checkCtx.ParallelChecks = e.parallelChecks
	}
	return checkCtx
}

func (e *Engine) audit(s auth.Session, op string, start time.Time, err error) {
	if a, ok := e.Auth.(*auth.Audit); ok {
		a.Operation(s, op, time.Since(start), err)
	}
}
