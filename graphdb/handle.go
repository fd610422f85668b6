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

// Package graphdb is the graph-db handle contract the report package is
// written against, plus an in-memory reference implementation used only by
// tests (graphdb/memory.go is this repo's analogue of the teacher's memory
// package for enginetest).
package graphdb

import (
	"context"

	"github.com/nburtsev/resoto/query"
)

// Model names the graph model a query runs against (e.g. "resoto"). The
// in-memory implementation ignores it; a real backend would use it to pick
// a collection/schema.
type Model string

// SearchOptions carries backend-specific tuning a Handle.SearchList caller
// can request; the in-memory implementation has none today.
type SearchOptions struct{}

// SearchOption mutates SearchOptions.
type SearchOption func(*SearchOptions)

// SecurityIssueRef is one finding attached to a node by UpdateSecuritySection.
// It is intentionally distinct from report.SecurityIssue: graphdb must not
// import report, since report already imports graphdb.
type SecurityIssueRef struct {
	Check      string
	Severity   int
	Benchmarks []string
}

// NodeIssues is one node's worth of findings, the unit streamed into
// UpdateSecuritySection.
type NodeIssues struct {
	NodeID string
	Issues []SecurityIssueRef
}

// Handle is the graph-db contract report.Inspector is written against.
type Handle interface {
	// SearchList runs q against model and returns a cursor over the
	// resulting rows.
	SearchList(ctx context.Context, q *query.Query, model Model, opts ...SearchOption) (Cursor, error)

	// UpdateSecuritySection materializes issues (keyed by node id) into
	// each node's security sub-document under runID, restricted to the
	// given accounts (all accounts when empty).
	UpdateSecuritySection(ctx context.Context, runID string, issues <-chan NodeIssues, model Model, accounts []string) error
}
