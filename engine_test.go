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

package resoto_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	resoto "github.com/nburtsev/resoto"
	"github.com/nburtsev/resoto/auth"
	"github.com/nburtsev/resoto/eventbus"
	"github.com/nburtsev/resoto/graphdb"
	"github.com/nburtsev/resoto/parse"
	"github.com/nburtsev/resoto/report"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal in-memory report.ConfigStore.
type memStore struct {
	mu   sync.Mutex
	docs map[string]map[string]interface{}
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]map[string]interface{}{}}
}

func (s *memStore) GetConfig(ctx context.Context, id string) (map[string]interface{}, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	return doc, ok, nil
}

func (s *memStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memStore) Update(ctx context.Context, id string, doc map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = doc
	return nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func publicInstanceCheckDoc() map[string]interface{} {
	return map[string]interface{}{
		"report_check": []interface{}{
			map[string]interface{}{
				"id":           "instance_is_public",
				"provider":     "aws",
				"service":      "ec2",
				"title":        "Instance is public",
				"risk":         "Public instances are reachable from the internet.",
				"severity":     "high",
				"result_kinds": []interface{}{"aws_instance"},
				"detect": map[string]interface{}{
					"resoto": "is(aws_instance) and public==true",
				},
				"remediation": map[string]interface{}{
					"text": "Remove the public IP.",
					"url":  "https://example.com",
				},
			},
		},
	}
}

func publicInstanceBenchmarkDoc() map[string]interface{} {
	return map[string]interface{}{
		"report_benchmark": map[string]interface{}{
			"id":    "instance_bench",
			"title": "Instance hardening",
			"children": []interface{}{
				map[string]interface{}{
					"id":     "network",
					"title":  "Network exposure",
					"checks": []interface{}{"instance_is_public"},
				},
			},
		},
	}
}

func instanceGraph() *graphdb.MemoryHandle {
	h := graphdb.NewMemoryHandle()
	h.AddNode("acct1", "account", map[string]interface{}{
		"reported": map[string]interface{}{"id": "acct1", "cloud": "aws"},
	})
	h.AddNode("inst1", "aws_instance", map[string]interface{}{
		"reported":  map[string]interface{}{"id": "inst1", "public": true},
		"ancestors": map[string]interface{}{"account": map[string]interface{}{"reported": map[string]interface{}{"id": "acct1"}}},
	})
	h.AddNode("inst2", "aws_instance", map[string]interface{}{
		"reported":  map[string]interface{}{"id": "inst2", "public": false},
		"ancestors": map[string]interface{}{"account": map[string]interface{}{"reported": map[string]interface{}{"id": "acct1"}}},
	})
	h.AddEdge("acct1", "inst1", "default")
	h.AddEdge("acct1", "inst2", "default")
	return h
}

func newTestEngine(cfg *resoto.Config) *resoto.Engine {
	store := newMemStore()
	store.docs["report_check/instance_is_public"] = publicInstanceCheckDoc()
	store.docs["report_benchmark/instance_bench"] = publicInstanceBenchmarkDoc()
	return resoto.New(instanceGraph(), store, parse.Expander{}, nil, cfg)
}

func TestEngineSessionIDsIncrement(t *testing.T) {
	req := require.New(t)

	e := newTestEngine(nil)
	s1 := e.NewSession("root", "")
	s2 := e.NewSession("root", "")
	req.NotEqual(s1.ID, s2.ID)
}

func TestEngineAuthenticate(t *testing.T) {
	req := require.New(t)

	e := newTestEngine(&resoto.Config{Auth: auth.NewNativeSingle("root", "secret", auth.AllPermissions)})

	s, err := e.Authenticate("root", "secret", "127.0.0.1")
	req.NoError(err)
	req.Equal("root", s.User)

	_, err = e.Authenticate("root", "wrong", "127.0.0.1")
	req.Error(err)
	req.True(auth.ErrNotAuthorized.Is(err))
}

func TestEnginePerformBenchmarksEndToEnd(t *testing.T) {
	req := require.New(t)

	e := newTestEngine(nil)
	s := e.NewSession("anyone", "")

	results, err := e.PerformBenchmarks(context.Background(), s, []string{"instance_bench"}, report.NewCheckContext(), false, "")
	req.NoError(err)
	req.Len(results, 1)
	req.True(results[0].Failed())

	passing, failing := results[0].PassingFailingChecksForAccount("acct1")
	req.Empty(passing)
	req.Len(failing, 1)
	req.Equal("instance_is_public", failing[0].Id)
}

func TestEngineSyncRequiresWritePermission(t *testing.T) {
	req := require.New(t)

	e := newTestEngine(&resoto.Config{Auth: auth.NewNativeSingle("viewer", "", auth.ReadPerm)})
	s := e.NewSession("viewer", "")

	_, err := e.PerformBenchmarks(context.Background(), s, []string{"instance_bench"}, report.NewCheckContext(), true, "")
	req.Error(err)
	req.True(auth.ErrNotAuthorized.Is(err))

	// without sync, read permission is enough
	_, err = e.PerformBenchmarks(context.Background(), s, []string{"instance_bench"}, report.NewCheckContext(), false, "")
	req.NoError(err)
}

func TestEngineRejectsUnknownUser(t *testing.T) {
	req := require.New(t)

	e := newTestEngine(&resoto.Config{Auth: auth.NewNativeSingle("root", "", auth.AllPermissions)})
	s := e.NewSession("stranger", "")

	_, err := e.ListChecks(context.Background(), s, report.ChecksFilter{})
	req.Error(err)
	req.True(auth.ErrNotAuthorized.Is(err))
}

func TestEngineDeleteBenchmarkConfig(t *testing.T) {
	req := require.New(t)

	e := newTestEngine(&resoto.Config{Auth: auth.NewNativeSingle("root", "", auth.AllPermissions)})
	s := e.NewSession("root", "")

	// predefined benchmarks cannot be deleted
	err := e.DeleteBenchmarkConfig(context.Background(), s, "report_benchmark/cis_foundations")
	req.Error(err)
	req.True(report.ErrDenied.Is(err))

	// user-defined ones can
	req.NoError(e.DeleteBenchmarkConfig(context.Background(), s, "report_benchmark/instance_bench"))

	benchmarks, err := e.ListBenchmarks(context.Background(), s)
	req.NoError(err)
	for _, b := range benchmarks {
		req.NotEqual("instance_bench", b.Id)
	}
}

func TestEngineDispatchesBenchmarkEvents(t *testing.T) {
	req := require.New(t)

	e := newTestEngine(nil)
	s := e.NewSession("anyone", "")

	var mu sync.Mutex
	var seen []eventbus.EventType
	record := func(ev eventbus.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.Type)
	}
	e.Bus.AddListener(eventbus.BenchmarksBegin, record, true, time.Second)
	e.Bus.AddListener(eventbus.BenchmarksFinish, record, true, time.Second)

	_, err := e.PerformBenchmarks(context.Background(), s, []string{"instance_bench"}, report.NewCheckContext(), false, "")
	req.NoError(err)

	mu.Lock()
	defer mu.Unlock()
	req.Equal([]eventbus.EventType{eventbus.BenchmarksBegin, eventbus.BenchmarksFinish}, seen)
}

func TestEngineListFailingResources(t *testing.T) {
	req := require.New(t)

	e := newTestEngine(nil)
	s := e.NewSession("anyone", "")

	rows, err := e.ListFailingResources(context.Background(), s, "instance_is_public", report.NewCheckContext())
	req.NoError(err)
	req.Len(rows, 1)

	rows, err = e.ListFailingResources(context.Background(), s, "instance_is_public", report.CheckContext{Accounts: []string{"n/a"}})
	req.NoError(err)
	req.Empty(rows)
}
