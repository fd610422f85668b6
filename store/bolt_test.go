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

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "configs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpdateThenGetConfig(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	s := openTestStore(t)
	doc := map[string]interface{}{
		"report_benchmark": map[string]interface{}{"id": "custom", "title": "Custom"},
	}
	req.NoError(s.Update(ctx, "report_benchmark/custom", doc))

	got, found, err := s.GetConfig(ctx, "report_benchmark/custom")
	req.NoError(err)
	req.True(found)
	req.Equal(doc, got)
}

func TestGetConfigMissing(t *testing.T) {
	req := require.New(t)

	s := openTestStore(t)
	_, found, err := s.GetConfig(context.Background(), "report_benchmark/ghost")
	req.NoError(err)
	req.False(found)
}

func TestListReturnsAllIDs(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	s := openTestStore(t)
	req.NoError(s.Update(ctx, "report_benchmark/a", map[string]interface{}{"x": "1"}))
	req.NoError(s.Update(ctx, "report_check/b", map[string]interface{}{"x": "2"}))

	ids, err := s.List(ctx)
	req.NoError(err)
	req.ElementsMatch([]string{"report_benchmark/a", "report_check/b"}, ids)
}

func TestDeleteRemovesDocument(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	s := openTestStore(t)
	req.NoError(s.Update(ctx, "report_benchmark/a", map[string]interface{}{"x": "1"}))
	req.NoError(s.Delete(ctx, "report_benchmark/a"))

	_, found, err := s.GetConfig(ctx, "report_benchmark/a")
	req.NoError(err)
	req.False(found)

	// deleting an absent id is a no-op
	req.NoError(s.Delete(ctx, "report_benchmark/a"))
}

func TestUpdateOverwrites(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	s := openTestStore(t)
	req.NoError(s.Update(ctx, "id", map[string]interface{}{"v": "old"}))
	req.NoError(s.Update(ctx, "id", map[string]interface{}{"v": "new"}))

	got, found, err := s.GetConfig(ctx, "id")
	req.NoError(err)
	req.True(found)
	req.Equal("new", got["v"])
}
