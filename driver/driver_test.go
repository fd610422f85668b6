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

package driver_test

import (
	"database/sql"
	"testing"
	"time"

	resoto "github.com/nburtsev/resoto"
	"github.com/nburtsev/resoto/driver"
	"github.com/nburtsev/resoto/graphdb"
	"github.com/stretchr/testify/require"
)

// fixtureProvider resolves every data source name to the same engine.
type fixtureProvider struct {
	engine *resoto.Engine
}

func (p *fixtureProvider) Resolve(name string) (string, *resoto.Engine, error) {
	return "fixture", p.engine, nil
}

func fixtureGraph() *graphdb.MemoryHandle {
	h := graphdb.NewMemoryHandle()
	h.AddNode("acct1", "account", map[string]interface{}{
		"reported": map[string]interface{}{"id": "acct1"},
	})
	h.AddNode("inst1", "aws_instance", map[string]interface{}{
		"reported": map[string]interface{}{
			"id":     "i-1",
			"name":   "web",
			"public": true,
			"cores":  4,
			"ctime":  "2023-01-01T00:00:00Z",
			"tags":   map[string]interface{}{"env": "prod"},
		},
		"ancestors": map[string]interface{}{"account": map[string]interface{}{"reported": map[string]interface{}{"id": "acct1"}}},
	})
	h.AddNode("inst2", "aws_instance", map[string]interface{}{
		"reported": map[string]interface{}{
			"id":     "i-2",
			"name":   "db",
			"public": false,
			"cores":  8,
		},
		"ancestors": map[string]interface{}{"account": map[string]interface{}{"reported": map[string]interface{}{"id": "acct1"}}},
	})
	return h
}

func openFixtureDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()

	engine := resoto.NewDefault(fixtureGraph(), nil)
	drv := driver.New(&fixtureProvider{engine: engine}, driver.Options{Tags: driver.ScanAsString})
	connector, err := drv.OpenConnector(dsn)
	require.NoError(t, err)

	db := sql.OpenDB(connector)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestQueryProjectsResourceRows(t *testing.T) {
	req := require.New(t)

	db := openFixtureDB(t, "resoto://tester@fixture/")

	rows, err := db.Query(`is(aws_instance) and public == true`)
	req.NoError(err)
	defer rows.Close()

	cols, err := rows.Columns()
	req.NoError(err)
	req.Equal([]string{
		"node_id", "id", "name", "kind",
		"cloud", "account", "region", "zone",
		"tags", "ctime", "atime", "mtime",
	}, cols)

	req.True(rows.Next())
	var nodeID, id, name, kind string
	var cloud, account, region, zone sql.NullString
	var tags sql.NullString
	var ctime, atime, mtime interface{}
	req.NoError(rows.Scan(&nodeID, &id, &name, &kind,
		&cloud, &account, &region, &zone,
		&tags, &ctime, &atime, &mtime))

	req.Equal("inst1", nodeID)
	req.Equal("i-1", id)
	req.Equal("web", name)
	req.Equal("aws_instance", kind)
	req.Equal("acct1", account.String)
	req.JSONEq(`{"env": "prod"}`, tags.String)
	req.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), ctime)

	req.False(rows.Next())
	req.NoError(rows.Err())
}

func TestQueryBindsNamedTemplateVariables(t *testing.T) {
	req := require.New(t)

	db := openFixtureDB(t, "resoto://tester@fixture/")

	rows, err := db.Query(`is(aws_instance) and cores > {{min_cores}}`, sql.Named("min_cores", 5))
	req.NoError(err)
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var nodeID string
		rest := make([]interface{}, 11)
		ptrs := []interface{}{&nodeID}
		for i := range rest {
			ptrs = append(ptrs, &rest[i])
		}
		req.NoError(rows.Scan(ptrs...))
		ids = append(ids, nodeID)
	}
	req.NoError(rows.Err())
	req.Equal([]string{"inst2"}, ids)
}

func TestExecReportsMatchedResources(t *testing.T) {
	req := require.New(t)

	db := openFixtureDB(t, "resoto://tester@fixture/")

	result, err := db.Exec(`is(aws_instance)`)
	req.NoError(err)
	matched, err := result.RowsAffected()
	req.NoError(err)
	req.Equal(int64(2), matched)
}

func TestPrepareRejectsMalformedSearch(t *testing.T) {
	req := require.New(t)

	db := openFixtureDB(t, "resoto://tester@fixture/")

	_, err := db.Prepare(`is(`)
	req.Error(err)
}

func TestOpenConnectorRejectsBadTagsOption(t *testing.T) {
	req := require.New(t)

	engine := resoto.NewDefault(fixtureGraph(), nil)
	drv := driver.New(&fixtureProvider{engine: engine}, driver.Options{})
	_, err := drv.OpenConnector("resoto://fixture/?tagsAs=nonsense")
	req.Error(err)
}
