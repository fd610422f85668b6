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

package driver

import (
	"context"
	"database/sql/driver"
	"io"

	"github.com/nburtsev/resoto/graphdb"
	"github.com/nburtsev/resoto/report"
)

// columns is the fixed projection every search row is bent into, matching
// the resource-data extractor's output keys.
var columns = []string{
	"node_id", "id", "name", "kind",
	"cloud", "account", "region", "zone",
	"tags", "ctime", "atime", "mtime",
}

// Rows is an iterator over an executed search's results.
type Rows struct {
	options Options
	ctx     context.Context
	cursor  graphdb.Cursor
}

// Columns returns the names of the columns.
func (r *Rows) Columns() []string {
	return columns
}

// Close closes the underlying cursor.
func (r *Rows) Close() error {
	return r.cursor.Close()
}

// Next is called to populate the next row of data into
// the provided slice. The provided slice will be the same
// size as the Columns() are wide.
//
// Next returns io.EOF when there are no more rows.
func (r *Rows) Next(dest []driver.Value) error {
	row, ok, err := r.cursor.Next(r.ctx)
	if err != nil {
		return err
	}
	if !ok {
		return io.EOF
	}

	p := report.ProjectResource(row)
	dest[0] = p.NodeID
	dest[1] = p.ID
	dest[2] = p.Name
	dest[3] = p.Kind
	dest[4] = p.Cloud
	dest[5] = p.Account
	dest[6] = p.Region
	dest[7] = p.Zone
	dest[8] = convertTags(p.Tags, r.options.Tags)
	dest[9] = convertTime(p.CTime)
	dest[10] = convertTime(p.ATime)
	dest[11] = convertTime(p.MTime)
	return nil
}
