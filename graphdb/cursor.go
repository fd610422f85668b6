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

package graphdb

import (
	"context"

	"github.com/nburtsev/resoto/query"
)

// Cursor iterates the rows of a SearchList result. Next returns (nil, false,
// nil) once exhausted.
type Cursor interface {
	Next(ctx context.Context) (map[string]interface{}, bool, error)
	Count() (int, bool)
	Close() error
}

// WithCursor acquires a cursor for q, runs fn against it, and releases it
// regardless of how fn returns, mirroring the teacher's scoped-resource
// helpers in sql/ (e.g. iter.RowIterToRows's defer-close idiom).
func WithCursor(ctx context.Context, handle Handle, q *query.Query, model Model, fn func(Cursor) error) error {
	cursor, err := handle.SearchList(ctx, q, model)
	if err != nil {
		return err
	}
	defer cursor.Close()

	return fn(cursor)
}
