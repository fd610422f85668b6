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
	"fmt"
)

// Stmt is a prepared statement.
type Stmt struct {
	conn     *Conn
	queryStr string
}

// Close does nothing.
func (s *Stmt) Close() error {
	return nil
}

// NumInput returns the number of placeholder parameters.
//
// Template variables are named and optional, so the statement cannot know
// its placeholder count up front; -1 tells the sql package to skip the
// argument count sanity check.
func (s *Stmt) NumInput() int {
	return -1
}

// Exec runs the search and reports how many resources matched.
func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	env, err := valuesToEnv(args)
	if err != nil {
		return nil, err
	}
	return s.exec(context.Background(), env)
}

// Query runs the search and returns its resource rows.
func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	env, err := valuesToEnv(args)
	if err != nil {
		return nil, err
	}
	return s.query(context.Background(), env)
}

// ExecContext runs the search and reports how many resources matched.
func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	env, err := namedValuesToEnv(args)
	if err != nil {
		return nil, err
	}
	return s.exec(ctx, env)
}

// QueryContext runs the search and returns its resource rows.
func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	env, err := namedValuesToEnv(args)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, env)
}

func (s *Stmt) exec(ctx context.Context, env map[string]interface{}) (driver.Result, error) {
	cursor, err := s.conn.host.engine.Search(ctx, s.conn.session, s.queryStr, env)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var matched int64
	for {
		_, ok, err := cursor.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &Result{matched: matched}, nil
		}
		matched++
	}
}

func (s *Stmt) query(ctx context.Context, env map[string]interface{}) (driver.Rows, error) {
	cursor, err := s.conn.host.engine.Search(ctx, s.conn.session, s.queryStr, env)
	if err != nil {
		return nil, err
	}

	return &Rows{options: s.conn.options, ctx: ctx, cursor: cursor}, nil
}

// valuesToEnv binds positional arguments as arg1..argN template variables.
func valuesToEnv(args []driver.Value) (map[string]interface{}, error) {
	if len(args) == 0 {
		return nil, nil
	}
	env := make(map[string]interface{}, len(args))
	for i, arg := range args {
		env[fmt.Sprintf("arg%d", i+1)] = arg
	}
	return env, nil
}

// namedValuesToEnv binds named arguments as template variables; positional
// ones fall back to argN names.
func namedValuesToEnv(args []driver.NamedValue) (map[string]interface{}, error) {
	if len(args) == 0 {
		return nil, nil
	}
	env := make(map[string]interface{}, len(args))
	for _, arg := range args {
		name := arg.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", arg.Ordinal)
		}
		env[name] = arg.Value
	}
	return env, nil
}
