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
	"database/sql/driver"
	"strings"

	"github.com/nburtsev/resoto/auth"
	"github.com/nburtsev/resoto/parse"
)

// Conn is a connection to an engine.
type Conn struct {
	options Options
	host    *engineHost
	session auth.Session
}

// Prepare validates the search text and returns a statement. Text that
// still carries template variables can only be validated once the
// variables are bound, at query time.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	if !strings.Contains(query, "{{") {
		if _, err := parse.ParseQueryString(query); err != nil {
			return nil, err
		}
	}

	return &Stmt{c, query}, nil
}

// Close does nothing.
func (c *Conn) Close() error {
	return nil
}

// Begin returns a fake transaction.
func (c *Conn) Begin() (driver.Tx, error) {
	return fakeTransaction{}, nil
}

type fakeTransaction struct{}

func (fakeTransaction) Commit() error   { return nil }
func (fakeTransaction) Rollback() error { return nil }
