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

import "errors"

// Result is the outcome of an executed search: how many resources matched.
type Result struct {
	matched int64
}

// LastInsertId is not supported; searches never insert.
func (r *Result) LastInsertId() (int64, error) {
	return 0, errors.New("no LastInsertId available after search")
}

// RowsAffected returns the number of matching resources.
func (r *Result) RowsAffected() (int64, error) {
	return r.matched, nil
}
