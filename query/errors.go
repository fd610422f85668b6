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

package query

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrParse is returned for malformed term records, malformed ancestor/
	// descendant names, and any other text the parser cannot turn into a Term.
	ErrParse = errors.NewKind("parse error: %s")

	// ErrInternal signals a bug: a rewriter reached a branch that the algebra
	// guarantees is unreachable.
	ErrInternal = errors.NewKind("internal error: %s")
)
