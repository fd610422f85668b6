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

// Package report implements the check/benchmark model, the inspector
// scheduler that evaluates checks against a graph, result assembly, and
// validation of user-supplied benchmark/check documents.
package report

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrValidation is returned when a benchmark or check document fails
	// structural or semantic validation.
	ErrValidation = errors.NewKind("validation failed: %s")

	// ErrDenied is returned when an operation targets a predefined
	// benchmark or check that the caller may not modify or delete.
	ErrDenied = errors.NewKind("operation denied: %s")

	// ErrNotFound is returned when a referenced benchmark, check, or
	// collection id does not exist.
	ErrNotFound = errors.NewKind("not found: %s")

	// ErrInternal signals a bug: a code path the model guarantees is
	// unreachable.
	ErrInternal = errors.NewKind("internal error: %s")
)
