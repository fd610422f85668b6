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

import "fmt"

// SortOrder is the direction of a Sort clause.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Reverse flips Asc to Desc and vice versa.
func (o SortOrder) Reverse() SortOrder {
	if o == Desc {
		return Asc
	}
	return Desc
}

// Sort orders results by a named property.
type Sort struct {
	Name  string
	Order SortOrder
}

// NewSort builds a Sort with the spec default order (Asc) when order is empty.
func NewSort(name string, order SortOrder) Sort {
	if order == "" {
		order = Asc
	}
	return Sort{Name: name, Order: order}
}

func (s Sort) String() string { return fmt.Sprintf("%s %s", s.Name, s.Order) }

func (s Sort) ChangeVariable(fn func(string) string) Sort {
	s.Name = fn(s.Name)
	return s
}
