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

// Package similartext renders "did you mean" suggestions for an unknown
// identifier against a set of known ones.
package similartext

import (
	"reflect"
	"strings"

	"github.com/nburtsev/resoto/internal/text_distance"
)

// Find returns a ", maybe you mean X?" suffix for name against names, or ""
// if name is empty or nothing in names is close enough.
func Find(names []string, name string) string {
	if name == "" || len(names) == 0 {
		return ""
	}

	best := -1
	var matches []string
	for _, n := range names {
		d := text_distance.Distance(n, name)
		switch {
		case best == -1 || d < best:
			best = d
			matches = []string{n}
		case d == best:
			matches = append(matches, n)
		}
	}

	if best > len(name)/2 {
		return ""
	}

	return ", maybe you mean " + strings.Join(matches, " or ") + "?"
}

// FindFromMap is Find over the keys of any map.
func FindFromMap(names interface{}, name string) string {
	v := reflect.ValueOf(names)
	if v.Kind() != reflect.Map {
		return ""
	}

	keys := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, k.String())
	}
	return Find(keys, name)
}
