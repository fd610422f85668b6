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

// Package text_distance computes Levenshtein edit distance between short
// identifiers, the building block for "did you mean" suggestions.
package text_distance

import "reflect"

// Distance returns the Levenshtein edit distance between a and b.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// FindSimilarName returns the name in names with the smallest edit distance
// to name, preferring the first encountered on a tie. Returns "" for an
// empty name list.
func FindSimilarName(names []string, name string) string {
	if len(names) == 0 {
		return ""
	}
	best := names[0]
	bestDist := Distance(best, name)
	for _, n := range names[1:] {
		if d := Distance(n, name); d < bestDist {
			bestDist = d
			best = n
		}
	}
	return best
}

// FindSimilarNameFromMap is FindSimilarName over the keys of any map.
func FindSimilarNameFromMap(names interface{}, name string) string {
	v := reflect.ValueOf(names)
	if v.Kind() != reflect.Map || v.Len() == 0 {
		return ""
	}
	keys := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, k.String())
	}
	return FindSimilarName(keys, name)
}
