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

import "strings"

// PathRoot anchors a variable name to the document root, bypassing the
// active section.
const PathRoot = "/"

// VariableToAbsolute resolves name relative to section: a leading "/"
// strips to the root, otherwise section is prepended (unless section is
// empty or the root itself).
func VariableToAbsolute(section, name string) string {
	switch {
	case strings.HasPrefix(name, PathRoot):
		return name[1:]
	case section != "" && section != PathRoot:
		return section + "." + name
	default:
		return name
	}
}

// VariableToRelative is the inverse of VariableToAbsolute, preserving
// leading-slash semantics for names outside section.
func VariableToRelative(section, name string) string {
	switch {
	case strings.HasPrefix(name, PathRoot):
		return name
	case strings.HasPrefix(name, section+"."):
		return name[len(section)+1:]
	default:
		return PathRoot + name
	}
}

// OnSection rewrites every variable in the query to its absolute form
// relative to section.
func (q *Query) OnSection(section string) *Query {
	rootOrSection := section
	if section == "" || section == PathRoot {
		rootOrSection = ""
	}
	return q.ChangeVariable(func(name string) string { return VariableToAbsolute(rootOrSection, name) })
}

// RelativeToSection rewrites every variable in the query to its relative
// form within section; a no-op for the root section.
func (q *Query) RelativeToSection(section string) *Query {
	if section == PathRoot {
		return q
	}
	return q.ChangeVariable(func(name string) string { return VariableToRelative(section, name) })
}
