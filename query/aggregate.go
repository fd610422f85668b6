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

import (
	"fmt"
	"strings"
)

// AggregateVariableName is a bare group-by variable name.
type AggregateVariableName struct {
	Name string
}

func (n AggregateVariableName) String() string { return n.Name }

func (n AggregateVariableName) ChangeVariable(fn func(string) string) AggregateVariableName {
	return AggregateVariableName{Name: fn(n.Name)}
}

// AggregateVariableCombined interpolates literal strings with named
// references, e.g. "foo_{var1}_{var2}_bla".
type AggregateVariableCombined struct {
	// Parts alternates string literals and AggregateVariableName references.
	Parts []any
}

func (c AggregateVariableCombined) String() string {
	var b strings.Builder
	for _, p := range c.Parts {
		switch v := p.(type) {
		case string:
			b.WriteString(v)
		case AggregateVariableName:
			fmt.Fprintf(&b, "{%s}", v)
		}
	}
	return fmt.Sprintf("%q", b.String())
}

func (c AggregateVariableCombined) ChangeVariable(fn func(string) string) AggregateVariableCombined {
	parts := make([]any, len(c.Parts))
	for i, p := range c.Parts {
		if v, ok := p.(AggregateVariableName); ok {
			parts[i] = v.ChangeVariable(fn)
		} else {
			parts[i] = p
		}
	}
	return AggregateVariableCombined{Parts: parts}
}

// AggregateVariableNameLike is either an AggregateVariableName or an
// AggregateVariableCombined.
type AggregateVariableNameLike interface {
	fmt.Stringer
}

// AggregateVariable is one group-by column, optionally renamed with AsName.
type AggregateVariable struct {
	Name   AggregateVariableNameLike
	AsName string
}

func (v AggregateVariable) String() string {
	if v.AsName != "" {
		return fmt.Sprintf("%s as %s", v.Name, v.AsName)
	}
	return v.Name.String()
}

// GetAsName returns AsName if set, else the variable's rendered name.
func (v AggregateVariable) GetAsName() string {
	if v.AsName != "" {
		return v.AsName
	}
	return v.Name.String()
}

func (v AggregateVariable) ChangeVariable(fn func(string) string) AggregateVariable {
	switch n := v.Name.(type) {
	case AggregateVariableName:
		v.Name = n.ChangeVariable(fn)
	case AggregateVariableCombined:
		v.Name = n.ChangeVariable(fn)
	}
	return v
}

// AggregateOp is one step of an AggregateFunction's post-computation
// arithmetic chain, e.g. "* 100".
type AggregateOp struct {
	Op    string
	Value float64
}

func (o AggregateOp) String() string { return fmt.Sprintf("%s %s", o.Op, ValueStrRep(o.Value)) }

// AggregateFunction computes one value per group, e.g. sum(reported.size)
// as total_size.
type AggregateFunction struct {
	Function string
	// Name is either a string property path or an int literal (e.g. count(1)).
	Name   any
	Ops    []AggregateOp
	AsName string
}

func (f AggregateFunction) String() string {
	ops := ""
	if len(f.Ops) > 0 {
		parts := make([]string, len(f.Ops))
		for i, o := range f.Ops {
			parts[i] = o.String()
		}
		ops = " " + strings.Join(parts, " ")
	}
	asName := ""
	if f.AsName != "" {
		asName = " as " + f.AsName
	}
	return fmt.Sprintf("%s(%v%s)%s", f.Function, f.Name, ops, asName)
}

// GetAsName returns AsName if set, else a synthesised "<function>_of_<name>".
func (f AggregateFunction) GetAsName() string {
	if f.AsName != "" {
		return f.AsName
	}
	return fmt.Sprintf("%s_of_%v", f.Function, f.Name)
}

func (f AggregateFunction) ChangeVariable(fn func(string) string) AggregateFunction {
	if name, ok := f.Name.(string); ok {
		f.Name = fn(name)
	}
	return f
}

// Aggregate is a group-by plus a list of aggregate functions.
type Aggregate struct {
	GroupBy   []AggregateVariable
	GroupFunc []AggregateFunction
}

func (a Aggregate) String() string {
	grouped := ""
	if len(a.GroupBy) > 0 {
		parts := make([]string, len(a.GroupBy))
		for i, g := range a.GroupBy {
			parts[i] = g.String()
		}
		grouped = strings.Join(parts, ", ") + ": "
	}
	funcs := make([]string, len(a.GroupFunc))
	for i, f := range a.GroupFunc {
		funcs[i] = f.String()
	}
	return fmt.Sprintf("aggregate(%s%s)", grouped, strings.Join(funcs, ", "))
}

func (a Aggregate) ChangeVariable(fn func(string) string) Aggregate {
	groupBy := make([]AggregateVariable, len(a.GroupBy))
	for i, g := range a.GroupBy {
		groupBy[i] = g.ChangeVariable(fn)
	}
	groupFunc := make([]AggregateFunction, len(a.GroupFunc))
	for i, f := range a.GroupFunc {
		groupFunc[i] = f.ChangeVariable(fn)
	}
	return Aggregate{GroupBy: groupBy, GroupFunc: groupFunc}
}
