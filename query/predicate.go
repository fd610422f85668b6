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

// P is a fluent predicate builder bound to a single property name, mirroring
// the P helper class in the original query model.
type P struct {
	name string
	args map[string]any
}

// Pred starts a predicate builder for name.
func Pred(name string) P { return P{name: name, args: map[string]any{}} }

// OfKind builds an IsTerm matching the given kind.
func OfKind(name string) Term { return IsTerm{Kinds: []string{name}} }

// WithId builds an IdTerm matching the given id.
func WithId(id string) Term { return IdTerm{Id: id} }

func (p P) predicate(op Op, value any) Predicate {
	return Predicate{Name: p.name, Op: op, Value: value, Args: p.args}
}

func (p P) Gt(v any) Predicate         { return p.predicate(OpGt, v) }
func (p P) Ge(v any) Predicate         { return p.predicate(OpGe, v) }
func (p P) Lt(v any) Predicate         { return p.predicate(OpLt, v) }
func (p P) Le(v any) Predicate         { return p.predicate(OpLe, v) }
func (p P) Eq(v any) Predicate         { return p.predicate(OpEq, v) }
func (p P) Ne(v any) Predicate         { return p.predicate(OpNe, v) }
func (p P) Matches(re string) Predicate    { return p.predicate(OpMatches, re) }
func (p P) NotMatches(re string) Predicate { return p.predicate(OpNotMatches, re) }
func (p P) IsIn(values []any) Predicate    { return p.predicate(OpIn, values) }
func (p P) IsNotIn(values []any) Predicate { return p.predicate(OpNotIn, values) }

// PArray scopes a property path as an array, selecting the array-quantifier
// variant of P.
type PArray struct {
	name string
}

// Arr starts an array predicate builder for name.
func Arr(name string) PArray { return PArray{name: name} }

func (a PArray) withFilter(f ArrayFilter) P {
	return P{name: a.name, args: map[string]any{"filter": f}}
}

func (a PArray) ForAny() P  { return a.withFilter(ArrayAny) }
func (a PArray) ForAll() P  { return a.withFilter(ArrayAll) }
func (a PArray) ForNone() P { return a.withFilter(ArrayNone) }

// PFunction is a fluent builder for FunctionTerm.
type PFunction struct {
	fn string
}

// Fn starts a function-term builder for the named function.
func Fn(name string) PFunction { return PFunction{fn: name} }

// On applies the function to propertyPath with the given fixed args.
func (f PFunction) On(propertyPath string, args ...any) FunctionTerm {
	return FunctionTerm{Fn: f.fn, PropertyPath: propertyPath, Args: args}
}
