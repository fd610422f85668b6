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

// ParseTerm builds a Term from a tagged record (the neutral representation
// produced by TermToJSON), dispatching on discriminating fields:
// left/right/op for CombinedTerm, name/op for
// Predicate, fn/property_path for FunctionTerm, kind for IsTerm, id for
// IdTerm. Unknown shapes fail with ErrParse.
func ParseTerm(js map[string]any) (Term, error) {
	if _, ok := js["all"]; ok {
		return AllTerm{}, nil
	}
	if inner, ok := js["not"].(map[string]any); ok {
		innerTerm, err := ParseTerm(inner)
		if err != nil {
			return nil, err
		}
		return NotTerm{Term: innerTerm}, nil
	}
	if left, lok := js["left"].(map[string]any); lok {
		if right, rok := js["right"].(map[string]any); rok {
			if op, ok := js["op"].(string); ok {
				leftTerm, err := ParseTerm(left)
				if err != nil {
					return nil, err
				}
				rightTerm, err := ParseTerm(right)
				if err != nil {
					return nil, err
				}
				return CombinedTerm{Left: leftTerm, Op: CombinedOp(op), Right: rightTerm}, nil
			}
		}
	}
	if name, ok := js["name"].(string); ok {
		if op, ok := js["op"].(string); ok {
			args, _ := js["args"].(map[string]any)
			if args == nil {
				args = map[string]any{}
			}
			return Predicate{Name: name, Op: Op(op), Value: js["value"], Args: args}, nil
		}
	}
	if fn, ok := js["fn"].(string); ok {
		if path, ok := js["property_path"].(string); ok {
			argv, _ := js["args"].([]any)
			return FunctionTerm{Fn: fn, PropertyPath: path, Args: argv}, nil
		}
	}
	if kind, ok := js["kind"].(string); ok {
		return IsTerm{Kinds: []string{kind}}, nil
	}
	if kinds, ok := js["kind"].([]any); ok {
		strs := make([]string, len(kinds))
		for i, k := range kinds {
			s, _ := k.(string)
			strs[i] = s
		}
		return IsTerm{Kinds: strs}, nil
	}
	if id, ok := js["id"].(string); ok {
		return IdTerm{Id: id}, nil
	}
	return nil, ErrParse.New(fmt.Sprintf("can not parse term from %v", js))
}

// TermToJSON renders term into the neutral tagged-record form ParseTerm
// accepts. A MergeTerm is rendered as a pre_filter/merge/post_filter record
// without its merge sub-queries; ParseTerm does not accept that record.
func TermToJSON(t Term) map[string]any {
	switch v := t.(type) {
	case AllTerm:
		return map[string]any{"all": true}
	case NotTerm:
		return map[string]any{"not": TermToJSON(v.Term)}
	case CombinedTerm:
		return map[string]any{"left": TermToJSON(v.Left), "op": string(v.Op), "right": TermToJSON(v.Right)}
	case Predicate:
		return map[string]any{"name": v.Name, "op": string(v.Op), "value": v.Value, "args": v.Args}
	case FunctionTerm:
		return map[string]any{"fn": v.Fn, "property_path": v.PropertyPath, "args": v.Args}
	case IsTerm:
		if len(v.Kinds) == 1 {
			return map[string]any{"kind": v.Kinds[0]}
		}
		kinds := make([]any, len(v.Kinds))
		for i, k := range v.Kinds {
			kinds[i] = k
		}
		return map[string]any{"kind": kinds}
	case IdTerm:
		return map[string]any{"id": v.Id}
	case MergeTerm:
		merge := make([]any, len(v.Merge))
		for i, m := range v.Merge {
			merge[i] = map[string]any{"name": m.Name, "only_first": m.OnlyFirst}
		}
		js := map[string]any{"pre_filter": TermToJSON(v.PreFilter), "merge": merge}
		if v.PostFilter != nil {
			js["post_filter"] = TermToJSON(v.PostFilter)
		}
		return js
	default:
		return nil
	}
}
