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

package report

// ResourceProjection is the cut-down resource shape a failing check result
// carries, bent out of a full graph row the same way ReportResourceData
// does in the original model.
type ResourceProjection struct {
	NodeID  string
	ID      string
	Name    string
	Kind    string
	Tags    map[string]interface{}
	CTime   string
	ATime   string
	MTime   string
	Cloud   string
	Account string
	Region  string
	Zone    string
}

// ProjectResource bends a raw graph row down to a ResourceProjection,
// mirroring ReportResourceData's field mapping.
func ProjectResource(row map[string]interface{}) ResourceProjection {
	reported, _ := row["reported"].(map[string]interface{})
	ancestors, _ := row["ancestors"].(map[string]interface{})

	return ResourceProjection{
		NodeID:  stringField(row, "id"),
		ID:      stringField(reported, "id"),
		Name:    stringField(reported, "name"),
		Kind:    stringField(row, "kind"),
		Tags:    mapField(reported, "tags"),
		CTime:   stringField(reported, "ctime"),
		ATime:   stringField(reported, "atime"),
		MTime:   stringField(reported, "mtime"),
		Cloud:   ancestorID(ancestors, "cloud"),
		Account: ancestorID(ancestors, "account"),
		Region:  ancestorID(ancestors, "region"),
		Zone:    ancestorID(ancestors, "zone"),
	}
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func mapField(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]interface{})
	return v
}

func ancestorID(ancestors map[string]interface{}, kind string) string {
	if ancestors == nil {
		return ""
	}
	node, _ := ancestors[kind].(map[string]interface{})
	if node == nil {
		return ""
	}
	reported, _ := node["reported"].(map[string]interface{})
	return stringField(reported, "id")
}
