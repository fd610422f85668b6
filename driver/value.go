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

package driver

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/spf13/cast"
)

// convertTags renders a resource's tag map according to the configured
// scan kind. ScanAsObject and ScanAsStored hand the map through untouched,
// which is only usable by callers driving the driver directly rather than
// through database/sql.
func convertTags(tags map[string]interface{}, kind ScanKind) driver.Value {
	if tags == nil {
		return nil
	}

	switch kind {
	case ScanAsString:
		b, err := json.Marshal(tags)
		if err != nil {
			return nil
		}
		return string(b)
	case ScanAsBytes:
		b, err := json.Marshal(tags)
		if err != nil {
			return nil
		}
		return b
	default:
		return tags
	}
}

// convertTime parses a resource timestamp into time.Time. An empty string
// yields nil; a string in no recognizable format is handed through raw.
func convertTime(s string) driver.Value {
	if s == "" {
		return nil
	}
	if t, err := cast.ToTimeE(s); err == nil {
		return t
	}
	return s
}
