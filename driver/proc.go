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
	"sync"

	resoto "github.com/nburtsev/resoto"
)

// engineHost is the shared per-engine state behind every connection opened
// through the same resolved engine: the engine itself and the connection id
// sequence anonymous connections are named from.
type engineHost struct {
	engine *resoto.Engine

	mu     sync.Mutex
	connID uint32
}

func (h *engineHost) nextConnectionID() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connID++
	return h.connID
}
