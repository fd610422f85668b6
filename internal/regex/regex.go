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

// Package regex hosts a pluggable registry of regular expression engines,
// so a single =~/!~ predicate evaluator can be backed by whichever engine
// is compiled in without the caller caring which one it is.
package regex

import (
	"regexp"
	"sync"

	"gopkg.in/src-d/go-errors.v1"
)

// ErrRegexNameEmpty is returned by Register when given an empty engine name.
var ErrRegexNameEmpty = errors.NewKind("engine name cannot be empty")

// Matcher reports whether a compiled pattern matches a string.
type Matcher interface {
	Match(s string) bool
}

// Disposer releases resources held by a compiled pattern.
type Disposer interface {
	Dispose()
}

// EngineFunc compiles pattern into a Matcher/Disposer pair.
type EngineFunc func(pattern string) (Matcher, Disposer, error)

const baseDefault = "go"

var (
	mu       sync.RWMutex
	engines  = map[string]EngineFunc{}
	override string
)

func init() {
	engines[baseDefault] = newGoEngine
}

// Engines returns the names of all registered engines.
func Engines() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(engines))
	for n := range engines {
		names = append(names, n)
	}
	return names
}

// Default returns the current default engine name.
func Default() string {
	mu.RLock()
	defer mu.RUnlock()

	if override != "" {
		return override
	}
	return baseDefault
}

// SetDefault overrides the default engine name. An empty name resets the
// default back to the compiled-in baseline.
func SetDefault(name string) {
	mu.Lock()
	defer mu.Unlock()

	override = name
}

// Register adds a new engine under name. Registering under an existing name
// replaces it.
func Register(name string, fn EngineFunc) error {
	if name == "" {
		return ErrRegexNameEmpty.New()
	}

	mu.Lock()
	defer mu.Unlock()

	engines[name] = fn
	return nil
}

// New compiles pattern with the named engine, or with the default engine
// when name is empty.
func New(name, pattern string) (Matcher, Disposer, error) {
	if name == "" {
		name = Default()
	}

	mu.RLock()
	fn, ok := engines[name]
	mu.RUnlock()

	if !ok {
		return nil, nil, errRegexEngineNotFound.New(name)
	}
	return fn(pattern)
}

var errRegexEngineNotFound = errors.NewKind("regex engine %q not registered")

type goMatcher struct {
	re *regexp.Regexp
}

func (m *goMatcher) Match(s string) bool { return m.re.MatchString(s) }

type goDisposer struct{}

func (goDisposer) Dispose() {}

func newGoEngine(pattern string) (Matcher, Disposer, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, nil, err
	}
	return &goMatcher{re: re}, goDisposer{}, nil
}
