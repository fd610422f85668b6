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
	"strconv"
)

// Direction is the traversal direction of a Navigation.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
	DirectionAny      Direction = "any"
)

// DefaultEdgeType is the edge type used when none is specified.
const DefaultEdgeType = "default"

// Navigation describes one traversal step: follow EdgeType edges in
// Direction, between Start and Until hops (inclusive). Until is capped at
// NavigationMax, the sentinel for "unbounded".
type Navigation struct {
	Start     int
	Until     int
	EdgeType  string
	Direction Direction
}

// NavigationMax is the sentinel value for "no upper bound on hops".
const NavigationMax = 10000

// NewNavigation builds a Navigation from the given fields. start and until
// are used as given; an empty edgeType defaults to DefaultEdgeType and an
// empty direction to outbound.
func NewNavigation(start, until int, edgeType string, direction Direction) Navigation {
	if edgeType == "" {
		edgeType = DefaultEdgeType
	}
	if direction == "" {
		direction = DirectionOutbound
	}
	return Navigation{Start: start, Until: until, EdgeType: edgeType, Direction: direction}
}

func (n Navigation) String() string {
	untilStr := strconv.Itoa(n.Until)
	if n.Until == NavigationMax {
		untilStr = ""
	}
	var depth string
	if n.Start == n.Until {
		if n.Start == 1 {
			depth = ""
		} else {
			depth = fmt.Sprintf("[%d]", n.Start)
		}
	} else {
		depth = fmt.Sprintf("[%d:%s]", n.Start, untilStr)
	}
	nav := depth
	if n.EdgeType != DefaultEdgeType {
		nav = n.EdgeType + depth
	}
	switch n.Direction {
	case DirectionOutbound:
		return fmt.Sprintf("-%s->", nav)
	case DirectionInbound:
		return fmt.Sprintf("<-%s-", nav)
	default:
		return fmt.Sprintf("<-%s->", nav)
	}
}

// combine composes two consecutive navigations over the same edge type and
// direction additively, capped at NavigationMax.
func (n Navigation) combine(start, until int) Navigation {
	return Navigation{
		Start:     min(NavigationMax, n.Start+start),
		Until:     min(NavigationMax, n.Until+until),
		EdgeType:  n.EdgeType,
		Direction: n.Direction,
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
