// Copyright 2025, 2026 Alexander Alten (novatechflow), NovaTechflow (novatechflow.com).
// This project is supported and financed by Scalytics, Inc. (www.scalytics.io).
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

// Package acl holds the console's advisory permission model: name patterns,
// role grants and the evaluator that decides whether an action should be
// offered to the acting user. The broker remains the enforcement point.
package acl

import "strings"

// Wildcard is the universal resource name and cluster marker.
const Wildcard = "*"

type Action string

type Resource string

const (
	ActionView         Action = "view"
	ActionCreate       Action = "create"
	ActionEdit         Action = "edit"
	ActionDelete       Action = "delete"
	ActionResetOffsets Action = "reset_offsets"
	ActionProduce      Action = "produce"
	ActionConsume      Action = "consume"
)

const (
	ResourceTopic           Resource = "topic"
	ResourceConsumerGroup   Resource = "consumer_group"
	ResourceACL             Resource = "acl"
	ResourceCluster         Resource = "cluster"
	ResourceTransactionalID Resource = "transactional_id"
)

// MatchKind selects how a name is compared against a pattern or selection.
type MatchKind string

const (
	MatchExact    MatchKind = "EXACT"
	MatchPrefixed MatchKind = "PREFIXED"
	MatchAll      MatchKind = "ALL"
)

// ParseMatchKind accepts the kind names case-insensitively.
func ParseMatchKind(raw string) (MatchKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(MatchExact):
		return MatchExact, true
	case string(MatchPrefixed):
		return MatchPrefixed, true
	case string(MatchAll):
		return MatchAll, true
	}
	return "", false
}

// Pattern is a declared resource name pattern. Value is the literal name for
// MatchExact, the prefix for MatchPrefixed and ignored for MatchAll.
type Pattern struct {
	Kind  MatchKind `json:"kind" yaml:"kind"`
	Value string    `json:"value,omitempty" yaml:"value,omitempty"`
}

func Exact(value string) Pattern {
	return Pattern{Kind: MatchExact, Value: value}
}

func Prefixed(prefix string) Pattern {
	return Pattern{Kind: MatchPrefixed, Value: prefix}
}

func All() Pattern {
	return Pattern{Kind: MatchAll}
}

// ParsePattern reads the shorthand used in role files: "*" matches every
// name, a trailing "*" declares a prefix and anything else is literal.
func ParsePattern(raw string) Pattern {
	raw = strings.TrimSpace(raw)
	if raw == Wildcard {
		return All()
	}
	if strings.HasSuffix(raw, Wildcard) {
		return Prefixed(strings.TrimSuffix(raw, Wildcard))
	}
	return Exact(raw)
}

func (p Pattern) String() string {
	switch p.Kind {
	case MatchAll:
		return Wildcard
	case MatchPrefixed:
		return p.Value + Wildcard
	default:
		return p.Value
	}
}

// Matches reports whether candidate satisfies the pattern. An empty candidate
// never matches and an empty prefix is an unset pattern, not a universal one.
func (p Pattern) Matches(candidate string) bool {
	if candidate == "" {
		return false
	}
	switch p.Kind {
	case MatchExact:
		return candidate == p.Value
	case MatchPrefixed:
		if p.Value == "" {
			return false
		}
		return strings.HasPrefix(candidate, p.Value)
	case MatchAll:
		return true
	default:
		return false
	}
}

func Matches(pattern Pattern, candidate string) bool {
	return pattern.Matches(candidate)
}
