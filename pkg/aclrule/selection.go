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

package aclrule

import (
	"strings"

	"github.com/novatechflow/kafscale-console/pkg/acl"
)

// Family is one category of resource that carries its own selection in a rule.
type Family string

const (
	FamilyTopic           Family = "topic"
	FamilyConsumerGroup   Family = "consumer_group"
	FamilyTransactionalID Family = "transactional_id"
)

// Resource maps the family onto the permission model's resource type.
func (f Family) Resource() acl.Resource {
	switch f {
	case FamilyTopic:
		return acl.ResourceTopic
	case FamilyConsumerGroup:
		return acl.ResourceConsumerGroup
	case FamilyTransactionalID:
		return acl.ResourceTransactionalID
	}
	return acl.Resource(f)
}

// FamilyInput is the raw selection state of one family. Values and Prefix are
// mutually exclusive; the input layer clears one when the other is chosen.
// KnownCount is the number of resources of the family that exist right now;
// callers set it only when Values names exactly that set.
type FamilyInput struct {
	Values     []string
	Prefix     string
	ApplyToAll bool
	KnownCount int
}

func (in FamilyInput) empty() bool {
	return len(in.Values) == 0 && strings.TrimSpace(in.Prefix) == "" && !in.ApplyToAll
}

// Selection is the compiled state of one family.
//
//	MatchExact:    Values non-empty, Prefix empty
//	MatchPrefixed: Prefix non-empty, Values nil
//	MatchAll:      both empty; Names renders the wildcard sentinel
type Selection struct {
	Kind   acl.MatchKind `json:"kind"`
	Values []string      `json:"values,omitempty"`
	Prefix string        `json:"prefix,omitempty"`
}

// Names is the resource name list sent to the cluster for this selection.
func (s Selection) Names() []string {
	switch s.Kind {
	case acl.MatchAll:
		return []string{acl.Wildcard}
	case acl.MatchPrefixed:
		return []string{s.Prefix}
	default:
		return append([]string(nil), s.Values...)
	}
}

// Compile reduces one family's input to a Selection. The override flag, or
// every known resource having been picked, yields MatchAll; then a prefix;
// then the exact list. A family with no signal at all fails with a
// *SelectionError so the rule is never submitted with a silent default.
func Compile(family Family, in FamilyInput) (Selection, error) {
	if in.ApplyToAll || (in.KnownCount > 0 && len(in.Values) == in.KnownCount) {
		return Selection{Kind: acl.MatchAll}, nil
	}
	if prefix := strings.TrimSpace(in.Prefix); prefix != "" {
		return Selection{Kind: acl.MatchPrefixed, Prefix: prefix}, nil
	}
	if len(in.Values) > 0 {
		return Selection{Kind: acl.MatchExact, Values: append([]string(nil), in.Values...)}, nil
	}
	return Selection{}, &SelectionError{Family: family}
}
