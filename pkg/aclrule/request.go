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
	"fmt"
	"strings"

	"github.com/novatechflow/kafscale-console/pkg/acl"
)

// RuleKind is the client role a rule is created for.
type RuleKind string

const (
	RuleProducer RuleKind = "producer"
	RuleConsumer RuleKind = "consumer"
)

type ruleShape struct {
	required []Family
	optional []Family
}

var ruleShapes = map[RuleKind]ruleShape{
	RuleProducer: {
		required: []Family{FamilyTopic},
		optional: []Family{FamilyTransactionalID},
	},
	RuleConsumer: {
		required: []Family{FamilyTopic, FamilyConsumerGroup},
	},
}

// Required lists the families a rule of this kind cannot be built without.
func (k RuleKind) Required() []Family {
	return append([]Family(nil), ruleShapes[k].required...)
}

func (k RuleKind) Valid() bool {
	_, ok := ruleShapes[k]
	return ok
}

// Flags are family-specific switches carried alongside the selections.
type Flags struct {
	// Idempotent adds the cluster-level idempotent write grant producers need
	// when enable.idempotence=true.
	Idempotent bool `json:"idempotent,omitempty"`
}

// RuleRequest is the normalized rule handed to the submission collaborator.
type RuleRequest struct {
	Kind       RuleKind             `json:"kind"`
	Principal  string               `json:"principal"`
	Host       string               `json:"host"`
	Selections map[Family]Selection `json:"selections"`
	Flags      Flags                `json:"flags"`
}

// Build compiles every family the rule kind needs and assembles the request.
// It performs no I/O. Host defaults to the wildcard. Optional families are
// compiled only when the input carries some selection.
func Build(principal, host string, inputs map[Family]FamilyInput, kind RuleKind, flags Flags) (RuleRequest, error) {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return RuleRequest{}, ErrMissingPrincipal
	}
	if !kind.Valid() {
		return RuleRequest{}, fmt.Errorf("%w: %q", ErrUnknownRuleKind, kind)
	}
	shape := ruleShapes[kind]
	for _, family := range kind.Required() {
		if _, ok := inputs[family]; !ok {
			return RuleRequest{}, missingFamily(kind, family)
		}
	}
	host = strings.TrimSpace(host)
	if host == "" {
		host = acl.Wildcard
	}

	selections := make(map[Family]Selection, len(shape.required)+len(shape.optional))
	for _, family := range shape.required {
		sel, err := Compile(family, inputs[family])
		if err != nil {
			return RuleRequest{}, err
		}
		selections[family] = sel
	}
	for _, family := range shape.optional {
		in, ok := inputs[family]
		if !ok || in.empty() {
			continue
		}
		sel, err := Compile(family, in)
		if err != nil {
			return RuleRequest{}, err
		}
		selections[family] = sel
	}
	if kind != RuleProducer {
		flags.Idempotent = false
	}
	return RuleRequest{
		Kind:       kind,
		Principal:  principal,
		Host:       host,
		Selections: selections,
		Flags:      flags,
	}, nil
}
