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

import "github.com/novatechflow/kafscale-console/pkg/acl"

type Operation string

const (
	OperationRead            Operation = "READ"
	OperationWrite           Operation = "WRITE"
	OperationCreate          Operation = "CREATE"
	OperationDescribe        Operation = "DESCRIBE"
	OperationIdempotentWrite Operation = "IDEMPOTENT_WRITE"
)

type PatternType string

const (
	PatternLiteral  PatternType = "LITERAL"
	PatternPrefixed PatternType = "PREFIXED"
)

// ClusterResourceName is the fixed resource name of cluster-level ACLs.
const ClusterResourceName = "kafka-cluster"

// Binding is one allow entry as the cluster's admin API understands it.
type Binding struct {
	Resource    acl.Resource `json:"resource"`
	Name        string       `json:"name"`
	PatternType PatternType  `json:"patternType"`
	Principal   string       `json:"principal"`
	Host        string       `json:"host"`
	Operation   Operation    `json:"operation"`
}

var familyOperations = map[RuleKind]map[Family][]Operation{
	RuleConsumer: {
		FamilyTopic:         {OperationRead, OperationDescribe},
		FamilyConsumerGroup: {OperationRead},
	},
	RuleProducer: {
		FamilyTopic:           {OperationWrite, OperationDescribe, OperationCreate},
		FamilyTransactionalID: {OperationWrite, OperationDescribe},
	},
}

var familyOrder = []Family{FamilyTopic, FamilyConsumerGroup, FamilyTransactionalID}

// Bindings expands the request into the ACL entries to create, in a stable
// order: families, then names, then operations.
func (r RuleRequest) Bindings() []Binding {
	ops := familyOperations[r.Kind]
	var out []Binding
	for _, family := range familyOrder {
		sel, ok := r.Selections[family]
		if !ok {
			continue
		}
		patternType := PatternLiteral
		if sel.Kind == acl.MatchPrefixed {
			patternType = PatternPrefixed
		}
		for _, name := range sel.Names() {
			for _, op := range ops[family] {
				out = append(out, Binding{
					Resource:    family.Resource(),
					Name:        name,
					PatternType: patternType,
					Principal:   r.Principal,
					Host:        r.Host,
					Operation:   op,
				})
			}
		}
	}
	if r.Kind == RuleProducer && r.Flags.Idempotent {
		out = append(out, Binding{
			Resource:    acl.ResourceCluster,
			Name:        ClusterResourceName,
			PatternType: PatternLiteral,
			Principal:   r.Principal,
			Host:        r.Host,
			Operation:   OperationIdempotentWrite,
		})
	}
	return out
}
