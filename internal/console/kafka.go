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

package console

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/novatechflow/kafscale-console/pkg/acl"
	"github.com/novatechflow/kafscale-console/pkg/aclrule"
)

var (
	ErrSubmission = errors.New("acl submission failed")
	ErrMutation   = errors.New("consumer group mutation failed")
)

// Submitter hands a compiled rule to the cluster.
type Submitter interface {
	Submit(ctx context.Context, req aclrule.RuleRequest) error
}

// KafkaACLSubmitter issues one CreateACLs request per rule. It does not
// retry; every rejected binding is reported.
type KafkaACLSubmitter struct {
	client kmsg.Requestor
}

func NewKafkaACLSubmitter(client kmsg.Requestor) *KafkaACLSubmitter {
	return &KafkaACLSubmitter{client: client}
}

func (s *KafkaACLSubmitter) Submit(ctx context.Context, rule aclrule.RuleRequest) error {
	bindings := rule.Bindings()
	if len(bindings) == 0 {
		return fmt.Errorf("%w: rule expands to no bindings", ErrSubmission)
	}
	req := kmsg.NewPtrCreateACLsRequest()
	for _, b := range bindings {
		creation, err := toCreation(b)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSubmission, err)
		}
		req.Creations = append(req.Creations, creation)
	}
	resp, err := req.RequestWith(ctx, s.client)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubmission, err)
	}
	var errs []error
	for i, res := range resp.Results {
		if err := kerr.ErrorForCode(res.ErrorCode); err != nil {
			msg := ""
			if res.ErrorMessage != nil {
				msg = ": " + *res.ErrorMessage
			}
			name := ""
			if i < len(bindings) {
				name = fmt.Sprintf("%s %s %s", bindings[i].Resource, bindings[i].Name, bindings[i].Operation)
			}
			errs = append(errs, fmt.Errorf("%s: %w%s", name, err, msg))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrSubmission, errors.Join(errs...))
	}
	return nil
}

func toCreation(b aclrule.Binding) (kmsg.CreateACLsRequestCreation, error) {
	c := kmsg.NewCreateACLsRequestCreation()
	switch b.Resource {
	case acl.ResourceTopic:
		c.ResourceType = kmsg.ACLResourceTypeTopic
	case acl.ResourceConsumerGroup:
		c.ResourceType = kmsg.ACLResourceTypeGroup
	case acl.ResourceTransactionalID:
		c.ResourceType = kmsg.ACLResourceTypeTransactionalId
	case acl.ResourceCluster:
		c.ResourceType = kmsg.ACLResourceTypeCluster
	default:
		return c, fmt.Errorf("unsupported resource %q", b.Resource)
	}
	switch b.PatternType {
	case aclrule.PatternPrefixed:
		c.ResourcePatternType = kmsg.ACLResourcePatternTypePrefixed
	default:
		c.ResourcePatternType = kmsg.ACLResourcePatternTypeLiteral
	}
	switch b.Operation {
	case aclrule.OperationRead:
		c.Operation = kmsg.ACLOperationRead
	case aclrule.OperationWrite:
		c.Operation = kmsg.ACLOperationWrite
	case aclrule.OperationCreate:
		c.Operation = kmsg.ACLOperationCreate
	case aclrule.OperationDescribe:
		c.Operation = kmsg.ACLOperationDescribe
	case aclrule.OperationIdempotentWrite:
		c.Operation = kmsg.ACLOperationIdempotentWrite
	default:
		return c, fmt.Errorf("unsupported operation %q", b.Operation)
	}
	c.ResourceName = b.Name
	c.Principal = b.Principal
	c.Host = b.Host
	c.PermissionType = kmsg.ACLPermissionTypeAllow
	return c, nil
}

// ConsumerGroupDeleter deletes one group per call; it is the batch mutator
// for bulk deletion.
type ConsumerGroupDeleter struct {
	client kmsg.Requestor
}

func NewConsumerGroupDeleter(client kmsg.Requestor) *ConsumerGroupDeleter {
	return &ConsumerGroupDeleter{client: client}
}

func (d *ConsumerGroupDeleter) Mutate(ctx context.Context, id string) error {
	req := kmsg.NewPtrDeleteGroupsRequest()
	req.Groups = []string{id}
	resp, err := req.RequestWith(ctx, d.client)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMutation, id, err)
	}
	for _, g := range resp.Groups {
		if g.Group != id {
			continue
		}
		if err := kerr.ErrorForCode(g.ErrorCode); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMutation, id, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s: missing from response", ErrMutation, id)
}
