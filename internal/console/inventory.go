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
	"fmt"
	"sort"
	"time"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kmsg"
	"golang.org/x/sync/singleflight"

	"github.com/novatechflow/kafscale-console/pkg/aclrule"
	"github.com/novatechflow/kafscale-console/pkg/batch"
)

// Inventory lists the resources that currently exist on the cluster.
type Inventory interface {
	Names(ctx context.Context, family aclrule.Family) ([]string, error)
	// GroupItems returns one batch item per id carrying the group's current
	// state. Unknown groups get an empty state.
	GroupItems(ctx context.Context, ids []string) ([]batch.Item, error)
}

const defaultInventoryTimeout = 10 * time.Second

// KafkaInventory answers inventory questions with Metadata and ListGroups
// requests. Identical concurrent lookups share one round trip; nothing is
// kept once the call returns.
type KafkaInventory struct {
	client  kmsg.Requestor
	flight  singleflight.Group
	timeout time.Duration
}

func NewKafkaInventory(client kmsg.Requestor) *KafkaInventory {
	return &KafkaInventory{client: client, timeout: defaultInventoryTimeout}
}

// shared runs fn once per key for all concurrent callers. The round trip is
// detached from any single caller, so one cancelled request cannot fail the
// others; each caller still stops waiting when its own ctx ends.
func (k *KafkaInventory) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := k.flight.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.timeout)
		defer cancel()
		return fn(callCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type groupListing struct {
	ID    string
	State string
}

func (k *KafkaInventory) Names(ctx context.Context, family aclrule.Family) ([]string, error) {
	switch family {
	case aclrule.FamilyTopic:
		return k.topics(ctx)
	case aclrule.FamilyConsumerGroup:
		groups, err := k.groups(ctx)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(groups))
		for _, g := range groups {
			names = append(names, g.ID)
		}
		return names, nil
	default:
		// Transactional ids are free text in the form; there is nothing to count.
		return nil, nil
	}
}

func (k *KafkaInventory) GroupItems(ctx context.Context, ids []string) ([]batch.Item, error) {
	groups, err := k.groups(ctx)
	if err != nil {
		return nil, err
	}
	states := make(map[string]string, len(groups))
	for _, g := range groups {
		states[g.ID] = g.State
	}
	items := make([]batch.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, batch.Item{ID: id, State: states[id]})
	}
	return items, nil
}

func (k *KafkaInventory) topics(ctx context.Context) ([]string, error) {
	v, err := k.shared(ctx, "topics", func(ctx context.Context) (interface{}, error) {
		req := kmsg.NewPtrMetadataRequest()
		req.Topics = nil
		resp, err := req.RequestWith(ctx, k.client)
		if err != nil {
			return nil, fmt.Errorf("metadata request: %w", err)
		}
		names := make([]string, 0, len(resp.Topics))
		for _, t := range resp.Topics {
			if t.Topic == nil || t.IsInternal {
				continue
			}
			if err := kerr.ErrorForCode(t.ErrorCode); err != nil {
				continue
			}
			names = append(names, *t.Topic)
		}
		sort.Strings(names)
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

func (k *KafkaInventory) groups(ctx context.Context) ([]groupListing, error) {
	v, err := k.shared(ctx, "groups", func(ctx context.Context) (interface{}, error) {
		req := kmsg.NewPtrListGroupsRequest()
		resp, err := req.RequestWith(ctx, k.client)
		if err != nil {
			return nil, fmt.Errorf("list groups request: %w", err)
		}
		if err := kerr.ErrorForCode(resp.ErrorCode); err != nil {
			return nil, fmt.Errorf("list groups: %w", err)
		}
		groups := make([]groupListing, 0, len(resp.Groups))
		for _, g := range resp.Groups {
			groups = append(groups, groupListing{ID: g.Group, State: g.GroupState})
		}
		sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
		return groups, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]groupListing(nil), v.([]groupListing)...), nil
}
