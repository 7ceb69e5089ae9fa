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

package batch

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/novatechflow/kafscale-console/pkg/acl"
)

const defaultParallelism = 8

// Mutator performs the per-item operation, e.g. deleting one consumer group.
type Mutator interface {
	Mutate(ctx context.Context, id string) error
}

type MutatorFunc func(ctx context.Context, id string) error

func (f MutatorFunc) Mutate(ctx context.Context, id string) error { return f(ctx, id) }

// Confirmer asks the user to approve the batch. Returning false cancels it.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// AutoConfirm approves every batch. Used where the request itself is the
// confirmation.
var AutoConfirm = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// Observer receives every settled item result.
type Observer interface {
	ObserveResult(action string, result Result)
}

type Config struct {
	Mutator   Mutator
	Confirmer Confirmer
	// Refresh reloads the external resource list after execution.
	Refresh func(ctx context.Context)
	// ResetSelection clears the caller's selection after execution.
	ResetSelection func()
	Observer       Observer
	Parallelism    int
	Logger         *slog.Logger
}

// Coordinator runs evaluate-then-act batches. It holds no per-run state and
// may be shared.
type Coordinator struct {
	cfg    Config
	logger *slog.Logger
}

func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism
	}
	if cfg.Confirmer == nil {
		cfg.Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{cfg: cfg, logger: logger}
}

// Run drives one batch through Validating, Confirming and Executing. A failed
// precondition settles the batch with no mutations. A declined confirmation
// returns to Idle. Otherwise every item is dispatched independently and the
// report carries one result per item in item order. The returned error is
// only set when the confirmer itself fails.
func (c *Coordinator) Run(ctx context.Context, action Action, access acl.Query, items []Item) (Report, error) {
	report := Report{Action: action.Name}
	report.enter(StateValidating)

	if perr := c.validate(action, access, items); perr != nil {
		report.Precondition = perr
		report.enter(StateSettled)
		c.logger.Info("batch precondition failed", "action", action.Name, "reason", perr.Reason, "violations", len(perr.IDs), "items", perr.Total)
		return report, nil
	}

	report.enter(StateConfirming)
	ok, err := c.cfg.Confirmer.Confirm(ctx, action.prompt(len(items)))
	if err != nil {
		report.enter(StateIdle)
		return report, fmt.Errorf("confirm %s: %w", action.Name, err)
	}
	if !ok {
		report.enter(StateIdle)
		return report, nil
	}

	report.enter(StateExecuting)
	report.Results = c.execute(ctx, action, items)
	report.enter(StateSettled)

	if c.cfg.Refresh != nil {
		c.cfg.Refresh(context.WithoutCancel(ctx))
	}
	if c.cfg.ResetSelection != nil {
		c.cfg.ResetSelection()
	}
	c.logger.Info("batch settled", "action", action.Name, "items", len(items), "succeeded", report.Count(OutcomeSuccess), "failed", report.Count(OutcomeFailed), "skipped", report.Count(OutcomeSkipped))
	return report, nil
}

func (c *Coordinator) validate(action Action, access acl.Query, items []Item) *PreconditionError {
	if len(items) == 0 {
		return &PreconditionError{Reason: ReasonNoItems}
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	access.Resource = action.Resource
	access.Action = action.Permission
	if denied := acl.Denied(access, ids); len(denied) > 0 {
		return &PreconditionError{Reason: ReasonNotPermitted, IDs: denied, Total: len(items), Resource: action.Resource}
	}
	var ineligible []string
	for _, item := range items {
		if !action.allows(item.State) {
			ineligible = append(ineligible, item.ID)
		}
	}
	if len(ineligible) > 0 {
		return &PreconditionError{Reason: ReasonIneligibleState, IDs: ineligible, Total: len(items), Resource: action.Resource, AllowedStates: action.AllowedStates}
	}
	return nil
}

// execute fans out one Mutate per item. In-flight calls are detached from
// ctx; items still waiting for a slot when ctx ends are skipped.
func (c *Coordinator) execute(ctx context.Context, action Action, items []Item) []Result {
	results := make([]Result, len(items))
	sem := semaphore.NewWeighted(int64(c.cfg.Parallelism))
	callCtx := context.WithoutCancel(ctx)
	seen := make(map[string]struct{}, len(items))

	var g errgroup.Group
	for i, item := range items {
		if _, dup := seen[item.ID]; dup {
			results[i] = skipped(item.ID, "duplicate")
			continue
		}
		seen[item.ID] = struct{}{}
		if ctx.Err() != nil {
			results[i] = skipped(item.ID, "cancelled before dispatch")
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = skipped(item.ID, "cancelled before dispatch")
			continue
		}
		i, item := i, item
		g.Go(func() error {
			defer sem.Release(1)
			if err := c.cfg.Mutator.Mutate(callCtx, item.ID); err != nil {
				c.logger.Warn("batch item failed", "action", action.Name, "id", item.ID, "error", err)
				results[i] = Result{ID: item.ID, Outcome: OutcomeFailed, Reason: err.Error(), Err: err}
				return nil
			}
			results[i] = Result{ID: item.ID, Outcome: OutcomeSuccess}
			return nil
		})
	}
	_ = g.Wait()

	if c.cfg.Observer != nil {
		for _, r := range results {
			c.cfg.Observer.ObserveResult(action.Name, r)
		}
	}
	return results
}

func skipped(id, reason string) Result {
	return Result{ID: id, Outcome: OutcomeSkipped, Reason: reason}
}
