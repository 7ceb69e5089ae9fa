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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/novatechflow/kafscale-console/pkg/acl"
)

var deleteGroups = Action{
	Name:          "delete",
	Resource:      acl.ResourceConsumerGroup,
	Permission:    acl.ActionDelete,
	AllowedStates: []string{"Empty"},
}

type recordingMutator struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (m *recordingMutator) Mutate(_ context.Context, id string) error {
	m.mu.Lock()
	m.calls = append(m.calls, id)
	m.mu.Unlock()
	return m.fail[id]
}

type sideEffects struct {
	refreshed atomic.Int32
	reset     atomic.Int32
}

func newTestCoordinator(m Mutator, confirm Confirmer, fx *sideEffects) *Coordinator {
	return NewCoordinator(Config{
		Mutator:        m,
		Confirmer:      confirm,
		Refresh:        func(context.Context) { fx.refreshed.Add(1) },
		ResetSelection: func() { fx.reset.Add(1) },
		Parallelism:    2,
	})
}

func TestIneligibleStateSettlesWithoutMutations(t *testing.T) {
	m := &recordingMutator{}
	fx := &sideEffects{}
	coord := newTestCoordinator(m, AutoConfirm, fx)

	report, err := coord.Run(context.Background(), deleteGroups, acl.Query{}, []Item{
		{ID: "a", State: "Empty"},
		{ID: "b", State: "Stable"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.State != StateSettled {
		t.Fatalf("expected settled, got %s", report.State)
	}
	if report.Precondition == nil || report.Precondition.Reason != ReasonIneligibleState {
		t.Fatalf("expected ineligible state failure, got %+v", report.Precondition)
	}
	if len(report.Precondition.IDs) != 1 || report.Precondition.IDs[0] != "b" || report.Precondition.Total != 2 {
		t.Fatalf("unexpected violation set %+v", report.Precondition)
	}
	if len(report.Results) != 0 {
		t.Fatalf("expected no per-item results, got %d", len(report.Results))
	}
	if len(m.calls) != 0 {
		t.Fatalf("expected zero mutate calls, got %v", m.calls)
	}
	if fx.refreshed.Load() != 0 || fx.reset.Load() != 0 {
		t.Fatalf("precondition failure must not trigger side effects")
	}
}

func TestPartialFailureKeepsItemOrder(t *testing.T) {
	m := &recordingMutator{fail: map[string]error{"g2": errors.New("GROUP_ID_NOT_FOUND")}}
	fx := &sideEffects{}
	coord := newTestCoordinator(m, AutoConfirm, fx)

	report, err := coord.Run(context.Background(), deleteGroups, acl.Query{}, []Item{
		{ID: "g1", State: "Empty"},
		{ID: "g2", State: "Empty"},
		{ID: "g3", State: "EMPTY"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.State != StateSettled {
		t.Fatalf("expected settled, got %s", report.State)
	}
	if len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(report.Results))
	}
	want := []Outcome{OutcomeSuccess, OutcomeFailed, OutcomeSuccess}
	for i, res := range report.Results {
		if res.ID != []string{"g1", "g2", "g3"}[i] || res.Outcome != want[i] {
			t.Fatalf("result %d: got %+v", i, res)
		}
	}
	if report.Results[1].Err == nil || report.Results[1].Reason != "GROUP_ID_NOT_FOUND" {
		t.Fatalf("expected failure cause to be kept, got %+v", report.Results[1])
	}
	if report.Count(OutcomeFailed) != 1 || report.Count(OutcomeSuccess) != 2 {
		t.Fatalf("unexpected outcome counts")
	}
	if len(m.calls) != 3 {
		t.Fatalf("expected every item attempted, got %v", m.calls)
	}
	if fx.refreshed.Load() != 1 || fx.reset.Load() != 1 {
		t.Fatalf("expected refresh and reset once, got %d %d", fx.refreshed.Load(), fx.reset.Load())
	}
}

func TestDeclinedConfirmationReturnsToIdle(t *testing.T) {
	m := &recordingMutator{}
	fx := &sideEffects{}
	decline := ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
	coord := newTestCoordinator(m, decline, fx)

	report, err := coord.Run(context.Background(), deleteGroups, acl.Query{}, []Item{{ID: "g1", State: "Empty"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.State != StateIdle {
		t.Fatalf("expected idle, got %s", report.State)
	}
	if len(m.calls) != 0 || fx.refreshed.Load() != 0 || fx.reset.Load() != 0 {
		t.Fatalf("cancelled batch must have no side effects")
	}
}

func TestConfirmerErrorIsReturned(t *testing.T) {
	boom := errors.New("dialog closed")
	coord := newTestCoordinator(&recordingMutator{}, ConfirmFunc(func(context.Context, string) (bool, error) { return false, boom }), &sideEffects{})
	report, err := coord.Run(context.Background(), deleteGroups, acl.Query{}, []Item{{ID: "g1", State: "Empty"}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected confirmer error, got %v", err)
	}
	if report.State != StateIdle {
		t.Fatalf("expected idle, got %s", report.State)
	}
}

func TestMissingConfirmerDeclines(t *testing.T) {
	m := &recordingMutator{}
	coord := NewCoordinator(Config{Mutator: m})
	report, err := coord.Run(context.Background(), deleteGroups, acl.Query{}, []Item{{ID: "g1", State: "Empty"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.State != StateIdle || len(m.calls) != 0 {
		t.Fatalf("expected decline without confirmer, got %s %v", report.State, m.calls)
	}
}

func TestPermissionGateRejectsWholeBatch(t *testing.T) {
	m := &recordingMutator{}
	coord := newTestCoordinator(m, AutoConfirm, &sideEffects{})
	access := acl.Query{
		RBACEnabled: true,
		Cluster:     "prod",
		Roles: []acl.Role{{
			Name: "orders",
			Grants: []acl.Grant{{
				Resource: acl.ResourceConsumerGroup,
				Actions:  []acl.Action{acl.ActionDelete},
				Pattern:  acl.Prefixed("orders-"),
				Clusters: []string{"prod"},
			}},
		}},
	}
	report, err := coord.Run(context.Background(), deleteGroups, access, []Item{
		{ID: "orders-1", State: "Empty"},
		{ID: "payments-1", State: "Empty"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Precondition == nil || report.Precondition.Reason != ReasonNotPermitted {
		t.Fatalf("expected permission failure, got %+v", report.Precondition)
	}
	if len(m.calls) != 0 {
		t.Fatalf("expected no mutations, got %v", m.calls)
	}
}

func TestEmptyBatchIsRejected(t *testing.T) {
	coord := newTestCoordinator(&recordingMutator{}, AutoConfirm, &sideEffects{})
	report, _ := coord.Run(context.Background(), deleteGroups, acl.Query{}, nil)
	if report.Precondition == nil || report.Precondition.Reason != ReasonNoItems {
		t.Fatalf("expected no-items failure, got %+v", report.Precondition)
	}
}

func TestDuplicateIDsAreSkipped(t *testing.T) {
	m := &recordingMutator{}
	coord := newTestCoordinator(m, AutoConfirm, &sideEffects{})
	report, err := coord.Run(context.Background(), deleteGroups, acl.Query{}, []Item{
		{ID: "g1", State: "Empty"},
		{ID: "g1", State: "Empty"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Results[0].Outcome != OutcomeSuccess || report.Results[1].Outcome != OutcomeSkipped {
		t.Fatalf("unexpected results %+v", report.Results)
	}
	if len(m.calls) != 1 {
		t.Fatalf("expected one call, got %v", m.calls)
	}
}

func TestCancelBeforeDispatchSkipsItems(t *testing.T) {
	m := &recordingMutator{}
	fx := &sideEffects{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	confirmThenCancel := ConfirmFunc(func(context.Context, string) (bool, error) {
		cancel()
		return true, nil
	})
	coord := newTestCoordinator(m, confirmThenCancel, fx)
	report, err := coord.Run(ctx, deleteGroups, acl.Query{}, []Item{{ID: "g1", State: "Empty"}, {ID: "g2", State: "Empty"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.State != StateSettled || report.Count(OutcomeSkipped) != 2 {
		t.Fatalf("expected every item skipped, got %+v", report)
	}
	if len(m.calls) != 0 {
		t.Fatalf("expected no dispatched calls, got %v", m.calls)
	}
	if fx.refreshed.Load() != 1 {
		t.Fatalf("expected refresh after settling")
	}
}

func TestParallelismIsBounded(t *testing.T) {
	var inFlight, peak atomic.Int32
	m := MutatorFunc(func(context.Context, string) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})
	coord := newTestCoordinator(m, AutoConfirm, &sideEffects{})
	items := make([]Item, 10)
	for i := range items {
		items[i] = Item{ID: string(rune('a' + i)), State: "Empty"}
	}
	report, err := coord.Run(context.Background(), deleteGroups, acl.Query{}, items)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Count(OutcomeSuccess) != 10 {
		t.Fatalf("expected all success, got %+v", report.Results)
	}
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent calls, saw %d", peak.Load())
	}
}

func TestObserverSeesEveryResult(t *testing.T) {
	var seen []Result
	var mu sync.Mutex
	obs := observerFunc(func(action string, r Result) {
		mu.Lock()
		seen = append(seen, r)
		mu.Unlock()
	})
	coord := NewCoordinator(Config{Mutator: &recordingMutator{}, Confirmer: AutoConfirm, Observer: obs})
	if _, err := coord.Run(context.Background(), deleteGroups, acl.Query{}, []Item{{ID: "a", State: "Empty"}, {ID: "b", State: "Empty"}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 observed results, got %d", len(seen))
	}
}

type observerFunc func(action string, r Result)

func (f observerFunc) ObserveResult(action string, r Result) { f(action, r) }
