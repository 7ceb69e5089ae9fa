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
	"fmt"
	"strings"

	"github.com/novatechflow/kafscale-console/pkg/acl"
)

type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateConfirming State = "confirming"
	StateExecuting  State = "executing"
	StateSettled    State = "settled"
)

// Item is one selected resource and its current lifecycle state.
type Item struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

type Result struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
	Err     error   `json:"-"`
}

// Action describes a batch operation: the permission each item needs and the
// lifecycle states an item must be in.
type Action struct {
	Name          string
	Resource      acl.Resource
	Permission    acl.Action
	AllowedStates []string
	Prompt        string
}

func (a Action) allows(state string) bool {
	for _, s := range a.AllowedStates {
		if strings.EqualFold(s, state) {
			return true
		}
	}
	return false
}

func (a Action) prompt(n int) string {
	if a.Prompt != "" {
		return a.Prompt
	}
	return fmt.Sprintf("Are you sure you want to %s %d selected items?", a.Name, n)
}

const (
	ReasonNoItems         = "no_items"
	ReasonNotPermitted    = "not_permitted"
	ReasonIneligibleState = "ineligible_state"
)

// PreconditionError is the single aggregate failure of a batch rejected
// before any item executed.
type PreconditionError struct {
	Reason        string       `json:"reason"`
	IDs           []string     `json:"ids,omitempty"`
	Total         int          `json:"total"`
	Resource      acl.Resource `json:"resource,omitempty"`
	AllowedStates []string     `json:"allowed_states,omitempty"`
}

func (e *PreconditionError) Error() string {
	switch e.Reason {
	case ReasonNoItems:
		return "nothing selected"
	case ReasonNotPermitted:
		return fmt.Sprintf("not permitted on %d of %d selected items", len(e.IDs), e.Total)
	case ReasonIneligibleState:
		return fmt.Sprintf("all selected items must be in %s state (%d of %d are not)", strings.Join(e.AllowedStates, " or "), len(e.IDs), e.Total)
	default:
		return e.Reason
	}
}

// Report is the settled view of one Run.
type Report struct {
	Action       string             `json:"action"`
	State        State              `json:"state"`
	Transitions  []State            `json:"transitions"`
	Results      []Result           `json:"results,omitempty"`
	Precondition *PreconditionError `json:"precondition,omitempty"`
}

func (r *Report) enter(s State) {
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

func (r Report) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}
