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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/novatechflow/kafscale-console/pkg/acl"
	"github.com/novatechflow/kafscale-console/pkg/aclrule"
	"github.com/novatechflow/kafscale-console/pkg/batch"
)

var deleteGroupsAction = batch.Action{
	Name:          "delete_consumer_groups",
	Resource:      acl.ResourceConsumerGroup,
	Permission:    acl.ActionDelete,
	AllowedStates: []string{"Empty"},
	Prompt:        "Are you sure you want to delete the selected consumer groups?",
}

type aclFamilyPayload struct {
	Match  string   `json:"match"`
	Values []string `json:"values"`
	Prefix string   `json:"prefix"`
	All    bool     `json:"all"`
}

type createACLRequest struct {
	Principal       string            `json:"principal"`
	Host            string            `json:"host"`
	Topics          *aclFamilyPayload `json:"topics"`
	ConsumerGroups  *aclFamilyPayload `json:"consumerGroups"`
	TransactionalID *aclFamilyPayload `json:"transactionalId"`
	Idempotent      bool              `json:"idempotent"`
}

func (r createACLRequest) families() map[aclrule.Family]*aclFamilyPayload {
	return map[aclrule.Family]*aclFamilyPayload{
		aclrule.FamilyTopic:           r.Topics,
		aclrule.FamilyConsumerGroup:   r.ConsumerGroups,
		aclrule.FamilyTransactionalID: r.TransactionalID,
	}
}

type createACLResponse struct {
	Rule     aclrule.RuleRequest `json:"rule"`
	Bindings []aclrule.Binding   `json:"bindings"`
}

type deleteGroupsRequest struct {
	Groups []string `json:"groups"`
}

type deleteGroupsResponse struct {
	batch.Report
	Error          string `json:"error,omitempty"`
	Refresh        bool   `json:"refresh"`
	ResetSelection bool   `json:"resetSelection"`
}

type permissionResponse struct {
	Resource  acl.Resource `json:"resource"`
	Action    acl.Action   `json:"action"`
	Values    []string     `json:"values,omitempty"`
	Permitted bool         `json:"permitted"`
	Denied    []string     `json:"denied,omitempty"`
}

type inventoryResponse struct {
	Family aclrule.Family `json:"family"`
	Names  []string       `json:"names"`
	Count  int            `json:"count"`
}

// errInput marks request payloads that are malformed rather than unpermitted.
var errInput = errors.New("invalid input")

// access resolves the signed-in user's role context. Without a role provider
// RBAC is disabled and every action is visible.
func (s *Server) access(ctx context.Context) (acl.Query, error) {
	q := acl.Query{Cluster: s.cluster}
	if s.roles == nil {
		return q, nil
	}
	a, err := s.roles.Access(ctx, UserFromContext(ctx))
	if err != nil {
		return acl.Query{}, err
	}
	q.Roles = a.Roles
	q.RBACEnabled = a.Enabled
	return q, nil
}

func (s *Server) handleCreateACL(kind aclrule.RuleKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var payload createACLRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		ctx := r.Context()

		principal := strings.TrimSpace(payload.Principal)
		if principal == "" {
			writeBuildError(w, aclrule.ErrMissingPrincipal)
			return
		}
		q, err := s.access(ctx)
		if err != nil {
			s.logger.Error("role lookup failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "role lookup failed")
			return
		}
		q.Resource = acl.ResourceACL
		q.Action = acl.ActionCreate
		q.Value = principal
		if !acl.IsPermitted(q) {
			s.metrics.RecordDenied(q.Action, q.Resource)
			writeError(w, http.StatusForbidden, "You are not permitted to create ACLs for this principal")
			return
		}

		inputs := make(map[aclrule.Family]aclrule.FamilyInput)
		for family, fp := range payload.families() {
			if fp == nil {
				continue
			}
			in, err := s.familyInput(ctx, family, fp)
			if err != nil {
				if errors.Is(err, errInput) {
					writeError(w, http.StatusBadRequest, err.Error())
					return
				}
				s.logger.Error("inventory lookup failed", "family", family, "error", err)
				writeError(w, http.StatusBadGateway, "inventory unavailable")
				return
			}
			inputs[family] = in
		}
		rule, err := aclrule.Build(principal, payload.Host, inputs, kind, aclrule.Flags{Idempotent: payload.Idempotent})
		if err != nil {
			writeBuildError(w, err)
			return
		}

		if s.submitter == nil {
			writeError(w, http.StatusServiceUnavailable, "acl submission unavailable")
			return
		}
		err = s.submitter.Submit(ctx, rule)
		s.metrics.RecordSubmission(string(kind), err)
		if err != nil {
			s.logger.Warn("acl submission failed", "kind", kind, "principal", rule.Principal, "error", err)
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.logger.Info("acl rule created", "kind", kind, "principal", rule.Principal, "user", UserFromContext(ctx))
		writeJSON(w, http.StatusCreated, createACLResponse{Rule: rule, Bindings: rule.Bindings()})
	}
}

// familyInput turns one family payload into compiler input. Exact lists are
// de-duplicated, and the known count is only set when the list names exactly
// the resources that exist, so free-form names can never widen to all.
func (s *Server) familyInput(ctx context.Context, family aclrule.Family, fp *aclFamilyPayload) (aclrule.FamilyInput, error) {
	kind := acl.MatchExact
	if strings.TrimSpace(fp.Match) != "" {
		parsed, ok := acl.ParseMatchKind(fp.Match)
		if !ok || parsed == acl.MatchAll {
			return aclrule.FamilyInput{}, fmt.Errorf("%w: unknown match type %q for %s", errInput, fp.Match, family)
		}
		kind = parsed
	}
	in := aclrule.FamilyInput{ApplyToAll: fp.All}
	switch kind {
	case acl.MatchPrefixed:
		if len(fp.Values) > 0 {
			return aclrule.FamilyInput{}, fmt.Errorf("%w: %s takes either values or a prefix", errInput, family)
		}
		in.Prefix = fp.Prefix
	default:
		if strings.TrimSpace(fp.Prefix) != "" {
			return aclrule.FamilyInput{}, fmt.Errorf("%w: %s takes either values or a prefix", errInput, family)
		}
		in.Values = uniqueNames(fp.Values)
	}
	if !in.ApplyToAll && len(in.Values) > 0 && s.inventory != nil {
		known, err := s.inventory.Names(ctx, family)
		if err != nil {
			return aclrule.FamilyInput{}, err
		}
		if sameNames(in.Values, known) {
			in.KnownCount = len(known)
		}
	}
	return in, nil
}

// uniqueNames drops blank and repeated names, keeping first-seen order.
func uniqueNames(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// sameNames reports whether the de-duplicated values are exactly the known set.
func sameNames(values, known []string) bool {
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}
	if len(knownSet) == 0 || len(values) != len(knownSet) {
		return false
	}
	for _, v := range values {
		if _, ok := knownSet[v]; !ok {
			return false
		}
	}
	return true
}

func writeBuildError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, aclrule.ErrMissingRequiredFamily):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, aclrule.ErrEmptySelection),
		errors.Is(err, aclrule.ErrMissingPrincipal),
		errors.Is(err, aclrule.ErrUnknownRuleKind):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleDeleteGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var payload deleteGroupsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if s.groups == nil || s.inventory == nil {
		writeError(w, http.StatusServiceUnavailable, "consumer group operations unavailable")
		return
	}
	ctx := r.Context()
	q, err := s.access(ctx)
	if err != nil {
		s.logger.Error("role lookup failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "role lookup failed")
		return
	}
	items, err := s.inventory.GroupItems(ctx, payload.Groups)
	if err != nil {
		s.logger.Error("group lookup failed", "error", err)
		writeError(w, http.StatusBadGateway, "inventory unavailable")
		return
	}

	var resp deleteGroupsResponse
	coord := batch.NewCoordinator(batch.Config{
		Mutator:        s.groups,
		Confirmer:      batch.AutoConfirm,
		Refresh:        func(context.Context) { resp.Refresh = true },
		ResetSelection: func() { resp.ResetSelection = true },
		Observer:       s.metrics,
		Parallelism:    s.parallelism,
		Logger:         s.logger,
	})
	report, err := coord.Run(ctx, deleteGroupsAction, q, items)
	resp.Report = report
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	if perr := report.Precondition; perr != nil {
		resp.Error = deleteGroupsMessage(perr)
		status := http.StatusConflict
		switch perr.Reason {
		case batch.ReasonNoItems:
			status = http.StatusBadRequest
		case batch.ReasonNotPermitted:
			status = http.StatusForbidden
			s.metrics.RecordDenied(deleteGroupsAction.Permission, deleteGroupsAction.Resource)
		}
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func deleteGroupsMessage(perr *batch.PreconditionError) string {
	switch perr.Reason {
	case batch.ReasonNoItems:
		return "Please select at least one consumer group"
	case batch.ReasonNotPermitted:
		return fmt.Sprintf("You are not permitted to delete %d of the %d selected consumer groups", len(perr.IDs), perr.Total)
	case batch.ReasonIneligibleState:
		return "All selected consumer groups must be in EMPTY state to be deleted"
	default:
		return perr.Error()
	}
}

// handlePermissions answers the display gating question for the UI: may the
// signed-in user perform action on resource for every listed value.
func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query()
	resource := acl.Resource(strings.TrimSpace(query.Get("resource")))
	action := acl.Action(strings.TrimSpace(query.Get("action")))
	if resource == "" || action == "" {
		writeError(w, http.StatusBadRequest, "resource and action are required")
		return
	}
	var values []string
	for _, raw := range query["value"] {
		values = append(values, splitList(raw)...)
	}

	q, err := s.access(r.Context())
	if err != nil {
		s.logger.Error("role lookup failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "role lookup failed")
		return
	}
	q.Resource = resource
	q.Action = action

	resp := permissionResponse{Resource: resource, Action: action, Values: values}
	if len(values) == 0 {
		resp.Permitted = acl.IsPermitted(q)
	} else {
		resp.Permitted = acl.AllPermitted(q, values)
		resp.Denied = acl.Denied(q, values)
	}
	if !resp.Permitted {
		s.metrics.RecordDenied(action, resource)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInventory(family aclrule.Family) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.inventory == nil {
			writeError(w, http.StatusServiceUnavailable, "inventory unavailable")
			return
		}
		names, err := s.inventory.Names(r.Context(), family)
		if err != nil {
			s.logger.Error("inventory lookup failed", "family", family, "error", err)
			writeError(w, http.StatusBadGateway, "inventory unavailable")
			return
		}
		if names == nil {
			names = []string{}
		}
		writeJSON(w, http.StatusOK, inventoryResponse{Family: family, Names: names, Count: len(names)})
	}
}
