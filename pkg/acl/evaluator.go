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

package acl

// Grant allows a set of actions on resources of one type whose names match
// Pattern, on the listed clusters.
type Grant struct {
	Resource Resource `json:"resource" yaml:"resource"`
	Actions  []Action `json:"actions" yaml:"actions"`
	Pattern  Pattern  `json:"pattern" yaml:"pattern"`
	Clusters []string `json:"clusters" yaml:"clusters"`
}

type Role struct {
	Name   string  `json:"name" yaml:"name"`
	Grants []Grant `json:"grants" yaml:"grants"`
}

// Query is built fresh for every evaluation; role and cluster context may
// change between calls.
type Query struct {
	Roles       []Role
	Resource    Resource
	Action      Action
	Value       string
	Cluster     string
	RBACEnabled bool
}

// IsPermitted returns true when RBAC is disabled, otherwise on the first
// grant that covers the resource type, action, cluster and name. Grants are
// not ranked by specificity.
func IsPermitted(q Query) bool {
	if !q.RBACEnabled {
		return true
	}
	for _, role := range q.Roles {
		for _, grant := range role.Grants {
			if grantCovers(grant, q) {
				return true
			}
		}
	}
	return false
}

// AllPermitted evaluates q once per value and requires every evaluation to
// pass. Partial permission is a denial.
func AllPermitted(q Query, values []string) bool {
	if !q.RBACEnabled {
		return true
	}
	if len(values) == 0 {
		return false
	}
	for _, value := range values {
		q.Value = value
		if !IsPermitted(q) {
			return false
		}
	}
	return true
}

// Denied returns the values of a batch that q does not permit, in order.
func Denied(q Query, values []string) []string {
	if !q.RBACEnabled {
		return nil
	}
	var denied []string
	for _, value := range values {
		q.Value = value
		if !IsPermitted(q) {
			denied = append(denied, value)
		}
	}
	return denied
}

func grantCovers(grant Grant, q Query) bool {
	if grant.Resource != q.Resource {
		return false
	}
	if !containsAction(grant.Actions, q.Action) {
		return false
	}
	if !clusterMatches(grant.Clusters, q.Cluster) {
		return false
	}
	return Matches(grant.Pattern, q.Value)
}

func containsAction(actions []Action, action Action) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

func clusterMatches(clusters []string, cluster string) bool {
	for _, c := range clusters {
		if c == Wildcard || c == cluster {
			return true
		}
	}
	return false
}
