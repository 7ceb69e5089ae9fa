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
	"os"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"

	"github.com/novatechflow/kafscale-console/pkg/acl"
)

var ErrRBACNotFound = errors.New("rbac document not found")

// Access is the role context of one user for one evaluation.
type Access struct {
	Enabled bool
	Roles   []acl.Role
}

// RoleProvider resolves the roles bound to a console user. Implementations
// return fresh data on every call.
type RoleProvider interface {
	Access(ctx context.Context, subject string) (Access, error)
}

// RBACConfig is the role document stored in a file or in etcd.
//
//	enabled: true
//	roles:
//	  - name: orders-admins
//	    subjects: [alice]
//	    grants:
//	      - resource: consumer_group
//	        actions: [view, delete]
//	        pattern: "orders-*"
//	        clusters: ["*"]
type RBACConfig struct {
	Enabled bool         `yaml:"enabled"`
	Roles   []RoleConfig `yaml:"roles"`
}

type RoleConfig struct {
	Name     string        `yaml:"name"`
	Subjects []string      `yaml:"subjects"`
	Grants   []GrantConfig `yaml:"grants"`
}

// GrantConfig takes either the pattern shorthand ("*", "orders-*", "orders")
// or an explicit match kind with a value.
type GrantConfig struct {
	Resource string   `yaml:"resource"`
	Actions  []string `yaml:"actions"`
	Pattern  string   `yaml:"pattern"`
	Match    string   `yaml:"match"`
	Value    string   `yaml:"value"`
	Clusters []string `yaml:"clusters"`
}

func ParseRBAC(data []byte) (RBACConfig, error) {
	var cfg RBACConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RBACConfig{}, fmt.Errorf("parse rbac: %w", err)
	}
	for i, role := range cfg.Roles {
		if strings.TrimSpace(role.Name) == "" {
			return RBACConfig{}, fmt.Errorf("rbac: role %d has no name", i)
		}
		for j, grant := range role.Grants {
			if _, err := grant.pattern(); err != nil {
				return RBACConfig{}, fmt.Errorf("rbac: role %s grant %d: %w", role.Name, j, err)
			}
		}
	}
	return cfg, nil
}

func LoadRBACFile(path string) (RBACConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RBACConfig{}, fmt.Errorf("read rbac file: %w", err)
	}
	return ParseRBAC(data)
}

func (g GrantConfig) pattern() (acl.Pattern, error) {
	if strings.TrimSpace(g.Match) == "" {
		return acl.ParsePattern(g.Pattern), nil
	}
	kind, ok := acl.ParseMatchKind(g.Match)
	if !ok {
		return acl.Pattern{}, fmt.Errorf("unknown match kind %q", g.Match)
	}
	return acl.Pattern{Kind: kind, Value: g.Value}, nil
}

// RolesFor returns the roles whose subjects include subject. A "*" subject
// binds a role to every user.
func (c RBACConfig) RolesFor(subject string) []acl.Role {
	var roles []acl.Role
	for _, rc := range c.Roles {
		if !bindsSubject(rc.Subjects, subject) {
			continue
		}
		role := acl.Role{Name: rc.Name}
		for _, gc := range rc.Grants {
			pattern, err := gc.pattern()
			if err != nil {
				continue
			}
			actions := make([]acl.Action, 0, len(gc.Actions))
			for _, a := range gc.Actions {
				actions = append(actions, acl.Action(strings.ToLower(strings.TrimSpace(a))))
			}
			clusters := gc.Clusters
			if len(clusters) == 0 {
				clusters = []string{acl.Wildcard}
			}
			role.Grants = append(role.Grants, acl.Grant{
				Resource: acl.Resource(strings.ToLower(strings.TrimSpace(gc.Resource))),
				Actions:  actions,
				Pattern:  pattern,
				Clusters: append([]string(nil), clusters...),
			})
		}
		roles = append(roles, role)
	}
	return roles
}

func bindsSubject(subjects []string, subject string) bool {
	for _, s := range subjects {
		s = strings.TrimSpace(s)
		if s == acl.Wildcard || (s != "" && s == subject) {
			return true
		}
	}
	return false
}

// StaticRoleProvider serves a document loaded once, e.g. from a file.
type StaticRoleProvider struct {
	cfg RBACConfig
}

func NewStaticRoleProvider(cfg RBACConfig) *StaticRoleProvider {
	return &StaticRoleProvider{cfg: cfg}
}

func (p *StaticRoleProvider) Access(_ context.Context, subject string) (Access, error) {
	return Access{Enabled: p.cfg.Enabled, Roles: p.cfg.RolesFor(subject)}, nil
}

// EtcdRoleProvider reads the role document from a single etcd key on every
// call so role edits apply to the next evaluation.
type EtcdRoleProvider struct {
	client  *clientv3.Client
	key     string
	timeout time.Duration
}

func NewEtcdRoleProvider(client *clientv3.Client, key string) *EtcdRoleProvider {
	return &EtcdRoleProvider{client: client, key: key, timeout: 3 * time.Second}
}

func (p *EtcdRoleProvider) Access(ctx context.Context, subject string) (Access, error) {
	cfg, err := p.Load(ctx)
	if err != nil {
		return Access{}, err
	}
	return Access{Enabled: cfg.Enabled, Roles: cfg.RolesFor(subject)}, nil
}

func (p *EtcdRoleProvider) Load(ctx context.Context) (RBACConfig, error) {
	getCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	resp, err := p.client.Get(getCtx, p.key)
	if err != nil {
		return RBACConfig{}, fmt.Errorf("etcd get %s: %w", p.key, err)
	}
	if len(resp.Kvs) == 0 {
		return RBACConfig{}, fmt.Errorf("%w at %s", ErrRBACNotFound, p.key)
	}
	return ParseRBAC(resp.Kvs[0].Value)
}

// Store writes a role document, validating it first.
func (p *EtcdRoleProvider) Store(ctx context.Context, data []byte) error {
	if _, err := ParseRBAC(data); err != nil {
		return err
	}
	putCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if _, err := p.client.Put(putCtx, p.key, string(data)); err != nil {
		return fmt.Errorf("etcd put %s: %w", p.key, err)
	}
	return nil
}

// forcedRoleProvider pins the enabled flag from configuration.
type forcedRoleProvider struct {
	inner   RoleProvider
	enabled bool
}

func (p forcedRoleProvider) Access(ctx context.Context, subject string) (Access, error) {
	if !p.enabled {
		return Access{}, nil
	}
	access, err := p.inner.Access(ctx, subject)
	if err != nil {
		return Access{}, err
	}
	access.Enabled = true
	return access, nil
}

// WithForcedRBAC wraps inner so the configured flag overrides the document.
func WithForcedRBAC(inner RoleProvider, enabled bool) RoleProvider {
	return forcedRoleProvider{inner: inner, enabled: enabled}
}
