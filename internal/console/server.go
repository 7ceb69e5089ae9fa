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
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/novatechflow/kafscale-console/pkg/aclrule"
	"github.com/novatechflow/kafscale-console/pkg/batch"
)

// Options wires the console API to its collaborators.
type Options struct {
	Cluster string
	Auth    AuthConfig
	// Roles may be nil, which leaves RBAC disabled.
	Roles            RoleProvider
	Inventory        Inventory
	Submitter        Submitter
	Groups           batch.Mutator
	Metrics          *Metrics
	BatchParallelism int
	Logger           *slog.Logger
}

type Server struct {
	cluster     string
	auth        *authManager
	roles       RoleProvider
	inventory   Inventory
	submitter   Submitter
	groups      batch.Mutator
	metrics     *Metrics
	parallelism int
	logger      *slog.Logger
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cluster := opts.Cluster
	if cluster == "" {
		cluster = defaultClusterName
	}
	return &Server{
		cluster:     cluster,
		auth:        newAuthManager(opts.Auth),
		roles:       opts.Roles,
		inventory:   opts.Inventory,
		submitter:   opts.Submitter,
		groups:      opts.Groups,
		metrics:     opts.Metrics,
		parallelism: opts.BatchParallelism,
		logger:      logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ui/api/auth/config", s.auth.handleConfig)
	mux.HandleFunc("/ui/api/auth/session", s.auth.handleSession)
	mux.HandleFunc("/ui/api/auth/login", s.auth.handleLogin)
	mux.HandleFunc("/ui/api/auth/logout", s.auth.handleLogout)
	mux.HandleFunc("/ui/api/acls/producers", s.auth.requireAuth(s.handleCreateACL(aclrule.RuleProducer)))
	mux.HandleFunc("/ui/api/acls/consumers", s.auth.requireAuth(s.handleCreateACL(aclrule.RuleConsumer)))
	mux.HandleFunc("/ui/api/consumer-groups/delete", s.auth.requireAuth(s.handleDeleteGroups))
	mux.HandleFunc("/ui/api/permissions", s.auth.requireAuth(s.handlePermissions))
	mux.HandleFunc("/ui/api/inventory/topics", s.auth.requireAuth(s.handleInventory(aclrule.FamilyTopic)))
	mux.HandleFunc("/ui/api/inventory/consumer-groups", s.auth.requireAuth(s.handleInventory(aclrule.FamilyConsumerGroup)))
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
