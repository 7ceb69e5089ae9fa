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
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novatechflow/kafscale-console/pkg/acl"
	"github.com/novatechflow/kafscale-console/pkg/batch"
)

const metricsNamespace = "kafscale_console"

type Metrics struct {
	registry       *prometheus.Registry
	authzDenied    *prometheus.CounterVec
	aclSubmissions *prometheus.CounterVec
	batchResults   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		authzDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "authz_denied_total",
				Help:      "Console actions hidden or rejected by role evaluation.",
			},
			[]string{"action", "resource"},
		),
		aclSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "acl_submissions_total",
				Help:      "ACL rule submissions by rule kind and result.",
			},
			[]string{"kind", "result"},
		),
		batchResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "batch_results_total",
				Help:      "Per-item batch outcomes.",
			},
			[]string{"action", "outcome"},
		),
	}
	m.registry.MustRegister(m.authzDenied, m.aclSubmissions, m.batchResults)
	return m
}

func (m *Metrics) RecordDenied(action acl.Action, resource acl.Resource) {
	if m == nil {
		return
	}
	m.authzDenied.WithLabelValues(string(action), string(resource)).Inc()
}

func (m *Metrics) RecordSubmission(kind string, err error) {
	if m == nil {
		return
	}
	result := "accepted"
	if err != nil {
		result = "error"
	}
	m.aclSubmissions.WithLabelValues(kind, result).Inc()
}

// ObserveResult implements batch.Observer.
func (m *Metrics) ObserveResult(action string, r batch.Result) {
	if m == nil {
		return
	}
	m.batchResults.WithLabelValues(action, string(r.Outcome)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
