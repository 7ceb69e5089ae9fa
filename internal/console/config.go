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
	"os"
	"strconv"
	"strings"
)

const (
	defaultHTTPAddr         = ":8080"
	defaultClusterName      = "kafscale-cluster"
	defaultBrokers          = "localhost:19092"
	defaultRBACEtcdKey      = "/kafscale/console/rbac"
	defaultBatchParallelism = 8
)

// Config is the console runtime configuration, read from the environment.
type Config struct {
	HTTPAddr string
	Cluster  string
	Brokers  []string
	Auth     AuthConfig
	RBACFile string
	// RBACForced pins RBAC to RBACEnabled regardless of the role source.
	RBACForced       bool
	RBACEnabled      bool
	RBACEtcdKey      string
	EtcdEndpoints    []string
	EtcdUsername     string
	EtcdPassword     string
	BatchParallelism int
	LogLevel         string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr: envOrDefault("KAFSCALE_CONSOLE_HTTP_ADDR", defaultHTTPAddr),
		Cluster:  envOrDefault("KAFSCALE_CONSOLE_CLUSTER", defaultClusterName),
		Brokers:  splitList(envOrDefault("KAFSCALE_CONSOLE_BROKERS", defaultBrokers)),
		Auth: AuthConfig{
			Username: os.Getenv("KAFSCALE_UI_USERNAME"),
			Password: os.Getenv("KAFSCALE_UI_PASSWORD"),
		},
		RBACFile:         strings.TrimSpace(os.Getenv("KAFSCALE_CONSOLE_RBAC_FILE")),
		RBACForced:       strings.TrimSpace(os.Getenv("KAFSCALE_CONSOLE_RBAC_ENABLED")) != "",
		RBACEnabled:      parseEnvBool("KAFSCALE_CONSOLE_RBAC_ENABLED", false),
		RBACEtcdKey:      envOrDefault("KAFSCALE_CONSOLE_RBAC_ETCD_KEY", defaultRBACEtcdKey),
		EtcdEndpoints:    splitList(os.Getenv("KAFSCALE_ETCD_ENDPOINTS")),
		EtcdUsername:     os.Getenv("KAFSCALE_ETCD_USERNAME"),
		EtcdPassword:     os.Getenv("KAFSCALE_ETCD_PASSWORD"),
		BatchParallelism: parseEnvInt("KAFSCALE_CONSOLE_BATCH_PARALLELISM", defaultBatchParallelism),
		LogLevel:         strings.ToLower(os.Getenv("KAFSCALE_LOG_LEVEL")),
	}
}

func envOrDefault(name, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(name)); val != "" {
		return val
	}
	return fallback
}

func parseEnvInt(name string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(name)); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseEnvBool(name string, fallback bool) bool {
	if val := strings.TrimSpace(os.Getenv(name)); val != "" {
		switch strings.ToLower(val) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
