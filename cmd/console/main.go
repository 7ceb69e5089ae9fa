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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/novatechflow/kafscale-console/internal/console"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := console.LoadConfig()
	logger := newLogger(cfg.LogLevel)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("console server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("kafscale console shutting down")
}

func run(ctx context.Context, cfg console.Config, logger *slog.Logger) error {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID("kafscale-console"),
	)
	if err != nil {
		return fmt.Errorf("create kafka client: %w", err)
	}
	defer client.Close()

	roles, closeRoles, err := buildRoleProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRoles()

	srv := console.NewServer(console.Options{
		Cluster:          cfg.Cluster,
		Auth:             cfg.Auth,
		Roles:            roles,
		Inventory:        console.NewKafkaInventory(client),
		Submitter:        console.NewKafkaACLSubmitter(client),
		Groups:           console.NewConsumerGroupDeleter(client),
		Metrics:          console.NewMetrics(),
		BatchParallelism: cfg.BatchParallelism,
		Logger:           logger,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("console listening", "addr", cfg.HTTPAddr, "cluster", cfg.Cluster, "brokers", cfg.Brokers)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRoleProvider picks the role source. With etcd configured the roles are
// read from etcd on every evaluation, and a local file, when also set, seeds
// the etcd key at startup. A file alone is served from memory.
func buildRoleProvider(ctx context.Context, cfg console.Config, logger *slog.Logger) (console.RoleProvider, func(), error) {
	noop := func() {}
	var (
		provider console.RoleProvider
		closer   = noop
	)
	switch {
	case len(cfg.EtcdEndpoints) > 0:
		cli, err := clientv3.New(clientv3.Config{
			Endpoints:   cfg.EtcdEndpoints,
			Username:    cfg.EtcdUsername,
			Password:    cfg.EtcdPassword,
			DialTimeout: 5 * time.Second,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("connect etcd: %w", err)
		}
		etcdRoles := console.NewEtcdRoleProvider(cli, cfg.RBACEtcdKey)
		if cfg.RBACFile != "" {
			data, err := os.ReadFile(cfg.RBACFile)
			if err != nil {
				_ = cli.Close()
				return nil, noop, fmt.Errorf("read rbac file: %w", err)
			}
			if err := etcdRoles.Store(ctx, data); err != nil {
				_ = cli.Close()
				return nil, noop, fmt.Errorf("seed rbac roles: %w", err)
			}
			logger.Info("rbac roles seeded into etcd", "path", cfg.RBACFile, "key", cfg.RBACEtcdKey)
		}
		provider = etcdRoles
		closer = func() { _ = cli.Close() }
		logger.Info("rbac roles served from etcd", "endpoints", cfg.EtcdEndpoints, "key", cfg.RBACEtcdKey)
	case cfg.RBACFile != "":
		doc, err := console.LoadRBACFile(cfg.RBACFile)
		if err != nil {
			return nil, noop, err
		}
		provider = console.NewStaticRoleProvider(doc)
		logger.Info("rbac roles loaded from file", "path", cfg.RBACFile, "roles", len(doc.Roles), "enabled", doc.Enabled)
	default:
		if cfg.RBACForced && cfg.RBACEnabled {
			return nil, noop, errors.New("KAFSCALE_CONSOLE_RBAC_ENABLED requires KAFSCALE_CONSOLE_RBAC_FILE or KAFSCALE_ETCD_ENDPOINTS")
		}
		logger.Warn("rbac disabled: no role source configured")
		return nil, noop, nil
	}
	if cfg.RBACForced {
		provider = console.WithForcedRBAC(provider, cfg.RBACEnabled)
	}
	return provider, closer, nil
}

func newLogger(levelName string) *slog.Logger {
	level := slog.LevelInfo
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})
	return slog.New(handler).With("component", "console")
}
