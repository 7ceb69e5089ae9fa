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

//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/novatechflow/kafscale-console/internal/console"
)

// TestConsoleAgainstCluster drives the console API against a real cluster
// with an authorizer configured, e.g. a local Kafka with
// authorizer.class.name set and the console principal as super user.
func TestConsoleAgainstCluster(t *testing.T) {
	const enableEnv = "KAFSCALE_E2E"
	if os.Getenv(enableEnv) != "1" {
		t.Skipf("set %s=1 to run integration harness", enableEnv)
	}
	brokers := strings.Split(envOrDefault("KAFSCALE_E2E_BROKERS", "127.0.0.1:9092"), ",")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.ClientID("kafscale-console-e2e"),
	)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()

	srv := httptest.NewServer(console.NewServer(console.Options{
		Auth:      console.AuthConfig{Username: "e2e", Password: "e2e"},
		Inventory: console.NewKafkaInventory(client),
		Submitter: console.NewKafkaACLSubmitter(client),
		Groups:    console.NewConsumerGroupDeleter(client),
		Metrics:   console.NewMetrics(),
	}).Handler())
	defer srv.Close()
	api := login(t, srv.URL)

	principal := fmt.Sprintf("User:e2e-%d", time.Now().UnixNano())
	t.Cleanup(func() { deleteACLs(t, client, principal) })

	resp := api.post(t, srv.URL+"/ui/api/acls/consumers", map[string]any{
		"principal":      principal,
		"topics":         map[string]any{"match": "PREFIXED", "prefix": "orders-"},
		"consumerGroups": map[string]any{"values": []string{"e2e-group"}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create consumer acl: status %d", resp.StatusCode)
	}

	got := describeACLs(t, ctx, client, principal)
	want := map[string]bool{
		"topic orders- PREFIXED READ":     true,
		"topic orders- PREFIXED DESCRIBE": true,
		"group e2e-group LITERAL READ":    true,
	}
	for _, entry := range got {
		delete(want, entry)
	}
	if len(want) != 0 {
		t.Fatalf("missing acl entries %v, cluster has %v", want, got)
	}

	group := fmt.Sprintf("e2e-empty-%d", time.Now().UnixNano())
	makeEmptyGroup(t, ctx, brokers, group)
	resp = api.post(t, srv.URL+"/ui/api/consumer-groups/delete", map[string]any{"groups": []string{group}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete empty group: status %d", resp.StatusCode)
	}
}

type apiClient struct {
	http *http.Client
}

func login(t *testing.T, base string) *apiClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	c := &apiClient{http: &http.Client{Jar: jar}}
	resp := c.post(t, base+"/ui/api/auth/login", map[string]string{"username": "e2e", "password": "e2e"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", resp.StatusCode)
	}
	return c
}

func (c *apiClient) post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := c.http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	resp.Body.Close()
	return resp
}

func describeACLs(t *testing.T, ctx context.Context, client *kgo.Client, principal string) []string {
	t.Helper()
	req := kmsg.NewPtrDescribeACLsRequest()
	req.ResourceType = kmsg.ACLResourceTypeAny
	req.ResourcePatternType = kmsg.ACLResourcePatternTypeAny
	req.Operation = kmsg.ACLOperationAny
	req.PermissionType = kmsg.ACLPermissionTypeAny
	req.Principal = kmsg.StringPtr(principal)
	resp, err := req.RequestWith(ctx, client)
	if err != nil {
		t.Fatalf("describe acls: %v", err)
	}
	if err := kerr.ErrorForCode(resp.ErrorCode); err != nil {
		t.Fatalf("describe acls: %v", err)
	}
	var entries []string
	for _, res := range resp.Resources {
		for _, a := range res.ACLs {
			entries = append(entries, fmt.Sprintf("%s %s %s %s",
				strings.ToLower(res.ResourceType.String()), res.ResourceName, res.ResourcePatternType.String(), a.Operation.String()))
		}
	}
	return entries
}

func deleteACLs(t *testing.T, client *kgo.Client, principal string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	filter := kmsg.NewDeleteACLsRequestFilter()
	filter.ResourceType = kmsg.ACLResourceTypeAny
	filter.ResourcePatternType = kmsg.ACLResourcePatternTypeAny
	filter.Operation = kmsg.ACLOperationAny
	filter.PermissionType = kmsg.ACLPermissionTypeAny
	filter.Principal = kmsg.StringPtr(principal)
	req := kmsg.NewPtrDeleteACLsRequest()
	req.Filters = append(req.Filters, filter)
	if _, err := req.RequestWith(ctx, client); err != nil {
		t.Logf("cleanup acls for %s: %v", principal, err)
	}
}

// makeEmptyGroup commits one offset for group and leaves, which parks the
// group in the Empty state.
func makeEmptyGroup(t *testing.T, ctx context.Context, brokers []string, group string) {
	t.Helper()
	topic := "orders-" + group
	producer, err := kgo.NewClient(kgo.SeedBrokers(brokers...), kgo.AllowAutoTopicCreation())
	if err != nil {
		t.Fatalf("create producer: %v", err)
	}
	defer producer.Close()
	if err := producer.ProduceSync(ctx, &kgo.Record{Topic: topic, Value: []byte("ok")}).FirstErr(); err != nil {
		t.Fatalf("produce: %v", err)
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		t.Fatalf("create consumer: %v", err)
	}
	fetches := consumer.PollFetches(ctx)
	if errs := fetches.Errors(); len(errs) > 0 {
		consumer.Close()
		t.Fatalf("poll: %v", errs[0].Err)
	}
	if err := consumer.CommitUncommittedOffsets(ctx); err != nil {
		consumer.Close()
		t.Fatalf("commit: %v", err)
	}
	consumer.Close()
}

func envOrDefault(name, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(name)); val != "" {
		return val
	}
	return fallback
}
