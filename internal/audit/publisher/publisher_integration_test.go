//go:build integration

package publisher_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"privacore/internal/audit"
	"privacore/internal/audit/publisher"
	"privacore/pkg/testutil/containers"
)

func TestPublisher_ProduceAndConsume(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	redpanda := containers.NewRedpandaContainer(t)
	const topic = "privacore.audit.test"

	pub, err := publisher.New(ctx, redpanda.Brokers, topic)
	require.NoError(t, err)
	defer pub.Close()

	entry := audit.Entry{
		ID:        uuid.New(),
		Operation: audit.OperationErasure,
		Timestamp: time.Now().UTC(),
		User:      "dpo@corp.dk",
		EntityID:  "E-000001",
		Fields:    map[string]any{"reason": "gdpr article 17"},
	}
	require.NoError(t, pub.Publish(ctx, entry))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)

	require.Equal(t, "E-000001", string(records[0].Key), "records are keyed by entity for per-subject ordering")

	var got audit.Entry
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, entry.ID, got.ID)
	require.Equal(t, audit.OperationErasure, got.Operation)
}
