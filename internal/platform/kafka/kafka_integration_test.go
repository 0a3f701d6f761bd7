//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"

	"govportal/internal/platform/config"
)

func TestProducerPublishesToTopic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v23.3.3")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	broker, err := container.KafkaSeedBroker(ctx)
	require.NoError(t, err)

	cfg := config.KafkaConfig{Brokers: []string{broker}, AuditTopic: "portal.audit.test"}
	producer, err := New(ctx, cfg)
	require.NoError(t, err)
	defer producer.Close()

	require.NoError(t, producer.EnsureTopic(ctx, 1, 1))
	require.NoError(t, producer.EnsureTopic(ctx, 1, 1), "second ensure must tolerate an existing topic")
	require.NoError(t, producer.Publish(ctx, "user-1", []byte(`{"action":"application_submitted"}`), map[string]string{"event_type": "application_submitted"}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(cfg.AuditTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "user-1", string(records[0].Key))
}

func TestNewReturnsNilWithoutBrokers(t *testing.T) {
	producer, err := New(context.Background(), config.KafkaConfig{})
	require.NoError(t, err)
	require.Nil(t, producer)
}
