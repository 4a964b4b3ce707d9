//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "communiserver/pkg/platform/audit"
	"communiserver/pkg/platform/audit/kafka"
	"communiserver/pkg/testutil/containers"
)

func TestKafkaPublisher(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const topic = "communiserver.audit.test"

	pub, err := kafka.NewPublisher(ctx, []string{rp.Broker}, kafka.WithTopic(topic))
	require.NoError(t, err)

	actor := uuid.New()
	event := audit.Event{
		Timestamp: time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC),
		ActorID:   actor,
		Role:      "VILLAGE_LEADER",
		Action:    "search_performed",
		Surface:   "search",
		Detail:    "umuganda",
		Outcome:   "ok",
		ElapsedMs: 40,
	}
	require.NoError(t, pub.Append(ctx, event))
	require.NoError(t, pub.Close(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)

	// Events are keyed by actor so one actor's trail stays ordered.
	assert.Equal(t, actor.String(), string(records[0].Key))

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, event, got)
}

// Creating the publisher twice must tolerate the topic already existing.
func TestKafkaPublisher_TopicAlreadyExists(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	first, err := kafka.NewPublisher(ctx, []string{rp.Broker})
	require.NoError(t, err)
	require.NoError(t, first.Close(ctx))

	second, err := kafka.NewPublisher(ctx, []string{rp.Broker})
	require.NoError(t, err)
	require.NoError(t, second.Close(ctx))
}
