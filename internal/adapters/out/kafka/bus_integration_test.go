package kafka_test

import (
	"context"
	"testing"
	"time"

	"ordering/internal/adapters/out/kafka"
	"ordering/internal/core/ports"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
)

type BusIntegrationTestSuite struct {
	suite.Suite
	container *kafkamodule.KafkaContainer
	brokers   []string
}

func TestBusIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(BusIntegrationTestSuite))
}

func (s *BusIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := kafkamodule.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafkamodule.WithClusterID("ordering-test"),
	)
	s.Require().NoError(err)
	s.container = container

	s.brokers, err = container.Brokers(ctx)
	s.Require().NoError(err)
}

func (s *BusIntegrationTestSuite) TearDownSuite() {
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(context.Background()))
	}
}

func (s *BusIntegrationTestSuite) TestPublishKeepsPerKeyOrder() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	bus, err := kafka.NewBus(s.brokers)
	s.Require().NoError(err)
	defer bus.Close()

	topic := "order-paid"
	for _, payload := range []string{"first", "second", "third"} {
		s.Require().Eventually(func() bool {
			return bus.Publish(ctx, ports.OutboundMessage{
				Topic:   topic,
				Key:     "order-1",
				Payload: []byte(payload),
				Headers: map[string]string{"event-type": "OrderStatusChangedToPaidIntegrationEvent"},
			}) == nil
		}, 30*time.Second, 500*time.Millisecond)
	}

	reader := segkafka.NewReader(segkafka.ReaderConfig{
		Brokers:     s.brokers,
		Topic:       topic,
		StartOffset: segkafka.FirstOffset,
	})
	defer reader.Close()

	var got []string
	for len(got) < 3 {
		msg, err := reader.ReadMessage(ctx)
		s.Require().NoError(err)
		s.Equal("order-1", string(msg.Key))
		require.Len(s.T(), msg.Headers, 1)
		s.Equal("event-type", msg.Headers[0].Key)
		got = append(got, string(msg.Value))
	}
	s.Equal([]string{"first", "second", "third"}, got)
}
