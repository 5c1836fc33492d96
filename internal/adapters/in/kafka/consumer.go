// Package kafka feeds inbound integration events from Kafka to the consumer.
package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ordering/internal/core/application/integrationeventhandlers"
	"ordering/internal/pkg/errs"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var errNacked = errors.New("message was nacked")

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageHandler decides whether a message can be committed.
type MessageHandler interface {
	OnMessage(ctx context.Context, msg integrationeventhandlers.Message) integrationeventhandlers.Result
}

type ReaderConfig struct {
	Brokers []string
	GroupID string
	Topics  []string

	// RetryInitial and RetryMax bound the redelivery delay of a nacked message.
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// Reader commits a message only after the handler acked it. A nacked
// message is redelivered in place, so the partition does not advance.
type Reader struct {
	reader       messageReader
	handler      MessageHandler
	propagator   propagation.TextMapPropagator
	retryInitial time.Duration
	retryMax     time.Duration
	logger       *slog.Logger
}

func NewReader(config ReaderConfig, handler MessageHandler, logger *slog.Logger) (*Reader, error) {
	if len(config.Brokers) == 0 {
		return nil, errs.NewValueIsRequiredError("brokers")
	}
	if config.GroupID == "" {
		return nil, errs.NewValueIsRequiredError("group id")
	}
	if len(config.Topics) == 0 {
		return nil, errs.NewValueIsRequiredError("topics")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		GroupID:     config.GroupID,
		GroupTopics: config.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return newReader(reader, handler, config, logger)
}

func newReader(reader messageReader, handler MessageHandler, config ReaderConfig, logger *slog.Logger) (*Reader, error) {
	if handler == nil {
		return nil, errs.NewValueIsRequiredError("handler")
	}
	if logger == nil {
		return nil, errs.NewValueIsRequiredError("logger")
	}
	if config.RetryInitial <= 0 {
		config.RetryInitial = 500 * time.Millisecond
	}
	if config.RetryMax < config.RetryInitial {
		config.RetryMax = 30 * time.Second
	}

	return &Reader{
		reader:       reader,
		handler:      handler,
		propagator:   otel.GetTextMapPropagator(),
		retryInitial: config.RetryInitial,
		retryMax:     config.RetryMax,
		logger:       logger.With("component", "kafka-reader"),
	}, nil
}

// Run blocks until ctx is cancelled or the reader fails.
func (r *Reader) Run(ctx context.Context) error {
	r.logger.Info("consuming")
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if !r.deliver(ctx, msg) {
			return nil
		}

		if err := r.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// The message will be redelivered and deduplicated by the inbox.
			r.logger.Error("failed to commit offset",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// deliver hands msg to the handler until it is acked. It returns false when
// ctx ended first.
func (r *Reader) deliver(ctx context.Context, msg kafka.Message) bool {
	headers := fromHeaders(msg.Headers)
	msgCtx := r.propagator.Extract(ctx, propagation.MapCarrier(headers))
	in := integrationeventhandlers.Message{
		Topic:   msg.Topic,
		Key:     string(msg.Key),
		Payload: msg.Value,
		Headers: headers,
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(r.retryInitial),
		backoff.WithMaxInterval(r.retryMax),
		backoff.WithMaxElapsedTime(0),
	), ctx)

	err := backoff.RetryNotify(func() error {
		if r.handler.OnMessage(msgCtx, in) == integrationeventhandlers.Ack {
			return nil
		}
		return errNacked
	}, policy, func(_ error, wait time.Duration) {
		r.logger.Warn("message nacked, redelivering",
			"topic", msg.Topic, "offset", msg.Offset, "retry_in", wait)
	})
	return err == nil
}

func fromHeaders(headers []kafka.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
