// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

//go:build nats

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/heliograph/heliograph/internal/logging"
	"github.com/heliograph/heliograph/internal/metrics"
)

// streamName is the JetStream stream holding catalog events. The stream
// name cannot contain the subject hierarchy's dots, so it is fixed and the
// subject prefix only shapes the subjects it captures.
const streamName = "HELIOGRAPH_CATALOG"

// IngestConfig configures the JetStream ingest.
type IngestConfig struct {
	// URL is the broker to dial.
	URL string

	// SubjectPrefix namespaces the consumed subjects: a prefix of
	// "catalog" consumes catalog.extensions, catalog.stats,
	// catalog.system, and catalog.user.
	SubjectPrefix string

	// DurableName prefixes the durable consumer names, so restarts resume
	// from the last acked message instead of replaying history.
	DurableName string

	// QueueGroup load-balances across gateway instances.
	QueueGroup string

	// SubscribersCount is the number of concurrent consumers per subject.
	SubscribersCount int
}

// EnsureStream creates or updates the catalog event stream so subscribers
// can bind to it. Idempotent; every gateway instance calls it at startup.
func EnsureStream(ctx context.Context, nc *natsgo.Conn, subjectPrefix string, maxAge time.Duration) error {
	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectPrefix + ".>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    maxAge,
		Storage:   jetstream.FileStorage,
		Discard:   jetstream.DiscardOld,
	}

	if _, err := js.Stream(ctx, streamName); err == nil {
		if _, err := js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		return nil
	}

	if _, err := js.CreateStream(ctx, streamCfg); err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	return nil
}

// NATSIngest consumes catalog events from JetStream and republishes them
// onto the in-process bus, one durable consumer per subject. Routing is by
// subscription, not subject parsing: the subject's last token is the bus
// topic it feeds.
type NATSIngest struct {
	subscriber message.Subscriber
	bus        *Bus
	prefix     string
}

// NewNATSIngest builds the JetStream subscriber. The connection retries
// and reconnects indefinitely; a gateway outliving its broker is normal.
func NewNATSIngest(cfg *IngestConfig, bus *Bus, logger watermill.LoggerAdapter) (*NATSIngest, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS ingest disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS ingest reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.BindStream(streamName),
		natsgo.AckWait(30 * time.Second),
		natsgo.DeliverNew(),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &NATSIngest{
		subscriber: sub,
		bus:        bus,
		prefix:     cfg.SubjectPrefix,
	}, nil
}

// Serve implements suture.Service. One relay goroutine per subject, all
// stopped by context cancellation.
func (n *NATSIngest) Serve(ctx context.Context) error {
	topics := append(append([]string{}, BroadcastTopics...), TopicUser)

	streams := make(map[string]<-chan *message.Message, len(topics))
	for _, topic := range topics {
		subject := n.prefix + "." + topic
		stream, err := n.subscriber.Subscribe(ctx, subject)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", subject, err)
		}
		streams[topic] = stream
	}

	logging.Info().
		Str("component", "nats-ingest").
		Str("subject_prefix", n.prefix).
		Msg("NATS ingest started")

	done := make(chan struct{})
	for topic, stream := range streams {
		go n.relay(topic, stream, done)
	}

	<-ctx.Done()
	close(done)
	logging.Info().Str("component", "nats-ingest").Msg("NATS ingest stopped")
	return ctx.Err()
}

// relay republishes one subject's messages onto the bus. Malformed
// messages are acked and counted: redelivering them cannot make them
// parse.
func (n *NATSIngest) relay(topic string, stream <-chan *message.Message, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg, ok := <-stream:
			if !ok {
				return
			}
			n.handle(topic, msg)
		}
	}
}

func (n *NATSIngest) handle(topic string, msg *message.Message) {
	event, err := UnmarshalEvent(msg.Payload)
	if err != nil {
		metrics.NATSParseFailures.Inc()
		logging.Warn().Err(err).Str("topic", topic).Str("message_uuid", msg.UUID).Msg("dropping malformed NATS event")
		msg.Ack()
		return
	}

	if err := n.bus.Publish(topic, event); err != nil {
		logging.Error().Err(err).Str("topic", topic).Msg("failed to republish NATS event")
		msg.Nack()
		return
	}

	metrics.NATSEventsConsumed.Inc()
	msg.Ack()
}

// Close shuts the subscriber down.
func (n *NATSIngest) Close() error {
	return n.subscriber.Close()
}

// String implements fmt.Stringer for supervisor logging.
func (n *NATSIngest) String() string {
	return "nats-ingest"
}
