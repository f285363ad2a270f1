package invalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/esacci/odpcore/internal/model"
)

// Discarder drops every cached snapshot for a DRS id. Satisfied by
// *rediscache.Store and by *portal.Portal, which forwards to its Redis
// store; in-process catalog and feature-list state is not touched.
type Discarder interface {
	Discard(ctx context.Context, drsID model.DrsId) error
}

// Config mirrors the teacher's kafkaconsumer.Config shape, renamed for
// the invalidation-topic consumer group.
type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
}

// Consumer processes invalidation events from Kafka, per spec.md §3
// generalized Lifecycles note: a source that is republished upstream
// must have its cached entries dropped rather than silently served stale.
type Consumer struct {
	cfg    Config
	logger *slog.Logger
	sink   Discarder
}

func NewConsumer(cfg Config, logger *slog.Logger, sink Discarder) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{cfg: cfg, logger: logger, sink: sink}
}

// Start runs the consumer group loop until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if c.sink == nil {
		return errors.New("invalidation: missing discard sink")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("invalidation: create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.processOne}
	c.logger.Info("invalidation consumer starting", "brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.logger.Error("invalidation consumer error", "err", err)
				time.Sleep(2 * time.Second)
			}
		}
	}
}

func (c *Consumer) processOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("invalidation: decode event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		c.logger.Warn("invalidation: dropping malformed event", "err", err)
		return nil
	}
	if err := c.sink.Discard(ctx, model.DrsId(ev.DrsID)); err != nil {
		return fmt.Errorf("invalidation: discard %s: %w", ev.DrsID, err)
	}
	c.logger.Info("invalidation: discarded cached snapshot", "drs_id", ev.DrsID, "reason", ev.Reason)
	return nil
}

type groupHandler struct {
	process func(ctx context.Context, msg *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }
func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.process(sess.Context(), msg); err != nil {
				continue
			}
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}
