package invalidation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Producer emits discard events onto the invalidation topic. Nothing in
// this repository constructs one; the portal has no admin path.
type Producer struct {
	sp    sarama.SyncProducer
	topic string
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	sp, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("invalidation: new producer: %w", err)
	}
	return &Producer{sp: sp, topic: topic}, nil
}

func (p *Producer) Emit(drsID, reason string) error {
	ev := Event{Version: 1, DrsID: drsID, Reason: reason, TS: time.Now()}
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("invalidation: encode event: %w", err)
	}
	_, _, err = p.sp.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(drsID),
		Value: sarama.ByteEncoder(raw),
	})
	if err != nil {
		return fmt.Errorf("invalidation: send: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.sp.Close()
}
