package queue

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/IBM/sarama"

	"github.com/zk94007/osum-vsl/shared/types"
)

// Producer enqueues stage work. One shared instance per process.
type Producer struct {
	producer sarama.SyncProducer
}

// NewProducer creates a sync producer requiring full ISR acknowledgement, so
// an enqueued stage hop is never silently lost.
func NewProducer(brokers []string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V3_6_0_0
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create Kafka producer: %w", err)
	}
	return &Producer{producer: p}, nil
}

// Enqueue publishes a StageMessage to the stage's topic, keyed by job id so a
// job's hops stay ordered within a partition.
func (p *Producer) Enqueue(stage types.Stage, msg *types.StageMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: Topic(stage),
		Key:   sarama.StringEncoder(msg.JobID),
		Value: sarama.ByteEncoder(raw),
	})
	if err != nil {
		return fmt.Errorf("enqueue %s for job %s: %w", stage, msg.JobID, err)
	}

	log.Printf("📤 Enqueued %s for job %s (partition=%d, offset=%d)", stage, msg.JobID, partition, offset)
	return nil
}

// Close shuts the producer down.
func (p *Producer) Close() error {
	return p.producer.Close()
}
