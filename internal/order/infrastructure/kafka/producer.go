package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter returns a topic-less writer; the outbox dispatcher sets the
// topic on each message.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}
