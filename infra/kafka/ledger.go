package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"cross/domain/book"
)

// Ledger publishes every executed trade to a Kafka topic, keyed by order id
// so all legs of one order land in the same partition in order. It is the
// durable trade record downstream consumers (persistence, analytics) read.
type Ledger struct {
	writer *kafka.Writer
}

func NewLedger(brokers []string, topic string) *Ledger {
	return &Ledger{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Record appends one trade leg. Blocks until the cluster acks.
func (l *Ledger) Record(t book.Trade) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return l.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(strconv.FormatUint(t.OrderID, 10)),
		Value: payload,
	})
}

func (l *Ledger) Close() error {
	return l.writer.Close()
}
