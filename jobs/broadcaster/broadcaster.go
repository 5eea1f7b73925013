package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"cross/infra/outbox"
)

const maxRetries = 5

// Broadcaster drains the notification outbox into a Kafka topic. It is the
// at-least-once leg of the notification fan-out: the in-process push to
// connected clients is best-effort, this one survives crashes and redelivers
// anything not acked by the broker.
type Broadcaster struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.Logger
}

func New(
	ob *outbox.Outbox,
	brokers []string,
	topic string,
	log *zap.Logger,
) (*Broadcaster, error) {

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = maxRetries

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		outbox:   ob,
		producer: producer,
		topic:    topic,
		interval: 250 * time.Millisecond,
		log:      log,
	}, nil
}

// Start runs the drain loop until ctx is cancelled.
func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("broadcaster started", zap.String("topic", b.topic))

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-ticker.C:
				b.drainOnce()
				if err := b.outbox.TruncateAcked(); err != nil {
					b.log.Warn("outbox truncate failed", zap.Error(err))
				}
			}
		}
	}()
}

// drainOnce walks every pending envelope in sequence order. Marking SENT
// before publishing means a crash between publish and ack redelivers; the
// payload carries the order id, so consumers can dedupe.
func (b *Broadcaster) drainOnce() {
	err := b.outbox.ScanPending(func(seq uint64, rec outbox.Record) error {
		if rec.Retries >= maxRetries {
			b.log.Error("notification past retry budget",
				zap.Uint64("seq", seq),
				zap.String("owner", rec.Owner))
			return b.outbox.MarkFailed(seq, rec.Retries)
		}

		if err := b.outbox.MarkSent(seq, rec.Retries+1); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(rec.Owner),
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn("notification publish failed",
				zap.Uint64("seq", seq),
				zap.Error(err))
			return nil // stays SENT, retried next tick
		}

		return b.outbox.MarkAcked(seq)
	})
	if err != nil {
		b.log.Warn("outbox scan failed", zap.Error(err))
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
