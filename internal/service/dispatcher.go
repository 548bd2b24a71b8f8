package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is satisfied by *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Dispatcher drains the notification outbox to the kafka sink. Delivery is
// at least once and fully decoupled from the transactions that queued the
// rows: a dead broker delays notifications, never payments.
type Dispatcher struct {
	outbox    OutboxStore
	writer    messageWriter
	interval  time.Duration
	batchSize int
}

func NewDispatcher(outbox OutboxStore, writer messageWriter, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		outbox:    outbox,
		writer:    writer,
		interval:  interval,
		batchSize: 50,
	}
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	notifs, err := d.outbox.FetchPending(ctx, d.batchSize)
	if err != nil {
		logger.Error().Err(err).Msg("Error fetching pending notifications")
		return
	}

	for _, n := range notifs {
		value, err := json.Marshal(n)
		if err != nil {
			logger.Error().Err(err).Msgf("Error marshaling notification %d", n.ID)
			d.outbox.MarkFailed(ctx, n.ID)
			continue
		}

		msg := kafka.Message{
			Key:   []byte(fmt.Sprintf("%s-%d", n.RefTable, n.RefID)),
			Value: value,
		}
		if err := d.writer.WriteMessages(ctx, msg); err != nil {
			logger.Error().Err(err).Msgf("Error publishing notification %d, will retry", n.ID)
			d.outbox.MarkFailed(ctx, n.ID)
			continue
		}
		d.outbox.MarkSent(ctx, n.ID)
	}
}
