package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

func TestDispatcherPublishesPending(t *testing.T) {
	outbox := &fakeOutboxStore{pending: []entity.Notification{
		{ID: 1, Type: "ORDER_CREATED", RefTable: "orders", RefID: 10, Status: entity.NotificationPending},
		{ID: 2, Type: "PAYMENT_CONFIRMED", RefTable: "payments", RefID: 4, Status: entity.NotificationPending},
	}}
	writer := &fakeMessageWriter{}
	d := NewDispatcher(outbox, writer, time.Second)

	d.drain(context.Background())

	require.Len(t, writer.messages, 2)
	assert.Equal(t, []byte("orders-10"), writer.messages[0].Key)
	assert.Equal(t, []byte("payments-4"), writer.messages[1].Key)
	assert.Equal(t, []int{1, 2}, outbox.sent)
	assert.Empty(t, outbox.failed)
}

func TestDispatcherMarksFailedOnBrokerError(t *testing.T) {
	outbox := &fakeOutboxStore{pending: []entity.Notification{
		{ID: 1, Type: "ORDER_CREATED", RefTable: "orders", RefID: 10},
	}}
	writer := &fakeMessageWriter{err: errors.New("broker down")}
	d := NewDispatcher(outbox, writer, time.Second)

	d.drain(context.Background())

	assert.Empty(t, outbox.sent)
	assert.Equal(t, []int{1}, outbox.failed)
}

func TestDispatcherStopsOnContextCancel(t *testing.T) {
	outbox := &fakeOutboxStore{}
	d := NewDispatcher(outbox, &fakeMessageWriter{}, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
