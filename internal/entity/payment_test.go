package entity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextPaymentState(t *testing.T) {
	tests := []struct {
		current  PaymentStatus
		incoming PaymentStatus
		want     PaymentStatus
	}{
		// pending adopts terminal outcomes
		{PaymentStatusPending, PaymentStatusConfirmed, PaymentStatusConfirmed},
		{PaymentStatusPending, PaymentStatusRejected, PaymentStatusRejected},
		{PaymentStatusPending, PaymentStatusPending, PaymentStatusPending},
		// refund is only reachable from confirmed
		{PaymentStatusPending, PaymentStatusRefunded, PaymentStatusPending},
		{PaymentStatusRejected, PaymentStatusRefunded, PaymentStatusRejected},
		// confirmed ignores stale/out-of-order deliveries
		{PaymentStatusConfirmed, PaymentStatusPending, PaymentStatusConfirmed},
		{PaymentStatusConfirmed, PaymentStatusRejected, PaymentStatusConfirmed},
		{PaymentStatusConfirmed, PaymentStatusConfirmed, PaymentStatusConfirmed},
		{PaymentStatusConfirmed, PaymentStatusRefunded, PaymentStatusRefunded},
		// refunded is final
		{PaymentStatusRefunded, PaymentStatusPending, PaymentStatusRefunded},
		{PaymentStatusRefunded, PaymentStatusConfirmed, PaymentStatusRefunded},
		{PaymentStatusRefunded, PaymentStatusRejected, PaymentStatusRefunded},
		{PaymentStatusRefunded, PaymentStatusRefunded, PaymentStatusRefunded},
		// a rejected payment may still confirm on a successful retry
		{PaymentStatusRejected, PaymentStatusConfirmed, PaymentStatusConfirmed},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s+%s", tc.current, tc.incoming), func(t *testing.T) {
			assert.Equal(t, tc.want, NextPaymentState(tc.current, tc.incoming))
		})
	}
}

func TestAppendAuditKeepsRingBounded(t *testing.T) {
	var ring []map[string]any
	for i := 0; i < AuditRingSize+10; i++ {
		ring = AppendAudit(ring, map[string]any{"seq": i})
	}
	assert.Len(t, ring, AuditRingSize)
	// oldest entries aged out, newest retained
	assert.Equal(t, 10, ring[0]["seq"])
	assert.Equal(t, AuditRingSize+9, ring[len(ring)-1]["seq"])
}

func TestAppendAuditIgnoresNilEvent(t *testing.T) {
	ring := AppendAudit(nil, nil)
	assert.Empty(t, ring)
}
