package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUnpaid(price float64) *Booking {
	return &Booking{Price: price, Status: StatusPending, PaymentStatus: PaymentUnpaid, BalanceRemaining: price}
}

func TestApplyPaymentDeposit(t *testing.T) {
	b := newUnpaid(500)

	require.True(t, b.ApplyPayment(Payment{Reference: "SB-1", Amount: 225}))
	assert.Equal(t, PaymentDepositPaid, b.PaymentStatus)
	assert.Equal(t, StatusAccepted, b.Status)
	assert.Equal(t, 225.0, b.DepositPaid)
	assert.Equal(t, 275.0, b.BalanceRemaining)
	assert.Equal(t, "SB-1", b.PaymentReference)
}

func TestApplyPaymentRedeliveryIsNoop(t *testing.T) {
	b := newUnpaid(500)
	require.True(t, b.ApplyPayment(Payment{Reference: "SB-1", Amount: 225}))

	assert.False(t, b.ApplyPayment(Payment{Reference: "SB-1", Amount: 225}))
	assert.Equal(t, 225.0, b.DepositPaid)
}

func TestApplyPaymentSecondDepositDoesNotRegress(t *testing.T) {
	b := newUnpaid(500)
	require.True(t, b.ApplyPayment(Payment{Reference: "SB-1", Amount: 225}))

	// A second partial payment that still leaves a balance cannot advance the status.
	assert.False(t, b.ApplyPayment(Payment{Reference: "SB-2", Amount: 10}))
	assert.Equal(t, PaymentDepositPaid, b.PaymentStatus)
	assert.Equal(t, 225.0, b.DepositPaid)
}

func TestApplyPaymentSettlesBalance(t *testing.T) {
	b := newUnpaid(500)
	require.True(t, b.ApplyPayment(Payment{Reference: "SB-1", Amount: 225}))
	require.True(t, b.ApplyPayment(Payment{Reference: "SB-2", Amount: 300}))

	assert.Equal(t, PaymentFullyPaid, b.PaymentStatus)
	assert.Equal(t, 525.0, b.DepositPaid)
	assert.Equal(t, 0.0, b.BalanceRemaining)

	assert.False(t, b.ApplyPayment(Payment{Reference: "SB-3", Amount: 100}))
}

func TestReminderTime(t *testing.T) {
	appt := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), ReminderTime(appt))
}

func TestReminderDue(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	b := &Booking{Status: StatusAccepted, ReminderAt: now}
	assert.True(t, b.ReminderDue(now))

	b.ReminderSent = true
	assert.False(t, b.ReminderDue(now))

	b = &Booking{Status: StatusPending, ReminderAt: now}
	assert.False(t, b.ReminderDue(now))

	b = &Booking{Status: StatusAccepted, ReminderAt: now.Add(time.Minute)}
	assert.False(t, b.ReminderDue(now))
}
