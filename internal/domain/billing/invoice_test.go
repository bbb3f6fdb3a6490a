package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testIssuedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	testDueAt    = time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
)

func newDraftInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice("INV-20260301-0000000001", uuid.New(), testIssuedAt, testDueAt)
	require.NoError(t, err)
	return inv
}

func TestNewInvoice(t *testing.T) {
	t.Run("creates draft with zero totals", func(t *testing.T) {
		inv := newDraftInvoice(t)

		assert.Equal(t, InvoiceStatusDraft, inv.Status)
		assert.True(t, inv.Subtotal.IsZero())
		assert.True(t, inv.TaxAmount.IsZero())
		assert.True(t, inv.TotalAmount.IsZero())
		assert.Empty(t, inv.Items)

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeInvoiceCreated, events[0].EventType())
	})

	t.Run("rejects due date before issue date", func(t *testing.T) {
		_, err := NewInvoice("INV-1", uuid.New(), testDueAt, testIssuedAt)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("rejects missing customer", func(t *testing.T) {
		_, err := NewInvoice("INV-1", uuid.Nil, testIssuedAt, testDueAt)
		require.Error(t, err)
	})

	t.Run("rejects empty number", func(t *testing.T) {
		_, err := NewInvoice(" ", uuid.New(), testIssuedAt, testDueAt)
		require.Error(t, err)
	})
}

func TestInvoice_AddItem(t *testing.T) {
	t.Run("computes item total from snapshot price", func(t *testing.T) {
		inv := newDraftInvoice(t)

		item, err := inv.AddItem(uuid.New(), "Widget", 3, decimal.RequireFromString("10.00"))
		require.NoError(t, err)

		assert.Equal(t, "30", item.Total.String())
		assert.Equal(t, 1, item.Position)
		assert.Equal(t, inv.ID, item.InvoiceID)
		assert.Equal(t, 1, inv.ItemCount())
	})

	t.Run("assigns increasing positions", func(t *testing.T) {
		inv := newDraftInvoice(t)
		_, err := inv.AddItem(uuid.New(), "A", 1, decimal.NewFromInt(1))
		require.NoError(t, err)
		second, err := inv.AddItem(uuid.New(), "B", 1, decimal.NewFromInt(1))
		require.NoError(t, err)
		assert.Equal(t, 2, second.Position)
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		inv := newDraftInvoice(t)
		_, err := inv.AddItem(uuid.New(), "Widget", 0, decimal.NewFromInt(1))
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	for _, status := range []InvoiceStatus{InvoiceStatusPaid, InvoiceStatusCancelled} {
		t.Run("rejects items on "+status.String()+" invoice", func(t *testing.T) {
			inv := newDraftInvoice(t)
			inv.Status = status

			_, err := inv.AddItem(uuid.New(), "Widget", 1, decimal.NewFromInt(1))
			assert.True(t, errors.Is(err, shared.ErrInvalidState))
			assert.Empty(t, inv.Items)
		})
	}
}

func TestInvoice_RemoveAndUpdateItem(t *testing.T) {
	inv := newDraftInvoice(t)
	item, err := inv.AddItem(uuid.New(), "Widget", 2, decimal.NewFromInt(5))
	require.NoError(t, err)

	updated, err := inv.UpdateItemQuantity(item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, "20", updated.Total.String())

	_, err = inv.UpdateItemQuantity(uuid.New(), 1)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	require.NoError(t, inv.RemoveItem(item.ID))
	assert.Empty(t, inv.Items)
	assert.True(t, errors.Is(inv.RemoveItem(item.ID), shared.ErrNotFound))

	inv.Status = InvoiceStatusPaid
	assert.True(t, errors.Is(inv.RemoveItem(uuid.New()), shared.ErrInvalidState))
	_, err = inv.UpdateItemQuantity(uuid.New(), 1)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

func TestInvoice_StatusTransitions(t *testing.T) {
	t.Run("draft to sent", func(t *testing.T) {
		inv := newDraftInvoice(t)
		require.NoError(t, inv.MarkSent())
		assert.Equal(t, InvoiceStatusSent, inv.Status)
		assert.NotNil(t, inv.SentAt)
		assert.Error(t, inv.MarkSent())
	})

	t.Run("mark paid is a one-way latch", func(t *testing.T) {
		inv := newDraftInvoice(t)
		require.NoError(t, inv.MarkPaid())
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.NotNil(t, inv.PaidAt)

		err := inv.MarkPaid()
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.Contains(t, err.Error(), "already paid")
	})

	t.Run("cancelled invoice cannot be paid", func(t *testing.T) {
		inv := newDraftInvoice(t)
		require.NoError(t, inv.Cancel())
		assert.True(t, errors.Is(inv.MarkPaid(), shared.ErrInvalidState))
		assert.True(t, errors.Is(inv.Cancel(), shared.ErrInvalidState))
	})

	t.Run("paid invoice cannot be cancelled", func(t *testing.T) {
		inv := newDraftInvoice(t)
		require.NoError(t, inv.MarkPaid())
		assert.True(t, errors.Is(inv.Cancel(), shared.ErrInvalidState))
	})

	t.Run("locked invoice rejects detail changes", func(t *testing.T) {
		inv := newDraftInvoice(t)
		require.NoError(t, inv.Cancel())
		assert.True(t, errors.Is(inv.UpdateDetails(testDueAt, "x"), shared.ErrInvalidState))
	})
}

func TestInvoice_EffectiveStatus(t *testing.T) {
	inv := newDraftInvoice(t)
	inv.Status = InvoiceStatusSent

	assert.Equal(t, InvoiceStatusSent, inv.EffectiveStatus(testDueAt))
	assert.Equal(t, InvoiceStatusOverdue, inv.EffectiveStatus(testDueAt.AddDate(0, 0, 1)))

	inv.Status = InvoiceStatusPaid
	assert.Equal(t, InvoiceStatusPaid, inv.EffectiveStatus(testDueAt.AddDate(0, 1, 0)))

	inv.Status = InvoiceStatusCancelled
	assert.False(t, inv.IsOverdue(testDueAt.AddDate(0, 1, 0)))
}

func TestInvoice_BalanceDue(t *testing.T) {
	inv := newDraftInvoice(t)
	inv.TotalAmount = decimal.RequireFromString("33.00")

	assert.Equal(t, "33", inv.BalanceDue(decimal.Zero).String())
	assert.Equal(t, "13", inv.BalanceDue(decimal.NewFromInt(20)).String())
	assert.True(t, inv.BalanceDue(decimal.NewFromInt(50)).IsZero())
}

func TestInvoice_Clone(t *testing.T) {
	src := newDraftInvoice(t)
	src.Notes = "monthly retainer"
	_, err := src.AddItem(uuid.New(), "Old price widget", 2, decimal.RequireFromString("7.25"))
	require.NoError(t, err)
	newTestReconciler(t).Apply(src)
	require.NoError(t, src.MarkPaid())

	clone, err := src.Clone("INV-20260401-0000000002", testIssuedAt, testDueAt.AddDate(0, 1, 0))
	require.NoError(t, err)

	assert.NotEqual(t, src.ID, clone.ID)
	assert.Equal(t, InvoiceStatusDraft, clone.Status)
	assert.Equal(t, src.CustomerID, clone.CustomerID)
	assert.Equal(t, "monthly retainer", clone.Notes)
	require.Len(t, clone.Items, 1)
	assert.Equal(t, clone.ID, clone.Items[0].InvoiceID)
	assert.NotEqual(t, src.Items[0].ID, clone.Items[0].ID)
	assert.Equal(t, "Old price widget", clone.Items[0].Description)
	assert.True(t, src.Items[0].UnitPrice.Equal(clone.Items[0].UnitPrice))
	assert.True(t, src.TotalAmount.Equal(clone.TotalAmount))
}

func TestInvoiceStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, InvoiceStatusDraft.CanTransitionTo(InvoiceStatusSent))
	assert.True(t, InvoiceStatusSent.CanTransitionTo(InvoiceStatusPaid))
	assert.True(t, InvoiceStatusOverdue.CanTransitionTo(InvoiceStatusCancelled))
	assert.False(t, InvoiceStatusSent.CanTransitionTo(InvoiceStatusDraft))
	assert.False(t, InvoiceStatusPaid.CanTransitionTo(InvoiceStatusCancelled))
	assert.False(t, InvoiceStatusCancelled.CanTransitionTo(InvoiceStatusPaid))
	assert.False(t, InvoiceStatus("BOGUS").IsValid())
}
