package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductModel_UntrackedStockStaysNil(t *testing.T) {
	p, err := catalog.NewProduct("Consulting", "", decimal.NewFromInt(100), false, nil)
	require.NoError(t, err)

	back := ProductModelFromDomain(p).ToDomain()
	assert.Nil(t, back.StockQuantity)
	assert.False(t, back.TrackInventory)
	assert.Equal(t, p.ID, back.ID)
}

func TestInvoiceModel_KeepsItemOrder(t *testing.T) {
	issued := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	inv, err := billing.NewInvoice("INV-1", uuid.New(), issued, issued.AddDate(0, 0, 30))
	require.NoError(t, err)
	_, err = inv.AddItem(uuid.New(), "first", 1, decimal.NewFromInt(5))
	require.NoError(t, err)
	_, err = inv.AddItem(uuid.New(), "second", 2, decimal.NewFromInt(7))
	require.NoError(t, err)

	m := InvoiceModelFromDomain(inv)
	require.Len(t, m.Items, 2)
	assert.Equal(t, inv.ID, m.Items[0].InvoiceID)

	back := m.ToDomain()
	require.Len(t, back.Items, 2)
	assert.Equal(t, "first", back.Items[0].Description)
	assert.Equal(t, "second", back.Items[1].Description)
	assert.True(t, decimal.NewFromInt(14).Equal(back.Items[1].Total))
	assert.Equal(t, billing.InvoiceStatusDraft, back.Status)
}
