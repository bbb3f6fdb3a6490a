package catalog

import (
	"context"
	"fmt"

	"github.com/invoicing/backend/internal/domain/catalog"
	"github.com/invoicing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LowStockNotifier is notified when a product's stock drops to or below the threshold
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, notification LowStockNotification) error
}

// LowStockNotification describes a product running out of stock
type LowStockNotification struct {
	ProductID string `json:"product_id"`
	Remaining int    `json:"remaining"`
	Threshold int    `json:"threshold"`
}

// LowStockHandler handles ProductStockDecreasedEvent and warns when a paid
// invoice leaves a product at or below the configured threshold
type LowStockHandler struct {
	threshold int
	logger    *zap.Logger
	notifier  LowStockNotifier
}

// NewLowStockHandler creates a new handler for stock decreased events
func NewLowStockHandler(threshold int, logger *zap.Logger) *LowStockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LowStockHandler{
		threshold: threshold,
		logger:    logger,
	}
}

// WithNotifier sets the notifier for sending notifications
func (h *LowStockHandler) WithNotifier(notifier LowStockNotifier) *LowStockHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockHandler) EventTypes() []string {
	return []string{catalog.EventTypeProductStockDecreased}
}

// Handle processes a ProductStockDecreasedEvent
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	decreased, ok := event.(*catalog.ProductStockDecreasedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", catalog.EventTypeProductStockDecreased),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			catalog.EventTypeProductStockDecreased, event.EventType())
	}

	if decreased.Remaining > h.threshold {
		return nil
	}

	h.logger.Warn("Product stock low",
		zap.String("product_id", decreased.ProductID.String()),
		zap.Int("remaining", decreased.Remaining),
		zap.Int("threshold", h.threshold),
	)

	if h.notifier == nil {
		return nil
	}
	notification := LowStockNotification{
		ProductID: decreased.ProductID.String(),
		Remaining: decreased.Remaining,
		Threshold: h.threshold,
	}
	if err := h.notifier.NotifyLowStock(ctx, notification); err != nil {
		h.logger.Error("failed to send low stock notification",
			zap.String("product_id", notification.ProductID),
			zap.Error(err),
		)
		return nil
	}
	return nil
}

var _ shared.EventHandler = (*LowStockHandler)(nil)
