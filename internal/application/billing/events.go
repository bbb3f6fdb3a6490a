package billing

import (
	"context"

	"github.com/invoicing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// publishEvents publishes the pending events of the given aggregates after
// the transaction committed. Failures are logged; the operation already
// succeeded and is not rolled back.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, aggregates ...shared.AggregateRoot) {
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		events := agg.GetDomainEvents()
		agg.ClearDomainEvents()
		if publisher == nil || len(events) == 0 {
			continue
		}
		if err := publisher.Publish(ctx, events...); err != nil {
			logger.Warn("Failed to publish domain events",
				zap.String("aggregate_id", agg.GetID().String()),
				zap.Int("event_count", len(events)),
				zap.Error(err),
			)
		}
	}
}
