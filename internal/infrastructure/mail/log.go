package mail

import (
	"context"
	"errors"

	"github.com/invoicing/backend/internal/application/document"
	"go.uber.org/zap"
)

// LogDeliverer writes deliveries to the log instead of sending them.
// Used when mail is disabled, e.g. in development.
type LogDeliverer struct {
	logger *zap.Logger
}

// NewLogDeliverer creates a LogDeliverer
func NewLogDeliverer(logger *zap.Logger) *LogDeliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDeliverer{logger: logger.Named("mail")}
}

// Deliver logs the message envelope and attachment sizes
func (d *LogDeliverer) Deliver(ctx context.Context, msg *document.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil || msg.To == "" {
		return errors.New("message recipient is required")
	}

	attachments := make([]string, 0, len(msg.Attachments))
	size := 0
	for _, att := range msg.Attachments {
		attachments = append(attachments, att.FileName)
		size += len(att.Content)
	}
	d.logger.Info("Mail delivery skipped, logging message",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Strings("attachments", attachments),
		zap.Int("attachment_bytes", size),
	)
	return nil
}

var _ document.Deliverer = (*LogDeliverer)(nil)
