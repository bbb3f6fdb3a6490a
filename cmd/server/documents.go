package main

import (
	"context"

	"github.com/invoicing/backend/internal/application/document"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/mail"
	"github.com/invoicing/backend/internal/infrastructure/printing"
	"github.com/invoicing/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// newRenderer returns a headless Chrome PDF renderer when printing is
// enabled and an HTML renderer otherwise. The returned func releases the
// browser.
func newRenderer(cfg config.PrintingConfig, log *zap.Logger) (document.Renderer, func(), error) {
	tmpl, err := printing.NewInvoiceTemplate(cfg.Locale)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Enabled {
		log.Info("PDF rendering disabled, invoices are rendered as HTML")
		return printing.NewHTMLRenderer(tmpl), func() {}, nil
	}

	chrome := printing.NewChromedpRenderer(&printing.ChromedpConfig{
		DefaultTimeout: cfg.Timeout,
		RemoteURL:      cfg.RemoteURL,
		ExecPath:       cfg.ChromePath,
		NoSandbox:      cfg.NoSandbox,
		Logger:         log,
	})
	renderer := printing.NewPDFDocumentRenderer(tmpl, chrome, log)
	return renderer, func() {
		if err := renderer.Close(); err != nil {
			log.Warn("Error closing PDF renderer", zap.Error(err))
		}
	}, nil
}

// newDeliverer sends mail over SMTP when enabled and logs deliveries otherwise
func newDeliverer(cfg config.MailConfig, log *zap.Logger) (document.Deliverer, error) {
	if !cfg.Enabled {
		return mail.NewLogDeliverer(log), nil
	}
	return mail.NewSMTPDeliverer(cfg, log)
}

// newArchive prefers S3, then a local directory. It returns nil when
// neither is configured.
func newArchive(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (document.Archive, error) {
	switch {
	case cfg.Enabled:
		archive, err := storage.NewS3Archive(ctx, &cfg, storage.WithLogger(log))
		if err != nil {
			return nil, err
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		log.Info("Archiving documents to S3", zap.String("bucket", archive.Bucket()))
		return archive, nil
	case cfg.LocalPath != "":
		log.Info("Archiving documents locally", zap.String("path", cfg.LocalPath))
		return storage.NewFileSystemArchive(cfg.LocalPath, log)
	default:
		log.Info("Document archiving disabled")
		return nil, nil
	}
}
