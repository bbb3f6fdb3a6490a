// Package mail delivers invoice documents to customers.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/application/document"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// sendFunc matches smtp.SendMail
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPDeliverer sends documents as e-mail attachments
type SMTPDeliverer struct {
	addr   string
	host   string
	from   string
	auth   smtp.Auth
	send   sendFunc
	now    func() time.Time
	logger *zap.Logger
}

// NewSMTPDeliverer creates a deliverer for the configured SMTP relay
func NewSMTPDeliverer(cfg config.MailConfig, logger *zap.Logger) (*SMTPDeliverer, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail sender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &SMTPDeliverer{
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:   cfg.Host,
		from:   cfg.From,
		send:   smtp.SendMail,
		now:    time.Now,
		logger: logger,
	}
	if cfg.Username != "" {
		d.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return d, nil
}

// Deliver sends the message. smtp.SendMail has no context support, so the
// context is only checked before sending.
func (d *SMTPDeliverer) Deliver(ctx context.Context, msg *document.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil || msg.To == "" {
		return errors.New("message recipient is required")
	}

	raw, err := d.build(msg)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}
	if err := d.send(d.addr, d.auth, d.from, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}

	d.logger.Info("Mail sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

// build renders an RFC 5322 message with a text body and base64 attachments
func (d *SMTPDeliverer) build(msg *document.Message) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	header("From", d.from)
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", d.now().Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), d.host))
	header("MIME-Version", "1.0")
	header("Content-Type", "multipart/mixed; boundary="+w.Boundary())
	buf.WriteString("\r\n")

	body, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return nil, err
	}
	if err := writeQuotedPrintable(body, msg.Body); err != nil {
		return nil, err
	}

	for _, att := range msg.Attachments {
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {att.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": att.FileName})},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64Lines(part, att.Content); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64Lines wraps base64 output at 76 characters
func writeBase64Lines(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := w.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err := w.Write([]byte(encoded + "\r\n"))
	return err
}

func writeQuotedPrintable(w io.Writer, text string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(strings.ReplaceAll(text, "\n", "\r\n"))); err != nil {
		return err
	}
	return qp.Close()
}

var _ document.Deliverer = (*SMTPDeliverer)(nil)
