package mail

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/invoicing/backend/internal/application/document"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testMessage() *document.Message {
	return &document.Message{
		To:      "billing@acme.test",
		Subject: "Invoice INV-2026-000001 from Invoicing",
		Body:    "Please find your invoice attached.\nThank you.",
		Attachments: []document.Attachment{{
			FileName:    "invoice-INV-2026-000001.pdf",
			ContentType: document.ContentTypePDF,
			Content:     []byte(strings.Repeat("%PDF", 40)),
		}},
	}
}

func TestNewSMTPDeliverer(t *testing.T) {
	_, err := NewSMTPDeliverer(config.MailConfig{From: "a@b.test"}, nil)
	assert.Error(t, err)

	_, err = NewSMTPDeliverer(config.MailConfig{Host: "smtp.test"}, nil)
	assert.Error(t, err)

	d, err := NewSMTPDeliverer(config.MailConfig{Host: "smtp.test", Port: 2525, From: "a@b.test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "smtp.test:2525", d.addr)
	assert.Nil(t, d.auth)

	d, err = NewSMTPDeliverer(config.MailConfig{Host: "smtp.test", Port: 587, From: "a@b.test", Username: "u", Password: "p"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, d.auth)
}

func TestSMTPDeliverer_Deliver(t *testing.T) {
	d, err := NewSMTPDeliverer(config.MailConfig{Host: "smtp.test", Port: 25, From: "billing@invoicing.test"}, nil)
	require.NoError(t, err)
	d.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)
	d.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	msg := testMessage()
	require.NoError(t, d.Deliver(context.Background(), msg))
	assert.Equal(t, "smtp.test:25", gotAddr)
	assert.Equal(t, "billing@invoicing.test", gotFrom)
	assert.Equal(t, []string{"billing@acme.test"}, gotTo)

	parsed, err := mail.ReadMessage(strings.NewReader(string(gotMsg)))
	require.NoError(t, err)
	assert.Equal(t, "billing@acme.test", parsed.Header.Get("To"))

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, msg.Subject, subject)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	// multipart.Reader decodes quoted-printable bodies but not base64
	reader := multipart.NewReader(parsed.Body, params["boundary"])
	body, err := reader.NextPart()
	require.NoError(t, err)
	text, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "Please find your invoice attached.\r\nThank you.", string(text))

	att, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "invoice-INV-2026-000001.pdf", att.FileName())
	assert.Equal(t, document.ContentTypePDF, att.Header.Get("Content-Type"))
	encoded, err := io.ReadAll(att)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(string(encoded)), "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSMTPDeliverer_Errors(t *testing.T) {
	d, err := NewSMTPDeliverer(config.MailConfig{Host: "smtp.test", Port: 25, From: "billing@invoicing.test"}, nil)
	require.NoError(t, err)

	t.Run("send failure is wrapped", func(t *testing.T) {
		d.send = func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("connection refused")
		}
		err := d.Deliver(context.Background(), testMessage())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "billing@acme.test")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("missing recipient", func(t *testing.T) {
		err := d.Deliver(context.Background(), &document.Message{Subject: "x"})
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := d.Deliver(ctx, testMessage())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLogDeliverer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := NewLogDeliverer(zap.New(core))

	require.NoError(t, d.Deliver(context.Background(), testMessage()))

	entries := logs.FilterMessage("Mail delivery skipped, logging message").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "billing@acme.test", fields["to"])
	assert.Equal(t, int64(160), fields["attachment_bytes"])

	assert.Error(t, d.Deliver(context.Background(), &document.Message{}))
}
