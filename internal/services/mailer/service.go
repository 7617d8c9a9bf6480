// -----------------------------------------------------------------------
// Mailer Service - SMTP delivery of call results
// Credentials come from config with KeyValue storage overrides (smtp_ prefix)
// -----------------------------------------------------------------------

package mailer

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/ternarybob/arbor"
)

const fromName = "Parlo"

// Service sends result emails over SMTP
type Service struct {
	config    *common.MailConfig
	kvStorage interfaces.KeyValueStorage
	logger    arbor.ILogger
}

// NewService creates a new mailer service. kvStorage overrides survive
// reset_on_startup, so operators can rotate credentials without config edits.
func NewService(config *common.MailConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	return &Service{
		config:    config,
		kvStorage: kvStorage,
		logger:    logger,
	}
}

// resolvedConfig merges config file values with KeyValue storage overrides
func (s *Service) resolvedConfig(ctx context.Context) *common.MailConfig {
	resolved := *s.config
	if resolved.Port == 0 {
		resolved.Port = 587
	}

	if s.kvStorage == nil {
		return &resolved
	}

	if host, err := s.kvStorage.Get(ctx, "smtp_host"); err == nil && host != "" {
		resolved.Host = host
	}
	if portStr, err := s.kvStorage.Get(ctx, "smtp_port"); err == nil && portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			resolved.Port = port
		}
	}
	if username, err := s.kvStorage.Get(ctx, "smtp_username"); err == nil && username != "" {
		resolved.Username = username
	}
	if password, err := s.kvStorage.Get(ctx, "smtp_password"); err == nil && password != "" {
		resolved.Password = password
	}
	if from, err := s.kvStorage.Get(ctx, "smtp_from"); err == nil && from != "" {
		resolved.From = from
	}

	return &resolved
}

// IsConfigured checks that the minimum SMTP settings are present
func (s *Service) IsConfigured(ctx context.Context) bool {
	config := s.resolvedConfig(ctx)
	return config.Host != "" && config.Username != "" && config.Password != "" && config.From != ""
}

// Send delivers a multipart plain/HTML email. htmlBody may be empty, in
// which case a plain text message is sent.
func (s *Service) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	config := s.resolvedConfig(ctx)

	if config.Host == "" {
		return fmt.Errorf("SMTP host not configured")
	}
	if config.Username == "" || config.Password == "" {
		return fmt.Errorf("SMTP credentials not configured")
	}
	if config.From == "" {
		return fmt.Errorf("from email not configured")
	}

	msg := buildMessage(config.From, to, subject, textBody, htmlBody)

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	if err := s.sendWithTLS(addr, auth, config.From, to, msg); err != nil {
		return err
	}

	s.logger.Info().Str("to", to).Str("subject", subject).Msg("Result email sent")
	return nil
}

// buildMessage assembles the RFC 5322 message body. HTML and text parts are
// base64 encoded to stay under the 998 character line limit.
func buildMessage(from, to, subject, textBody, htmlBody string) string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", fromName, from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))

	if htmlBody == "" {
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(textBody)
		return msg.String()
	}

	boundary := generateBoundary()
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	msg.WriteString("\r\n")

	if textBody != "" {
		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(encodeBase64WithLineBreaks(textBody))
		msg.WriteString("\r\n")
	}

	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("Content-Transfer-Encoding: base64\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(encodeBase64WithLineBreaks(htmlBody))
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	return msg.String()
}

// sendWithTLS connects over direct TLS, falling back to STARTTLS
func (s *Service) sendWithTLS(addr string, auth smtp.Auth, from, to, msg string) error {
	host := strings.Split(addr, ":")[0]

	conn, err := tls.Dial("tcp", addr, &tls.Config{
		ServerName: host,
	})
	if err != nil {
		return s.sendWithSTARTTLS(addr, auth, from, to, msg)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	return transmit(client, auth, from, to, msg)
}

// sendWithSTARTTLS connects plain and upgrades the connection
func (s *Service) sendWithSTARTTLS(addr string, auth smtp.Auth, from, to, msg string) error {
	host := strings.Split(addr, ":")[0]

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	return transmit(client, auth, from, to, msg)
}

func transmit(client *smtp.Client, auth smtp.Auth, from, to, msg string) error {
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set mail recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// generateBoundary creates a random MIME boundary
func generateBoundary() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "parlo-boundary-fallback"
	}
	return "parlo-" + base64.RawURLEncoding.EncodeToString(b)
}

// encodeBase64WithLineBreaks encodes content in 76 character lines per
// RFC 2045
func encodeBase64WithLineBreaks(content string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(content))

	var result strings.Builder
	for len(encoded) > 76 {
		result.WriteString(encoded[:76])
		result.WriteString("\r\n")
		encoded = encoded[76:]
	}
	result.WriteString(encoded)
	return result.String()
}
