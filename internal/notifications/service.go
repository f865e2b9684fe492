// Package notifications formats the aggregated polling results and
// delivers them over SMTP with bounded retry.
package notifications

import (
	"errors"
	"fmt"
	"net/textproto"
	"time"

	"github.com/mmorowitz/media-monitor/internal/config"
	"github.com/mmorowitz/media-monitor/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

const (
	maxAttempts = 3
	baseDelay   = 1 * time.Second
	subject     = "Media Monitor Report"
)

// Dialer is the slice of gomail the dispatcher uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Service delivers the report email.
type Service struct {
	cfg    config.SMTPConfig
	dialer Dialer
	sleep  func(time.Duration)
}

// NewService creates a notification service for the configured SMTP
// channel.
func NewService(cfg config.SMTPConfig) *Service {
	return &Service{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Server, cfg.Port, cfg.Username, cfg.Password),
		sleep:  time.Sleep,
	}
}

// SendReport renders the report and sends it as a multipart text+HTML
// message. At most one send attempt sequence happens per run; delivery
// failure is returned for logging but must never crash the run.
func (s *Service) SendReport(report *models.Report) error {
	textBody, htmlBody := renderBodies(report)

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	return s.sendWithRetry(m)
}

// sendWithRetry attempts delivery up to maxAttempts times with
// exponential backoff (1s, 2s, ...). Authentication and recipient
// failures are terminal immediately; everything else is treated as
// transient.
func (s *Service) sendWithRetry(m *gomail.Message) error {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.dialer.DialAndSend(m)
		if err == nil {
			logrus.Info("Email sent successfully")
			return nil
		}

		switch classifyError(err) {
		case failureAuth:
			logrus.Errorf("SMTP authentication failed: %v", err)
			return fmt.Errorf("smtp authentication failed: %w", err)
		case failureRecipient:
			logrus.Errorf("SMTP recipients refused: %v", err)
			return fmt.Errorf("smtp recipients refused: %w", err)
		}

		if attempt == maxAttempts {
			logrus.Errorf("Failed to send email after %d attempts: %v", maxAttempts, err)
			return fmt.Errorf("failed to send email after %d attempts: %w", maxAttempts, err)
		}

		delay := baseDelay << (attempt - 1)
		logrus.Warnf("SMTP error on attempt %d/%d: %v. Retrying in %s...", attempt, maxAttempts, err, delay)
		s.sleep(delay)
	}

	return nil
}

type failureKind int

const (
	failureTransient failureKind = iota
	failureAuth
	failureRecipient
)

// classifyError maps SMTP reply codes onto the retry policy. Anything
// that is not a recognizable protocol error (dial failures, dropped
// connections) is transient.
func classifyError(err error) failureKind {
	var protoErr *textproto.Error
	if !errors.As(err, &protoErr) {
		return failureTransient
	}

	switch protoErr.Code {
	case 530, 534, 535:
		return failureAuth
	case 550, 551, 552, 553:
		return failureRecipient
	}
	return failureTransient
}
