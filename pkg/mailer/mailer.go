package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	defaultHost = "https://api.sendgrid.com"
	endpoint    = "/v3/mail/send"
)

// ErrDisabled is returned when no mail provider is configured.
var ErrDisabled = errors.New("mail delivery disabled")

// Message is a single transactional email.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	Text      string
	HTML      string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridConfig configures the SendGrid mailer.
type SendGridConfig struct {
	APIKey      string
	FromName    string
	FromAddress string
	Host        string
}

// SendGrid implements Mailer with the SendGrid v3 API.
type SendGrid struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	logger     zerolog.Logger
}

// NewSendGrid builds a SendGrid mailer.
func NewSendGrid(cfg SendGridConfig, logger zerolog.Logger) (*SendGrid, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	return &SendGrid{
		key:        cfg.APIKey,
		host:       host,
		from:       sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		subjPrefix: "[" + cfg.FromName + "] ",
		logger:     logger.With().Str("component", "sendgrid_mailer").Logger(),
	}, nil
}

// Send delivers the message synchronously so callers can report the outcome.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if msg.ToAddress == "" {
		return fmt.Errorf("recipient address is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(s.key, endpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		s.logger.Error().Err(err).Msg("sending email")
		return fmt.Errorf("send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		s.logger.Error().Int("status", res.StatusCode).Str("body", res.Body).Msg("sendgrid rejected email")
		return fmt.Errorf("send email: status %d", res.StatusCode)
	}

	s.logger.Info().Str("subject", msg.Subject).Msg("email sent")
	return nil
}

func (s *SendGrid) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return m
}

// Disabled is used when no provider is configured; every send fails with ErrDisabled.
type Disabled struct {
	Logger zerolog.Logger
}

// Send logs the skipped delivery and reports ErrDisabled.
func (d Disabled) Send(_ context.Context, msg Message) error {
	d.Logger.Warn().Str("subject", msg.Subject).Msg("mail delivery disabled, message dropped")
	return ErrDisabled
}
