package notify

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/yegors/maintlog/internal/config"
	"github.com/yegors/maintlog/internal/metrics"
	"github.com/yegors/maintlog/pkg/logger"
)

// Result statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// AuthFailedMessage is the result message for rejected credentials
const AuthFailedMessage = "SMTP authentication failed."

// Email is one outgoing notification
type Email struct {
	Sender   string
	Receiver string
	Subject  string
	Body     string
}

// Result is the structured outcome of a send, returned to the calling agent
type Result struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Client delivers composed messages; *mail.Client implements it
type Client interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// ClientFactory builds the client used for one send
type ClientFactory func(cfg config.MailConfig) (Client, error)

// Notifier sends plain-text email over an implicit-TLS SMTP session
type Notifier struct {
	config    config.MailConfig
	newClient ClientFactory
	now       func() time.Time
	logger    *logger.Logger
}

// NewNotifier creates a notifier for the configured relay
func NewNotifier(cfg config.MailConfig, logger *logger.Logger) *Notifier {
	return &Notifier{
		config:    cfg,
		newClient: NewSSLClient,
		now:       time.Now,
		logger:    logger.Named("email-notifier"),
	}
}

// WithClientFactory replaces the client constructor
func (n *Notifier) WithClientFactory(factory ClientFactory) *Notifier {
	n.newClient = factory
	return n
}

// NewSSLClient creates a go-mail client that speaks TLS from the first
// byte (SMTPS, port 465) and authenticates with PLAIN
func NewSSLClient(cfg config.MailConfig) (Client, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, mail.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Send transmits one email. Every failure is reported in the Result;
// there is exactly one attempt per call.
func (n *Notifier) Send(ctx context.Context, email Email) Result {
	if email.Sender == "" {
		email.Sender = n.config.Sender
	}
	if email.Receiver == "" {
		email.Receiver = n.config.Receiver
	}

	log := n.logger.With(
		logger.String("receiver", email.Receiver),
		logger.String("subject", email.Subject))

	if email.Sender == "" || email.Receiver == "" {
		log.Warn("Email not sent, sender or receiver missing")
		metrics.RecordEmail(StatusError)
		return Result{Status: StatusError, Message: "Sender and receiver addresses are required."}
	}

	if err := n.deliver(ctx, email); err != nil {
		metrics.RecordEmail(StatusError)
		if isAuthError(err) {
			log.Warn("SMTP authentication failed", logger.Error(err))
			return Result{Status: StatusError, Message: AuthFailedMessage}
		}

		var sendErr *mail.SendError
		temporary := errors.As(err, &sendErr) && sendErr.IsTemp()
		log.Error("SMTP transport failure", logger.Error(err), logger.Bool("temporary", temporary))
		return Result{Status: StatusError, Message: fmt.Sprintf("SMTP transport failure: %v", err)}
	}

	metrics.RecordEmail(StatusSuccess)
	log.Info("Email sent")

	return Result{
		Status:    StatusSuccess,
		Message:   fmt.Sprintf("Email sent to %s", email.Receiver),
		Timestamp: n.now().Format(time.RFC3339),
	}
}

// isAuthError reports a relay refusing the credentials.
// 534: mechanism too weak / app password required, 535: bad credentials
func isAuthError(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code == 534 || tpErr.Code == 535
	}
	return false
}

func (n *Notifier) deliver(ctx context.Context, email Email) error {
	msg, err := n.compose(email)
	if err != nil {
		return err
	}

	client, err := n.newClient(n.config)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// compose builds a UTF-8 plain-text message
func (n *Notifier) compose(email Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(email.Sender); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(email.Receiver); err != nil {
		return nil, fmt.Errorf("invalid receiver address: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetDateWithValue(n.now())
	msg.SetBodyString(mail.TypeTextPlain, email.Body)
	return msg, nil
}
