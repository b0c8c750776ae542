package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/Astemirdum/library-cms/pkg/circuit_breaker"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	Host     string `yaml:"host" envconfig:"SMTP_HOST"`
	Port     string `yaml:"port" envconfig:"SMTP_PORT" default:"587"`
	Username string `yaml:"username" envconfig:"SMTP_USERNAME"`
	Password string `yaml:"password" envconfig:"SMTP_PASSWORD"`
	From     string `yaml:"from" envconfig:"SMTP_FROM" default:"library@localhost"`
	// Timeout bounds one whole delivery, dial included.
	Timeout time.Duration `yaml:"timeout" envconfig:"SMTP_TIMEOUT" default:"10s"`
}

// Message is one outbound email. HTML is optional.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTP struct {
	cfg  Config
	auth smtp.Auth
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewSMTP(cfg Config) *SMTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	d := &net.Dialer{Timeout: cfg.Timeout}
	return &SMTP{cfg: cfg, auth: auth, dial: d.DialContext}
}

// Send delivers msg within cfg.Timeout or before ctx is done, whichever
// comes first.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := compose(s.cfg.From, msg)
	if err != nil {
		return errors.Wrap(err, "compose")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	conn, err := s.dial(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "dial %s", addr)
	}
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "conn.SetDeadline")
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := s.session(conn, msg.To, body); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrapf(ctxErr, "smtp send to %s: %v", msg.To, err)
		}
		return errors.Wrapf(err, "smtp send to %s", msg.To)
	}
	return nil
}

func (s *SMTP) session(conn net.Conn, to string, body []byte) error {
	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return errors.Wrap(err, "starttls")
		}
	}
	if s.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(s.auth); err != nil {
				return errors.Wrap(err, "auth")
			}
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return errors.Wrap(err, "mail")
	}
	if err := c.Rcpt(to); err != nil {
		return errors.Wrap(err, "rcpt")
	}
	w, err := c.Data()
	if err != nil {
		return errors.Wrap(err, "data")
	}
	if _, err := w.Write(body); err != nil {
		return errors.Wrap(err, "write")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "data close")
	}
	return c.Quit()
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func compose(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\n",
		headerBreaks.Replace(from), headerBreaks.Replace(msg.To), headerBreaks.Replace(msg.Subject))
	if msg.HTML == "" {
		fmt.Fprintf(&buf, "Content-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", msg.Text)
		return buf.Bytes(), nil
	}
	var parts bytes.Buffer
	w := multipart.NewWriter(&parts)
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", w.Boundary())
	for _, p := range []struct{ ct, body string }{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	} {
		pw, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {p.ct}})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	buf.Write(parts.Bytes())
	return buf.Bytes(), nil
}

// Logging only records messages. It stands in for SMTP when no host is configured.
type Logging struct {
	log *zap.Logger
}

func NewLogging(log *zap.Logger) *Logging {
	return &Logging{log: log.Named("mailer")}
}

func (l *Logging) Send(_ context.Context, msg Message) error {
	l.log.Info("mail", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

type guarded struct {
	next Sender
	cb   circuit_breaker.CircuitBreaker
}

// WithBreaker routes every send through cb so a dead mail server is not hammered.
func WithBreaker(next Sender, cb circuit_breaker.CircuitBreaker) Sender {
	return &guarded{next: next, cb: cb}
}

func (g *guarded) Send(ctx context.Context, msg Message) error {
	return g.cb.Call(func() error {
		return g.next.Send(ctx, msg)
	})
}
