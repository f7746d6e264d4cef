package contact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Relay delivers a submission somewhere a human will read it.
type Relay interface {
	Name() string
	Send(ctx context.Context, s Submission) error
}

// RelayError is a delivery the remote side refused.
type RelayError struct {
	Relay  string
	Status int
	Body   string
}

func (e *RelayError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s relay: status %d", e.Relay, e.Status)
	}
	return fmt.Sprintf("%s relay: status %d: %s", e.Relay, e.Status, e.Body)
}

// FormRelay posts submissions to a hosted form-processing endpoint as a
// regular urlencoded form. Any 2xx response is a delivery.
type FormRelay struct {
	Endpoint string
	Client   *http.Client
}

// NewFormRelay creates a relay with its own timeout-bound client.
func NewFormRelay(endpoint string, timeout time.Duration) *FormRelay {
	return &FormRelay{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
}

func (r *FormRelay) Name() string { return "form" }

func (r *FormRelay) Send(ctx context.Context, s Submission) error {
	form := url.Values{
		"name":     {s.Name},
		"email":    {s.Email},
		"message":  {s.Message},
		"_replyto": {s.Email},
		"_subject": {s.Subject()},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building form request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to form endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &RelayError{Relay: r.Name(), Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPRelay mails submissions through an SMTP server with PLAIN auth.
type SMTPRelay struct {
	Host string
	Port string
	User string
	Pass string
	To   string

	send SendMailFunc
}

// NewSMTPRelay returns a relay that uses smtp.SendMail.
func NewSMTPRelay(host, port, user, pass, to string) *SMTPRelay {
	return &SMTPRelay{Host: host, Port: port, User: user, Pass: pass, To: to, send: smtp.SendMail}
}

func (r *SMTPRelay) Name() string { return "smtp" }

// Send ignores ctx beyond an early check; net/smtp has no cancellation.
func (r *SMTPRelay) Send(ctx context.Context, s Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.User == "" || r.Pass == "" {
		return fmt.Errorf("SMTP credentials not configured")
	}

	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, s.Name, s.Email, s.Message)

	msg := []byte("To: " + r.To + "\r\n" +
		"Subject: " + s.Subject() + "\r\n" +
		"From: " + r.User + "\r\n" +
		"Reply-To: " + s.Email + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", r.User, r.Pass, r.Host)
	if err := r.send(r.Host+":"+r.Port, auth, r.User, []string{r.To}, msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}

// LogRelay only logs. For development.
type LogRelay struct {
	Logger *zap.Logger
}

func (r *LogRelay) Name() string { return "log" }

func (r *LogRelay) Send(_ context.Context, s Submission) error {
	r.Logger.Info("contact submission",
		zap.String("name", s.Name),
		zap.String("email", s.Email),
		zap.Int("message_len", len(s.Message)))
	return nil
}
