// Package mailer sends transactional email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"

	"gopkg.in/gomail.v2"
)

// Sender is satisfied by *gomail.Dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends password reset mail. ResetURL, when set, is the page the
// link in the mail points at; the token is appended as ?token=.
type Mailer struct {
	Sender   Sender
	From     string
	ResetURL string
}

func New(host string, port int, username, password, from, resetURL string) *Mailer {
	return &Mailer{
		Sender:   gomail.NewDialer(host, port, username, password),
		From:     from,
		ResetURL: resetURL,
	}
}

var resetTmpl = template.Must(template.New("reset").Parse(`<p>Someone asked to reset the password of your account.</p>
{{if .Link}}<p><a href="{{.Link}}">Choose a new password</a></p>{{end}}
<p>Reset code: <code>{{.Token}}</code></p>
<p>If it was not you, ignore this mail.</p>`))

func (m *Mailer) resetMessage(to, token string) (*gomail.Message, error) {
	link := ""
	if m.ResetURL != "" {
		u, err := url.Parse(m.ResetURL)
		if err != nil {
			return nil, fmt.Errorf("reset url: %w", err)
		}
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
		link = u.String()
	}

	var body bytes.Buffer
	if err := resetTmpl.Execute(&body, struct{ Link, Token string }{link, token}); err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset your password")
	msg.SetBody("text/html", body.String())
	return msg, nil
}

// SendPasswordReset delivers token to the given address. The SMTP dialer has
// no context support, so ctx is only checked before dialing.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	msg, err := m.resetMessage(to, token)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.Sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send reset mail to %s: %w", to, err)
	}
	return nil
}
