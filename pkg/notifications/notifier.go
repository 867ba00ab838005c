// Package notifications delivers email to participants through a pool of
// SMTP servers. The only message currently sent is the completion
// confirmation after a participant's final photo arrived.
package notifications

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
)

var ErrNoRecipient = errors.New("participant has no email address")

const defaultCompletionSubject = "All your photos have been received"

const defaultCompletionTemplate = `<html><body>
<p>Hi {{.Reference}},</p>
<p>All {{.ExpectedCount}} of your photos for {{.Domain}} have been received. Your submission set is now being checked against the competition rules.</p>
<p>You do not need to do anything else.</p>
</body></html>`

// MailSender is the send side the notifier needs from the SMTP client.
type MailSender interface {
	SendMail(to []string, subject string, htmlContent string) error
}

type TemplateConfig struct {
	CompletionSubject  string `yaml:"completion_subject"`
	CompletionTemplate string `yaml:"completion_template"`
}

type Notifier struct {
	sender             MailSender
	completionSubject  string
	completionTemplate *template.Template
}

func NewNotifier(sender MailSender, cfg TemplateConfig) (*Notifier, error) {
	subject := cfg.CompletionSubject
	if subject == "" {
		subject = defaultCompletionSubject
	}
	body := cfg.CompletionTemplate
	if strings.TrimSpace(body) == "" {
		body = defaultCompletionTemplate
	}

	tmpl, err := template.New("completion").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("error when parsing completion template: %v", err)
	}

	return &Notifier{
		sender:             sender,
		completionSubject:  subject,
		completionTemplate: tmpl,
	}, nil
}

// SendCompletionNotification emails the participant that their set is full.
// Participants registered without an address are not an error at the queue
// level; the caller decides whether ErrNoRecipient consumes the trigger.
func (n *Notifier) SendCompletionNotification(participant types.Participant) error {
	if participant.Email == "" {
		return ErrNoRecipient
	}

	var body bytes.Buffer
	if err := n.completionTemplate.Execute(&body, participant); err != nil {
		return fmt.Errorf("error during executing completion template: %v", err)
	}

	return n.sender.SendMail([]string{participant.Email}, n.completionSubject, body.String())
}
