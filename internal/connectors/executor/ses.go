package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailMessage is the subset of the email action params SES can deliver.
type EmailMessage struct {
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Message     string
	MessageHTML string
}

func emailMessageFrom(obj map[string]interface{}) (EmailMessage, error) {
	if _, ok := obj["attachments"]; ok {
		return EmailMessage{}, fmt.Errorf("attachments are not supported for direct email delivery")
	}
	msg := EmailMessage{
		To:          stringList(obj["to"]),
		Cc:          stringList(obj["cc"]),
		Bcc:         stringList(obj["bcc"]),
		Subject:     stringValue(obj["subject"]),
		Message:     stringValue(obj["message"]),
		MessageHTML: stringValue(obj["messageHTML"]),
	}
	if len(msg.To)+len(msg.Cc)+len(msg.Bcc) == 0 {
		return EmailMessage{}, fmt.Errorf("email has no recipients")
	}
	if msg.Subject == "" {
		return EmailMessage{}, fmt.Errorf("email subject is empty")
	}
	return msg, nil
}

func stringList(v interface{}) []string {
	list, _ := v.([]interface{})
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

// SESAPI is the part of the SES client the mailer uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends email payloads through Amazon SES.
type SESMailer struct {
	client SESAPI
	from   string
}

func NewSESMailer(client SESAPI, from string) *SESMailer {
	return &SESMailer{client: client, from: from}
}

func (m *SESMailer) Send(ctx context.Context, msg EmailMessage) (string, error) {
	body := &types.Body{Text: &types.Content{Data: aws.String(msg.Message)}}
	if msg.MessageHTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.MessageHTML)}
	}

	out, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses:  msg.To,
			CcAddresses:  msg.Cc,
			BccAddresses: msg.Bcc,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body:    body,
		},
		Source: aws.String(m.from),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}
