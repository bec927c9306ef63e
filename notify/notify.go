// Package notify sends templated email through SESv2.
//
// Notification is fire-and-forget from the caller's perspective: the
// mutation façades log a send failure and carry on.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Template names understood by the notifier.
const (
	TemplateVerifyEmail    = "verifyEmail"
	TemplateWelcome        = "welcomeEmail"
	TemplateForgotPassword = "forgotPassword"
	TemplateCredentials    = "loginCredentials"
)

// Message is one templated mail.
type Message struct {
	To       string
	Template string
	// Data feeds the template: firstName, verifyLink, resetLink, loginId,
	// password, depending on the template.
	Data map[string]string
}

// Notifier is the outbound-mail contract consumed by the mutation façades.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

var subjects = map[string]string{
	TemplateVerifyEmail:    "Email Verification",
	TemplateWelcome:        "Welcome",
	TemplateForgotPassword: "Forgot Password",
	TemplateCredentials:    "Your Login Credentials",
}

var bodies = map[string]*template.Template{
	TemplateVerifyEmail: template.Must(template.New(TemplateVerifyEmail).Parse(
		`<p>Hi {{.firstName}},</p><p>Please verify your email address by clicking <a href="{{.verifyLink}}">here</a>.</p>`)),
	TemplateWelcome: template.Must(template.New(TemplateWelcome).Parse(
		`<p>Hi {{.firstName}},</p><p>Welcome aboard. Your account is now active.</p>`)),
	TemplateForgotPassword: template.Must(template.New(TemplateForgotPassword).Parse(
		`<p>Hi {{.firstName}},</p><p>Reset your password <a href="{{.resetLink}}">here</a>.</p>`)),
	TemplateCredentials: template.Must(template.New(TemplateCredentials).Parse(
		`<p>Hi {{.firstName}},</p><p>Your account has been created. Login: {{.loginId}}, password: {{.password}}</p>`)),
}

// SES sends mail through the SESv2 API.
type SES struct {
	client *sesv2.Client
	sender string
}

// NewSES creates an SES-backed Notifier.
func NewSES(client *sesv2.Client, sender string) *SES {
	return &SES{
		client: client,
		sender: sender,
	}
}

// Send renders the template and submits the mail.
func (s *SES) Send(ctx context.Context, msg Message) error {
	body, subject, err := Render(msg)
	if err != nil {
		return err
	}

	_, err = s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.sender),
		Destination: &sestypes.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send %s mail: %w", msg.Template, err)
	}
	return nil
}

// Render produces the HTML body and subject for a message. Exposed for the
// notifier implementations and their tests.
func Render(msg Message) (body, subject string, err error) {
	tmpl, ok := bodies[msg.Template]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template %q", msg.Template)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, msg.Data); err != nil {
		return "", "", fmt.Errorf("render %s mail: %w", msg.Template, err)
	}
	return buf.String(), subjects[msg.Template], nil
}
