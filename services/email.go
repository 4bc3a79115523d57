package services

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"strconv"
	"time"

	"github.com/wneessen/go-mail"
)

const sendTimeout = 15 * time.Second

// SendEmail delivers one HTML mail over SMTP using the outbound-mail
// credentials from the environment.
func SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	port, _ := strconv.Atoi(os.Getenv("MAIL_PORT"))
	if port == 0 {
		port = 587
	}

	msg := mail.NewMsg()
	if err := msg.From(os.Getenv("MAIL_FROM")); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(os.Getenv("MAIL_HOST"),
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(os.Getenv("MAIL_USERNAME")),
		mail.WithPassword(os.Getenv("MAIL_PASSWORD")),
	)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return client.DialAndSendWithContext(ctx, msg)
}

func SendResetPasswordEmail(ctx context.Context, to, fullName, resetURL string, expiryMinutes int) error {
	body := resetPasswordRequestBody(fullName, resetURL, expiryMinutes)
	return SendEmail(ctx, to, "Reset your chat-buddy password request", body)
}

func SendPasswordChangedEmail(ctx context.Context, to, fullName, baseURL string) error {
	body := resetPasswordSuccessBody(fullName, baseURL)
	return SendEmail(ctx, to, "Password changed Successfully", body)
}

func resetPasswordRequestBody(fullName, resetURL string, expiryMinutes int) string {
	return fmt.Sprintf(`<p>Hi %s,</p>
<p>You have received this email because a password reset request for your account was received.</p>
<p>Click the button below to reset your password:</p>
<p><a href="%s">Reset your password</a></p>
<p>If you did not request this, you can safely ignore this email and your password will remain unchanged.<br />
<strong>Do not forward or give this link to anyone.</strong><br />
This password reset link will <strong>expire after %d minutes.</strong></p>`,
		template.HTMLEscapeString(fullName), resetURL, expiryMinutes)
}

func resetPasswordSuccessBody(fullName, baseURL string) string {
	loginURL := baseURL + "/login"
	forgotURL := baseURL + "/forgot-password"
	return fmt.Sprintf(`<p>Hi %s,</p>
<p>This is a confirmation that you have changed Password for your account.</p>
<p><a href="%s">Login</a></p>
<p>NOTE: If you did not request this, please visit <a href="%s">%s</a> to reset your password.</p>`,
		template.HTMLEscapeString(fullName), loginURL, forgotURL, forgotURL)
}
