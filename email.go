package ayurauth

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"
)

// ConsoleCodeSender logs codes instead of emailing them. This is the
// demo-mode dispatch path: with no mail service configured the code
// must still be discoverable somewhere.
type ConsoleCodeSender struct{}

func (c *ConsoleCodeSender) SendVerificationCode(_ context.Context, toEmail, code string, expiresAt time.Time) error {
	log.Printf("\n=== EMAIL: Verification Code ===")
	log.Printf("To: %s", toEmail)
	log.Printf("Code: %s", code)
	log.Printf("Expires: %s", expiresAt.UTC().Format(time.RFC3339))
	log.Printf("================================\n")
	return nil
}

// SMTPCodeSender emails verification codes over SMTP.
type SMTPCodeSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	useTLS   bool
}

func NewSMTPCodeSender(host string, port int, username, password, from, fromName string, useTLS bool) (*SMTPCodeSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}
	return &SMTPCodeSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		useTLS:   useTLS,
	}, nil
}

func (s *SMTPCodeSender) SendVerificationCode(_ context.Context, toEmail, code string, expiresAt time.Time) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}

	subject := "AyurSutra - Email Verification Code"
	body := fmt.Sprintf(
		"Your verification code is %s.\nThis code will expire at %s UTC.\nIf you didn't request this code, please ignore this email.\n",
		code,
		expiresAt.UTC().Format(time.RFC3339),
	)
	msg := s.buildMessage(toEmail, subject, body)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if s.useTLS {
		return s.sendTLS(addr, toEmail, msg, auth)
	}
	return smtp.SendMail(addr, auth, s.from, []string{toEmail}, msg)
}

func (s *SMTPCodeSender) sendTLS(addr, toEmail string, msg []byte, auth smtp.Auth) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(s.from); err != nil {
		return err
	}
	if err := client.Rcpt(toEmail); err != nil {
		return err
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write(msg); err != nil {
		return err
	}
	return writer.Close()
}

func (s *SMTPCodeSender) buildMessage(toEmail, subject, body string) []byte {
	from := s.from
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.from)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", toEmail)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
