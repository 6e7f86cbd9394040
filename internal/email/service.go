// Package email delivers contact inquiries via SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
)

var ErrNotConfigured = errors.New("email not configured")

// Config holds SMTP configuration.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	// To receives contact inquiries.
	To string
}

// Inquiry is a message left through the public contact form.
type Inquiry struct {
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Telefono string `json:"telefono,omitempty"`
	Mensaje  string `json:"mensaje"`
}

// Validate returns a field -> message map of problems, empty when valid.
func (i Inquiry) Validate() map[string]string {
	problems := map[string]string{}
	if strings.TrimSpace(i.Nombre) == "" {
		problems["nombre"] = "El nombre es requerido"
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(i.Email)); err != nil {
		problems["email"] = "Debe ser un email válido"
	}
	if strings.TrimSpace(i.Mensaje) == "" {
		problems["mensaje"] = "El mensaje es requerido"
	}
	if len(i.Mensaje) > 5000 {
		problems["mensaje"] = "El mensaje es demasiado largo"
	}
	return problems
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service sends mail through one SMTP relay.
type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured returns true if the relay and both addresses are set.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != "" && s.config.To != ""
}

// SendInquiry forwards a contact inquiry to the configured inbox with
// Reply-To set to the visitor.
func (s *Service) SendInquiry(inquiry Inquiry) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	html, err := renderInquiry(inquiry)
	if err != nil {
		return fmt.Errorf("render inquiry template: %w", err)
	}
	subject := "Nueva consulta de " + headerSafe(inquiry.Nombre)
	return s.sendHTML([]string{s.config.To}, headerSafe(inquiry.Email), subject, html)
}

func (s *Service) sendHTML(to []string, replyTo, subject, htmlBody string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = (&mail.Address{Name: s.config.FromName, Address: s.config.From}).String()
	}

	boundary := "boundary-tresde"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	if replyTo != "" {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", replyTo)
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Nueva consulta recibida desde el sitio web.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return s.send(s.server, s.auth, s.config.From, to, msg.Bytes())
}

// headerSafe strips line breaks so visitor input cannot inject headers.
func headerSafe(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(strings.TrimSpace(value))
}

var inquiryTmpl = template.Must(template.New("inquiry").Parse(inquiryTemplate))

func renderInquiry(inquiry Inquiry) (string, error) {
	var buf bytes.Buffer
	if err := inquiryTmpl.Execute(&buf, inquiry); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const inquiryTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Nueva consulta</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #111; padding-bottom: 10px; margin-bottom: 20px; }
        .label { font-weight: bold; }
        .message { white-space: pre-wrap; background: #f6f6f6; padding: 12px; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>TresDe</h1>
    </div>
    <p><span class="label">Nombre:</span> {{.Nombre}}</p>
    <p><span class="label">Email:</span> {{.Email}}</p>
    {{if .Telefono}}<p><span class="label">Teléfono:</span> {{.Telefono}}</p>{{end}}
    <div class="message">{{.Mensaje}}</div>
</body>
</html>`
