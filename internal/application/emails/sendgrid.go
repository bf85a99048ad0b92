package emails

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendgridClient is the alternative provider, selected with MAIL_PROVIDER=sendgrid.
type SendgridClient struct {
	APIKey    string
	MailFrom  string
	PortalURL string
	client    *sendgrid.Client
}

func NewSendgridClient(apiKey, mailFrom, portalURL string) *SendgridClient {
	return &SendgridClient{
		APIKey:    apiKey,
		MailFrom:  mailFrom,
		PortalURL: portalURL,
		client:    sendgrid.NewSendClient(apiKey),
	}
}

// SetBaseURL points the client at another host (tests).
func (c *SendgridClient) SetBaseURL(url string) {
	c.client.Request.BaseURL = url + "/v3/mail/send"
}

func (c *SendgridClient) send(ctx context.Context, toEmail, toName string, m message) error {
	if c.APIKey == "" {
		return nil
	}
	email := mail.NewV3Mail()
	email.SetFrom(mail.NewEmail("Registro Escolar", fromOrDefault(c.MailFrom)))
	email.Subject = m.Subject
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(toName, toEmail))
	email.AddPersonalizations(p)
	email.AddContent(mail.NewContent("text/html", m.HTML))

	resp, err := c.client.SendWithContext(ctx, email)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *SendgridClient) SendSolicitudRecibida(ctx context.Context, toEmail, nombre, escuela string) error {
	return c.send(ctx, toEmail, nombre, solicitudRecibida(nombre, escuela))
}

func (c *SendgridClient) SendCredenciales(ctx context.Context, toEmail, nombre, escuela string, cuentas []Cuenta) error {
	return c.send(ctx, toEmail, nombre, credenciales(nombre, escuela, c.PortalURL, cuentas))
}

func (c *SendgridClient) SendRechazo(ctx context.Context, toEmail, nombre, escuela, motivo string) error {
	return c.send(ctx, toEmail, nombre, rechazo(nombre, escuela, motivo))
}
