package emails

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const brevoAPI = "https://api.brevo.com"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoContact   `json:"sender"`
	To          []BrevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type BrevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// BrevoClient sends emails via the Brevo (Sendinblue) API. Env: SENDINBLUE_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey    string
	MailFrom  string
	PortalURL string
	client    *resty.Client
}

func NewBrevoClient(apiKey, mailFrom, portalURL string) *BrevoClient {
	return &BrevoClient{
		APIKey:    apiKey,
		MailFrom:  mailFrom,
		PortalURL: portalURL,
		client: resty.New().
			SetBaseURL(brevoAPI).
			SetTimeout(15*time.Second).
			SetHeader("Accept", "application/json"),
	}
}

// SetBaseURL points the client at another host (tests).
func (c *BrevoClient) SetBaseURL(url string) {
	c.client.SetBaseURL(url)
}

func (c *BrevoClient) send(ctx context.Context, toEmail, toName string, m message) error {
	if c.APIKey == "" {
		return nil
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("api-key", c.APIKey).
		SetBody(BrevoSendRequest{
			Sender:      BrevoContact{Email: fromOrDefault(c.MailFrom), Name: "Registro Escolar"},
			To:          []BrevoContact{{Email: toEmail, Name: toName}},
			Subject:     m.Subject,
			HTMLContent: m.HTML,
		}).
		Post("/v3/smtp/email")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode())
	}
	return nil
}

func (c *BrevoClient) SendSolicitudRecibida(ctx context.Context, toEmail, nombre, escuela string) error {
	return c.send(ctx, toEmail, nombre, solicitudRecibida(nombre, escuela))
}

func (c *BrevoClient) SendCredenciales(ctx context.Context, toEmail, nombre, escuela string, cuentas []Cuenta) error {
	return c.send(ctx, toEmail, nombre, credenciales(nombre, escuela, c.PortalURL, cuentas))
}

func (c *BrevoClient) SendRechazo(ctx context.Context, toEmail, nombre, escuela, motivo string) error {
	return c.send(ctx, toEmail, nombre, rechazo(nombre, escuela, motivo))
}
