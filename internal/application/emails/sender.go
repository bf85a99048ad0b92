package emails

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Cuenta is one login reported in the credentials email.
type Cuenta struct {
	Nombre     string
	Username   string
	Password   string
	TipoCuenta string
}

// Sender sends the registration workflow's transactional emails.
type Sender interface {
	SendSolicitudRecibida(ctx context.Context, toEmail, nombre, escuela string) error
	SendCredenciales(ctx context.Context, toEmail, nombre, escuela string, cuentas []Cuenta) error
	SendRechazo(ctx context.Context, toEmail, nombre, escuela, motivo string) error
}

// Config selects and configures the provider.
type Config struct {
	Provider         string
	SendinblueAPIKey string
	SendgridAPIKey   string
	MailFrom         string
	PortalURL        string
}

// New returns the configured provider. Without an API key the provider is still
// returned and silently skips sending, so local runs need no mail account.
func New(cfg Config) Sender {
	switch cfg.Provider {
	case "sendgrid":
		return NewSendgridClient(cfg.SendgridAPIKey, cfg.MailFrom, cfg.PortalURL)
	case "", "brevo", "sendinblue":
		return NewBrevoClient(cfg.SendinblueAPIKey, cfg.MailFrom, cfg.PortalURL)
	}
	log.Warn().Str("provider", cfg.Provider).Msg("unknown MAIL_PROVIDER, falling back to brevo")
	return NewBrevoClient(cfg.SendinblueAPIKey, cfg.MailFrom, cfg.PortalURL)
}

const defaultFrom = "no-reply@registro.escuela"

func fromOrDefault(from string) string {
	if from != "" {
		return from
	}
	return defaultFrom
}

// message is a rendered email, shared by every provider.
type message struct {
	Subject string
	HTML    string
}

func solicitudRecibida(nombre, escuela string) message {
	return message{
		Subject: "Recibimos tu solicitud de registro",
		HTML:    EmailLayout(escuela, solicitudRecibidaContent(nombre, escuela)),
	}
}

func credenciales(nombre, escuela, portalURL string, cuentas []Cuenta) message {
	return message{
		Subject: "Tu solicitud fue aprobada: credenciales de acceso",
		HTML:    EmailLayout(escuela, credencialesContent(nombre, escuela, portalURL, cuentas)),
	}
}

func rechazo(nombre, escuela, motivo string) message {
	return message{
		Subject: "Tu solicitud de registro fue rechazada",
		HTML:    EmailLayout(escuela, rechazoContent(nombre, escuela, motivo)),
	}
}
