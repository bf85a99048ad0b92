package emails

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrevoClient_SendCredenciales(t *testing.T) {
	var got BrevoSendRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/smtp/email", r.URL.Path)
		apiKey = r.Header.Get("api-key")
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewBrevoClient("key-123", "registro@tr.edu", "https://portal.tr.edu")
	c.SetBaseURL(srv.URL)
	err := c.SendCredenciales(context.Background(), "marta@example.com", "Marta Pardo", "Colegio TR", []Cuenta{
		{Nombre: "Marta Pardo", Username: "marta@example.com", Password: "s3cretPass12", TipoCuenta: "ACUDIENTE"},
	})
	require.NoError(t, err)

	assert.Equal(t, "key-123", apiKey)
	assert.Equal(t, "registro@tr.edu", got.Sender.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "marta@example.com", got.To[0].Email)
	assert.Contains(t, got.HTMLContent, "s3cretPass12")
	assert.Contains(t, got.HTMLContent, "https://portal.tr.edu/login")
}

func TestBrevoClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewBrevoClient("bad", "", "")
	c.SetBaseURL(srv.URL)
	err := c.SendRechazo(context.Background(), "a@b.co", "A", "Colegio", "Documentación incompleta")
	assert.EqualError(t, err, "brevo send failed: status 401")
}

func TestBrevoClient_NoKeySkips(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	c := NewBrevoClient("", "", "")
	c.SetBaseURL(srv.URL)
	require.NoError(t, c.SendSolicitudRecibida(context.Background(), "a@b.co", "A", "Colegio"))
	assert.False(t, called)
}

func TestSendgridClient_Send(t *testing.T) {
	var auth string
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &payload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewSendgridClient("sg-key", "", "")
	c.SetBaseURL(srv.URL)
	require.NoError(t, c.SendRechazo(context.Background(), "a@b.co", "Ana", "Colegio TR", "Documentación incompleta"))
	assert.Equal(t, "Bearer sg-key", auth)
	assert.Equal(t, "Tu solicitud de registro fue rechazada", payload["subject"])
}

func TestNew_SelectsProvider(t *testing.T) {
	assert.IsType(t, &SendgridClient{}, New(Config{Provider: "sendgrid"}))
	assert.IsType(t, &BrevoClient{}, New(Config{Provider: "brevo"}))
	assert.IsType(t, &BrevoClient{}, New(Config{Provider: "carrier-pigeon"}))
}

func TestTemplatesEscapeInput(t *testing.T) {
	m := rechazo("<b>Ana</b>", "Colegio", "falta <script>")
	assert.NotContains(t, m.HTML, "<script>")
	assert.Contains(t, m.HTML, "&lt;b&gt;Ana&lt;/b&gt;")

	sinCuentas := credenciales("Ana", "Colegio", "https://p", nil)
	assert.Contains(t, sinCuentas.HTML, "cuentas existentes")
}
