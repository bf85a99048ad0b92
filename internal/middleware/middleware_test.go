package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"registro-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb, mr
}

func decode(t *testing.T, body io.Reader) map[string]interface{} {
	b, err := io.ReadAll(body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestSession_PersistsUserAndResolvesActor(t *testing.T) {
	rdb, mr := newRedis(t)
	userID := uuid.New()
	escuelaID := uuid.New().String()

	app := fiber.New()
	app.Use(Session(rdb, SessionConfig{}))
	app.Post("/login", func(c *fiber.Ctx) error {
		sid := RegenerateSessionID(c)
		SetSessionUser(c, SessionUser{UserID: userID.String(), Nombre: "Ana", Tipo: constants.Admin, EscuelaID: &escuelaID})
		return c.SendString(sid)
	})
	app.Get("/who", RequireAuth(), func(c *fiber.Ctx) error {
		actor, ok := Actor(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.JSON(fiber.Map{"id": actor.UserID, "role": actor.Role, "escuela": actor.EscuelaID})
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	sidBytes, _ := io.ReadAll(resp.Body)
	sid := string(sidBytes)
	assert.True(t, mr.Exists(SessionRedisPrefix+sid))

	req := httptest.NewRequest("GET", "/who", nil)
	req.Header.Set("Cookie", SessionCookieName+"=s:"+sid+".signature")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	out := decode(t, resp.Body)
	assert.Equal(t, userID.String(), out["id"])
	assert.Equal(t, constants.Admin, out["role"])
	assert.Equal(t, escuelaID, out["escuela"])
}

func TestSession_SignedCookie(t *testing.T) {
	rdb, mr := newRedis(t)
	cfg := SessionConfig{Secret: "s3cret"}
	app := fiber.New()
	app.Use(Session(rdb, cfg))
	app.Post("/login", func(c *fiber.Ctx) error {
		sid := RegenerateSessionID(c)
		SetSessionUser(c, SessionUser{UserID: uuid.NewString(), Tipo: constants.Admin})
		return c.SendString(SignSessionID(cfg.Secret, sid))
	})
	app.Get("/who", RequireAuth(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	signed := string(b)
	sid, _, _ := strings.Cut(strings.TrimPrefix(signed, "s:"), ".")
	require.True(t, mr.Exists(SessionRedisPrefix+sid))

	cases := map[string]int{
		signed:                 fiber.StatusOK,
		"s:" + sid + ".forged": fiber.StatusUnauthorized,
		"s:" + sid:             fiber.StatusUnauthorized,
		sid:                    fiber.StatusUnauthorized,
	}
	for cookie, want := range cases {
		req := httptest.NewRequest("GET", "/who", nil)
		req.Header.Set("Cookie", SessionCookieName+"="+cookie)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, cookie)
	}
}

func TestSession_AnonymousRequestsAreNotStored(t *testing.T) {
	rdb, mr := newRedis(t)
	app := fiber.New()
	app.Use(Session(rdb, SessionConfig{}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Cookie", SessionCookieName+"=s:made-up")
	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestRequireAuth_Anonymous(t *testing.T) {
	rdb, _ := newRedis(t)
	app := fiber.New()
	app.Use(Session(rdb, SessionConfig{}))
	app.Get("/who", RequireAuth(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/who", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	out := decode(t, resp.Body)
	assert.Equal(t, "error", out["status"])
}

func TestActor_SuperAdminWithoutEscuela(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		c.Locals(userLocal, map[string]interface{}{"user_id": uuid.New().String(), "tipo": constants.SuperAdmin, "escuela_id": nil})
		actor, ok := Actor(c)
		if !ok || actor.EscuelaID != nil || !actor.IsSuperAdmin() {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendStatus(fiber.StatusOK)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthorizePermission(t *testing.T) {
	cases := []struct {
		name string
		user interface{}
		want int
	}{
		{"anonymous", nil, fiber.StatusUnauthorized},
		{"profesor cannot review", map[string]interface{}{"tipo": constants.Profesor}, fiber.StatusForbidden},
		{"admin reviews", map[string]interface{}{"tipo": constants.Admin}, fiber.StatusOK},
		{"missing tipo", map[string]interface{}{}, fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				if tc.user != nil {
					c.Locals(userLocal, tc.user)
				}
				return c.Next()
			}, AuthorizePermission(constants.ReviewSolicitudes), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})
			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	rdb, _ := newRedis(t)
	app := fiber.New()
	app.Get("/", RateLimit(rdb, "public", 2), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestRateLimit_Disabled(t *testing.T) {
	app := fiber.New()
	app.Get("/", RateLimit(nil, "public", 1), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}

func TestHealthMarker_CountsAndLogsServerErrors(t *testing.T) {
	rdb, mr := newRedis(t)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(Tracing(), HealthMarker(rdb))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("kaput") })
	app.Get("/health/json", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for _, p := range []string{"/ok", "/boom", "/health/json"} {
		_, err := app.Test(httptest.NewRequest("GET", p, nil))
		require.NoError(t, err)
	}

	total, _ := mr.Get(KeyReqTotal)
	assert.Equal(t, "2", total)
	failed, _ := mr.Get(KeyReqErrors)
	assert.Equal(t, "1", failed)
	entries, err := mr.List(KeyErrorLog)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "kaput")
	assert.Contains(t, entries[0], "/boom")
}

func TestErrorHandler_Envelope(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusNotFound, "Cannot GET /missing") })

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	out := decode(t, resp.Body)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "Cannot GET /missing", out["error"].(map[string]interface{})["message"])
}

func TestTracing_ReusesValidHeader(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetTraceID(c)) })

	id := uuid.New().String()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(traceIDHeader, id)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, id, resp.Header.Get(traceIDHeader))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(traceIDHeader, "not-a-uuid")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", resp.Header.Get(traceIDHeader))
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: ".colegio.edu.co"}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://portal.colegio.edu.co")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://portal.colegio.edu.co", resp.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("OPTIONS", "/", nil)
	req.Header.Set("Origin", "https://portal.colegio.edu.co")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
