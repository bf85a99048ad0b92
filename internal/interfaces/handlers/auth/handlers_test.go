package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	authsvc "registro-backend/internal/auth"
	"registro-backend/internal/domain"
	"registro-backend/internal/middleware"
	"registro-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserFinder accepts password123 for its one user.
type fakeUserFinder struct {
	user *domain.Usuario
	err  error
}

func (f *fakeUserFinder) FindByCredentials(usuario, password string) (*domain.Usuario, error) {
	if f.err != nil {
		return nil, f.err
	}
	if usuario == "" || password == "" {
		return nil, authsvc.ErrCredentialsRequired
	}
	if f.user != nil && (f.user.Username == usuario || f.user.Email == usuario) && password == "password123" {
		return f.user, nil
	}
	return nil, authsvc.ErrInvalidCredentials
}

func setupAuthHandlers(t *testing.T, finder authsvc.UserFinder) (*Handlers, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return &Handlers{UserFinder: finder, Rdb: rdb, Config: middleware.SessionConfig{}}, rdb
}

func postLogin(t *testing.T, app *fiber.App, body interface{}) (int, map[string]interface{}, []string) {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/login", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out, resp.Header.Values("Set-Cookie")
}

func admin() *domain.Usuario {
	escuela := uuid.New()
	return &domain.Usuario{
		ID:        uuid.New(),
		Nombre:    "Ana",
		Apellidos: "Rector",
		Username:  "admin-tr",
		Email:     "admin@tr.edu",
		Tipo:      constants.Admin,
		EscuelaID: &escuela,
	}
}

func TestLogin_EmptyBody(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{user: admin()})
	app := fiber.New()
	app.Post("/login", h.Login)

	req := httptest.NewRequest("POST", "/login", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogin_MissingPassword(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{user: admin()})
	app := fiber.New()
	app.Post("/login", h.Login)

	code, out, _ := postLogin(t, app, map[string]string{"usuario": "admin-tr"})
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, authsvc.ErrCredentialsRequired.Error(), out["error"].(map[string]interface{})["message"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{user: admin()})
	app := fiber.New()
	app.Post("/login", h.Login)

	code, _, _ := postLogin(t, app, map[string]string{"usuario": "admin-tr", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, code)
	code, _, _ = postLogin(t, app, map[string]string{"usuario": "nadie", "password": "password123"})
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestLogin_Success(t *testing.T) {
	u := admin()
	h, rdb := setupAuthHandlers(t, &fakeUserFinder{user: u})
	app := fiber.New()
	app.Use(middleware.Session(rdb, h.Config))
	app.Post("/login", h.Login)

	code, out, cookies := postLogin(t, app, map[string]string{"usuario": "admin@tr.edu", "password": "password123"})
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "Sesión iniciada", out["message"])
	user := out["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "Ana Rector", user["nombre"])
	assert.Equal(t, constants.Admin, user["tipo"])
	assert.Equal(t, u.EscuelaID.String(), user["escuela_id"])

	require.NotEmpty(t, cookies)
	assert.Contains(t, cookies[0], middleware.SessionCookieName+"=")

	ctx := context.Background()
	members, err := rdb.SMembers(ctx, userSessionsPrefix+u.ID.String()).Result()
	require.NoError(t, err)
	require.Len(t, members, 1)
	exists, err := rdb.Exists(ctx, middleware.SessionRedisPrefix+members[0]).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestLogin_NilUserFinder(t *testing.T) {
	h, _ := setupAuthHandlers(t, nil)
	app := fiber.New()
	app.Post("/login", h.Login)

	code, _, _ := postLogin(t, app, map[string]string{"usuario": "a", "password": "b"})
	assert.Equal(t, fiber.StatusInternalServerError, code)
}

func TestMe_NoSession(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{})
	app := fiber.New()
	app.Get("/me", h.Me)

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMe_WithSessionUser(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{})
	app := fiber.New()
	app.Get("/me", func(c *fiber.Ctx) error {
		middleware.SetSessionUser(c, middleware.SessionUser{
			UserID: "550e8400-e29b-41d4-a716-446655440000",
			Nombre: "Pedro Profe",
			Email:  "pedro@tr.edu",
			Tipo:   constants.Profesor,
		})
		return h.Me(c)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	user := out["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "pedro@tr.edu", user["email"])
	assert.Nil(t, user["escuela_id"])
}

func TestLogout_NoSession(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{})
	app := fiber.New()
	app.Delete("/logout", h.Logout)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Values("Set-Cookie"))
}

func TestLogout_DestroysSession(t *testing.T) {
	u := admin()
	h, rdb := setupAuthHandlers(t, &fakeUserFinder{user: u})
	app := fiber.New()
	app.Use(middleware.Session(rdb, h.Config))
	app.Post("/login", h.Login)
	app.Delete("/logout", h.Logout)

	code, _, _ := postLogin(t, app, map[string]string{"usuario": "admin-tr", "password": "password123"})
	require.Equal(t, fiber.StatusOK, code)
	ctx := context.Background()
	members, _ := rdb.SMembers(ctx, userSessionsPrefix+u.ID.String()).Result()
	require.Len(t, members, 1)
	sid := members[0]

	req := httptest.NewRequest("DELETE", "/logout", nil)
	req.Header.Set("Cookie", middleware.SessionCookieName+"=s:"+sid)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	exists, _ := rdb.Exists(ctx, middleware.SessionRedisPrefix+sid).Result()
	assert.Equal(t, int64(0), exists)
	members, _ = rdb.SMembers(ctx, userSessionsPrefix+u.ID.String()).Result()
	assert.Empty(t, members)
}
