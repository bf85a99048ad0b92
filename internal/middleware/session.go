package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	userPolicies "registro-backend/internal/application/policies/user"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionConfig for the session cookie. Secret signs the cookie value when set.
type SessionConfig struct {
	Secret            string
	AllowCrossSiteDev bool
	IsProduction      bool
}

const (
	SessionCookieName  = "registro.sid"
	SessionRedisPrefix = "session:" // exported for auth logout (Del key)
	sessionMaxAge      = 24 * time.Hour
)

// SessionUser is the shape stored in session under "user".
type SessionUser struct {
	UserID    string  `json:"user_id"`
	Nombre    string  `json:"nombre"`
	Email     string  `json:"email"`
	Tipo      string  `json:"tipo"`
	EscuelaID *string `json:"escuela_id"`
}

// SignSessionID returns the cookie value for id: "s:id.signature", or "s:id" without a secret.
func SignSessionID(secret, id string) string {
	if secret == "" {
		return "s:" + id
	}
	return "s:" + id + "." + signature(secret, id)
}

func signature(secret, id string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// sessionIDFromCookie extracts the id, rejecting a bad signature when secret is set.
func sessionIDFromCookie(secret, value string) string {
	if !strings.HasPrefix(value, "s:") {
		if secret != "" {
			return ""
		}
		return value
	}
	id, sig, _ := strings.Cut(value[2:], ".")
	if secret != "" && !hmac.Equal([]byte(sig), []byte(signature(secret, id))) {
		return ""
	}
	return id
}

// Session returns a Fiber middleware that loads/saves session data from Redis.
func Session(rdb *redis.Client, cfg SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := sessionIDFromCookie(cfg.Secret, c.Cookies(SessionCookieName))

		var data map[string]interface{}
		if sessionID != "" {
			b, err := rdb.Get(c.UserContext(), SessionRedisPrefix+sessionID).Bytes()
			if err == nil {
				_ = json.Unmarshal(b, &data)
			}
		}
		if data == nil {
			data = make(map[string]interface{})
		}

		c.Locals("session_data", data)
		if u, ok := data["user"]; ok {
			c.Locals(userLocal, u)
		} else {
			c.Locals(userLocal, nil)
		}
		c.Locals("session_id", sessionID)

		if err := c.Next(); err != nil {
			return err
		}

		// persist when there is a session id (e.g. after login)
		if sid, _ := c.Locals("session_id").(string); sid != "" {
			updated, _ := c.Locals("session_data").(map[string]interface{})
			if len(updated) > 0 {
				b, _ := json.Marshal(updated)
				rdb.Set(c.UserContext(), SessionRedisPrefix+sid, b, sessionMaxAge)
			}
		}
		return nil
	}
}

// GetSessionID returns the current session ID from context (for login/logout).
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals("session_id").(string)
	return sid
}

// SetSessionUser sets the user in the session and marks session for save.
// Call RegenerateSessionID first on login.
func SetSessionUser(c *fiber.Ctx, user SessionUser) {
	data, _ := c.Locals("session_data").(map[string]interface{})
	if data == nil {
		data = make(map[string]interface{})
	}
	var escuelaID interface{}
	if user.EscuelaID != nil {
		escuelaID = *user.EscuelaID
	}
	data["user"] = map[string]interface{}{
		"user_id":    user.UserID,
		"nombre":     user.Nombre,
		"email":      user.Email,
		"tipo":       user.Tipo,
		"escuela_id": escuelaID,
	}
	c.Locals("session_data", data)
	c.Locals(userLocal, data["user"])
}

// RegenerateSessionID creates a new session ID and sets it in Locals (cookie set by handler).
func RegenerateSessionID(c *fiber.Ctx) string {
	newID := uuid.New().String()
	c.Locals("session_id", newID)
	return newID
}

// DestroySession clears user and session data from Locals; caller must clear cookie and Redis.
func DestroySession(c *fiber.Ctx) {
	c.Locals("session_data", make(map[string]interface{}))
	c.Locals(userLocal, nil)
	c.Locals("session_id", "")
}

// SessionCookieConfig returns the session cookie options (for SetCookie/ClearCookie).
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	sameSite := "Lax"
	if cfg.AllowCrossSiteDev {
		sameSite = "None"
	}
	return fiber.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.IsProduction || cfg.AllowCrossSiteDev,
		SameSite: sameSite,
	}
}

// Actor converts the session user into the caller identity application services expect.
func Actor(c *fiber.Ctx) (userPolicies.Actor, bool) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return userPolicies.Actor{}, false
	}
	id, err := uuid.Parse(str(m["user_id"]))
	if err != nil {
		return userPolicies.Actor{}, false
	}
	actor := userPolicies.Actor{UserID: id, Role: str(m["tipo"])}
	if e, err := uuid.Parse(str(m["escuela_id"])); err == nil {
		actor.EscuelaID = &e
	}
	return actor, true
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}
