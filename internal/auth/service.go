package auth

import (
	"errors"
	"strings"

	"registro-backend/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginInput for login request body. Usuario is a username or an email.
type LoginInput struct {
	Usuario  string `json:"usuario"`
	Password string `json:"password"`
}

// SessionUserShape is the object stored in session and returned by /me.
type SessionUserShape struct {
	UserID    string  `json:"user_id"`
	Nombre    string  `json:"nombre"`
	Email     string  `json:"email"`
	Tipo      string  `json:"tipo"`
	EscuelaID *string `json:"escuela_id"`
}

// UserFinder abstracts user lookup by credentials (for production GORM or test doubles).
type UserFinder interface {
	FindByCredentials(usuario, password string) (*domain.Usuario, error)
}

// GormUserFinder implements UserFinder using GORM and bcrypt.
type GormUserFinder struct{ DB *gorm.DB }

func (g *GormUserFinder) FindByCredentials(usuario, password string) (*domain.Usuario, error) {
	return LoginUser(g.DB, LoginInput{Usuario: usuario, Password: password})
}

// LoginUser finds the account by username, then by email, and verifies the password.
func LoginUser(db *gorm.DB, input LoginInput) (*domain.Usuario, error) {
	login := strings.ToLower(strings.TrimSpace(input.Usuario))
	if login == "" || input.Password == "" {
		return nil, ErrCredentialsRequired
	}
	var u domain.Usuario
	err := db.Where("LOWER(username) = ?", login).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Where("LOWER(email) = ?", login).Order("created_at ASC").First(&u).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// VerifyUser validates session user and returns the shape for /me.
func VerifyUser(sessionUser interface{}) (*SessionUserShape, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	userID, _ := m["user_id"].(string)
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	out := &SessionUserShape{
		UserID: userID,
		Nombre: str(m["nombre"]),
		Email:  str(m["email"]),
		Tipo:   str(m["tipo"]),
	}
	if s, ok := m["escuela_id"].(string); ok && s != "" {
		out.EscuelaID = &s
	}
	return out, nil
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
