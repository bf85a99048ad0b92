package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"

	"registro-backend/internal/domain"
	"registro-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	passwordLength   = 12
	passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
	bcryptCost       = 10
	codeAttempts     = 5
)

var (
	ErrNotFound         = errors.New("Usuario no encontrado")
	ErrCuentaConflicto  = errors.New("El correo ya pertenece a una cuenta que no es de acudiente")
	ErrCodigoEstudiante = errors.New("No se pudo generar un código de estudiante único")
)

// Service reads accounts. Provisioning helpers take the caller's transaction instead.
type Service struct {
	DB *gorm.DB
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Usuario, error) {
	var u domain.Usuario
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Credencial is a freshly created login, reported once by email and never stored in clear.
type Credencial struct {
	Nombre     string
	Username   string
	Password   string
	TipoCuenta string
}

// GeneratePassword returns a random password without look-alike characters.
func GeneratePassword() (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, passwordLength)
	for i := range b {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[k.Int64()]
	}
	return string(b), nil
}

func hashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type AcudienteInput struct {
	Nombre    string
	Apellidos string
	Email     string
	Telefono  *string
	EscuelaID uuid.UUID
}

// EnsureAcudiente returns the guardian account whose username is the lowercase email,
// creating it when absent. The credential is nil when an existing account is reused.
func EnsureAcudiente(tx *gorm.DB, in AcudienteInput) (*domain.Usuario, *Credencial, error) {
	username := strings.ToLower(strings.TrimSpace(in.Email))

	var existing domain.Usuario
	err := tx.Where("username = ?", username).First(&existing).Error
	if err == nil {
		if existing.Tipo != constants.Acudiente {
			return nil, nil, ErrCuentaConflicto
		}
		return &existing, nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	pw, err := GeneratePassword()
	if err != nil {
		return nil, nil, err
	}
	hash, err := hashPassword(pw)
	if err != nil {
		return nil, nil, err
	}
	escuelaID := in.EscuelaID
	u := &domain.Usuario{
		Nombre:       strings.TrimSpace(in.Nombre),
		Apellidos:    strings.TrimSpace(in.Apellidos),
		Username:     username,
		Email:        username,
		Telefono:     in.Telefono,
		PasswordHash: hash,
		Tipo:         constants.Acudiente,
		EscuelaID:    &escuelaID,
	}
	if err := tx.Create(u).Error; err != nil {
		return nil, nil, err
	}
	return u, &Credencial{Nombre: u.NombreCompleto(), Username: username, Password: pw, TipoCuenta: constants.Acudiente}, nil
}

type NuevoEstudianteInput struct {
	Escuela         *domain.Escuela
	CursoID         uuid.UUID
	Nombre          string
	Apellidos       string
	Email           *string
	FechaNacimiento *time.Time
}

// CreateEstudiante registers a new student with its own ESTUDIANTE account.
// The account's username is the generated student code.
func CreateEstudiante(tx *gorm.DB, in NuevoEstudianteInput) (*domain.Estudiante, *Credencial, error) {
	codigo, err := studentCode(tx, in.Escuela)
	if err != nil {
		return nil, nil, err
	}
	pw, err := GeneratePassword()
	if err != nil {
		return nil, nil, err
	}
	hash, err := hashPassword(pw)
	if err != nil {
		return nil, nil, err
	}
	var email string
	if in.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*in.Email))
	}

	cuenta := &domain.Usuario{
		Nombre:       strings.TrimSpace(in.Nombre),
		Apellidos:    strings.TrimSpace(in.Apellidos),
		Username:     codigo,
		Email:        email,
		PasswordHash: hash,
		Tipo:         constants.Estudiante,
		EscuelaID:    &in.Escuela.ID,
	}
	if err := tx.Create(cuenta).Error; err != nil {
		return nil, nil, err
	}
	est := &domain.Estudiante{
		EscuelaID:        in.Escuela.ID,
		CursoID:          in.CursoID,
		Nombre:           cuenta.Nombre,
		Apellidos:        cuenta.Apellidos,
		Email:            in.Email,
		CodigoEstudiante: codigo,
		FechaNacimiento:  in.FechaNacimiento,
		UsuarioID:        &cuenta.ID,
	}
	if err := tx.Create(est).Error; err != nil {
		return nil, nil, err
	}
	return est, &Credencial{Nombre: cuenta.NombreCompleto(), Username: codigo, Password: pw, TipoCuenta: constants.Estudiante}, nil
}

func studentCode(tx *gorm.DB, escuela *domain.Escuela) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		b := make([]byte, 4)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		codigo := escuela.Prefijo() + "-" + strings.ToUpper(hex.EncodeToString(b))
		var n int64
		if err := tx.Model(&domain.Estudiante{}).Where("codigo_estudiante = ?", codigo).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return codigo, nil
		}
	}
	return "", ErrCodigoEstudiante
}

// LinkAcudiente records the guardian/student relation; an existing link is left as is.
func LinkAcudiente(tx *gorm.DB, acudienteID, estudianteID uuid.UUID) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.AcudienteEstudiante{
		AcudienteID:  acudienteID,
		EstudianteID: estudianteID,
	}).Error
}
