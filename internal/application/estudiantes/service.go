package estudiantes

import (
	"context"
	"strings"
	"time"

	"registro-backend/internal/application/invitations"
	"registro-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxResultados = 20

// Service backs the public existing-student lookup used while filling a solicitud.
type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

type SearchInput struct {
	CodigoInvitacion string `query:"codigoInvitacion"`
	Nombre           string `query:"nombre"`
	Apellidos        string `query:"apellidos"`
	Email            string `query:"email"`
	CodigoEstudiante string `query:"codigo_estudiante"`
}

// Resultado is a student summary. Contact data is never exposed on this public endpoint.
type Resultado struct {
	ID                 uuid.UUID `gorm:"column:id" json:"id"`
	Nombre             string    `gorm:"column:nombre" json:"nombre"`
	Apellidos          string    `gorm:"column:apellidos" json:"apellidos"`
	CodigoEstudiante   string    `gorm:"column:codigo_estudiante" json:"codigoEstudiante"`
	CursoID            uuid.UUID `gorm:"column:curso_id" json:"cursoId"`
	CursoNombre        string    `gorm:"column:curso_nombre" json:"cursoNombre"`
	CantidadAcudientes int64     `gorm:"column:cantidad_acudientes" json:"cantidadAcudientes"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func contains(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

// Search finds students of the escuela behind a usable invitation code. At least one
// criterion besides the code is required; names match by case-insensitive substring,
// email and student code exactly.
func (s *Service) Search(ctx context.Context, in SearchInput) ([]Resultado, error) {
	errs := validation.Errors{}
	if strings.TrimSpace(in.CodigoInvitacion) == "" {
		errs.Add("codigoInvitacion", "Este campo es obligatorio")
	}
	if strings.TrimSpace(in.Nombre+in.Apellidos+in.Email+in.CodigoEstudiante) == "" {
		errs.Add("criterios", "Indique al menos un criterio de búsqueda")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	codigo := strings.ToUpper(strings.TrimSpace(in.CodigoInvitacion))
	inv, err := invitations.FindUsable(s.DB.WithContext(ctx), "codigo = ?", codigo, now)
	if err != nil {
		return nil, err
	}

	q := s.DB.WithContext(ctx).Table("estudiantes AS e").
		Select(`e.id, e.nombre, e.apellidos, e.codigo_estudiante, e.curso_id, c.nombre AS curso_nombre,
			(SELECT COUNT(*) FROM acudientes_estudiantes ae WHERE ae.estudiante_id = e.id) AS cantidad_acudientes`).
		Joins("LEFT JOIN cursos c ON c.id = e.curso_id").
		Where("e.escuela_id = ?", inv.EscuelaID)
	if v := strings.TrimSpace(in.Nombre); v != "" {
		q = q.Where(`LOWER(e.nombre) LIKE ? ESCAPE '\'`, contains(v))
	}
	if v := strings.TrimSpace(in.Apellidos); v != "" {
		q = q.Where(`LOWER(e.apellidos) LIKE ? ESCAPE '\'`, contains(v))
	}
	if v := strings.TrimSpace(in.Email); v != "" {
		q = q.Where("LOWER(e.email) = ?", strings.ToLower(v))
	}
	if v := strings.TrimSpace(in.CodigoEstudiante); v != "" {
		q = q.Where("UPPER(e.codigo_estudiante) = ?", strings.ToUpper(v))
	}

	out := []Resultado{}
	if err := q.Order("e.apellidos ASC, e.nombre ASC").Limit(maxResultados).Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
