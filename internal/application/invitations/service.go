package invitations

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	invitePolicy "registro-backend/internal/application/policies/invitations"
	userPolicies "registro-backend/internal/application/policies/user"
	"registro-backend/internal/domain"
	"registro-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	codeAttempts = 5
	codeLetters  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	maxLimite    = 100
)

var (
	ErrNotFound               = errors.New("Invitación no encontrada")
	ErrInvalidCode            = errors.New("El código de invitación no es válido o ha expirado")
	ErrCodeGeneration         = errors.New("No se pudo generar un código de invitación único")
	ErrOnlyActiveCanBeRevoked = invitePolicy.ErrOnlyActiveCanBeRevoked
)

type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CreateInput is the body of POST /invitaciones. EscuelaID defaults to the actor's escuela.
type CreateInput struct {
	Tipo            string     `json:"tipo" validate:"required,oneof=CURSO ESTUDIANTE_ESPECIFICO PERSONAL"`
	EscuelaID       string     `json:"escuelaId" validate:"omitempty,uuid"`
	CantidadUsos    *int       `json:"cantidadUsos" validate:"omitempty,gte=1"`
	CursoID         string     `json:"cursoId" validate:"omitempty,uuid"`
	EstudianteID    string     `json:"estudianteId" validate:"omitempty,uuid"`
	FechaExpiracion *time.Time `json:"fechaExpiracion"`
}

func (s *Service) Create(ctx context.Context, actor userPolicies.Actor, in CreateInput) (*domain.Invitacion, error) {
	errs := validation.Struct(in)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	now := s.now()

	escuelaID, err := s.targetEscuela(actor, in.EscuelaID)
	if err != nil {
		return nil, err
	}
	var escuela domain.Escuela
	if err := s.DB.WithContext(ctx).Where("id = ?", escuelaID).First(&escuela).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			errs.Add("escuelaId", "Escuela no encontrada")
			return nil, errs
		}
		return nil, err
	}

	inv := &domain.Invitacion{
		Tipo:         domain.TipoInvitacion(in.Tipo),
		EscuelaID:    escuela.ID,
		CantidadUsos: 1,
		Estado:       domain.InvitacionActiva,
		CreadoPor:    actor.UserID,
	}
	if in.CantidadUsos != nil {
		inv.CantidadUsos = *in.CantidadUsos
	}
	if in.FechaExpiracion != nil {
		exp := in.FechaExpiracion.UTC()
		if !exp.After(now) {
			errs.Add("fechaExpiracion", "La fecha de expiración debe ser futura")
		}
		inv.FechaExpiracion = &exp
	}

	switch inv.Tipo {
	case domain.TipoCurso:
		if in.CursoID == "" {
			errs.Add("cursoId", "Este campo es obligatorio")
		}
	case domain.TipoEstudianteEspecifico:
		if in.EstudianteID == "" {
			errs.Add("estudianteId", "Este campo es obligatorio")
		}
	}
	if in.EstudianteID != "" && inv.Tipo != domain.TipoEstudianteEspecifico {
		errs.Add("estudianteId", "Solo aplica a invitaciones ESTUDIANTE_ESPECIFICO")
	}

	if in.CursoID != "" {
		var curso domain.Curso
		err := s.DB.WithContext(ctx).Where("id = ? AND escuela_id = ?", in.CursoID, escuela.ID).First(&curso).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			errs.Add("cursoId", "Curso no encontrado en la escuela")
		case err != nil:
			return nil, err
		default:
			inv.CursoID = &curso.ID
		}
	}
	if in.EstudianteID != "" && inv.Tipo == domain.TipoEstudianteEspecifico {
		var est domain.Estudiante
		err := s.DB.WithContext(ctx).Where("id = ? AND escuela_id = ?", in.EstudianteID, escuela.ID).First(&est).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			errs.Add("estudianteId", "Estudiante no encontrado en la escuela")
		case err != nil:
			return nil, err
		default:
			inv.EstudianteID = &est.ID
			if inv.CursoID == nil {
				inv.CursoID = &est.CursoID
			}
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		codigo, err := generateCode(tx, &escuela, now)
		if err != nil {
			return err
		}
		inv.Codigo = codigo
		if err := tx.Create(inv).Error; err != nil {
			return err
		}
		return tx.Create(domain.NuevoEvento(domain.EntidadInvitacion, inv.ID, inv.ID, domain.EventoInvitacionCreada, &actor.UserID,
			map[string]interface{}{"codigo": inv.Codigo, "tipo": inv.Tipo, "cantidadUsos": inv.CantidadUsos})).Error
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("invitacion_id", inv.ID.String()).Str("codigo", inv.Codigo).Str("tipo", string(inv.Tipo)).Msg("invitation created")
	return inv, nil
}

func (s *Service) targetEscuela(actor userPolicies.Actor, requested string) (uuid.UUID, error) {
	if requested == "" {
		if actor.EscuelaID == nil {
			return uuid.Nil, validation.Errors{"escuelaId": "Este campo es obligatorio"}
		}
		return *actor.EscuelaID, nil
	}
	id, err := uuid.Parse(requested)
	if err != nil {
		return uuid.Nil, validation.Errors{"escuelaId": "Identificador inválido"}
	}
	if err := userPolicies.ValidateEscuelaScope(actor, id); err != nil {
		return uuid.Nil, validation.Errors{"escuelaId": "Escuela no encontrada"}
	}
	return id, nil
}

// generateCode returns a fresh code like TR25-HYUSPH, retrying on collision.
func generateCode(tx *gorm.DB, escuela *domain.Escuela, now time.Time) (string, error) {
	prefix := escuela.Prefijo() + now.Format("06") + "-"
	for i := 0; i < codeAttempts; i++ {
		suffix, err := randomLetters(6)
		if err != nil {
			return "", err
		}
		codigo := prefix + suffix
		var n int64
		if err := tx.Model(&domain.Invitacion{}).Where("codigo = ?", codigo).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return codigo, nil
		}
	}
	return "", ErrCodeGeneration
}

func randomLetters(n int) (string, error) {
	max := big.NewInt(int64(len(codeLetters)))
	b := make([]byte, n)
	for i := range b {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeLetters[k.Int64()]
	}
	return string(b), nil
}

type ListInput struct {
	Pagina int
	Limite int
	Estado string
}

type ListResult struct {
	Invitaciones []domain.Invitacion `json:"invitaciones"`
	Total        int64               `json:"total"`
}

// NormalizePage clamps pagination to pagina >= 1 and 1 <= limite <= 100.
func NormalizePage(pagina, limite int) (int, int) {
	if pagina < 1 {
		pagina = 1
	}
	if limite < 1 {
		limite = 10
	}
	if limite > maxLimite {
		limite = maxLimite
	}
	return pagina, limite
}

// List returns one page of the actor's invitations, newest first. Estado filters on the
// effective state, so an unswept invitation past its expiration lists as EXPIRADO.
func (s *Service) List(ctx context.Context, actor userPolicies.Actor, in ListInput) (*ListResult, error) {
	escuelaID, err := userPolicies.ScopeEscuela(actor)
	if err != nil {
		return nil, err
	}
	now := s.now()
	q := s.DB.WithContext(ctx).Model(&domain.Invitacion{})
	if escuelaID != nil {
		q = q.Where("escuela_id = ?", *escuelaID)
	}
	if in.Estado != "" {
		q, err = filterEstado(q, domain.EstadoInvitacion(strings.ToUpper(in.Estado)), now)
		if err != nil {
			return nil, err
		}
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	pagina, limite := NormalizePage(in.Pagina, in.Limite)
	invs := []domain.Invitacion{}
	if err := q.Order("fecha_creacion DESC").Offset((pagina - 1) * limite).Limit(limite).Find(&invs).Error; err != nil {
		return nil, err
	}
	for i := range invs {
		invs[i].Estado = invitePolicy.EffectiveEstado(&invs[i], now)
	}
	return &ListResult{Invitaciones: invs, Total: total}, nil
}

func filterEstado(q *gorm.DB, estado domain.EstadoInvitacion, now time.Time) (*gorm.DB, error) {
	const notLapsed = "(fecha_expiracion IS NULL OR fecha_expiracion >= ?)"
	switch estado {
	case domain.InvitacionActiva:
		return q.Where("estado = ? AND usos_actuales < cantidad_usos AND "+notLapsed, domain.InvitacionActiva, now), nil
	case domain.InvitacionExpirada:
		return q.Where("(estado = ? OR (estado = ? AND fecha_expiracion < ?))", domain.InvitacionExpirada, domain.InvitacionActiva, now), nil
	case domain.InvitacionUtilizada:
		return q.Where("(estado = ? OR (estado = ? AND usos_actuales >= cantidad_usos AND "+notLapsed+"))",
			domain.InvitacionUtilizada, domain.InvitacionActiva, now), nil
	case domain.InvitacionRevocada:
		return q.Where("estado = ?", domain.InvitacionRevocada), nil
	}
	return nil, validation.Errors{"estado": "Valor no permitido (opciones: ACTIVO UTILIZADO REVOCADO EXPIRADO)"}
}

// Get returns the invitation with its usage log, or ErrNotFound outside the actor's escuela.
func (s *Service) Get(ctx context.Context, actor userPolicies.Actor, id string) (*domain.Invitacion, error) {
	inv, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Where("invitacion_id = ?", inv.ID).Order("fecha_registro ASC").Find(&inv.Registros).Error; err != nil {
		return nil, err
	}
	inv.Estado = invitePolicy.EffectiveEstado(inv, s.now())
	return inv, nil
}

func (s *Service) load(ctx context.Context, actor userPolicies.Actor, id string) (*domain.Invitacion, error) {
	invID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var inv domain.Invitacion
	if err := s.DB.WithContext(ctx).Where("id = ?", invID).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := userPolicies.ValidateEscuelaScope(actor, inv.EscuelaID); err != nil {
		return nil, ErrNotFound
	}
	inv.Registros = []domain.RegistroUso{}
	return &inv, nil
}

// Revoke moves an ACTIVO invitation to REVOCADO. Approved solicitudes and usosActuales are untouched.
func (s *Service) Revoke(ctx context.Context, actor userPolicies.Actor, id string) (*domain.Invitacion, error) {
	inv, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := invitePolicy.ValidateRevocation(inv, now); err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Invitacion{}).
			Where("id = ? AND estado = ?", inv.ID, domain.InvitacionActiva).
			Updates(map[string]interface{}{"estado": domain.InvitacionRevocada, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrOnlyActiveCanBeRevoked
		}
		return tx.Create(domain.NuevoEvento(domain.EntidadInvitacion, inv.ID, inv.ID, domain.EventoInvitacionRevocada, &actor.UserID,
			map[string]interface{}{"usosActuales": inv.UsosActuales})).Error
	})
	if err != nil {
		return nil, err
	}
	inv.Estado = domain.InvitacionRevocada
	log.Info().Str("invitacion_id", inv.ID.String()).Str("actor_id", actor.UserID.String()).Msg("invitation revoked")
	return inv, nil
}

// ValidationResult is the scope a public registration form is pre-filled with.
type ValidationResult struct {
	InvitacionID     uuid.UUID             `json:"invitacionId"`
	Codigo           string                `json:"codigo"`
	Tipo             domain.TipoInvitacion `json:"tipo"`
	EscuelaID        uuid.UUID             `json:"escuelaId"`
	EscuelaNombre    string                `json:"escuelaNombre"`
	CursoID          *uuid.UUID            `json:"cursoId"`
	CursoNombre      string                `json:"cursoNombre,omitempty"`
	EstudianteID     *uuid.UUID            `json:"estudianteId"`
	EstudianteNombre string                `json:"estudianteNombre,omitempty"`
	UsosRestantes    int                   `json:"usosRestantes"`
	FechaExpiracion  *time.Time            `json:"fechaExpiracion"`
}

// ValidateCode is the read-only validity check. Every failure, including an unknown
// code, is reported as ErrInvalidCode; the concrete reason is only logged.
func (s *Service) ValidateCode(ctx context.Context, codigo string) (*ValidationResult, error) {
	codigo = strings.ToUpper(strings.TrimSpace(codigo))
	if codigo == "" {
		return nil, validation.Errors{"codigo": "Este campo es obligatorio"}
	}
	inv, err := FindUsable(s.DB.WithContext(ctx), "codigo = ?", codigo, s.now())
	if err != nil {
		return nil, err
	}

	out := &ValidationResult{
		InvitacionID:    inv.ID,
		Codigo:          inv.Codigo,
		Tipo:            inv.Tipo,
		EscuelaID:       inv.EscuelaID,
		CursoID:         inv.CursoID,
		EstudianteID:    inv.EstudianteID,
		UsosRestantes:   inv.UsosRestantes(),
		FechaExpiracion: inv.FechaExpiracion,
	}
	var escuela domain.Escuela
	if err := s.DB.WithContext(ctx).Where("id = ?", inv.EscuelaID).First(&escuela).Error; err != nil {
		return nil, err
	}
	out.EscuelaNombre = escuela.Nombre
	if inv.CursoID != nil {
		var curso domain.Curso
		if err := s.DB.WithContext(ctx).Where("id = ?", *inv.CursoID).First(&curso).Error; err == nil {
			out.CursoNombre = curso.Nombre
		}
	}
	if inv.EstudianteID != nil {
		var est domain.Estudiante
		if err := s.DB.WithContext(ctx).Where("id = ?", *inv.EstudianteID).First(&est).Error; err == nil {
			out.EstudianteNombre = est.Nombre + " " + est.Apellidos
		}
	}
	return out, nil
}

// FindUsable loads the invitation matching query and applies the usability policy at now.
// Not found and unusable both yield ErrInvalidCode. db may be a transaction.
func FindUsable(db *gorm.DB, query string, arg interface{}, now time.Time) (*domain.Invitacion, error) {
	var inv domain.Invitacion
	if err := db.Where(query, arg).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Info().Interface("lookup", arg).Msg("invitation lookup: not found")
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if reason := invitePolicy.EvaluateUsability(&inv, now); reason != invitePolicy.Usable {
		log.Info().Str("invitacion_id", inv.ID.String()).Str("reason", string(reason)).Msg("invitation lookup: not usable")
		return nil, ErrInvalidCode
	}
	return &inv, nil
}

// ListEventos returns the audit trail of one invitation and its solicitudes, oldest first.
func (s *Service) ListEventos(ctx context.Context, actor userPolicies.Actor, id string) ([]domain.Evento, error) {
	inv, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	eventos := []domain.Evento{}
	if err := s.DB.WithContext(ctx).Where("invitacion_id = ?", inv.ID).Order("created_at ASC").Find(&eventos).Error; err != nil {
		return nil, err
	}
	return eventos, nil
}

// ExpireOverdue persists EXPIRADO for ACTIVO invitations past their expiration and returns
// how many it moved. Validity never depends on it having run.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now()
	var candidates []domain.Invitacion
	if err := s.DB.WithContext(ctx).
		Where("estado = ? AND fecha_expiracion IS NOT NULL AND fecha_expiracion < ?", domain.InvitacionActiva, now).
		Find(&candidates).Error; err != nil {
		return 0, err
	}
	expired := 0
	for i := range candidates {
		inv := &candidates[i]
		if !invitePolicy.IsPastExpiration(inv, now) {
			continue
		}
		moved := false
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&domain.Invitacion{}).
				Where("id = ? AND estado = ?", inv.ID, domain.InvitacionActiva).
				Updates(map[string]interface{}{"estado": domain.InvitacionExpirada, "updated_at": now})
			if res.Error != nil || res.RowsAffected == 0 {
				return res.Error
			}
			moved = true
			return tx.Create(domain.NuevoEvento(domain.EntidadInvitacion, inv.ID, inv.ID, domain.EventoInvitacionExpirada, nil,
				map[string]interface{}{"fechaExpiracion": inv.FechaExpiracion})).Error
		})
		if err != nil {
			return expired, err
		}
		if moved {
			expired++
		}
	}
	if expired > 0 {
		log.Info().Int("count", expired).Msg("expired overdue invitations")
	}
	return expired, nil
}
