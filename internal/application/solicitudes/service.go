package solicitudes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"registro-backend/internal/application/emails"
	"registro-backend/internal/application/invitations"
	invitePolicy "registro-backend/internal/application/policies/invitations"
	userPolicies "registro-backend/internal/application/policies/user"
	"registro-backend/internal/application/user"
	"registro-backend/internal/domain"
	"registro-backend/internal/pkg/constants"
	"registro-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrNotFound              = errors.New("Solicitud no encontrada")
	ErrAlreadyReviewed       = errors.New("La solicitud ya fue revisada y no admite más cambios")
	ErrInvitationUnavailable = errors.New("No se puede completar la aprobación: la invitación fue revocada, expiró o no tiene usos disponibles")
	ErrInvalidInvitation     = invitations.ErrInvalidCode
)

const fieldRequired = "Este campo es obligatorio"

// Service runs the solicitud lifecycle. Mailer may be nil, in which case no email is sent.
type Service struct {
	DB     *gorm.DB
	Mailer emails.Sender
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// EstudianteInput is one entry of a submission: a new student, or a reference to an
// existing one found through the public search.
type EstudianteInput struct {
	EsExistente           bool   `json:"esExistente"`
	EstudianteExistenteID string `json:"estudianteExistenteId" validate:"omitempty,uuid"`
	Nombre                string `json:"nombre"`
	Apellidos             string `json:"apellidos"`
	CursoID               string `json:"cursoId" validate:"omitempty,uuid"`
	FechaNacimiento       string `json:"fechaNacimiento" validate:"omitempty,datetime=2006-01-02"`
	Email                 string `json:"email" validate:"omitempty,email_addr"`
}

type CreateInput struct {
	InvitacionID string            `json:"invitacionId" validate:"required,uuid"`
	Nombre       string            `json:"nombre" validate:"notblank"`
	Apellidos    string            `json:"apellidos" validate:"notblank"`
	Email        string            `json:"email" validate:"notblank,email_addr"`
	Telefono     *string           `json:"telefono"`
	Estudiantes  []EstudianteInput `json:"estudiantes" validate:"min=1,dive"`
}

// normalizeEmails trims the guardian and student emails so validation sees what gets stored.
func normalizeEmails(in CreateInput) CreateInput {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	ests := make([]EstudianteInput, len(in.Estudiantes))
	for i, e := range in.Estudiantes {
		e.Email = strings.ToLower(strings.TrimSpace(e.Email))
		ests[i] = e
	}
	in.Estudiantes = ests
	return in
}

// validateCreate collects every field error of a submission before anything is read or written.
func validateCreate(in CreateInput) validation.Errors {
	errs := validation.Struct(in)
	seen := make(map[string]bool, len(in.Estudiantes))
	for i, e := range in.Estudiantes {
		path := fmt.Sprintf("estudiantes[%d]", i)
		if e.EsExistente {
			id := strings.ToLower(strings.TrimSpace(e.EstudianteExistenteID))
			if id == "" {
				errs.Add(path+".estudianteExistenteId", fieldRequired)
				continue
			}
			if seen[id] {
				errs.Add(path+".estudianteExistenteId", "Este estudiante ya fue seleccionado")
			}
			seen[id] = true
			continue
		}
		if strings.TrimSpace(e.Nombre) == "" {
			errs.Add(path+".nombre", fieldRequired)
		}
		if strings.TrimSpace(e.Apellidos) == "" {
			errs.Add(path+".apellidos", fieldRequired)
		}
		if strings.TrimSpace(e.CursoID) == "" {
			errs.Add(path+".cursoId", fieldRequired)
		}
	}
	return errs
}

// Create stores a PENDIENTE solicitud after re-checking, inside the same transaction,
// that the invitation is still usable. Capacity is only consumed on approval.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.SolicitudRegistro, error) {
	in = normalizeEmails(in)
	if err := validateCreate(in).Err(); err != nil {
		return nil, err
	}
	now := s.now()

	var sol *domain.SolicitudRegistro
	var escuela domain.Escuela
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := invitations.FindUsable(tx, "id = ?", in.InvitacionID, now)
		if err != nil {
			return err
		}
		if err := tx.Where("id = ?", inv.EscuelaID).First(&escuela).Error; err != nil {
			return err
		}

		sol = &domain.SolicitudRegistro{
			InvitacionID: inv.ID,
			EscuelaID:    inv.EscuelaID,
			Nombre:       strings.TrimSpace(in.Nombre),
			Apellidos:    strings.TrimSpace(in.Apellidos),
			Email:        strings.ToLower(strings.TrimSpace(in.Email)),
			Telefono:     trimmedOrNil(in.Telefono),
			Estado:       domain.SolicitudPendiente,
		}
		errs := validation.Errors{}
		for i, e := range in.Estudiantes {
			entry, err := resolveEstudiante(tx, inv.EscuelaID, i, e, errs)
			if err != nil {
				return err
			}
			if entry != nil {
				sol.Estudiantes = append(sol.Estudiantes, *entry)
			}
		}
		if err := errs.Err(); err != nil {
			return err
		}

		if err := tx.Create(sol).Error; err != nil {
			return err
		}
		return tx.Create(domain.NuevoEvento(domain.EntidadSolicitud, sol.ID, inv.ID, domain.EventoSolicitudCreada, nil,
			map[string]interface{}{"email": sol.Email, "estudiantes": len(sol.Estudiantes)})).Error
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("solicitud_id", sol.ID.String()).Str("invitacion_id", sol.InvitacionID.String()).Int("estudiantes", len(sol.Estudiantes)).Msg("solicitud created")
	s.notify(sol, "solicitud_recibida", func(m emails.Sender) error {
		return m.SendSolicitudRecibida(ctx, sol.Email, sol.Nombre, escuela.Nombre)
	})
	return sol, nil
}

// resolveEstudiante checks one entry against the invitation's escuela. Lookup failures are
// added to errs and yield a nil entry.
func resolveEstudiante(tx *gorm.DB, escuelaID uuid.UUID, i int, e EstudianteInput, errs validation.Errors) (*domain.SolicitudEstudiante, error) {
	path := fmt.Sprintf("estudiantes[%d]", i)
	entry := &domain.SolicitudEstudiante{Posicion: i, EsExistente: e.EsExistente}

	if e.EsExistente {
		var est domain.Estudiante
		err := tx.Where("id = ? AND escuela_id = ?", strings.TrimSpace(e.EstudianteExistenteID), escuelaID).First(&est).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			errs.Add(path+".estudianteExistenteId", "Estudiante no encontrado")
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		entry.EstudianteExistenteID = &est.ID
		entry.Nombre = est.Nombre
		entry.Apellidos = est.Apellidos
		entry.CursoID = &est.CursoID
		return entry, nil
	}

	var curso domain.Curso
	err := tx.Where("id = ? AND escuela_id = ?", e.CursoID, escuelaID).First(&curso).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		errs.Add(path+".cursoId", "Curso no encontrado en la escuela")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry.Nombre = strings.TrimSpace(e.Nombre)
	entry.Apellidos = strings.TrimSpace(e.Apellidos)
	entry.CursoID = &curso.ID
	if e.FechaNacimiento != "" {
		d, err := time.Parse("2006-01-02", e.FechaNacimiento)
		if err != nil {
			errs.Add(path+".fechaNacimiento", "Fecha inválida (AAAA-MM-DD)")
			return nil, nil
		}
		entry.FechaNacimiento = &d
	}
	if email := strings.ToLower(strings.TrimSpace(e.Email)); email != "" {
		entry.Email = &email
	}
	return entry, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

type ListInput struct {
	Pagina int
	Limite int
	Estado string
}

type ListResult struct {
	Solicitudes []domain.SolicitudRegistro `json:"solicitudes"`
	Total       int64                      `json:"total"`
}

// List returns one page of solicitudes in estado (PENDIENTE when empty), newest first.
func (s *Service) List(ctx context.Context, actor userPolicies.Actor, in ListInput) (*ListResult, error) {
	estado := domain.EstadoSolicitud(strings.ToUpper(strings.TrimSpace(in.Estado)))
	if estado == "" {
		estado = domain.SolicitudPendiente
	}
	if estado != domain.SolicitudPendiente && !estado.Terminal() {
		return nil, validation.Errors{"estado": "Valor no permitido (opciones: PENDIENTE APROBADA RECHAZADA)"}
	}
	escuelaID, err := userPolicies.ScopeEscuela(actor)
	if err != nil {
		return nil, err
	}

	q := s.DB.WithContext(ctx).Model(&domain.SolicitudRegistro{}).Where("estado = ?", estado)
	if escuelaID != nil {
		q = q.Where("escuela_id = ?", *escuelaID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	pagina, limite := invitations.NormalizePage(in.Pagina, in.Limite)
	sols := []domain.SolicitudRegistro{}
	if err := q.Preload("Estudiantes", byPosicion).
		Order("fecha_solicitud DESC").
		Offset((pagina - 1) * limite).Limit(limite).
		Find(&sols).Error; err != nil {
		return nil, err
	}
	return &ListResult{Solicitudes: sols, Total: total}, nil
}

func byPosicion(db *gorm.DB) *gorm.DB {
	return db.Order("posicion ASC")
}

// Get returns one solicitud with its students, or ErrNotFound outside the actor's escuela.
func (s *Service) Get(ctx context.Context, actor userPolicies.Actor, id string) (*domain.SolicitudRegistro, error) {
	return s.load(s.DB.WithContext(ctx), actor, id)
}

func (s *Service) load(db *gorm.DB, actor userPolicies.Actor, id string) (*domain.SolicitudRegistro, error) {
	solID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var sol domain.SolicitudRegistro
	if err := db.Preload("Estudiantes", byPosicion).Where("id = ?", solID).First(&sol).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := userPolicies.ValidateEscuelaScope(actor, sol.EscuelaID); err != nil {
		return nil, ErrNotFound
	}
	return &sol, nil
}

// Approve moves a PENDIENTE solicitud to APROBADA and consumes one use of its invitation in a
// single transaction: either the solicitud flips, the counter moves, the accounts exist and the
// usage is logged, or nothing changes. Credentials are emailed after commit.
func (s *Service) Approve(ctx context.Context, actor userPolicies.Actor, id string) (*domain.SolicitudRegistro, error) {
	sol, err := s.load(s.DB.WithContext(ctx), actor, id)
	if err != nil {
		return nil, err
	}
	if sol.Estado.Terminal() {
		return nil, ErrAlreadyReviewed
	}
	now := s.now()

	var cuentas []emails.Cuenta
	var escuela domain.Escuela
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.load(tx, actor, id)
		if err != nil {
			return err
		}
		if cur.Estado != domain.SolicitudPendiente {
			return ErrAlreadyReviewed
		}
		if err := tx.Where("id = ?", cur.EscuelaID).First(&escuela).Error; err != nil {
			return err
		}

		var inv domain.Invitacion
		if err := tx.Where("id = ?", cur.InvitacionID).First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvitationUnavailable
			}
			return err
		}
		if reason := invitePolicy.EvaluateUsability(&inv, now); reason != invitePolicy.Usable {
			log.Info().Str("solicitud_id", cur.ID.String()).Str("reason", string(reason)).Msg("approval blocked by invitation state")
			return ErrInvitationUnavailable
		}

		res := tx.Model(&domain.SolicitudRegistro{}).
			Where("id = ? AND estado = ?", cur.ID, domain.SolicitudPendiente).
			Updates(map[string]interface{}{
				"estado":         domain.SolicitudAprobada,
				"fecha_revision": now,
				"revisado_por":   actor.UserID,
				"updated_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrAlreadyReviewed
		}

		res = tx.Model(&domain.Invitacion{}).
			Where("id = ? AND estado = ? AND usos_actuales < cantidad_usos", inv.ID, domain.InvitacionActiva).
			Updates(map[string]interface{}{
				"usos_actuales":     gorm.Expr("usos_actuales + ?", 1),
				"fecha_utilizacion": now,
				"updated_at":        now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrInvitationUnavailable
		}

		acudiente, cred, err := user.EnsureAcudiente(tx, user.AcudienteInput{
			Nombre:    cur.Nombre,
			Apellidos: cur.Apellidos,
			Email:     cur.Email,
			Telefono:  cur.Telefono,
			EscuelaID: cur.EscuelaID,
		})
		if err != nil {
			return err
		}
		cuentas = appendCuenta(cuentas, cred)

		for i := range cur.Estudiantes {
			e := &cur.Estudiantes[i]
			estID, err := provisionEstudiante(tx, &escuela, e, &cuentas)
			if err != nil {
				return err
			}
			if err := user.LinkAcudiente(tx, acudiente.ID, estID); err != nil {
				return err
			}
		}

		if err := tx.Create(&domain.RegistroUso{
			InvitacionID:  inv.ID,
			SolicitudID:   cur.ID,
			UsuarioID:     acudiente.ID,
			TipoCuenta:    constants.Acudiente,
			FechaRegistro: now,
		}).Error; err != nil {
			return err
		}

		if err := tx.Select("usos_actuales", "cantidad_usos").Where("id = ?", inv.ID).First(&inv).Error; err != nil {
			return err
		}
		if inv.UsosActuales >= inv.CantidadUsos {
			if err := tx.Model(&domain.Invitacion{}).
				Where("id = ? AND estado = ?", inv.ID, domain.InvitacionActiva).
				Update("estado", domain.InvitacionUtilizada).Error; err != nil {
				return err
			}
			if err := tx.Create(domain.NuevoEvento(domain.EntidadInvitacion, inv.ID, inv.ID, domain.EventoInvitacionAgotada, &actor.UserID,
				map[string]interface{}{"usosActuales": inv.UsosActuales})).Error; err != nil {
				return err
			}
		}
		return tx.Create(domain.NuevoEvento(domain.EntidadSolicitud, cur.ID, inv.ID, domain.EventoSolicitudAprobada, &actor.UserID,
			map[string]interface{}{"usuarioId": acudiente.ID, "estudiantes": len(cur.Estudiantes), "usosActuales": inv.UsosActuales})).Error
	})
	if err != nil {
		return nil, err
	}

	out, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	log.Info().Str("solicitud_id", out.ID.String()).Str("actor_id", actor.UserID.String()).Int("cuentas_creadas", len(cuentas)).Msg("solicitud approved")
	s.notify(out, "credenciales", func(m emails.Sender) error {
		return m.SendCredenciales(ctx, out.Email, out.Nombre+" "+out.Apellidos, escuela.Nombre, cuentas)
	})
	return out, nil
}

// provisionEstudiante returns the student the guardian is linked to, creating the
// student and its account for new entries.
func provisionEstudiante(tx *gorm.DB, escuela *domain.Escuela, e *domain.SolicitudEstudiante, cuentas *[]emails.Cuenta) (uuid.UUID, error) {
	if e.EsExistente && e.EstudianteExistenteID != nil {
		return *e.EstudianteExistenteID, nil
	}
	var cursoID uuid.UUID
	if e.CursoID != nil {
		cursoID = *e.CursoID
	}
	est, cred, err := user.CreateEstudiante(tx, user.NuevoEstudianteInput{
		Escuela:         escuela,
		CursoID:         cursoID,
		Nombre:          e.Nombre,
		Apellidos:       e.Apellidos,
		Email:           e.Email,
		FechaNacimiento: e.FechaNacimiento,
	})
	if err != nil {
		return uuid.Nil, err
	}
	if err := tx.Model(&domain.SolicitudEstudiante{}).Where("id = ?", e.ID).Update("estudiante_creado_id", est.ID).Error; err != nil {
		return uuid.Nil, err
	}
	*cuentas = appendCuenta(*cuentas, cred)
	return est.ID, nil
}

func appendCuenta(cuentas []emails.Cuenta, cred *user.Credencial) []emails.Cuenta {
	if cred == nil {
		return cuentas
	}
	return append(cuentas, emails.Cuenta{
		Nombre:     cred.Nombre,
		Username:   cred.Username,
		Password:   cred.Password,
		TipoCuenta: cred.TipoCuenta,
	})
}

// Reject moves a PENDIENTE solicitud to RECHAZADA with motivo as comentarios. The
// invitation is not touched. A blank motivo is refused before anything is read.
func (s *Service) Reject(ctx context.Context, actor userPolicies.Actor, id, motivo string) (*domain.SolicitudRegistro, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, validation.Errors{"motivo": fieldRequired}
	}
	sol, err := s.load(s.DB.WithContext(ctx), actor, id)
	if err != nil {
		return nil, err
	}
	if sol.Estado.Terminal() {
		return nil, ErrAlreadyReviewed
	}
	now := s.now()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.SolicitudRegistro{}).
			Where("id = ? AND estado = ?", sol.ID, domain.SolicitudPendiente).
			Updates(map[string]interface{}{
				"estado":         domain.SolicitudRechazada,
				"fecha_revision": now,
				"revisado_por":   actor.UserID,
				"comentarios":    motivo,
				"updated_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrAlreadyReviewed
		}
		return tx.Create(domain.NuevoEvento(domain.EntidadSolicitud, sol.ID, sol.InvitacionID, domain.EventoSolicitudRechazada, &actor.UserID,
			map[string]interface{}{"motivo": motivo})).Error
	})
	if err != nil {
		return nil, err
	}

	sol.Estado = domain.SolicitudRechazada
	sol.FechaRevision = &now
	sol.RevisadoPor = &actor.UserID
	sol.Comentarios = &motivo
	log.Info().Str("solicitud_id", sol.ID.String()).Str("actor_id", actor.UserID.String()).Msg("solicitud rejected")

	var escuela domain.Escuela
	if err := s.DB.WithContext(ctx).Where("id = ?", sol.EscuelaID).First(&escuela).Error; err != nil {
		log.Warn().Err(err).Str("solicitud_id", sol.ID.String()).Msg("escuela lookup for rejection email failed")
	}
	s.notify(sol, "rechazo", func(m emails.Sender) error {
		return m.SendRechazo(ctx, sol.Email, sol.Nombre+" "+sol.Apellidos, escuela.Nombre, motivo)
	})
	return sol, nil
}

// notify sends one email after a committed transition. Failures are logged, never returned:
// the transition already happened.
func (s *Service) notify(sol *domain.SolicitudRegistro, kind string, send func(emails.Sender) error) {
	if s.Mailer == nil {
		return
	}
	if err := send(s.Mailer); err != nil {
		log.Error().Err(err).Str("solicitud_id", sol.ID.String()).Str("email", kind).Msg("email send failed")
	}
}
