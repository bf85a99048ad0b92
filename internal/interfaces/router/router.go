package router

import (
	"context"
	"net/http"

	"registro-backend/internal/application/emails"
	estsvc "registro-backend/internal/application/estudiantes"
	invsvc "registro-backend/internal/application/invitations"
	solsvc "registro-backend/internal/application/solicitudes"
	authsvc "registro-backend/internal/auth"
	"registro-backend/internal/config"
	"registro-backend/internal/infrastructure/database"
	authhandler "registro-backend/internal/interfaces/handlers/auth"
	esthandler "registro-backend/internal/interfaces/handlers/estudiantes"
	healthhandler "registro-backend/internal/interfaces/handlers/health"
	invhandler "registro-backend/internal/interfaces/handlers/invitaciones"
	solhandler "registro-backend/internal/interfaces/handlers/solicitudes"
	"registro-backend/internal/middleware"
	"registro-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) PingContext(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Services are the application services behind the routes; main reuses them for background jobs.
type Services struct {
	Invitaciones *invsvc.Service
	Solicitudes  *solsvc.Service
	Estudiantes  *estsvc.Service
}

// CreateApp opens the database and Redis from cfg, migrates when AUTO_MIGRATE is set,
// and builds the app.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	rdb, err := OpenRedis(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.AutoMigrate {
			if err := database.Migrate(db); err != nil {
				return nil, nil, nil, err
			}
		}
	}

	app, _ := Build(cfg, db, rdb, nil)
	return app, db, rdb, nil
}

// OpenRedis returns a client for a redis:// or rediss:// URL. It does not dial.
func OpenRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// Build wires middleware and routes over existing connections. mailer nil selects the
// provider from cfg. Without a database only health and auth/me are served.
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client, mailer emails.Sender) (*fiber.App, *Services) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          cfg.TrustedProxies,
		ProxyHeader:             cfg.ProxyHeader,
		EnableIPValidation:      true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	app.Use(middleware.Session(rdb, sessionCfg))
	app.Use(middleware.Tracing())
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{Rdb: rdb, HealthAdminKey: cfg.HealthAdminKey}
	if db != nil {
		hh.DB = &gormDBPinger{db: db}
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	ah := &authhandler.Handlers{UserFinder: userFinder, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", middleware.RateLimit(rdb, "login", cfg.PublicRateLimit), ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	if db == nil {
		return app, nil
	}

	if mailer == nil {
		mailer = emails.New(emails.Config{
			Provider:         cfg.MailProvider,
			SendinblueAPIKey: cfg.SendinblueAPIKey,
			SendgridAPIKey:   cfg.SendgridAPIKey,
			MailFrom:         cfg.MailFrom,
			PortalURL:        cfg.PortalBaseURL,
		})
	}
	svcs := &Services{
		Invitaciones: &invsvc.Service{DB: db},
		Solicitudes:  &solsvc.Service{DB: db, Mailer: mailer},
		Estudiantes:  &estsvc.Service{DB: db},
	}
	public := middleware.RateLimit(rdb, "public", cfg.PublicRateLimit)

	// Invitaciones
	ih := &invhandler.Handlers{Service: svcs.Invitaciones}
	app.Post("/api/v1/invitaciones/public/validar", public, ih.Validar)
	ig := app.Group("/api/v1/invitaciones", middleware.RequireAuth())
	ig.Post("/", middleware.AuthorizePermission(constants.ManageInvitations), ih.Create)
	ig.Get("/", middleware.AuthorizePermission(constants.ViewInvitations), ih.List)
	ig.Get("/:id", middleware.AuthorizePermission(constants.ViewInvitations), ih.Get)
	ig.Get("/:id/eventos", middleware.AuthorizePermission(constants.ViewInvitations), ih.Eventos)
	ig.Delete("/:id", middleware.AuthorizePermission(constants.ManageInvitations), ih.Revoke)

	// Estudiantes (public search during registration)
	eh := &esthandler.Handlers{Service: svcs.Estudiantes}
	app.Get("/api/v1/estudiantes/public/buscar", public, eh.Buscar)

	// Solicitudes
	sh := &solhandler.Handlers{Service: svcs.Solicitudes}
	app.Post("/api/v1/solicitudes/public", public, sh.Create)
	sg := app.Group("/api/v1/solicitudes", middleware.RequireAuth())
	sg.Get("/", middleware.AuthorizePermission(constants.ViewSolicitudes), sh.List)
	sg.Get("/:id", middleware.AuthorizePermission(constants.ViewSolicitudes), sh.Get)
	sg.Put("/:id/aprobar", middleware.AuthorizePermission(constants.ReviewSolicitudes), sh.Aprobar)
	sg.Put("/:id/rechazar", middleware.AuthorizePermission(constants.ReviewSolicitudes), sh.Rechazar)

	return app, svcs
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
